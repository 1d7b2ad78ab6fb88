package sync

import (
	"context"
	"sort"
	"strconv"
	gosync "sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/showrunner/showrunner/internal/catalog"
	"github.com/showrunner/showrunner/internal/mirror"
	"github.com/showrunner/showrunner/internal/watchlist"
)

// CatalogClient is the subset of the catalog API the engine depends on.
type CatalogClient interface {
	GetShowDetailsWithWatchProviders(ctx context.Context, id int, language string) (*catalog.ShowDetailsWithProviders, error)
	ListAllChangedShowIDs(ctx context.Context, opts catalog.ChangesOptions, onPage catalog.PageFunc) error
	GetConfiguration(ctx context.Context) (*catalog.RemoteConfiguration, error)
}

// Broadcaster pushes events to connected clients. May be nil.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// UserShow is a mirrored catalog record annotated with the owning
// user's watchlist entry.
type UserShow struct {
	*mirror.CatalogRecord
	UserShow *watchlist.Entry `json:"userShow"`
}

// ResolvedList is the outcome of resolving a user's watchlist: the
// records that could be produced plus the ids whose fetch failed.
// Callers decide whether a partial result is acceptable.
type ResolvedList struct {
	Shows     []*UserShow `json:"shows"`
	FailedIDs []int       `json:"failedIds,omitempty"`
}

// Engine keeps the mirror consistent with the remote catalog on demand
// and on a schedule, and computes the user-facing joined view.
type Engine struct {
	client     CatalogClient
	mirror     *mirror.Store
	configs    *mirror.ConfigStore
	watchlists *watchlist.Store
	hub        Broadcaster
	language   string
	logger     zerolog.Logger
}

// New creates a sync engine. The hub may be nil.
func New(client CatalogClient, mirrorStore *mirror.Store, configs *mirror.ConfigStore, watchlists *watchlist.Store, hub Broadcaster, language string, logger zerolog.Logger) *Engine {
	return &Engine{
		client:     client,
		mirror:     mirrorStore,
		configs:    configs,
		watchlists: watchlists,
		hub:        hub,
		language:   language,
		logger:     logger.With().Str("component", "sync").Logger(),
	}
}

// ResolveUserShows joins the user's watchlist against the mirror,
// fetching and inserting any show that is not mirrored yet. Missing
// shows are fetched concurrently; one failed fetch does not abandon
// the others, and the successfully resolved subset is returned along
// with the ids that failed. The result is sorted by title ascending;
// entries with equal titles keep their batch-read order.
func (e *Engine) ResolveUserShows(ctx context.Context, userID string) (*ResolvedList, error) {
	entries, err := e.watchlists.Entries(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &ResolvedList{Shows: []*UserShow{}}, nil
	}

	entryByShowID := make(map[string]*watchlist.Entry, len(entries))
	requested := make([]int, 0, len(entries))
	for _, entry := range entries {
		requested = append(requested, entry.ShowID)
		entryByShowID[strconv.Itoa(entry.ShowID)] = entry
	}

	found, err := e.mirror.FindByIDs(ctx, requested)
	if err != nil {
		return nil, err
	}

	present := make(map[int]struct{}, len(found))
	for _, record := range found {
		present[record.ShowID] = struct{}{}
	}

	var missing []int
	for _, id := range requested {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}

	records := found
	var failedIDs []int
	if len(missing) > 0 {
		fetched, failed := e.mirrorMissing(ctx, missing)
		records = append(records, fetched...)
		failedIDs = failed
	}

	shows := make([]*UserShow, 0, len(records))
	for _, record := range records {
		entry := entryByShowID[strconv.Itoa(record.ShowID)]
		shows = append(shows, &UserShow{CatalogRecord: record, UserShow: entry})
	}

	sort.SliceStable(shows, func(i, j int) bool {
		return shows[i].Name < shows[j].Name
	})

	return &ResolvedList{Shows: shows, FailedIDs: failedIDs}, nil
}

type fetchResult struct {
	id     int
	record *mirror.CatalogRecord
	err    error
}

// mirrorMissing fetches and upserts the given ids concurrently,
// returning the stored records and the ids that failed.
func (e *Engine) mirrorMissing(ctx context.Context, ids []int) ([]*mirror.CatalogRecord, []int) {
	results := make(chan fetchResult, len(ids))

	var wg gosync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			record, err := e.EnsureMirrored(ctx, id)
			results <- fetchResult{id: id, record: record, err: err}
		}(id)
	}
	wg.Wait()
	close(results)

	fetched := make([]*mirror.CatalogRecord, 0, len(ids))
	var failed []int
	for result := range results {
		if result.err != nil {
			e.logger.Error().
				Err(result.err).
				Int("showId", result.id).
				Str("operation", "resolveUserShows").
				Msg("Failed to mirror show")
			failed = append(failed, result.id)
			continue
		}
		fetched = append(fetched, result.record)
	}
	sort.Ints(failed)
	return fetched, failed
}

// EnsureMirrored fetches the show from the catalog and upserts it into
// the mirror, returning the stored record.
func (e *Engine) EnsureMirrored(ctx context.Context, showID int) (*mirror.CatalogRecord, error) {
	details, err := e.client.GetShowDetailsWithWatchProviders(ctx, showID, e.language)
	if err != nil {
		return nil, err
	}

	stored, err := e.mirror.Upsert(ctx, mirror.RecordFromDetails(details))
	if err != nil {
		return nil, err
	}

	if e.hub != nil {
		e.hub.Broadcast("show:mirrored", stored)
	}
	return stored, nil
}

// RetrieveShow returns the mirrored record for the show, fetching and
// inserting it when it is not mirrored yet.
func (e *Engine) RetrieveShow(ctx context.Context, showID int) (*mirror.CatalogRecord, error) {
	record, err := e.mirror.FindByID(ctx, showID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}
	return e.EnsureMirrored(ctx, showID)
}

// AddShowToUserList adds the show to the user's watchlist. Mirroring
// the show's metadata proceeds in the background and is independent of
// the add itself; a mirror failure is logged, not surfaced, since the
// next resolve will retry the fetch.
func (e *Engine) AddShowToUserList(ctx context.Context, userID string, showID int) error {
	go func() {
		bgCtx := context.WithoutCancel(ctx)
		if _, err := e.EnsureMirrored(bgCtx, showID); err != nil {
			e.logger.Error().
				Err(err).
				Int("showId", showID).
				Str("operation", "addShowToUserList").
				Msg("Failed to mirror show in background")
		}
	}()

	if err := e.watchlists.AddEntry(ctx, userID, showID); err != nil {
		return err
	}

	if e.hub != nil {
		e.hub.Broadcast("watchlist:updated", map[string]any{"userId": userID, "showId": showID})
	}
	return nil
}

// DeleteUserShow removes the show from the user's watchlist, then
// garbage-collects the mirrored record when no other user references
// it. The reference check is a best-effort live query, not a
// transaction: a concurrent add by another user can race the delete,
// and the next resolve re-fetches the record if it loses.
func (e *Engine) DeleteUserShow(ctx context.Context, userID string, showID int) error {
	if err := e.watchlists.RemoveEntry(ctx, userID, showID); err != nil {
		return err
	}

	owners, err := e.watchlists.ListOtherOwners(ctx, showID, userID)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		if err := e.mirror.DeleteByID(ctx, showID); err != nil {
			return err
		}
		e.logger.Debug().Int("showId", showID).Msg("Garbage-collected unreferenced show")
	}

	if e.hub != nil {
		e.hub.Broadcast("watchlist:updated", map[string]any{"userId": userID, "showId": showID})
	}
	return nil
}

// SetHasWatched toggles the watched flag on the user's entry.
func (e *Engine) SetHasWatched(ctx context.Context, userID string, showID int, watched bool) error {
	return e.watchlists.SetWatched(ctx, userID, showID, watched)
}

// SetIsFavorite toggles the favorite flag on the user's entry.
func (e *Engine) SetIsFavorite(ctx context.Context, userID string, showID int, favorite bool) error {
	return e.watchlists.SetFavorite(ctx, userID, showID, favorite)
}

// SetRating stores the user's rating for the entry.
func (e *Engine) SetRating(ctx context.Context, userID string, showID int, rating string) error {
	return e.watchlists.SetRating(ctx, userID, showID, rating)
}

// RefreshChangedShows walks the changed-ids feed for the default
// last-24-hours window and re-fetches every changed show that is
// already mirrored. Changed ids nobody has added are ignored, and a
// failed individual refresh never aborts the sweep.
func (e *Engine) RefreshChangedShows(ctx context.Context) error {
	mirrored, err := e.mirror.AllIDs(ctx)
	if err != nil {
		return err
	}
	if len(mirrored) == 0 {
		e.logger.Debug().Msg("Mirror is empty, skipping changed-shows sweep")
		return nil
	}

	var wg gosync.WaitGroup
	var refreshed, failed atomic.Int64

	err = e.client.ListAllChangedShowIDs(ctx, catalog.ChangesOptions{}, func(page *catalog.ChangedShowPage, pageErr error) {
		if pageErr != nil {
			e.logger.Error().
				Err(pageErr).
				Str("operation", "refreshChangedShows").
				Msg("Changed-ids page failed, continuing sweep")
			return
		}

		for _, changed := range page.Results {
			if _, ok := mirrored[changed.ID]; !ok {
				continue
			}

			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				if _, err := e.EnsureMirrored(ctx, id); err != nil {
					e.logger.Error().
						Err(err).
						Int("showId", id).
						Str("operation", "refreshChangedShows").
						Msg("Failed to refresh show")
					failed.Add(1)
					return
				}
				e.logger.Info().Int("showId", id).Msg("Refreshed changed show")
				refreshed.Add(1)
			}(changed.ID)
		}
	})
	wg.Wait()

	if err != nil {
		return err
	}

	e.logger.Info().
		Int("mirrored", len(mirrored)).
		Int64("refreshed", refreshed.Load()).
		Int64("failed", failed.Load()).
		Msg("Changed-shows sweep complete")

	return nil
}

// RefreshConfiguration fetches the remote configuration and replaces
// the stored singleton. On failure the previous record stays in place.
func (e *Engine) RefreshConfiguration(ctx context.Context) error {
	conf, err := e.client.GetConfiguration(ctx)
	if err != nil {
		e.logger.Error().
			Err(err).
			Str("operation", "refreshConfiguration").
			Msg("Failed to fetch remote configuration, keeping previous")
		return err
	}

	if err := e.configs.Replace(ctx, conf); err != nil {
		e.logger.Error().
			Err(err).
			Str("operation", "refreshConfiguration").
			Msg("Failed to store remote configuration, keeping previous")
		return err
	}

	return nil
}
