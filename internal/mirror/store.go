package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/showrunner/showrunner/internal/catalog"
)

// Store is the durable keyed cache of catalog records, queried and
// written only by the sync engine.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a new mirror store.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "mirror").Logger(),
	}
}

const recordColumns = `show_id, name, overview, tagline, status, first_air_date, last_air_date,
	episode_count, season_count, popularity, vote_average, vote_count, poster_path, backdrop_path,
	genres, seasons, last_episode_aired, next_episode_to_air, watch_providers, updated_at`

// Upsert inserts or fully replaces the record for its show id and
// returns the stored record. Keyed on the external id, so repeated
// upserts for the same id leave exactly one row.
func (s *Store) Upsert(ctx context.Context, record *CatalogRecord) (*CatalogRecord, error) {
	genres, err := marshalNullable(record.Genres)
	if err != nil {
		return nil, fmt.Errorf("failed to encode genres: %w", err)
	}
	seasons, err := marshalNullable(record.Seasons)
	if err != nil {
		return nil, fmt.Errorf("failed to encode seasons: %w", err)
	}
	lastEpisode, err := marshalNullable(record.LastEpisodeAired)
	if err != nil {
		return nil, fmt.Errorf("failed to encode last episode: %w", err)
	}
	nextEpisode, err := marshalNullable(record.NextEpisodeToAir)
	if err != nil {
		return nil, fmt.Errorf("failed to encode next episode: %w", err)
	}
	providers, err := marshalNullable(record.WatchProviders)
	if err != nil {
		return nil, fmt.Errorf("failed to encode watch providers: %w", err)
	}

	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shows (show_id, name, overview, tagline, status, first_air_date, last_air_date,
			episode_count, season_count, popularity, vote_average, vote_count, poster_path, backdrop_path,
			genres, seasons, last_episode_aired, next_episode_to_air, watch_providers, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (show_id) DO UPDATE SET
			name = excluded.name,
			overview = excluded.overview,
			tagline = excluded.tagline,
			status = excluded.status,
			first_air_date = excluded.first_air_date,
			last_air_date = excluded.last_air_date,
			episode_count = excluded.episode_count,
			season_count = excluded.season_count,
			popularity = excluded.popularity,
			vote_average = excluded.vote_average,
			vote_count = excluded.vote_count,
			poster_path = excluded.poster_path,
			backdrop_path = excluded.backdrop_path,
			genres = excluded.genres,
			seasons = excluded.seasons,
			last_episode_aired = excluded.last_episode_aired,
			next_episode_to_air = excluded.next_episode_to_air,
			watch_providers = excluded.watch_providers,
			updated_at = excluded.updated_at`,
		record.ShowID, record.Name, record.Overview, record.Tagline, record.Status,
		record.FirstAirDate, record.LastAirDate, record.EpisodeCount, record.SeasonCount,
		record.Popularity, record.VoteAverage, record.VoteCount, record.PosterPath,
		record.BackdropPath, genres, seasons, lastEpisode, nextEpisode, providers,
		now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert show %d: %w", record.ShowID, err)
	}

	stored := *record
	stored.UpdatedAt = now

	s.logger.Debug().Int("showId", record.ShowID).Str("name", record.Name).Msg("Upserted show")
	return &stored, nil
}

// FindByIDs returns the subset of requested records that exist; missing
// ids are silently omitted.
func (s *Store) FindByIDs(ctx context.Context, ids []int) ([]*CatalogRecord, error) {
	if len(ids) == 0 {
		return []*CatalogRecord{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT %s FROM shows WHERE show_id IN (%s) ORDER BY show_id`, recordColumns, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shows: %w", err)
	}
	defer rows.Close()

	records := make([]*CatalogRecord, 0, len(ids))
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// FindByID returns one record, or nil when it is not mirrored.
func (s *Store) FindByID(ctx context.Context, id int) (*CatalogRecord, error) {
	records, err := s.FindByIDs(ctx, []int{id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// DeleteByID removes the record; deleting an absent id is a no-op.
func (s *Store) DeleteByID(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM shows WHERE show_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete show %d: %w", id, err)
	}
	s.logger.Debug().Int("showId", id).Msg("Deleted show")
	return nil
}

// AllIDs returns every mirrored show id. Full scan; used only by the
// daily refresh sweep.
func (s *Store) AllIDs(ctx context.Context) (map[int]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT show_id FROM shows`)
	if err != nil {
		return nil, fmt.Errorf("failed to query show ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int]struct{})
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*CatalogRecord, error) {
	var record CatalogRecord
	var genres, seasons, lastEpisode, nextEpisode, providers sql.NullString
	var updatedAt string

	err := row.Scan(
		&record.ShowID, &record.Name, &record.Overview, &record.Tagline, &record.Status,
		&record.FirstAirDate, &record.LastAirDate, &record.EpisodeCount, &record.SeasonCount,
		&record.Popularity, &record.VoteAverage, &record.VoteCount, &record.PosterPath,
		&record.BackdropPath, &genres, &seasons, &lastEpisode, &nextEpisode, &providers,
		&updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan show row: %w", err)
	}

	if err := unmarshalNullable(genres, &record.Genres); err != nil {
		return nil, fmt.Errorf("failed to decode genres for show %d: %w", record.ShowID, err)
	}
	if err := unmarshalNullable(seasons, &record.Seasons); err != nil {
		return nil, fmt.Errorf("failed to decode seasons for show %d: %w", record.ShowID, err)
	}
	if err := unmarshalNullable(lastEpisode, &record.LastEpisodeAired); err != nil {
		return nil, fmt.Errorf("failed to decode last episode for show %d: %w", record.ShowID, err)
	}
	if err := unmarshalNullable(nextEpisode, &record.NextEpisodeToAir); err != nil {
		return nil, fmt.Errorf("failed to decode next episode for show %d: %w", record.ShowID, err)
	}
	if err := unmarshalNullable(providers, &record.WatchProviders); err != nil {
		return nil, fmt.Errorf("failed to decode watch providers for show %d: %w", record.ShowID, err)
	}

	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		record.UpdatedAt = t
	}

	return &record, nil
}

func marshalNullable(v any) (sql.NullString, error) {
	switch value := v.(type) {
	case nil:
		return sql.NullString{}, nil
	case *catalog.Episode:
		if value == nil {
			return sql.NullString{}, nil
		}
	case []catalog.Genre:
		if value == nil {
			return sql.NullString{}, nil
		}
	case []catalog.Season:
		if value == nil {
			return sql.NullString{}, nil
		}
	case map[string]catalog.RegionProviders:
		if value == nil {
			return sql.NullString{}, nil
		}
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(encoded), Valid: true}, nil
}

func unmarshalNullable(column sql.NullString, out any) error {
	if !column.Valid || column.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(column.String), out)
}
