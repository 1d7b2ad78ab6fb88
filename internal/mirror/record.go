package mirror

import (
	"time"

	"github.com/showrunner/showrunner/internal/catalog"
)

// CatalogRecord is one mirrored show. Its primary key is the external
// catalog id; records are created and updated only by sync upserts and
// may be deleted once no watchlist references them.
type CatalogRecord struct {
	ShowID           int                                `json:"showId"`
	Name             string                             `json:"showName"`
	Overview         string                             `json:"overview"`
	Tagline          string                             `json:"tagline"`
	Status           string                             `json:"status"`
	FirstAirDate     string                             `json:"firstAirDate"`
	LastAirDate      string                             `json:"lastAirDate"`
	EpisodeCount     int                                `json:"episodeCount"`
	SeasonCount      int                                `json:"seasonCount"`
	Popularity       float64                            `json:"popularity"`
	VoteAverage      float64                            `json:"voteAvg"`
	VoteCount        int                                `json:"voteCount"`
	PosterPath       string                             `json:"posterPath"`
	BackdropPath     string                             `json:"backdropPath"`
	Genres           []catalog.Genre                    `json:"genres,omitempty"`
	Seasons          []catalog.Season                   `json:"seasons,omitempty"`
	LastEpisodeAired *catalog.Episode                   `json:"lastEpisodeAired,omitempty"`
	NextEpisodeToAir *catalog.Episode                   `json:"nextEpisodeToAir,omitempty"`
	WatchProviders   map[string]catalog.RegionProviders `json:"watchProviders,omitempty"`
	UpdatedAt        time.Time                          `json:"updatedAt"`
}

// RecordFromDetails maps a fetched detail response into a mirror record.
func RecordFromDetails(details *catalog.ShowDetailsWithProviders) *CatalogRecord {
	return &CatalogRecord{
		ShowID:           details.ID,
		Name:             details.Name,
		Overview:         details.Overview,
		Tagline:          details.Tagline,
		Status:           details.Status,
		FirstAirDate:     details.FirstAirDate,
		LastAirDate:      details.LastAirDate,
		EpisodeCount:     details.NumberOfEpisodes,
		SeasonCount:      details.NumberOfSeasons,
		Popularity:       details.Popularity,
		VoteAverage:      details.VoteAverage,
		VoteCount:        details.VoteCount,
		PosterPath:       details.PosterPath,
		BackdropPath:     details.BackdropPath,
		Genres:           details.Genres,
		Seasons:          details.Seasons,
		LastEpisodeAired: details.LastEpisodeToAir,
		NextEpisodeToAir: details.NextEpisodeToAir,
		WatchProviders:   details.WatchProviders.Results,
	}
}
