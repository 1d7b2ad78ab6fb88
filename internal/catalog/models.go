package catalog

import "encoding/json"

// Genre is a TV show genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Network is a broadcaster attached to a show.
type Network struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logo_path"`
	OriginCountry string `json:"origin_country"`
}

// Episode is a single episode as returned inside show details.
type Episode struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"air_date"`
	EpisodeNumber int     `json:"episode_number"`
	SeasonNumber  int     `json:"season_number"`
	ShowID        int     `json:"show_id"`
	StillPath     string  `json:"still_path"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
}

// Season is a season summary as returned inside show details.
type Season struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	AirDate      string `json:"air_date"`
	EpisodeCount int    `json:"episode_count"`
	PosterPath   string `json:"poster_path"`
	SeasonNumber int    `json:"season_number"`
}

// ShowDetails is the full detail record for a TV show.
type ShowDetails struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	Overview         string   `json:"overview"`
	Tagline          string   `json:"tagline"`
	Status           string   `json:"status"`
	BackdropPath     string   `json:"backdrop_path"`
	PosterPath       string   `json:"poster_path"`
	FirstAirDate     string   `json:"first_air_date"`
	LastAirDate      string   `json:"last_air_date"`
	LastEpisodeToAir *Episode `json:"last_episode_to_air"`
	NextEpisodeToAir *Episode `json:"next_episode_to_air"`
	Genres           []Genre  `json:"genres"`
	Networks         []Network `json:"networks"`
	NumberOfEpisodes int      `json:"number_of_episodes"`
	NumberOfSeasons  int      `json:"number_of_seasons"`
	Popularity       float64  `json:"popularity"`
	Seasons          []Season `json:"seasons"`
	VoteAverage      float64  `json:"vote_average"`
	VoteCount        int      `json:"vote_count"`
}

// Provider is a single watch provider (streaming service, store, etc).
type Provider struct {
	ProviderID      int    `json:"provider_id"`
	ProviderName    string `json:"provider_name"`
	LogoPath        string `json:"logo_path"`
	DisplayPriority int    `json:"display_priority"`
}

// RegionProviders lists the providers available in one region.
type RegionProviders struct {
	Link     string     `json:"link"`
	Flatrate []Provider `json:"flatrate,omitempty"`
	Buy      []Provider `json:"buy,omitempty"`
	Rent     []Provider `json:"rent,omitempty"`
}

// WatchProviders maps region codes ("US", "GB", ...) to available providers.
type WatchProviders struct {
	Results map[string]RegionProviders `json:"results"`
}

// ShowDetailsWithProviders is show details with the watch-providers
// sub-resource embedded. The remote service embeds it under the key
// "watch/providers"; it is renamed to "watch_providers" during decoding
// so downstream consumers get a normal identifier.
type ShowDetailsWithProviders struct {
	ShowDetails
	WatchProviders WatchProviders `json:"watch_providers"`
}

// UnmarshalJSON renames the slash-containing embedded key.
func (s *ShowDetailsWithProviders) UnmarshalJSON(data []byte) error {
	type plain ShowDetailsWithProviders
	aux := struct {
		*plain
		EmbeddedProviders *WatchProviders `json:"watch/providers"`
	}{plain: (*plain)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.EmbeddedProviders != nil {
		s.WatchProviders = *aux.EmbeddedProviders
	}
	return nil
}

// MarshalJSON keeps the normalized key on re-encode.
func (s ShowDetailsWithProviders) MarshalJSON() ([]byte, error) {
	type plain ShowDetailsWithProviders
	return json.Marshal(plain(s))
}

// ShowSummary is a single search result.
type ShowSummary struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Overview     string   `json:"overview"`
	FirstAirDate string   `json:"first_air_date"`
	PosterPath   string   `json:"poster_path"`
	BackdropPath string   `json:"backdrop_path"`
	GenreIDs     []int    `json:"genre_ids"`
	Popularity   float64  `json:"popularity"`
	VoteAverage  float64  `json:"vote_average"`
	VoteCount    int      `json:"vote_count"`

	// FirstAirDateFormatted is a display form of FirstAirDate, filled in
	// by SearchShows. Empty when the raw date is absent or unparseable.
	FirstAirDateFormatted string `json:"first_air_date_formatted,omitempty"`
}

// PagedShowResults is one page of search results.
type PagedShowResults struct {
	Page         int           `json:"page"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
	Results      []ShowSummary `json:"results"`
}

// ChangedShow is one entry from the changed-ids feed.
type ChangedShow struct {
	ID    int  `json:"id"`
	Adult bool `json:"adult"`
}

// ChangedShowPage is one page of the changed-ids feed.
type ChangedShowPage struct {
	Page         int           `json:"page"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
	Results      []ChangedShow `json:"results"`
}

// ImageConfiguration describes the image CDN layout of the remote service.
type ImageConfiguration struct {
	BaseURL       string   `json:"base_url"`
	SecureBaseURL string   `json:"secure_base_url"`
	BackdropSizes []string `json:"backdrop_sizes"`
	LogoSizes     []string `json:"logo_sizes"`
	PosterSizes   []string `json:"poster_sizes"`
	ProfileSizes  []string `json:"profile_sizes"`
	StillSizes    []string `json:"still_sizes"`
}

// RemoteConfiguration is the singleton configuration record of the
// remote catalog service.
type RemoteConfiguration struct {
	Images     ImageConfiguration `json:"images"`
	ChangeKeys []string           `json:"change_keys"`
}

// List is a user-curated list of shows on the remote service.
type List struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	CreatedBy     any    `json:"created_by"`
	ItemCount     int    `json:"item_count"`
	Page          int    `json:"page"`
	TotalPages    int    `json:"total_pages"`
	TotalResults  int    `json:"total_results"`
	Results       []ShowSummary `json:"results"`
}

// ListItem identifies one item when modifying a remote list.
type ListItem struct {
	MediaType string `json:"media_type"`
	MediaID   int    `json:"media_id"`
}

// CreateListBody is the request body for creating a remote list.
type CreateListBody struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ISO6391     string `json:"iso_639_1,omitempty"`
	Public      *bool  `json:"public,omitempty"`
}

// ListResponse is the generic acknowledgement for list mutations.
type ListResponse struct {
	ID            int    `json:"id,omitempty"`
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       bool   `json:"success"`
}

// RequestToken is the first leg of the user auth handshake.
type RequestToken struct {
	RequestToken string `json:"request_token"`
	StatusCode   int    `json:"status_code"`
	Success      bool   `json:"success"`
}

// AccessToken is the second leg of the user auth handshake.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
	StatusCode  int    `json:"status_code"`
	Success     bool   `json:"success"`
}

// Session converts an access token into a v3 session id.
type Session struct {
	SessionID string `json:"session_id"`
	Success   bool   `json:"success"`
}

// ErrorResponse is the remote service's error body.
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
