package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/showrunner/showrunner/internal/config"
)

// ErrTokenMissing is returned when the client is constructed without a
// bearer token and a call is attempted.
var ErrTokenMissing = errors.New("catalog access token is not configured")

// RemoteError is any non-success response or transport-level failure
// from the catalog service. Status is zero for transport failures.
type RemoteError struct {
	Status int
	Body   string
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog request failed: %v", e.Err)
	}
	return fmt.Sprintf("catalog responded with status %d: %s", e.Status, e.Body)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Client is a typed wrapper over the remote TV metadata service.
// The bearer credential is fixed at construction time.
type Client struct {
	httpClient *http.Client
	cfg        config.CatalogConfig
	logger     zerolog.Logger
}

// New creates a new catalog client.
func New(cfg config.CatalogConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		cfg:    cfg,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// IsConfigured returns true if the access token is set.
func (c *Client) IsConfigured() bool {
	return c.cfg.AccessToken != ""
}

// GetShowDetails fetches the detail record for one show.
func (c *Client) GetShowDetails(ctx context.Context, id int, language string) (*ShowDetails, error) {
	params := url.Values{}
	if language != "" {
		params.Set("language", language)
	}

	var details ShowDetails
	if err := c.get(ctx, fmt.Sprintf("/3/tv/%d", id), params, &details); err != nil {
		return nil, err
	}

	c.logger.Debug().Int("id", id).Str("name", details.Name).Msg("Got show details")
	return &details, nil
}

// GetShowDetailsWithWatchProviders fetches show details with the
// watch-providers sub-resource embedded in the same round trip.
func (c *Client) GetShowDetailsWithWatchProviders(ctx context.Context, id int, language string) (*ShowDetailsWithProviders, error) {
	params := url.Values{}
	params.Set("append_to_response", "watch/providers")
	if language != "" {
		params.Set("language", language)
	}

	var details ShowDetailsWithProviders
	if err := c.get(ctx, fmt.Sprintf("/3/tv/%d", id), params, &details); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("id", id).
		Str("name", details.Name).
		Int("providerRegions", len(details.WatchProviders.Results)).
		Msg("Got show details with watch providers")

	return &details, nil
}

// SearchOptions are the optional parameters for SearchShows.
// Zero values are omitted from the request.
type SearchOptions struct {
	Page         int
	Language     string
	IncludeAdult bool
}

// SearchShows searches for TV shows by query. Raw air dates on each
// result are reformatted into a display string; a result with an
// unparseable date keeps its raw date and the formatted field empty.
func (c *Client) SearchShows(ctx context.Context, query string, opts SearchOptions) (*PagedShowResults, error) {
	params := url.Values{}
	params.Set("query", query)
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Language != "" {
		params.Set("language", opts.Language)
	}
	if opts.IncludeAdult {
		params.Set("include_adult", "true")
	}

	var results PagedShowResults
	if err := c.get(ctx, "/3/search/tv", params, &results); err != nil {
		return nil, err
	}

	for i := range results.Results {
		raw := results.Results[i].FirstAirDate
		if raw == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			// Best effort only; a bad date must not fail the search.
			c.logger.Warn().
				Int("id", results.Results[i].ID).
				Str("airDate", raw).
				Msg("Could not parse air date for search result")
			continue
		}
		results.Results[i].FirstAirDateFormatted = parsed.Format("January 2, 2006")
	}

	c.logger.Debug().
		Str("query", query).
		Int("page", results.Page).
		Int("results", len(results.Results)).
		Msg("Show search completed")

	return &results, nil
}

// ChangesOptions are the optional parameters for the changed-ids feed.
// Dates must be ISO-8601 (YYYY-MM-DD); when both are empty the server
// defaults to the last 24 hours.
type ChangesOptions struct {
	StartDate string
	EndDate   string
	Page      int
}

// ListChangedShowIDs fetches a single page of the changed-ids feed.
func (c *Client) ListChangedShowIDs(ctx context.Context, opts ChangesOptions) (*ChangedShowPage, error) {
	params := url.Values{}
	if opts.StartDate != "" {
		params.Set("start_date", opts.StartDate)
	}
	if opts.EndDate != "" {
		params.Set("end_date", opts.EndDate)
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}

	var page ChangedShowPage
	if err := c.get(ctx, "/3/tv/changes", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetConfiguration fetches the remote service's configuration record
// (image CDN layout and change-tracking keys).
func (c *Client) GetConfiguration(ctx context.Context) (*RemoteConfiguration, error) {
	var conf RemoteConfiguration
	if err := c.get(ctx, "/3/configuration", nil, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// get performs an authenticated GET and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, nil, out)
}

// do performs an authenticated request against the catalog service.
// Absent query parameters and a nil body are omitted entirely. Any
// non-2xx response or transport failure is returned as a *RemoteError.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any, headers http.Header, out any) error {
	if !c.IsConfigured() {
		return ErrTokenMissing
	}

	reqURL := c.cfg.BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json;charset=utf-8")
	}
	// Caller-supplied headers win over the defaults above.
	for key, values := range headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Str("path", path).Msg("Catalog request failed")
		return &RemoteError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("method", method).
			Str("path", path).
			Msg("Catalog API error")
		return &RemoteError{Status: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// bearerHeader builds an Authorization header overriding the client
// credential, used by list mutations performed as the end user.
func bearerHeader(accessToken string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+accessToken)
	return h
}
