package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Remote list CRUD and the user auth-token handshake. List mutations
// authenticate as the end user via their own access token rather than
// the client credential.

// GetList fetches a remote list with its items.
func (c *Client) GetList(ctx context.Context, listID int, page int, language string) (*List, error) {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if language != "" {
		params.Set("language", language)
	}

	var list List
	if err := c.get(ctx, fmt.Sprintf("/4/list/%d", listID), params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateList creates a remote list owned by the user. The language
// field is required by the service; it defaults to English when unset.
func (c *Client) CreateList(ctx context.Context, accessToken string, body CreateListBody) (*ListResponse, error) {
	if body.ISO6391 == "" {
		body.ISO6391 = "en"
	}

	var resp ListResponse
	if err := c.do(ctx, http.MethodPost, "/4/list", nil, body, bearerHeader(accessToken), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateList updates a remote list's name, description or visibility.
func (c *Client) UpdateList(ctx context.Context, listID int, accessToken string, body CreateListBody) (*ListResponse, error) {
	var resp ListResponse
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/4/list/%d", listID), nil, body, bearerHeader(accessToken), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearList removes all items from a remote list, keeping the list.
func (c *Client) ClearList(ctx context.Context, listID int, sessionID string) (*ListResponse, error) {
	params := url.Values{}
	params.Set("session_id", sessionID)
	params.Set("confirm", "true")

	var resp ListResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/3/list/%d/clear", listID), params, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteList deletes a remote list.
func (c *Client) DeleteList(ctx context.Context, listID int, accessToken string) (*ListResponse, error) {
	var resp ListResponse
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/4/list/%d", listID), nil, nil, bearerHeader(accessToken), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddListItems appends items to a remote list.
func (c *Client) AddListItems(ctx context.Context, listID int, accessToken string, items []ListItem) (*ListResponse, error) {
	body := struct {
		Items []ListItem `json:"items"`
	}{Items: items}

	var resp ListResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/4/list/%d/items", listID), nil, body, bearerHeader(accessToken), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveListItems removes items from a remote list.
func (c *Client) RemoveListItems(ctx context.Context, listID int, accessToken string, items []ListItem) (*ListResponse, error) {
	body := struct {
		Items []ListItem `json:"items"`
	}{Items: items}

	var resp ListResponse
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/4/list/%d/items", listID), nil, body, bearerHeader(accessToken), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateRequestToken starts the user auth handshake. The user approves
// the token in their browser and is redirected to callbackURL.
func (c *Client) CreateRequestToken(ctx context.Context, callbackURL string) (*RequestToken, error) {
	body := struct {
		RedirectTo string `json:"redirect_to"`
	}{RedirectTo: callbackURL}

	var token RequestToken
	if err := c.do(ctx, http.MethodPost, "/4/auth/request_token", nil, body, nil, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// CreateAccessToken exchanges an approved request token for a
// long-lived access token.
func (c *Client) CreateAccessToken(ctx context.Context, requestToken string) (*AccessToken, error) {
	params := url.Values{}
	params.Set("request_token", requestToken)

	var token AccessToken
	if err := c.do(ctx, http.MethodPost, "/4/auth/access_token", params, nil, nil, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// CreateSession converts an access token into a session id usable with
// the older session-authenticated endpoints.
func (c *Client) CreateSession(ctx context.Context, accessToken string) (*Session, error) {
	params := url.Values{}
	params.Set("access_token", accessToken)

	var session Session
	if err := c.do(ctx, http.MethodPost, "/3/authentication/session/convert/4", params, nil, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
