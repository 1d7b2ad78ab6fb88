package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/showrunner/showrunner/internal/catalog"
)

// The remote list endpoints proxy the catalog's user-curated lists.
// List writes run under the caller's own catalog access token, which
// is obtained through the request-token/access-token exchange below
// and passed back per request.

type ListWriteRequest struct {
	AccessToken string `json:"accessToken"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Public      *bool  `json:"public"`
}

type ListItemsRequest struct {
	AccessToken string             `json:"accessToken"`
	Items       []catalog.ListItem `json:"items"`
}

type RequestTokenRequest struct {
	CallbackURL string `json:"callbackUrl"`
}

type AccessTokenRequest struct {
	RequestToken string `json:"requestToken"`
}

type SessionRequest struct {
	AccessToken string `json:"accessToken"`
}

func remoteListError(err error) error {
	var remoteErr *catalog.RemoteError
	if errors.As(err, &remoteErr) && remoteErr.Status > 0 {
		switch remoteErr.Status {
		case http.StatusNotFound:
			return echo.NewHTTPError(http.StatusNotFound, "list not found")
		case http.StatusUnauthorized:
			return echo.NewHTTPError(http.StatusUnauthorized, "catalog rejected the access token")
		}
	}
	return echo.NewHTTPError(http.StatusBadGateway, "catalog list request failed")
}

func parseListID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid list id")
	}
	return id, nil
}

// GET /api/v1/lists/:id
func (s *Server) getList(c echo.Context) error {
	listID, err := parseListID(c)
	if err != nil {
		return err
	}

	page := 0
	if p := c.QueryParam("page"); p != "" {
		if page, err = strconv.Atoi(p); err != nil || page < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
		}
	}

	list, err := s.catalog.GetList(c.Request().Context(), listID, page, c.QueryParam("language"))
	if err != nil {
		return remoteListError(err)
	}

	return c.JSON(http.StatusOK, list)
}

// POST /api/v1/lists
func (s *Server) createList(c echo.Context) error {
	var req ListWriteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "list name is required")
	}

	resp, err := s.catalog.CreateList(c.Request().Context(), req.AccessToken, catalog.CreateListBody{
		Name:        req.Name,
		Description: req.Description,
		ISO6391:     req.Language,
		Public:      req.Public,
	})
	if err != nil {
		return remoteListError(err)
	}

	return c.JSON(http.StatusCreated, resp)
}

// PUT /api/v1/lists/:id
func (s *Server) updateList(c echo.Context) error {
	listID, err := parseListID(c)
	if err != nil {
		return err
	}

	var req ListWriteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := s.catalog.UpdateList(c.Request().Context(), listID, req.AccessToken, catalog.CreateListBody{
		Name:        req.Name,
		Description: req.Description,
		ISO6391:     req.Language,
		Public:      req.Public,
	})
	if err != nil {
		return remoteListError(err)
	}

	return c.JSON(http.StatusOK, resp)
}

// DELETE /api/v1/lists/:id
func (s *Server) deleteList(c echo.Context) error {
	listID, err := parseListID(c)
	if err != nil {
		return err
	}

	var req SessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if _, err := s.catalog.DeleteList(c.Request().Context(), listID, req.AccessToken); err != nil {
		return remoteListError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// POST /api/v1/lists/:id/clear
func (s *Server) clearList(c echo.Context) error {
	listID, err := parseListID(c)
	if err != nil {
		return err
	}

	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := s.catalog.ClearList(c.Request().Context(), listID, req.SessionID)
	if err != nil {
		return remoteListError(err)
	}

	return c.JSON(http.StatusOK, resp)
}

// POST /api/v1/lists/:id/items
func (s *Server) addListItems(c echo.Context) error {
	return s.modifyListItems(c, s.catalog.AddListItems)
}

// DELETE /api/v1/lists/:id/items
func (s *Server) removeListItems(c echo.Context) error {
	return s.modifyListItems(c, s.catalog.RemoveListItems)
}

func (s *Server) modifyListItems(c echo.Context, modify func(ctx context.Context, listID int, accessToken string, items []catalog.ListItem) (*catalog.ListResponse, error)) error {
	listID, err := parseListID(c)
	if err != nil {
		return err
	}

	var req ListItemsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "items are required")
	}

	resp, err := modify(c.Request().Context(), listID, req.AccessToken, req.Items)
	if err != nil {
		return remoteListError(err)
	}

	return c.JSON(http.StatusOK, resp)
}

// POST /api/v1/catalog/request-token
func (s *Server) createCatalogRequestToken(c echo.Context) error {
	var req RequestTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	token, err := s.catalog.CreateRequestToken(c.Request().Context(), req.CallbackURL)
	if err != nil {
		return remoteListError(err)
	}

	return c.JSON(http.StatusOK, token)
}

// POST /api/v1/catalog/access-token
func (s *Server) createCatalogAccessToken(c echo.Context) error {
	var req AccessTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RequestToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "request token is required")
	}

	token, err := s.catalog.CreateAccessToken(c.Request().Context(), req.RequestToken)
	if err != nil {
		return remoteListError(err)
	}

	return c.JSON(http.StatusOK, token)
}

// POST /api/v1/catalog/session
func (s *Server) createCatalogSession(c echo.Context) error {
	var req SessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.AccessToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "access token is required")
	}

	session, err := s.catalog.CreateSession(c.Request().Context(), req.AccessToken)
	if err != nil {
		return remoteListError(err)
	}

	return c.JSON(http.StatusOK, session)
}
