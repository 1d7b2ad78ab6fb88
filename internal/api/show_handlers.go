package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/showrunner/showrunner/internal/catalog"
	"github.com/showrunner/showrunner/internal/mirror"
	"github.com/showrunner/showrunner/internal/watchlist"
)

type FlagRequest struct {
	Value bool `json:"value"`
}

func parseShowID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid show id")
	}
	return id, nil
}

type RatingRequest struct {
	Rating string `json:"rating"`
}

// GET /api/v1/shows
func (s *Server) listUserShows(c echo.Context) error {
	claims := currentUser(c)

	result, err := s.engine.ResolveUserShows(c.Request().Context(), claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve watchlist")
	}

	return c.JSON(http.StatusOK, result)
}

// GET /api/v1/shows/:id
func (s *Server) getShow(c echo.Context) error {
	showID, err := parseShowID(c)
	if err != nil {
		return err
	}

	record, err := s.engine.RetrieveShow(c.Request().Context(), showID)
	if err != nil {
		var remoteErr *catalog.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.Status == http.StatusNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "show not found")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "failed to retrieve show")
	}

	return c.JSON(http.StatusOK, record)
}

// POST /api/v1/shows/:id
func (s *Server) addShow(c echo.Context) error {
	claims := currentUser(c)

	showID, err := parseShowID(c)
	if err != nil {
		return err
	}

	if err := s.engine.AddShowToUserList(c.Request().Context(), claims.UserID, showID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to add show")
	}

	return c.JSON(http.StatusCreated, map[string]int{"showId": showID})
}

// DELETE /api/v1/shows/:id
func (s *Server) deleteShow(c echo.Context) error {
	claims := currentUser(c)

	showID, err := parseShowID(c)
	if err != nil {
		return err
	}

	if err := s.engine.DeleteUserShow(c.Request().Context(), claims.UserID, showID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to remove show")
	}

	return c.NoContent(http.StatusNoContent)
}

// PUT /api/v1/shows/:id/watched
func (s *Server) setWatched(c echo.Context) error {
	return s.setEntryFlag(c, s.engine.SetHasWatched)
}

// PUT /api/v1/shows/:id/favorite
func (s *Server) setFavorite(c echo.Context) error {
	return s.setEntryFlag(c, s.engine.SetIsFavorite)
}

func (s *Server) setEntryFlag(c echo.Context, set func(ctx context.Context, userID string, showID int, value bool) error) error {
	claims := currentUser(c)

	showID, err := parseShowID(c)
	if err != nil {
		return err
	}

	var req FlagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := set(c.Request().Context(), claims.UserID, showID, req.Value); err != nil {
		if errors.Is(err, watchlist.ErrEntryNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "show is not on the watchlist")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update entry")
	}

	return c.NoContent(http.StatusNoContent)
}

// PUT /api/v1/shows/:id/rating
func (s *Server) setRating(c echo.Context) error {
	claims := currentUser(c)

	showID, err := parseShowID(c)
	if err != nil {
		return err
	}

	var req RatingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := s.engine.SetRating(c.Request().Context(), claims.UserID, showID, req.Rating); err != nil {
		if errors.Is(err, watchlist.ErrEntryNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "show is not on the watchlist")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update rating")
	}

	return c.NoContent(http.StatusNoContent)
}

// GET /api/v1/search?query=...&page=...
func (s *Server) searchShows(c echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter is required")
	}

	opts := catalog.SearchOptions{}
	if p := c.QueryParam("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
		}
		opts.Page = page
	}

	results, err := s.catalog.SearchShows(c.Request().Context(), query, opts)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "catalog search failed")
	}

	return c.JSON(http.StatusOK, results)
}

// GET /api/v1/configuration
func (s *Server) getConfiguration(c echo.Context) error {
	conf, err := s.configs.Get(c.Request().Context())
	if err != nil {
		if errors.Is(err, mirror.ErrConfigurationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "configuration not fetched yet")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load configuration")
	}

	return c.JSON(http.StatusOK, conf)
}
