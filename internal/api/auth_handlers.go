package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/showrunner/showrunner/internal/auth"
	"github.com/showrunner/showrunner/internal/watchlist"
)

// userClaimsKey is the echo context key holding the validated claims.
const userClaimsKey = "user"

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string          `json:"token"`
	User  *watchlist.User `json:"user"`
}

type ProfileUpdateRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
}

// POST /api/v1/auth/signup
func (s *Server) signup(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, token, err := s.authService.Signup(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameRequired), errors.Is(err, auth.ErrPasswordRequired):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, watchlist.ErrUsernameTaken):
			return echo.NewHTTPError(http.StatusConflict, "username already taken")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to create account")
		}
	}

	return c.JSON(http.StatusCreated, AuthResponse{Token: token, User: user})
}

// POST /api/v1/auth/login
func (s *Server) login(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if s.authLimiter.IsAccountLocked(req.Username) {
		remaining := s.authLimiter.GetLockoutRemaining(req.Username)
		return echo.NewHTTPError(http.StatusTooManyRequests,
			fmt.Sprintf("account temporarily locked, try again in %s", remaining.Round(time.Second)))
	}

	user, token, err := s.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.authLimiter.RecordFailedAttempt(req.Username)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	s.authLimiter.RecordSuccessfulLogin(req.Username)
	return c.JSON(http.StatusOK, AuthResponse{Token: token, User: user})
}

// GET /api/v1/auth/me
func (s *Server) getProfile(c echo.Context) error {
	claims := currentUser(c)

	user, err := s.users.GetUserByID(c.Request().Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, watchlist.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "account no longer exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load account")
	}

	return c.JSON(http.StatusOK, user)
}

// PUT /api/v1/auth/profile
func (s *Server) updateProfile(c echo.Context) error {
	claims := currentUser(c)

	var req ProfileUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := s.users.UpdateProfile(c.Request().Context(), claims.UserID, watchlist.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		if errors.Is(err, watchlist.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "account no longer exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update profile")
	}

	return c.JSON(http.StatusOK, user)
}

// requireAuth protects routes with JWT authentication.
func (s *Server) requireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearerToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization token")
			}

			claims, err := s.authService.ValidateToken(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(userClaimsKey, claims)
			return next(c)
		}
	}
}

// currentUser returns the claims set by requireAuth.
func currentUser(c echo.Context) *auth.Claims {
	claims, _ := c.Get(userClaimsKey).(*auth.Claims)
	return claims
}

func extractBearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return parts[1]
}
