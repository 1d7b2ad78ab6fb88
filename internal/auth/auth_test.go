package auth

import (
	"context"
	"testing"

	"github.com/showrunner/showrunner/internal/testutil"
	"github.com/showrunner/showrunner/internal/watchlist"
)

func newTestService(t *testing.T, secret string) *Service {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)

	users := watchlist.NewStore(tdb.Conn, tdb.Logger)
	service, err := NewService(users, secret, tdb.Logger)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return service
}

func TestService_SignupAndLogin(t *testing.T) {
	service := newTestService(t, "test-secret")
	ctx := context.Background()

	user, token, err := service.Signup(ctx, "peter", "hunter2")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if token == "" {
		t.Error("Signup() returned an empty token")
	}
	if user.PasswordHash == "hunter2" {
		t.Error("password stored in the clear")
	}

	loggedIn, loginToken, err := service.Login(ctx, "peter", "hunter2")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Errorf("Login() user = %s, want %s", loggedIn.ID, user.ID)
	}
	if loginToken == "" {
		t.Error("Login() returned an empty token")
	}
}

func TestService_LoginRejectsBadCredentials(t *testing.T) {
	service := newTestService(t, "test-secret")
	ctx := context.Background()

	if _, _, err := service.Signup(ctx, "peter", "hunter2"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	// Wrong password and unknown user look the same to the caller.
	if _, _, err := service.Login(ctx, "peter", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("Login() with wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := service.Login(ctx, "nobody", "hunter2"); err != ErrInvalidCredentials {
		t.Errorf("Login() with unknown user error = %v, want ErrInvalidCredentials", err)
	}
}

func TestService_SignupValidation(t *testing.T) {
	service := newTestService(t, "test-secret")
	ctx := context.Background()

	if _, _, err := service.Signup(ctx, "", "hunter2"); err != ErrUsernameRequired {
		t.Errorf("Signup() with empty username error = %v, want ErrUsernameRequired", err)
	}
	if _, _, err := service.Signup(ctx, "peter", ""); err != ErrPasswordRequired {
		t.Errorf("Signup() with empty password error = %v, want ErrPasswordRequired", err)
	}
}

func TestService_ValidateToken(t *testing.T) {
	service := newTestService(t, "test-secret")
	ctx := context.Background()

	user, token, err := service.Signup(ctx, "peter", "hunter2")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	claims, err := service.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("claims.UserID = %s, want %s", claims.UserID, user.ID)
	}
	if claims.Username != "peter" {
		t.Errorf("claims.Username = %s, want peter", claims.Username)
	}

	if _, err := service.ValidateToken("not-a-token"); err != ErrInvalidToken {
		t.Errorf("ValidateToken() on garbage error = %v, want ErrInvalidToken", err)
	}

	// A token signed with a different secret is rejected.
	other := newTestService(t, "other-secret")
	if _, err := other.ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("ValidateToken() with wrong secret error = %v, want ErrInvalidToken", err)
	}
}
