package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginSuccess(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	registerVerified(t, env, "alice", "alice@example.com", "P@ssw0rd1")

	result, err := env.engine.Login(ctx, "Alice@Example.com", "P@ssw0rd1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if result.Token == "" || result.RefreshToken == "" {
		t.Fatal("missing session tokens")
	}
	if result.Token == result.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}
	if result.Email != "alice@example.com" || result.Username != "alice" {
		t.Fatalf("result identity: %+v", result)
	}
	if result.ExpiresAt.IsZero() {
		t.Fatal("missing expiry")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	registerVerified(t, env, "alice", "alice@example.com", "P@ssw0rd1")

	_, unknownErr := env.engine.Login(ctx, "ghost@example.com", "P@ssw0rd1")
	_, wrongErr := env.engine.Login(ctx, "alice@example.com", "WrongPass1")

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("unknown email error = %v, want ErrInvalidCredentials", unknownErr)
	}
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v, want ErrInvalidCredentials", wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("error text differs: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLoginUnverifiedIssuesCode(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	if err := env.engine.Register(ctx, registerReq("alice", "alice@example.com", "P@ssw0rd1")); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	drainMessages(env)

	// the registration code is still outstanding, so no new one is issued
	if _, err := env.engine.Login(ctx, "alice@example.com", "P@ssw0rd1"); !errors.Is(err, ErrVerificationRequired) {
		t.Fatalf("error = %v, want ErrVerificationRequired", err)
	}
	select {
	case msg := <-env.notifier.Messages():
		t.Fatalf("unexpected mail while code outstanding: %+v", msg)
	default:
	}

	// once it expires, a login attempt issues a fresh one
	env.advance(11 * time.Minute)
	if _, err := env.engine.Login(ctx, "alice@example.com", "P@ssw0rd1"); !errors.Is(err, ErrVerificationRequired) {
		t.Fatalf("error = %v, want ErrVerificationRequired", err)
	}
	code := sentCode(t, env)
	if err := env.engine.VerifyEmail(ctx, "alice@example.com", code); err != nil {
		t.Fatalf("VerifyEmail with reissued code error: %v", err)
	}
}

func TestLoginUnverifiedRejectPolicy(t *testing.T) {
	env := newTestEngine(t, func(cfg *Config) {
		cfg.Login.UnverifiedPolicy = UnverifiedLoginReject
	})
	ctx := context.Background()

	if err := env.engine.Register(ctx, registerReq("alice", "alice@example.com", "P@ssw0rd1")); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	drainMessages(env)
	env.advance(11 * time.Minute)

	if _, err := env.engine.Login(ctx, "alice@example.com", "P@ssw0rd1"); !errors.Is(err, ErrVerificationRequired) {
		t.Fatalf("error = %v, want ErrVerificationRequired", err)
	}
	select {
	case msg := <-env.notifier.Messages():
		t.Fatalf("reject policy must not issue codes, got %+v", msg)
	default:
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := env.engine.Authenticate(ctx, "not-a-token"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("garbage token error = %v, want ErrUnauthorized", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	registerVerified(t, env, "alice", "alice@example.com", "P@ssw0rd1")
	result, err := env.engine.Login(ctx, "alice@example.com", "P@ssw0rd1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	if _, err := env.engine.Authenticate(ctx, result.Token); err != nil {
		t.Fatalf("Authenticate before logout error: %v", err)
	}

	if err := env.engine.Logout(ctx, result.Token); err != nil {
		t.Fatalf("Logout error: %v", err)
	}

	if _, err := env.engine.Authenticate(ctx, result.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("Authenticate after logout error = %v, want ErrTokenRevoked", err)
	}

	// logout revokes one token, not the session family
	second, err := env.engine.Login(ctx, "alice@example.com", "P@ssw0rd1")
	if err != nil {
		t.Fatalf("second Login error: %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, second.Token); err != nil {
		t.Fatalf("fresh token rejected after logout: %v", err)
	}
}

func TestLogoutRequiresValidToken(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	if err := env.engine.Logout(ctx, "not-a-token"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	registerVerified(t, env, "alice", "alice@example.com", "P@ssw0rd1")
	result, err := env.engine.Login(ctx, "alice@example.com", "P@ssw0rd1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	refreshed, err := env.engine.Refresh(ctx, result.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if refreshed.Token == "" {
		t.Fatal("missing access token")
	}
	if refreshed.RefreshToken != result.RefreshToken {
		t.Fatal("refresh token must be returned unchanged")
	}
	if _, err := env.engine.Authenticate(ctx, refreshed.Token); err != nil {
		t.Fatalf("Authenticate with refreshed token error: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	registerVerified(t, env, "alice", "alice@example.com", "P@ssw0rd1")
	result, err := env.engine.Login(ctx, "alice@example.com", "P@ssw0rd1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	if _, err := env.engine.Refresh(ctx, result.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("access-as-refresh error = %v, want ErrUnauthorized", err)
	}
	// and the other direction
	if _, err := env.engine.Authenticate(ctx, result.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("refresh-as-access error = %v, want ErrUnauthorized", err)
	}
}

func TestRefreshAfterAccountDeleted(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	registerVerified(t, env, "alice", "alice@example.com", "P@ssw0rd1")
	result, err := env.engine.Login(ctx, "alice@example.com", "P@ssw0rd1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	if err := env.engine.DeleteAccount(ctx, result.AccountID); err != nil {
		t.Fatalf("DeleteAccount error: %v", err)
	}

	if _, err := env.engine.Refresh(ctx, result.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("refresh for deleted account error = %v, want ErrUnauthorized", err)
	}
}

func TestLoginMetrics(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	registerVerified(t, env, "alice", "alice@example.com", "P@ssw0rd1")

	if _, err := env.engine.Login(ctx, "alice@example.com", "P@ssw0rd1"); err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", "WrongPass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v", err)
	}

	snap := env.engine.MetricsSnapshot()
	if snap["login_success"] != 1 {
		t.Fatalf("login_success = %d, want 1", snap["login_success"])
	}
	if snap["login_failure"] != 1 {
		t.Fatalf("login_failure = %d, want 1", snap["login_failure"])
	}
	if snap["verify_success"] != 1 {
		t.Fatalf("verify_success = %d, want 1", snap["verify_success"])
	}
}

func TestTokenValidAcrossEngineRestart(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	registerVerified(t, env, "alice", "alice@example.com", "P@ssw0rd1")
	result, err := env.engine.Login(ctx, "alice@example.com", "P@ssw0rd1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	// a second engine sharing the secret verifies statelessly
	cfg := testEngineConfig()
	other, err := New().WithConfig(cfg).WithStore(env.store).Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	defer other.Close()

	identity, err := other.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("Authenticate on second engine error: %v", err)
	}
	if identity.Email != "alice@example.com" {
		t.Fatalf("identity.Email = %q", identity.Email)
	}
}

func TestIdentityCarriesExpiry(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	registerVerified(t, env, "alice", "alice@example.com", "P@ssw0rd1")
	result, err := env.engine.Login(ctx, "alice@example.com", "P@ssw0rd1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	identity, err := env.engine.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if d := identity.ExpiresAt.Sub(result.ExpiresAt); d > time.Second || d < -time.Second {
		t.Fatalf("identity expiry %v drifts from login expiry %v", identity.ExpiresAt, result.ExpiresAt)
	}
}
