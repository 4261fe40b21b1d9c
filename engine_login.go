package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/hexavalt/authcore/internal/otp"
	"github.com/hexavalt/authcore/jwt"
)

// Login authenticates by email and password. Unknown email and wrong
// password return the same ErrInvalidCredentials. Correct credentials on an
// unverified account return ErrVerificationRequired; under the default
// policy a fresh code is issued first when none is outstanding.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	account, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLogin, false, "", email, ErrInvalidCredentials, map[string]string{"reason": "unknown_email"})
			return nil, ErrInvalidCredentials
		}
		return nil, e.mapStoreErr(err)
	}

	ok, err := e.hasher.Verify(password, account.CredentialHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, account.ID, email, ErrInvalidCredentials, map[string]string{"reason": "bad_password"})
		return nil, ErrInvalidCredentials
	}

	if !account.Verified {
		if e.config.Login.UnverifiedPolicy == UnverifiedLoginIssueOtp && e.otpExpired(account.PendingOtp) {
			if err := e.issueVerificationCode(ctx, account); err != nil {
				return nil, err
			}
		}
		e.metricInc(MetricLoginVerificationRequired)
		e.emitAudit(ctx, auditEventLogin, false, account.ID, email, ErrVerificationRequired, nil)
		return nil, ErrVerificationRequired
	}

	result, err := e.issueSession(account)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLogin, true, account.ID, email, nil, nil)
	return result, nil
}

// issueVerificationCode writes a fresh code into the pending slot and mails
// it. A version conflict is swallowed: a concurrent request already issued
// one.
func (e *Engine) issueVerificationCode(ctx context.Context, account *Account) error {
	code, err := otp.Generate(e.config.OTP.Digits)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	account.PendingOtp = &PendingCode{Code: code, IssuedAt: e.now()}
	account.UpdatedAt = e.now()
	if _, err := e.store.Save(ctx, account); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil
		}
		return e.mapStoreErr(err)
	}
	e.metricInc(MetricOtpIssued)
	e.notify(ctx, account.Email, "Verify your account", "Your verification code is: "+code)
	return nil
}

func (e *Engine) issueSession(account *Account) (*LoginResult, error) {
	access, expiresAt, err := e.tokens.CreateAccess(account.ID, account.Email, account.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	refresh, _, err := e.tokens.CreateRefresh(account.ID, account.Email, account.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &LoginResult{
		Token:        access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		AccountID:    account.ID,
		Email:        account.Email,
		Username:     account.Username,
	}, nil
}

// Authenticate resolves an access token to the identity it carries.
// Malformed, tampered, or expired tokens yield ErrUnauthorized; a token
// revoked by Logout yields ErrTokenRevoked.
func (e *Engine) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	claims, err := e.parseAccess(token)
	if err != nil {
		return nil, err
	}

	revoked, err := e.revoked.Contains(ctx, claims.ID)
	if err != nil {
		return nil, e.mapStoreErr(err)
	}
	if revoked {
		e.metricInc(MetricTokenRevokedRejected)
		return nil, ErrTokenRevoked
	}

	return &Identity{
		AccountID: claims.Subject,
		Email:     claims.Email,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (e *Engine) parseAccess(token string) (*jwt.Claims, error) {
	claims, err := e.tokens.Parse(token, jwt.TypeAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}

// Logout revokes the presented access token for its remaining lifetime.
// The token must still be valid; revoking an expired token is a no-op the
// caller does not need.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if err := e.ready(); err != nil {
		return err
	}
	claims, err := e.parseAccess(token)
	if err != nil {
		return err
	}
	if err := e.revoked.Add(ctx, claims.ID, e.tokens.RemainingTTL(claims)); err != nil {
		return e.mapStoreErr(err)
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, claims.Subject, claims.Email, nil, nil)
	return nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is returned unchanged; rotation is left to the
// caller's session policy. The account must still exist.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	claims, err := e.tokens.Parse(refreshToken, jwt.TypeRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	revoked, err := e.revoked.Contains(ctx, claims.ID)
	if err != nil {
		return nil, e.mapStoreErr(err)
	}
	if revoked {
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricTokenRevokedRejected)
		return nil, ErrTokenRevoked
	}

	account, err := e.store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefresh, false, claims.Subject, claims.Email, ErrUnauthorized, map[string]string{"reason": "account_gone"})
			return nil, ErrUnauthorized
		}
		return nil, e.mapStoreErr(err)
	}
	if !account.Verified {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, account.ID, account.Email, ErrVerificationRequired, nil)
		return nil, ErrVerificationRequired
	}

	access, expiresAt, err := e.tokens.CreateAccess(account.ID, account.Email, account.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefresh, true, account.ID, account.Email, nil, nil)
	return &LoginResult{
		Token:        access,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		AccountID:    account.ID,
		Email:        account.Email,
		Username:     account.Username,
	}, nil
}
