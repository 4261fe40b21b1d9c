package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hexavalt/authcore/internal/otp"
)

// Register creates an unverified account and emails it a verification code.
// Username and email must be free; the two password fields must match.
// The email is lowercased before any lookup or storage.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) error {
	if err := e.ready(); err != nil {
		return err
	}

	username := strings.TrimSpace(req.Username)
	email := normalizeEmail(req.Email)
	if username == "" || email == "" || req.Password == "" || req.ConfirmPassword == "" {
		return fmt.Errorf("%w: all fields are required", ErrValidation)
	}
	if req.Password != req.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}

	if _, err := e.store.FindByEmail(ctx, email); err == nil {
		e.metricInc(MetricRegisterConflict)
		e.emitAudit(ctx, auditEventRegister, false, "", email, ErrConflict, map[string]string{"reason": "email_taken"})
		return fmt.Errorf("%w: email already exists", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return e.mapStoreErr(err)
	}
	if _, err := e.store.FindByUsername(ctx, username); err == nil {
		e.metricInc(MetricRegisterConflict)
		e.emitAudit(ctx, auditEventRegister, false, "", email, ErrConflict, map[string]string{"reason": "username_taken"})
		return fmt.Errorf("%w: username already exists", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return e.mapStoreErr(err)
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	code, err := otp.Generate(e.config.OTP.Digits)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	now := e.now()
	saved, err := e.store.Save(ctx, &Account{
		Username:       username,
		Email:          email,
		CredentialHash: hash,
		PendingOtp:     &PendingCode{Code: code, IssuedAt: now},
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		// Save re-checks uniqueness, so a racing duplicate surfaces here.
		if errors.Is(err, ErrConflict) {
			e.metricInc(MetricRegisterConflict)
			e.emitAudit(ctx, auditEventRegister, false, "", email, err, nil)
		}
		return e.mapStoreErr(err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.metricInc(MetricOtpIssued)
	e.emitAudit(ctx, auditEventRegister, true, saved.ID, email, nil, nil)
	e.notify(ctx, email, "Verify your account", "Your verification code is: "+code)
	return nil
}
