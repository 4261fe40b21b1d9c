package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hexavalt/authcore/internal/otp"
)

// RequestPasswordReset issues a reset code into the account's pending-reset
// slot and mails it. Under the default enumeration-safe configuration an
// unknown email reports success without sending anything.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}

	for attempt := 0; ; attempt++ {
		account, err := e.store.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				e.emitAudit(ctx, auditEventResetRequest, false, "", email, ErrNotFound, map[string]string{"reason": "unknown_email"})
				if e.config.Reset.EnumerationSafe {
					return nil
				}
				return fmt.Errorf("%w: email %q", ErrNotFound, email)
			}
			return e.mapStoreErr(err)
		}

		code, err := otp.Generate(e.config.OTP.Digits)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		account.PendingReset = &PendingCode{Code: code, IssuedAt: e.now()}
		account.UpdatedAt = e.now()
		if _, err := e.store.Save(ctx, account); err != nil {
			if errors.Is(err, ErrVersionConflict) && attempt < saveRetries {
				continue
			}
			return e.mapStoreErr(err)
		}

		e.metricInc(MetricResetRequest)
		e.emitAudit(ctx, auditEventResetRequest, true, account.ID, email, nil, nil)
		e.notify(ctx, email, "Password reset", "Your password reset code is: "+code)
		return nil
	}
}

// ResetPassword consumes a reset code and installs the new password. The
// account is located by the code alone. Unknown, expired, and already-used
// codes all return the same ErrInvalidOrExpiredCode; hash replacement and
// slot clearing happen in a single save so a code can be consumed at most
// once.
func (e *Engine) ResetPassword(ctx context.Context, code, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" || newPassword == "" {
		return fmt.Errorf("%w: code and new password are required", ErrValidation)
	}

	account, err := e.store.FindByPendingResetCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.metricInc(MetricResetFailure)
			e.emitAudit(ctx, auditEventResetConfirm, false, "", "", ErrInvalidOrExpiredCode, nil)
			return ErrInvalidOrExpiredCode
		}
		return e.mapStoreErr(err)
	}

	switch otp.Validate(pendingSlot(account.PendingReset), code, e.config.Reset.TTL, e.now()) {
	case otp.StatusExpired:
		account.PendingReset = nil
		account.UpdatedAt = e.now()
		if _, err := e.store.Save(ctx, account); err != nil && !errors.Is(err, ErrVersionConflict) {
			return e.mapStoreErr(err)
		}
		e.metricInc(MetricResetFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, account.ID, account.Email, ErrInvalidOrExpiredCode, map[string]string{"reason": "expired"})
		return ErrInvalidOrExpiredCode
	case otp.StatusAbsent, otp.StatusMismatch:
		e.metricInc(MetricResetFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, account.ID, account.Email, ErrInvalidOrExpiredCode, nil)
		return ErrInvalidOrExpiredCode
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	account.CredentialHash = hash
	account.PendingReset = nil
	account.UpdatedAt = e.now()
	if _, err := e.store.Save(ctx, account); err != nil {
		// A conflict means a racing writer consumed or superseded the code.
		if errors.Is(err, ErrVersionConflict) {
			e.metricInc(MetricResetFailure)
			e.emitAudit(ctx, auditEventResetConfirm, false, account.ID, account.Email, ErrInvalidOrExpiredCode, map[string]string{"reason": "superseded"})
			return ErrInvalidOrExpiredCode
		}
		return e.mapStoreErr(err)
	}

	e.metricInc(MetricResetSuccess)
	e.emitAudit(ctx, auditEventResetConfirm, true, account.ID, account.Email, nil, nil)
	e.notify(ctx, account.Email, "Password reset successful", "Your password has been reset.")
	return nil
}
