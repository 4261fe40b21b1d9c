package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hexavalt/authcore/internal/limiters"
	"github.com/hexavalt/authcore/internal/otp"
)

// saveRetries bounds the re-read loop on version conflicts. One retry is
// enough: a second conflict means another writer already settled the state
// the flow re-checks on the next pass.
const saveRetries = 2

// VerifyEmail activates an account whose holder presented the pending
// verification code. The identifier is tried as an account ID first, then as
// an email. An expired code is cleared from the account before the error is
// returned, so a stale code can never match later.
func (e *Engine) VerifyEmail(ctx context.Context, identifier, code string) error {
	if err := e.ready(); err != nil {
		return err
	}
	identifier = strings.TrimSpace(identifier)
	code = strings.TrimSpace(code)
	if identifier == "" || code == "" {
		return fmt.Errorf("%w: identifier and code are required", ErrValidation)
	}

	for attempt := 0; ; attempt++ {
		account, err := e.lookupByIDOrEmail(ctx, identifier)
		if err != nil {
			return err
		}
		if account.Verified {
			e.emitAudit(ctx, auditEventVerifyConfirm, false, account.ID, account.Email, ErrAlreadyVerified, nil)
			return ErrAlreadyVerified
		}

		switch otp.Validate(pendingSlot(account.PendingOtp), code, e.config.OTP.TTL, e.now()) {
		case otp.StatusAbsent:
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventVerifyConfirm, false, account.ID, account.Email, ErrNoOtp, nil)
			return ErrNoOtp
		case otp.StatusExpired:
			account.PendingOtp = nil
			account.UpdatedAt = e.now()
			if _, err := e.store.Save(ctx, account); err != nil && !errors.Is(err, ErrVersionConflict) {
				return e.mapStoreErr(err)
			}
			e.metricInc(MetricOtpExpired)
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventVerifyConfirm, false, account.ID, account.Email, ErrOtpExpired, nil)
			return ErrOtpExpired
		case otp.StatusMismatch:
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventVerifyConfirm, false, account.ID, account.Email, ErrOtpInvalid, nil)
			return ErrOtpInvalid
		}

		account.Verified = true
		account.PendingOtp = nil
		account.UpdatedAt = e.now()
		if _, err := e.store.Save(ctx, account); err != nil {
			if errors.Is(err, ErrVersionConflict) && attempt < saveRetries {
				continue
			}
			return e.mapStoreErr(err)
		}

		e.metricInc(MetricVerifySuccess)
		e.emitAudit(ctx, auditEventVerifyConfirm, true, account.ID, account.Email, nil, nil)
		e.notify(ctx, account.Email, "Welcome", "Your account is now active.")
		return nil
	}
}

// ResendOtp issues a fresh verification code to an unverified account,
// unconditionally replacing any outstanding one. Optionally rate limited
// per email when the resend throttle is configured.
func (e *Engine) ResendOtp(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}

	if e.resendLimiter != nil {
		if err := e.resendLimiter.Check(ctx, email); err != nil {
			if errors.Is(err, limiters.ErrResendThrottled) {
				e.metricInc(MetricResendThrottled)
				e.emitAudit(ctx, auditEventOtpResend, false, "", email, ErrResendThrottled, nil)
				return ErrResendThrottled
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	for attempt := 0; ; attempt++ {
		account, err := e.store.FindByEmail(ctx, email)
		if err != nil {
			return e.mapStoreErr(err)
		}
		if account.Verified {
			e.emitAudit(ctx, auditEventOtpResend, false, account.ID, email, ErrAlreadyVerified, nil)
			return ErrAlreadyVerified
		}

		code, err := otp.Generate(e.config.OTP.Digits)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		account.PendingOtp = &PendingCode{Code: code, IssuedAt: e.now()}
		account.UpdatedAt = e.now()
		if _, err := e.store.Save(ctx, account); err != nil {
			if errors.Is(err, ErrVersionConflict) && attempt < saveRetries {
				continue
			}
			return e.mapStoreErr(err)
		}

		e.metricInc(MetricOtpIssued)
		e.metricInc(MetricResendSuccess)
		e.emitAudit(ctx, auditEventOtpResend, true, account.ID, email, nil, nil)
		e.notify(ctx, email, "Verify your account", "Your verification code is: "+code)
		return nil
	}
}

// LoginWithOtp verifies a pending code and, in the same step, activates the
// account and starts a session. Only unverified accounts qualify; an active
// account gets ErrAlreadyActive and must use Login.
func (e *Engine) LoginWithOtp(ctx context.Context, email, code string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, fmt.Errorf("%w: email and code are required", ErrValidation)
	}

	for attempt := 0; ; attempt++ {
		account, err := e.store.FindByEmail(ctx, email)
		if err != nil {
			return nil, e.mapStoreErr(err)
		}
		if account.Verified {
			e.emitAudit(ctx, auditEventOtpLogin, false, account.ID, email, ErrAlreadyActive, nil)
			return nil, ErrAlreadyActive
		}

		switch otp.Validate(pendingSlot(account.PendingOtp), code, e.config.OTP.TTL, e.now()) {
		case otp.StatusAbsent:
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventOtpLogin, false, account.ID, email, ErrNoOtp, nil)
			return nil, ErrNoOtp
		case otp.StatusExpired:
			account.PendingOtp = nil
			account.UpdatedAt = e.now()
			if _, err := e.store.Save(ctx, account); err != nil && !errors.Is(err, ErrVersionConflict) {
				return nil, e.mapStoreErr(err)
			}
			e.metricInc(MetricOtpExpired)
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventOtpLogin, false, account.ID, email, ErrOtpExpired, nil)
			return nil, ErrOtpExpired
		case otp.StatusMismatch:
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventOtpLogin, false, account.ID, email, ErrOtpInvalid, nil)
			return nil, ErrOtpInvalid
		}

		account.Verified = true
		account.PendingOtp = nil
		account.UpdatedAt = e.now()
		if _, err := e.store.Save(ctx, account); err != nil {
			if errors.Is(err, ErrVersionConflict) && attempt < saveRetries {
				continue
			}
			return nil, e.mapStoreErr(err)
		}

		result, err := e.issueSession(account)
		if err != nil {
			return nil, err
		}
		e.metricInc(MetricVerifySuccess)
		e.metricInc(MetricLoginSuccess)
		e.emitAudit(ctx, auditEventOtpLogin, true, account.ID, email, nil, nil)
		e.notify(ctx, email, "Welcome", "Your account is now active.")
		return result, nil
	}
}
