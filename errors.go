package authcore

import "errors"

// Sentinel errors returned by Engine operations. The embedding transport
// layer maps these to status codes with errors.Is; anything not listed here
// wraps one of these kinds.
var (
	// ErrValidation reports malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict reports a username or email uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrNotFound reports that no account matches the given key.
	ErrNotFound = errors.New("account not found")
	// ErrInvalidCredentials is returned for both an unknown email and a wrong
	// password so that login failures never reveal account existence.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrVerificationRequired is the distinguished login outcome for an
	// unverified account that presented correct credentials.
	ErrVerificationRequired = errors.New("email verification required")
	// ErrNoOtp reports that no verification code is outstanding.
	ErrNoOtp = errors.New("no verification code issued")
	// ErrOtpExpired reports that the outstanding verification code aged past
	// its validity window. The slot is cleared as a side effect.
	ErrOtpExpired = errors.New("verification code expired")
	// ErrOtpInvalid reports a present, unexpired, but mismatched code.
	ErrOtpInvalid = errors.New("invalid verification code")
	// ErrInvalidOrExpiredCode is the single reset-flow failure; it does not
	// distinguish unknown from expired codes.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired reset code")
	// ErrAlreadyVerified guards repeat verification attempts.
	ErrAlreadyVerified = errors.New("account already verified")
	// ErrAlreadyActive guards OTP login against verified accounts.
	ErrAlreadyActive = errors.New("account already active")
	// ErrUnauthorized reports a missing, malformed, or expired session token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenRevoked reports a well-formed token that was logged out.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrResendThrottled reports that the optional resend guard rejected the
	// request.
	ErrResendThrottled = errors.New("resend throttled")
	// ErrVersionConflict is returned by UserStore.Save when the account was
	// mutated since it was read. Engine operations retry or translate it.
	ErrVersionConflict = errors.New("account version conflict")
	// ErrUnavailable reports a store or infrastructure failure, distinct from
	// domain errors so transports can apply retry policy.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrEngineNotReady is returned when an Engine is used before Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)
