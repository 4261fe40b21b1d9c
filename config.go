package authcore

import (
	"errors"
	"time"
)

// Config groups all engine tunables. Zero values are filled from
// [DefaultConfig] during Build; only JWT.Secret has no usable default.
type Config struct {
	JWT      JWTConfig
	OTP      OTPConfig
	Reset    ResetConfig
	Login    LoginConfig
	Resend   ResendConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// JWTConfig controls session token issuance. Tokens are HS256-signed with
// Secret; the same key verifies.
type JWTConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

// OTPConfig controls verification codes issued into the PendingOtp slot.
type OTPConfig struct {
	Digits int
	TTL    time.Duration
}

// ResetConfig controls password-reset codes issued into the PendingReset
// slot. When EnumerationSafe is set, RequestPasswordReset reports success
// for unknown emails instead of ErrNotFound.
type ResetConfig struct {
	TTL             time.Duration
	EnumerationSafe bool
}

// UnverifiedLoginPolicy selects how Login treats an unverified account that
// presented correct credentials.
type UnverifiedLoginPolicy int

const (
	// UnverifiedLoginIssueOtp returns ErrVerificationRequired and
	// opportunistically issues a fresh code when none is outstanding.
	UnverifiedLoginIssueOtp UnverifiedLoginPolicy = iota
	// UnverifiedLoginReject returns ErrVerificationRequired without issuing
	// a code; the client must go through ResendOtp.
	UnverifiedLoginReject
)

// LoginConfig controls the login flow.
type LoginConfig struct {
	UnverifiedPolicy UnverifiedLoginPolicy
}

// ResendConfig controls the optional fixed-window guard on ResendOtp.
// Disabled by default, so resends are not debounced unless the guard is
// turned on. The guard requires a Redis client on the builder.
type ResendConfig struct {
	ThrottleEnabled bool
	Window          time.Duration
	MaxPerWindow    int
}

// PasswordConfig holds the argon2id parameters used when the builder
// constructs the default hasher. Ignored when a custom [CredentialHasher]
// is supplied.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the stock configuration: 4-digit codes with a
// 10 minute window for both slots, 24h access tokens, 7d refresh tokens,
// enumeration-safe reset requests, and the OTP-issuing unverified-login
// policy.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  24 * time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "authcore",
			Leeway:     30 * time.Second,
		},
		OTP: OTPConfig{
			Digits: 4,
			TTL:    10 * time.Minute,
		},
		Reset: ResetConfig{
			TTL:             10 * time.Minute,
			EnumerationSafe: true,
		},
		Login: LoginConfig{
			UnverifiedPolicy: UnverifiedLoginIssueOtp,
		},
		Resend: ResendConfig{
			ThrottleEnabled: false,
			Window:          10 * time.Minute,
			MaxPerWindow:    3,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if len(cfg.JWT.Secret) < 32 {
		return errors.New("jwt secret must be at least 32 bytes")
	}
	if cfg.JWT.AccessTTL <= 0 || cfg.JWT.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if cfg.JWT.RefreshTTL <= cfg.JWT.AccessTTL {
		return errors.New("refresh TTL must exceed access TTL")
	}
	if cfg.OTP.Digits < 4 || cfg.OTP.Digits > 10 {
		return errors.New("otp digits must be between 4 and 10")
	}
	if cfg.OTP.TTL <= 0 || cfg.Reset.TTL <= 0 {
		return errors.New("code validity windows must be positive")
	}
	if cfg.Resend.ThrottleEnabled {
		if cfg.Resend.Window <= 0 || cfg.Resend.MaxPerWindow <= 0 {
			return errors.New("resend throttle requires a positive window and limit")
		}
	}
	return nil
}

func normalizeConfig(cfg Config) Config {
	def := DefaultConfig()
	if cfg.JWT.AccessTTL == 0 {
		cfg.JWT.AccessTTL = def.JWT.AccessTTL
	}
	if cfg.JWT.RefreshTTL == 0 {
		cfg.JWT.RefreshTTL = def.JWT.RefreshTTL
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = def.JWT.Issuer
	}
	if cfg.OTP.Digits == 0 {
		cfg.OTP.Digits = def.OTP.Digits
	}
	if cfg.OTP.TTL == 0 {
		cfg.OTP.TTL = def.OTP.TTL
	}
	if cfg.Reset.TTL == 0 {
		cfg.Reset.TTL = def.Reset.TTL
	}
	if cfg.Password.Memory == 0 {
		cfg.Password = def.Password
	}
	if cfg.Audit.Enabled && cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = def.Audit.BufferSize
	}
	return cfg
}
