package authcore

import (
	"context"
	"time"
)

// PendingCode is an outstanding one-time code bound to an account slot.
// Expiry is derived from IssuedAt plus the configured window; an expired
// code is treated as absent even while still stored.
type PendingCode struct {
	Code     string
	IssuedAt time.Time
}

// Account is the sole persisted entity. CredentialHash is opaque output of
// the configured [CredentialHasher] and is never logged or projected.
//
// PendingOtp holds an email-verification or login-verification code;
// PendingReset holds a password-reset code. The two slots have independent
// lifecycles: either, both, or neither may be set.
//
// Version is an optimistic-concurrency counter owned by the [UserStore]:
// zero on first save, bumped on every successful Save, checked so that
// racing mutations on the same account resolve with a single winner.
type Account struct {
	ID             string
	Username       string
	Email          string
	CredentialHash string
	Verified       bool
	PendingOtp     *PendingCode
	PendingReset   *PendingCode
	Version        uint64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a deep copy. Stores return clones so callers can never
// mutate persisted state outside Save.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	if a.PendingOtp != nil {
		c := *a.PendingOtp
		out.PendingOtp = &c
	}
	if a.PendingReset != nil {
		c := *a.PendingReset
		out.PendingReset = &c
	}
	return &out
}

// AccountSummary is the administrative projection of an account: never the
// hash, never pending codes.
type AccountSummary struct {
	ID       string
	Username string
	Email    string
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// LoginResult is returned by [Engine.Login], [Engine.LoginWithOtp], and
// [Engine.Refresh] on success.
type LoginResult struct {
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
	AccountID    string
	Email        string
	Username     string
}

// Identity is the claims projection returned by [Engine.Authenticate].
type Identity struct {
	AccountID string
	Email     string
	Username  string
	ExpiresAt time.Time
}

// UserStore is the durable keyed storage contract consumed by the engine.
//
// Save is an upsert: it assigns an ID on first insert, enforces username and
// email uniqueness (returning a [ErrConflict] wrap), and enforces optimistic
// versioning (returning [ErrVersionConflict] when the stored Version differs
// from the incoming one). Save returns the stored copy with its bumped
// Version. Lookups return [ErrNotFound] wraps on miss; infrastructure
// failures wrap [ErrUnavailable].
type UserStore interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByPendingResetCode(ctx context.Context, code string) (*Account, error)
	Save(ctx context.Context, account *Account) (*Account, error)
	DeleteByID(ctx context.Context, id string) error
	FindAll(ctx context.Context) ([]*Account, error)
}

// CredentialHasher is the one-way password hashing capability. The password
// package provides the default argon2id implementation.
type CredentialHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) (bool, error)
}

// Notifier delivers a message to an address, best-effort. Implementations
// must swallow their own transient failures or return an error that the
// engine will audit and drop; delivery failures never fail the triggering
// operation.
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}

// RevocationSet tracks identifiers of logged-out tokens. The in-process
// [MemoryRevocationSet] suits a single instance; [RedisRevocationSet]
// externalizes the set for multi-instance deployments.
type RevocationSet interface {
	Add(ctx context.Context, tokenID string, ttl time.Duration) error
	Contains(ctx context.Context, tokenID string) (bool, error)
}
