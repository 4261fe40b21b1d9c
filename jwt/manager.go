// Package jwt mints and parses the engine's HS256-signed session tokens.
// Access and refresh tokens share one claims shape and are distinguished by
// the typ claim so one can never be substituted for the other.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType tags a token's signing context.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

var (
	// ErrInvalid covers malformed tokens, bad signatures, wrong algorithms,
	// and type confusion.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired reports a well-formed token past its expiry.
	ErrExpired = errors.New("token expired")
)

// Config holds the signing parameters. The same symmetric Secret signs and
// verifies.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

// Claims is the signed identity bundle. Subject carries the account ID and
// ID (jti) the revocation key.
type Claims struct {
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Manager is an immutable token factory and parser.
type Manager struct {
	config Config
	now    func() time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hs256 requires a secret")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg, now: time.Now}, nil
}

// CreateAccess signs an access token for the given identity and returns it
// with its expiry.
func (m *Manager) CreateAccess(accountID, email, username string) (string, time.Time, error) {
	return m.create(accountID, email, username, TypeAccess, m.config.AccessTTL)
}

// CreateRefresh signs a refresh token; same contract as CreateAccess with
// the longer TTL.
func (m *Manager) CreateRefresh(accountID, email, username string) (string, time.Time, error) {
	return m.create(accountID, email, username, TypeRefresh, m.config.RefreshTTL)
}

func (m *Manager) create(accountID, email, username string, typ TokenType, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		Email:     email,
		Username:  username,
		TokenType: string(typ),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ID:        uuid.NewString(),
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies signature before inspecting claims, then expiry, then the
// token type. It returns ErrExpired for aged tokens and ErrInvalid for
// everything else that fails.
func (m *Manager) Parse(tokenStr string, want TokenType) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	if claims.TokenType != string(want) {
		return nil, ErrInvalid
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

// RemainingTTL reports how long a parsed token stays valid; zero when
// already past expiry. Used to bound revocation-set entries.
func (m *Manager) RemainingTTL(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Time.Sub(m.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
