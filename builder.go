package authcore

import (
	"errors"
	"time"

	internalaudit "github.com/hexavalt/authcore/internal/audit"
	"github.com/hexavalt/authcore/internal/limiters"
	"github.com/hexavalt/authcore/jwt"
	"github.com/hexavalt/authcore/password"
	"github.com/redis/go-redis/v9"
)

// Builder wires an [Engine]. A [UserStore] and a JWT secret are mandatory;
// everything else has a default: argon2id hashing, a no-op notifier, an
// in-process revocation set, and [DefaultConfig] values.
type Builder struct {
	config    Config
	store     UserStore
	hasher    CredentialHasher
	notifier  Notifier
	revoked   RevocationSet
	redis     redis.UniversalClient
	auditSink AuditSink
	built     bool
}

func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

func (b *Builder) WithStore(store UserStore) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithHasher(hasher CredentialHasher) *Builder {
	b.hasher = hasher
	return b
}

func (b *Builder) WithNotifier(notifier Notifier) *Builder {
	b.notifier = notifier
	return b
}

func (b *Builder) WithRevocationSet(set RevocationSet) *Builder {
	b.revoked = set
	return b
}

// WithRedis supplies the client backing the optional resend throttle and,
// unless WithRevocationSet overrides it, a shared revocation set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration, fills defaults, and returns a ready
// engine. A builder can only be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	cfg := normalizeConfig(b.config)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("user store is required")
	}

	hasher := b.hasher
	if hasher == nil {
		var err error
		hasher, err = password.NewHasher(password.Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		})
		if err != nil {
			return nil, err
		}
	}

	notifier := b.notifier
	if notifier == nil {
		notifier = NoOpNotifier{}
	}

	revoked := b.revoked
	if revoked == nil {
		if b.redis != nil {
			revoked = NewRedisRevocationSet(b.redis, "")
		} else {
			revoked = NewMemoryRevocationSet()
		}
	}

	tokens, err := jwt.NewManager(jwt.Config{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Issuer:     cfg.JWT.Issuer,
		Leeway:     cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	var resendLimiter *limiters.ResendLimiter
	if cfg.Resend.ThrottleEnabled {
		if b.redis == nil {
			return nil, errors.New("resend throttle requires a redis client")
		}
		resendLimiter = limiters.NewResendLimiter(b.redis, limiters.ResendConfig{
			Window:       cfg.Resend.Window,
			MaxPerWindow: cfg.Resend.MaxPerWindow,
		})
	}

	return &Engine{
		config:        cfg,
		store:         b.store,
		hasher:        hasher,
		notifier:      notifier,
		tokens:        tokens,
		revoked:       revoked,
		resendLimiter: resendLimiter,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		now:     time.Now,
	}, nil
}
