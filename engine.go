package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	internalaudit "github.com/hexavalt/authcore/internal/audit"
	"github.com/hexavalt/authcore/internal/limiters"
	"github.com/hexavalt/authcore/internal/otp"
	"github.com/hexavalt/authcore/jwt"
)

// Engine orchestrates the account lifecycle. Construct it through
// [Builder.Build]; methods are safe for concurrent use afterwards.
type Engine struct {
	config        Config
	store         UserStore
	hasher        CredentialHasher
	notifier      Notifier
	tokens        *jwt.Manager
	revoked       RevocationSet
	resendLimiter *limiters.ResendLimiter
	audit         *internalaudit.Dispatcher
	metrics       *Metrics
	now           func() time.Time
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were discarded under buffer
// pressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.hasher == nil || e.tokens == nil || e.revoked == nil {
		return ErrEngineNotReady
	}
	return nil
}

// notify delivers best-effort: a failure is counted and audited, never
// returned.
func (e *Engine) notify(ctx context.Context, address, subject, body string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(ctx, address, subject, body); err != nil {
		e.metricInc(MetricNotifyFailure)
		e.emitAudit(ctx, auditEventNotifyFailure, false, "", address, err, map[string]string{"subject": subject})
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// mapStoreErr passes domain sentinels and context cancellation through and
// folds everything else into ErrUnavailable.
func (e *Engine) mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrVersionConflict),
		errors.Is(err, ErrValidation),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// lookupByIDOrEmail resolves the dual-mode identifier used by the
// verification flows: tried as an account ID first, then as an email.
func (e *Engine) lookupByIDOrEmail(ctx context.Context, identifier string) (*Account, error) {
	account, err := e.store.FindByID(ctx, identifier)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, e.mapStoreErr(err)
	}
	account, err = e.store.FindByEmail(ctx, normalizeEmail(identifier))
	if err != nil {
		return nil, e.mapStoreErr(err)
	}
	return account, nil
}

func pendingSlot(p *PendingCode) *otp.Pending {
	if p == nil {
		return nil
	}
	return &otp.Pending{Code: p.Code, IssuedAt: p.IssuedAt}
}

func (e *Engine) otpExpired(p *PendingCode) bool {
	return p == nil || e.now().After(p.IssuedAt.Add(e.config.OTP.TTL))
}
