package authcore

import (
	"context"
	"io"

	internalaudit "github.com/hexavalt/authcore/internal/audit"
)

// AuditEvent is a structured record of one engine operation.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards all audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes JSON-encoded events, one per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// Audit event types emitted by the engine.
const (
	auditEventRegister       = "account.register"
	auditEventVerifyConfirm  = "account.verify"
	auditEventOtpResend      = "account.otp_resend"
	auditEventLogin          = "session.login"
	auditEventOtpLogin       = "session.otp_login"
	auditEventRefresh        = "session.refresh"
	auditEventLogout         = "session.logout"
	auditEventResetRequest   = "reset.request"
	auditEventResetConfirm   = "reset.confirm"
	auditEventUsernameUpdate = "account.username_update"
	auditEventDelete         = "account.delete"
	auditEventNotifyFailure  = "notify.failure"
)

func (e *Engine) emitAudit(ctx context.Context, op string, success bool, accountID, email string, opErr error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: e.now(),
		Op:        op,
		AccountID: accountID,
		Email:     email,
		Success:   success,
		Metadata:  metadata,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	e.audit.Emit(ctx, event)
}
