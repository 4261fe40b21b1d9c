package authcore

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterConflict
	MetricOtpIssued
	MetricOtpExpired
	MetricVerifySuccess
	MetricVerifyFailure
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginVerificationRequired
	MetricResendSuccess
	MetricResendThrottled
	MetricResetRequest
	MetricResetSuccess
	MetricResetFailure
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricLogout
	MetricTokenRevokedRejected
	MetricUsernameUpdated
	MetricAccountDeleted
	MetricNotifyFailure

	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricRegisterSuccess:           "register_success",
	MetricRegisterConflict:          "register_conflict",
	MetricOtpIssued:                 "otp_issued",
	MetricOtpExpired:                "otp_expired",
	MetricVerifySuccess:             "verify_success",
	MetricVerifyFailure:             "verify_failure",
	MetricLoginSuccess:              "login_success",
	MetricLoginFailure:              "login_failure",
	MetricLoginVerificationRequired: "login_verification_required",
	MetricResendSuccess:             "resend_success",
	MetricResendThrottled:           "resend_throttled",
	MetricResetRequest:              "reset_request",
	MetricResetSuccess:              "reset_success",
	MetricResetFailure:              "reset_failure",
	MetricRefreshSuccess:            "refresh_success",
	MetricRefreshFailure:            "refresh_failure",
	MetricLogout:                    "logout",
	MetricTokenRevokedRejected:      "token_revoked_rejected",
	MetricUsernameUpdated:           "username_updated",
	MetricAccountDeleted:            "account_deleted",
	MetricNotifyFailure:             "notify_failure",
}

// Name returns the snake_case export name for a counter.
func (id MetricID) Name() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// Metrics holds the engine's atomic counters. All operations are no-ops on
// a disabled or nil instance.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// NewMetrics creates a counter set; a disabled set costs nothing on the
// write path beyond the enabled check.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// MetricsSnapshot is a point-in-time copy of every counter, keyed by
// export name.
type MetricsSnapshot map[string]uint64

// Snapshot copies all counters. Returns an empty snapshot when disabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := make(MetricsSnapshot, metricIDCount)
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap[metricNames[id]] = m.counters[id].Load()
	}
	return snap
}
