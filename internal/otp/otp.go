// Package otp generates and validates short numeric one-time codes with a
// fixed validity window. It is pure: issuance bookkeeping (writing the code
// into an account slot and persisting it) belongs to the caller.
package otp

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"
)

// Status is the outcome of validating a supplied code against a slot.
type Status int

const (
	// StatusOk means the slot holds an unexpired code equal to the supplied
	// one. Clearing the slot is the caller's responsibility: some flows
	// re-validate before committing a larger mutation.
	StatusOk Status = iota
	// StatusAbsent means the slot is empty.
	StatusAbsent
	// StatusExpired means the code aged past the window. Callers must clear
	// the slot when they observe this.
	StatusExpired
	// StatusMismatch means the code is present and unexpired but unequal.
	StatusMismatch
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusAbsent:
		return "absent"
	case StatusExpired:
		return "expired"
	case StatusMismatch:
		return "mismatch"
	}
	return "unknown"
}

// Pending mirrors an account's pending-code slot.
type Pending struct {
	Code     string
	IssuedAt time.Time
}

// Generate draws a numeric code of the given width from crypto/rand,
// uniform over [10^(digits-1), 10^digits). The leading digit is never zero,
// so four digits means the 1000-9999 keyspace.
func Generate(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	low := big.NewInt(1)
	for i := 1; i < digits; i++ {
		low.Mul(low, big.NewInt(10))
	}
	span := new(big.Int).Mul(low, big.NewInt(9))

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return n.Add(n, low).String(), nil
}

// Validate checks a supplied code against a slot at the given instant.
// Comparison is exact string equality after trimming surrounding
// whitespace from the supplied code.
func Validate(slot *Pending, supplied string, window time.Duration, now time.Time) Status {
	if slot == nil || slot.Code == "" {
		return StatusAbsent
	}
	if now.After(slot.IssuedAt.Add(window)) {
		return StatusExpired
	}
	if strings.TrimSpace(supplied) != slot.Code {
		return StatusMismatch
	}
	return StatusOk
}
