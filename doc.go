// Package authcore implements the credential lifecycle behind a conventional
// username/email-password backend: registration with OTP-gated email
// verification, login, password reset, JWT session issuance, and basic
// account administration.
//
// The package is the public surface. It exposes [Engine], [Builder], [Config],
// the [Account] data model, and the collaborator interfaces ([UserStore],
// [CredentialHasher], [Notifier], [RevocationSet]). One-time code handling,
// audit dispatch, and resend throttling live under internal/ and are never
// exported directly.
//
// # Architecture boundaries
//
//   - HTTP routing, request DTOs, and status-code mapping are the embedding
//     application's concern. Engine operations are plain methods with typed
//     inputs and sentinel-error outputs.
//   - Persistence mechanics are behind [UserStore]. The memstore package
//     provides a reference in-memory implementation; production deployments
//     supply their own.
//   - Email delivery is behind [Notifier] and is always best-effort: a
//     delivery failure is audited, never surfaced to the caller.
//
// # Concurrency
//
// Engine methods are safe for concurrent use after [Builder.Build]. Account
// mutations are applied as a single optimistic read-modify-write against the
// store; racing mutations on the same account resolve with one winner and
// the loser observing the idempotency error ([ErrAlreadyVerified] and
// friends).
package authcore
