// Package memstore is the reference in-memory implementation of
// authcore.UserStore: a mutex-guarded map with username/email indexes and
// optimistic versioning. It is suitable for tests and single-process
// deployments; durable deployments supply their own store.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hexavalt/authcore"
)

// Store implements authcore.UserStore. The zero value is not usable; call
// New.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]*authcore.Account
	byUsername map[string]string // username -> id
	byEmail    map[string]string // email -> id
}

func New() *Store {
	return &Store{
		byID:       make(map[string]*authcore.Account),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (s *Store) FindByID(_ context.Context, id string) (*authcore.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", authcore.ErrNotFound, id)
	}
	return account.Clone(), nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (*authcore.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[username]
	if !ok {
		return nil, fmt.Errorf("%w: username %q", authcore.ErrNotFound, username)
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (*authcore.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("%w: email %q", authcore.ErrNotFound, email)
	}
	return s.byID[id].Clone(), nil
}

// FindByPendingResetCode scans for accounts holding the code in their
// pending-reset slot. With a short numeric keyspace two accounts can hold
// the same code; the most recently issued one wins, matching the intent
// that issuing a code supersedes older ones.
func (s *Store) FindByPendingResetCode(_ context.Context, code string) (*authcore.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var match *authcore.Account
	var issuedAt time.Time
	for _, account := range s.byID {
		if account.PendingReset == nil || account.PendingReset.Code != code {
			continue
		}
		if match == nil || account.PendingReset.IssuedAt.After(issuedAt) {
			match = account
			issuedAt = account.PendingReset.IssuedAt
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: no account with pending reset code", authcore.ErrNotFound)
	}
	return match.Clone(), nil
}

// Save upserts under uniqueness and version checks. A new account (empty
// ID) must carry Version zero and receives a fresh UUID; an update must
// carry the Version it was read at or Save fails with ErrVersionConflict.
func (s *Store) Save(_ context.Context, account *authcore.Account) (*authcore.Account, error) {
	if account == nil {
		return nil, fmt.Errorf("%w: nil account", authcore.ErrValidation)
	}
	if account.Username == "" || account.Email == "" {
		return nil, fmt.Errorf("%w: username and email are required", authcore.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	incoming := account.Clone()

	if id, ok := s.byUsername[incoming.Username]; ok && id != incoming.ID {
		return nil, fmt.Errorf("%w: username %q already exists", authcore.ErrConflict, incoming.Username)
	}
	if id, ok := s.byEmail[incoming.Email]; ok && id != incoming.ID {
		return nil, fmt.Errorf("%w: email %q already exists", authcore.ErrConflict, incoming.Email)
	}

	if incoming.ID == "" {
		if incoming.Version != 0 {
			return nil, fmt.Errorf("%w: new account with nonzero version", authcore.ErrVersionConflict)
		}
		incoming.ID = uuid.NewString()
	} else {
		stored, ok := s.byID[incoming.ID]
		if !ok {
			return nil, fmt.Errorf("%w: id %q", authcore.ErrNotFound, incoming.ID)
		}
		if stored.Version != incoming.Version {
			return nil, fmt.Errorf("%w: stored %d, incoming %d", authcore.ErrVersionConflict, stored.Version, incoming.Version)
		}
		// reindex on username/email change
		delete(s.byUsername, stored.Username)
		delete(s.byEmail, stored.Email)
	}

	incoming.Version++
	s.byID[incoming.ID] = incoming
	s.byUsername[incoming.Username] = incoming.ID
	s.byEmail[incoming.Email] = incoming.ID

	return incoming.Clone(), nil
}

func (s *Store) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: id %q", authcore.ErrNotFound, id)
	}
	delete(s.byUsername, account.Username)
	delete(s.byEmail, account.Email)
	delete(s.byID, id)
	return nil
}

func (s *Store) FindAll(_ context.Context) ([]*authcore.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*authcore.Account, 0, len(s.byID))
	for _, account := range s.byID {
		out = append(out, account.Clone())
	}
	return out, nil
}
