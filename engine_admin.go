package authcore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// GetAccount returns the public projection of one account.
func (e *Engine) GetAccount(ctx context.Context, id string) (*AccountSummary, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	account, err := e.store.FindByID(ctx, id)
	if err != nil {
		return nil, e.mapStoreErr(err)
	}
	return &AccountSummary{ID: account.ID, Username: account.Username, Email: account.Email}, nil
}

// ListAccounts returns public projections of every account, ordered by
// creation time.
func (e *Engine) ListAccounts(ctx context.Context) ([]AccountSummary, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	accounts, err := e.store.FindAll(ctx)
	if err != nil {
		return nil, e.mapStoreErr(err)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	out := make([]AccountSummary, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, AccountSummary{ID: account.ID, Username: account.Username, Email: account.Email})
	}
	return out, nil
}

// UpdateUsername renames the account identified by the access token. The
// new username must be free; renaming to the current username is a no-op.
func (e *Engine) UpdateUsername(ctx context.Context, token, newUsername string) error {
	if err := e.ready(); err != nil {
		return err
	}
	newUsername = strings.TrimSpace(newUsername)
	if newUsername == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}

	identity, err := e.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		account, err := e.store.FindByID(ctx, identity.AccountID)
		if err != nil {
			return e.mapStoreErr(err)
		}
		if account.Username == newUsername {
			return nil
		}
		if existing, err := e.store.FindByUsername(ctx, newUsername); err == nil && existing.ID != account.ID {
			return fmt.Errorf("%w: username already exists", ErrConflict)
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return e.mapStoreErr(err)
		}

		previous := account.Username
		account.Username = newUsername
		account.UpdatedAt = e.now()
		if _, err := e.store.Save(ctx, account); err != nil {
			if errors.Is(err, ErrVersionConflict) && attempt < saveRetries {
				continue
			}
			return e.mapStoreErr(err)
		}

		e.metricInc(MetricUsernameUpdated)
		e.emitAudit(ctx, auditEventUsernameUpdate, true, account.ID, account.Email, nil, map[string]string{"previous": previous})
		return nil
	}
}

// DeleteAccount removes an account permanently. Issued tokens stay
// cryptographically valid until expiry, but Refresh fails once the account
// is gone.
func (e *Engine) DeleteAccount(ctx context.Context, id string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}
	if err := e.store.DeleteByID(ctx, id); err != nil {
		return e.mapStoreErr(err)
	}
	e.metricInc(MetricAccountDeleted)
	e.emitAudit(ctx, auditEventDelete, true, id, "", nil, nil)
	return nil
}
