package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hexavalt/authcore"
)

func seedAccount(t *testing.T, s *Store, username, email string) *authcore.Account {
	t.Helper()
	saved, err := s.Save(context.Background(), &authcore.Account{
		Username:       username,
		Email:          email,
		CredentialHash: "$argon2id$stub",
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	})
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	return saved
}

func TestSaveAssignsIDAndVersion(t *testing.T) {
	s := New()
	saved := seedAccount(t, s, "alice", "alice@example.com")

	if saved.ID == "" {
		t.Fatal("expected generated ID")
	}
	if saved.Version != 1 {
		t.Fatalf("Version = %d, want 1", saved.Version)
	}

	byID, err := s.FindByID(context.Background(), saved.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if byID.Username != "alice" {
		t.Fatalf("Username = %q", byID.Username)
	}

	byUsername, err := s.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByUsername error: %v", err)
	}
	byEmail, err := s.FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if byUsername.ID != saved.ID || byEmail.ID != saved.ID {
		t.Fatal("index lookups disagree on ID")
	}
}

func TestFindMissReturnsNotFound(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.FindByID(ctx, "nope"); !errors.Is(err, authcore.ErrNotFound) {
		t.Fatalf("FindByID error = %v", err)
	}
	if _, err := s.FindByUsername(ctx, "nope"); !errors.Is(err, authcore.ErrNotFound) {
		t.Fatalf("FindByUsername error = %v", err)
	}
	if _, err := s.FindByEmail(ctx, "nope@example.com"); !errors.Is(err, authcore.ErrNotFound) {
		t.Fatalf("FindByEmail error = %v", err)
	}
	if err := s.DeleteByID(ctx, "nope"); !errors.Is(err, authcore.ErrNotFound) {
		t.Fatalf("DeleteByID error = %v", err)
	}
}

func TestSaveEnforcesUniqueness(t *testing.T) {
	s := New()
	seedAccount(t, s, "alice", "alice@example.com")

	_, err := s.Save(context.Background(), &authcore.Account{
		Username: "alice",
		Email:    "other@example.com",
	})
	if !errors.Is(err, authcore.ErrConflict) {
		t.Fatalf("duplicate username error = %v, want ErrConflict", err)
	}

	_, err = s.Save(context.Background(), &authcore.Account{
		Username: "bob",
		Email:    "alice@example.com",
	})
	if !errors.Is(err, authcore.ErrConflict) {
		t.Fatalf("duplicate email error = %v, want ErrConflict", err)
	}
}

func TestSaveVersionConflict(t *testing.T) {
	s := New()
	ctx := context.Background()
	saved := seedAccount(t, s, "alice", "alice@example.com")

	first := saved.Clone()
	second := saved.Clone()

	first.Verified = true
	if _, err := s.Save(ctx, first); err != nil {
		t.Fatalf("first update error: %v", err)
	}

	second.Verified = true
	if _, err := s.Save(ctx, second); !errors.Is(err, authcore.ErrVersionConflict) {
		t.Fatalf("stale update error = %v, want ErrVersionConflict", err)
	}

	current, err := s.FindByID(ctx, saved.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if current.Version != 2 {
		t.Fatalf("Version = %d, want 2", current.Version)
	}
}

func TestSaveReindexesOnRename(t *testing.T) {
	s := New()
	ctx := context.Background()
	saved := seedAccount(t, s, "alice", "alice@example.com")

	saved.Username = "alice2"
	if _, err := s.Save(ctx, saved); err != nil {
		t.Fatalf("rename error: %v", err)
	}

	if _, err := s.FindByUsername(ctx, "alice"); !errors.Is(err, authcore.ErrNotFound) {
		t.Fatalf("old username still resolves: %v", err)
	}
	if _, err := s.FindByUsername(ctx, "alice2"); err != nil {
		t.Fatalf("new username lookup error: %v", err)
	}
}

func TestSaveClonesInput(t *testing.T) {
	s := New()
	ctx := context.Background()
	saved := seedAccount(t, s, "alice", "alice@example.com")

	// mutating the returned copy must not affect stored state
	saved.Username = "mutated"
	stored, err := s.FindByID(ctx, saved.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if stored.Username != "alice" {
		t.Fatalf("stored Username = %q, clone leaked", stored.Username)
	}
}

func TestFindByPendingResetCode(t *testing.T) {
	s := New()
	ctx := context.Background()

	alice := seedAccount(t, s, "alice", "alice@example.com")
	bob := seedAccount(t, s, "bob", "bob@example.com")

	base := time.Now()
	alice.PendingReset = &authcore.PendingCode{Code: "4821", IssuedAt: base}
	if _, err := s.Save(ctx, alice); err != nil {
		t.Fatalf("Save alice error: %v", err)
	}

	found, err := s.FindByPendingResetCode(ctx, "4821")
	if err != nil {
		t.Fatalf("FindByPendingResetCode error: %v", err)
	}
	if found.ID != alice.ID {
		t.Fatalf("found %q, want alice", found.ID)
	}

	// same code issued later to bob supersedes alice's
	bob.PendingReset = &authcore.PendingCode{Code: "4821", IssuedAt: base.Add(time.Minute)}
	if _, err := s.Save(ctx, bob); err != nil {
		t.Fatalf("Save bob error: %v", err)
	}
	found, err = s.FindByPendingResetCode(ctx, "4821")
	if err != nil {
		t.Fatalf("FindByPendingResetCode error: %v", err)
	}
	if found.ID != bob.ID {
		t.Fatalf("found %q, want bob (newest issue wins)", found.ID)
	}

	if _, err := s.FindByPendingResetCode(ctx, "0000"); !errors.Is(err, authcore.ErrNotFound) {
		t.Fatalf("unknown code error = %v, want ErrNotFound", err)
	}
}

func TestDeleteByID(t *testing.T) {
	s := New()
	ctx := context.Background()
	saved := seedAccount(t, s, "alice", "alice@example.com")

	if err := s.DeleteByID(ctx, saved.ID); err != nil {
		t.Fatalf("DeleteByID error: %v", err)
	}
	if _, err := s.FindByID(ctx, saved.ID); !errors.Is(err, authcore.ErrNotFound) {
		t.Fatalf("deleted account still resolves: %v", err)
	}
	if _, err := s.FindByEmail(ctx, "alice@example.com"); !errors.Is(err, authcore.ErrNotFound) {
		t.Fatal("email index not cleaned up")
	}

	// the freed identifiers are reusable
	if _, err := s.Save(ctx, &authcore.Account{Username: "alice", Email: "alice@example.com"}); err != nil {
		t.Fatalf("re-registration after delete error: %v", err)
	}
}

func TestFindAll(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "alice", "alice@example.com")
	seedAccount(t, s, "bob", "bob@example.com")

	all, err := s.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
}
