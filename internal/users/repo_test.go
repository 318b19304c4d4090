package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/pkg/db"
	"github.com/medok/medok-backend/pkg/db/dbtest"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateIdentityDTO{Email: "  Nurse@Example.com ", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("expected id to be assigned")
	}
	if created.Email != "nurse@example.com" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}

	byEmail, err := repo.FindByEmail(ctx, "NURSE@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("expected %s got %s", created.ID, byEmail.ID)
	}

	byID, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.PasswordHash != "hash" {
		t.Fatalf("unexpected hash %q", byID.PasswordHash)
	}
}

func TestRepositoryCreateDuplicateEmail(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	if _, err := repo.Create(ctx, CreateIdentityDTO{Email: "dup@example.com", PasswordHash: "a"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := repo.Create(ctx, CreateIdentityDTO{Email: "DUP@example.com", PasswordHash: "b"})
	if !db.IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestRepositoryUpdates(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateIdentityDTO{Email: "doc@example.com", PasswordHash: "old"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	if err := repo.UpdateLastLogin(ctx, created.ID, at); err != nil {
		t.Fatalf("update last login: %v", err)
	}
	if err := repo.UpdatePasswordHash(ctx, created.ID, "new"); err != nil {
		t.Fatalf("update password: %v", err)
	}

	reloaded, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PasswordHash != "new" {
		t.Fatalf("expected password hash update, got %q", reloaded.PasswordHash)
	}
	if reloaded.LastLoginAt == nil || !reloaded.LastLoginAt.Equal(at) {
		t.Fatalf("expected last login %v, got %v", at, reloaded.LastLoginAt)
	}

	if err := repo.UpdatePasswordHash(ctx, uuid.New(), "x"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found for unknown identity, got %v", err)
	}
}
