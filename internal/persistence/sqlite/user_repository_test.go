package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/event-coordinator/internal/persistence"
)

func testUser(id, email string) persistence.User {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return persistence.User{
		ID:          id,
		Email:       email,
		DisplayName: "Test User",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestUserRepository_CRUD(t *testing.T) {
	t.Parallel()

	storage := openTestStorage(t)
	repo := NewUserRepository(storage.Pool())
	ctx := context.Background()

	user := testUser("user-1", "Alice@Example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	loaded, err := repo.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if loaded.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", loaded.Email)
	}

	byEmail, err := repo.GetUserByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != "user-1" {
		t.Fatalf("unexpected user: %+v", byEmail)
	}

	loaded.DisplayName = "Alice"
	loaded.UpdatedAt = loaded.UpdatedAt.Add(time.Minute)
	if err := repo.UpdateUser(ctx, loaded); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	again, err := repo.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser after update: %v", err)
	}
	if again.DisplayName != "Alice" {
		t.Fatalf("update not applied: %+v", again)
	}

	if err := repo.DeleteUser(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := repo.GetUser(ctx, "user-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	t.Parallel()

	storage := openTestStorage(t)
	repo := NewUserRepository(storage.Pool())
	ctx := context.Background()

	if err := repo.CreateUser(ctx, testUser("user-1", "alice@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := repo.CreateUser(ctx, testUser("user-2", "Alice@example.com")); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserRepository_MissingUserIDs(t *testing.T) {
	t.Parallel()

	storage := openTestStorage(t)
	repo := NewUserRepository(storage.Pool())
	ctx := context.Background()

	if err := repo.CreateUser(ctx, testUser("user-1", "alice@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	missing, err := repo.MissingUserIDs(ctx, []string{"user-1", "user-2", "user-3"})
	if err != nil {
		t.Fatalf("MissingUserIDs: %v", err)
	}
	if len(missing) != 2 || missing[0] != "user-2" || missing[1] != "user-3" {
		t.Fatalf("unexpected missing set: %v", missing)
	}

	missing, err = repo.MissingUserIDs(ctx, nil)
	if err != nil {
		t.Fatalf("MissingUserIDs(nil): %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for empty input, got %v", missing)
	}
}

func TestUserRepository_DeleteAnchoredUser(t *testing.T) {
	t.Parallel()

	storage := openTestStorage(t)
	users := NewUserRepository(storage.Pool())
	events := NewEventRepository(storage.Pool())
	ctx := context.Background()

	if err := users.CreateUser(ctx, testUser("user-creator", "creator@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := users.CreateUser(ctx, testUser("user-guest", "guest@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := events.CreateEvent(ctx, testEvent("event-1")); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	// The first member of an event cannot be deleted.
	if err := users.DeleteUser(ctx, "user-creator"); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}

	// Other members are cleaned out of the member table.
	if err := users.DeleteUser(ctx, "user-guest"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	loaded, err := events.GetEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if len(loaded.Members) != 1 || loaded.Members[0].UserID != "user-creator" {
		t.Fatalf("expected guest membership removed, got %+v", loaded.Members)
	}
}
