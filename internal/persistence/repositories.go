package persistence

import "context"

// UserRepository exposes CRUD operations for directory entries.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
	MissingUserIDs(ctx context.Context, ids []string) ([]string, error)
}

// EventRepository stores event aggregates with their members and periods.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	// UpdateEvent replaces the aggregate only when the stored version still
	// equals expectedVersion, and returns ErrConflict otherwise.
	UpdateEvent(ctx context.Context, event Event, expectedVersion int64) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	ListEventsForUser(ctx context.Context, userID string) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ConfirmationCodeExists(ctx context.Context, code string) (bool, error)
}
