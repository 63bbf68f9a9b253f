package application

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/example/event-coordinator/internal/persistence"
)

// UserRepository captures the persistence operations needed by the directory service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]User, error)
	MissingUserIDs(ctx context.Context, ids []string) ([]string, error)
}

// MembershipCleaner removes a deleted user from every event member list. The
// event service satisfies this; the indirection keeps the two services from
// referencing each other directly.
type MembershipCleaner interface {
	RemoveUserFromEvents(ctx context.Context, userID string) error
}

// UserService maintains the identity directory that event memberships
// reference.
type UserService struct {
	users       UserRepository
	memberships MembershipCleaner
	idGenerator func() string
	now         func() time.Time
}

// NewUserService wires dependencies for the directory service.
func NewUserService(users UserRepository, memberships MembershipCleaner, idGenerator func() string, now func() time.Time) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, memberships: memberships, idGenerator: idGenerator, now: now}
}

// CreateUser validates input and persists a new directory entry.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if params.Principal.IsAnonymous() {
		return User{}, ErrUnauthenticated
	}

	normalized := normalizeUserInput(params.Input)
	vErr := validateUserInput(normalized)
	if vErr.HasErrors() {
		return User{}, vErr
	}

	user := User{
		ID:          s.idGenerator(),
		Email:       normalized.Email,
		DisplayName: normalized.DisplayName,
		CreatedAt:   s.now(),
	}
	user.UpdatedAt = user.CreatedAt

	if s.users == nil {
		return user, nil
	}

	persisted, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}

	return persisted, nil
}

// GetUser returns a single directory entry.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if principal.IsAnonymous() {
		return User{}, ErrUnauthenticated
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}

	return user, nil
}

// UpdateUser validates input and updates an existing directory entry. Users
// may only update their own entry.
func (s *UserService) UpdateUser(ctx context.Context, principal Principal, userID string, input UserInput) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if principal.IsAnonymous() {
		return User{}, ErrUnauthenticated
	}
	if principal.UserID != userID {
		return User{}, ErrForbidden
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	existing, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}

	normalized := normalizeUserInput(input)
	vErr := validateUserInput(normalized)
	if vErr.HasErrors() {
		return User{}, vErr
	}

	updated := existing
	updated.Email = normalized.Email
	updated.DisplayName = normalized.DisplayName
	updated.UpdatedAt = s.now()

	persisted, err := s.users.UpdateUser(ctx, updated)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}

	return persisted, nil
}

// DeleteUser removes a directory entry along with all of its event
// memberships. The removal is refused while the user is the original creator
// of any event.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if principal.IsAnonymous() {
		return ErrUnauthenticated
	}
	if principal.UserID != userID {
		return ErrForbidden
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	if s.memberships != nil {
		if err := s.memberships.RemoveUserFromEvents(ctx, userID); err != nil {
			return err
		}
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return mapUserRepoError(err)
	}

	return nil
}

// ListUsers returns every directory entry ordered by email.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if principal.IsAnonymous() {
		return nil, ErrUnauthenticated
	}
	if s.users == nil {
		return nil, nil
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]User, len(users))
	copy(out, users)

	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Email, out[j].Email) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Email) < strings.ToLower(out[j].Email)
	})

	return out, nil
}

// MissingUserIDs reports which of the given ids have no directory entry.
func (s *UserService) MissingUserIDs(ctx context.Context, ids []string) ([]string, error) {
	if s == nil || s.users == nil {
		return nil, nil
	}
	return s.users.MissingUserIDs(ctx, ids)
}

func normalizeUserInput(input UserInput) UserInput {
	email := strings.TrimSpace(input.Email)
	email = strings.ToLower(email)

	displayName := strings.TrimSpace(input.DisplayName)

	return UserInput{
		Email:       email,
		DisplayName: displayName,
	}
}

func validateUserInput(input UserInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}

	if input.DisplayName == "" {
		vErr.add("display_name", "display name is required")
	}

	return vErr
}

func mapUserRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		vErr := &ValidationError{}
		vErr.add("email", "email is already registered")
		return vErr
	}
	return err
}
