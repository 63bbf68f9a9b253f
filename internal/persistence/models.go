package persistence

import "time"

// User represents an identity directory entry.
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventMember is one stored membership row. Position preserves member order;
// position 0 is the original creator.
type EventMember struct {
	UserID             string
	Role               string
	Availability       string
	PaddingAfterMillis *int64
	Position           int
}

// Period kinds stored in the event_periods table.
const (
	PeriodKindBlackout   = "blackout"
	PeriodKindPreferred  = "preferred"
	PeriodKindDailyStart = "daily_start"
)

// EventPeriod is one stored interval row attached to an event.
type EventPeriod struct {
	Kind        string
	StartMillis int64
	EndMillis   int64
}

// Event represents a stored event aggregate. Instants are Unix milliseconds;
// audit timestamps are time.Time.
type Event struct {
	ID               string
	Name             string
	Description      string
	SchedulingMethod string
	DurationMillis   int64
	WindowStart      *int64
	WindowEnd        *int64
	Status           string
	ScheduledTime    *int64
	Visibility       string
	ConfirmationCode string
	Members          []EventMember
	Periods          []EventPeriod
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int64
}
