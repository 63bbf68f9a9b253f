package application

import (
	"time"

	"github.com/example/event-coordinator/internal/governance"
	"github.com/example/event-coordinator/internal/interval"
	"github.com/example/event-coordinator/internal/scheduling"
)

// Principal represents the authenticated user invoking a service method. A
// zero principal means no actor identity was presented at all.
type Principal struct {
	UserID string
}

// IsAnonymous reports whether no actor identity is present.
func (p Principal) IsAnonymous() bool {
	return p.UserID == ""
}

// Member is an event membership entry. Slice position matters: index 0 is the
// immutable original creator.
type Member struct {
	UserID             string
	Role               governance.Role
	Availability       governance.Availability
	PaddingAfterMillis *int64
}

// Event is the aggregate root for a negotiated gathering.
type Event struct {
	ID                    string
	Name                  string
	Description           string
	Members               []Member
	SchedulingMethod      scheduling.Method
	DurationMillis        int64
	TimeWindow            *interval.Range
	Status                Status
	ScheduledTime         *int64
	Visibility            Visibility
	BlackoutPeriods       []interval.Range
	PreferredTimes        []interval.Range
	DailyStartConstraints []interval.Range
	ConfirmationCode      string
	CreatedAt             time.Time
	UpdatedAt             time.Time
	Version               int64
}

// OriginalCreatorID returns the user id of the member at index 0.
func (e Event) OriginalCreatorID() string {
	if len(e.Members) == 0 {
		return ""
	}
	return e.Members[0].UserID
}

// MemberByUserID returns the membership entry for the given user.
func (e Event) MemberByUserID(userID string) (Member, bool) {
	for _, member := range e.Members {
		if member.UserID == userID {
			return member, true
		}
	}
	return Member{}, false
}

// EventInput captures caller provided fields for event creation.
type EventInput struct {
	Name                  string
	Description           string
	SchedulingMethod      scheduling.Method
	DurationMillis        int64
	TimeWindow            *interval.Range
	ScheduledTime         *int64
	Visibility            Visibility
	BlackoutPeriods       []interval.Range
	PreferredTimes        []interval.Range
	DailyStartConstraints []interval.Range
	// InitialMembers are invited alongside the creating actor. The actor is
	// always prepended as the original creator.
	InitialMembers []Member
}

// EventPatch describes a partial update. Nil fields are left untouched.
type EventPatch struct {
	Name                  *string
	Description           *string
	SchedulingMethod      *scheduling.Method
	DurationMillis        *int64
	TimeWindow            *interval.Range
	Status                *Status
	ScheduledTime         *int64
	Visibility            *Visibility
	BlackoutPeriods       *[]interval.Range
	PreferredTimes        *[]interval.Range
	DailyStartConstraints *[]interval.Range
	Members               *[]Member
}

// IsEmpty reports whether the patch carries no changes at all.
func (p EventPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.SchedulingMethod == nil &&
		p.DurationMillis == nil && p.TimeWindow == nil && p.Status == nil &&
		p.ScheduledTime == nil && p.Visibility == nil && p.BlackoutPeriods == nil &&
		p.PreferredTimes == nil && p.DailyStartConstraints == nil && p.Members == nil
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// UpdateEventParams wraps the data required to update an existing event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Patch     EventPatch
}

// MemberSettingsInput carries the self-service fields a member may change on
// its own membership entry.
type MemberSettingsInput struct {
	Availability       *governance.Availability
	PaddingAfterMillis *int64
	ClearPadding       bool
}

// ScheduleWarning surfaces an advisory finding that does not block a mutation,
// such as a confirmed time overlapping a blackout period. UserID and
// WithEventID are only set for member overlap findings.
type ScheduleWarning struct {
	EventID     string
	Type        string
	Range       interval.Range
	UserID      string
	WithEventID string
}

// WarningTypeBlackoutOverlap flags a scheduled time inside a blackout period.
const WarningTypeBlackoutOverlap = "blackout_overlap"

// WarningTypeDailyStartMismatch flags a scheduled time whose minute of day
// falls outside every daily start constraint.
const WarningTypeDailyStartMismatch = "daily_start_mismatch"

// WarningTypeMemberOverlap flags a member claimed by two events whose
// occupied spans, padding included, overlap.
const WarningTypeMemberOverlap = "member_overlap"

// UserInput captures caller provided identity directory attributes.
type UserInput struct {
	Email       string
	DisplayName string
}

// User represents an identity directory entry referenced by event members.
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateUserParams wraps the data required to register a directory entry.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}
