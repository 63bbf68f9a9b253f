package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/event-coordinator/internal/application"
	"github.com/example/event-coordinator/internal/governance"
	"github.com/example/event-coordinator/internal/interval"
	"github.com/example/event-coordinator/internal/persistence"
	"github.com/example/event-coordinator/internal/scheduling"
)

var (
	userCounter  uint64
	eventCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:          id,
		Email:       fmt.Sprintf("%s@example.com", id),
		DisplayName: fmt.Sprintf("User %03d", idx),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserDisplayName overrides the generated display name.
func WithUserDisplayName(name string) UserOption {
	return func(f *UserFixture) {
		f.DisplayName = name
	}
}

// WithUserTimestamps sets both created and updated timestamps on the fixture.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Input returns the fixture as an application.UserInput.
func (f UserFixture) Input() application.UserInput {
	return application.UserInput{
		Email:       f.Email,
		DisplayName: f.DisplayName,
	}
}

// ----------------------------- Event fixtures ----------------------------

// EventFixture represents a deterministic event aggregate.
type EventFixture struct {
	ID                    string
	Name                  string
	Description           string
	Members               []application.Member
	SchedulingMethod      scheduling.Method
	DurationMillis        int64
	TimeWindow            *interval.Range
	Status                application.Status
	ScheduledTime         *int64
	Visibility            application.Visibility
	BlackoutPeriods       []interval.Range
	PreferredTimes        []interval.Range
	DailyStartConstraints []interval.Range
	ConfirmationCode      string
	CreatedAt             time.Time
	UpdatedAt             time.Time
	Version               int64
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic flexible event fixture with optional
// overrides. The creator is derived from the event index so fixtures remain
// self consistent without pre-seeded users.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	id := fmt.Sprintf("event-%03d", idx)
	creator := fmt.Sprintf("user-%03d", idx)
	windowStart := referenceTime.Add(24 * time.Hour).UnixMilli()
	window := interval.Range{Start: windowStart, End: windowStart + 6*60*60*1000}
	fixture := EventFixture{
		ID:   id,
		Name: fmt.Sprintf("Event %03d", idx),
		Members: []application.Member{
			{UserID: creator, Role: governance.RoleCreator, Availability: governance.AvailabilityAvailable},
		},
		SchedulingMethod: scheduling.MethodFlexible,
		DurationMillis:   60 * 60 * 1000,
		TimeWindow:       &window,
		Status:           application.StatusScheduling,
		Visibility:       application.VisibilityDraft,
		CreatedAt:        referenceTime,
		UpdatedAt:        referenceTime,
		Version:          1,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventName overrides the event name.
func WithEventName(name string) EventOption {
	return func(f *EventFixture) {
		f.Name = name
	}
}

// WithEventDescription sets the description.
func WithEventDescription(description string) EventOption {
	return func(f *EventFixture) {
		f.Description = description
	}
}

// WithEventMembers replaces the membership roster. The first entry must hold
// the creator role for the fixture to remain valid.
func WithEventMembers(members ...application.Member) EventOption {
	return func(f *EventFixture) {
		f.Members = append([]application.Member(nil), members...)
	}
}

// WithEventMethod sets the scheduling method.
func WithEventMethod(method scheduling.Method) EventOption {
	return func(f *EventFixture) {
		f.SchedulingMethod = method
	}
}

// WithEventDuration sets the duration in milliseconds.
func WithEventDuration(millis int64) EventOption {
	return func(f *EventFixture) {
		f.DurationMillis = millis
	}
}

// WithEventWindow sets the negotiation window.
func WithEventWindow(start, end int64) EventOption {
	return func(f *EventFixture) {
		f.TimeWindow = &interval.Range{Start: start, End: end}
	}
}

// WithoutEventWindow clears the negotiation window, as fixed events require.
func WithoutEventWindow() EventOption {
	return func(f *EventFixture) {
		f.TimeWindow = nil
	}
}

// WithEventStatus sets the lifecycle status.
func WithEventStatus(status application.Status) EventOption {
	return func(f *EventFixture) {
		f.Status = status
	}
}

// WithEventScheduledTime sets the chosen start instant.
func WithEventScheduledTime(millis int64) EventOption {
	return func(f *EventFixture) {
		value := millis
		f.ScheduledTime = &value
	}
}

// WithEventVisibility sets the visibility.
func WithEventVisibility(visibility application.Visibility) EventOption {
	return func(f *EventFixture) {
		f.Visibility = visibility
	}
}

// WithEventBlackouts sets the blackout periods.
func WithEventBlackouts(ranges ...interval.Range) EventOption {
	return func(f *EventFixture) {
		f.BlackoutPeriods = append([]interval.Range(nil), ranges...)
	}
}

// WithEventPreferredTimes sets the preferred time ranges.
func WithEventPreferredTimes(ranges ...interval.Range) EventOption {
	return func(f *EventFixture) {
		f.PreferredTimes = append([]interval.Range(nil), ranges...)
	}
}

// WithEventConfirmationCode sets the confirmation code.
func WithEventConfirmationCode(code string) EventOption {
	return func(f *EventFixture) {
		f.ConfirmationCode = code
	}
}

// WithEventVersion sets the optimistic concurrency version.
func WithEventVersion(version int64) EventOption {
	return func(f *EventFixture) {
		f.Version = version
	}
}

// WithEventTimestamps sets both audit timestamps.
func WithEventTimestamps(created, updated time.Time) EventOption {
	return func(f *EventFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Event value.
func (f EventFixture) Application() application.Event {
	var window *interval.Range
	if f.TimeWindow != nil {
		w := *f.TimeWindow
		window = &w
	}
	var scheduled *int64
	if f.ScheduledTime != nil {
		t := *f.ScheduledTime
		scheduled = &t
	}
	return application.Event{
		ID:                    f.ID,
		Name:                  f.Name,
		Description:           f.Description,
		Members:               append([]application.Member(nil), f.Members...),
		SchedulingMethod:      f.SchedulingMethod,
		DurationMillis:        f.DurationMillis,
		TimeWindow:            window,
		Status:                f.Status,
		ScheduledTime:         scheduled,
		Visibility:            f.Visibility,
		BlackoutPeriods:       append([]interval.Range(nil), f.BlackoutPeriods...),
		PreferredTimes:        append([]interval.Range(nil), f.PreferredTimes...),
		DailyStartConstraints: append([]interval.Range(nil), f.DailyStartConstraints...),
		ConfirmationCode:      f.ConfirmationCode,
		CreatedAt:             f.CreatedAt,
		UpdatedAt:             f.UpdatedAt,
		Version:               f.Version,
	}
}

// Persistence returns the fixture as a persistence.Event value.
func (f EventFixture) Persistence() persistence.Event {
	event := persistence.Event{
		ID:               f.ID,
		Name:             f.Name,
		Description:      f.Description,
		SchedulingMethod: string(f.SchedulingMethod),
		DurationMillis:   f.DurationMillis,
		Status:           string(f.Status),
		Visibility:       string(f.Visibility),
		ConfirmationCode: f.ConfirmationCode,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
		Version:          f.Version,
	}
	if f.TimeWindow != nil {
		start, end := f.TimeWindow.Start, f.TimeWindow.End
		event.WindowStart = &start
		event.WindowEnd = &end
	}
	if f.ScheduledTime != nil {
		t := *f.ScheduledTime
		event.ScheduledTime = &t
	}
	for position, member := range f.Members {
		stored := persistence.EventMember{
			UserID:       member.UserID,
			Role:         string(member.Role),
			Availability: string(member.Availability),
			Position:     position,
		}
		if member.PaddingAfterMillis != nil {
			padding := *member.PaddingAfterMillis
			stored.PaddingAfterMillis = &padding
		}
		event.Members = append(event.Members, stored)
	}
	event.Periods = append(event.Periods, periodRows(persistence.PeriodKindBlackout, f.BlackoutPeriods)...)
	event.Periods = append(event.Periods, periodRows(persistence.PeriodKindPreferred, f.PreferredTimes)...)
	event.Periods = append(event.Periods, periodRows(persistence.PeriodKindDailyStart, f.DailyStartConstraints)...)
	return event
}

// Input returns the fixture as an application.EventInput. Members beyond the
// original creator become the initial invitees.
func (f EventFixture) Input() application.EventInput {
	var window *interval.Range
	if f.TimeWindow != nil {
		w := *f.TimeWindow
		window = &w
	}
	var scheduled *int64
	if f.ScheduledTime != nil {
		t := *f.ScheduledTime
		scheduled = &t
	}
	var invitees []application.Member
	if len(f.Members) > 1 {
		invitees = append([]application.Member(nil), f.Members[1:]...)
	}
	return application.EventInput{
		Name:                  f.Name,
		Description:           f.Description,
		SchedulingMethod:      f.SchedulingMethod,
		DurationMillis:        f.DurationMillis,
		TimeWindow:            window,
		ScheduledTime:         scheduled,
		Visibility:            f.Visibility,
		BlackoutPeriods:       append([]interval.Range(nil), f.BlackoutPeriods...),
		PreferredTimes:        append([]interval.Range(nil), f.PreferredTimes...),
		DailyStartConstraints: append([]interval.Range(nil), f.DailyStartConstraints...),
		InitialMembers:        invitees,
	}
}

// Creator returns the original creator's principal.
func (f EventFixture) Creator() application.Principal {
	if len(f.Members) == 0 {
		return application.Principal{}
	}
	return application.Principal{UserID: f.Members[0].UserID}
}

func periodRows(kind string, ranges []interval.Range) []persistence.EventPeriod {
	rows := make([]persistence.EventPeriod, 0, len(ranges))
	for _, r := range ranges {
		rows = append(rows, persistence.EventPeriod{Kind: kind, StartMillis: r.Start, EndMillis: r.End})
	}
	return rows
}
