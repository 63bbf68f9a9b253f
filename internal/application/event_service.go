package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/example/event-coordinator/internal/booking"
	"github.com/example/event-coordinator/internal/governance"
	"github.com/example/event-coordinator/internal/interval"
	"github.com/example/event-coordinator/internal/persistence"
	"github.com/example/event-coordinator/internal/scheduling"
)

// EventRepository captures the persistence interactions needed by the service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	// SaveEvent persists the document only when the stored version still
	// matches expectedVersion, and returns persistence.ErrConflict otherwise.
	SaveEvent(ctx context.Context, event Event, expectedVersion int64) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context) ([]Event, error)
	ListEventsForUser(ctx context.Context, userID string) ([]Event, error)
	ConfirmationCodeExists(ctx context.Context, code string) (bool, error)
}

// UserDirectory exposes identity lookups for membership validation.
type UserDirectory interface {
	MissingUserIDs(ctx context.Context, ids []string) ([]string, error)
}

// EventServiceOptions tunes policy knobs of the event service.
type EventServiceOptions struct {
	// EnforceBlackoutExclusion turns blackout periods from advisory warnings
	// into a hard scheduling rule.
	EnforceBlackoutExclusion bool
}

const (
	maxNameLength        = 50
	maxDescriptionLength = 1000

	// maxCodeAttempts bounds uniqueness retries when minting confirmation codes.
	maxCodeAttempts = 5
)

// EventService orchestrates validation, governance, and persistence for the
// event aggregate. All mutating methods are single read-modify-validate-write
// transactions guarded by the aggregate's version token.
type EventService struct {
	events        EventRepository
	users         UserDirectory
	idGenerator   func() string
	codeGenerator func() string
	now           func() time.Time
	opts          EventServiceOptions
	logger        *slog.Logger
	warnings      *warningCache
}

// NewEventService wires dependencies for event operations.
func NewEventService(events EventRepository, users UserDirectory, idGenerator, codeGenerator func() string, now func() time.Time, opts EventServiceOptions) *EventService {
	return NewEventServiceWithLogger(events, users, idGenerator, codeGenerator, now, opts, nil)
}

// NewEventServiceWithLogger wires dependencies for event operations with a base logger.
func NewEventServiceWithLogger(events EventRepository, users UserDirectory, idGenerator, codeGenerator func() string, now func() time.Time, opts EventServiceOptions, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if codeGenerator == nil {
		codeGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:        events,
		users:         users,
		idGenerator:   idGenerator,
		codeGenerator: codeGenerator,
		now:           now,
		opts:          opts,
		logger:        defaultLogger(logger),
		warnings:      newWarningCache(30*time.Second, 256, now),
	}
}

func (s *EventService) validator() *scheduling.Validator {
	return scheduling.NewValidator(s.now, scheduling.Options{EnforceBlackoutExclusion: s.opts.EnforceBlackoutExclusion})
}

// CreateEvent builds a new aggregate with the acting principal as original
// creator, applies lifecycle defaults, and persists on validation success.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (Event, []ScheduleWarning, error) {
	if s == nil {
		return Event{}, nil, fmt.Errorf("EventService is nil")
	}
	if params.Principal.IsAnonymous() {
		return Event{}, nil, ErrUnauthenticated
	}
	input := params.Input

	logger := serviceLogger(ctx, s.logger, "event", "create", "actor", params.Principal.UserID)

	vErr := &ValidationError{}

	members, memberErr := buildInitialMembers(params.Principal.UserID, input.InitialMembers)
	vErr.merge(memberErr)

	visibility := input.Visibility
	if visibility == "" {
		visibility = VisibilityDraft
	}
	if !ValidVisibility(visibility) {
		vErr.add("visibility", "visibility must be draft, public, or private")
	}

	event := Event{
		ID:                    s.idGenerator(),
		Name:                  strings.TrimSpace(input.Name),
		Description:           input.Description,
		Members:               members,
		SchedulingMethod:      input.SchedulingMethod,
		DurationMillis:        input.DurationMillis,
		TimeWindow:            cloneRange(input.TimeWindow),
		ScheduledTime:         cloneInt64(input.ScheduledTime),
		Visibility:            visibility,
		BlackoutPeriods:       interval.MergeAll(input.BlackoutPeriods),
		PreferredTimes:        cloneRanges(input.PreferredTimes),
		DailyStartConstraints: cloneRanges(input.DailyStartConstraints),
	}

	// Fixed events carry exactly one concrete time; negotiation inputs are
	// cleared rather than rejected.
	if event.SchedulingMethod == scheduling.MethodFixed {
		event.TimeWindow = nil
		event.BlackoutPeriods = nil
		event.PreferredTimes = nil
		event.DailyStartConstraints = nil
	}

	if event.SchedulingMethod == scheduling.MethodFixed && event.ScheduledTime != nil {
		event.Status = StatusConfirmed
	} else {
		event.Status = StatusScheduling
	}

	// The supplied scheduled time is validated as given; a time outside the
	// window is rejected, not silently dropped.
	validateEventCore(event, vErr)
	mergeViolations(vErr, s.validator().Check(s.candidateFor(event, true)))
	if vErr.HasErrors() {
		return Event{}, nil, vErr
	}

	// Entering scheduling discards the admissible time until negotiation
	// picks one.
	if event.Status == StatusScheduling {
		event.ScheduledTime = nil
	}

	if err := s.ensureMembersExist(ctx, memberUserIDs(event.Members)); err != nil {
		return Event{}, nil, err
	}

	if event.Status == StatusConfirmed {
		code, err := s.mintConfirmationCode(ctx)
		if err != nil {
			return Event{}, nil, err
		}
		event.ConfirmationCode = code
	}

	event.CreatedAt = s.now()
	event.UpdatedAt = event.CreatedAt
	event.Version = 1

	if s.events == nil {
		return event, nil, nil
	}

	persisted, err := s.events.CreateEvent(ctx, event)
	if err != nil {
		return Event{}, nil, mapEventRepoError(err)
	}

	s.warnings.Invalidate()
	logger.InfoContext(ctx, "event created", "event_id", persisted.ID, "status", persisted.Status)

	return persisted, s.advisoryWarnings(persisted), nil
}

// GetEvent returns the event when the principal may see it: public events are
// always visible, drafts only to creators and admins, private events only to
// members.
func (s *EventService) GetEvent(ctx context.Context, principal Principal, eventID string) (Event, []ScheduleWarning, error) {
	if s == nil {
		return Event{}, nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, nil, fmt.Errorf("event repository not configured")
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, nil, mapEventRepoError(err)
	}

	if !canAccess(event, principal) {
		if principal.IsAnonymous() {
			return Event{}, nil, ErrUnauthenticated
		}
		return Event{}, nil, ErrForbidden
	}

	return event, s.advisoryWarnings(event), nil
}

// ListEvents enumerates events visible to the principal ordered by creation time.
func (s *EventService) ListEvents(ctx context.Context, principal Principal) ([]Event, []ScheduleWarning, error) {
	if s == nil {
		return nil, nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return nil, nil, fmt.Errorf("event repository not configured")
	}

	events, err := s.events.ListEvents(ctx)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	visible := make([]Event, 0, len(events))
	for _, event := range events {
		if canAccess(event, principal) {
			visible = append(visible, event)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].CreatedAt.Equal(visible[j].CreatedAt) {
			return visible[i].ID < visible[j].ID
		}
		return visible[i].CreatedAt.Before(visible[j].CreatedAt)
	})

	cacheKey := buildWarningCacheKey(principal, visible)
	if warnings, ok := s.warnings.Get(cacheKey); ok {
		return visible, warnings, nil
	}

	warnings := make([]ScheduleWarning, 0)
	for _, event := range visible {
		warnings = append(warnings, s.advisoryWarnings(event)...)
	}
	warnings = append(warnings, memberOverlapWarnings(visible)...)
	if len(warnings) == 0 {
		warnings = nil
	}
	s.warnings.Store(cacheKey, warnings)

	return visible, warnings, nil
}

// UpdateEvent applies a partial patch transactionally: governance and
// lifecycle rules are evaluated against the loaded aggregate, the merged
// document is re-validated as a whole, and the write commits only when the
// stored version is unchanged.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (Event, []ScheduleWarning, error) {
	if s == nil {
		return Event{}, nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, nil, fmt.Errorf("event repository not configured")
	}
	if params.Principal.IsAnonymous() {
		return Event{}, nil, ErrUnauthenticated
	}

	existing, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return Event{}, nil, mapEventRepoError(err)
	}

	if existing.Status.Terminal() {
		vErr := &ValidationError{}
		vErr.add("status", "cancelled events cannot be modified")
		return Event{}, nil, vErr
	}

	actor, isMember := existing.MemberByUserID(params.Principal.UserID)
	if !isMember {
		return Event{}, nil, ErrForbidden
	}

	patch := params.Patch
	if patch.IsEmpty() {
		return existing, s.advisoryWarnings(existing), nil
	}

	logger := serviceLogger(ctx, s.logger, "event", "update", "actor", params.Principal.UserID, "event_id", existing.ID)

	// Cancellation is absorbing and must travel alone.
	if patch.Status != nil && *patch.Status == StatusCancelled {
		return s.cancelEvent(ctx, existing, actor, patch, logger)
	}

	if !governance.CanManageEvent(toGovernanceMember(actor)) {
		return Event{}, nil, ErrForbidden
	}

	merged := cloneEvent(existing)
	vErr := &ValidationError{}

	if patch.Name != nil {
		merged.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}

	if patch.Visibility != nil {
		switch {
		case !ValidVisibility(*patch.Visibility):
			vErr.add("visibility", "visibility must be draft, public, or private")
		case !CanTransitionVisibility(existing.Visibility, *patch.Visibility):
			vErr.add("visibility", "events cannot return to draft")
		default:
			merged.Visibility = *patch.Visibility
		}
	}

	if patch.SchedulingMethod != nil && *patch.SchedulingMethod != existing.SchedulingMethod {
		if existing.Status == StatusConfirmed {
			vErr.add("scheduling_method", "scheduling method is locked on a confirmed event")
		} else {
			merged.SchedulingMethod = *patch.SchedulingMethod
		}
	}

	if patch.DurationMillis != nil {
		merged.DurationMillis = *patch.DurationMillis
	}
	if patch.TimeWindow != nil {
		merged.TimeWindow = cloneRange(patch.TimeWindow)
	}
	if patch.ScheduledTime != nil {
		merged.ScheduledTime = cloneInt64(patch.ScheduledTime)
	}
	if patch.BlackoutPeriods != nil {
		merged.BlackoutPeriods = interval.MergeAll(*patch.BlackoutPeriods)
	}
	if patch.PreferredTimes != nil {
		merged.PreferredTimes = cloneRanges(*patch.PreferredTimes)
	}
	if patch.DailyStartConstraints != nil {
		merged.DailyStartConstraints = cloneRanges(*patch.DailyStartConstraints)
	}

	if patch.Members != nil {
		proposed, memberErr := normalizeMembers(*patch.Members)
		vErr.merge(memberErr)
		if !memberErr.HasErrors() {
			denials := governance.CheckMemberPatch(toGovernanceMembers(existing.Members), toGovernanceMembers(proposed), params.Principal.UserID)
			if denials != nil {
				return Event{}, nil, fmt.Errorf("%w: %s", ErrForbidden, describeDenials(denials))
			}
			merged.Members = proposed
		}
	}

	// Touching any scheduling field of a scheduled or confirmed event
	// re-opens negotiation, unless the patch names an explicit target status.
	downgraded := false
	if patch.Status == nil && (existing.Status == StatusScheduled || existing.Status == StatusConfirmed) && schedulingFieldsChanged(existing, merged) {
		merged.Status = StatusScheduling
		downgraded = true
	}

	if patch.Status != nil {
		switch {
		case !ValidStatus(*patch.Status):
			vErr.add("status", "unknown status")
		case !CanTransitionStatus(existing.Status, *patch.Status):
			vErr.add("status", fmt.Sprintf("cannot move from %s to %s", existing.Status, *patch.Status))
		default:
			merged.Status = *patch.Status
		}
	}

	if merged.Status == StatusScheduling {
		merged.ScheduledTime = nil
		merged.ConfirmationCode = ""
	}

	if merged.SchedulingMethod == scheduling.MethodFixed {
		merged.TimeWindow = nil
		merged.BlackoutPeriods = nil
		merged.PreferredTimes = nil
		merged.DailyStartConstraints = nil
	}

	// A confirmed event freezes its concrete schedule. Changing it requires
	// re-opening negotiation or cancelling; naming confirmed as the target
	// status does not unlock the fields.
	if existing.Status == StatusConfirmed && merged.Status == StatusConfirmed {
		if !equalInt64Ptr(existing.ScheduledTime, merged.ScheduledTime) {
			vErr.add("scheduled_time", "scheduled time is locked on a confirmed event")
		}
		if existing.DurationMillis != merged.DurationMillis {
			vErr.add("duration", "duration is locked on a confirmed event")
		}
		if !equalRangePtr(existing.TimeWindow, merged.TimeWindow) {
			vErr.add("time_window", "time window is locked on a confirmed event")
		}
	}

	validateEventCore(merged, vErr)
	mergeViolations(vErr, s.validator().Check(s.candidateFor(merged, windowChanged(existing, merged))))
	if vErr.HasErrors() {
		return Event{}, nil, vErr
	}

	if added := addedMemberIDs(existing.Members, merged.Members); len(added) > 0 {
		if err := s.ensureMembersExist(ctx, added); err != nil {
			return Event{}, nil, err
		}
	}

	if eventsEquivalent(existing, merged) {
		return existing, s.advisoryWarnings(existing), nil
	}

	if merged.Status == StatusConfirmed && existing.Status != StatusConfirmed {
		code, err := s.mintConfirmationCode(ctx)
		if err != nil {
			return Event{}, nil, err
		}
		merged.ConfirmationCode = code
	}

	merged.UpdatedAt = s.now()

	persisted, err := s.events.SaveEvent(ctx, merged, existing.Version)
	if err != nil {
		return Event{}, nil, mapEventRepoError(err)
	}

	s.warnings.Invalidate()
	logger.InfoContext(ctx, "event updated", "status", persisted.Status, "downgraded", downgraded)

	return persisted, s.advisoryWarnings(persisted), nil
}

func (s *EventService) cancelEvent(ctx context.Context, existing Event, actor Member, patch EventPatch, logger *slog.Logger) (Event, []ScheduleWarning, error) {
	if !governance.CanManageEvent(toGovernanceMember(actor)) {
		return Event{}, nil, ErrForbidden
	}

	solo := patch
	solo.Status = nil
	if !solo.IsEmpty() {
		vErr := &ValidationError{}
		vErr.add("status", "cancellation cannot be combined with other changes")
		return Event{}, nil, vErr
	}

	cancelled := cloneEvent(existing)
	cancelled.Status = StatusCancelled
	cancelled.UpdatedAt = s.now()

	persisted, err := s.events.SaveEvent(ctx, cancelled, existing.Version)
	if err != nil {
		return Event{}, nil, mapEventRepoError(err)
	}

	s.warnings.Invalidate()
	logger.InfoContext(ctx, "event cancelled")

	return persisted, nil, nil
}

// DeleteEvent removes an event. Only the original creator may delete, and a
// confirmed event must be cancelled first.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, eventID string) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}
	if principal.IsAnonymous() {
		return ErrUnauthenticated
	}

	existing, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return mapEventRepoError(err)
	}

	if principal.UserID != existing.OriginalCreatorID() {
		return ErrForbidden
	}
	if existing.Status == StatusConfirmed {
		vErr := &ValidationError{}
		vErr.add("status", "confirmed events must be cancelled before deletion")
		return vErr
	}

	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		return mapEventRepoError(err)
	}

	s.warnings.Invalidate()
	serviceLogger(ctx, s.logger, "event", "delete", "actor", principal.UserID, "event_id", eventID).InfoContext(ctx, "event deleted")

	return nil
}

// UpdateOwnMemberSettings lets any current member adjust its own availability
// and padding without going through the member-list governance rules.
func (s *EventService) UpdateOwnMemberSettings(ctx context.Context, principal Principal, eventID string, input MemberSettingsInput) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	if principal.IsAnonymous() {
		return Event{}, ErrUnauthenticated
	}

	existing, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	if existing.Status.Terminal() {
		vErr := &ValidationError{}
		vErr.add("status", "cancelled events cannot be modified")
		return Event{}, vErr
	}

	if _, ok := existing.MemberByUserID(principal.UserID); !ok {
		return Event{}, ErrForbidden
	}

	vErr := &ValidationError{}
	if input.Availability != nil && !governance.ValidAvailability(*input.Availability) {
		vErr.add("availability", "availability must be available, unavailable, or invited")
	}
	if input.PaddingAfterMillis != nil && *input.PaddingAfterMillis < 0 {
		vErr.add("padding_after", "padding must not be negative")
	}
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	merged := cloneEvent(existing)
	for i := range merged.Members {
		if merged.Members[i].UserID != principal.UserID {
			continue
		}
		if input.Availability != nil {
			merged.Members[i].Availability = *input.Availability
		}
		if input.ClearPadding {
			merged.Members[i].PaddingAfterMillis = nil
		} else if input.PaddingAfterMillis != nil {
			merged.Members[i].PaddingAfterMillis = cloneInt64(input.PaddingAfterMillis)
		}
	}

	if eventsEquivalent(existing, merged) {
		return existing, nil
	}

	merged.UpdatedAt = s.now()

	persisted, err := s.events.SaveEvent(ctx, merged, existing.Version)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	s.warnings.Invalidate()
	return persisted, nil
}

// AddBlackoutPeriod merges a new exclusion window into the event's blackout
// set. Touching the set while a time is picked re-opens negotiation.
func (s *EventService) AddBlackoutPeriod(ctx context.Context, principal Principal, eventID string, r interval.Range) (Event, error) {
	return s.mutateBlackouts(ctx, principal, eventID, r, func(existing []interval.Range) []interval.Range {
		return interval.AddAndMerge(existing, r)
	})
}

// RemoveBlackoutPeriod subtracts an exclusion window from the event's blackout
// set, splitting stored windows as needed. Removing an absent window is a no-op.
func (s *EventService) RemoveBlackoutPeriod(ctx context.Context, principal Principal, eventID string, r interval.Range) (Event, error) {
	return s.mutateBlackouts(ctx, principal, eventID, r, func(existing []interval.Range) []interval.Range {
		return interval.Subtract(existing, r)
	})
}

func (s *EventService) mutateBlackouts(ctx context.Context, principal Principal, eventID string, r interval.Range, apply func([]interval.Range) []interval.Range) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	if principal.IsAnonymous() {
		return Event{}, ErrUnauthenticated
	}

	vErr := &ValidationError{}
	if !r.IsValid() {
		vErr.add("blackout_periods", "start must be before end")
	}
	if r.Start <= 0 {
		vErr.add("blackout_periods", "start must be positive")
	}
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	existing, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	if existing.Status.Terminal() {
		vErr.add("status", "cancelled events cannot be modified")
		return Event{}, vErr
	}

	actor, isMember := existing.MemberByUserID(principal.UserID)
	if !isMember || !governance.CanManageEvent(toGovernanceMember(actor)) {
		return Event{}, ErrForbidden
	}

	if existing.SchedulingMethod == scheduling.MethodFixed {
		vErr.add("blackout_periods", "fixed events do not take blackout periods")
		return Event{}, vErr
	}

	merged := cloneEvent(existing)
	merged.BlackoutPeriods = apply(existing.BlackoutPeriods)

	if eventsEquivalent(existing, merged) {
		return existing, nil
	}

	if existing.Status == StatusScheduled || existing.Status == StatusConfirmed {
		merged.Status = StatusScheduling
		merged.ScheduledTime = nil
		merged.ConfirmationCode = ""
	}

	merged.UpdatedAt = s.now()

	persisted, err := s.events.SaveEvent(ctx, merged, existing.Version)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	s.warnings.Invalidate()
	return persisted, nil
}

// RemoveUserFromEvents strips the user from every event member list. It is the
// explicit compensating operation invoked when an identity-directory entry is
// deleted; it is idempotent and fails without touching anything when the user
// is the original creator of any event.
func (s *EventService) RemoveUserFromEvents(ctx context.Context, userID string) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}
	if userID == "" {
		return nil
	}

	events, err := s.events.ListEventsForUser(ctx, userID)
	if err != nil {
		if isNotFoundError(err) {
			return nil
		}
		return err
	}

	for _, event := range events {
		if event.OriginalCreatorID() == userID {
			return fmt.Errorf("%w: user %s is the original creator of event %s", ErrConflict, userID, event.ID)
		}
	}

	for _, event := range events {
		merged := cloneEvent(event)
		kept := merged.Members[:0]
		for _, member := range merged.Members {
			if member.UserID != userID {
				kept = append(kept, member)
			}
		}
		if len(kept) == len(event.Members) {
			continue
		}
		merged.Members = kept
		merged.UpdatedAt = s.now()

		if _, err := s.events.SaveEvent(ctx, merged, event.Version); err != nil {
			return mapEventRepoError(err)
		}
	}

	s.warnings.Invalidate()
	return nil
}

func (s *EventService) mintConfirmationCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.codeGenerator()
		if code == "" {
			continue
		}
		if s.events == nil {
			return code, nil
		}
		exists, err := s.events.ConfirmationCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to mint a unique confirmation code after %d attempts", maxCodeAttempts)
}

func (s *EventService) ensureMembersExist(ctx context.Context, ids []string) error {
	if s.users == nil || len(ids) == 0 {
		return nil
	}
	missing, err := s.users.MissingUserIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	vErr := &ValidationError{}
	vErr.add("members", fmt.Sprintf("unknown user ids: %s", strings.Join(missing, ", ")))
	return vErr
}

func (s *EventService) candidateFor(event Event, changedWindow bool) scheduling.Candidate {
	return scheduling.Candidate{
		Method:                event.SchedulingMethod,
		DurationMillis:        event.DurationMillis,
		TimeWindow:            event.TimeWindow,
		ScheduledTime:         event.ScheduledTime,
		RequireScheduledTime:  event.Status == StatusScheduled || event.Status == StatusConfirmed,
		WindowChanged:         changedWindow,
		BlackoutPeriods:       event.BlackoutPeriods,
		PreferredTimes:        event.PreferredTimes,
		DailyStartConstraints: event.DailyStartConstraints,
	}
}

func (s *EventService) advisoryWarnings(event Event) []ScheduleWarning {
	var warnings []ScheduleWarning

	// Enforced blackouts surface as validation errors instead of warnings.
	if !s.opts.EnforceBlackoutExclusion {
		for _, hit := range scheduling.AdvisoryBlackoutHits(s.candidateFor(event, false)) {
			warnings = append(warnings, ScheduleWarning{EventID: event.ID, Type: WarningTypeBlackoutOverlap, Range: hit})
		}
	}

	if event.ScheduledTime != nil && !scheduling.SatisfiesDailyStart(*event.ScheduledTime, event.DailyStartConstraints, nil) {
		start := *event.ScheduledTime
		warnings = append(warnings, ScheduleWarning{
			EventID: event.ID,
			Type:    WarningTypeDailyStartMismatch,
			Range:   interval.Range{Start: start, End: start + event.DurationMillis},
		})
	}

	return warnings
}

// memberOverlapWarnings cross-checks every pair of visible events holding a
// concrete time and reports members booked into overlapping spans.
func memberOverlapWarnings(events []Event) []ScheduleWarning {
	bookings := make([]booking.Booking, 0, len(events))
	for _, event := range events {
		if event.ScheduledTime == nil {
			continue
		}
		if event.Status != StatusScheduled && event.Status != StatusConfirmed {
			continue
		}
		members := make([]booking.Member, 0, len(event.Members))
		for _, member := range event.Members {
			entry := booking.Member{UserID: member.UserID}
			if member.PaddingAfterMillis != nil {
				entry.PaddingAfterMillis = *member.PaddingAfterMillis
			}
			members = append(members, entry)
		}
		bookings = append(bookings, booking.Booking{
			EventID: event.ID,
			Start:   *event.ScheduledTime,
			End:     *event.ScheduledTime + event.DurationMillis,
			Members: members,
		})
	}

	conflicts := booking.DetectConflicts(bookings)
	if len(conflicts) == 0 {
		return nil
	}
	warnings := make([]ScheduleWarning, 0, len(conflicts))
	for _, conflict := range conflicts {
		warnings = append(warnings, ScheduleWarning{
			EventID:     conflict.EventID,
			Type:        WarningTypeMemberOverlap,
			Range:       conflict.Overlap,
			UserID:      conflict.UserID,
			WithEventID: conflict.WithEventID,
		})
	}
	return warnings
}

func validateEventCore(event Event, vErr *ValidationError) {
	if event.Name == "" {
		vErr.add("name", "name is required")
	} else if len([]rune(event.Name)) > maxNameLength {
		vErr.add("name", "name must be at most 50 characters")
	}

	if len([]rune(event.Description)) > maxDescriptionLength {
		vErr.add("description", "description must be at most 1000 characters")
	}

	if len(event.Members) == 0 {
		vErr.add("members", "at least one member is required")
	} else {
		if event.Members[0].Role != governance.RoleCreator {
			vErr.add("members", "the first member must hold the creator role")
		}
		creators := 0
		for _, member := range event.Members {
			if member.Role == governance.RoleCreator {
				creators++
			}
		}
		if creators == 0 {
			vErr.add("members", "at least one creator is required")
		}
	}
}

func buildInitialMembers(creatorID string, invited []Member) ([]Member, *ValidationError) {
	members := []Member{{
		UserID:       creatorID,
		Role:         governance.RoleCreator,
		Availability: governance.AvailabilityAvailable,
	}}
	extra := make([]Member, 0, len(invited))
	for _, member := range invited {
		if member.UserID == creatorID {
			continue
		}
		extra = append(extra, member)
	}
	normalized, vErr := normalizeMembers(append(members, extra...))
	return normalized, vErr
}

func normalizeMembers(members []Member) ([]Member, *ValidationError) {
	vErr := &ValidationError{}
	out := make([]Member, 0, len(members))
	seen := make(map[string]struct{}, len(members))

	for _, member := range members {
		userID := strings.TrimSpace(member.UserID)
		if userID == "" {
			vErr.add("members", "member user id is required")
			continue
		}
		if _, dup := seen[userID]; dup {
			vErr.add("members", fmt.Sprintf("duplicate member %s", userID))
			continue
		}
		seen[userID] = struct{}{}

		role := member.Role
		if role == "" {
			role = governance.RoleParticipant
		}
		if !governance.ValidRole(role) {
			vErr.add("members", fmt.Sprintf("unknown role for member %s", userID))
		}

		availability := member.Availability
		if availability == "" {
			availability = governance.AvailabilityInvited
		}
		if !governance.ValidAvailability(availability) {
			vErr.add("members", fmt.Sprintf("unknown availability for member %s", userID))
		}

		if member.PaddingAfterMillis != nil && *member.PaddingAfterMillis < 0 {
			vErr.add("members", fmt.Sprintf("padding for member %s must not be negative", userID))
		}

		out = append(out, Member{
			UserID:             userID,
			Role:               role,
			Availability:       availability,
			PaddingAfterMillis: cloneInt64(member.PaddingAfterMillis),
		})
	}

	return out, vErr
}

func schedulingFieldsChanged(before, after Event) bool {
	return !equalInt64Ptr(before.ScheduledTime, after.ScheduledTime) ||
		before.DurationMillis != after.DurationMillis ||
		!equalRangePtr(before.TimeWindow, after.TimeWindow) ||
		!reflect.DeepEqual(before.BlackoutPeriods, after.BlackoutPeriods) ||
		!reflect.DeepEqual(before.PreferredTimes, after.PreferredTimes) ||
		!reflect.DeepEqual(before.DailyStartConstraints, after.DailyStartConstraints)
}

func windowChanged(before, after Event) bool {
	return !equalRangePtr(before.TimeWindow, after.TimeWindow)
}

// eventsEquivalent ignores the audit timestamp so that no-op patches can be
// detected before a write is issued.
func eventsEquivalent(before, after Event) bool {
	normalized := after
	normalized.UpdatedAt = before.UpdatedAt
	return reflect.DeepEqual(before, normalized)
}

func addedMemberIDs(before, after []Member) []string {
	existing := make(map[string]struct{}, len(before))
	for _, member := range before {
		existing[member.UserID] = struct{}{}
	}
	added := make([]string, 0)
	for _, member := range after {
		if _, ok := existing[member.UserID]; !ok {
			added = append(added, member.UserID)
		}
	}
	return added
}

func memberUserIDs(members []Member) []string {
	ids := make([]string, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.UserID)
	}
	return ids
}

func toGovernanceMember(member Member) governance.Member {
	return governance.Member{
		UserID:       member.UserID,
		Role:         member.Role,
		Availability: member.Availability,
		PaddingAfter: member.PaddingAfterMillis,
	}
}

func toGovernanceMembers(members []Member) []governance.Member {
	out := make([]governance.Member, 0, len(members))
	for _, member := range members {
		out = append(out, toGovernanceMember(member))
	}
	return out
}

func describeDenials(denials []governance.Denial) string {
	parts := make([]string, 0, len(denials))
	for _, denial := range denials {
		if denial.UserID == "" {
			parts = append(parts, denial.Reason)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", denial.Reason, denial.UserID))
	}
	return strings.Join(parts, "; ")
}

func mergeViolations(vErr *ValidationError, violations []scheduling.FieldViolation) {
	for _, violation := range violations {
		vErr.add(violation.Field, violation.Message)
	}
}

func cloneEvent(event Event) Event {
	out := event
	out.Members = make([]Member, len(event.Members))
	copy(out.Members, event.Members)
	for i := range out.Members {
		out.Members[i].PaddingAfterMillis = cloneInt64(event.Members[i].PaddingAfterMillis)
	}
	out.TimeWindow = cloneRange(event.TimeWindow)
	out.ScheduledTime = cloneInt64(event.ScheduledTime)
	out.BlackoutPeriods = cloneRanges(event.BlackoutPeriods)
	out.PreferredTimes = cloneRanges(event.PreferredTimes)
	out.DailyStartConstraints = cloneRanges(event.DailyStartConstraints)
	return out
}

func cloneRange(r *interval.Range) *interval.Range {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

func cloneRanges(ranges []interval.Range) []interval.Range {
	if ranges == nil {
		return nil
	}
	out := make([]interval.Range, len(ranges))
	copy(out, ranges)
	return out
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalRangePtr(a, b *interval.Range) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConflict) {
		return ErrConflict
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("members", "related records are missing")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("event", "stored constraints were violated")
		return vErr
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
