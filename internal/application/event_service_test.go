package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/event-coordinator/internal/governance"
	"github.com/example/event-coordinator/internal/interval"
	"github.com/example/event-coordinator/internal/persistence"
	"github.com/example/event-coordinator/internal/scheduling"
)

type eventRepoStub struct {
	event     Event
	created   Event
	saved     []Event
	savedVers []int64
	err       error
	saveErr   error
	deleteErr error
	deleted   string
	list      []Event
	forUser   []Event
	usedCodes map[string]bool
	codeErr   error
}

func (s *eventRepoStub) CreateEvent(ctx context.Context, event Event) (Event, error) {
	if s.err != nil {
		return Event{}, s.err
	}
	s.created = event
	return event, nil
}

func (s *eventRepoStub) GetEvent(ctx context.Context, id string) (Event, error) {
	if s.err != nil {
		return Event{}, s.err
	}
	if s.event.ID == "" || s.event.ID != id {
		return Event{}, ErrNotFound
	}
	return s.event, nil
}

func (s *eventRepoStub) SaveEvent(ctx context.Context, event Event, expectedVersion int64) (Event, error) {
	if s.saveErr != nil {
		return Event{}, s.saveErr
	}
	s.saved = append(s.saved, event)
	s.savedVers = append(s.savedVers, expectedVersion)
	return event, nil
}

func (s *eventRepoStub) DeleteEvent(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = id
	return nil
}

func (s *eventRepoStub) ListEvents(ctx context.Context) ([]Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Event, len(s.list))
	copy(out, s.list)
	return out, nil
}

func (s *eventRepoStub) ListEventsForUser(ctx context.Context, userID string) ([]Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Event, len(s.forUser))
	copy(out, s.forUser)
	return out, nil
}

func (s *eventRepoStub) ConfirmationCodeExists(ctx context.Context, code string) (bool, error) {
	if s.codeErr != nil {
		return false, s.codeErr
	}
	return s.usedCodes[code], nil
}

func (s *eventRepoStub) lastSaved(t *testing.T) Event {
	t.Helper()
	if len(s.saved) == 0 {
		t.Fatal("expected a save, got none")
	}
	return s.saved[len(s.saved)-1]
}

type directoryStub struct {
	missing []string
	err     error
}

func (d *directoryStub) MissingUserIDs(ctx context.Context, ids []string) ([]string, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.missing, nil
}

var serviceNow = time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

func fixedServiceNow() time.Time { return serviceNow }

func inMillis(d time.Duration) int64 {
	return serviceNow.Add(d).UnixMilli()
}

func int64ptr(v int64) *int64 { return &v }

func newEventService(repo *eventRepoStub, users UserDirectory, opts EventServiceOptions) *EventService {
	codes := []string{"CODE-1", "CODE-2", "CODE-3", "CODE-4", "CODE-5"}
	next := 0
	codeGen := func() string {
		if next >= len(codes) {
			return ""
		}
		code := codes[next]
		next++
		return code
	}
	if users == nil {
		users = &directoryStub{}
	}
	return NewEventService(repo, users, func() string { return "event-1" }, codeGen, fixedServiceNow, opts)
}

func flexibleEvent(status Status) Event {
	event := Event{
		ID:               "event-1",
		Name:             "design review",
		SchedulingMethod: scheduling.MethodFlexible,
		DurationMillis:   time.Hour.Milliseconds(),
		TimeWindow:       &interval.Range{Start: inMillis(24 * time.Hour), End: inMillis(30 * time.Hour)},
		Status:           status,
		Visibility:       VisibilityPrivate,
		Members: []Member{
			{UserID: "user-creator", Role: governance.RoleCreator, Availability: governance.AvailabilityAvailable},
			{UserID: "user-admin", Role: governance.RoleAdmin, Availability: governance.AvailabilityAvailable},
			{UserID: "user-guest", Role: governance.RoleParticipant, Availability: governance.AvailabilityInvited},
		},
		CreatedAt: serviceNow.Add(-time.Hour),
		UpdatedAt: serviceNow.Add(-time.Hour),
		Version:   3,
	}
	if status == StatusScheduled || status == StatusConfirmed {
		event.ScheduledTime = int64ptr(inMillis(25 * time.Hour))
	}
	if status == StatusConfirmed {
		event.ConfirmationCode = "CODE-OLD"
	}
	return event
}

func TestEventService_CreateEvent_RequiresActor(t *testing.T) {
	t.Parallel()

	svc := newEventService(&eventRepoStub{}, nil, EventServiceOptions{})

	_, _, err := svc.CreateEvent(context.Background(), CreateEventParams{})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestEventService_CreateEvent_Flexible(t *testing.T) {
	t.Parallel()

	repo := &eventRepoStub{}
	svc := newEventService(repo, nil, EventServiceOptions{})

	event, warnings, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{UserID: "user-creator"},
		Input: EventInput{
			Name:             "design review",
			SchedulingMethod: scheduling.MethodFlexible,
			DurationMillis:   time.Hour.Milliseconds(),
			TimeWindow:       &interval.Range{Start: inMillis(24 * time.Hour), End: inMillis(30 * time.Hour)},
			ScheduledTime:    int64ptr(inMillis(25 * time.Hour)),
			Visibility:       VisibilityPrivate,
			InitialMembers:   []Member{{UserID: "user-guest"}},
		},
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if warnings != nil {
		t.Fatalf("expected no warnings, got %v", warnings)
	}

	if event.Status != StatusScheduling {
		t.Fatalf("flexible creation must start in scheduling, got %s", event.Status)
	}
	if event.ScheduledTime != nil {
		t.Fatal("scheduled time must be cleared until negotiation picks one")
	}
	if len(event.Members) != 2 || event.Members[0].UserID != "user-creator" || event.Members[0].Role != governance.RoleCreator {
		t.Fatalf("creator must anchor the member list, got %+v", event.Members)
	}
	if event.Members[1].Role != governance.RoleParticipant || event.Members[1].Availability != governance.AvailabilityInvited {
		t.Fatalf("invited member defaults wrong: %+v", event.Members[1])
	}
	if event.Version != 1 {
		t.Fatalf("expected initial version 1, got %d", event.Version)
	}
	if repo.created.ID != "event-1" {
		t.Fatalf("expected persisted event, got %+v", repo.created)
	}
}

func TestEventService_CreateEvent_FixedConfirmsWithCode(t *testing.T) {
	t.Parallel()

	repo := &eventRepoStub{usedCodes: map[string]bool{"CODE-1": true, "CODE-2": true}}
	svc := newEventService(repo, nil, EventServiceOptions{})

	event, _, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{UserID: "user-creator"},
		Input: EventInput{
			Name:             "board meeting",
			SchedulingMethod: scheduling.MethodFixed,
			DurationMillis:   time.Hour.Milliseconds(),
			ScheduledTime:    int64ptr(inMillis(48 * time.Hour)),
			Visibility:       VisibilityPrivate,
			// Negotiation inputs are dropped for fixed events.
			TimeWindow:      &interval.Range{Start: inMillis(time.Hour), End: inMillis(2 * time.Hour)},
			BlackoutPeriods: []interval.Range{{Start: inMillis(time.Hour), End: inMillis(2 * time.Hour)}},
		},
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	if event.Status != StatusConfirmed {
		t.Fatalf("fixed creation with a time must confirm, got %s", event.Status)
	}
	if event.TimeWindow != nil || event.BlackoutPeriods != nil {
		t.Fatalf("negotiation inputs must be cleared for fixed events: %+v", event)
	}
	// The first two candidate codes are taken; minting retries until a free one.
	if event.ConfirmationCode != "CODE-3" {
		t.Fatalf("expected CODE-3 after collision retries, got %q", event.ConfirmationCode)
	}
}

func TestEventService_CreateEvent_AggregatesViolations(t *testing.T) {
	t.Parallel()

	svc := newEventService(&eventRepoStub{}, nil, EventServiceOptions{})

	_, _, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{UserID: "user-creator"},
		Input: EventInput{
			Name:             "",
			SchedulingMethod: scheduling.MethodFlexible,
			DurationMillis:   10,
		},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "duration", "time_window"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %q violation, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestEventService_CreateEvent_RejectsUnknownMembers(t *testing.T) {
	t.Parallel()

	svc := newEventService(&eventRepoStub{}, &directoryStub{missing: []string{"user-ghost"}}, EventServiceOptions{})

	_, _, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{UserID: "user-creator"},
		Input: EventInput{
			Name:             "design review",
			SchedulingMethod: scheduling.MethodFlexible,
			DurationMillis:   time.Hour.Milliseconds(),
			TimeWindow:       &interval.Range{Start: inMillis(24 * time.Hour), End: inMillis(30 * time.Hour)},
			InitialMembers:   []Member{{UserID: "user-ghost"}},
		},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["members"]; !ok {
		t.Fatalf("expected members violation, got %v", vErr.FieldErrors)
	}
}

func TestEventService_UpdateEvent_Authorization(t *testing.T) {
	t.Parallel()

	name := "renamed"

	tests := map[string]struct {
		actor   string
		wantErr error
	}{
		"stranger is rejected":    {actor: "user-nobody", wantErr: ErrForbidden},
		"participant is rejected": {actor: "user-guest", wantErr: ErrForbidden},
		"admin may edit":          {actor: "user-admin"},
		"creator may edit":        {actor: "user-creator"},
	}

	for tname, tc := range tests {
		tc := tc
		t.Run(tname, func(t *testing.T) {
			t.Parallel()

			repo := &eventRepoStub{event: flexibleEvent(StatusScheduling)}
			svc := newEventService(repo, nil, EventServiceOptions{})

			_, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
				Principal: Principal{UserID: tc.actor},
				EventID:   "event-1",
				Patch:     EventPatch{Name: &name},
			})

			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateEvent: %v", err)
			}
			if repo.lastSaved(t).Name != "renamed" {
				t.Fatalf("expected rename to persist, got %+v", repo.lastSaved(t))
			}
		})
	}
}

func TestEventService_UpdateEvent_DowngradesOnScheduleChange(t *testing.T) {
	t.Parallel()

	repo := &eventRepoStub{event: flexibleEvent(StatusConfirmed)}
	svc := newEventService(repo, nil, EventServiceOptions{})

	window := interval.Range{Start: inMillis(48 * time.Hour), End: inMillis(54 * time.Hour)}
	event, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: Principal{UserID: "user-admin"},
		EventID:   "event-1",
		Patch:     EventPatch{TimeWindow: &window},
	})
	if err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}

	if event.Status != StatusScheduling {
		t.Fatalf("touching the window must re-open negotiation, got %s", event.Status)
	}
	if event.ScheduledTime != nil {
		t.Fatal("scheduled time must be cleared on downgrade")
	}
	if event.ConfirmationCode != "" {
		t.Fatal("confirmation code must be cleared on downgrade")
	}
	if repo.savedVers[0] != 3 {
		t.Fatalf("save must be guarded by the loaded version, got %d", repo.savedVers[0])
	}
}

func TestEventService_UpdateEvent_ExplicitStatusWins(t *testing.T) {
	t.Parallel()

	repo := &eventRepoStub{event: flexibleEvent(StatusScheduled)}
	svc := newEventService(repo, nil, EventServiceOptions{})

	status := StatusScheduled
	event, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: Principal{UserID: "user-admin"},
		EventID:   "event-1",
		Patch: EventPatch{
			ScheduledTime: int64ptr(inMillis(26 * time.Hour)),
			Status:        &status,
		},
	})
	if err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}

	if event.Status != StatusScheduled {
		t.Fatalf("explicit status must override the downgrade rule, got %s", event.Status)
	}
	if event.ScheduledTime == nil || *event.ScheduledTime != inMillis(26*time.Hour) {
		t.Fatalf("expected moved scheduled time, got %+v", event.ScheduledTime)
	}
}

func TestEventService_UpdateEvent_ConfirmMintsCode(t *testing.T) {
	t.Parallel()

	repo := &eventRepoStub{event: flexibleEvent(StatusScheduled)}
	svc := newEventService(repo, nil, EventServiceOptions{})

	status := StatusConfirmed
	event, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: Principal{UserID: "user-creator"},
		EventID:   "event-1",
		Patch:     EventPatch{Status: &status},
	})
	if err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}

	if event.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", event.Status)
	}
	if event.ConfirmationCode != "CODE-1" {
		t.Fatalf("expected minted code, got %q", event.ConfirmationCode)
	}
}

func TestEventService_UpdateEvent_CancelTravelsAlone(t *testing.T) {
	t.Parallel()

	repo := &eventRepoStub{event: flexibleEvent(StatusScheduled)}
	svc := newEventService(repo, nil, EventServiceOptions{})

	status := StatusCancelled
	name := "renamed"
	_, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: Principal{UserID: "user-admin"},
		EventID:   "event-1",
		Patch:     EventPatch{Status: &status, Name: &name},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	event, warnings, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: Principal{UserID: "user-admin"},
		EventID:   "event-1",
		Patch:     EventPatch{Status: &status},
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if event.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", event.Status)
	}
	if warnings != nil {
		t.Fatalf("cancelled events carry no warnings, got %v", warnings)
	}
}

func TestEventService_UpdateEvent_CancelledIsImmutable(t *testing.T) {
	t.Parallel()

	repo := &eventRepoStub{event: flexibleEvent(StatusCancelled)}
	svc := newEventService(repo, nil, EventServiceOptions{})

	name := "renamed"
	_, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: Principal{UserID: "user-creator"},
		EventID:   "event-1",
		Patch:     EventPatch{Name: &name},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(repo.saved) != 0 {
		t.Fatal("cancelled event must not be written")
	}
}

func TestEventService_UpdateEvent_NoReturnToDraft(t *testing.T) {
	t.Parallel()

	event := flexibleEvent(StatusScheduling)
	event.Visibility = VisibilityPublic
	repo := &eventRepoStub{event: event}
	svc := newEventService(repo, nil, EventServiceOptions{})

	visibility := VisibilityDraft
	_, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: Principal{UserID: "user-creator"},
		EventID:   "event-1",
		Patch:     EventPatch{Visibility: &visibility},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["visibility"]; !ok {
		t.Fatalf("expected visibility violation, got %v", vErr.FieldErrors)
	}
}

func TestEventService_UpdateEvent_MemberPatchGovernance(t *testing.T) {
	t.Parallel()

	repo := &eventRepoStub{event: flexibleEvent(StatusScheduling)}
	svc := newEventService(repo, nil, EventServiceOptions{})

	// An admin may not promote anyone to creator.
	proposed := append([]Member{}, flexibleEvent(StatusScheduling).Members...)
	proposed[1].Role = governance.RoleCreator

	_, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: Principal{UserID: "user-admin"},
		EventID:   "event-1",
		Patch:     EventPatch{Members: &proposed},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(repo.saved) != 0 {
		t.Fatal("denied member patch must leave the event untouched")
	}
}

func TestEventService_UpdateEvent_NoOpSkipsWrite(t *testing.T) {
	t.Parallel()

	existing := flexibleEvent(StatusScheduling)
	repo := &eventRepoStub{event: existing}
	svc := newEventService(repo, nil, EventServiceOptions{})

	sameName := existing.Name
	event, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: Principal{UserID: "user-creator"},
		EventID:   "event-1",
		Patch:     EventPatch{Name: &sameName},
	})
	if err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	if len(repo.saved) != 0 {
		t.Fatal("identical patch must not issue a write")
	}
	if event.Version != existing.Version {
		t.Fatalf("expected unchanged version, got %d", event.Version)
	}
}

func TestEventService_UpdateEvent_VersionConflict(t *testing.T) {
	t.Parallel()

	repo := &eventRepoStub{event: flexibleEvent(StatusScheduling), saveErr: persistence.ErrConflict}
	svc := newEventService(repo, nil, EventServiceOptions{})

	name := "renamed"
	_, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: Principal{UserID: "user-creator"},
		EventID:   "event-1",
		Patch:     EventPatch{Name: &name},
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestEventService_DeleteEvent(t *testing.T) {
	t.Parallel()

	t.Run("only the original creator may delete", func(t *testing.T) {
		t.Parallel()

		repo := &eventRepoStub{event: flexibleEvent(StatusScheduling)}
		svc := newEventService(repo, nil, EventServiceOptions{})

		if err := svc.DeleteEvent(context.Background(), Principal{UserID: "user-admin"}, "event-1"); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if err := svc.DeleteEvent(context.Background(), Principal{UserID: "user-creator"}, "event-1"); err != nil {
			t.Fatalf("DeleteEvent: %v", err)
		}
		if repo.deleted != "event-1" {
			t.Fatalf("expected delete, got %q", repo.deleted)
		}
	})

	t.Run("confirmed events must be cancelled first", func(t *testing.T) {
		t.Parallel()

		repo := &eventRepoStub{event: flexibleEvent(StatusConfirmed)}
		svc := newEventService(repo, nil, EventServiceOptions{})

		err := svc.DeleteEvent(context.Background(), Principal{UserID: "user-creator"}, "event-1")
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("cancelled events are deletable", func(t *testing.T) {
		t.Parallel()

		repo := &eventRepoStub{event: flexibleEvent(StatusCancelled)}
		svc := newEventService(repo, nil, EventServiceOptions{})

		if err := svc.DeleteEvent(context.Background(), Principal{UserID: "user-creator"}, "event-1"); err != nil {
			t.Fatalf("DeleteEvent: %v", err)
		}
	})
}

func TestEventService_UpdateOwnMemberSettings(t *testing.T) {
	t.Parallel()

	repo := &eventRepoStub{event: flexibleEvent(StatusScheduling)}
	svc := newEventService(repo, nil, EventServiceOptions{})

	availability := governance.AvailabilityUnavailable
	event, err := svc.UpdateOwnMemberSettings(context.Background(), Principal{UserID: "user-guest"}, "event-1", MemberSettingsInput{
		Availability:       &availability,
		PaddingAfterMillis: int64ptr(15 * time.Minute.Milliseconds()),
	})
	if err != nil {
		t.Fatalf("UpdateOwnMemberSettings: %v", err)
	}

	member, ok := event.MemberByUserID("user-guest")
	if !ok {
		t.Fatal("member vanished")
	}
	if member.Availability != governance.AvailabilityUnavailable {
		t.Fatalf("availability not applied: %+v", member)
	}
	if member.PaddingAfterMillis == nil || *member.PaddingAfterMillis != 15*time.Minute.Milliseconds() {
		t.Fatalf("padding not applied: %+v", member)
	}

	if _, err := svc.UpdateOwnMemberSettings(context.Background(), Principal{UserID: "user-nobody"}, "event-1", MemberSettingsInput{Availability: &availability}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestEventService_BlackoutMutations(t *testing.T) {
	t.Parallel()

	t.Run("add merges overlapping windows", func(t *testing.T) {
		t.Parallel()

		existing := flexibleEvent(StatusScheduling)
		existing.BlackoutPeriods = []interval.Range{{Start: inMillis(25 * time.Hour), End: inMillis(26 * time.Hour)}}
		repo := &eventRepoStub{event: existing}
		svc := newEventService(repo, nil, EventServiceOptions{})

		event, err := svc.AddBlackoutPeriod(context.Background(), Principal{UserID: "user-admin"}, "event-1",
			interval.Range{Start: inMillis(25*time.Hour + 30*time.Minute), End: inMillis(27 * time.Hour)})
		if err != nil {
			t.Fatalf("AddBlackoutPeriod: %v", err)
		}

		want := interval.Range{Start: inMillis(25 * time.Hour), End: inMillis(27 * time.Hour)}
		if len(event.BlackoutPeriods) != 1 || event.BlackoutPeriods[0] != want {
			t.Fatalf("expected merged blackout %v, got %v", want, event.BlackoutPeriods)
		}
	})

	t.Run("remove splits covering windows", func(t *testing.T) {
		t.Parallel()

		existing := flexibleEvent(StatusScheduling)
		existing.BlackoutPeriods = []interval.Range{{Start: inMillis(25 * time.Hour), End: inMillis(28 * time.Hour)}}
		repo := &eventRepoStub{event: existing}
		svc := newEventService(repo, nil, EventServiceOptions{})

		event, err := svc.RemoveBlackoutPeriod(context.Background(), Principal{UserID: "user-admin"}, "event-1",
			interval.Range{Start: inMillis(26 * time.Hour), End: inMillis(27 * time.Hour)})
		if err != nil {
			t.Fatalf("RemoveBlackoutPeriod: %v", err)
		}

		if len(event.BlackoutPeriods) != 2 {
			t.Fatalf("expected split into two windows, got %v", event.BlackoutPeriods)
		}
	})

	t.Run("touching blackouts re-opens a scheduled event", func(t *testing.T) {
		t.Parallel()

		repo := &eventRepoStub{event: flexibleEvent(StatusScheduled)}
		svc := newEventService(repo, nil, EventServiceOptions{})

		event, err := svc.AddBlackoutPeriod(context.Background(), Principal{UserID: "user-creator"}, "event-1",
			interval.Range{Start: inMillis(26 * time.Hour), End: inMillis(27 * time.Hour)})
		if err != nil {
			t.Fatalf("AddBlackoutPeriod: %v", err)
		}
		if event.Status != StatusScheduling || event.ScheduledTime != nil {
			t.Fatalf("expected downgrade, got %+v", event)
		}
	})

	t.Run("participants may not touch blackouts", func(t *testing.T) {
		t.Parallel()

		repo := &eventRepoStub{event: flexibleEvent(StatusScheduling)}
		svc := newEventService(repo, nil, EventServiceOptions{})

		_, err := svc.AddBlackoutPeriod(context.Background(), Principal{UserID: "user-guest"}, "event-1",
			interval.Range{Start: inMillis(26 * time.Hour), End: inMillis(27 * time.Hour)})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestEventService_RemoveUserFromEvents(t *testing.T) {
	t.Parallel()

	t.Run("strips memberships", func(t *testing.T) {
		t.Parallel()

		event := flexibleEvent(StatusScheduling)
		repo := &eventRepoStub{forUser: []Event{event}}
		svc := newEventService(repo, nil, EventServiceOptions{})

		if err := svc.RemoveUserFromEvents(context.Background(), "user-guest"); err != nil {
			t.Fatalf("RemoveUserFromEvents: %v", err)
		}

		saved := repo.lastSaved(t)
		if _, ok := saved.MemberByUserID("user-guest"); ok {
			t.Fatalf("expected membership removed, got %+v", saved.Members)
		}
		if len(saved.Members) != 2 {
			t.Fatalf("expected remaining members untouched, got %+v", saved.Members)
		}
	})

	t.Run("refuses while user anchors an event", func(t *testing.T) {
		t.Parallel()

		repo := &eventRepoStub{forUser: []Event{flexibleEvent(StatusScheduling)}}
		svc := newEventService(repo, nil, EventServiceOptions{})

		if err := svc.RemoveUserFromEvents(context.Background(), "user-creator"); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
		if len(repo.saved) != 0 {
			t.Fatal("refusal must leave events untouched")
		}
	})
}

func TestEventService_GetEvent_Visibility(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		visibility Visibility
		actor      string
		wantErr    error
	}{
		"public to strangers":        {visibility: VisibilityPublic, actor: "user-nobody"},
		"public to anonymous":        {visibility: VisibilityPublic},
		"private to members":         {visibility: VisibilityPrivate, actor: "user-guest"},
		"private blocks strangers":   {visibility: VisibilityPrivate, actor: "user-nobody", wantErr: ErrForbidden},
		"private blocks anonymous":   {visibility: VisibilityPrivate, wantErr: ErrUnauthenticated},
		"draft to admins":            {visibility: VisibilityDraft, actor: "user-admin"},
		"draft blocks participants":  {visibility: VisibilityDraft, actor: "user-guest", wantErr: ErrForbidden},
		"missing event is not found": {visibility: VisibilityPublic, actor: "user-creator", wantErr: ErrNotFound},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			event := flexibleEvent(StatusScheduling)
			event.Visibility = tc.visibility
			repo := &eventRepoStub{event: event}
			svc := newEventService(repo, nil, EventServiceOptions{})

			id := "event-1"
			if errors.Is(tc.wantErr, ErrNotFound) {
				id = "event-absent"
			}

			_, _, err := svc.GetEvent(context.Background(), Principal{UserID: tc.actor}, id)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetEvent: %v", err)
			}
		})
	}
}

func TestEventService_AdvisoryBlackoutWarnings(t *testing.T) {
	t.Parallel()

	event := flexibleEvent(StatusScheduled)
	event.BlackoutPeriods = []interval.Range{{Start: inMillis(24 * time.Hour), End: inMillis(26 * time.Hour)}}

	repo := &eventRepoStub{event: event}
	svc := newEventService(repo, nil, EventServiceOptions{})

	_, warnings, err := svc.GetEvent(context.Background(), Principal{UserID: "user-guest"}, "event-1")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Type != WarningTypeBlackoutOverlap {
		t.Fatalf("expected one blackout warning, got %v", warnings)
	}
	if warnings[0].EventID != "event-1" {
		t.Fatalf("warning must name the event, got %+v", warnings[0])
	}
}

func TestEventService_EnforcedBlackoutRejectsOverlap(t *testing.T) {
	t.Parallel()

	event := flexibleEvent(StatusScheduled)
	repo := &eventRepoStub{event: event}
	svc := newEventService(repo, nil, EventServiceOptions{EnforceBlackoutExclusion: true})

	blackouts := []interval.Range{{Start: inMillis(24 * time.Hour), End: inMillis(26 * time.Hour)}}
	status := StatusScheduled
	_, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: Principal{UserID: "user-admin"},
		EventID:   "event-1",
		Patch:     EventPatch{BlackoutPeriods: &blackouts, Status: &status},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["scheduled_time"]; !ok {
		t.Fatalf("expected scheduled_time violation, got %v", vErr.FieldErrors)
	}
}

func TestEventService_ListEvents_FiltersAndSorts(t *testing.T) {
	t.Parallel()

	visible := flexibleEvent(StatusScheduling)
	visible.Visibility = VisibilityPublic

	hidden := flexibleEvent(StatusScheduling)
	hidden.ID = "event-2"
	hidden.Visibility = VisibilityPrivate
	hidden.Members = []Member{{UserID: "user-other", Role: governance.RoleCreator, Availability: governance.AvailabilityAvailable}}

	older := flexibleEvent(StatusScheduling)
	older.ID = "event-0"
	older.Visibility = VisibilityPublic
	older.CreatedAt = visible.CreatedAt.Add(-time.Hour)

	repo := &eventRepoStub{list: []Event{visible, hidden, older}}
	svc := newEventService(repo, nil, EventServiceOptions{})

	events, _, err := svc.ListEvents(context.Background(), Principal{UserID: "user-nobody"})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected private event filtered out, got %+v", events)
	}
	if events[0].ID != "event-0" || events[1].ID != "event-1" {
		t.Fatalf("expected creation order, got %s then %s", events[0].ID, events[1].ID)
	}
}

func TestEventService_DailyStartMismatchWarning(t *testing.T) {
	t.Parallel()

	// The fixture schedules 2024-03-15 10:00 UTC, which is 19:00 in JST.
	event := flexibleEvent(StatusScheduled)
	event.DailyStartConstraints = []interval.Range{{Start: 600, End: 660}}

	repo := &eventRepoStub{event: event}
	svc := newEventService(repo, nil, EventServiceOptions{})

	_, warnings, err := svc.GetEvent(context.Background(), Principal{UserID: "user-guest"}, "event-1")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Type != WarningTypeDailyStartMismatch {
		t.Fatalf("expected one daily start warning, got %v", warnings)
	}
	if warnings[0].Range.Start != *event.ScheduledTime {
		t.Fatalf("warning must cover the scheduled span, got %+v", warnings[0].Range)
	}
}

func TestEventService_DailyStartSatisfiedStaysSilent(t *testing.T) {
	t.Parallel()

	event := flexibleEvent(StatusScheduled)
	event.DailyStartConstraints = []interval.Range{{Start: 1140, End: 1200}}

	repo := &eventRepoStub{event: event}
	svc := newEventService(repo, nil, EventServiceOptions{})

	_, warnings, err := svc.GetEvent(context.Background(), Principal{UserID: "user-guest"}, "event-1")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
}

func TestEventService_ListEvents_MemberOverlapWarnings(t *testing.T) {
	t.Parallel()

	first := flexibleEvent(StatusScheduled)
	first.Visibility = VisibilityPublic

	second := flexibleEvent(StatusScheduled)
	second.ID = "event-2"
	second.Visibility = VisibilityPublic
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	second.ScheduledTime = int64ptr(inMillis(25*time.Hour + 30*time.Minute))
	second.Members = []Member{
		{UserID: "user-other", Role: governance.RoleCreator, Availability: governance.AvailabilityAvailable},
		{UserID: "user-guest", Role: governance.RoleParticipant, Availability: governance.AvailabilityAvailable},
	}

	repo := &eventRepoStub{list: []Event{first, second}}
	svc := newEventService(repo, nil, EventServiceOptions{})

	_, warnings, err := svc.ListEvents(context.Background(), Principal{UserID: "user-nobody"})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one overlap warning, got %v", warnings)
	}
	warning := warnings[0]
	if warning.Type != WarningTypeMemberOverlap || warning.UserID != "user-guest" {
		t.Fatalf("unexpected warning: %+v", warning)
	}
	if warning.EventID != "event-2" || warning.WithEventID != "event-1" {
		t.Fatalf("warning must name both events, got %+v", warning)
	}
	if warning.Range.Start != *second.ScheduledTime {
		t.Fatalf("overlap must begin at the later start, got %+v", warning.Range)
	}
}

func TestEventService_ListEvents_NoOverlapWithoutSharedTime(t *testing.T) {
	t.Parallel()

	first := flexibleEvent(StatusScheduled)
	first.Visibility = VisibilityPublic

	// Same members but still collecting availability, so no span is claimed.
	second := flexibleEvent(StatusScheduling)
	second.ID = "event-2"
	second.Visibility = VisibilityPublic

	repo := &eventRepoStub{list: []Event{first, second}}
	svc := newEventService(repo, nil, EventServiceOptions{})

	_, warnings, err := svc.ListEvents(context.Background(), Principal{UserID: "user-nobody"})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
}

func TestEventService_CreateEvent_RejectsOutOfWindowScheduledTime(t *testing.T) {
	t.Parallel()

	repo := &eventRepoStub{}
	svc := newEventService(repo, nil, EventServiceOptions{})

	// The slot would end half an hour past the window.
	_, _, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{UserID: "user-creator"},
		Input: EventInput{
			Name:             "design review",
			SchedulingMethod: scheduling.MethodFlexible,
			DurationMillis:   time.Hour.Milliseconds(),
			TimeWindow:       &interval.Range{Start: inMillis(24 * time.Hour), End: inMillis(30 * time.Hour)},
			ScheduledTime:    int64ptr(inMillis(29*time.Hour + 30*time.Minute)),
			Visibility:       VisibilityPrivate,
		},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["scheduled_time"]; !ok {
		t.Fatalf("expected scheduled_time violation, got %v", vErr.FieldErrors)
	}
	if repo.created.ID != "" {
		t.Fatalf("rejected creation must not persist, got %+v", repo.created)
	}
}

func TestEventService_UpdateEvent_ConfirmedScheduleFrozen(t *testing.T) {
	t.Parallel()

	confirmed := StatusConfirmed

	tests := map[string]struct {
		patch EventPatch
		field string
	}{
		"duration": {
			patch: EventPatch{Status: &confirmed, DurationMillis: int64ptr(2 * time.Hour.Milliseconds())},
			field: "duration",
		},
		"scheduled time": {
			patch: EventPatch{Status: &confirmed, ScheduledTime: int64ptr(inMillis(26 * time.Hour))},
			field: "scheduled_time",
		},
		"time window": {
			patch: EventPatch{Status: &confirmed, TimeWindow: &interval.Range{Start: inMillis(48 * time.Hour), End: inMillis(54 * time.Hour)}},
			field: "time_window",
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			repo := &eventRepoStub{event: flexibleEvent(StatusConfirmed)}
			svc := newEventService(repo, nil, EventServiceOptions{})

			_, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
				Principal: Principal{UserID: "user-admin"},
				EventID:   "event-1",
				Patch:     tc.patch,
			})

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Fatalf("expected %s violation, got %v", tc.field, vErr.FieldErrors)
			}
			if len(repo.saved) != 0 {
				t.Fatalf("frozen fields must not be written, got %+v", repo.saved)
			}
		})
	}

	t.Run("explicit downgrade unlocks the schedule", func(t *testing.T) {
		t.Parallel()

		repo := &eventRepoStub{event: flexibleEvent(StatusConfirmed)}
		svc := newEventService(repo, nil, EventServiceOptions{})

		reopened := StatusScheduling
		event, _, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
			Principal: Principal{UserID: "user-admin"},
			EventID:   "event-1",
			Patch:     EventPatch{Status: &reopened, DurationMillis: int64ptr(2 * time.Hour.Milliseconds())},
		})
		if err != nil {
			t.Fatalf("UpdateEvent: %v", err)
		}
		if event.Status != StatusScheduling || event.ScheduledTime != nil {
			t.Fatalf("expected negotiation re-opened, got status=%s scheduledTime=%v", event.Status, event.ScheduledTime)
		}
		if event.DurationMillis != 2*time.Hour.Milliseconds() {
			t.Fatalf("expected duration updated, got %d", event.DurationMillis)
		}
	})
}
