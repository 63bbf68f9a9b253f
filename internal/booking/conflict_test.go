package booking

import (
	"testing"

	"github.com/example/event-coordinator/internal/interval"
)

func TestDetectConflictsFindsSharedMemberOverlap(t *testing.T) {
	t.Parallel()

	bookings := []Booking{
		{
			EventID: "event-a",
			Start:   1000,
			End:     2000,
			Members: []Member{{UserID: "user-1"}, {UserID: "user-2"}},
		},
		{
			EventID: "event-b",
			Start:   1500,
			End:     2500,
			Members: []Member{{UserID: "user-2"}, {UserID: "user-3"}},
		},
	}

	conflicts := DetectConflicts(bookings)
	if len(conflicts) != 1 {
		t.Fatalf("expected one conflict, got %+v", conflicts)
	}

	conflict := conflicts[0]
	if conflict.UserID != "user-2" {
		t.Fatalf("conflict user = %q, want user-2", conflict.UserID)
	}
	if conflict.EventID != "event-b" || conflict.WithEventID != "event-a" {
		t.Fatalf("conflict pair = %q vs %q", conflict.EventID, conflict.WithEventID)
	}
	if conflict.Overlap != (interval.Range{Start: 1500, End: 2000}) {
		t.Fatalf("overlap = %+v", conflict.Overlap)
	}
}

func TestDetectConflictsIgnoresDisjointAndUnsharedBookings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bookings []Booking
	}{
		{
			name: "no shared member",
			bookings: []Booking{
				{EventID: "event-a", Start: 1000, End: 2000, Members: []Member{{UserID: "user-1"}}},
				{EventID: "event-b", Start: 1000, End: 2000, Members: []Member{{UserID: "user-2"}}},
			},
		},
		{
			name: "back to back without padding",
			bookings: []Booking{
				{EventID: "event-a", Start: 1000, End: 2000, Members: []Member{{UserID: "user-1"}}},
				{EventID: "event-b", Start: 2000, End: 3000, Members: []Member{{UserID: "user-1"}}},
			},
		},
		{
			name:     "single booking",
			bookings: []Booking{{EventID: "event-a", Start: 1000, End: 2000, Members: []Member{{UserID: "user-1"}}}},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if conflicts := DetectConflicts(tc.bookings); conflicts != nil {
				t.Fatalf("expected no conflicts, got %+v", conflicts)
			}
		})
	}
}

func TestDetectConflictsHonoursMemberPadding(t *testing.T) {
	t.Parallel()

	bookings := []Booking{
		{
			EventID: "event-a",
			Start:   1000,
			End:     2000,
			Members: []Member{{UserID: "user-1", PaddingAfterMillis: 500}},
		},
		{
			EventID: "event-b",
			Start:   2200,
			End:     3000,
			Members: []Member{{UserID: "user-1"}},
		},
	}

	conflicts := DetectConflicts(bookings)
	if len(conflicts) != 1 {
		t.Fatalf("expected the padded span to conflict, got %+v", conflicts)
	}
	if conflicts[0].Overlap != (interval.Range{Start: 2200, End: 2500}) {
		t.Fatalf("overlap = %+v", conflicts[0].Overlap)
	}
}

func TestDetectConflictsReportsEachSharedMember(t *testing.T) {
	t.Parallel()

	bookings := []Booking{
		{
			EventID: "event-a",
			Start:   1000,
			End:     2000,
			Members: []Member{{UserID: "user-1"}, {UserID: "user-2"}},
		},
		{
			EventID: "event-b",
			Start:   1000,
			End:     2000,
			Members: []Member{{UserID: "user-1"}, {UserID: "user-2"}},
		},
	}

	conflicts := DetectConflicts(bookings)
	if len(conflicts) != 2 {
		t.Fatalf("expected one conflict per shared member, got %+v", conflicts)
	}
	seen := map[string]bool{}
	for _, conflict := range conflicts {
		seen[conflict.UserID] = true
	}
	if !seen["user-1"] || !seen["user-2"] {
		t.Fatalf("expected conflicts for both members, got %+v", conflicts)
	}
}
