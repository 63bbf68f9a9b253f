// Package booking detects double-booked members across events that already
// hold a concrete time. Findings are advisory; nothing here blocks a write.
package booking

import "github.com/example/event-coordinator/internal/interval"

// Member identifies one attendee of a booking together with the buffer the
// member wants kept free after the event ends.
type Member struct {
	UserID             string
	PaddingAfterMillis int64
}

// Booking is the occupied span one event claims on its members' calendars.
// Start and End are Unix milliseconds; End excludes member padding.
type Booking struct {
	EventID string
	Start   int64
	End     int64
	Members []Member
}

// Conflict reports that a member is claimed by two overlapping bookings.
type Conflict struct {
	EventID     string
	WithEventID string
	UserID      string
	Overlap     interval.Range
}

// DetectConflicts identifies members claimed by more than one booking at the
// same time. A member's padding extends that member's occupied span, so two
// back-to-back events still conflict when the shared member asked for a
// buffer in between. One conflict is reported per booking pair and member,
// attributed to the later booking in input order.
func DetectConflicts(bookings []Booking) []Conflict {
	if len(bookings) < 2 {
		return nil
	}

	conflicts := make([]Conflict, 0)
	for i := 0; i < len(bookings); i++ {
		for j := i + 1; j < len(bookings); j++ {
			conflicts = append(conflicts, pairConflicts(bookings[i], bookings[j])...)
		}
	}
	if len(conflicts) == 0 {
		return nil
	}
	return conflicts
}

func pairConflicts(first, second Booking) []Conflict {
	if first.EventID == second.EventID {
		return nil
	}

	paddings := make(map[string]int64, len(first.Members))
	for _, member := range first.Members {
		paddings[member.UserID] = member.PaddingAfterMillis
	}

	var conflicts []Conflict
	for _, member := range second.Members {
		firstPadding, shared := paddings[member.UserID]
		if !shared {
			continue
		}

		firstSpan := interval.Range{Start: first.Start, End: first.End + firstPadding}
		secondSpan := interval.Range{Start: second.Start, End: second.End + member.PaddingAfterMillis}
		if !firstSpan.Overlaps(secondSpan) {
			continue
		}

		conflicts = append(conflicts, Conflict{
			EventID:     second.EventID,
			WithEventID: first.EventID,
			UserID:      member.UserID,
			Overlap:     intersect(firstSpan, secondSpan),
		})
	}
	return conflicts
}

func intersect(a, b interval.Range) interval.Range {
	start := a.Start
	if b.Start > start {
		start = b.Start
	}
	end := a.End
	if b.End < end {
		end = b.End
	}
	return interval.Range{Start: start, End: end}
}
