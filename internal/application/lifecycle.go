package application

import "github.com/example/event-coordinator/internal/governance"

// Status tracks an event's position in its negotiation lifecycle.
type Status string

const (
	// StatusScheduling means the time is under open negotiation.
	StatusScheduling Status = "scheduling"
	// StatusScheduled means a candidate time has been picked but not locked in.
	StatusScheduled Status = "scheduled"
	// StatusConfirmed means the time is locked in.
	StatusConfirmed Status = "confirmed"
	// StatusCancelled is terminal; no further mutation is possible.
	StatusCancelled Status = "cancelled"
)

// ValidStatus reports whether the status value is known.
func ValidStatus(status Status) bool {
	switch status {
	case StatusScheduling, StatusScheduled, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCancelled
}

// statusTransitions lists the legal forward moves. Staying in place is always
// legal and handled separately.
var statusTransitions = map[Status][]Status{
	StatusScheduling: {StatusScheduled, StatusConfirmed, StatusCancelled},
	StatusScheduled:  {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusCancelled},
	StatusCancelled:  nil,
}

// CanTransitionStatus reports whether moving from one status to another is
// permitted by the lifecycle state machine.
func CanTransitionStatus(from, to Status) bool {
	if from == to {
		return !from.Terminal()
	}
	// Re-opening negotiation is reached only through the implicit downgrade
	// rule, which the aggregate applies itself; an explicit request to move a
	// scheduled or confirmed event back to scheduling is also accepted.
	if to == StatusScheduling {
		return from == StatusScheduled || from == StatusConfirmed
	}
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Visibility controls who may read an event.
type Visibility string

const (
	// VisibilityDraft restricts reads to creators and admins.
	VisibilityDraft Visibility = "draft"
	// VisibilityPublic allows anyone to read the event.
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate restricts reads to members.
	VisibilityPrivate Visibility = "private"
)

// ValidVisibility reports whether the visibility value is known.
func ValidVisibility(visibility Visibility) bool {
	switch visibility {
	case VisibilityDraft, VisibilityPublic, VisibilityPrivate:
		return true
	}
	return false
}

// CanTransitionVisibility reports whether the visibility change is permitted.
// Draft may move anywhere; public and private may swap; returning to draft
// once left is forbidden.
func CanTransitionVisibility(from, to Visibility) bool {
	if from == to {
		return true
	}
	if to == VisibilityDraft {
		return false
	}
	return true
}

// canAccess decides read visibility of an event for a principal.
func canAccess(event Event, principal Principal) bool {
	switch event.Visibility {
	case VisibilityPublic:
		return true
	case VisibilityPrivate:
		_, ok := event.MemberByUserID(principal.UserID)
		return ok && !principal.IsAnonymous()
	case VisibilityDraft:
		member, ok := event.MemberByUserID(principal.UserID)
		if !ok || principal.IsAnonymous() {
			return false
		}
		return governance.CanManageEvent(governance.Member{UserID: member.UserID, Role: member.Role})
	}
	return false
}
