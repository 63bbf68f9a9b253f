package governance

import "errors"

// Role identifies the authority level of an event member.
type Role string

const (
	// RoleCreator grants full governance rights over the event.
	RoleCreator Role = "creator"
	// RoleAdmin grants day-to-day management rights below creator.
	RoleAdmin Role = "admin"
	// RoleParticipant grants attendance and self-service rights only.
	RoleParticipant Role = "participant"
)

// Availability describes a member's response to the event.
type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityUnavailable Availability = "unavailable"
	AvailabilityInvited     Availability = "invited"
)

// Member is the governance view of an event member. The slice position of the
// first member designates the original creator.
type Member struct {
	UserID       string
	Role         Role
	Availability Availability
	PaddingAfter *int64
}

// ErrNotMember indicates the acting user does not belong to the event.
var ErrNotMember = errors.New("governance: actor is not a member")

var roleRank = map[Role]int{
	RoleParticipant: 1,
	RoleAdmin:       2,
	RoleCreator:     3,
}

// ValidRole reports whether the role value is one of the known roles.
func ValidRole(role Role) bool {
	_, ok := roleRank[role]
	return ok
}

// ValidAvailability reports whether the availability value is known.
func ValidAvailability(availability Availability) bool {
	switch availability {
	case AvailabilityAvailable, AvailabilityUnavailable, AvailabilityInvited:
		return true
	}
	return false
}

// Denial explains why a member-list change was rejected.
type Denial struct {
	UserID string
	Reason string
}

// Find returns the member with the given user id, if present.
func Find(members []Member, userID string) (Member, bool) {
	for _, member := range members {
		if member.UserID == userID {
			return member, true
		}
	}
	return Member{}, false
}

// CheckMemberPatch authorizes a proposed full replacement of the member list.
// The proposal is diffed against the current list by user id and every
// individual addition, removal, promotion and demotion must be permitted for
// the acting member; a single denial rejects the whole patch.
//
// Structural requirements checked here, independent of the actor:
//   - the list is non-empty and user ids are unique,
//   - the original creator (current index 0) keeps its identity and role,
//   - at least one creator remains.
func CheckMemberPatch(current []Member, proposed []Member, actorID string) []Denial {
	denials := make([]Denial, 0)

	if len(current) == 0 {
		return append(denials, Denial{Reason: "event has no members"})
	}
	originalCreator := current[0]

	actor, ok := Find(current, actorID)
	if !ok {
		return append(denials, Denial{UserID: actorID, Reason: "actor is not a member"})
	}

	if len(proposed) == 0 {
		return append(denials, Denial{Reason: "member list cannot be empty"})
	}

	seen := make(map[string]struct{}, len(proposed))
	creators := 0
	for _, member := range proposed {
		if _, dup := seen[member.UserID]; dup {
			denials = append(denials, Denial{UserID: member.UserID, Reason: "duplicate member"})
		}
		seen[member.UserID] = struct{}{}
		if member.Role == RoleCreator {
			creators++
		}
	}
	if creators == 0 {
		denials = append(denials, Denial{Reason: "at least one creator is required"})
	}

	if proposed[0].UserID != originalCreator.UserID {
		denials = append(denials, Denial{UserID: originalCreator.UserID, Reason: "original creator cannot be displaced"})
	}
	if kept, ok := Find(proposed, originalCreator.UserID); !ok {
		denials = append(denials, Denial{UserID: originalCreator.UserID, Reason: "original creator cannot be removed"})
	} else if kept.Role != RoleCreator {
		denials = append(denials, Denial{UserID: originalCreator.UserID, Reason: "original creator role cannot change"})
	}

	if len(denials) > 0 {
		return denials
	}

	isOriginalCreator := actorID == originalCreator.UserID

	// Removals and demotions of existing members.
	for _, before := range current {
		after, kept := Find(proposed, before.UserID)
		if !kept {
			if reason := removalDenied(actor, before, isOriginalCreator); reason != "" {
				denials = append(denials, Denial{UserID: before.UserID, Reason: reason})
			}
			continue
		}
		if after.Role != before.Role {
			if reason := roleChangeDenied(actor, before, after, isOriginalCreator); reason != "" {
				denials = append(denials, Denial{UserID: before.UserID, Reason: reason})
			}
		}
	}

	// Additions.
	for _, after := range proposed {
		if _, existed := Find(current, after.UserID); existed {
			continue
		}
		if reason := additionDenied(actor, after); reason != "" {
			denials = append(denials, Denial{UserID: after.UserID, Reason: reason})
		}
	}

	if len(denials) == 0 {
		return nil
	}
	return denials
}

func removalDenied(actor, target Member, actorIsOriginal bool) string {
	switch actor.Role {
	case RoleCreator:
		// Leaving the event is always the member's own call.
		if target.Role == RoleCreator && !actorIsOriginal && target.UserID != actor.UserID {
			return "only the original creator may remove a creator"
		}
		return ""
	case RoleAdmin:
		if target.Role != RoleParticipant {
			return "admins may only remove participants"
		}
		return ""
	default:
		return "participants cannot modify membership"
	}
}

func roleChangeDenied(actor, before, after Member, actorIsOriginal bool) string {
	if !ValidRole(after.Role) {
		return "unknown role"
	}

	switch actor.Role {
	case RoleCreator:
		// Demoting a peer creator is reserved for the original creator.
		if before.Role == RoleCreator && !actorIsOriginal && before.UserID != actor.UserID {
			return "only the original creator may demote a creator"
		}
		return ""
	case RoleAdmin:
		if before.Role == RoleAdmin && after.Role == RoleParticipant {
			return ""
		}
		if roleRank[after.Role] > roleRank[before.Role] {
			return "admins cannot promote members"
		}
		return "admins may only demote admins to participants"
	default:
		return "participants cannot modify membership"
	}
}

func additionDenied(actor, added Member) string {
	if !ValidRole(added.Role) {
		return "unknown role"
	}

	switch actor.Role {
	case RoleCreator:
		return ""
	case RoleAdmin:
		if added.Role != RoleParticipant {
			return "admins may only add participants"
		}
		return ""
	default:
		return "participants cannot modify membership"
	}
}

// CanManageEvent reports whether the member may mutate event fields at all.
func CanManageEvent(member Member) bool {
	return member.Role == RoleCreator || member.Role == RoleAdmin
}
