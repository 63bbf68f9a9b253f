package governance

import "testing"

func baseMembers() []Member {
	return []Member{
		{UserID: "owner", Role: RoleCreator, Availability: AvailabilityAvailable},
		{UserID: "second-creator", Role: RoleCreator, Availability: AvailabilityAvailable},
		{UserID: "admin", Role: RoleAdmin, Availability: AvailabilityAvailable},
		{UserID: "member", Role: RoleParticipant, Availability: AvailabilityInvited},
	}
}

func withMember(members []Member, added Member) []Member {
	out := make([]Member, 0, len(members)+1)
	out = append(out, members...)
	out = append(out, added)
	return out
}

func withoutMember(members []Member, userID string) []Member {
	out := make([]Member, 0, len(members))
	for _, member := range members {
		if member.UserID != userID {
			out = append(out, member)
		}
	}
	return out
}

func withRole(members []Member, userID string, role Role) []Member {
	out := make([]Member, len(members))
	copy(out, members)
	for i := range out {
		if out[i].UserID == userID {
			out[i].Role = role
		}
	}
	return out
}

func TestCheckMemberPatch_AllowsCreatorFullControl(t *testing.T) {
	t.Parallel()

	current := baseMembers()

	tests := []struct {
		name     string
		proposed []Member
	}{
		{"add participant", withMember(current, Member{UserID: "new", Role: RoleParticipant})},
		{"add admin", withMember(current, Member{UserID: "new", Role: RoleAdmin})},
		{"promote participant to creator", withRole(current, "member", RoleCreator)},
		{"promote admin to creator", withRole(current, "admin", RoleCreator)},
		{"remove participant", withoutMember(current, "member")},
		{"remove admin", withoutMember(current, "admin")},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if denials := CheckMemberPatch(current, tc.proposed, "second-creator"); denials != nil {
				t.Fatalf("expected patch to be allowed, got %v", denials)
			}
		})
	}
}

func TestCheckMemberPatch_OriginalCreatorIsImmutable(t *testing.T) {
	t.Parallel()

	current := baseMembers()

	tests := []struct {
		name     string
		proposed []Member
		actor    string
	}{
		{"original creator removed", withoutMember(current, "owner"), "second-creator"},
		{"original creator demoted", withRole(current, "owner", RoleAdmin), "second-creator"},
		{"original creator demotes itself", withRole(current, "owner", RoleParticipant), "owner"},
		{"original creator displaced from index zero", append(withoutMember(current, "owner"), current[0]), "owner"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if denials := CheckMemberPatch(current, tc.proposed, tc.actor); denials == nil {
				t.Fatal("expected patch to be denied")
			}
		})
	}
}

func TestCheckMemberPatch_PeerCreatorRules(t *testing.T) {
	t.Parallel()

	current := baseMembers()

	// A non-original creator cannot touch a peer creator.
	if denials := CheckMemberPatch(current, withoutMember(current, "second-creator"), "second-creator"); denials != nil {
		t.Fatalf("creator removing itself should be treated as creator removal by original only, got %v", denials)
	}

	third := withMember(current, Member{UserID: "third-creator", Role: RoleCreator})
	if denials := CheckMemberPatch(third, withoutMember(third, "third-creator"), "second-creator"); denials == nil {
		t.Fatal("expected peer creator removal to be denied")
	}
	if denials := CheckMemberPatch(third, withRole(third, "third-creator", RoleParticipant), "second-creator"); denials == nil {
		t.Fatal("expected peer creator demotion to be denied")
	}

	// The original creator may demote and remove other creators.
	if denials := CheckMemberPatch(third, withoutMember(third, "third-creator"), "owner"); denials != nil {
		t.Fatalf("expected original creator to remove a creator, got %v", denials)
	}
	if denials := CheckMemberPatch(third, withRole(third, "third-creator", RoleAdmin), "owner"); denials != nil {
		t.Fatalf("expected original creator to demote a creator, got %v", denials)
	}
}

func TestCheckMemberPatch_AdminRules(t *testing.T) {
	t.Parallel()

	current := baseMembers()

	allowed := []struct {
		name     string
		proposed []Member
	}{
		{"add participant", withMember(current, Member{UserID: "new", Role: RoleParticipant})},
		{"remove participant", withoutMember(current, "member")},
		{"demote admin to participant", withRole(current, "admin", RoleParticipant)},
	}
	for _, tc := range allowed {
		tc := tc
		t.Run("allowed/"+tc.name, func(t *testing.T) {
			t.Parallel()
			if denials := CheckMemberPatch(current, tc.proposed, "admin"); denials != nil {
				t.Fatalf("expected patch to be allowed, got %v", denials)
			}
		})
	}

	denied := []struct {
		name     string
		proposed []Member
	}{
		{"add creator", withMember(current, Member{UserID: "new", Role: RoleCreator})},
		{"add admin", withMember(current, Member{UserID: "new", Role: RoleAdmin})},
		{"promote participant", withRole(current, "member", RoleAdmin)},
		{"demote creator", withRole(current, "second-creator", RoleParticipant)},
		{"remove creator", withoutMember(current, "second-creator")},
		{"remove admin peer", withoutMember(withMember(current, Member{UserID: "admin-2", Role: RoleAdmin}), "admin-2")},
	}
	for _, tc := range denied {
		tc := tc
		t.Run("denied/"+tc.name, func(t *testing.T) {
			t.Parallel()
			var base []Member
			if tc.name == "remove admin peer" {
				base = withMember(current, Member{UserID: "admin-2", Role: RoleAdmin})
			} else {
				base = current
			}
			if denials := CheckMemberPatch(base, tc.proposed, "admin"); denials == nil {
				t.Fatal("expected patch to be denied")
			}
		})
	}
}

func TestCheckMemberPatch_ParticipantHasNoRights(t *testing.T) {
	t.Parallel()

	current := baseMembers()

	if denials := CheckMemberPatch(current, withMember(current, Member{UserID: "friend", Role: RoleParticipant}), "member"); denials == nil {
		t.Fatal("expected participant addition to be denied")
	}
	if denials := CheckMemberPatch(current, withoutMember(current, "member"), "member"); denials == nil {
		t.Fatal("expected participant removal to be denied")
	}
}

func TestCheckMemberPatch_WholePatchRejectedOnSingleDenial(t *testing.T) {
	t.Parallel()

	current := baseMembers()

	// Admin adds a participant (allowed) and an admin (denied) in one patch.
	proposed := withMember(withMember(current, Member{UserID: "ok", Role: RoleParticipant}), Member{UserID: "bad", Role: RoleAdmin})

	denials := CheckMemberPatch(current, proposed, "admin")
	if len(denials) != 1 {
		t.Fatalf("expected exactly one denial, got %v", denials)
	}
	if denials[0].UserID != "bad" {
		t.Fatalf("expected denial for user bad, got %v", denials[0])
	}
}

func TestCheckMemberPatch_StructuralInvariants(t *testing.T) {
	t.Parallel()

	current := baseMembers()

	if denials := CheckMemberPatch(current, nil, "owner"); denials == nil {
		t.Fatal("expected empty member list to be denied")
	}

	duplicated := withMember(current, Member{UserID: "member", Role: RoleParticipant})
	if denials := CheckMemberPatch(current, duplicated, "owner"); denials == nil {
		t.Fatal("expected duplicate member to be denied")
	}

	if denials := CheckMemberPatch(current, current, "stranger"); denials == nil {
		t.Fatal("expected non-member actor to be denied")
	}
}

func TestValidRoleAndAvailability(t *testing.T) {
	t.Parallel()

	for _, role := range []Role{RoleCreator, RoleAdmin, RoleParticipant} {
		if !ValidRole(role) {
			t.Fatalf("expected %q to be valid", role)
		}
	}
	if ValidRole("owner") {
		t.Fatal("expected unknown role to be invalid")
	}

	for _, availability := range []Availability{AvailabilityAvailable, AvailabilityUnavailable, AvailabilityInvited} {
		if !ValidAvailability(availability) {
			t.Fatalf("expected %q to be valid", availability)
		}
	}
	if ValidAvailability("maybe") {
		t.Fatal("expected unknown availability to be invalid")
	}
}
