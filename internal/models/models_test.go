package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestValidIntegrationType(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"DISCORD_USER", true},
		{"discord_user", true},
		{"ANNOUNCEMENT_DISCORD_TEXT_CHANNEL", true},
		{"DISCORD_GUILD", true},
		{"FANSUBDB_ID", true},
		{"MYSPACE_USER", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidIntegrationType(tc.in); got != tc.want {
			t.Errorf("ValidIntegrationType(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAddIntegrationDeduplicates(t *testing.T) {
	actor := &RoleActor{ID: uuid.New(), Name: "N4O"}
	if !actor.AddIntegration("466469077444067372", "discord_user") {
		t.Fatal("first AddIntegration should report true")
	}
	if actor.AddIntegration("466469077444067372", "DISCORD_USER") {
		t.Fatal("duplicate AddIntegration should report false")
	}
	if len(actor.Integrations) != 1 {
		t.Fatalf("expected 1 integration, got %d", len(actor.Integrations))
	}
	if actor.Integrations[0].Type != "DISCORD_USER" {
		t.Errorf("integration type not normalized: %q", actor.Integrations[0].Type)
	}
}

func TestCollabLinkViability(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	pa, pb := uuid.New(), uuid.New()
	link := &CollabLink{
		ID:       uuid.New(),
		Servers:  []uuid.UUID{a, b},
		Projects: []uuid.UUID{pa, pb},
	}
	if !link.Viable() {
		t.Fatal("two-member link should be viable")
	}
	link.RemoveMember(b, pb)
	if link.Viable() {
		t.Fatal("single-member link must not be viable")
	}
	if len(link.Servers) != 1 || len(link.Projects) != 1 {
		t.Errorf("RemoveMember left %d servers, %d projects", len(link.Servers), len(link.Projects))
	}
}

func TestOrphanStatusKeys(t *testing.T) {
	p := &Project{
		Assignments: []Assignment{{Key: "TL"}, {Key: "ED"}},
		Episodes: []EpisodeStatus{
			{Episode: 1, Statuses: []RoleStatus{{Key: "TL"}, {Key: "QC"}}},
			{Episode: 2, Statuses: []RoleStatus{{Key: "ED"}, {Key: "QC"}}},
		},
	}
	orphans := p.OrphanStatusKeys()
	if len(orphans) != 1 || orphans[0] != "QC" {
		t.Errorf("expected orphans [QC], got %v", orphans)
	}
}

func TestGenerateCodeShape(t *testing.T) {
	code := GenerateCode(16, true, true)
	if len(code) != 16 {
		t.Fatalf("expected 16 characters, got %d", len(code))
	}
	other := GenerateCode(16, true, true)
	if code == other {
		t.Error("two generated codes should differ")
	}
}
