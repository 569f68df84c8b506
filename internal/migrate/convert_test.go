package migrate

import (
	"testing"
	"time"

	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

func strptr(s string) *string { return &s }

func TestIsValidSnowflake(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"466469077444067372", true},
		{"4194304", true},
		{"4194303", false},
		{"123", false},
		{"", false},
		{"not-a-number", false},
		{"46646907744406737a", false},
		{"99999999999999999999999999", false},
	}
	for _, tc := range cases {
		if got := IsValidSnowflake(tc.in); got != tc.want {
			t.Errorf("IsValidSnowflake(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestActorCacheMergesBySnowflake(t *testing.T) {
	cache := newActorCache()

	first := cache.Resolve(LegacyPerson{ID: strptr("466469077444067372"), Name: strptr("N4O")})
	second := cache.Resolve(LegacyPerson{ID: strptr("466469077444067372"), Name: strptr("someone else")})
	if first == nil || second == nil {
		t.Fatal("expected both resolutions to succeed")
	}
	if first.ID != second.ID {
		t.Fatalf("same snowflake resolved to different actors: %s vs %s", first.ID, second.ID)
	}
	if len(cache.Created()) != 1 {
		t.Fatalf("expected 1 created actor, got %d", len(cache.Created()))
	}
	if first.Name != "N4O" {
		t.Errorf("first-seen name should win, got %q", first.Name)
	}
}

func TestActorCacheRejectsInvalidSnowflake(t *testing.T) {
	cache := newActorCache()
	if actor := cache.Resolve(LegacyPerson{ID: strptr("123"), Name: strptr("ghost")}); actor != nil {
		t.Fatalf("invalid snowflake should resolve to nil, got %+v", actor)
	}
	if actor := cache.Resolve(LegacyPerson{}); actor != nil {
		t.Fatalf("unassigned slot should resolve to nil, got %+v", actor)
	}
	if len(cache.Created()) != 0 {
		t.Fatalf("no actors should be created, got %d", len(cache.Created()))
	}
}

func TestConvertAssignmentsSkipsUnresolvedSlots(t *testing.T) {
	cache := newActorCache()
	legacy := LegacyAssignments{
		TL:  LegacyPerson{ID: strptr("466469077444067372"), Name: strptr("N4O")},
		TLC: LegacyPerson{ID: strptr("123"), Name: strptr("ghost")},
		Custom: []LegacyCustomRole{
			{Key: "QCv2", Name: "Second Checker", Person: LegacyPerson{ID: strptr("508984527320317962")}},
			{Key: "tl", Name: "Shadow Translator", Person: LegacyPerson{ID: strptr("508984527320317963")}},
			{Key: "RD", Name: "Redrawer"},
		},
	}

	got := convertAssignments(legacy, cache)
	if len(got) != 3 {
		t.Fatalf("only resolved slots become assignments, got %d: %+v", len(got), got)
	}
	if got[0].Key != "TL" || got[0].ActorID == nil {
		t.Errorf("TL slot should carry the resolved actor, got %+v", got[0])
	}
	if got[1].Key != "QCV2" {
		t.Errorf("custom keys are upper-cased, got %q", got[1].Key)
	}
	// A custom key shadowing a reserved one is imported regardless.
	if got[2].Key != "TL" {
		t.Errorf("shadowing custom role should still import, got %q", got[2].Key)
	}
}

func TestConvertAssignmentsFixedOrder(t *testing.T) {
	cache := newActorCache()
	legacy := LegacyAssignments{
		TL:  LegacyPerson{ID: strptr("508984527320317900")},
		TLC: LegacyPerson{ID: strptr("508984527320317901")},
		ENC: LegacyPerson{ID: strptr("508984527320317902")},
		ED:  LegacyPerson{ID: strptr("508984527320317903")},
		TS:  LegacyPerson{ID: strptr("508984527320317904")},
		TM:  LegacyPerson{ID: strptr("508984527320317905")},
		QC:  LegacyPerson{ID: strptr("508984527320317906")},
	}

	got := convertAssignments(legacy, cache)
	want := []string{"TL", "TLC", "ENC", "ED", "TS", "TM", "QC"}
	if len(got) != len(want) {
		t.Fatalf("expected %d assignments, got %d", len(want), len(got))
	}
	for i, key := range want {
		if got[i].Key != key {
			t.Errorf("slot %d: got %q, want %q", i, got[i].Key, key)
		}
	}
}

func TestConvertedEpisodesCarryOnlyResolvedRoles(t *testing.T) {
	cache := newActorCache()
	legacy := LegacyAssignments{
		TL: LegacyPerson{ID: strptr("466469077444067372"), Name: strptr("N4O")},
		Custom: []LegacyCustomRole{
			{Key: "QCv2", Name: "Second Checker", Person: LegacyPerson{ID: strptr("508984527320317962")}},
		},
	}
	assignments := convertAssignments(legacy, cache)
	episodes := convertEpisodes("Example Show", []LegacyEpisode{
		{
			Episode: 1,
			Progress: map[string]bool{
				"TL":   true,
				"TLC":  false,
				"QCV2": true,
			},
		},
	}, assignments, legacy.Custom)

	if len(episodes) != 1 {
		t.Fatalf("expected 1 episode, got %d", len(episodes))
	}
	statuses := episodes[0].Statuses
	if len(statuses) != 2 {
		t.Fatalf("expected exactly TL and QCV2 entries, got %d: %+v", len(statuses), statuses)
	}
	if statuses[0].Key != "TL" || !statuses[0].Finished {
		t.Errorf("TL should be present and finished, got %+v", statuses[0])
	}
	if statuses[1].Key != "QCV2" || !statuses[1].Finished {
		t.Errorf("QCV2 should be present and finished, got %+v", statuses[1])
	}
}

func TestConvertEpisodesFiltersToAssignedRoles(t *testing.T) {
	assignments := []models.Assignment{
		{Key: "TL"},
		{Key: "QCV2"},
	}
	customs := []LegacyCustomRole{{Key: "QCv2", Name: "Second Checker"}}
	legacy := []LegacyEpisode{
		{
			Episode: 1,
			IsDone:  false,
			Progress: map[string]bool{
				"TL":   true,
				"TLC":  false,
				"QCV2": true,
			},
		},
	}

	got := convertEpisodes("Example Show", legacy, assignments, customs)
	if len(got) != 1 {
		t.Fatalf("expected 1 episode, got %d", len(got))
	}
	statuses := got[0].Statuses
	if len(statuses) != 2 {
		t.Fatalf("statuses must match the assignment key set, got %d entries", len(statuses))
	}
	byKey := map[string]models.RoleStatus{}
	for _, st := range statuses {
		byKey[st.Key] = st
	}
	if _, ok := byKey["TLC"]; ok {
		t.Error("unassigned TLC progress must be dropped")
	}
	if st := byKey["TL"]; !st.Finished {
		t.Errorf("TL should be finished, got %+v", st)
	}
	if st := byKey["QCV2"]; !st.Finished || st.Name != "Second Checker" {
		t.Errorf("QCV2 should be finished with its custom name, got %+v", st)
	}
}

func TestConvertEpisodesDefaultsMissingProgress(t *testing.T) {
	assignments := []models.Assignment{{Key: "TL"}, {Key: "ED"}}
	legacy := []LegacyEpisode{
		{Episode: 3, Progress: map[string]bool{"TL": true}},
	}

	got := convertEpisodes("Example Show", legacy, assignments, nil)
	byKey := map[string]bool{}
	for _, st := range got[0].Statuses {
		byKey[st.Key] = st.Finished
	}
	if !byKey["TL"] {
		t.Error("TL progress should carry over")
	}
	if done, ok := byKey["ED"]; !ok || done {
		t.Errorf("assigned role without progress defaults to unfinished, got ok=%v done=%v", ok, done)
	}
}

func TestConvertTimestamp(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	got := convertTimestamp("Example Show", 1600000000, now)
	want := time.Unix(1600000000, 0).UTC()
	if !got.Equal(want) {
		t.Errorf("valid timestamp: got %v, want %v", got, want)
	}

	if got := convertTimestamp("Example Show", 0, now); !got.Equal(now) {
		t.Errorf("zero timestamp should fall back to now, got %v", got)
	}
	if got := convertTimestamp("Example Show", -5, now); !got.Equal(now) {
		t.Errorf("negative timestamp should fall back to now, got %v", got)
	}
}
