package collab

import (
	"reflect"
	"testing"
)

func TestDeduplicateMutualClaim(t *testing.T) {
	// A and B both claim each other on project P: one link, owned by A.
	data := []ServerClaims{
		{ServerID: "A", Claims: []Claim{{ProjectID: "P", Servers: []string{"A", "B"}}}},
		{ServerID: "B", Claims: []Claim{{ProjectID: "P", Servers: []string{"A", "B"}}}},
	}

	out := Deduplicate(data)
	if len(out) != 1 {
		t.Fatalf("expected 1 owning server, got %d", len(out))
	}
	if out[0].ServerID != "A" {
		t.Errorf("expected A as canonical owner, got %s", out[0].ServerID)
	}
	if len(out[0].Claims) != 1 || out[0].Claims[0].ProjectID != "P" {
		t.Errorf("expected P kept under A, got %+v", out[0].Claims)
	}
}

func TestDeduplicateOneSidedClaim(t *testing.T) {
	// A claims B, but B does not list A back: both sides lose.
	data := []ServerClaims{
		{ServerID: "A", Claims: []Claim{{ProjectID: "P", Servers: []string{"A", "B"}}}},
		{ServerID: "B", Claims: []Claim{{ProjectID: "P", Servers: []string{"B"}}}},
	}

	out := Deduplicate(data)
	// Intersection for P is {B}; A's claim is rejected, B keeps it alone.
	if len(out) != 1 || out[0].ServerID != "B" {
		t.Fatalf("expected P kept solely under B, got %+v", out)
	}
}

func TestDeduplicateSelfClaim(t *testing.T) {
	// A single server collaborating with itself reduces to a trivial
	// self-intersection and is kept.
	data := []ServerClaims{
		{ServerID: "A", Claims: []Claim{{ProjectID: "P", Servers: []string{"A"}}}},
	}

	out := Deduplicate(data)
	if len(out) != 1 || out[0].ServerID != "A" {
		t.Fatalf("expected self-claim kept, got %+v", out)
	}
}

func TestDeduplicateExcludesNonListingServer(t *testing.T) {
	// C never lists P, so C is dropped from the group even though A and B
	// both claim it.
	data := []ServerClaims{
		{ServerID: "A", Claims: []Claim{{ProjectID: "P", Servers: []string{"A", "B", "C"}}}},
		{ServerID: "B", Claims: []Claim{{ProjectID: "P", Servers: []string{"A", "B"}}}},
		{ServerID: "C", Claims: nil},
	}

	mutual := MutualServers(data, "P")
	if mutual["C"] {
		t.Error("C should not survive the intersection")
	}
	if !mutual["A"] || !mutual["B"] {
		t.Errorf("expected {A, B} mutual, got %v", mutual)
	}

	out := Deduplicate(data)
	if len(out) != 1 || out[0].ServerID != "A" {
		t.Fatalf("expected P kept under A, got %+v", out)
	}
}

func TestDeduplicateResultSubsetOfIntersection(t *testing.T) {
	data := []ServerClaims{
		{ServerID: "A", Claims: []Claim{
			{ProjectID: "P", Servers: []string{"A", "B", "C"}},
			{ProjectID: "Q", Servers: []string{"A", "C"}},
		}},
		{ServerID: "B", Claims: []Claim{{ProjectID: "P", Servers: []string{"A", "B"}}}},
		{ServerID: "C", Claims: []Claim{{ProjectID: "Q", Servers: []string{"A", "C"}}}},
	}

	out := Deduplicate(data)
	for _, sc := range out {
		for _, claim := range sc.Claims {
			mutual := MutualServers(data, claim.ProjectID)
			if !mutual[sc.ServerID] {
				t.Errorf("owner %s of %s is not in the claim intersection %v",
					sc.ServerID, claim.ProjectID, mutual)
			}
		}
	}
}

func TestDeduplicateEachProjectOwnedOnce(t *testing.T) {
	data := []ServerClaims{
		{ServerID: "A", Claims: []Claim{{ProjectID: "P", Servers: []string{"A", "B"}}}},
		{ServerID: "B", Claims: []Claim{
			{ProjectID: "P", Servers: []string{"A", "B"}},
			{ProjectID: "Q", Servers: []string{"B"}},
		}},
	}

	out := Deduplicate(data)
	owners := make(map[string]int)
	for _, sc := range out {
		for _, claim := range sc.Claims {
			owners[claim.ProjectID]++
		}
	}
	for project, n := range owners {
		if n != 1 {
			t.Errorf("project %s owned %d times", project, n)
		}
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	data := []ServerClaims{
		{ServerID: "A", Claims: []Claim{
			{ProjectID: "P", Servers: []string{"A", "B"}},
			{ProjectID: "R", Servers: []string{"A"}},
		}},
		{ServerID: "B", Claims: []Claim{
			{ProjectID: "P", Servers: []string{"A", "B"}},
			{ProjectID: "Q", Servers: []string{"B", "C"}},
		}},
		{ServerID: "C", Claims: []Claim{{ProjectID: "Q", Servers: []string{"B", "C"}}}},
	}

	once := Deduplicate(data)
	twice := Deduplicate(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("dedup is not idempotent:\n first: %+v\nsecond: %+v", once, twice)
	}
}

func TestDeduplicateEmptyInput(t *testing.T) {
	if out := Deduplicate(nil); out != nil {
		t.Errorf("expected nil output for nil input, got %+v", out)
	}
}
