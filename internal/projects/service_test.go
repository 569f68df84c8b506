package projects

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

func TestOrphanActorIDs(t *testing.T) {
	orphan := uuid.New()
	shared := uuid.New()
	flaky := uuid.New()
	assignments := []models.Assignment{
		{Key: "TL", ActorID: &orphan},
		{Key: "TLC", ActorID: nil},
		{Key: "ED", ActorID: &shared},
		{Key: "TS", ActorID: &orphan},
		{Key: "QC", ActorID: &flaky},
	}

	got := orphanActorIDs(assignments, func(id uuid.UUID) (bool, error) {
		switch id {
		case shared:
			return true, nil
		case flaky:
			return false, errors.New("connection reset")
		default:
			return false, nil
		}
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 orphan, got %d: %v", len(got), got)
	}
	if got[0] != orphan {
		t.Errorf("expected %s, got %s", orphan, got[0])
	}
}

func TestOrphanActorIDsChecksEachActorOnce(t *testing.T) {
	actor := uuid.New()
	assignments := []models.Assignment{
		{Key: "TL", ActorID: &actor},
		{Key: "ED", ActorID: &actor},
		{Key: "QC", ActorID: &actor},
	}

	calls := 0
	orphanActorIDs(assignments, func(uuid.UUID) (bool, error) {
		calls++
		return false, nil
	})
	if calls != 1 {
		t.Errorf("reference check should run once per actor, ran %d times", calls)
	}
}
