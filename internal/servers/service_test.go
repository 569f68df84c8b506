package servers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/models"
	"github.com/naoTimesdev/showtimes-sub000/internal/showerrors"
)

func TestGrantPremiumRejectsUnknownKind(t *testing.T) {
	svc := &Service{}

	_, err := svc.GrantPremium(context.Background(), uuid.New(), models.PremiumKind("gold"), 24*time.Hour)
	if err == nil {
		t.Fatal("expected an error for an unknown kind")
	}
	if code := showerrors.CodeOf(err); code != showerrors.CodePremiumBadGrant {
		t.Errorf("expected %s, got %s", showerrors.CodePremiumBadGrant, code)
	}
}

func TestGrantPremiumRejectsNonPositiveDuration(t *testing.T) {
	svc := &Service{}

	for _, duration := range []time.Duration{0, -time.Hour} {
		_, err := svc.GrantPremium(context.Background(), uuid.New(), models.PremiumShowRSS, duration)
		if err == nil {
			t.Fatalf("expected an error for duration %s", duration)
		}
		if code := showerrors.CodeOf(err); code != showerrors.CodePremiumBadGrant {
			t.Errorf("duration %s: expected %s, got %s", duration, showerrors.CodePremiumBadGrant, code)
		}
	}
}
