package users

import (
	"testing"

	"github.com/naoTimesdev/showtimes-sub000/internal/showerrors"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{"n4o_sub", "abcd", "fansub_group_01"}
	for _, username := range valid {
		if err := ValidateUsername(username); err != nil {
			t.Errorf("ValidateUsername(%q) = %v, want nil", username, err)
		}
	}

	invalid := map[string]showerrors.Code{
		"abc":          showerrors.CodeUserBadUsername,
		"":             showerrors.CodeUserBadUsername,
		"UpperCase":    showerrors.CodeUserBadUsername,
		"with space":   showerrors.CodeUserBadUsername,
		"dash-here":    showerrors.CodeUserBadUsername,
		"waaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaay_too_long": showerrors.CodeUserBadUsername,
	}
	for username, want := range invalid {
		err := ValidateUsername(username)
		if err == nil {
			t.Errorf("ValidateUsername(%q) = nil, want error", username)
			continue
		}
		if got := showerrors.CodeOf(err); got != want {
			t.Errorf("ValidateUsername(%q) code = %s, want %s", username, got, want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("correcth0rse"); err != nil {
		t.Errorf("expected valid password, got %v", err)
	}

	cases := []string{
		"short1",        // too short
		"lettersonly",   // no digit
		"123456789012",  // no letter
	}
	for _, password := range cases {
		err := ValidatePassword(password)
		if err == nil {
			t.Errorf("ValidatePassword(%q) = nil, want error", password)
			continue
		}
		if got := showerrors.CodeOf(err); got != showerrors.CodeUserWeakPassword {
			t.Errorf("ValidatePassword(%q) code = %s, want %s", password, got, showerrors.CodeUserWeakPassword)
		}
	}
}
