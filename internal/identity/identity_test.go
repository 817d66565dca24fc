package identity

import "testing"

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Bob.Jones@Example.COM ", "bob.jones@example.com"},
		{"no-at-sign", ""},
		{"", ""},
		{"   ", ""},
		{"@", "@"},
	}
	for _, tt := range tests {
		if got := NormalizeEmail(tt.in); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  Robert Jones "); got != "Robert Jones" {
		t.Errorf("NormalizeName = %q", got)
	}
	if got := NormalizeName(""); got != "" {
		t.Errorf("NormalizeName(\"\") = %q", got)
	}
}

func TestNormalizeStatusAndBranch(t *testing.T) {
	if got := NormalizeStatus(" Released "); got != "released" {
		t.Errorf("NormalizeStatus = %q", got)
	}
	if got := NormalizeBranch(" B1 "); got != "b1" {
		t.Errorf("NormalizeBranch = %q", got)
	}
}

func TestStatusKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"In_Transit", "in-transit"},
		{" On   Hold ", "on hold"},
		{"PENDING", "pending"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StatusKey(tt.in); got != tt.want {
			t.Errorf("StatusKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFold(t *testing.T) {
	if Fold(" Inventory to Sold ") != Fold("INVENTORY TO SOLD") {
		t.Error("Fold should be case-insensitive and trim")
	}
}

func TestToken(t *testing.T) {
	if got := Token(" jd "); got != "JD" {
		t.Errorf("Token = %q", got)
	}
}

func TestIsAllBranches(t *testing.T) {
	for _, b := range []string{"All", "all", "*", "ANY", "All Branches", "all-branches", ""} {
		if !IsAllBranches(b) {
			t.Errorf("IsAllBranches(%q) = false, want true", b)
		}
	}
	for _, b := range []string{"B1", "allx", "branches"} {
		if IsAllBranches(b) {
			t.Errorf("IsAllBranches(%q) = true, want false", b)
		}
	}
}
