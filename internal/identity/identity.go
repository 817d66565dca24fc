// Package identity canonicalizes the loosely-typed strings that come out of
// the dealer system and the warehouse (emails, names, statuses, branch codes)
// into keys that are safe to compare and deduplicate on.
//
// NULL cells are decoded as "" before they reach this package, so every
// function here is total.
package identity

import (
	"strings"

	"golang.org/x/text/cases"
)

// allBranches are the branch values meaning "no branch restriction".
var allBranches = map[string]bool{
	"":             true,
	"all":          true,
	"*":            true,
	"any":          true,
	"all branches": true,
	"all-branches": true,
}

// NormalizeEmail returns the lowercased, trimmed address, or "" when raw
// has no '@'.
func NormalizeEmail(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.Contains(s, "@") {
		return ""
	}
	return strings.ToLower(s)
}

// NormalizeName trims a display name.
func NormalizeName(raw string) string {
	return strings.TrimSpace(raw)
}

// NormalizeStatus returns the trimmed, lowercased status.
func NormalizeStatus(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeBranch returns the trimmed, lowercased branch code.
func NormalizeBranch(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// StatusKey is the lookup key for configured status tables (rank and
// color): trimmed, lowercased, '_' replaced by '-', runs of spaces collapsed.
func StatusKey(raw string) string {
	s := strings.ReplaceAll(NormalizeStatus(raw), "_", "-")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

// folder is stateless and safe for concurrent use.
var folder = cases.Fold()

// Fold trims and case-folds s for caseless equality.
func Fold(s string) string {
	return folder.String(strings.TrimSpace(s))
}

// Token returns the trimmed, uppercased form used for alert-matrix value
// membership.
func Token(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsAllBranches reports whether branch means "every branch". A blank branch
// is treated as unrestricted.
func IsAllBranches(branch string) bool {
	return allBranches[NormalizeBranch(branch)]
}
