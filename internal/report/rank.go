// Package report orders a recipient's change list for reading and renders it
// as an HTML email body.
package report

import (
	"github.com/ignite/unitchange-alerts/internal/identity"
)

// StatusRank maps a status key to its priority. Higher sorts first.
type StatusRank map[string]int

// NewStatusRank ranks order so that the last entry is the most important:
// the entry at position i (0-based) gets rank i+1. Repeated statuses keep
// their last position.
func NewStatusRank(order []string) StatusRank {
	r := make(StatusRank, len(order))
	for i, s := range order {
		if k := identity.StatusKey(s); k != "" {
			r[k] = i + 1
		}
	}
	return r
}

// Of returns the rank of status, 0 when it is not configured.
func (r StatusRank) Of(status string) int {
	return r[identity.StatusKey(status)]
}

// StatusColors maps a status key to a CSS background color.
type StatusColors map[string]string

// NewStatusColors keys a configured status->color table by status key.
func NewStatusColors(cfg map[string]string) StatusColors {
	c := make(StatusColors, len(cfg))
	for s, color := range cfg {
		c[identity.StatusKey(s)] = color
	}
	return c
}

// Of returns the color for status, "" when none is configured.
func (c StatusColors) Of(status string) string {
	return c[identity.StatusKey(status)]
}
