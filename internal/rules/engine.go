// Package rules evaluates the alert matrix: per-role filter rows that decide
// which change-log events a role holder is notified about.
//
// Within a row every field constraint and the change predicate must hold;
// rows for the same role are OR-ed. A constraint that is blank, empty or
// uses an operator the engine does not know is no constraint at all.
package rules

import (
	"strings"

	"github.com/ignite/unitchange-alerts/internal/domain"
	"github.com/ignite/unitchange-alerts/internal/identity"
	"github.com/ignite/unitchange-alerts/internal/pkg/logger"
)

// branchChangeAliases select events whose STATUS_CHANGE is blank, i.e.
// branch-only moves.
var branchChangeAliases = map[string]bool{
	"branch":        true,
	"branch change": true,
	"branchchange":  true,
}

type opKind int

const (
	opNone opKind = iota
	opIn
	opNotIn
)

type fieldMatcher struct {
	op     opKind
	tokens map[string]struct{}
}

func (f fieldMatcher) match(value string) bool {
	if f.op == opNone {
		return true
	}
	_, found := f.tokens[identity.Token(value)]
	if f.op == opIn {
		return found
	}
	return !found
}

type changeKind int

const (
	changeAny changeKind = iota
	changeBranchOnly
	changeExact
)

type changeMatcher struct {
	kind changeKind
	want string
}

func (c changeMatcher) match(statusChange string) bool {
	switch c.kind {
	case changeBranchOnly:
		return identity.Fold(statusChange) == ""
	case changeExact:
		return identity.Fold(statusChange) == c.want
	default:
		return true
	}
}

type compiledRule struct {
	make   fieldMatcher
	typ    fieldMatcher
	dept   fieldMatcher
	group  fieldMatcher
	change changeMatcher
}

func (r compiledRule) match(ev domain.Event) bool {
	return r.make.match(ev.Make) &&
		r.typ.match(ev.Type) &&
		r.dept.match(ev.Department) &&
		r.group.match(ev.GroupCode) &&
		r.change.match(ev.StatusChange)
}

// Engine holds the alert matrix with value lists tokenized once per row.
// It is immutable after Compile and safe for concurrent use.
type Engine struct {
	byRole map[string][]compiledRule
}

// Compile prepares matrix rows for evaluation.
func Compile(matrix []domain.Rule) *Engine {
	e := &Engine{byRole: make(map[string][]compiledRule)}
	for _, r := range matrix {
		role := strings.TrimSpace(r.Role)
		e.byRole[role] = append(e.byRole[role], compiledRule{
			make:   compileField(role, "Make", r.Make),
			typ:    compileField(role, "Type", r.Type),
			dept:   compileField(role, "Department", r.Department),
			group:  compileField(role, "Group", r.Group),
			change: compileChange(r.Change),
		})
	}
	return e
}

// Roles returns the number of distinct roles in the matrix.
func (e *Engine) Roles() int { return len(e.byRole) }

// EvaluateRole returns the inclusion mask for role over log. The second
// result is false when the matrix has no rows for role; the mask is then nil
// and the caller picks the fallback.
func (e *Engine) EvaluateRole(log *domain.Log, role string) (Mask, bool) {
	if e == nil {
		return nil, false
	}
	rows := e.byRole[strings.TrimSpace(role)]
	if len(rows) == 0 {
		return nil, false
	}

	mask := make(Mask, log.Len())
	for i, ev := range log.Events {
		for _, r := range rows {
			if r.match(ev) {
				mask[i] = true
				break
			}
		}
	}
	return mask, true
}

// Tokenize splits a comma-separated value list into a set of uppercased,
// trimmed tokens. Empty tokens are discarded.
func Tokenize(values string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, part := range strings.Split(values, ",") {
		if tok := identity.Token(part); tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}

func compileField(role, field string, fr domain.FieldRule) fieldMatcher {
	op := strings.Join(strings.Fields(strings.ToUpper(fr.Operator)), " ")
	tokens := Tokenize(fr.Values)

	var kind opKind
	switch op {
	case domain.OpIn:
		kind = opIn
	case domain.OpNotIn:
		kind = opNotIn
	case "":
		return fieldMatcher{op: opNone}
	default:
		logger.Warn("alert matrix operator not recognized, field unconstrained",
			"role", role, "field", field, "operator", fr.Operator)
		return fieldMatcher{op: opNone}
	}
	if len(tokens) == 0 {
		logger.Info("alert matrix operator has no values, field unconstrained",
			"role", role, "field", field, "operator", op)
		return fieldMatcher{op: opNone}
	}
	return fieldMatcher{op: kind, tokens: tokens}
}

func compileChange(change string) changeMatcher {
	key := identity.Fold(change)
	switch {
	case key == "":
		return changeMatcher{kind: changeAny}
	case branchChangeAliases[key]:
		return changeMatcher{kind: changeBranchOnly}
	default:
		return changeMatcher{kind: changeExact, want: key}
	}
}
