// Package changelist selects, for one recipient, the events they should be
// told about and projects them onto the report columns.
package changelist

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ignite/unitchange-alerts/internal/domain"
	"github.com/ignite/unitchange-alerts/internal/identity"
	"github.com/ignite/unitchange-alerts/internal/pkg/logger"
	"github.com/ignite/unitchange-alerts/internal/rules"
)

// ErrIdentityColumnMissing is returned when a log lacks every column an
// identity strategy matches on. The accompanying subset is empty.
var ErrIdentityColumnMissing = errors.New("identity column missing from event log")

// Compiler holds the report projection shared by every recipient of a run.
type Compiler struct {
	wanted []string
}

// New returns a Compiler projecting onto wanted. An empty list keeps every
// source column.
func New(wanted []string) *Compiler {
	w := make([]string, 0, len(wanted))
	for _, c := range wanted {
		if c = strings.TrimSpace(c); c != "" {
			w = append(w, c)
		}
	}
	return &Compiler{wanted: w}
}

// Compile picks the matching strategy from the recipient's role.
func (c *Compiler) Compile(log *domain.Log, engine *rules.Engine, r domain.Recipient) (*Subset, error) {
	switch strings.TrimSpace(r.Role) {
	case domain.RoleSalesperson:
		return c.CompileForContact(log, r.Email)
	case domain.RoleSettlementAuditor:
		return c.CompileForAuditor(log, r.Email)
	default:
		return c.CompileForUser(log, engine, r.Branch, r.Role), nil
	}
}

// CompileForUser selects events in the user's branch that the alert matrix
// routes to role. A role without matrix rows is filtered by branch only.
func (c *Compiler) CompileForUser(log *domain.Log, engine *rules.Engine, branch, role string) *Subset {
	mask := BranchMask(log, branch)
	if roleMask, ok := engine.EvaluateRole(log, role); ok {
		logger.Debug("alert rules evaluated", "role", role, "branch", branch,
			"in_branch", mask.Count(), "routed", roleMask.Count())
		mask = mask.And(roleMask)
	} else {
		logger.Warn("no alert rules for role, filtering by branch only", "role", role, "branch", branch)
	}
	return c.project(log, mask)
}

// CompileAll selects every event in the log.
func (c *Compiler) CompileAll(log *domain.Log) *Subset {
	return c.project(log, rules.Fill(log.Len(), true))
}

// CompileForContact selects events where email is the salesperson or the
// purchaser.
func (c *Compiler) CompileForContact(log *domain.Log, email string) (*Subset, error) {
	if !log.Has(domain.ColSalespersonEmail) && !log.Has(domain.ColPurchaserEmail) {
		return c.missing(log, domain.ColSalespersonEmail+", "+domain.ColPurchaserEmail)
	}
	want := identity.NormalizeEmail(email)
	return c.project(log, matchEach(log, func(ev domain.Event) bool {
		return want != "" && (identity.NormalizeEmail(ev.SalespersonEmail) == want ||
			identity.NormalizeEmail(ev.PurchaserEmail) == want)
	})), nil
}

// CompileForAuditor selects error-log events assigned to email.
func (c *Compiler) CompileForAuditor(log *domain.Log, email string) (*Subset, error) {
	if !log.Has(domain.ColEmail) {
		return c.missing(log, domain.ColEmail)
	}
	want := identity.NormalizeEmail(email)
	return c.project(log, matchEach(log, func(ev domain.Event) bool {
		return want != "" && identity.NormalizeEmail(ev.Email) == want
	})), nil
}

// BranchMask marks events whose previous or current branch is branch.
// Every event matches for "all" synonyms and a blank branch.
func BranchMask(log *domain.Log, branch string) rules.Mask {
	if identity.IsAllBranches(branch) {
		return rules.Fill(log.Len(), true)
	}
	want := identity.Fold(branch)
	return matchEach(log, func(ev domain.Event) bool {
		return identity.Fold(ev.PreviousBranch) == want || identity.Fold(ev.CurrentBranch) == want
	})
}

func matchEach(log *domain.Log, pred func(domain.Event) bool) rules.Mask {
	m := make(rules.Mask, log.Len())
	for i, ev := range log.Events {
		m[i] = pred(ev)
	}
	return m
}

func (c *Compiler) missing(log *domain.Log, cols string) (*Subset, error) {
	err := fmt.Errorf("%w: %s", ErrIdentityColumnMissing, cols)
	logger.Error("cannot match recipients by identity", "error", err)
	return c.project(log, rules.Fill(log.Len(), false)), err
}

// project keeps the masked events and resolves the report columns once.
// Wanted columns absent from the log are dropped and logged.
func (c *Compiler) project(log *domain.Log, mask rules.Mask) *Subset {
	s := &Subset{}
	if len(c.wanted) == 0 {
		s.Columns = append(s.Columns, log.Columns...)
		for i := range log.Columns {
			s.src = append(s.src, i)
		}
	} else {
		var absent []string
		for _, col := range c.wanted {
			i := log.Resolve(col)
			if i < 0 {
				absent = append(absent, col)
				continue
			}
			s.Columns = append(s.Columns, log.Columns[i])
			s.src = append(s.src, i)
		}
		if len(absent) > 0 {
			logger.Warn("report columns missing from event log", "columns", strings.Join(absent, ", "))
		}
	}

	for i, ev := range log.Events {
		if i < len(mask) && mask[i] {
			s.Events = append(s.Events, ev)
		}
	}
	return s
}
