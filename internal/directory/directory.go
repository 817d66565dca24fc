// Package directory builds the list of people a run notifies: explicit
// alert users from the warehouse, plus contacts and auditors derived from the
// columns of the event table itself.
package directory

import (
	"sort"

	"github.com/ignite/unitchange-alerts/internal/domain"
	"github.com/ignite/unitchange-alerts/internal/identity"
	"github.com/ignite/unitchange-alerts/internal/pkg/logger"
)

// Source is one table contributing identities. NameColumn is optional.
type Source struct {
	Name        string
	Table       domain.Table
	EmailColumn string
	NameColumn  string
}

// Builder accumulates identities keyed by normalized email.
type Builder struct {
	names map[string]string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{names: make(map[string]string)}
}

// Add records one identity. Rows without a usable email are ignored. The
// name falls back to the email; on a repeat email the longer name wins and
// ties keep the name already recorded.
func (b *Builder) Add(email, name string) {
	e := identity.NormalizeEmail(email)
	if e == "" {
		return
	}
	n := identity.NormalizeName(name)
	if n == "" {
		n = e
	}
	if prev, ok := b.names[e]; !ok || len(n) > len(prev) {
		b.names[e] = n
	}
}

// AddSource adds every row of src. A missing email column contributes
// nothing and is logged; it does not stop the build.
func (b *Builder) AddSource(src Source) {
	emailIdx := src.Table.Resolve(src.EmailColumn)
	if emailIdx < 0 {
		logger.Error("recipient source has no email column",
			"source", src.Name, "column", src.EmailColumn)
		return
	}
	nameIdx := -1
	if src.NameColumn != "" {
		nameIdx = src.Table.Resolve(src.NameColumn)
	}
	for r := range src.Table.Rows {
		b.Add(domain.Text(src.Table.Cell(r, emailIdx)), domain.Text(src.Table.Cell(r, nameIdx)))
	}
}

// Len returns the number of distinct emails seen.
func (b *Builder) Len() int { return len(b.names) }

// Recipients returns one recipient per email, ascending by email, each
// tagged with role and branch.
func (b *Builder) Recipients(role, branch string) []domain.Recipient {
	emails := make([]string, 0, len(b.names))
	for e := range b.names {
		emails = append(emails, e)
	}
	sort.Strings(emails)

	out := make([]domain.Recipient, 0, len(emails))
	for _, e := range emails {
		out = append(out, domain.Recipient{Email: e, Name: b.names[e], Role: role, Branch: branch})
	}
	return out
}

// Build merges sources into a deduplicated recipient list.
func Build(role, branch string, sources ...Source) []domain.Recipient {
	b := NewBuilder()
	for _, src := range sources {
		b.AddSource(src)
	}
	return b.Recipients(role, branch)
}

// Salespeople derives one recipient per salesperson or purchaser named on
// the events, scoped to every branch.
func Salespeople(events domain.Table) []domain.Recipient {
	return Build(domain.RoleSalesperson, domain.BranchAll,
		Source{Name: "salesperson", Table: events, EmailColumn: domain.ColSalespersonEmail, NameColumn: domain.ColSalesperson},
		Source{Name: "purchaser", Table: events, EmailColumn: domain.ColPurchaserEmail, NameColumn: domain.ColPurchaser},
	)
}

// Auditors derives one settlement auditor per email found on the error log.
func Auditors(errorLog domain.Table) []domain.Recipient {
	return Build(domain.RoleSettlementAuditor, domain.BranchAll,
		Source{Name: "error log", Table: errorLog, EmailColumn: domain.ColEmail, NameColumn: domain.ColName},
	)
}

// AlertUsers reads the warehouse AlertUsers table (Email, Name, Role,
// Branch) as-is. Rows are not deduplicated or validated here; the job skips
// invalid recipients when it reaches them.
func AlertUsers(t domain.Table) []domain.Recipient {
	email, name := t.Resolve("Email"), t.Resolve("Name")
	role, branch := t.Resolve("Role"), t.Resolve("Branch")
	if email < 0 {
		logger.Error("alert users table has no email column")
		return nil
	}

	out := make([]domain.Recipient, 0, t.Len())
	for r := range t.Rows {
		out = append(out, domain.Recipient{
			Email:  domain.Text(t.Cell(r, email)),
			Name:   domain.Text(t.Cell(r, name)),
			Role:   domain.Text(t.Cell(r, role)),
			Branch: domain.Text(t.Cell(r, branch)),
		}.Trimmed())
	}
	return out
}

// Merge concatenates recipient lists in order. It does not deduplicate
// across lists, so a person can appear once per list.
func Merge(lists ...[]domain.Recipient) []domain.Recipient {
	var n int
	for _, l := range lists {
		n += len(l)
	}
	out := make([]domain.Recipient, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
