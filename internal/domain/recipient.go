package domain

import (
	"fmt"
	"strings"
)

// Roles with a dedicated identity-matching strategy. Every other role is
// matched through the alert matrix.
const (
	RoleSalesperson       = "Salesperson"
	RoleSettlementAuditor = "Settlement Auditor"
)

// BranchAll is the unrestricted branch scope.
const BranchAll = "All"

// Recipient is a notification target.
type Recipient struct {
	Email  string
	Name   string
	Role   string
	Branch string
}

// Validate returns an error naming every blank field.
func (r Recipient) Validate() error {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"email", r.Email}, {"name", r.Name}, {"role", r.Role}, {"branch", r.Branch},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("recipient missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Trimmed returns r with surrounding whitespace removed from every field.
func (r Recipient) Trimmed() Recipient {
	return Recipient{
		Email:  strings.TrimSpace(r.Email),
		Name:   strings.TrimSpace(r.Name),
		Role:   strings.TrimSpace(r.Role),
		Branch: strings.TrimSpace(r.Branch),
	}
}
