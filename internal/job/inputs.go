package job

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/unitchange-alerts/internal/domain"
	"github.com/ignite/unitchange-alerts/internal/source"
)

// Inputs loads the tables a run works from.
type Inputs interface {
	// PreScripts runs the configured maintenance scripts, in order.
	PreScripts(ctx context.Context) error
	// Events returns the change (or error) log for the window starting at since.
	Events(ctx context.Context, since time.Time) (domain.Table, error)
	// Matrix returns the alert matrix.
	Matrix(ctx context.Context) (domain.Table, error)
	// AlertUsers returns the explicit recipients.
	AlertUsers(ctx context.Context) (domain.Table, error)
}

// SQLInputs reads events from the operational store and the matrix and
// users from the warehouse.
type SQLInputs struct {
	Operational  *sql.DB
	Warehouse    *sql.DB
	SQLDir       string
	EventsScript string
	Scripts      []string
	MatrixTable  string
	UsersTable   string
}

// PreScripts executes each script verbatim against the operational store.
// The first failure stops the run.
func (in *SQLInputs) PreScripts(ctx context.Context) error {
	for _, name := range in.Scripts {
		text, err := source.ReadScript(in.SQLDir, name)
		if err != nil {
			return err
		}
		if _, err := source.RunScript(ctx, in.Operational, name, text); err != nil {
			return err
		}
	}
	return nil
}

// Events runs the events script. The window start is bound as the only
// argument when the script has a placeholder ($1 or ?).
func (in *SQLInputs) Events(ctx context.Context, since time.Time) (domain.Table, error) {
	text, err := source.ReadScript(in.SQLDir, in.EventsScript)
	if err != nil {
		return domain.Table{}, err
	}
	var args []any
	if bindsWindow(text) {
		args = append(args, since)
	}
	t, err := source.QueryTable(ctx, in.Operational, text, args...)
	if err != nil {
		return domain.Table{}, fmt.Errorf("events script %s: %w", in.EventsScript, err)
	}
	return t, nil
}

// Matrix loads the alert matrix table.
func (in *SQLInputs) Matrix(ctx context.Context) (domain.Table, error) {
	return source.LoadTable(ctx, in.Warehouse, in.MatrixTable)
}

// AlertUsers loads the alert users table.
func (in *SQLInputs) AlertUsers(ctx context.Context) (domain.Table, error) {
	return source.LoadTable(ctx, in.Warehouse, in.UsersTable)
}

func bindsWindow(script string) bool {
	return strings.Contains(script, "$1") || strings.Contains(script, "?")
}
