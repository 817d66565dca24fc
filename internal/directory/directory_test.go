package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/unitchange-alerts/internal/domain"
)

func TestBuild_LongestNameWins(t *testing.T) {
	tbl := domain.Table{
		Columns: []string{"email", "name"},
		Rows: [][]any{
			{"bob@example.com", "Bob"},
			{" BOB@Example.com ", "Robert Jones"},
		},
	}

	got := Build("Salesperson", "All", Source{Table: tbl, EmailColumn: "EMAIL", NameColumn: "NAME"})
	require.Len(t, got, 1)
	assert.Equal(t, domain.Recipient{Email: "bob@example.com", Name: "Robert Jones", Role: "Salesperson", Branch: "All"}, got[0])
}

func TestBuilder_TieKeepsExisting(t *testing.T) {
	b := NewBuilder()
	b.Add("a@x.com", "Anna")
	b.Add("a@x.com", "Anne")

	got := b.Recipients("R", "All")
	require.Len(t, got, 1)
	assert.Equal(t, "Anna", got[0].Name)
}

func TestBuilder_SkipsBadEmailsAndDefaultsName(t *testing.T) {
	b := NewBuilder()
	b.Add("", "Nobody")
	b.Add("not-an-email", "Nobody")
	b.Add("c@x.com", "  ")
	b.Add("a@x.com", "Al")

	got := b.Recipients("R", "B1")
	require.Len(t, got, 2)
	assert.Equal(t, "a@x.com", got[0].Email)
	assert.Equal(t, "c@x.com", got[1].Email)
	assert.Equal(t, "c@x.com", got[1].Name)
	assert.Equal(t, "B1", got[1].Branch)
}

func TestBuild_MissingEmailColumn(t *testing.T) {
	tbl := domain.Table{Columns: []string{"NAME"}, Rows: [][]any{{"Bob"}}}
	assert.Empty(t, Build("R", "All", Source{Name: "test", Table: tbl, EmailColumn: "EMAIL"}))
}

func TestBuild_MissingNameColumn(t *testing.T) {
	tbl := domain.Table{Columns: []string{"EMAIL"}, Rows: [][]any{{"z@x.com"}}}
	got := Build("R", "All", Source{Table: tbl, EmailColumn: "EMAIL", NameColumn: "NAME"})
	require.Len(t, got, 1)
	assert.Equal(t, "z@x.com", got[0].Name)
}

func TestSalespeople(t *testing.T) {
	events := domain.Table{
		Columns: []string{"STOCK_NUMBER", "Salesperson", "Salesperson_Email", "Purchaser", "Purchaser_Email"},
		Rows: [][]any{
			{"100", "Bob", "bob@x.com", "Pat Purchaser", "pat@x.com"},
			{"101", "Robert Jones", "BOB@x.com", nil, nil},
			{"102", nil, nil, "Pat", "pat@x.com"},
		},
	}

	got := Salespeople(events)
	require.Len(t, got, 2)
	assert.Equal(t, domain.Recipient{Email: "bob@x.com", Name: "Robert Jones", Role: domain.RoleSalesperson, Branch: domain.BranchAll}, got[0])
	assert.Equal(t, domain.Recipient{Email: "pat@x.com", Name: "Pat Purchaser", Role: domain.RoleSalesperson, Branch: domain.BranchAll}, got[1])
}

func TestAuditors(t *testing.T) {
	errorLog := domain.Table{
		Columns: []string{"STATUS", "EMAIL", "NAME"},
		Rows: [][]any{
			{"Pending", "aud@x.com", "Audrey"},
			{"Invoiced", "aud@x.com", "Audrey"},
		},
	}

	got := Auditors(errorLog)
	require.Len(t, got, 1)
	assert.Equal(t, domain.RoleSettlementAuditor, got[0].Role)
	assert.Equal(t, domain.BranchAll, got[0].Branch)
}

func TestAlertUsers(t *testing.T) {
	tbl := domain.Table{
		Columns: []string{"Email", "Name", "Role", "Branch"},
		Rows: [][]any{
			{" tech@x.com ", "Tess", "Tech", "B1"},
			{"parts@x.com", nil, "Parts", "All"},
		},
	}

	got := AlertUsers(tbl)
	require.Len(t, got, 2)
	assert.Equal(t, domain.Recipient{Email: "tech@x.com", Name: "Tess", Role: "Tech", Branch: "B1"}, got[0])
	assert.Equal(t, "", got[1].Name)

	assert.Nil(t, AlertUsers(domain.Table{Columns: []string{"Name"}}))
}

func TestMerge_NoCrossListDedup(t *testing.T) {
	a := []domain.Recipient{{Email: "a@x.com"}}
	b := []domain.Recipient{{Email: "a@x.com"}, {Email: "b@x.com"}}

	got := Merge(a, b)
	assert.Len(t, got, 3)
	assert.Equal(t, "b@x.com", got[2].Email)
}
