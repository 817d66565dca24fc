package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/unitchange-alerts/internal/changelist"
	"github.com/ignite/unitchange-alerts/internal/domain"
)

func subsetOf(columns []string, rows [][]any) *changelist.Subset {
	log := domain.DecodeLog(domain.Table{Columns: columns, Rows: rows})
	return changelist.New(nil).CompileForUser(log, nil, "All", "Everyone")
}

func stockOrder(s *changelist.Subset) []string {
	var out []string
	for _, ev := range s.Events {
		out = append(out, ev.StockNumber)
	}
	return out
}

func TestNewStatusRank_LastIsHighest(t *testing.T) {
	r := NewStatusRank([]string{"Invoiced", "Pending", "Released"})
	assert.Equal(t, 3, r.Of("released"))
	assert.Equal(t, 2, r.Of(" PENDING "))
	assert.Equal(t, 1, r.Of("Invoiced"))
	assert.Equal(t, 0, r.Of("Sold"))
	assert.Equal(t, 0, r.Of(""))
}

func TestStatusKeyLookups(t *testing.T) {
	r := NewStatusRank([]string{"On Hold", "in_transit"})
	assert.Equal(t, 1, r.Of("on  hold"))
	assert.Equal(t, 2, r.Of("In-Transit"))

	c := NewStatusColors(map[string]string{"Released": "#d4edda"})
	assert.Equal(t, "#d4edda", c.Of(" released"))
	assert.Equal(t, "", c.Of("Pending"))
}

func TestSortForSend(t *testing.T) {
	s := subsetOf(
		[]string{"STOCK_NUMBER", "STATUS", "EVENT_TS"},
		[][]any{
			{"B2", "Pending", "2024-01-02 10:00:00"},
			{"A1", "Released", "2024-01-01 08:00:00"},
			{"C3", "Invoiced", "2024-01-05 09:00:00"},
			{"A0", "Pending", "2024-01-02 10:00:00"},
			{"Z9", "Pending", "n/a"},
			{"Q", "Sold", "2024-02-01 00:00:00"},
			{"M5", "Pending", "2024-01-03 10:00:00"},
		},
	)
	rank := NewStatusRank([]string{"Invoiced", "Pending", "Released"})

	got := SortForSend(rank, s)
	assert.Equal(t, []string{"A1", "M5", "A0", "B2", "Z9", "C3", "Q"}, stockOrder(got))
	assert.Equal(t, "B2", s.Events[0].StockNumber, "input must not be reordered")

	again := SortForSend(rank, got)
	assert.Equal(t, stockOrder(got), stockOrder(again))
}

func TestSortForSend_NoStatusColumn(t *testing.T) {
	s := subsetOf([]string{"STOCK_NUMBER"}, [][]any{{"2"}, {"1"}})
	got := SortForSend(NewStatusRank([]string{"x"}), s)
	assert.Same(t, s, got)

	projected := changelist.New([]string{"STOCK_NUMBER"}).CompileForUser(
		domain.DecodeLog(domain.Table{
			Columns: []string{"STOCK_NUMBER", "STATUS"},
			Rows:    [][]any{{"2", "a"}, {"1", "b"}},
		}), nil, "All", "Everyone")
	assert.Equal(t, []string{"2", "1"}, stockOrder(SortForSend(NewStatusRank([]string{"a", "b"}), projected)))
}

func TestRender(t *testing.T) {
	r, err := NewRenderer(
		NewStatusRank([]string{"Pending", "Released"}),
		NewStatusColors(map[string]string{"Released": "#d4edda"}),
	)
	require.NoError(t, err)

	s := subsetOf(
		[]string{"STOCK_NUMBER", "STATUS", "NOTE"},
		[][]any{
			{"1", "Pending", "<b>fragile</b> & heavy"},
			{"2", "Released", nil},
		},
	)
	html, err := r.Render(Page{
		Title:       "Unit changes for Tess",
		Subtitle:    "Branch B1",
		ReportURL:   "https://reports.example.com/units?b=1&x=2",
		ReportLabel: "Open report",
		Generated:   time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC),
		Subset:      s,
	})
	require.NoError(t, err)

	assert.Contains(t, html, "<h1 style=\"font-size:18px;margin:0 0 4px;\">Unit changes for Tess</h1>")
	assert.Contains(t, html, "Branch B1")
	assert.Contains(t, html, "Generated: 2024-03-04 09:30:00")
	assert.Contains(t, html, "&lt;b&gt;fragile&lt;/b&gt; &amp; heavy")
	assert.NotContains(t, html, "<b>fragile</b>")
	assert.Contains(t, html, `href="https://reports.example.com/units?b=1&amp;x=2"`)
	assert.Contains(t, html, ">Open report</a>")
	assert.Contains(t, html, "background-color: #d4edda;")
	assert.Equal(t, 1, strings.Count(html, "background-color"))
	assert.Less(t, strings.Index(html, ">2</td>"), strings.Index(html, ">1</td>"), "released row first")
}

func TestRender_EmptyAndNoLink(t *testing.T) {
	r, err := NewRenderer(nil, nil)
	require.NoError(t, err)

	html, err := r.Render(Page{Title: "Nothing"})
	require.NoError(t, err)
	assert.Contains(t, html, "Nothing")
	assert.NotContains(t, html, "<a href")
	assert.NotContains(t, html, "<td")
}

func TestText(t *testing.T) {
	r, err := NewRenderer(nil, nil)
	require.NoError(t, err)

	out, err := r.Text("{{ count }} unit change(s) for {{ branch }}", map[string]any{"count": 3, "branch": "B1"})
	require.NoError(t, err)
	assert.Equal(t, "3 unit change(s) for B1", out)

	out, err = r.Text("{{ count }} unit change(s) for {{ branch }}", map[string]any{"count": 0, "branch": "All"})
	require.NoError(t, err)
	assert.Equal(t, "0 unit change(s) for All", out)

	_, err = r.Text("{% if %}", nil)
	assert.Error(t, err)
}
