package domain

// Alert-matrix operators. Any other value means "no constraint".
const (
	OpIn    = "IN"
	OpNotIn = "NOT IN"
)

// FieldRule is one operator/value-list pair of an alert-matrix row, e.g.
// {Operator: "IN", Values: "JD, KUB"}.
type FieldRule struct {
	Operator string
	Values   string
}

// Rule is one alert-matrix row. Rows sharing a Role combine with OR.
type Rule struct {
	Role       string
	Make       FieldRule
	Type       FieldRule
	Department FieldRule
	Group      FieldRule
	Change     string
}

// DecodeRules reads an AlertMatrix table with columns Role, MAK, Make, TYP,
// Type, DEPT, Department, GRP, Group and Change. Missing columns decode as
// blank values.
func DecodeRules(t Table) []Rule {
	col := func(name string) int { return t.Resolve(name) }
	var (
		role  = col("Role")
		mak   = col("MAK")
		makV  = col("Make")
		typ   = col("TYP")
		typV  = col("Type")
		dept  = col("DEPT")
		deptV = col("Department")
		grp   = col("GRP")
		grpV  = col("Group")
		chg   = col("Change")
	)

	rules := make([]Rule, 0, t.Len())
	for r := range t.Rows {
		cell := func(c int) string { return Text(t.Cell(r, c)) }
		rules = append(rules, Rule{
			Role:       cell(role),
			Make:       FieldRule{Operator: cell(mak), Values: cell(makV)},
			Type:       FieldRule{Operator: cell(typ), Values: cell(typV)},
			Department: FieldRule{Operator: cell(dept), Values: cell(deptV)},
			Group:      FieldRule{Operator: cell(grp), Values: cell(grpV)},
			Change:     cell(chg),
		})
	}
	return rules
}
