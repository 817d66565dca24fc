package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const fullConfig = `
job:
  name: UnitChangeDistributor
  variant: unit-change
  sql_dir: ./sql
  events_script: unit_changes.sql
  include_salespeople: true
  timezone: America/Toronto

operational:
  driver: postgres
  server: db.internal:5432
  database: dealer
  user: reader
  password: "p@ss word"

warehouse:
  driver: snowflake
  server: acme-xy12345
  database: DW
  schema: ALERTS
  warehouse: COMPUTE_WH
  user: svc
  password: secret
  matrix_table: Alerts.Matrix

mail:
  transport: graph
  tenant_id: t
  client_id: c
  client_secret: s
  sender_upn: alerts@example.com

table:
  wanted_columns: [STOCK_NUMBER, MAKE, STATUS]
  status_order: [Invoiced, Pending, Released]
  status_colors:
    Released: "#d4edda"
  cc: [manager@example.com]

escalation:
  status: Invoiced
  to: finance@example.com

storage:
  type: local
  local_path: ./test-data

logging:
  level: debug
  dir: ./logs
  redact_pii: false
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "UnitChangeDistributor", cfg.Job.Name)
	assert.True(t, cfg.Job.IncludeSalespeople)
	assert.Equal(t, "db.internal:5432", cfg.Operational.Server)
	assert.Equal(t, "snowflake", cfg.Warehouse.Driver)
	assert.Equal(t, "Alerts.Matrix", cfg.Warehouse.MatrixTable)
	assert.Equal(t, "AlertUsers", cfg.Warehouse.UsersTable)
	assert.Equal(t, []string{"STOCK_NUMBER", "MAKE", "STATUS"}, cfg.Table.WantedColumns)
	assert.Equal(t, "#d4edda", cfg.Table.StatusColors["Released"])
	assert.True(t, cfg.Escalation.Enabled())
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.False(t, cfg.Logging.Redact())
	assert.Equal(t, 30*time.Second, cfg.Mail.Timeout())

	require.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "job:\n  name: test\n"))
	require.NoError(t, err)

	assert.Equal(t, VariantUnitChange, cfg.Job.Variant)
	assert.Equal(t, "sql", cfg.Job.SQLDir)
	assert.Equal(t, "America/Toronto", cfg.Job.Timezone)
	assert.Equal(t, 30*time.Minute, cfg.Job.LockTTL())
	assert.Equal(t, "postgres", cfg.Operational.Driver)
	assert.Equal(t, "AlertMatrix", cfg.Warehouse.MatrixTable)
	assert.Equal(t, "graph", cfg.Mail.Transport)
	assert.Equal(t, 30, cfg.Mail.TimeoutSeconds)
	assert.Equal(t, "none", cfg.Storage.Type)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Redact())
	assert.NotEmpty(t, cfg.Email.Subject)
	assert.False(t, cfg.Escalation.Enabled())
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, fullConfig)
	t.Setenv("ID_DSN", "postgres://env@host/db")
	t.Setenv("DW_PASSWORD", "from-env")
	t.Setenv("GRAPH_CLIENT_SECRET", "env-secret")
	t.Setenv("AWS_SES_REGION", "ca-central-1")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env@host/db", cfg.Operational.ConnString())
	assert.Equal(t, "from-env", cfg.Warehouse.Password)
	assert.Equal(t, "env-secret", cfg.Mail.ClientSecret)
	assert.Equal(t, "ca-central-1", cfg.Mail.Region)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestConnString(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Server: "db:5432", Database: "dealer", User: "reader", Password: "p@ss word", SSLMode: "disable"}
	assert.Equal(t, "postgres://reader:p%40ss%20word@db:5432/dealer?sslmode=disable", pg.ConnString())

	sf := DatabaseConfig{Driver: "snowflake", Server: "acme-xy12345", Database: "DW", Schema: "ALERTS", Warehouse: "WH", User: "svc", Password: "pw"}
	assert.Equal(t, "svc:pw@acme-xy12345/DW/ALERTS?warehouse=WH", sf.ConnString())

	assert.Equal(t, "raw", DatabaseConfig{Driver: "snowflake", DSN: "raw", Server: "x"}.ConnString())
}

func TestValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
job:
  variant: weekly
  timezone: Mars/Olympus
mail:
  transport: ses
storage:
  type: s3
`))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"job.name is required",
		`job.variant "weekly"`,
		"job.events_script is required",
		"job.timezone",
		"operational needs dsn",
		"mail.from is required",
		"table.wanted_columns needs at least one column",
		`storage.type "s3"`,
	} {
		assert.Contains(t, err.Error(), want)
	}
	assert.NotContains(t, err.Error(), "warehouse needs", "weekly is not unit-change")
}

func TestValidate_DryRunSkipsMail(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
job:
  name: audit
  variant: settlement-audit
  events_script: errors.sql
  dry_run: true
operational:
  dsn: postgres://x@y/z
table:
  wanted_columns: [STOCK_NUMBER, STATUS, EMAIL]
`))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.NeedsWarehouse())
}

func TestValidate_BlankWantedColumns(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
job:
  name: audit
  variant: settlement-audit
  events_script: errors.sql
  dry_run: true
operational:
  dsn: postgres://x@y/z
table:
  wanted_columns: ["", "  "]
`))
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "table.wanted_columns")
}
