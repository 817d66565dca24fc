package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Job variants.
const (
	VariantUnitChange      = "unit-change"
	VariantSalespeople     = "salespeople"
	VariantSettlementAudit = "settlement-audit"
)

// Config holds all configuration for a notifier run
type Config struct {
	Job         JobConfig        `yaml:"job"`
	Operational DatabaseConfig   `yaml:"operational"`
	Warehouse   WarehouseConfig  `yaml:"warehouse"`
	Mail        MailConfig       `yaml:"mail"`
	Table       TableConfig      `yaml:"table"`
	Email       EmailConfig      `yaml:"email"`
	Escalation  EscalationConfig `yaml:"escalation"`
	Redis       RedisConfig      `yaml:"redis"`
	Storage     StorageConfig    `yaml:"storage"`
	Logging     LoggingConfig    `yaml:"logging"`
}

// JobConfig selects what a run loads and who it notifies
type JobConfig struct {
	Name               string   `yaml:"name"`
	Variant            string   `yaml:"variant"`
	SQLDir             string   `yaml:"sql_dir"`
	EventsScript       string   `yaml:"events_script"`
	PreScripts         []string `yaml:"pre_scripts"`
	IncludeSalespeople bool     `yaml:"include_salespeople"`
	Timezone           string   `yaml:"timezone"`
	LockTTLMinutes     int      `yaml:"lock_ttl_minutes"`
	DryRun             bool     `yaml:"dry_run"`
}

// LockTTL returns the run lock TTL as a duration
func (c JobConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMinutes) * time.Minute
}

// Location returns the job's time zone
func (c JobConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// DatabaseConfig describes one SQL connection. DSN wins when set.
type DatabaseConfig struct {
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	Server    string `yaml:"server"`
	Database  string `yaml:"database"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
	SSLMode   string `yaml:"sslmode"`
}

// ConnString builds the driver connection string
func (c DatabaseConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch c.Driver {
	case "snowflake":
		// user:password@account/database/schema?warehouse=xxx
		dsn := fmt.Sprintf("%s:%s@%s/%s", url.PathEscape(c.User), url.PathEscape(c.Password), c.Server, c.Database)
		if c.Schema != "" {
			dsn += "/" + c.Schema
		}
		if c.Warehouse != "" {
			dsn += "?warehouse=" + url.QueryEscape(c.Warehouse)
		}
		return dsn
	default:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     c.Server,
			Path:     "/" + c.Database,
			RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
		}
		return u.String()
	}
}

func (c DatabaseConfig) configured() bool {
	return c.DSN != "" || (c.Server != "" && c.Database != "")
}

// WarehouseConfig is the connection holding the alert matrix and users
type WarehouseConfig struct {
	DatabaseConfig `yaml:",inline"`
	MatrixTable    string `yaml:"matrix_table"`
	UsersTable     string `yaml:"users_table"`
}

// MailConfig selects and configures the mail transport
type MailConfig struct {
	Transport      string `yaml:"transport"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	From           string `yaml:"from"`

	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	SenderUPN    string `yaml:"sender_upn"`

	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Timeout returns the per-send timeout as a duration
func (c MailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TableConfig controls report projection, ordering and coloring
type TableConfig struct {
	WantedColumns []string          `yaml:"wanted_columns"`
	StatusColors  map[string]string `yaml:"status_colors"`
	StatusOrder   []string          `yaml:"status_order"`
	CC            []string          `yaml:"cc"`
	ReportURL     string            `yaml:"report_url"`
	ReportLabel   string            `yaml:"report_label"`
}

// EmailConfig holds the liquid templates for the subject and headings
type EmailConfig struct {
	Subject  string `yaml:"subject"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
}

// EscalationConfig sends events of one status to a fixed mailbox
type EscalationConfig struct {
	Status   string `yaml:"status"`
	To       string `yaml:"to"`
	Subject  string `yaml:"subject"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
}

// Enabled reports whether escalation is configured
func (c EscalationConfig) Enabled() bool {
	return strings.TrimSpace(c.Status) != "" && strings.TrimSpace(c.To) != ""
}

// RedisConfig holds the optional run lock connection
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type          string `yaml:"type"`
	LocalPath     string `yaml:"local_path"`
	S3Bucket      string `yaml:"s3_bucket"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// LoggingConfig holds log level and per-run log file settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Dir       string `yaml:"dir"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether emails are masked in logs (default true)
func (c LoggingConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Job.Variant == "" {
		cfg.Job.Variant = VariantUnitChange
	}
	if cfg.Job.SQLDir == "" {
		cfg.Job.SQLDir = "sql"
	}
	if cfg.Job.Timezone == "" {
		cfg.Job.Timezone = "America/Toronto"
	}
	if cfg.Job.LockTTLMinutes == 0 {
		cfg.Job.LockTTLMinutes = 30
	}
	if cfg.Operational.Driver == "" {
		cfg.Operational.Driver = "postgres"
	}
	if cfg.Operational.SSLMode == "" {
		cfg.Operational.SSLMode = "require"
	}
	if cfg.Warehouse.Driver == "" {
		cfg.Warehouse.Driver = "postgres"
	}
	if cfg.Warehouse.SSLMode == "" {
		cfg.Warehouse.SSLMode = "require"
	}
	if cfg.Warehouse.MatrixTable == "" {
		cfg.Warehouse.MatrixTable = "AlertMatrix"
	}
	if cfg.Warehouse.UsersTable == "" {
		cfg.Warehouse.UsersTable = "AlertUsers"
	}
	if cfg.Mail.Transport == "" {
		cfg.Mail.Transport = "graph"
	}
	if cfg.Mail.TimeoutSeconds == 0 {
		cfg.Mail.TimeoutSeconds = 30
	}
	if cfg.Mail.Region == "" {
		cfg.Mail.Region = "us-east-1"
	}
	if cfg.Email.Subject == "" {
		cfg.Email.Subject = "{{ count }} unit change(s) for {{ branch }}"
	}
	if cfg.Email.Title == "" {
		cfg.Email.Title = "Unit changes"
	}
	if cfg.Email.Subtitle == "" {
		cfg.Email.Subtitle = "{{ name }} ({{ role }}, {{ branch }}) since {{ since }}"
	}
	if cfg.Escalation.Subject == "" {
		cfg.Escalation.Subject = "{{ count }} {{ status }} unit(s) need attention"
	}
	if cfg.Escalation.Title == "" {
		cfg.Escalation.Title = "{{ status }} units"
	}
	if cfg.Escalation.Subtitle == "" {
		cfg.Escalation.Subtitle = "Total {{ status }} records: {{ count }}"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "none"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-east-1"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so credentials can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	overrideDB(&cfg.Operational, "ID")
	overrideDB(&cfg.Warehouse.DatabaseConfig, "DW")

	overrideString(&cfg.Mail.TenantID, "GRAPH_TENANT_ID")
	overrideString(&cfg.Mail.ClientID, "GRAPH_CLIENT_ID")
	overrideString(&cfg.Mail.ClientSecret, "GRAPH_CLIENT_SECRET")
	overrideString(&cfg.Mail.SenderUPN, "GRAPH_SENDER_UPN")
	overrideString(&cfg.Mail.Region, "AWS_SES_REGION")
	overrideString(&cfg.Mail.AccessKey, "AWS_SES_ACCESS_KEY")
	overrideString(&cfg.Mail.SecretKey, "AWS_SES_SECRET_KEY")
	overrideString(&cfg.Mail.From, "MAIL_FROM")

	overrideString(&cfg.Redis.Addr, "REDIS_ADDR")
	overrideString(&cfg.Redis.Password, "REDIS_PASSWORD")

	overrideString(&cfg.Logging.Level, "LOG_LEVEL")

	return cfg, nil
}

func overrideDB(c *DatabaseConfig, prefix string) {
	overrideString(&c.Server, prefix+"_SERVER")
	overrideString(&c.Database, prefix+"_DATABASE")
	overrideString(&c.User, prefix+"_USER")
	overrideString(&c.Password, prefix+"_PASSWORD")
	overrideString(&c.DSN, prefix+"_DSN")
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate reports every missing or invalid setting in one error
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.Job.Name) == "" {
		add("job.name is required")
	}
	switch c.Job.Variant {
	case VariantUnitChange, VariantSalespeople, VariantSettlementAudit:
	default:
		add("job.variant %q is not one of %s, %s, %s", c.Job.Variant,
			VariantUnitChange, VariantSalespeople, VariantSettlementAudit)
	}
	if strings.TrimSpace(c.Job.EventsScript) == "" {
		add("job.events_script is required")
	}
	if _, err := c.Job.Location(); err != nil {
		add("job.timezone: %v", err)
	}

	wanted := 0
	for _, col := range c.Table.WantedColumns {
		if strings.TrimSpace(col) != "" {
			wanted++
		}
	}
	if wanted == 0 {
		add("table.wanted_columns needs at least one column")
	}

	validateDB(add, "operational", c.Operational)
	if c.NeedsWarehouse() {
		validateDB(add, "warehouse", c.Warehouse.DatabaseConfig)
	}

	if !c.Job.DryRun {
		switch c.Mail.Transport {
		case "graph":
			for _, f := range []struct{ name, val string }{
				{"tenant_id", c.Mail.TenantID}, {"client_id", c.Mail.ClientID},
				{"client_secret", c.Mail.ClientSecret}, {"sender_upn", c.Mail.SenderUPN},
			} {
				if f.val == "" {
					add("mail.%s is required for the graph transport", f.name)
				}
			}
		case "ses":
			if c.Mail.From == "" {
				add("mail.from is required for the ses transport")
			}
		default:
			add("mail.transport %q is not graph or ses", c.Mail.Transport)
		}
	}

	switch c.Storage.Type {
	case "none", "local":
	case "aws":
		if c.Storage.S3Bucket == "" && c.Storage.DynamoDBTable == "" {
			add("storage.s3_bucket or storage.dynamodb_table is required for aws storage")
		}
	default:
		add("storage.type %q is not none, local or aws", c.Storage.Type)
	}

	return errors.Join(errs...)
}

// NeedsWarehouse reports whether the variant reads the alert matrix and
// alert users
func (c *Config) NeedsWarehouse() bool {
	return c.Job.Variant == VariantUnitChange
}

func validateDB(add func(string, ...interface{}), section string, c DatabaseConfig) {
	switch c.Driver {
	case "postgres", "snowflake":
	default:
		add("%s.driver %q is not postgres or snowflake", section, c.Driver)
	}
	if !c.configured() {
		add("%s needs dsn or server and database", section)
	}
}
