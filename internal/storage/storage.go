package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ignite/unitchange-alerts/internal/config"
	"github.com/ignite/unitchange-alerts/internal/pkg/logger"
)

// Delivery outcomes recorded in the ledger.
const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusDryRun  = "dry-run"
	StatusSkipped = "skipped"
)

// Delivery is one ledger entry: what a run tried to send to whom, and how
// it went.
type Delivery struct {
	RunID     string    `json:"run_id"`
	Job       string    `json:"job"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Branch    string    `json:"branch"`
	Subject   string    `json:"subject,omitempty"`
	Events    int       `json:"events"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	ReportKey string    `json:"report_key,omitempty"`
	At        time.Time `json:"at"`
}

// Storage archives rendered reports and keeps the delivery ledger. With
// type "none" nothing is persisted.
type Storage struct {
	config config.StorageConfig
	mu     sync.Mutex

	// AWS storage (optional)
	aws *AWSStorage
}

// New creates a new Storage instance
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	s := &Storage{config: cfg}

	switch cfg.Type {
	case "aws":
		awsStorage, err := NewAWSStorage(ctx, cfg.DynamoDBTable, cfg.S3Bucket, cfg.AWSRegion, cfg.GetAWSProfile())
		if err != nil {
			return nil, fmt.Errorf("initializing AWS storage: %w", err)
		}
		s.aws = awsStorage

	case "local":
		if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	}

	return s, nil
}

// ReportKey is the archive key of one rendered report.
func ReportKey(job, runID, recipient string, at time.Time) string {
	return fmt.Sprintf("reports/%s/%s/%s/%s.html",
		safeName(job), at.UTC().Format("2006/01/02"), safeName(runID), safeName(recipient))
}

// ArchiveReport stores a rendered report and returns its key, or "" when
// archiving is disabled.
func (s *Storage) ArchiveReport(ctx context.Context, key, html string) (string, error) {
	switch s.config.Type {
	case "aws":
		if s.aws == nil || s.aws.bucket == "" {
			return "", nil
		}
		if err := s.aws.PutReport(ctx, key, html); err != nil {
			return "", err
		}
	case "local":
		path := filepath.Join(s.config.LocalPath, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", fmt.Errorf("creating report directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(html), 0644); err != nil {
			return "", fmt.Errorf("writing report: %w", err)
		}
	default:
		return "", nil
	}
	return key, nil
}

// RecordDelivery appends d to the ledger.
func (s *Storage) RecordDelivery(ctx context.Context, d Delivery) error {
	if d.At.IsZero() {
		d.At = time.Now().UTC()
	}

	switch s.config.Type {
	case "aws":
		if s.aws != nil && s.aws.tableName != "" {
			return s.aws.PutDelivery(ctx, d)
		}
	case "local":
		return s.appendToFile("ledger", d.Job+"_"+d.At.Format("2006-01-02"), d)
	}
	return nil
}

// appendToFile appends data as one JSON line to <category>/<key>.jsonl
func (s *Storage) appendToFile(category, key string, data interface{}) error {
	dir := filepath.Join(s.config.LocalPath, category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path := filepath.Join(dir, safeName(key)+".jsonl")
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(data); err != nil {
		logger.Error("failed to append ledger entry", "path", path, "error", err)
		return err
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9@._-]+`)

func safeName(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "unnamed"
	}
	return s
}
