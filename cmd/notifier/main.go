package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/unitchange-alerts/internal/config"
	"github.com/ignite/unitchange-alerts/internal/job"
	"github.com/ignite/unitchange-alerts/internal/mail"
	"github.com/ignite/unitchange-alerts/internal/pkg/distlock"
	"github.com/ignite/unitchange-alerts/internal/pkg/logger"
	"github.com/ignite/unitchange-alerts/internal/source"
	"github.com/ignite/unitchange-alerts/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the job configuration")
	dryRun := flag.Bool("dry-run", false, "render and archive reports without sending")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dryRun {
		cfg.Job.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config %s:\n%v", *configPath, err)
	}

	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	runID := uuid.NewString()
	start := time.Now()

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.Redact())
	logger.SetBaseFields("run_id", runID, "job", cfg.Job.Name)
	if cfg.Logging.Dir != "" {
		f, err := logger.OpenRunFile(cfg.Logging.Dir, cfg.Job.Name, start)
		if err != nil {
			log.Printf("Log file unavailable, logging to stderr only: %v", err)
		} else {
			defer f.Close()
			logger.SetOutput(io.MultiWriter(os.Stderr, f))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	operational, err := source.Open(connectCtx, cfg.Operational.Driver, cfg.Operational.ConnString())
	if err != nil {
		logger.Error("operational store unavailable", "error", err)
		return 1
	}
	defer operational.Close()

	var warehouse *sql.DB
	if cfg.NeedsWarehouse() {
		warehouse, err = source.Open(connectCtx, cfg.Warehouse.Driver, cfg.Warehouse.ConnString())
		if err != nil {
			logger.Error("warehouse unavailable", "error", err)
			return 1
		}
		defer warehouse.Close()
	}

	sender, err := newSender(ctx, cfg)
	if err != nil {
		logger.Error("mail transport unavailable", "error", err)
		return 1
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Error("storage unavailable", "error", err)
		return 1
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	lock := distlock.NewLock(rdb, operational, cfg.Operational.Driver, "unitchange:"+cfg.Job.Name, cfg.Job.LockTTL())

	inputs := &job.SQLInputs{
		Operational:  operational,
		Warehouse:    warehouse,
		SQLDir:       cfg.Job.SQLDir,
		EventsScript: cfg.Job.EventsScript,
		Scripts:      cfg.Job.PreScripts,
		MatrixTable:  cfg.Warehouse.MatrixTable,
		UsersTable:   cfg.Warehouse.UsersTable,
	}
	runner, err := job.NewRunner(cfg, runID, inputs, sender, store)
	if err != nil {
		logger.Error("failed to build runner", "error", err)
		return 1
	}

	err = distlock.Run(ctx, lock, func(ctx context.Context) error {
		_, err := runner.Run(ctx)
		return err
	})
	switch {
	case errors.Is(err, distlock.ErrHeld):
		logger.Warn("another run of this job is in progress, exiting")
		return 0
	case err != nil:
		logger.Error("run failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return 1
	}
	return 0
}

// newSender builds the configured transport. Dry runs never send, so a
// missing transport is not an error for them.
func newSender(ctx context.Context, cfg *config.Config) (mail.Sender, error) {
	if cfg.Job.DryRun {
		return nil, nil
	}
	switch cfg.Mail.Transport {
	case "graph":
		return mail.NewGraphSender(mail.GraphConfig{
			TenantID:     cfg.Mail.TenantID,
			ClientID:     cfg.Mail.ClientID,
			ClientSecret: cfg.Mail.ClientSecret,
			SenderUPN:    cfg.Mail.SenderUPN,
			Timeout:      cfg.Mail.Timeout(),
		})
	case "ses":
		return mail.NewSESSender(ctx, mail.SESConfig{
			Region:    cfg.Mail.Region,
			AccessKey: cfg.Mail.AccessKey,
			SecretKey: cfg.Mail.SecretKey,
			From:      cfg.Mail.From,
		})
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Mail.Transport)
	}
}
