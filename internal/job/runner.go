// Package job runs one notification pass: load the log, the matrix and the
// recipients, then compile, render and deliver one report per recipient.
package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/unitchange-alerts/internal/changelist"
	"github.com/ignite/unitchange-alerts/internal/config"
	"github.com/ignite/unitchange-alerts/internal/directory"
	"github.com/ignite/unitchange-alerts/internal/domain"
	"github.com/ignite/unitchange-alerts/internal/identity"
	"github.com/ignite/unitchange-alerts/internal/mail"
	"github.com/ignite/unitchange-alerts/internal/pkg/logger"
	"github.com/ignite/unitchange-alerts/internal/report"
	"github.com/ignite/unitchange-alerts/internal/rules"
	"github.com/ignite/unitchange-alerts/internal/schedule"
	"github.com/ignite/unitchange-alerts/internal/storage"
)

// Ledger archives reports and records delivery outcomes.
type Ledger interface {
	ArchiveReport(ctx context.Context, key, html string) (string, error)
	RecordDelivery(ctx context.Context, d storage.Delivery) error
}

// Summary totals one run.
type Summary struct {
	RunID      string
	Job        string
	Variant    string
	Window     schedule.Window
	Events     int
	Recipients int
	Processed  int
	Sent       int
	NoChanges  int
	Skipped    int
	Failed     int
	Escalated  int
}

// Runner executes a configured job. A Runner is used for a single run.
type Runner struct {
	cfg      *config.Config
	inputs   Inputs
	sender   mail.Sender
	ledger   Ledger
	renderer *report.Renderer
	compiler *changelist.Compiler
	loc      *time.Location
	runID    string
	now      func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner wires a runner. sender may be nil for dry runs.
func NewRunner(cfg *config.Config, runID string, inputs Inputs, sender mail.Sender, ledger Ledger, opts ...Option) (*Runner, error) {
	loc, err := cfg.Job.Location()
	if err != nil {
		return nil, fmt.Errorf("job timezone: %w", err)
	}
	if sender == nil && !cfg.Job.DryRun {
		return nil, errors.New("a mail sender is required unless dry_run is set")
	}
	renderer, err := report.NewRenderer(
		report.NewStatusRank(cfg.Table.StatusOrder),
		report.NewStatusColors(cfg.Table.StatusColors),
	)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:      cfg,
		inputs:   inputs,
		sender:   sender,
		ledger:   ledger,
		renderer: renderer,
		compiler: changelist.New(cfg.Table.WantedColumns),
		loc:      loc,
		runID:    runID,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type loaded struct {
	events *domain.Log
	raw    domain.Table
	engine *rules.Engine
	users  domain.Table
}

// Run performs the job. Per-recipient problems are logged and counted; the
// returned error is reserved for failures that stop the whole run (inputs
// unavailable, context cancelled).
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := r.now()
	window := schedule.ForTime(start, r.loc)
	sum := Summary{RunID: r.runID, Job: r.cfg.Job.Name, Variant: r.cfg.Job.Variant, Window: window}

	logger.Info("run started",
		"variant", r.cfg.Job.Variant,
		"window", string(window.Kind),
		"since", window.Since.Format(time.RFC3339),
		"dry_run", r.cfg.Job.DryRun)

	if r.cfg.Job.Variant == config.VariantSettlementAudit && len(r.cfg.Job.PreScripts) > 0 {
		if err := r.inputs.PreScripts(ctx); err != nil {
			return sum, fmt.Errorf("pre-scripts: %w", err)
		}
	}

	in, err := r.load(ctx, window.Since)
	if err != nil {
		return sum, err
	}
	sum.Events = in.events.Len()

	recipients := r.recipients(in)
	sum.Recipients = len(recipients)
	logger.Info("inputs loaded", "events", sum.Events, "recipients", sum.Recipients, "roles", in.engine.Roles())

	for _, rec := range recipients {
		if err := ctx.Err(); err != nil {
			logger.Warn("run aborted between recipients", "error", err)
			r.logSummary(sum, start)
			return sum, err
		}
		r.deliver(ctx, in, rec, window, &sum)
	}

	if r.cfg.Escalation.Enabled() {
		r.escalate(ctx, in, window, &sum)
	}

	r.logSummary(sum, start)
	return sum, nil
}

// load reads the events and, for the matrix-driven variant, the matrix and
// alert users concurrently.
func (r *Runner) load(ctx context.Context, since time.Time) (*loaded, error) {
	g, gctx := errgroup.WithContext(ctx)
	var events, matrix, users domain.Table

	g.Go(func() error {
		t, err := r.inputs.Events(gctx, since)
		if err != nil {
			return fmt.Errorf("load events: %w", err)
		}
		events = t
		return nil
	})
	if r.cfg.NeedsWarehouse() {
		g.Go(func() error {
			t, err := r.inputs.Matrix(gctx)
			if err != nil {
				return fmt.Errorf("load alert matrix: %w", err)
			}
			matrix = t
			return nil
		})
		g.Go(func() error {
			t, err := r.inputs.AlertUsers(gctx)
			if err != nil {
				return fmt.Errorf("load alert users: %w", err)
			}
			users = t
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &loaded{
		events: domain.DecodeLog(events),
		raw:    events,
		engine: rules.Compile(domain.DecodeRules(matrix)),
		users:  users,
	}, nil
}

func (r *Runner) recipients(in *loaded) []domain.Recipient {
	switch r.cfg.Job.Variant {
	case config.VariantSalespeople:
		return directory.Salespeople(in.raw)
	case config.VariantSettlementAudit:
		return directory.Auditors(in.raw)
	default:
		list := directory.AlertUsers(in.users)
		if r.cfg.Job.IncludeSalespeople {
			list = directory.Merge(list, directory.Salespeople(in.raw))
		}
		return list
	}
}

func (r *Runner) deliver(ctx context.Context, in *loaded, rec domain.Recipient, window schedule.Window, sum *Summary) {
	rec = rec.Trimmed()
	raw := rec.Email
	rec.Email = identity.NormalizeEmail(raw)
	d := storage.Delivery{RunID: r.runID, Job: r.cfg.Job.Name, Email: rec.Email, Role: rec.Role, Branch: rec.Branch}

	if err := rec.Validate(); err != nil {
		logger.Warn("skipping recipient", "error", err, "email", raw, "role", rec.Role, "branch", rec.Branch)
		sum.Skipped++
		return
	}
	sum.Processed++

	subset, err := r.compiler.Compile(in.events, in.engine, rec)
	if err != nil {
		logger.Error("cannot compile changes for recipient", "email", rec.Email, "role", rec.Role, "error", err)
		sum.Skipped++
		d.Status, d.Error = storage.StatusSkipped, err.Error()
		r.record(ctx, d)
		return
	}
	if subset.Len() == 0 {
		logger.Info("no matching changes", "email", rec.Email, "role", rec.Role, "branch", rec.Branch)
		sum.NoChanges++
		return
	}
	d.Events = subset.Len()

	vars := r.vars(rec, subset, window)
	msg, err := r.compose(r.cfg.Email.Subject, r.cfg.Email.Title, r.cfg.Email.Subtitle, vars, subset)
	if err != nil {
		logger.Error("failed to render report", "email", rec.Email, "error", err)
		sum.Failed++
		d.Status, d.Error = storage.StatusFailed, err.Error()
		r.record(ctx, d)
		return
	}
	msg.To, msg.CC = rec.Email, r.cfg.Table.CC
	d.Subject = msg.Subject
	d.ReportKey = r.archive(ctx, rec.Email, msg.HTML)

	if r.send(ctx, msg, &d) {
		sum.Sent++
	} else if d.Status == storage.StatusFailed {
		sum.Failed++
	}
	r.record(ctx, d)
}

// escalate sends every event in the escalation status to one mailbox.
func (r *Runner) escalate(ctx context.Context, in *loaded, window schedule.Window, sum *Summary) {
	esc := r.cfg.Escalation
	want := identity.StatusKey(esc.Status)
	subset := r.compiler.CompileAll(in.events).Filter(func(ev domain.Event) bool {
		return identity.StatusKey(ev.Status) == want
	})
	if subset.Len() == 0 {
		logger.Info("nothing to escalate", "status", esc.Status)
		return
	}

	vars := map[string]any{
		"status": esc.Status,
		"count":  subset.Len(),
		"job":    r.cfg.Job.Name,
		"since":  window.Since.In(r.loc).Format("2006-01-02 15:04"),
		"date":   r.now().In(r.loc).Format("2006-01-02"),
	}
	d := storage.Delivery{RunID: r.runID, Job: r.cfg.Job.Name, Email: esc.To, Role: "Escalation", Branch: domain.BranchAll, Events: subset.Len()}

	msg, err := r.compose(esc.Subject, esc.Title, esc.Subtitle, vars, subset)
	if err != nil {
		logger.Error("failed to render escalation", "error", err)
		sum.Failed++
		d.Status, d.Error = storage.StatusFailed, err.Error()
		r.record(ctx, d)
		return
	}
	msg.To = esc.To
	d.Subject = msg.Subject
	d.ReportKey = r.archive(ctx, "escalation-"+esc.To, msg.HTML)

	if r.send(ctx, msg, &d) {
		sum.Escalated = subset.Len()
	} else if d.Status == storage.StatusFailed {
		sum.Failed++
	}
	r.record(ctx, d)
}

func (r *Runner) vars(rec domain.Recipient, s *changelist.Subset, window schedule.Window) map[string]any {
	fixed := 0
	for _, ev := range s.Events {
		switch identity.StatusKey(ev.Status) {
		case "pending", "released":
			fixed++
		}
	}
	return map[string]any{
		"name":   rec.Name,
		"email":  rec.Email,
		"role":   rec.Role,
		"branch": rec.Branch,
		"count":  s.Len(),
		"fixed":  fixed,
		"job":    r.cfg.Job.Name,
		"window": string(window.Kind),
		"since":  window.Since.In(r.loc).Format("2006-01-02 15:04"),
		"date":   r.now().In(r.loc).Format("2006-01-02"),
	}
}

// compose expands the text templates and renders the HTML body.
func (r *Runner) compose(subjectTpl, titleTpl, subtitleTpl string, vars map[string]any, s *changelist.Subset) (mail.Message, error) {
	subject, err := r.renderer.Text(subjectTpl, vars)
	if err != nil {
		return mail.Message{}, err
	}
	title, err := r.renderer.Text(titleTpl, vars)
	if err != nil {
		return mail.Message{}, err
	}
	subtitle, err := r.renderer.Text(subtitleTpl, vars)
	if err != nil {
		return mail.Message{}, err
	}

	html, err := r.renderer.Render(report.Page{
		Title:       title,
		Subtitle:    subtitle,
		ReportURL:   r.cfg.Table.ReportURL,
		ReportLabel: r.cfg.Table.ReportLabel,
		Generated:   r.now().In(r.loc),
		Subset:      s,
	})
	if err != nil {
		return mail.Message{}, err
	}
	return mail.Message{Subject: strings.TrimSpace(subject), HTML: html}, nil
}

// send delivers msg once under the configured timeout and fills in the
// delivery status. It reports whether the message went out.
func (r *Runner) send(ctx context.Context, msg mail.Message, d *storage.Delivery) bool {
	if r.cfg.Job.DryRun {
		logger.Info("dry run, not sending", "email", msg.To, "subject", msg.Subject, "events", d.Events)
		d.Status = storage.StatusDryRun
		return false
	}

	timeout := r.cfg.Mail.Timeout()
	if timeout <= 0 {
		timeout = mail.DefaultTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := r.sender.Send(sendCtx, msg); err != nil {
		logger.Error("failed to send report", "email", msg.To, "role", d.Role, "branch", d.Branch, "error", err)
		d.Status, d.Error = storage.StatusFailed, err.Error()
		return false
	}
	logger.Info("report sent", "email", msg.To, "events", d.Events)
	d.Status = storage.StatusSent
	return true
}

func (r *Runner) archive(ctx context.Context, name, html string) string {
	if r.ledger == nil {
		return ""
	}
	key, err := r.ledger.ArchiveReport(ctx, storage.ReportKey(r.cfg.Job.Name, r.runID, name, r.now()), html)
	if err != nil {
		logger.Warn("failed to archive report", "email", name, "error", err)
		return ""
	}
	return key
}

func (r *Runner) record(ctx context.Context, d storage.Delivery) {
	if r.ledger == nil {
		return
	}
	d.At = r.now().UTC()
	if err := r.ledger.RecordDelivery(ctx, d); err != nil {
		logger.Warn("failed to record delivery", "email", d.Email, "error", err)
	}
}

func (r *Runner) logSummary(sum Summary, start time.Time) {
	logger.Info("run complete",
		"events", sum.Events,
		"recipients", sum.Recipients,
		"processed", sum.Processed,
		"sent", sum.Sent,
		"no_changes", sum.NoChanges,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"escalated", sum.Escalated,
		"duration_ms", r.now().Sub(start).Milliseconds())
}
