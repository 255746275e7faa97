// Package publisher runs the generate-and-write pass that refreshes the
// crawler-facing artifacts in the output directory.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/suntyn/sitegen/internal/apperr"
	"github.com/suntyn/sitegen/internal/checksum"
	"github.com/suntyn/sitegen/internal/history"
	"github.com/suntyn/sitegen/internal/metrics"
	"github.com/suntyn/sitegen/internal/sitemap"
	"github.com/suntyn/sitegen/internal/sse"
	"github.com/suntyn/sitegen/internal/storage"
)

// Trigger names what started a pass.
type Trigger string

// Triggers.
const (
	TriggerStartup  Trigger = "startup"
	TriggerManual   Trigger = "manual"
	TriggerWatch    Trigger = "watch"
	TriggerSchedule Trigger = "schedule"
	TriggerMCP      Trigger = "mcp"
)

// Notifier receives publish outcome events.
type Notifier interface {
	Publish(event sse.Event)
}

// Result describes a completed pass.
type Result struct {
	RunID      string             `json:"run_id"`
	Trigger    Trigger            `json:"trigger"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Files      []history.Artifact `json:"files"`
}

// Publisher writes the generated documents through a storage provider.
//
// At most one pass runs at a time. A pass requested while another is in
// flight is rejected with apperr.ErrBusy and writes nothing; it is not
// queued.
type Publisher struct {
	builder  *sitemap.Builder
	store    storage.Provider
	recorder history.Recorder
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	slot    *semaphore.Weighted
	running atomic.Bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithRecorder stores every pass in the run history.
func WithRecorder(r history.Recorder) Option {
	return func(p *Publisher) { p.recorder = r }
}

// WithNotifier broadcasts pass outcomes.
func WithNotifier(n Notifier) Option {
	return func(p *Publisher) { p.notifier = n }
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// New creates a publisher.
func New(b *sitemap.Builder, store storage.Provider, opts ...Option) *Publisher {
	p := &Publisher{
		builder: b,
		store:   store,
		logger:  slog.Default(),
		now:     time.Now,
		slot:    semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Busy reports whether a pass is in flight.
func (p *Publisher) Busy() bool {
	return p.running.Load()
}

// PublishAll renders all artifacts and replaces them in storage, in the
// order given by sitemap.Names. Each file is replaced atomically, but the
// set is not: if a write fails, earlier files keep their new content and
// later ones stay stale. No retry is attempted.
//
// Once the pass has the slot it runs to completion: cancelling ctx, for
// example a client disconnecting mid-request, does not stop it.
func (p *Publisher) PublishAll(ctx context.Context, trigger Trigger) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	if !p.slot.TryAcquire(1) {
		metrics.RecordRejected(string(trigger))
		p.logger.Debug("publish: rejected, pass already running", slog.String("trigger", string(trigger)))
		return nil, apperr.ErrBusy
	}
	p.running.Store(true)
	defer func() {
		p.running.Store(false)
		p.slot.Release(1)
	}()

	res := &Result{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: p.now(),
		Files:     []history.Artifact{},
	}

	err := p.writeAll(res)
	res.FinishedAt = p.now()
	p.finish(ctx, res, err)

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Publisher) writeAll(res *Result) error {
	for _, doc := range p.builder.Documents() {
		if err := p.store.Write(doc.Name, doc.Content); err != nil {
			return fmt.Errorf("publish %s: %w", doc.Name, err)
		}
		res.Files = append(res.Files, history.Artifact{
			Name:     doc.Name,
			Checksum: checksum.Sum(doc.Content),
			Size:     int64(len(doc.Content)),
		})
	}
	return nil
}

// finish logs, records and broadcasts the outcome. Failures here never
// change the pass result.
func (p *Publisher) finish(ctx context.Context, res *Result, passErr error) {
	elapsed := res.FinishedAt.Sub(res.StartedAt)
	outcome := "success"
	if passErr != nil {
		outcome = "failure"
	}
	metrics.ObservePublish(string(res.Trigger), outcome, elapsed)

	names := make([]string, len(res.Files))
	for i, f := range res.Files {
		names[i] = f.Name
	}

	if passErr != nil {
		p.logger.Error("publish: failed",
			slog.String("run_id", res.RunID),
			slog.String("trigger", string(res.Trigger)),
			slog.Any("written", names),
			slog.String("error", passErr.Error()))
	} else {
		p.logger.Info("publish: completed",
			slog.String("run_id", res.RunID),
			slog.String("trigger", string(res.Trigger)),
			slog.Any("files", names),
			slog.Duration("elapsed", elapsed))
	}

	if p.recorder != nil {
		run := history.Run{
			RunID:      res.RunID,
			Trigger:    string(res.Trigger),
			StartedAt:  res.StartedAt,
			FinishedAt: res.FinishedAt,
			Success:    passErr == nil,
			Files:      res.Files,
		}
		if passErr != nil {
			run.Error = passErr.Error()
		}
		if _, err := p.recorder.Record(ctx, run); err != nil {
			p.logger.Warn("publish: record history failed",
				slog.String("run_id", res.RunID),
				slog.String("error", err.Error()))
		}
	}

	if p.notifier != nil {
		if passErr != nil {
			p.notifier.Publish(sse.Event{Type: sse.EventFailed, Data: map[string]any{
				"run_id":  res.RunID,
				"trigger": res.Trigger,
				"written": names,
				"error":   passErr.Error(),
			}})
		} else {
			p.notifier.Publish(sse.Event{Type: sse.EventPublished, Data: res})
		}
	}
}
