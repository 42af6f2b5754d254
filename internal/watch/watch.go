// Package watch ingests an inbox folder on a cron schedule.
package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/ingest"
)

// ErrBusy is returned by RunOnce while a previous run is still in progress.
var ErrBusy = errors.New("watch: previous run still in progress")

// Batcher ingests a folder. *ingest.Pipeline satisfies it.
type Batcher interface {
	Batch(ctx context.Context, folder string, opts ingest.BatchOptions) (*ingest.BatchResult, error)
}

// Config configures a Watcher.
type Config struct {
	Folder   string
	Schedule string // standard 5-field cron or a descriptor like @every 10m
	Workers  int
	// OnRun, when set, receives every completed run.
	OnRun func(*ingest.BatchResult)
}

// Watcher runs a batch ingest of one folder on every schedule tick. Ticks
// that fire while a run is still in progress are skipped.
type Watcher struct {
	cron    *cron.Cron
	entryID cron.EntryID
	batcher Batcher
	cfg     Config

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	runs    int
	skipped int
	lastRun time.Time
	lastErr error
}

// New validates the schedule and creates a stopped Watcher.
func New(b Batcher, cfg Config) (*Watcher, error) {
	if cfg.Folder == "" {
		return nil, fmt.Errorf("watch: folder is required")
	}
	sched, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("watch: invalid schedule %q: %w", cfg.Schedule, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		cron:    cron.New(),
		batcher: b,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}
	w.entryID = w.cron.Schedule(sched, cron.FuncJob(w.tick))
	return w, nil
}

// Start begins firing on the schedule.
func (w *Watcher) Start() {
	w.cron.Start()
	log.Info("watching folder", "folder", w.cfg.Folder, "schedule", w.cfg.Schedule, "next", w.Next().Format(time.RFC3339))
}

// Stop cancels an in-flight run and waits for it to return.
func (w *Watcher) Stop() {
	w.cancel()
	<-w.cron.Stop().Done()
	log.Info("watcher stopped", "runs", w.Runs())
}

// Next returns when the next run is due. It is zero before Start.
func (w *Watcher) Next() time.Time {
	return w.cron.Entry(w.entryID).Next
}

func (w *Watcher) tick() {
	if _, err := w.RunOnce(w.ctx); err != nil {
		if errors.Is(err, ErrBusy) {
			log.Warn("skipping scheduled run", "folder", w.cfg.Folder, "reason", err)
			return
		}
		log.Error("scheduled run failed", "folder", w.cfg.Folder, "err", err)
	}
}

// RunOnce ingests the folder now. It returns ErrBusy without doing anything
// when another run has not finished.
func (w *Watcher) RunOnce(ctx context.Context) (*ingest.BatchResult, error) {
	if !w.running.CompareAndSwap(false, true) {
		w.mu.Lock()
		w.skipped++
		w.mu.Unlock()
		return nil, ErrBusy
	}
	defer w.running.Store(false)

	br, err := w.batcher.Batch(ctx, w.cfg.Folder, ingest.BatchOptions{Workers: w.cfg.Workers})

	w.mu.Lock()
	w.runs++
	w.lastRun = time.Now()
	w.lastErr = err
	w.mu.Unlock()

	if br != nil && w.cfg.OnRun != nil {
		w.cfg.OnRun(br)
	}
	return br, err
}

// Runs returns how many runs have completed.
func (w *Watcher) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// Skipped returns how many runs were skipped because of overlap.
func (w *Watcher) Skipped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.skipped
}

// LastRun returns when the most recent run finished.
func (w *Watcher) LastRun() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun
}

// LastError returns the error of the most recent run.
func (w *Watcher) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}
