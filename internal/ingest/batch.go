package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BatchOptions configures a folder scan.
type BatchOptions struct {
	// Workers is the number of files processed concurrently. Values below
	// one mean sequential processing.
	Workers int
	// OnResult, when set, is called after each file in completion order.
	OnResult func(*Result)
}

// BatchResult summarizes one folder scan.
type BatchResult struct {
	RunID     string
	Folder    string
	StartTime time.Time
	Duration  time.Duration
	// Papers and Images count attempted files by kind.
	Papers    int
	Images    int
	Persisted int
	Skipped   int
	Aborted   int
	Degraded  int
	// Results are in scan order.
	Results []*Result
}

// Scan lists the ingestible files under folder in walk order. Dotfiles are
// ignored.
func Scan(folder string) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotADirectory, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, folder)
	}

	var files []string
	err = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if KindOf(path) != KindUnknown {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", folder, err)
	}
	return files, nil
}

// Batch ingests every paper and image under folder. Per-file failures are
// recorded on the result and never stop the batch; only an invalid folder or
// cancellation is returned as an error.
func (p *Pipeline) Batch(ctx context.Context, folder string, opts BatchOptions) (*BatchResult, error) {
	files, err := Scan(folder)
	if err != nil {
		return nil, err
	}

	br := &BatchResult{
		RunID:     uuid.NewString(),
		Folder:    folder,
		StartTime: time.Now(),
		Results:   make([]*Result, len(files)),
	}
	logger := log.With("run", br.RunID[:8])
	logger.Info("batch started", "folder", folder, "files", len(files), "workers", max(opts.Workers, 1))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := p.Add(gctx, path)

			mu.Lock()
			br.Results[i] = res
			br.record(res)
			if opts.OnResult != nil {
				opts.OnResult(res)
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	br.Duration = time.Since(br.StartTime)
	logger.Info("batch finished",
		"papers", br.Papers, "images", br.Images,
		"persisted", br.Persisted, "skipped", br.Skipped, "aborted", br.Aborted,
		"duration", br.Duration.Round(time.Millisecond))

	if err := ctx.Err(); err != nil {
		return br, err
	}
	return br, nil
}

func (br *BatchResult) record(res *Result) {
	switch res.Kind {
	case KindPaper:
		br.Papers++
	case KindImage:
		br.Images++
	}
	switch res.Status {
	case StatusPersisted:
		br.Persisted++
		if res.Degraded() {
			br.Degraded++
		}
	case StatusSkipped:
		br.Skipped++
	case StatusAborted:
		br.Aborted++
	}
}

// Completed returns the non-nil results in scan order. Entries are nil for
// files never started because the batch was cancelled.
func (br *BatchResult) Completed() []*Result {
	out := make([]*Result, 0, len(br.Results))
	for _, r := range br.Results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
