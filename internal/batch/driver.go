// Package batch runs one settings profile over a list of source images,
// isolating per-image failures, and packages the successes.
package batch

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harliandi/go-batchcrop/internal/archive"
	"github.com/harliandi/go-batchcrop/internal/converter"
	"github.com/harliandi/go-batchcrop/internal/settings"
	"github.com/harliandi/go-batchcrop/pkg/metrics"
)

// ErrEmptyBatch is returned when no image of a batch could be processed
var ErrEmptyBatch = errors.New("no images were processed successfully")

// ItemError records why one source was skipped.
type ItemError struct {
	Index int
	Name  string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Source is one input image as read from disk or an archive.
type Source struct {
	Name string
	Data []byte
}

// Stage names a step of a batch run.
type Stage string

const (
	StageInitializing Stage = "initializing"
	StageTransforming Stage = "transforming"
	StageItemFailed   Stage = "item-failed"
	StagePackaging    Stage = "packaging"
	StageCompleted    Stage = "completed"
)

// Progress is reported as a batch moves through its stages. Index and Name
// are set for per-item events, Err for StageItemFailed.
type Progress struct {
	Stage Stage
	Index int
	Total int
	Name  string
	Err   error
}

// ProgressFunc receives progress events. Calls are never concurrent.
type ProgressFunc func(Progress)

// Options configures a Driver.
type Options struct {
	// Workers is the number of images processed at once. Zero means one
	// per CPU; 1 processes strictly in input order.
	Workers   int
	Converter converter.Options
	Archive   archive.Options
	Progress  ProgressFunc
}

// Result is the outcome of a batch: the successful items in input order.
type Result struct {
	RunID  string
	Items  []converter.Item
	Failed []*ItemError
	Total  int
}

// Driver runs batches with fixed settings.
type Driver struct {
	settings settings.Settings
	opts     Options
	logger   *slog.Logger

	mu sync.Mutex
}

// New creates a Driver.
func New(s settings.Settings, opts Options, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Driver{
		settings: s,
		opts:     opts,
		logger:   logger,
	}
}

func (d *Driver) report(p Progress) {
	if d.opts.Progress == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opts.Progress(p)
}

// Run converts every source. Invalid settings fail the whole batch before
// any image is touched; a failing image is recorded and skipped. If no image
// succeeds Run returns ErrEmptyBatch along with the failures.
func (d *Driver) Run(ctx context.Context, sources []Source) (Result, error) {
	res := Result{RunID: uuid.NewString(), Total: len(sources)}
	logger := d.logger.With("run_id", res.RunID)

	d.report(Progress{Stage: StageInitializing, Total: len(sources)})

	if err := d.settings.Validate(); err != nil {
		metrics.RecordBatch("invalid")
		return res, err
	}

	logger.Info("starting batch",
		"images", len(sources),
		"workers", d.opts.Workers,
		"size", fmt.Sprintf("%dx%d", d.settings.Width, d.settings.Height),
		"anchor", d.settings.Anchor,
		"format", d.settings.Format,
	)
	start := time.Now()

	conv := converter.New(d.settings, d.opts.Converter, logger)
	process := func(ctx context.Context, j job) outcome {
		src := j.source
		d.report(Progress{Stage: StageTransforming, Index: j.index, Total: len(sources), Name: src.Name})

		item, err := conv.Convert(ctx, src.Name, src.Data)
		if err != nil {
			ierr := &ItemError{Index: j.index, Name: src.Name, Err: err}
			metrics.RecordItem("error", len(src.Data), 0)
			logger.Warn("skipping image", "index", j.index, "name", src.Name, "error", err)
			d.report(Progress{Stage: StageItemFailed, Index: j.index, Total: len(sources), Name: src.Name, Err: ierr})
			return outcome{index: j.index, err: ierr}
		}
		metrics.RecordItem("success", len(src.Data), len(item.Data))
		return outcome{index: j.index, item: item}
	}

	items := make([]*converter.Item, len(sources))
	pool := newWorkerPool(d.opts.Workers, process, logger)
	err := pool.run(ctx, sources, func(out outcome) {
		var ierr *ItemError
		if errors.As(out.err, &ierr) {
			res.Failed = append(res.Failed, ierr)
			return
		}
		items[out.index] = &out.item
	})
	if err != nil {
		metrics.RecordBatch("cancelled")
		logger.Warn("batch cancelled", "error", err)
		return res, err
	}

	for _, item := range items {
		if item != nil {
			res.Items = append(res.Items, *item)
		}
	}
	slices.SortFunc(res.Failed, func(a, b *ItemError) int {
		return cmp.Compare(a.Index, b.Index)
	})

	logger.Info("batch finished",
		"succeeded", len(res.Items),
		"failed", len(res.Failed),
		"duration", time.Since(start),
	)

	if len(res.Items) == 0 {
		metrics.RecordBatch("empty")
		return res, ErrEmptyBatch
	}
	metrics.RecordBatch("success")
	return res, nil
}

// Package runs the batch and writes the successful items to w as a zip.
// Nothing is written when the batch fails.
func (d *Driver) Package(ctx context.Context, sources []Source, w io.Writer) (Result, archive.Stats, error) {
	res, err := d.Run(ctx, sources)
	if err != nil {
		return res, archive.Stats{}, err
	}

	d.report(Progress{Stage: StagePackaging, Total: len(sources)})

	stats, err := archive.Write(w, res.Items, d.settings.Format, d.opts.Archive)
	if err != nil {
		return res, stats, fmt.Errorf("package archive: %w", err)
	}
	metrics.RecordArchive(stats.Bytes)

	for _, name := range stats.Overwritten {
		d.logger.Warn("archive entry overwritten by a later image", "run_id", res.RunID, "entry", name)
	}
	for _, r := range stats.Renamed {
		d.logger.Info("archive entry renamed", "run_id", res.RunID, "name", r.From, "entry", r.To)
	}

	d.report(Progress{Stage: StageCompleted, Total: len(sources)})
	return res, stats, nil
}
