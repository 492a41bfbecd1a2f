// Package downloader runs the planned work list through a bounded worker
// pool. Workers share one retry policy; throttling happens inside the image
// source, per HTTP request. A fatal error in any worker cancels the whole
// pool.
package downloader

import (
	"context"
	"io"
	"sync"
	"time"

	errs "smugvault/pkg/errors"
	"smugvault/pkg/logger"
	"smugvault/pkg/planner"
	"smugvault/pkg/retry"
	"smugvault/pkg/smugmug"
	"smugvault/pkg/state"
	"smugvault/pkg/storage"
)

// ImageSource resolves and fetches image bodies. *smugmug.Client satisfies
// it.
type ImageSource interface {
	ResolveImageURL(ctx context.Context, img *smugmug.AlbumImage) (string, error)
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Status is the terminal outcome of one work item.
type Status int

const (
	// StatusDone means the item completed, image verified and sidecar
	// written.
	StatusDone Status = iota
	// StatusFailed means retries were exhausted on a transient error.
	StatusFailed
	// StatusSkippedItem means the item was never attempted because the
	// run aborted first.
	StatusSkippedItem
)

// Result records how one work item ended.
type Result struct {
	Item     planner.WorkItem
	Status   Status
	Err      error
	Attempts int
	Bytes    int64
	Duration time.Duration
}

// Pool drains a plan's work items with bounded concurrency.
type Pool struct {
	source   ImageSource
	store    *storage.Manager
	index    *state.Index
	retryCfg *retry.Config
	workers  int
	logger   logger.Logger
}

// NewPool builds a pool.
func NewPool(source ImageSource, store *storage.Manager, index *state.Index,
	retryCfg *retry.Config, workers int, log logger.Logger) *Pool {
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pool{
		source:   source,
		store:    store,
		index:    index,
		retryCfg: retryCfg,
		workers:  workers,
		logger:   log,
	}
}

// Run processes every item and returns one Result per item, in no particular
// order. The returned error is the fatal error that aborted the run, nil
// otherwise; exhausted transient failures are reported per item, they never
// stop the other workers.
func (p *Pool) Run(ctx context.Context, items []planner.WorkItem) ([]Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan planner.WorkItem)
	results := make(chan Result, len(items))

	var (
		fatalOnce sync.Once
		fatalErr  error
	)
	abort := func(err error) {
		fatalOnce.Do(func() {
			fatalErr = err
			cancel()
		})
	}

	var wg sync.WaitGroup
	wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer wg.Done()
			for item := range jobs {
				if ctx.Err() != nil {
					results <- Result{Item: item, Status: StatusSkippedItem, Err: ctx.Err()}
					continue
				}
				res := p.process(ctx, item)
				if res.Err != nil && errs.IsFatalError(res.Err) {
					abort(res.Err)
				}
				results <- res
			}
		}()
	}

	// Feed jobs until done or aborted. Unfed items are reported as
	// skipped so the report accounts for every planned item.
	fed := 0
feed:
	for _, item := range items {
		select {
		case jobs <- item:
			fed++
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	out := make([]Result, 0, len(items))
	for res := range results {
		out = append(out, res)
	}
	for _, item := range items[fed:] {
		out = append(out, Result{Item: item, Status: StatusSkippedItem, Err: ctx.Err()})
	}

	if fatalErr == nil && ctx.Err() != nil {
		fatalErr = ctx.Err()
	}
	return out, fatalErr
}

// process runs one item to its terminal status.
func (p *Pool) process(ctx context.Context, item planner.WorkItem) Result {
	start := time.Now()
	res := Result{Item: item}

	if item.Action == planner.ActionWriteMeta {
		if err := p.store.WriteFile(item.SidecarRel, item.Sidecar); err != nil {
			res.Status = StatusFailed
			res.Err = err
			return res
		}
		p.index.MarkPresent(item.SidecarRel, int64(len(item.Sidecar)), "")
		res.Status = StatusDone
		res.Duration = time.Since(start)
		return res
	}

	cfg := *p.retryCfg
	cfg.Context = ctx
	attempts := 0

	var sum string
	err := retry.Do(func() error {
		attempts++
		var opErr error
		sum, opErr = p.downloadOnce(ctx, item, &res)
		return opErr
	}, &cfg)

	res.Attempts = attempts
	res.Duration = time.Since(start)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		logger.LogDownload(item.Gallery.Name, item.Photo.ID, false, err)
		return res
	}

	// The sidecar write happens after the image verifies, so a crash
	// between the two re-plans at most the sidecar. A listing without a
	// checksum gets the computed one recorded instead.
	sidecar := item.Sidecar
	if item.Photo.MD5 == "" && sum != "" {
		if rendered, merr := item.SidecarWithChecksum(sum); merr == nil {
			sidecar = rendered
		}
	}
	if err := p.store.WriteFile(item.SidecarRel, sidecar); err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	p.index.MarkPresent(item.SidecarRel, int64(len(sidecar)), "")

	res.Status = StatusDone
	logger.LogDownload(item.Gallery.Name, item.Photo.ID, true, nil)
	return res
}

// downloadOnce is a single resolve-fetch-verify attempt. It returns the hex
// MD5 of the written bytes.
func (p *Pool) downloadOnce(ctx context.Context, item planner.WorkItem, res *Result) (string, error) {
	url, err := p.source.ResolveImageURL(ctx, &item.Photo.Image)
	if err != nil {
		return "", err
	}

	body, err := p.source.Download(ctx, url)
	if err != nil {
		return "", err
	}
	defer body.Close()

	written, sum, err := p.store.SaveImage(item.RelPath, body, item.Photo.MD5, item.Photo.Size)
	if err != nil {
		return "", err
	}

	res.Bytes = written
	p.index.MarkPresent(item.RelPath, written, sum)
	return sum, nil
}
