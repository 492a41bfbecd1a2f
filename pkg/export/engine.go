// Package export wires the walker, the planner, the download pool, and the
// report together into one run.
package export

import (
	"context"
	"path/filepath"
	"time"

	"smugvault/internal/downloader"
	"smugvault/pkg/config"
	"smugvault/pkg/inventory"
	"smugvault/pkg/logger"
	"smugvault/pkg/planner"
	"smugvault/pkg/ratelimit"
	"smugvault/pkg/report"
	"smugvault/pkg/retry"
	"smugvault/pkg/smugmug"
	"smugvault/pkg/state"
	"smugvault/pkg/storage"
)

// Client is the remote surface the engine needs. *smugmug.Client satisfies
// it; tests substitute a fake.
type Client interface {
	inventory.CatalogClient
	downloader.ImageSource
}

// Engine runs one export.
type Engine struct {
	cfg    *config.Config
	client Client
	logger logger.Logger

	// DryRun stops after planning; nothing is downloaded or written.
	DryRun bool
}

// New builds an engine from configuration and OAuth credentials. The rate
// limiter lives inside the client so every HTTP request, pagination and
// downloads included, costs one token.
func New(cfg *config.Config, creds *smugmug.OAuth1Credentials, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	client := smugmug.NewClient(cfg.Download.DownloadTimeout, creds, log)
	if cfg.SmugMug.UserAgent != "" {
		client.SetUserAgent(cfg.SmugMug.UserAgent)
	}

	rpm := cfg.RateLimit.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := cfg.RateLimit.BurstSize
	if burst <= 0 {
		burst = 1
	}
	// The bucket refills to capacity each period, so the period scales
	// with the burst size to hold the configured steady rate.
	period := time.Duration(int64(time.Minute) * int64(burst) / int64(rpm))
	client.SetLimiter(ratelimit.NewTokenBucket(burst, period))

	return &Engine{cfg: cfg, client: client, logger: log}
}

// NewWithClient builds an engine around an existing client, for tests.
func NewWithClient(cfg *config.Config, client Client, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{cfg: cfg, client: client, logger: log}
}

// Run walks the remote tree, reconciles it against the local tree, downloads
// what is missing, and writes the report. The returned report is non-nil
// whenever the walk succeeded, even for aborted runs; the error carries the
// abort cause.
func (e *Engine) Run(ctx context.Context, nickname string) (*report.Report, error) {
	startedAt := time.Now().UTC()
	retryCfg := retry.FromConfig(&e.cfg.Retry, ctx, e.logger)

	logger.LogComponentStart("inventory walk")
	walker := inventory.NewWalker(e.client, retryCfg, e.cfg.Walk.Concurrency, e.logger)
	inv, err := walker.Walk(ctx, nickname)
	if err != nil {
		return nil, err
	}

	logger.LogComponentStart("local index scan")
	index := state.NewIndex(e.cfg.Output.BaseDirectory, e.logger)
	if err := index.Scan(); err != nil {
		return nil, err
	}

	logger.LogComponentStart("reconciliation")
	plan, err := planner.Build(inv, index)
	if err != nil {
		return nil, err
	}
	e.logger.WithFields(map[string]interface{}{
		"downloads":    plan.Downloads(),
		"meta_updates": len(plan.Items) - plan.Downloads(),
		"skipped":      plan.Skipped,
	}).Info("plan ready")

	if e.DryRun {
		rep := report.Build(inv, index, plan, nil, startedAt, nil)
		return rep, nil
	}

	store, err := storage.NewManager(e.cfg.Output.BaseDirectory, e.logger)
	if err != nil {
		return nil, err
	}

	// Gallery sidecars are cheap local writes; they land before the
	// downloads so partially synced galleries still carry their metadata.
	for _, gm := range plan.GalleryMeta {
		if err := store.WriteFile(gm.RelPath, gm.Content); err != nil {
			return nil, err
		}
		index.MarkPresent(gm.RelPath, int64(len(gm.Content)), "")
	}

	logger.LogComponentStart("download")
	pool := downloader.NewPool(e.client, store, index, retryCfg,
		e.cfg.Download.ConcurrentDownloads, e.logger)
	results, abortErr := pool.Run(ctx, plan.Items)

	rep := report.Build(inv, index, plan, results, startedAt, abortErr)
	if err := e.saveReport(rep); err != nil {
		e.logger.WithError(err).Error("failed to write report file")
		if abortErr == nil {
			abortErr = err
		}
	}
	return rep, abortErr
}

func (e *Engine) saveReport(rep *report.Report) error {
	path := e.cfg.Output.ReportFile
	if path == "" {
		return nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.cfg.Output.BaseDirectory, path)
	}
	return rep.Save(path)
}

// ReportPath resolves where the report lands for this configuration.
func (e *Engine) ReportPath() string {
	path := e.cfg.Output.ReportFile
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.cfg.Output.BaseDirectory, path)
}
