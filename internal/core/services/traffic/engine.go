// Package traffic coordinates one interface's background transfers: a
// download, an upload and ICMP probes run concurrently each cycle, each under
// its own timeout. Whatever bytes actually moved are folded into the
// persisted counters before the cycle ends.
package traffic

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/lcalzada-xor/wifisim/internal/config"
	"github.com/lcalzada-xor/wifisim/internal/core/domain"
	"github.com/lcalzada-xor/wifisim/internal/core/ports"
	"github.com/lcalzada-xor/wifisim/internal/telemetry"
)

// Engine implements the per-cycle traffic workload.
type Engine struct {
	runner ports.TrafficRunner
	store  ports.StatsStore
	log    *slog.Logger
	iface  string

	mu    sync.Mutex
	stats domain.TrafficStats
}

// New creates an engine, restoring persisted counters for the interface.
// A corrupt or missing stats file yields zeroed counters, never an error.
func New(runner ports.TrafficRunner, store ports.StatsStore, logger *slog.Logger, iface string) *Engine {
	e := &Engine{runner: runner, store: store, log: logger, iface: iface}
	stats, err := store.Load(iface)
	if err != nil {
		logger.Warn("loading persisted traffic stats failed, starting from zero", "error", err)
		stats = domain.TrafficStats{}
	}
	e.stats.Merge(stats)
	return e
}

// Stats returns a copy of the current counters.
func (e *Engine) Stats() domain.TrafficStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// RunCycle performs one concurrent transfer trio and persists the updated
// counters. Individual sub-task failures are logged and absorbed; the cycle
// itself only fails on a persistence error.
func (e *Engine) RunCycle(ctx context.Context, settings config.Settings) error {
	timeout := settings.SubTaskTimeout()
	var wg sync.WaitGroup
	var downloaded, uploaded int64

	wg.Add(1)
	go func() {
		defer wg.Done()
		subCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		n, err := e.runner.Download(subCtx)
		if err != nil {
			e.log.Warn("download sub-task failed", "bytes", n, "error", err)
		}
		downloaded = n
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		subCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		n, err := e.runner.Upload(subCtx)
		if err != nil {
			e.log.Warn("upload sub-task failed", "error", err)
		}
		uploaded = n
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		subCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		for _, target := range settings.PingTargets {
			if subCtx.Err() != nil {
				return
			}
			if err := e.runner.Ping(subCtx, e.iface, target); err != nil {
				e.log.Warn("ping sub-task failed", "target", target, "error", err)
			}
		}
	}()

	// All three must have finished before counters move or the cycle ends.
	wg.Wait()

	e.mu.Lock()
	e.stats.AddDownload(downloaded)
	e.stats.AddUpload(uploaded)
	e.stats.UpdatedAt = time.Now()
	// Reconcile against the file before overwriting it; the counters are
	// monotonic for the deployment, not for one process lifetime.
	if persisted, err := e.store.Load(e.iface); err == nil {
		e.stats.Merge(persisted)
	}
	stats := e.stats
	e.mu.Unlock()

	telemetry.TrafficBytes.WithLabelValues(e.iface, "download").Add(float64(downloaded))
	telemetry.TrafficBytes.WithLabelValues(e.iface, "upload").Add(float64(uploaded))
	e.log.Info("traffic cycle finished",
		"downloaded", strconv.FormatInt(downloaded, 10),
		"uploaded", strconv.FormatInt(uploaded, 10),
		"total_download", strconv.FormatInt(stats.DownloadBytes, 10),
		"total_upload", strconv.FormatInt(stats.UploadBytes, 10))

	return e.store.Save(e.iface, stats)
}
