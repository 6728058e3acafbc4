// Package app bootstraps one simulated client: it builds the adapter stack,
// composes the role services around it and runs the control loop and status
// server side by side.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lcalzada-xor/wifisim/internal/adapters/credfile"
	"github.com/lcalzada-xor/wifisim/internal/adapters/nm"
	"github.com/lcalzada-xor/wifisim/internal/adapters/reporting"
	"github.com/lcalzada-xor/wifisim/internal/adapters/storage"
	"github.com/lcalzada-xor/wifisim/internal/adapters/supplicant"
	"github.com/lcalzada-xor/wifisim/internal/adapters/system"
	"github.com/lcalzada-xor/wifisim/internal/adapters/traffic"
	"github.com/lcalzada-xor/wifisim/internal/adapters/web"
	"github.com/lcalzada-xor/wifisim/internal/config"
	"github.com/lcalzada-xor/wifisim/internal/core/domain"
	"github.com/lcalzada-xor/wifisim/internal/core/services/badclient"
	"github.com/lcalzada-xor/wifisim/internal/core/services/catalog"
	"github.com/lcalzada-xor/wifisim/internal/core/services/client"
	"github.com/lcalzada-xor/wifisim/internal/core/services/connection"
	"github.com/lcalzada-xor/wifisim/internal/core/services/health"
	"github.com/lcalzada-xor/wifisim/internal/core/services/identity"
	"github.com/lcalzada-xor/wifisim/internal/core/services/roaming"
	trafficsvc "github.com/lcalzada-xor/wifisim/internal/core/services/traffic"
	"github.com/lcalzada-xor/wifisim/internal/logsink"
	"github.com/lcalzada-xor/wifisim/internal/telemetry"
)

// Application holds the composed components for one client process.
type Application struct {
	Config    *config.Config
	Client    *client.Client
	WebServer *web.Server

	sink *logsink.FileSink
}

// New creates an Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}
	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}
	return app, nil
}

func (app *Application) bootstrap() error {
	telemetry.InitMetrics()
	cfg := app.Config

	sink, err := logsink.NewFileSink(cfg.LogDir, logFileName(cfg.Role))
	if err != nil {
		return err
	}
	app.sink = sink

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(logsink.NewHandler(sink, level))

	// Adapter stack.
	exec := system.New()
	managed := nm.New(exec, logger)
	supp := supplicant.New(exec, logger)
	creds := credfile.New(filepath.Join(cfg.ConfigDir, "ssid.conf"))

	statsStore, err := storage.NewStatsFileStore(cfg.StatsDir)
	if err != nil {
		return fmt.Errorf("stats store init failed: %w", err)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create DB directory: %w", err)
		}
	}
	audit, err := storage.NewSQLiteAdapter(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("event store init failed: %w", err)
	}

	defaults := config.DefaultSettings()
	runner := traffic.NewRunner(exec, logger,
		defaults.DownloadURL, defaults.UploadURL, defaults.MaxTransferBytes)

	// Role services.
	cat := catalog.New(managed, logger, cfg.Interface, cfg.ScanInterval)
	driver := connection.New(managed, supp, logger, cfg.AttemptTimeout)
	roamer := roaming.New(driver, cat, audit, logger, cfg.Interface, cfg.Hostname)
	cycler := badclient.New(driver, cat, audit, logger, cfg.Interface)
	monitor := health.New(managed, driver, logger, cfg.Interface, cfg.Hostname)
	engine := trafficsvc.New(runner, statsStore, logger, cfg.Interface)
	locker := identity.New(cfg.LockDir, logger)

	app.Client, err = client.New(client.Deps{
		Config:   cfg,
		Driver:   driver,
		Catalog:  cat,
		Roamer:   roamer,
		Cycler:   cycler,
		Monitor:  monitor,
		Traffic:  engine,
		Identity: locker,
		Creds:    creds,
		Logger:   logger,
		Tune: func(s config.Settings) {
			cat.SetMinSignal(s.MinSignalDBM)
			runner.SetURLs(s.DownloadURL, s.UploadURL, s.MaxTransferBytes)
		},
	})
	if err != nil {
		return err
	}

	exporter := reporting.NewPDFExporter(audit)
	app.WebServer = web.NewServer(cfg.StatusAddr, app.Client, audit, sink, exporter, logger)
	return nil
}

// Run starts the control loop and the status server, returning when the
// context ends or either component fails.
func (app *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	webErr := make(chan error, 1)
	go func() {
		if err := app.WebServer.Run(ctx); err != nil {
			webErr <- fmt.Errorf("status server error: %w", err)
		}
	}()

	clientErr := make(chan error, 1)
	go func() { clientErr <- app.Client.Run(ctx) }()

	var err error
	select {
	case err = <-webErr:
		// Let the control loop finish its cleanup before returning.
		cancel()
		<-clientErr
	case err = <-clientErr:
	}

	app.sink.Close()
	return err
}

func logFileName(role string) string {
	if domain.Role(role) == domain.RoleWired {
		return "wired.log"
	}
	return "wifi-" + role + ".log"
}
