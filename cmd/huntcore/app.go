package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/GhostbusterQuest/huntcore/internal/catalog"
	"github.com/GhostbusterQuest/huntcore/internal/config"
	"github.com/GhostbusterQuest/huntcore/internal/influx"
	"github.com/GhostbusterQuest/huntcore/internal/logging"
	intOtel "github.com/GhostbusterQuest/huntcore/internal/otel"
	"github.com/GhostbusterQuest/huntcore/internal/session"
	"github.com/GhostbusterQuest/huntcore/internal/storage"
	"github.com/rs/zerolog"
)

// influxBackupName is the gzip line-protocol file used while InfluxDB is unreachable.
const influxBackupName = "influx_backup.lp.gz"

// app is everything a command needs, built from the loaded config.
type app struct {
	Logger      *slog.Logger
	ZLog        zerolog.Logger
	SlogManager *logging.SlogManager
	OTel        *intOtel.Provider
	Store       storage.Backend
	Catalog     *catalog.Catalog
	Influx      *influx.Manager // nil when disabled

	started  time.Time
	logFile  *os.File
	otelFile *os.File
	graylog  io.Closer
	active   atomic.Pointer[session.Session]
}

// setupApp loads config from configDir and brings up logging, storage and telemetry.
// The caller must Close the result.
func setupApp(ctx context.Context, configDir string, stdout bool) (*app, error) {
	a := &app{started: time.Now(), SlogManager: logging.NewSlogManager()}

	if err := config.Load(configDir); err != nil {
		return nil, err
	}
	level := config.GetString("logLevel")
	logsDir := config.GetString("logsDir")

	var logOut io.Writer = os.Stdout
	if !stdout {
		f, err := logging.OpenLogFile(logsDir, binaryName, a.started)
		if err != nil {
			return nil, err
		}
		a.logFile = f
		logOut = f
	}

	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address, binaryName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "graylog disabled: %v\n", err)
		} else {
			a.graylog = w
			a.SlogManager.SetGraylog(w)
		}
	}

	otelCfg := config.GetOTelConfig()
	providerCfg := intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	}
	if otelCfg.Enabled {
		f, err := logging.OpenLogFile(logsDir, binaryName+".otel", a.started)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.otelFile = f
		providerCfg.LogWriter = f
	}
	provider, err := intOtel.New(providerCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("starting otel: %w", err)
	}
	a.OTel = provider

	a.SlogManager.SetAttrSource(a.sessionAttrs)
	if stdout {
		a.SlogManager.Setup(nil, level, provider.LoggerProvider())
	} else {
		a.SlogManager.Setup(logOut, level, provider.LoggerProvider())
	}
	a.Logger = a.SlogManager.Logger()
	a.ZLog = logging.NewZerolog(logOut, level)

	storageCfg := config.GetStorageConfig()
	store, err := storage.NewBackend(storageCfg, a.Logger, a.ZLog.With().Str("component", "database").Logger())
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := store.Init(); err != nil {
		a.Close()
		return nil, fmt.Errorf("initializing %s storage: %w", storageCfg.Type, err)
	}
	a.Store = store
	a.Logger.Info("storage ready", "type", storageCfg.Type)

	a.Catalog = catalog.New(store, a.Logger)
	if err := a.Catalog.Load(); err != nil {
		a.Close()
		return nil, err
	}

	mgr := influx.NewManager(config.GetInfluxConfig(), a.ZLog.With().Str("component", "influx").Logger(),
		filepath.Join(logsDir, influxBackupName))
	switch err := mgr.Connect(ctx); {
	case errors.Is(err, influx.ErrDisabled):
	case err != nil:
		a.Logger.Warn("session telemetry disabled", "error", err)
		_ = mgr.Close()
	default:
		a.Influx = mgr
	}

	return a, nil
}

// Telemetry is the session sink, or nil without InfluxDB.
func (a *app) Telemetry() session.Telemetry {
	if a.Influx == nil {
		return nil
	}
	return a.Influx
}

// Track makes s the session whose attributes are added to log records.
func (a *app) Track(s *session.Session) {
	a.active.Store(s)
}

func (a *app) sessionAttrs() []slog.Attr {
	if s := a.active.Load(); s != nil {
		return s.LogAttrs()
	}
	return nil
}

// Close releases everything in reverse order of setup.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs error
	if a.Influx != nil {
		errs = errors.Join(errs, a.Influx.Close())
	}
	if a.Store != nil {
		errs = errors.Join(errs, a.Store.Close())
	}
	if a.OTel != nil {
		errs = errors.Join(errs, a.SlogManager.Flush(ctx), a.OTel.Shutdown(ctx))
	}
	if a.graylog != nil {
		errs = errors.Join(errs, a.graylog.Close())
	}
	if a.otelFile != nil {
		errs = errors.Join(errs, a.otelFile.Close())
	}
	if a.logFile != nil {
		errs = errors.Join(errs, a.logFile.Close())
	}
	return errs
}
