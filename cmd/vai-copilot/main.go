// Command vai-copilot runs the live session engine behind a local websocket
// bridge for the desktop UI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vango-go/vai-copilot/pkg/core/audio"
	"github.com/vango-go/vai-copilot/pkg/core/capture"
	"github.com/vango-go/vai-copilot/pkg/core/live"
	"github.com/vango-go/vai-copilot/pkg/core/providers/gemini_live"
	"github.com/vango-go/vai-copilot/pkg/gateway/backend"
	"github.com/vango-go/vai-copilot/pkg/gateway/bridge"
	"github.com/vango-go/vai-copilot/pkg/gateway/config"
	"github.com/vango-go/vai-copilot/pkg/gateway/history"
	gatewayserver "github.com/vango-go/vai-copilot/pkg/gateway/server"
)

type appDeps struct {
	loadConfig   func(path string, logger *slog.Logger) (*config.Manager, error)
	openHistory  func(ctx context.Context, path string, logger *slog.Logger) (*history.Store, error)
	newDialer    func(logger *slog.Logger) live.Dialer
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultAppDeps() appDeps {
	return appDeps{
		loadConfig: config.NewManager,
		openHistory: func(ctx context.Context, path string, logger *slog.Logger) (*history.Store, error) {
			return history.Open(ctx, path, history.WithLogger(logger))
		},
		newDialer: func(logger *slog.Logger) live.Dialer {
			return gemini_live.NewDialer(gemini_live.WithLogger(logger))
		},
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func bridgeDefaults(cfg config.Config) bridge.Defaults {
	return bridge.Defaults{
		Credentials: live.Credentials{APIKey: cfg.APIKey},
		Session: live.SessionConfig{
			Model:          cfg.Model,
			LanguageCode:   cfg.LanguageCode,
			CustomPrompt:   cfg.CustomPrompt,
			ConnectTimeout: cfg.ConnectTimeout,
			SendTimeout:    cfg.SendTimeout,
		},
		Profile: cfg.Profile,
	}
}

// app is the wired object graph. Fields are exposed to tests.
type app struct {
	engine   *live.Engine
	hub      *bridge.Hub
	bridge   *bridge.Handler
	gateway  *gatewayserver.Server
	store    *history.Store
	recorder *audio.RecorderQueue
}

func (a *app) close() {
	a.engine.Close()
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger, deps appDeps) (*app, error) {
	a := &app{hub: bridge.NewHub(logger)}

	var historyStore live.HistoryStore
	var usage live.UsageTracker
	if !cfg.HistoryDisabled {
		store, err := deps.openHistory(ctx, cfg.HistoryPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.store = store
		historyStore, usage = store, store
	}

	var debug capture.DebugSink
	if cfg.DebugAudio {
		a.recorder = audio.NewRecorderQueue(audio.NewRecorder(cfg.DebugDir, logger), cfg.DebugQueueSize, logger)
		debug = a.recorder
	}

	supervisor := capture.NewSupervisor(capture.Config{
		Process:       capture.NewHelperProcess(cfg.HelperPath, logger),
		Debug:         debug,
		DebugWindowMs: int(cfg.DebugWindow.Milliseconds()),
		Logger:        logger,
	})

	engine, err := live.NewEngine(live.Dependencies{
		Dialer:       deps.newDialer(logger),
		Tokens:       backend.FromConfig(cfg.BackendURL, cfg.BackendTimeout, cfg.BackendMaxRetries, logger),
		Capture:      supervisor,
		Notifier:     a.hub,
		Usage:        usage,
		History:      historyStore,
		GoogleSearch: cfg.GoogleSearch,
		Logger:       logger,
	})
	if err != nil {
		if a.store != nil {
			_ = a.store.Close()
		}
		return nil, fmt.Errorf("build engine: %w", err)
	}
	a.engine = engine

	a.bridge = bridge.NewHandler(engine, a.hub, bridge.Options{
		MaxMessageBytes: cfg.WSMaxMessageBytes,
		WriteTimeout:    cfg.WSWriteTimeout,
		PingInterval:    cfg.WSPingInterval,
		SendQueueSize:   cfg.WSSendQueueSize,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	}, bridgeDefaults(cfg), logger)

	srvDeps := gatewayserver.Deps{Engine: engine, Bridge: a.bridge, Hub: a.hub}
	if a.store != nil {
		srvDeps.History = a.store
	}
	a.gateway = gatewayserver.New(cfg, srvDeps, logger)
	return a, nil
}

// applyReload pushes the settings that may change at runtime into the
// running components.
func (a *app) applyReload(cfg config.Config, level *slog.LevelVar) {
	level.Set(cfg.SlogLevel())
	a.engine.UpdateSearchSetting(cfg.GoogleSearch)
	a.bridge.SetDefaults(bridgeDefaults(cfg))
}

func run(ctx context.Context, configPath string, logger *slog.Logger, level *slog.LevelVar, deps appDeps) error {
	if deps.loadConfig == nil || deps.openHistory == nil || deps.newDialer == nil {
		return errors.New("missing app dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}

	mgr, err := deps.loadConfig(configPath, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := mgr.Config()
	level.Set(cfg.SlogLevel())

	a, err := buildApp(ctx, cfg, logger, deps)
	if err != nil {
		return err
	}
	defer a.close()

	mgr.Watch(func(next config.Config) { a.applyReload(next, level) })

	httpSrv := a.gateway.HTTPServer(ctx)
	logger.Info("starting vai-copilot",
		"addr", cfg.Addr,
		"config_file", mgr.File(),
		"managed", cfg.Managed(),
		"history", !cfg.HistoryDisabled,
		"debug_audio", cfg.DebugAudio,
	)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("context canceled, shutting down")
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	a.engine.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.gateway.ShutdownTimeout())
	defer cancel()
	if err := a.gateway.Shutdown(shutdownCtx, httpSrv); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("vai-copilot stopped")
	return nil
}

func loadDotenv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func runMain(ctx context.Context, args []string, stderr io.Writer, deps appDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}

	fset := flag.NewFlagSet("vai-copilot", flag.ContinueOnError)
	fset.SetOutput(stderr)
	configPath := fset.String("config", "", "path to vai-copilot.yaml (default: ./vai-copilot.yaml or ~/.vai-copilot/vai-copilot.yaml)")
	envFile := fset.String("env-file", ".env", "dotenv file loaded before configuration")
	if err := fset.Parse(args); err != nil {
		return 2
	}

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if err := loadDotenv(*envFile); err != nil {
		fmt.Fprintf(stderr, "vai-copilot: %v\n", err)
		return 1
	}

	if err := run(ctx, *configPath, logger, level, deps); err != nil {
		fmt.Fprintf(stderr, "vai-copilot: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Args[1:], os.Stderr, defaultAppDeps()))
}
