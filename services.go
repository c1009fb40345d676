package main

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"contextcollector/internal/activation"
	"contextcollector/internal/capture"
	"contextcollector/internal/config"
	"contextcollector/internal/desktop"
	"contextcollector/internal/geometry"
	"contextcollector/internal/gesture"
	"contextcollector/internal/inputhook"
	"contextcollector/internal/logging"
	"contextcollector/internal/notify"
	"contextcollector/internal/storage"
)

// services holds everything the app wires together.
type services struct {
	loader    *config.Loader
	logger    *slog.Logger
	logCloser io.Closer

	cfgMu sync.RWMutex
	cfg   *config.Config

	store       *storage.Store
	source      capture.Source
	loop        *activation.Loop
	backend     *desktop.Backend
	coordinator *activation.Coordinator
	watcher     *inputhook.Watcher
	notices     *notify.Once

	closeOnce sync.Once
}

type serviceOptions struct {
	ConfigPath string
	Verbose    bool
}

func newLogger(cfg config.LoggingConfig, verbose bool) (*slog.Logger, io.Closer, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Format,
		Output:    cfg.Output,
		FilePath:  cfg.FilePath,
		Component: "contextcollector",
	})
}

func newServices(opts serviceOptions) (*services, error) {
	loader := config.NewLoader(opts.ConfigPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", loader.Path(), err)
	}

	logger, logCloser, err := newLogger(cfg.Logging, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("set up logging: %w", err)
	}

	store, err := storage.Open(storage.Options{
		BaseDir:  cfg.Storage.BaseDir,
		Database: cfg.Storage.Database,
		Logger:   logger.With("component", "storage"),
	})
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	s := &services{
		loader:    loader,
		cfg:       cfg,
		logger:    logger,
		logCloser: logCloser,
		store:     store,
		source:    capture.Clipboard(),
		notices:   notify.NewOnce(nil),
	}

	s.loop = activation.NewLoop(activation.DefaultQueueSize, logger.With("component", "loop"))
	s.backend = desktop.New(logger.With("component", "desktop"))
	s.coordinator = activation.New(s.backend, s.loop, activation.Options{
		PanelSize:   panelSize(cfg.Panel),
		SettleDelay: cfg.Panel.SettleDelay.Std(),
		Logger:      logger.With("component", "activation"),
	})

	trigger := cfg.Trigger(inputhook.DefaultTrigger())
	s.watcher = inputhook.NewWatcher(
		inputhook.New(),
		gesture.NewDetector(trigger),
		func(gesture.Signal) { s.coordinator.Show() },
		logger.With("component", "inputhook"),
	)

	s.loop.Start()
	return s, nil
}

func panelSize(p config.PanelConfig) geometry.Size {
	return geometry.Size{Width: float64(p.Width), Height: float64(p.Height)}
}

func (s *services) config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// applyConfig pushes a reloaded configuration into running services.
func (s *services) applyConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	prev := s.cfg
	s.cfg = cfg
	s.cfgMu.Unlock()

	def := inputhook.DefaultTrigger()
	if cfg.Trigger(def) != prev.Trigger(def) {
		s.logger.Warn("gesture change takes effect after restart")
	}
	s.coordinator.Configure(panelSize(cfg.Panel), cfg.Panel.SettleDelay.Std())
	s.logger.Info("configuration reloaded", "path", s.loader.Path())
}

// close stops the hook, the loop, the config watcher and storage. Later
// calls do nothing.
func (s *services) close() {
	s.closeOnce.Do(s.closeAll)
}

const shutdownDrainTimeout = 2 * time.Second

func (s *services) closeAll() {
	if err := s.watcher.Stop(); err != nil {
		s.logger.Warn("stop input hook", "error", err)
	}
	// pending hides and restores finish before the loop goes away
	if err := s.loop.Drain(shutdownDrainTimeout); err != nil {
		s.logger.Warn("ui work pending at shutdown", "error", err)
	}
	s.loop.Stop()
	if err := s.loader.Close(); err != nil {
		s.logger.Warn("close config watcher", "error", err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("close storage", "error", err)
	}
	s.logger.Info("shutdown complete")
	s.logCloser.Close()
}
