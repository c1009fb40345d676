package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/getlantern/systray"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"contextcollector/internal/capture"
	"contextcollector/internal/config"
	"contextcollector/internal/dashboard"
	"contextcollector/internal/desktop"
	"contextcollector/internal/inputhook"
	"contextcollector/internal/notify"
	"contextcollector/internal/storage"
)

// App is bound to the frontend. Panel visibility always goes through the
// coordinator.
type App struct {
	ctx     context.Context
	svc     *services
	hotkeys *hotkeyBinding
	signals context.Context

	quitting atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

// NewApp creates the bound application. signals is cancelled on SIGINT or
// SIGTERM.
func NewApp(svc *services, signals context.Context) *App {
	a := &App{
		svc:     svc,
		signals: signals,
		done:    make(chan struct{}),
	}
	a.hotkeys = newHotkeyBinding(svc.coordinator.Show, svc.logger.With("component", "hotkey"))
	return a
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.svc.backend.Attach(ctx)
	a.svc.coordinator.OnShown(func(fresh bool) {
		if fresh {
			a.svc.backend.Emit(desktop.EventCaptureNew)
		}
	})

	go a.runTray()
	a.svc.watcher.OnFailure(a.hookInactive)
	go a.startWatcher()

	if err := a.hotkeys.Apply(a.svc.config().Hotkey); err != nil {
		a.svc.logger.Warn("hotkey unavailable", "error", err)
	}
	a.watchConfig()

	go func() {
		select {
		case <-a.signals.Done():
			a.svc.logger.Info("signal received, quitting")
			a.Quit()
		case <-a.done:
		}
	}()
	a.svc.logger.Info("contextcollector started", "base_dir", a.svc.store.BaseDir())
}

func (a *App) startWatcher() {
	if err := a.svc.watcher.Start(a.ctx); err != nil {
		a.hookInactive(err)
	}
}

// hookInactive leaves the gesture off and tells the user once.
func (a *App) hookInactive(err error) {
	status := a.svc.watcher.Status()
	a.svc.logger.Error("double-press gesture unavailable", "status", status, "error", err)

	msg := "The copy shortcut could not be watched. Use the tray menu to open the capture panel."
	if errors.Is(err, inputhook.ErrPermissionDenied) {
		inputhook.RequestPermission()
		_, msg = inputhook.New().Available()
	}
	if err := a.sendNotice("hook-inactive", msg); err != nil {
		a.svc.logger.Warn("notification failed", "error", err)
	}
	a.svc.backend.Emit(desktop.EventHookInactive, string(status))
}

func (a *App) watchConfig() {
	loader := a.svc.loader
	loader.OnChange(func(cfg *config.Config) {
		a.svc.applyConfig(cfg)
		if err := a.hotkeys.Apply(cfg.Hotkey); err != nil {
			a.svc.logger.Warn("hotkey unavailable", "error", err)
		}
	})
	if err := loader.Watch(); err != nil {
		a.svc.logger.Warn("config changes will not be picked up", "error", err)
		return
	}
	go func() {
		for {
			select {
			case <-a.done:
				return
			case err := <-loader.Errors():
				a.svc.logger.Warn("config reload rejected", "error", err)
			}
		}
	}()
}

func (a *App) sendNotice(key, message string) error {
	if key == "" {
		return notify.Send(notify.AppName, message)
	}
	_, err := a.svc.notices.Notify(key, notify.AppName, message)
	return err
}

// beforeClose turns the window close button into a cancel.
func (a *App) beforeClose(ctx context.Context) bool {
	if a.quitting.Load() {
		return false
	}
	a.svc.coordinator.Hide(false)
	return true
}

func (a *App) shutdown(ctx context.Context) {
	a.doneOnce.Do(func() { close(a.done) })
	a.hotkeys.Close()
	systray.Quit()
	a.svc.close()
}

// CaptureContent returns the initial panel text: the notes header followed
// by the clipboard.
func (a *App) CaptureContent() string {
	text, err := capture.Content(a.ctx, a.svc.source, capture.DefaultDelay)
	if err != nil {
		a.svc.logger.Warn("clipboard unavailable", "error", err)
	}
	return text
}

// Save writes the capture and hides the panel. On failure the panel stays
// open and the error goes back to the UI.
func (a *App) Save(title, content, project string) (storage.Capture, error) {
	if strings.EqualFold(project, "inbox") {
		project = ""
	}
	c, err := a.svc.store.Save(content, title, project)
	if err != nil {
		a.svc.logger.Error("save failed", "title", title, "project", project, "error", err)
		return storage.Capture{}, err
	}
	if err := a.svc.store.SetLastSelectedProject(project); err != nil {
		a.svc.logger.Warn("remember project", "error", err)
	}
	a.svc.coordinator.Hide(true)
	return c, nil
}

// Cancel discards the capture and hides the panel.
func (a *App) Cancel() {
	a.svc.coordinator.Hide(false)
}

// Minimize keeps the capture but gets the panel out of the way.
func (a *App) Minimize() {
	a.svc.coordinator.Minimize()
}

// Projects lists the project folders.
func (a *App) Projects() ([]string, error) {
	return a.svc.store.Projects()
}

// CreateProject adds a project folder and returns its sanitized name.
func (a *App) CreateProject(name string) (string, error) {
	return a.svc.store.CreateProject(name)
}

// LastProject returns the project used by the previous save, or "" for the
// inbox.
func (a *App) LastProject() string {
	p, err := a.svc.store.LastSelectedProject()
	if err != nil {
		a.svc.logger.Warn("read last project", "error", err)
		return ""
	}
	return p
}

// RenderMarkdown converts Markdown text to HTML for the preview.
func (a *App) RenderMarkdown(markdown string) (string, error) {
	return dashboard.RenderMarkdown(markdown)
}

// HookStatus reports whether the double-press gesture is live.
func (a *App) HookStatus() string {
	return string(a.svc.watcher.Status())
}

// Quit closes the application.
func (a *App) Quit() {
	if !a.quitting.CompareAndSwap(false, true) {
		return
	}
	a.svc.logger.Info("quitting")
	wailsRuntime.Quit(a.ctx)
}

// wailsLogger routes Wails runtime logs into slog.
type wailsLogger struct {
	log *slog.Logger
}

func (l wailsLogger) Print(message string)   { l.log.Info(message) }
func (l wailsLogger) Trace(message string)   { l.log.Debug(message) }
func (l wailsLogger) Debug(message string)   { l.log.Debug(message) }
func (l wailsLogger) Info(message string)    { l.log.Info(message) }
func (l wailsLogger) Warning(message string) { l.log.Warn(message) }
func (l wailsLogger) Error(message string)   { l.log.Error(message) }

func (l wailsLogger) Fatal(message string) {
	l.log.Error(message)
	os.Exit(1)
}
