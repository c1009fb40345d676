package main

import (
	"io/fs"
	"runtime"
	"time"

	"github.com/getlantern/systray"

	"contextcollector/internal/dashboard"
	"contextcollector/internal/inputhook"
)

func (a *App) runTray() {
	systray.Run(a.onTrayReady, a.onTrayExit)
}

func (a *App) onTrayReady() {
	log := a.svc.logger.With("component", "tray")

	icon, err := fs.ReadFile(assets, "frontend/dist/icon.png")
	if err != nil {
		log.Warn("tray icon missing", "error", err)
	} else {
		systray.SetIcon(icon)
	}
	if runtime.GOOS != "darwin" {
		systray.SetTitle("ContextCollector")
	}
	systray.SetTooltip("ContextCollector: press the copy shortcut twice to capture")

	show := systray.AddMenuItem("Show capture panel", "Open the capture panel under the pointer")
	recent := systray.AddMenuItem("Recent captures", "Open recent captures in the browser")
	folder := systray.AddMenuItem("Open captures folder", "Show saved notes")
	systray.AddSeparator()
	help := systray.AddMenuItem(helpTitle(), "Why the shortcut may not work")
	systray.AddSeparator()
	quit := systray.AddMenuItem("Quit", "Quit ContextCollector")

	go func() {
		for {
			select {
			case <-a.done:
				return
			case <-show.ClickedCh:
				a.svc.coordinator.Show()
			case <-recent.ClickedCh:
				if err := a.openDashboard(); err != nil {
					log.Error("open recent captures", "error", err)
				}
			case <-folder.ClickedCh:
				if err := dashboard.OpenPath(a.svc.store.BaseDir()); err != nil {
					log.Error("open captures folder", "error", err)
				}
			case <-help.ClickedCh:
				a.showAccessibilityHelp()
			case <-quit.ClickedCh:
				a.Quit()
			}
		}
	}()
	log.Debug("tray ready")
}

func (a *App) onTrayExit() {
	a.svc.logger.Debug("tray exited")
}

func helpTitle() string {
	if runtime.GOOS == "darwin" {
		return "Accessibility help"
	}
	return "Keyboard access help"
}

func (a *App) openDashboard() error {
	path, err := dashboard.Build(a.svc.store, "", time.Now())
	if err != nil {
		return err
	}
	a.svc.logger.Info("recent captures written", "path", path)
	return dashboard.OpenPath(path)
}

// showAccessibilityHelp prompts for input access and explains the state.
func (a *App) showAccessibilityHelp() {
	granted := inputhook.RequestPermission()
	_, reason := inputhook.New().Available()
	msg := "Double-press the copy shortcut to open the capture panel."
	if !granted {
		msg = reason
	}
	if err := a.sendNotice("", msg); err != nil {
		a.svc.logger.Warn("show help", "error", err)
	}
}
