package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"contextcollector/internal/desktop"
	"contextcollector/internal/notify"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// runApp starts the capture panel and tray. It blocks until the app quits.
func runApp(ctx context.Context, opts serviceOptions) error {
	lock, err := acquireLock(lockPath())
	if errors.Is(err, errAlreadyRunning) {
		if err := notify.Send(notify.AppName, "ContextCollector is already running"); err != nil {
			fmt.Println("ContextCollector is already running")
		}
		return nil
	}
	if err != nil {
		return err
	}
	defer lock.Release()

	svc, err := newServices(opts)
	if err != nil {
		return err
	}
	defer svc.close()

	app := NewApp(svc, ctx)
	cfg := svc.config()

	return wails.Run(&options.App{
		Title:  desktop.PanelTitle,
		Width:  cfg.Panel.Width,
		Height: cfg.Panel.Height,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 30, G: 32, B: 38, A: 1},
		StartHidden:      true,
		AlwaysOnTop:      true,
		DisableResize:    true,
		Logger:           wailsLogger{log: svc.logger.With("component", "wails")},
		LogLevel:         logger.WARNING,
		OnStartup:        app.startup,
		OnBeforeClose:    app.beforeClose,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
}
