package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"contextcollector/internal/config"
	"contextcollector/internal/gesture"
	"contextcollector/internal/inputhook"
	"contextcollector/internal/storage"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "contextcollector",
		Short: "Capture the clipboard into Markdown notes with a double copy",
		Long: `ContextCollector runs in the background. Press the copy shortcut twice
quickly to open a capture panel under the pointer with the clipboard ready
to annotate and file into a project.`,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd.Context(), serviceOptions{
				ConfigPath: opts.configPath,
				Verbose:    opts.verbose,
			})
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default "+config.Path()+")")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newDoctorCmd(opts), newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "contextcollector", version)
		},
	}
}

// doctorReport is printed as JSON by the doctor command.
type doctorReport struct {
	Version       string `json:"version"`
	Status        string `json:"status"`
	HookAvailable bool   `json:"hook_available"`
	HookDetail    string `json:"hook_detail"`
	Trigger       string `json:"trigger"`
	Threshold     string `json:"threshold"`
	ConfigPath    string `json:"config_path"`
	ConfigExists  bool   `json:"config_exists"`
	BaseDir       string `json:"base_dir"`
	Database      string `json:"database"`
	HotkeyEnabled bool   `json:"hotkey_enabled"`
	Error         string `json:"error,omitempty"`
}

func newDoctorCmd(root *rootOptions) *cobra.Command {
	var writeConfig bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check input access, configuration and storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.configPath
			if path == "" {
				path = config.Path()
			}
			if writeConfig {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists", path)
				}
				if err := config.Save(config.DefaultConfig(), path); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "wrote", path)
			}

			report := diagnose(path)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if report.Status == "error" {
				return fmt.Errorf("%s", report.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "write a default config file if none exists")
	return cmd
}

func diagnose(configPath string) doctorReport {
	r := doctorReport{
		Version:    version,
		Status:     "ok",
		ConfigPath: configPath,
		Threshold:  gesture.Threshold.String(),
	}
	if _, err := os.Stat(configPath); err == nil {
		r.ConfigExists = true
	}
	r.HookAvailable, r.HookDetail = inputhook.New().Available()

	cfg, err := config.Load(configPath)
	if err != nil {
		r.Status, r.Error = "error", err.Error()
		cfg = config.DefaultConfig()
	}
	t := cfg.Trigger(inputhook.DefaultTrigger())
	r.Trigger = fmt.Sprintf("%s+keycode %d", t.Modifiers, t.Keycode)
	r.HotkeyEnabled = cfg.Hotkey.Enabled

	r.BaseDir = cfg.Storage.BaseDir
	if r.BaseDir == "" {
		if r.BaseDir, err = storage.DefaultBaseDir(); err != nil && r.Status == "ok" {
			r.Status, r.Error = "error", err.Error()
		}
	}
	r.Database = cfg.Storage.Database
	if r.Database == "" && r.BaseDir != "" {
		r.Database = filepath.Join(r.BaseDir, storage.IndexFileName)
	}

	if !r.HookAvailable && r.Status == "ok" {
		r.Status = "warning"
	}
	return r
}
