// Package cmd implements the CLI commands for the scheduling daemon.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scheduler-go/logging"
)

// Version information set at build time.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// Global flags.
var (
	globalConfig    string
	globalDistConfig string
	globalDropinDir string
	globalLog       string
	globalLogFormat string
	globalDebug     bool
)

// rootCmd is the base command for the scheduling daemon.
var rootCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Process scheduling daemon",
	Long: `scheduler classifies running processes against declarative rules
and applies kernel scheduling attributes (niceness, scheduling policy,
I/O priority) on their behalf, with foreground and audio-session boost.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetContext returns a context that cancels on SIGINT/SIGTERM.
func GetContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

// ConfigPaths returns the system config path, distribution config path,
// and drop-in directory as configured by flags.
func ConfigPaths() (systemPath, distPath, dropinDir string) {
	systemPath = globalConfig
	if systemPath == "" {
		systemPath = "/etc/scheduler/config.yaml"
	}
	distPath = globalDistConfig
	if distPath == "" {
		distPath = "/usr/share/scheduler/config.yaml"
	}
	dropinDir = globalDropinDir
	if dropinDir == "" {
		dropinDir = "/etc/scheduler/rules.d"
	}
	return systemPath, distPath, dropinDir
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalConfig, "config", "", "system configuration path (default: /etc/scheduler/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&globalDistConfig, "dist-config", "", "distribution-provided configuration path (default: /usr/share/scheduler/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&globalDropinDir, "rules-dir", "", "drop-in directory for assignment/exception fragments (default: /etc/scheduler/rules.d)")
	rootCmd.PersistentFlags().StringVar(&globalLog, "log", "", "set the log file path")
	rootCmd.PersistentFlags().StringVar(&globalLogFormat, "log-format", "text", "set the format for log output (text or json)")
	rootCmd.PersistentFlags().BoolVar(&globalDebug, "debug", false, "enable debug logging")
}

func setupLogging() {
	var logOutput = os.Stderr
	if globalLog != "" {
		f, err := os.OpenFile(globalLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err == nil {
			logOutput = f
		}
	}

	logLevel := slog.LevelInfo
	if globalDebug {
		logLevel = slog.LevelDebug
	}

	if globalLogFormat == "json" || globalLog != "" || globalDebug {
		logger := logging.NewLogger(logging.Config{
			Level:  logLevel,
			Format: globalLogFormat,
			Output: logOutput,
		})
		logging.SetDefault(logger)
	}
}
