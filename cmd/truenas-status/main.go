package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/zapr"
	"github.com/runningman84/truenas-status/pkg/config"
	"github.com/runningman84/truenas-status/pkg/operator"
	"github.com/runningman84/truenas-status/pkg/prompt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"k8s.io/klog/v2"
)

// Version can be set at build time using -ldflags
// Example: go build -ldflags="-X main.Version=1.0.0"
var Version = "dev"

// options holds the command line flags shared by all commands
type options struct {
	outputFormat string
	logLevel     string
	logFormat    string
	envFile      string
	textfile     string
	backup       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "truenas-status",
		Short: "Show the status of a TrueNAS appliance",
		Long: `Fetches pools, disks, datasets, alerts, system information and application
space from the TrueNAS REST API and prints a dashboard or a JSON document.
In rich mode a configuration backup can be saved and uploaded to S3.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, sync, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer sync()

			op := operator.NewOperator(cfg)
			if opts.backup {
				op.SetConfirmer(prompt.Always(true))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return op.Run(ctx)
		},
	}
	rootCmd.SetVersionTemplate("truenas-status version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.outputFormat, "output-format", "o", config.OutputRich, "Output format: rich or json")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: info or debug")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	flags.StringVar(&opts.envFile, "env-file", "", "Load environment variables from this file (default .env if present)")
	flags.StringVar(&opts.textfile, "textfile", "", "Write Prometheus metrics to this file for the node_exporter textfile collector")
	rootCmd.Flags().BoolVar(&opts.backup, "backup", false, "Save a configuration backup without asking (rich mode)")

	rootCmd.AddCommand(newBackupCmd(opts))
	return rootCmd
}

func newBackupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Download a configuration backup and upload it to S3 when configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, sync, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := operator.NewOperator(cfg).Backup(ctx)
			if err != nil {
				return err
			}
			if result.UploadError != nil {
				klog.Warningf("Backup kept locally at %s", result.LocalPath)
			}
			return nil
		},
	}
}

// setup validates the flags, initializes logging and loads the configuration.
// The returned function flushes the JSON logger.
func setup(cmd *cobra.Command, opts *options) (*config.Config, func(), error) {
	noop := func() {}

	if opts.logLevel != "info" && opts.logLevel != "debug" {
		return nil, noop, fmt.Errorf("invalid log level: %s. Must be one of: info, debug", opts.logLevel)
	}
	if opts.logFormat != "text" && opts.logFormat != "json" {
		return nil, noop, fmt.Errorf("invalid log format: %s. Must be one of: text, json", opts.logFormat)
	}

	sync, err := initLogging(opts.logLevel, opts.logFormat)
	if err != nil {
		return nil, noop, err
	}

	klog.Infof("Starting truenas-status version %s with %s log level", Version, opts.logLevel)

	if err := config.LoadEnvFile(opts.envFile, cmd.Flags().Changed("env-file")); err != nil {
		return nil, sync, err
	}

	cfg := config.NewConfig()
	cfg.LogLevel = opts.logLevel
	cfg.OutputFormat = opts.outputFormat
	cfg.TextfilePath = opts.textfile

	if err := cfg.Validate(); err != nil {
		return nil, sync, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, sync, nil
}

// initLogging configures klog verbosity and, for json, routes klog through zap
func initLogging(logLevel, logFormat string) (func(), error) {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	if logLevel == "debug" {
		if err := fs.Set("v", "1"); err != nil {
			return nil, fmt.Errorf("failed to set log verbosity: %w", err)
		}
	}

	if logFormat != "json" {
		return func() {}, nil
	}

	var zapLog *zap.Logger
	var err error
	if logLevel == "debug" {
		zapLog, err = zap.NewDevelopment()
	} else {
		zapLog, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JSON logger: %w", err)
	}

	// Set klog to use zap backend for JSON output
	klog.SetLogger(zapr.NewLogger(zapLog))
	return func() { _ = zapLog.Sync() }, nil
}
