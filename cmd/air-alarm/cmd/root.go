package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/air-alarm/internal/config"
	"github.com/oshokin/air-alarm/internal/service/monitor"
	"github.com/oshokin/air-alarm/internal/version"
)

var (
	// options collects the flag values passed to monitor.Run.
	options monitor.Options

	// rootCmd represents the base command for running the appliance.
	rootCmd = &cobra.Command{
		Use:   "air-alarm",
		Short: "Monitor air quality and raise local and remote alarms.",
		Long: `Runs the air-quality alarm appliance.

Every tick the sensors are read and compared with the thresholds. Exceeding a
normal threshold twice in a row beeps and waves the flag, at most once per
cooldown. CO2 above the critical threshold keeps the buzzer on, even when muted.

Readings are published to the MQTT broker and commands are accepted on the
control and thresholds topics. Network and broker failures are retried on a
fixed interval while local alarming continues. A local gRPC control API and an
optional HTTP endpoint with metrics and status are served as well.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return monitor.Run(ctx, &options)
		},
	}
)

// Execute runs the air-alarm CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&options.LogLevel, "log-level", "l", "", "log level: debug, info, warn, error")
	flags.StringVar(&options.ControlAddress, "control-addr", "", "gRPC control API listen address")
	flags.StringVar(&options.HTTPAddress, "http-addr", "", "metrics and status listen address")
	flags.StringVar(&options.ThresholdsFile, "thresholds-file", "", "file persisting remotely updated thresholds")
	flags.BoolVar(&options.Takeover, "takeover", false, "stop an already running instance instead of exiting")
}
