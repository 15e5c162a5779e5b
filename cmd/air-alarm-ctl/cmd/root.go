package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/air-alarm/internal/command"
	"github.com/oshokin/air-alarm/internal/config"
	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/service/control"
	"github.com/oshokin/air-alarm/internal/version"
)

var (
	// options collects the persistent flag values.
	options control.Options

	// errNoThresholds is returned when the thresholds command has no flag set.
	errNoThresholds = errors.New("set at least one of --temp, --humidity, --co2, --voc, --co2-critical")

	// rootCmd represents the base command for controlling a running appliance.
	rootCmd = &cobra.Command{
		Use:   "air-alarm-ctl",
		Short: "Inspect and control a running air-alarm.",
		Long: `Talks to the local gRPC control API of a running air-alarm.

The control address is taken from --addr, the settings file or the default
loopback address, in that order. Responses are printed as JSON.`,
		SilenceUsage: true,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the current readings, alarm and connection state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return control.Status(cmd.Context(), &options)
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Stream status snapshots until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			options.Compact = true

			return control.Watch(cmd.Context(), &options)
		},
	}

	muteCmd = &cobra.Command{
		Use:       "mute on|off",
		Short:     "Mute or unmute the normal-tier beeper.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[0])
			if err != nil {
				return err
			}

			return control.Send(cmd.Context(), &options, command.Command{Kind: command.KindMute, On: on})
		},
	}

	buzzerCmd = &cobra.Command{
		Use:       "buzzer on|off",
		Short:     "Switch the buzzer; off also acknowledges a critical alarm.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[0])
			if err != nil {
				return err
			}

			return control.Send(cmd.Context(), &options, command.Command{Kind: command.KindBuzzer, On: on})
		},
	}

	waveCmd = &cobra.Command{
		Use:   "wave",
		Short: "Wave the flag.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return control.Send(cmd.Context(), &options, command.Command{Kind: command.KindWave})
		},
	}

	// thresholdFlags hold the values of the thresholds command.
	thresholdFlags struct {
		temperature float64
		humidity    float64
		co2         int
		voc         int
		co2Critical int
	}

	thresholdsCmd = &cobra.Command{
		Use:   "thresholds",
		Short: "Change one or more alarm thresholds.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			update := thresholdUpdate(cmd)
			if update.Empty() {
				return errNoThresholds
			}

			return control.UpdateThresholds(cmd.Context(), &options, update)
		},
	}
)

// Execute runs the air-alarm-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above.
	}
}

// parseOnOff accepts on/off in any case.
func parseOnOff(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", value)
	}
}

// thresholdUpdate collects the flags that were set explicitly.
func thresholdUpdate(cmd *cobra.Command) air.ThresholdUpdate {
	var (
		update = air.ThresholdUpdate{}
		flags  = cmd.Flags()
	)

	if flags.Changed("temp") {
		update.Temperature = &thresholdFlags.temperature
	}

	if flags.Changed("humidity") {
		update.Humidity = &thresholdFlags.humidity
	}

	if flags.Changed("co2") {
		update.CO2 = &thresholdFlags.co2
	}

	if flags.Changed("voc") {
		update.VOC = &thresholdFlags.voc
	}

	if flags.Changed("co2-critical") {
		update.CO2Critical = &thresholdFlags.co2Critical
	}

	return update
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	persistent.StringVarP(&options.Address, "addr", "a", "", "control API address of the device")
	persistent.BoolVar(&options.Compact, "compact", false, "print single-line JSON")

	flags := thresholdsCmd.Flags()
	flags.Float64Var(&thresholdFlags.temperature, "temp", 0, "temperature threshold in °C")
	flags.Float64Var(&thresholdFlags.humidity, "humidity", 0, "humidity threshold in %RH")
	flags.IntVar(&thresholdFlags.co2, "co2", 0, "CO2 threshold in ppm")
	flags.IntVar(&thresholdFlags.voc, "voc", 0, "VOC threshold in ppb")
	flags.IntVar(&thresholdFlags.co2Critical, "co2-critical", 0, "critical CO2 threshold in ppm")

	rootCmd.AddCommand(statusCmd, watchCmd, muteCmd, buzzerCmd, waveCmd, thresholdsCmd)
}
