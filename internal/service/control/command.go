package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/air-alarm/internal/command"
	"github.com/oshokin/air-alarm/internal/config"
	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/logger"
	"github.com/oshokin/air-alarm/internal/service/common"
)

// Options selects the device and the output of a control command.
type Options struct {
	// ConfigPath to YAML settings file. A missing file is not an error.
	ConfigPath string
	// Address overrides the control address from the settings file.
	Address string
	// Output receives the printed responses, os.Stdout when nil.
	Output io.Writer
	// Compact prints single-line JSON.
	Compact bool

	// dialOptions are extra client options used by tests.
	dialOptions []common.Option
}

// Status prints the current status snapshot.
func Status(ctx context.Context, opts *Options) error {
	return withClient(ctx, opts, func(ctx context.Context, client *common.Client) error {
		snapshot, err := client.GetStatus(ctx)
		if err != nil {
			return err
		}

		return printMessage(opts, snapshot)
	})
}

// Watch prints status snapshots until ctx is canceled or the device stops.
func Watch(ctx context.Context, opts *Options) error {
	return withClient(ctx, opts, func(ctx context.Context, client *common.Client) error {
		return client.Watch(ctx, func(snapshot *structpb.Struct) error {
			return printMessage(opts, snapshot)
		})
	})
}

// Send applies a mute, buzzer or wave command and prints the response.
func Send(ctx context.Context, opts *Options, cmd command.Command) error {
	return withClient(ctx, opts, func(ctx context.Context, client *common.Client) error {
		resp, err := client.SendCommand(ctx, cmd)
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Command sent", "kind", cmd.Kind, "on", cmd.On)

		return printMessage(opts, resp)
	})
}

// UpdateThresholds sends a partial threshold update and prints the accepted and rejected fields.
func UpdateThresholds(ctx context.Context, opts *Options, update air.ThresholdUpdate) error {
	return withClient(ctx, opts, func(ctx context.Context, client *common.Client) error {
		resp, err := client.UpdateThresholds(ctx, update)
		if err != nil {
			return err
		}

		return printMessage(opts, resp)
	})
}

// withClient resolves the device address, dials it and runs fn.
func withClient(ctx context.Context, opts *Options, fn func(context.Context, *common.Client) error) error {
	ctx = logger.WithName(ctx, "air-alarm-ctl")

	address, callTimeout := resolve(ctx, opts)

	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	clientOptions := append([]common.Option{
		common.WithActor(actor),
		common.WithCallTimeout(callTimeout),
	}, opts.dialOptions...)

	client, err := common.Dial(ctx, address, clientOptions...)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Connected to device", "address", address)

	return fn(ctx, client)
}

// resolve picks the control address and call timeout from flags, the
// settings file or the defaults, in that order.
func resolve(ctx context.Context, opts *Options) (string, time.Duration) {
	address, callTimeout := config.DefaultControlAddress, config.DefaultCallTimeout

	settings, err := config.Load(opts.ConfigPath)

	switch {
	case err == nil:
		address, callTimeout = settings.ControlAddress, settings.Timeouts.Call
	case errors.Is(err, os.ErrNotExist):
		logger.DebugKV(ctx, "No settings file, using defaults", "path", opts.ConfigPath)
	default:
		logger.WarnKV(ctx, "Ignoring unreadable settings file", "path", opts.ConfigPath, "error", err)
	}

	if opts.Address != "" {
		address = opts.Address
	}

	return address, callTimeout
}

func printMessage(opts *Options, message *structpb.Struct) error {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	marshal := protojson.MarshalOptions{Multiline: !opts.Compact, Indent: "  "}
	if opts.Compact {
		marshal.Indent = ""
	}

	body, err := marshal.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	if _, err = fmt.Fprintln(out, string(body)); err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	return nil
}
