package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"google.golang.org/grpc"

	devicegrpc "github.com/oshokin/air-alarm/internal/api/grpc/device"
	"github.com/oshokin/air-alarm/internal/api/web"
	"github.com/oshokin/air-alarm/internal/command"
	"github.com/oshokin/air-alarm/internal/config"
	"github.com/oshokin/air-alarm/internal/device"
	"github.com/oshokin/air-alarm/internal/device/actuator"
	"github.com/oshokin/air-alarm/internal/device/presenter"
	"github.com/oshokin/air-alarm/internal/device/sensor"
	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/domain/alarm"
	"github.com/oshokin/air-alarm/internal/domain/link"
	"github.com/oshokin/air-alarm/internal/logger"
	"github.com/oshokin/air-alarm/internal/metrics"
	"github.com/oshokin/air-alarm/internal/repository/thresholds"
	"github.com/oshokin/air-alarm/internal/service/instance"
	"github.com/oshokin/air-alarm/internal/transport/mqtt"
	"github.com/oshokin/air-alarm/internal/transport/netlink"
	"github.com/oshokin/air-alarm/internal/version"
)

// httpShutdownTimeout bounds the graceful shutdown of the HTTP endpoint.
const httpShutdownTimeout = 5 * time.Second

// Options controls the air-alarm process. Non-empty fields override the settings file.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// LogLevel overrides the configured log level.
	LogLevel string
	// ControlAddress overrides the gRPC control API address.
	ControlAddress string
	// HTTPAddress overrides the metrics and status address.
	HTTPAddress string
	// ThresholdsFile overrides the threshold persistence file.
	ThresholdsFile string
	// Takeover stops a running instance instead of refusing to start.
	Takeover bool
}

// Run wires the appliance and blocks until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "air-alarm")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(settings, opts)

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	logger.InfoKV(ctx, "Starting", version.KV()...)

	if err = instance.New("").Acquire(ctx, opts.Takeover); err != nil {
		return fmt.Errorf("acquire instance: %w", err)
	}

	source, stopSource, err := openSource(ctx, settings.Sensor)
	if err != nil {
		return err
	}

	defer stopSource()

	sink := actuator.New(actuator.LogOutput{},
		actuator.WithFrequency(settings.Actuator.PulseFrequency),
		actuator.WithWaveStep(settings.Actuator.WaveStep))

	if err = sink.Reset(ctx); err != nil {
		logger.ErrorKV(ctx, "Failed to reset actuators", "error", err)
	}

	console := presenter.NewConsole(ctx, presenter.WithBacklightTimeout(settings.Intervals.Backlight))
	defer console.Close()

	mqtt.ConfigureLogging(ctx, settings.MQTT.Debug)

	messenger := mqtt.New(ctx, mqtt.Options{
		Broker:    settings.MQTT.Broker,
		ClientID:  settings.MQTT.ClientID,
		Username:  settings.MQTT.Username,
		Password:  settings.MQTT.Password,
		KeepAlive: settings.MQTT.KeepAlive,
		QoS:       settings.MQTT.QoS,
		Retain:    settings.MQTT.Retain,
		Subscriptions: []string{
			settings.MQTT.Topics.Control,
			settings.MQTT.Topics.Thresholds,
		},
		QueueSize: settings.MQTT.InboundQueue,
	})
	defer messenger.Disconnect()

	deps := Dependencies{
		Source:    source,
		Sink:      sink,
		Presenter: console,
		Messenger: messenger,
		Network:   netlink.New(settings.Network.Interface),
		Router: command.NewRouter(command.Topics{
			Control:    settings.MQTT.Topics.Control,
			Thresholds: settings.MQTT.Topics.Thresholds,
		}),
		Metrics: metrics.New(),
	}

	if settings.ThresholdsFile != "" {
		deps.Repository = thresholds.NewFileRepository(settings.ThresholdsFile)
	}

	controller := NewController(ctx, deps, newSettings(settings))
	defer controller.Close()

	if err = controller.Restore(ctx); err != nil {
		logger.WarnKV(ctx, "Persisted thresholds ignored", "error", err)
	}

	return serve(ctx, controller, settings, deps.Metrics)
}

// serve runs the loops and the control surfaces until ctx is canceled.
func serve(ctx context.Context, controller *Controller, settings *config.Config, m *metrics.Metrics) error {
	lc := net.ListenConfig{}

	loopCtx, stopLoops := context.WithCancel(ctx)
	defer stopLoops()

	grpcListener, err := lc.Listen(ctx, "tcp", settings.ControlAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", settings.ControlAddress, err)
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(devicegrpc.LoggingInterceptor(ctx)))
	devicegrpc.RegisterDeviceServiceServer(grpcServer, devicegrpc.NewServer(controller))

	var httpServer *http.Server

	if settings.HTTPAddress != "" {
		httpServer = &http.Server{
			Addr:              settings.HTTPAddress,
			Handler:           web.NewHandler(ctx, controller, m.Handler()),
			ReadHeaderTimeout: settings.Timeouts.Call,
		}
	}

	var (
		wg       sync.WaitGroup
		serveErr = make(chan error, 2)
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		tickLoop(loopCtx, controller, settings.Intervals.Tick)
	}()

	go func() {
		defer wg.Done()
		connectivityLoop(loopCtx, controller, settings.Intervals.Loop)
	}()

	go func() {
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- fmt.Errorf("serve gRPC: %w", err)
		}
	}()

	if httpServer != nil {
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("serve HTTP: %w", err)
			}
		}()
	}

	logger.InfoKV(ctx, "Air alarm running",
		"control_address", settings.ControlAddress,
		"http_address", settings.HTTPAddress,
		"broker", settings.MQTT.Broker,
		"sensor", settings.Sensor.Kind)

	var runErr error

	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		logger.ErrorKV(ctx, "Control surface failed", "error", runErr)
	}

	logger.Info(ctx, "Shutting down")

	stopLoops()
	wg.Wait()

	// Ends the Watch streams so GracefulStop can return.
	controller.Close()
	grpcServer.GracefulStop()

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), httpShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WarnKV(ctx, "HTTP shutdown failed", "error", err)
		}
	}

	logger.Info(ctx, "Air alarm stopped")

	return runErr
}

// tickLoop reads, evaluates and publishes once per interval.
func tickLoop(ctx context.Context, controller *Controller, interval time.Duration) {
	ctx = logger.WithName(ctx, "tick")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := controller.Tick(ctx); err != nil {
				logger.WarnKV(ctx, "Tick skipped", "error", err)
			}
		}
	}
}

// connectivityLoop supervises the transports and drains inbound commands.
func connectivityLoop(ctx context.Context, controller *Controller, interval time.Duration) {
	ctx = logger.WithName(ctx, "connectivity")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		controller.Step(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// openSource creates the configured sensor source and starts its reader.
func openSource(ctx context.Context, cfg config.SensorConfig) (device.Source, func(), error) {
	if cfg.Kind != config.SensorKindSerial {
		logger.Info(ctx, "Using simulated sensors")

		return sensor.NewSimulated(), func() {}, nil
	}

	port, err := sensor.OpenPort(cfg.Device, cfg.Baud)
	if err != nil {
		return nil, nil, fmt.Errorf("open sensor: %w", err)
	}

	serial := sensor.NewSerial(port)
	readerCtx, cancelRead := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := serial.Run(readerCtx); err != nil {
			logger.ErrorKV(readerCtx, "Sensor stream ended, readings are stale", "device", cfg.Device, "error", err)
		}
	}()

	stop := func() {
		cancelRead()
		<-done

		_ = serial.Close()
	}

	return serial, stop, nil
}

// applyOverrides copies non-empty command-line values over the settings file.
func applyOverrides(settings *config.Config, opts *Options) {
	if opts.LogLevel != "" {
		settings.LogLevel = opts.LogLevel
	}

	if opts.ControlAddress != "" {
		settings.ControlAddress = opts.ControlAddress
	}

	if opts.HTTPAddress != "" {
		settings.HTTPAddress = opts.HTTPAddress
	}

	if opts.ThresholdsFile != "" {
		settings.ThresholdsFile = opts.ThresholdsFile
	}
}

// newSettings maps the settings file onto controller settings.
func newSettings(cfg *config.Config) Settings {
	t := cfg.Alarm.Thresholds

	return Settings{
		Device:    cfg.Device.Name,
		DataTopic: cfg.MQTT.Topics.Data,
		Thresholds: air.Thresholds{
			Temperature: t.Temperature,
			Humidity:    t.Humidity,
			CO2:         t.CO2,
			VOC:         t.VOC,
			CO2Critical: t.CO2Critical,
		},
		Alarm: alarm.Config{
			Cooldown:        cfg.Alarm.Cooldown,
			StrikeThreshold: cfg.Alarm.StrikeThreshold,
		},
		Link: link.Config{
			NetworkRetry:   cfg.Network.RetryInterval,
			MessagingRetry: cfg.MQTT.RetryInterval,
		},
		PulseDuration:  cfg.Actuator.PulseDuration,
		PulseFrequency: cfg.Actuator.PulseFrequency,
		WaveRepeats:    cfg.Actuator.WaveRepeats,
		ConnectTimeout: cfg.Timeouts.Connect,
		PublishTimeout: cfg.Timeouts.Publish,
	}
}
