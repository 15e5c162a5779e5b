package monitor

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/air-alarm/internal/command"
	"github.com/oshokin/air-alarm/internal/domain/link"
	"github.com/oshokin/air-alarm/internal/domain/status"
	"github.com/oshokin/air-alarm/internal/logger"
	"github.com/oshokin/air-alarm/internal/metrics"
	"github.com/oshokin/air-alarm/internal/transport"
)

// Step runs one iteration of the connectivity loop: it checks liveness,
// performs at most one connect attempt and drains inbound commands.
func (c *Controller) Step(ctx context.Context) link.Action {
	c.checkLiveness(ctx)

	action := c.supervisor.Poll(c.now())

	switch action {
	case link.ActionConnectNetwork:
		attemptCtx, cancel := context.WithTimeout(ctx, c.settings.ConnectTimeout)
		err := c.deps.Network.Connect(attemptCtx)

		cancel()
		c.reportAttempt(ctx, action, link.Network, err)
	case link.ActionConnectMessaging:
		attemptCtx, cancel := context.WithTimeout(ctx, c.settings.ConnectTimeout)
		err := c.deps.Messenger.Connect(attemptCtx)

		cancel()

		if err != nil {
			c.deps.Messenger.Disconnect()
		}

		c.reportAttempt(ctx, action, link.Messaging, err)
	case link.ActionDrainInbound:
		messages, err := c.deps.Messenger.PollInbound()

		for _, msg := range messages {
			c.handleMessage(ctx, msg)
		}

		if err != nil {
			logger.WarnKV(ctx, "Broker session lost", "error", err)
			c.deps.Messenger.Disconnect()
		}

		c.supervisor.ReportResult(action, err, c.now())
	case link.ActionNone:
	}

	return action
}

// checkLiveness reports transports that dropped since the last step.
func (c *Controller) checkLiveness(ctx context.Context) {
	snapshot := c.supervisor.Snapshot()

	if snapshot.Network == link.Connected && !c.deps.Network.IsConnected() {
		logger.Warn(ctx, "Network link lost")
		c.supervisor.NetworkLost(c.now())
		c.deps.Messenger.Disconnect()

		return
	}

	if snapshot.Messaging == link.Connected && !c.deps.Messenger.IsConnected() {
		logger.Warn(ctx, "Broker connection lost")
		c.supervisor.MessagingLost(c.now())
		c.deps.Messenger.Disconnect()
	}
}

func (c *Controller) reportAttempt(ctx context.Context, action link.Action, t link.Transport, err error) {
	c.deps.Metrics.ObserveAttempt(t.String(), err)

	if err != nil {
		logger.WarnKV(ctx, "Connect attempt failed", "transport", t, "error", err)
	}

	c.supervisor.ReportResult(action, err, c.now())
}

// handleMessage decodes and applies one inbound message. Malformed and unknown
// messages are dropped without side effects.
func (c *Controller) handleMessage(ctx context.Context, msg transport.Message) {
	cmd, err := c.deps.Router.Decode(msg.Topic, msg.Payload)

	switch {
	case errors.Is(err, command.ErrUnknownCommand):
		c.deps.Metrics.ObserveCommand(cmd.Kind.String(), metrics.CommandIgnored)
		logger.DebugKV(ctx, "Ignored inbound message", "topic", msg.Topic, "error", err)

		return
	case err != nil:
		c.deps.Metrics.ObserveCommand(cmd.Kind.String(), metrics.CommandInvalid)
		logger.WarnKV(ctx, "Dropped malformed inbound message", "topic", msg.Topic, "error", err)

		return
	}

	if _, err = c.ApplyCommand(ctx, cmd); err != nil {
		logger.WarnKV(ctx, "Inbound command not applied", "kind", cmd.Kind, "error", err)
	}
}

// publish sends the sensor payload when the broker session is up. A failed
// publication drops the session so the supervisor reconnects.
func (c *Controller) publish(ctx context.Context, snapshot status.Status) {
	if snapshot.Link.Messaging != link.Connected {
		return
	}

	payload, err := encodePayload(snapshot)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode sensor payload", "error", err)

		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, c.settings.PublishTimeout)
	defer cancel()

	err = c.deps.Messenger.Publish(publishCtx, c.settings.DataTopic, payload)
	c.deps.Metrics.ObservePublish(err)

	if err != nil {
		logger.WarnKV(ctx, "Failed to publish sensor data", "topic", c.settings.DataTopic, "error", err)
		c.supervisor.MessagingLost(c.now())
		c.deps.Messenger.Disconnect()

		return
	}

	logger.DebugKV(ctx, "Sensor data published", "topic", c.settings.DataTopic, "bytes", len(payload))
}

func encodePayload(snapshot status.Status) ([]byte, error) {
	fields, err := structpb.NewStruct(snapshot.Published())
	if err != nil {
		return nil, fmt.Errorf("build payload: %w", err)
	}

	payload, err := protojson.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return payload, nil
}
