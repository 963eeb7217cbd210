package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/application"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/apperr"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/kafka"
)

// SessionCommander is the part of the session service remote commands drive.
type SessionCommander interface {
	UpdateProps(ctx context.Context, id uuid.UUID, req application.PropsRequest) (*application.SessionDTO, error)
	RequestRoute(ctx context.Context, id uuid.UUID) (*application.SessionDTO, error)
	CancelSession(ctx context.Context, id uuid.UUID) (*application.SessionDTO, error)
	ToggleMute(ctx context.Context, id uuid.UUID) (*application.SessionDTO, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, req application.LocationRequest) (*application.SessionDTO, error)
	CloseSession(ctx context.Context, id uuid.UUID) (*application.SessionDTO, error)
}

// CommandEvent is the data of every command on TopicNavigationCommands.
type CommandEvent struct {
	SessionID uuid.UUID                    `json:"session_id"`
	Props     *application.PropsRequest    `json:"props,omitempty"`
	Location  *application.LocationRequest `json:"location,omitempty"`
}

// CommandConsumer applies remote commands to live sessions.
type CommandConsumer struct {
	consumer *kafka.Consumer
	service  SessionCommander
	logger   *zap.Logger
}

// NewCommandConsumer creates a new CommandConsumer.
func NewCommandConsumer(
	brokers []string,
	groupID string,
	service SessionCommander,
	logger *zap.Logger,
) *CommandConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicNavigationCommands, logger)
	return &CommandConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming commands. This blocks until the context is cancelled.
func (c *CommandConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *CommandConsumer) Close() error {
	return c.consumer.Close()
}

func (c *CommandConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from command topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	var cmd CommandEvent
	if err := cloudEvent.ParseData(&cmd); err != nil {
		c.logger.Error("failed to parse command data",
			zap.String("type", cloudEvent.Type),
			zap.Error(err),
		)
		return nil
	}
	if cmd.SessionID == uuid.Nil {
		c.logger.Warn("command without session id", zap.String("type", cloudEvent.Type))
		return nil
	}

	err = c.dispatch(ctx, cloudEvent.Type, cmd)
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindInvalidState:
		// Retrying cannot succeed.
		c.logger.Warn("command rejected",
			zap.String("type", cloudEvent.Type),
			zap.String("session_id", cmd.SessionID.String()),
			zap.Error(err),
		)
		return nil
	}
	if err != nil {
		c.logger.Error("failed to apply command",
			zap.String("type", cloudEvent.Type),
			zap.String("session_id", cmd.SessionID.String()),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("command applied",
		zap.String("type", cloudEvent.Type),
		zap.String("session_id", cmd.SessionID.String()),
	)
	return nil
}

func (c *CommandConsumer) dispatch(ctx context.Context, eventType string, cmd CommandEvent) error {
	var err error
	switch eventType {
	case CommandUpdateProps:
		if cmd.Props == nil {
			return apperr.NewValidationError("update_props command has no props")
		}
		if err := application.ValidateRequest(cmd.Props); err != nil {
			return err
		}
		_, err = c.service.UpdateProps(ctx, cmd.SessionID, *cmd.Props)
	case CommandRequestRoute:
		_, err = c.service.RequestRoute(ctx, cmd.SessionID)
	case CommandCancel:
		_, err = c.service.CancelSession(ctx, cmd.SessionID)
	case CommandToggleMute:
		_, err = c.service.ToggleMute(ctx, cmd.SessionID)
	case CommandLocation:
		if cmd.Location == nil {
			return apperr.NewValidationError("location command has no location")
		}
		if err := application.ValidateRequest(cmd.Location); err != nil {
			return err
		}
		_, err = c.service.UpdateLocation(ctx, cmd.SessionID, *cmd.Location)
	case CommandClose:
		_, err = c.service.CloseSession(ctx, cmd.SessionID)
	default:
		c.logger.Debug("ignoring unhandled command type", zap.String("type", eventType))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", eventType, err)
	}
	return nil
}
