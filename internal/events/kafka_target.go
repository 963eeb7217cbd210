package events

import (
	"context"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/kafka"
)

// KafkaTarget publishes navigation events as CloudEvents to TopicNavigationEvents.
type KafkaTarget struct {
	producer *kafka.Producer
}

// NewKafkaTarget creates a target writing through producer.
func NewKafkaTarget(producer *kafka.Producer) *KafkaTarget {
	return &KafkaTarget{producer: producer}
}

// Deliver wraps msg in a CloudEvent with the session ID as subject.
func (t *KafkaTarget) Deliver(ctx context.Context, msg Message) error {
	ce, err := NewNavigationCloudEvent(msg)
	if err != nil {
		return err
	}
	return t.producer.PublishEvent(ctx, TopicNavigationEvents, ce)
}

// NewNavigationCloudEvent builds the CloudEvent published for msg.
func NewNavigationCloudEvent(msg Message) (kafka.CloudEvent, error) {
	ce, err := kafka.NewCloudEvent(EventSource, EventTypePrefix+msg.Type, msg)
	if err != nil {
		return kafka.CloudEvent{}, err
	}
	ce.Subject = msg.SessionID.String()
	ce.Time = msg.OccurredAt
	return ce, nil
}
