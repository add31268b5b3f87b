package events

import (
	"context"
	"encoding/json"
	"fmt"

	"hemobank/internal/platform/kafka"
)

// KafkaSink forwards events to Kafka, keyed by the entity the event is about
// so per-entity ordering survives partitioning.
type KafkaSink struct {
	producer *kafka.Producer
}

func NewKafkaSink(producer *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

// Topics lists every topic the sink writes, for startup EnsureTopics calls.
func Topics() []string {
	return []string{TopicInventory, TopicRequests}
}

func (s *KafkaSink) Forward(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	key := event.UnitID
	if TopicFor(event.Type) == TopicRequests {
		key = event.RequestID
	}
	return s.producer.Produce(ctx, TopicFor(event.Type), key, payload)
}
