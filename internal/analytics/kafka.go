package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaEmitter publishes cart events to a Kafka topic, keyed by event ID so
// replays of the same emission land on the same partition.
type KafkaEmitter struct {
	client *kgo.Client
	topic  string
}

// NewKafkaEmitter creates a producer for the given brokers and topic.
func NewKafkaEmitter(brokers []string, topic string) (*KafkaEmitter, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProducerLinger(10 * time.Millisecond),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating kafka client: %w", err)
	}

	return &KafkaEmitter{client: client, topic: topic}, nil
}

// Emit publishes one event and waits for broker acknowledgement.
func (e *KafkaEmitter) Emit(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	record := &kgo.Record{
		Topic: e.topic,
		Key:   []byte(event.ID),
		Value: data,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Name)},
		},
		Timestamp: time.Now(),
	}

	if err := e.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("producing %s event: %w", event.Name, err)
	}
	return nil
}

// Close flushes and shuts down the producer.
func (e *KafkaEmitter) Close() {
	e.client.Close()
}
