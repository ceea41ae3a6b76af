package sink

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/smallbiznis/planbilling/internal/notification/domain"
	"github.com/smallbiznis/planbilling/pkg/telemetry/correlation"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the slice of *kgo.Client the kafka sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Kafka publishes notifications as JSON records keyed by member id.
type Kafka struct {
	producer Producer
	topic    string
}

func NewKafka(producer Producer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Accepts(domain.Type) bool { return true }

func (k *Kafka) Deliver(ctx context.Context, msg domain.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(strconv.FormatInt(msg.MemberID, 10)),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(msg.Type)},
			{Key: "event_id", Value: []byte(msg.ID)},
		},
	}
	for key, val := range correlation.Metadata(ctx) {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: key, Value: []byte(val)})
	}
	return k.producer.ProduceSync(ctx, record).FirstErr()
}
