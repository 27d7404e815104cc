package msk

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/aws/aws-lambda-go/events"

	"github.com/example/ec-cart-pricing/internal/infrastructure/kafka"
)

// Message is one decoded record of an MSK trigger batch.
type Message struct {
	Topic     string
	Partition int64
	Offset    int64
	Key       []byte
	Value     []byte
	EventType string
}

// Ref identifies the record in logs.
func (m Message) Ref() string {
	return fmt.Sprintf("%s-%d@%d", m.Topic, m.Partition, m.Offset)
}

// ConvertRecord decodes the base64 key and value Lambda delivers for an
// MSK record. The event-type header is copied when present.
func ConvertRecord(record events.KafkaRecord) (Message, error) {
	msg := Message{
		Topic:     record.Topic,
		Partition: record.Partition,
		Offset:    record.Offset,
	}

	if record.Key != "" {
		key, err := base64.StdEncoding.DecodeString(record.Key)
		if err != nil {
			return Message{}, fmt.Errorf("failed to decode key: %w", err)
		}
		msg.Key = key
	}

	value, err := base64.StdEncoding.DecodeString(record.Value)
	if err != nil {
		return Message{}, fmt.Errorf("failed to decode value: %w", err)
	}
	if len(value) == 0 {
		return Message{}, fmt.Errorf("record %s has no value", msg.Ref())
	}
	msg.Value = value

	for _, h := range record.Headers {
		if v, ok := h[kafka.HeaderEventType]; ok {
			msg.EventType = string(v)
		}
	}

	return msg, nil
}

// BatchConvert decodes every record of an MSK event, ordered by topic,
// partition and offset. Records that fail to decode are returned as errors.
func BatchConvert(event events.KafkaEvent) ([]Message, []error) {
	var messages []Message
	var errs []error

	for _, records := range event.Records {
		for _, record := range records {
			msg, err := ConvertRecord(record)
			if err != nil {
				errs = append(errs, fmt.Errorf("record %s-%d@%d: %w", record.Topic, record.Partition, record.Offset, err))
				continue
			}
			messages = append(messages, msg)
		}
	}

	sort.Slice(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if a.Topic != b.Topic {
			return a.Topic < b.Topic
		}
		if a.Partition != b.Partition {
			return a.Partition < b.Partition
		}
		return a.Offset < b.Offset
	})

	return messages, errs
}

// Dispatch decodes event and passes each message to handle in offset
// order. It returns how many messages were handled successfully along with
// every decode and handler error.
func Dispatch(ctx context.Context, event events.KafkaEvent, handle kafka.MessageHandler) (int, []error) {
	messages, errs := BatchConvert(event)

	handled := 0
	for _, msg := range messages {
		if err := handle(ctx, msg.Key, msg.Value); err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", msg.Ref(), err))
			continue
		}
		handled++
	}
	return handled, errs
}
