// Package analytics đẩy violation và analytics event ra ngoài cho dashboard
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kgo "github.com/segmentio/kafka-go"
)

// Message là bản ghi gửi ra topic
type Message struct {
	Kind      string      `json:"kind"` // violation | analytics
	EventTime int64       `json:"eventTime"`
	Payload   interface{} `json:"payload"`
}

// Sink nhận event; lỗi publish không được làm hỏng luồng admission/dispatch
type Sink interface {
	Publish(ctx context.Context, key string, msg Message) error
	Close() error
}

// NoopSink bỏ qua mọi event (khi không cấu hình Kafka)
type NoopSink struct{}

func (NoopSink) Publish(context.Context, string, Message) error { return nil }
func (NoopSink) Close() error                                   { return nil }

// KafkaSink ghi event dạng JSON vào một topic Kafka
type KafkaSink struct {
	writer  *kgo.Writer
	timeout time.Duration
}

// NewKafkaSink tạo writer cho brokers/topic
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	w := &kgo.Writer{
		Addr:         kgo.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kgo.Hash{},
		RequiredAcks: kgo.RequireOne,
		Async:        true,
	}
	return &KafkaSink{writer: w, timeout: 3 * time.Second}, nil
}

// Publish dùng key để giữ thứ tự event của cùng một scope/job
func (k *KafkaSink) Publish(ctx context.Context, key string, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	return k.writer.WriteMessages(cctx, kgo.Message{
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	})
}

func (k *KafkaSink) Close() error { return k.writer.Close() }

// NewSink chọn Kafka khi có broker, ngược lại NoopSink
func NewSink(brokers []string, topic string) (Sink, error) {
	if len(brokers) == 0 {
		return NoopSink{}, nil
	}
	return NewKafkaSink(brokers, topic)
}
