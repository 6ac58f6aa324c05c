// Package kafka publishes an audit trail of DeviceNet explicit-service
// exchanges and protocol errors to Kafka, adapted from the gateway's
// per-topic producer down to the single audit topic this module needs.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/braboj/protocol-devicenet/dnconfig"
)

// DebugLogger is the subset of dnlog.Logger the producer needs.
type DebugLogger interface {
	Log(tag, format string, args ...interface{})
}

// AuditEvent is one record of a completed explicit-service exchange or a
// link-layer protocol error, keyed by (node, classID, instanceID) so a
// consumer can reconstruct per-slave history.
type AuditEvent struct {
	Node        string        `json:"node"`
	ClassID     uint32        `json:"class_id"`
	InstanceID  uint32        `json:"instance_id"`
	ServiceCode byte          `json:"service_code"`
	Data        []byte        `json:"data,omitempty"`
	Err         string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
	Timestamp   string        `json:"timestamp"`
}

// Producer owns one Kafka writer publishing audit events to a single
// topic.
type Producer struct {
	cfg dnconfig.KafkaConfig
	log DebugLogger

	mu     sync.Mutex
	writer *kafkago.Writer
}

// NewProducer creates a Producer, not yet connected.
func NewProducer(cfg dnconfig.KafkaConfig, log DebugLogger) *Producer {
	return &Producer{cfg: cfg, log: log}
}

func (p *Producer) logf(format string, args ...interface{}) {
	if p.log != nil {
		p.log.Log("kafka", format, args...)
	}
}

// Connect verifies cluster reachability and prepares a batching writer
// for the configured audit topic. It is a no-op if the sink is disabled.
func (p *Producer) Connect(ctx context.Context) error {
	if !p.cfg.Enabled {
		return nil
	}
	if len(p.cfg.Brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := kafkago.DialContext(dialCtx, "tcp", p.cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka: dial %s: %w", p.cfg.Brokers[0], err)
	}
	conn.Close()

	p.mu.Lock()
	p.writer = &kafkago.Writer{
		Addr:                   kafkago.TCP(p.cfg.Brokers...),
		Topic:                  p.cfg.Topic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		Async:                  false,
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	p.mu.Unlock()

	p.logf("connected to %v, topic %q", p.cfg.Brokers, p.cfg.Topic)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}

// PublishExchange records one explicit service exchange's outcome.
func (p *Producer) PublishExchange(ctx context.Context, node string, classID, instanceID uint32, serviceCode byte, data []byte, exchangeErr error, duration time.Duration) error {
	evt := AuditEvent{
		Node: node, ClassID: classID, InstanceID: instanceID, ServiceCode: serviceCode,
		Data: data, Duration: duration, Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if exchangeErr != nil {
		evt.Err = exchangeErr.Error()
	}
	return p.publish(ctx, node, evt)
}

func (p *Producer) publish(ctx context.Context, key string, evt AuditEvent) error {
	p.mu.Lock()
	writer := p.writer
	p.mu.Unlock()
	if writer == nil {
		return nil // sink disabled or not yet connected
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("kafka: marshal audit event: %w", err)
	}

	if err := writer.WriteMessages(ctx, kafkago.Message{Key: []byte(key), Value: payload, Time: time.Now()}); err != nil {
		p.logf("write failed: %v", err)
		return err
	}
	return nil
}
