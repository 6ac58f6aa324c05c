// Package mqtt publishes DeviceNet service-exchange results and I/O
// transfers to an MQTT broker, adapted from the gateway's tag publisher
// to retained per-attribute and per-channel messages instead of
// per-tag ones.
package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/braboj/protocol-devicenet/dnconfig"
)

// DebugLogger is the subset of dnlog.Logger the publisher needs, kept as
// an interface so this package does not import dnlog directly.
type DebugLogger interface {
	Log(tag, format string, args ...interface{})
}

// ExchangeMessage is the JSON body published for a completed explicit
// service exchange.
type ExchangeMessage struct {
	Node        string `json:"node"`
	ClassID     uint32 `json:"class_id"`
	InstanceID  uint32 `json:"instance_id"`
	AttributeID byte   `json:"attribute_id,omitempty"`
	ServiceCode byte   `json:"service_code"`
	Data        []byte `json:"data"`
	Error       string `json:"error,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// IOMessage is the JSON body published for an I/O channel update.
type IOMessage struct {
	Node      string `json:"node"`
	Channel   string `json:"channel"` // poll, bitstrobe, cos, cyclic
	Data      []byte `json:"data"`
	Timestamp string `json:"timestamp"`
}

// Publisher owns one MQTT client publishing telemetry for a single
// node's topic namespace ("devicenet/<node>/...").
type Publisher struct {
	cfg  dnconfig.MQTTConfig
	node string
	log  DebugLogger

	mu      sync.RWMutex
	client  pahomqtt.Client
	running bool
}

// NewPublisher creates a Publisher for node, not yet connected.
func NewPublisher(node string, cfg dnconfig.MQTTConfig, log DebugLogger) *Publisher {
	return &Publisher{cfg: cfg, node: node, log: log}
}

func (p *Publisher) logf(format string, args ...interface{}) {
	if p.log != nil {
		p.log.Log("mqtt", format, args...)
	}
}

// Start connects to the configured broker. It is a no-op if the sink is
// disabled in config.
func (p *Publisher) Start() error {
	if !p.cfg.Enabled {
		return nil
	}

	opts := pahomqtt.NewClientOptions()
	if p.cfg.UseTLS {
		opts.AddBroker(fmt.Sprintf("ssl://%s:%d", p.cfg.Broker, p.cfg.Port))
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		opts.AddBroker(fmt.Sprintf("tcp://%s:%d", p.cfg.Broker, p.cfg.Port))
	}
	opts.SetClientID(p.cfg.ClientID)
	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	client := pahomqtt.NewClient(opts)
	p.logf("connecting to %s:%d", p.cfg.Broker, p.cfg.Port)

	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt: connect timeout to %s:%d", p.cfg.Broker, p.cfg.Port)
	}
	if token.Error() != nil {
		return token.Error()
	}

	p.mu.Lock()
	p.client = client
	p.running = true
	p.mu.Unlock()

	p.logf("connected to %s:%d", p.cfg.Broker, p.cfg.Port)
	return nil
}

// Stop disconnects the client, if connected.
func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Disconnect(250)
	}
	p.running = false
}

func (p *Publisher) topic(parts ...string) string {
	topic := "devicenet/" + p.node
	for _, part := range parts {
		topic += "/" + part
	}
	return topic
}

func (p *Publisher) publish(topic string, payload []byte) bool {
	p.mu.RLock()
	client, running := p.client, p.running
	p.mu.RUnlock()
	if !running || client == nil {
		return false
	}

	token := client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(2 * time.Second) {
		p.logf("publish to %s timed out", topic)
		return false
	}
	if err := token.Error(); err != nil {
		p.logf("publish to %s failed: %v", topic, err)
		return false
	}
	return true
}

// PublishExchange publishes the result of a single explicit service
// exchange under devicenet/<node>/exchange/<classID>/<instanceID>.
func (p *Publisher) PublishExchange(classID, instanceID uint32, attrID, serviceCode byte, data []byte, exchangeErr error) bool {
	msg := ExchangeMessage{
		Node: p.node, ClassID: classID, InstanceID: instanceID,
		AttributeID: attrID, ServiceCode: serviceCode, Data: data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if exchangeErr != nil {
		msg.Error = exchangeErr.Error()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	return p.publish(p.topic("exchange", fmt.Sprintf("%d", classID), fmt.Sprintf("%d", instanceID)), payload)
}

// PublishIO publishes an I/O channel's latest payload under
// devicenet/<node>/io/<channel>.
func (p *Publisher) PublishIO(channel string, data []byte) bool {
	msg := IOMessage{Node: p.node, Channel: channel, Data: data, Timestamp: time.Now().UTC().Format(time.RFC3339)}
	payload, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	return p.publish(p.topic("io", channel), payload)
}

// Running reports whether the publisher is currently connected.
func (p *Publisher) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}
