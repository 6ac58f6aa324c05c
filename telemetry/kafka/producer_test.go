package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/braboj/protocol-devicenet/dnconfig"
)

func TestConnectDisabledIsNoop(t *testing.T) {
	p := NewProducer(dnconfig.KafkaConfig{Enabled: false}, nil)
	require.NoError(t, p.Connect(context.Background()))
}

func TestPublishWithoutWriterIsNoop(t *testing.T) {
	p := NewProducer(dnconfig.KafkaConfig{Enabled: true, Brokers: []string{"127.0.0.1:1"}}, nil)
	err := p.PublishExchange(context.Background(), "node0", 1, 1, 0x0E, nil, nil, 0)
	require.NoError(t, err)
}

func TestConnectRejectsNoBrokers(t *testing.T) {
	p := NewProducer(dnconfig.KafkaConfig{Enabled: true}, nil)
	require.Error(t, p.Connect(context.Background()))
}
