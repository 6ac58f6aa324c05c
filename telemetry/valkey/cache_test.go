package valkey

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/braboj/protocol-devicenet/dnconfig"
)

func TestConnectDisabledIsNoop(t *testing.T) {
	c := NewCache("node0", dnconfig.ValkeyConfig{Enabled: false}, nil)
	require.NoError(t, c.Connect(context.Background()))
}

func TestLoadConnectionWithoutClientIsMiss(t *testing.T) {
	c := NewCache("node0", dnconfig.ValkeyConfig{}, nil)
	_, ok := c.LoadConnection(context.Background(), 1)
	require.False(t, ok)
}

func TestSaveFragWindowWithoutClientIsNoop(t *testing.T) {
	c := NewCache("node0", dnconfig.ValkeyConfig{}, nil)
	require.NoError(t, c.SaveFragWindow(context.Background(), "5:1", 2, []byte{1, 2}))
}

func TestKeyShape(t *testing.T) {
	c := NewCache("node0", dnconfig.ValkeyConfig{}, nil)
	require.Equal(t, "devicenet:node0:conn:4", c.connKey(4))
	require.Equal(t, "devicenet:node0:frag:5:1", c.fragKey("5:1"))
}
