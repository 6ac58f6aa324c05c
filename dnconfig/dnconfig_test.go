package dnconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Nodes, 1)
	require.Equal(t, "node0", cfg.Nodes[0].Name)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "loopback", reloaded.Nodes[0].BusDriver)
}

func TestValidateRejectsOutOfRangeMAC(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Nodes[0].SlaveMAC = 0x40
	require.Error(t, cfg.Validate())
}

func TestFindNode(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg.FindNode("node0"))
	require.Nil(t, cfg.FindNode("missing"))
}

func TestSaveNotifiesListeners(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := DefaultConfig()

	done := make(chan struct{}, 1)
	cfg.AddOnChangeListener(func() { done <- struct{}{} })

	require.NoError(t, cfg.Save(path))
	<-done
}
