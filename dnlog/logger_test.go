package dnlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogWritesTaggedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	l, err := NewFileLogger(path)
	require.NoError(t, err)

	l.Log("dnlink", "hello %d", 42)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "[dnlink] hello 42")
}

func TestSetFilterRestrictsTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	l, err := NewFileLogger(path)
	require.NoError(t, err)

	l.SetFilter("cip")
	l.Log("dnlink", "should be filtered out")
	l.Log("cip", "should appear")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	require.False(t, strings.Contains(text, "should be filtered out"))
	require.True(t, strings.Contains(text, "should appear"))
}

func TestTXRXHexDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	l, err := NewFileLogger(path)
	require.NoError(t, err)

	l.TX("candrv", 0x123, []byte{0xDE, 0xAD})
	l.RX("candrv", 0x124, nil)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	require.Contains(t, text, "TX id=123")
	require.Contains(t, text, "DE AD")
	require.Contains(t, text, "RX id=124")
	require.Contains(t, text, "(empty)")
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	l.Log("dnlink", "ignored")
	l.TX("dnlink", 1, nil)
	l.RX("dnlink", 1, nil)
	l.Error("dnlink", "ctx", os.ErrClosed)
	require.NoError(t, l.Close())
}

func TestCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	l, err := NewFileLogger(path)
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}
