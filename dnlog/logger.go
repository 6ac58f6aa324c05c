// Package dnlog provides protocol-tagged debug logging for the DeviceNet
// link layer. It mirrors the file-backed, filterable logger used across
// the rest of the gateway's protocol packages.
package dnlog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Known subsystem tags usable with SetFilter.
var knownProtocols = []string{
	"canid", "dnwire", "dnpacket", "dnfrag", "dnlink", "cip", "candrv",
	"mqtt", "kafka", "valkey", "diagapi", "tui",
}

// Logger writes timestamped, protocol-tagged lines to a file. The zero
// value is not usable; create one with NewFileLogger. A nil *Logger is
// safe to call methods on -- every method is a no-op in that case, so
// callers can pass a nil logger when logging is disabled.
type Logger struct {
	file    *os.File
	mu      sync.Mutex
	closed  bool
	filters map[string]bool
}

// NewFileLogger creates a logger that writes to path, truncating any
// existing content so each run starts with a clean trace.
func NewFileLogger(path string) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &Logger{file: file, filters: make(map[string]bool)}
	l.Log("dnlog", "logging started - %s", time.Now().Format(time.RFC3339))
	return l, nil
}

// SetFilter restricts logging to a comma-separated list of subsystem tags.
// An empty filter, or the tag "all", logs everything.
func (l *Logger) SetFilter(filter string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.filters = make(map[string]bool)
	for _, p := range strings.Split(filter, ",") {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" && p != "all" {
			l.filters[p] = true
		}
	}
}

func (l *Logger) shouldLog(tag string) bool {
	if len(l.filters) == 0 {
		return true
	}
	if l.filters[strings.ToLower(tag)] {
		return true
	}
	return strings.ToLower(tag) == "dnlog"
}

// Log writes a formatted, timestamped message tagged with the given
// subsystem.
func (l *Logger) Log(tag, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || !l.shouldLog(tag) {
		return
	}

	ts := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(l.file, "%s [%s] %s\n", ts, tag, fmt.Sprintf(format, args...))
}

// TX logs an outbound CAN frame with a hex dump of its payload.
func (l *Logger) TX(tag string, canID uint32, data []byte) {
	l.logFrame(tag, "TX", canID, data)
}

// RX logs an inbound CAN frame with a hex dump of its payload.
func (l *Logger) RX(tag string, canID uint32, data []byte) {
	l.logFrame(tag, "RX", canID, data)
}

func (l *Logger) logFrame(tag, direction string, canID uint32, data []byte) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || !l.shouldLog(tag) {
		return
	}

	ts := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(l.file, "%s [%s] %s id=%03X (%d bytes): %s\n",
		ts, tag, direction, canID, len(data), hexDump(data))
}

// Error logs an error with a short context label.
func (l *Logger) Error(tag, context string, err error) {
	l.Log(tag, "ERROR in %s: %v", context, err)
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	fmt.Fprintf(l.file, "%s [dnlog] logging ended\n", time.Now().Format("2006-01-02 15:04:05.000"))
	return l.file.Close()
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	var sb strings.Builder
	for _, b := range data {
		fmt.Fprintf(&sb, "%02X ", b)
	}
	return strings.TrimSpace(sb.String())
}
