package dnbrokertest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/braboj/protocol-devicenet/dnconfig"
)

func TestRunSkipsDisabledSinks(t *testing.T) {
	cfg := dnconfig.DefaultConfig()
	r := NewRunner(cfg, TestConfig{NumExchanges: 1})
	require.Empty(t, r.Run(context.Background()))
}

func TestReportFormatsFailures(t *testing.T) {
	results := []TestResult{{Sink: "mqtt", Error: context.DeadlineExceeded}}
	require.NotEmpty(t, Report(results))
}
