// Package dnbrokertest stress-tests the telemetry sinks (MQTT, Kafka,
// Valkey) configured for a dnlinkd deployment by simulating a burst of
// DeviceNet exchanges and I/O updates against each enabled broker,
// reduced from the gateway's broker stress-test runner to the three
// sinks this module ships.
package dnbrokertest

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/braboj/protocol-devicenet/dnconfig"
	"github.com/braboj/protocol-devicenet/telemetry/kafka"
	"github.com/braboj/protocol-devicenet/telemetry/mqtt"
	"github.com/braboj/protocol-devicenet/telemetry/valkey"
)

// TestConfig controls how much simulated traffic a Run generates.
type TestConfig struct {
	Duration     time.Duration
	NumExchanges int // simulated explicit-service exchanges per broker
}

// DefaultTestConfig returns sensible defaults for a bench run.
func DefaultTestConfig() TestConfig {
	return TestConfig{Duration: 5 * time.Second, NumExchanges: 200}
}

// TestResult holds the outcome of stress-testing one sink.
type TestResult struct {
	Sink         string
	Duration     time.Duration
	MessagesSent int64
	Errors       int64
	Throughput   float64 // messages per second
	Success      bool
	Error        error
}

// Runner drives stress tests against the telemetry sinks described by a
// dnconfig.Config.
type Runner struct {
	cfg     *dnconfig.Config
	testCfg TestConfig
}

// NewRunner creates a Runner for the given configuration.
func NewRunner(cfg *dnconfig.Config, testCfg TestConfig) *Runner {
	return &Runner{cfg: cfg, testCfg: testCfg}
}

// Run exercises every enabled sink and returns one result per sink,
// sorted by name for stable output.
func (r *Runner) Run(ctx context.Context) []TestResult {
	var results []TestResult

	if r.cfg.MQTT.Enabled {
		results = append(results, r.testMQTT(ctx))
	}
	if r.cfg.Kafka.Enabled {
		results = append(results, r.testKafka(ctx))
	}
	if r.cfg.Valkey.Enabled {
		results = append(results, r.testValkey(ctx))
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Sink < results[j].Sink })
	return results
}

func (r *Runner) testMQTT(ctx context.Context) TestResult {
	result := TestResult{Sink: "mqtt"}
	pub := mqtt.NewPublisher("stress", r.cfg.MQTT, nil)
	if err := pub.Start(); err != nil {
		result.Error = fmt.Errorf("mqtt: connect: %w", err)
		return result
	}
	defer pub.Stop()

	var sent, errs int64
	start := time.Now()
	for i := 0; i < r.testCfg.NumExchanges; i++ {
		if ctx.Err() != nil {
			break
		}
		ok := pub.PublishExchange(3, 1, byte(i%256), 0x0E, []byte{byte(i)}, nil)
		atomic.AddInt64(&sent, 1)
		if !ok {
			atomic.AddInt64(&errs, 1)
		}
	}
	result.Duration = time.Since(start)
	result.MessagesSent = sent
	result.Errors = errs
	result.Success = errs == 0
	if result.Duration > 0 {
		result.Throughput = float64(sent) / result.Duration.Seconds()
	}
	return result
}

func (r *Runner) testKafka(ctx context.Context) TestResult {
	result := TestResult{Sink: "kafka"}
	prod := kafka.NewProducer(r.cfg.Kafka, nil)
	if err := prod.Connect(ctx); err != nil {
		result.Error = fmt.Errorf("kafka: connect: %w", err)
		return result
	}
	defer prod.Close()

	var sent, errs int64
	start := time.Now()
	for i := 0; i < r.testCfg.NumExchanges; i++ {
		if ctx.Err() != nil {
			break
		}
		err := prod.PublishExchange(ctx, "stress", 3, 1, 0x0E, []byte{byte(i)}, nil, 0)
		atomic.AddInt64(&sent, 1)
		if err != nil {
			atomic.AddInt64(&errs, 1)
		}
	}
	result.Duration = time.Since(start)
	result.MessagesSent = sent
	result.Errors = errs
	result.Success = errs == 0
	if result.Duration > 0 {
		result.Throughput = float64(sent) / result.Duration.Seconds()
	}
	return result
}

func (r *Runner) testValkey(ctx context.Context) TestResult {
	result := TestResult{Sink: "valkey"}
	cache := valkey.NewCache("stress", r.cfg.Valkey, nil)
	if err := cache.Connect(ctx); err != nil {
		result.Error = fmt.Errorf("valkey: connect: %w", err)
		return result
	}
	defer cache.Close()

	var sent, errs int64
	start := time.Now()
	for i := 0; i < r.testCfg.NumExchanges; i++ {
		if ctx.Err() != nil {
			break
		}
		err := cache.SaveFragWindow(ctx, fmt.Sprintf("3:%d", i), i, []byte{byte(i)})
		atomic.AddInt64(&sent, 1)
		if err != nil {
			atomic.AddInt64(&errs, 1)
		}
	}
	result.Duration = time.Since(start)
	result.MessagesSent = sent
	result.Errors = errs
	result.Success = errs == 0
	if result.Duration > 0 {
		result.Throughput = float64(sent) / result.Duration.Seconds()
	}
	return result
}

// Report renders results as a plain-text summary, matching the
// gateway's stress-test report format.
func Report(results []TestResult) string {
	out := "broker stress test report\n"
	for _, r := range results {
		if r.Error != nil {
			out += fmt.Sprintf("  %-8s FAILED: %v\n", r.Sink, r.Error)
			continue
		}
		out += fmt.Sprintf("  %-8s sent=%d errors=%d throughput=%.1f msg/s\n",
			r.Sink, r.MessagesSent, r.Errors, r.Throughput)
	}
	return out
}
