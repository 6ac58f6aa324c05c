// Command dnlinkd runs a DeviceNet master node against a configured CAN
// bus, connecting whichever MQTT/Kafka/Valkey sinks the config enables,
// serving a diagnostics HTTP API, and driving a terminal dashboard unless
// -no-tui is given — reduced from the gateway's daemon entrypoint to a
// single process. The sinks are connected at startup and closed on exit;
// this command does not feed exchanges or I/O updates into them.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/braboj/protocol-devicenet/candrv"
	"github.com/braboj/protocol-devicenet/dnbrokertest"
	"github.com/braboj/protocol-devicenet/dnconfig"
	"github.com/braboj/protocol-devicenet/diagapi"
	"github.com/braboj/protocol-devicenet/dnlink"
	"github.com/braboj/protocol-devicenet/dnlog"
	"github.com/braboj/protocol-devicenet/dntui"
	"github.com/braboj/protocol-devicenet/telemetry/kafka"
	"github.com/braboj/protocol-devicenet/telemetry/mqtt"
	"github.com/braboj/protocol-devicenet/telemetry/valkey"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configPath  = flag.String("config", dnconfig.DefaultPath(), "path to configuration file")
	showVersion = flag.Bool("version", false, "show version and exit")
	noTUI       = flag.Bool("no-tui", false, "disable the terminal dashboard (headless mode)")
	logFile     = flag.String("log", "", "path to log file (optional)")
	logDebug    = flag.String("log-debug", "", "comma-separated protocol tags to trace, or \"all\"")
	adminUser   = flag.String("admin-user", "", "set the diagnostics API admin username and exit")
	adminPass   = flag.String("admin-pass", "", "password for -admin-user")

	stressTest     = flag.Bool("stress-test-brokers", false, "run telemetry sink stress tests and exit")
	stressDuration = flag.Duration("test-duration", 5*time.Second, "time budget for the broker stress run (the whole run is cut off 10s after it)")
	stressCount    = flag.Int("test-exchanges", 200, "simulated exchanges per broker stress test")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("dnlinkd", Version)
		return
	}

	cfg, err := dnconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dnlinkd: load config: %v\n", err)
		os.Exit(1)
	}

	if *adminUser != "" {
		if err := setAdmin(cfg, *adminUser, *adminPass); err != nil {
			fmt.Fprintf(os.Stderr, "dnlinkd: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "dnlinkd: %v\n", err)
		os.Exit(1)
	}

	if *stressTest {
		runStressTest(cfg)
		return
	}

	var log *dnlog.Logger
	if *logFile != "" {
		log, err = dnlog.NewFileLogger(*logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dnlinkd: open log: %v\n", err)
			os.Exit(1)
		}
		defer log.Close()
		if *logDebug != "" {
			log.SetFilter(*logDebug)
		}
	}

	nodes, err := buildNodes(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dnlinkd: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sinks := startSinks(ctx, cfg, log)
	defer stopSinks(sinks)

	if cfg.DiagAPI.Enabled {
		server := diagapi.NewServer(cfg.DiagAPI, nodes)
		addr := fmt.Sprintf("%s:%d", cfg.DiagAPI.Host, cfg.DiagAPI.Port)
		go func() {
			if err := http.ListenAndServe(addr, server.Router()); err != nil {
				fmt.Fprintf(os.Stderr, "dnlinkd: diagnostics API: %v\n", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if *noTUI {
		<-sigCh
		return
	}

	app := dntui.NewApp(nodes)
	go func() {
		<-sigCh
		app.Stop()
	}()
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "dnlinkd: dashboard: %v\n", err)
		os.Exit(1)
	}
}

// buildNodes constructs one dnlink.Node per configured node entry, bound
// to a loopback bus. Any bus driver other than "" or "loopback" is an
// error.
func buildNodes(cfg *dnconfig.Config, log *dnlog.Logger) (map[string]*dnlink.Node, error) {
	nodes := make(map[string]*dnlink.Node, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		var bus candrv.Bus
		switch n.BusDriver {
		case "", "loopback":
			bus = candrv.NewLoopbackBus()
		default:
			return nil, fmt.Errorf("node %q: unsupported bus driver %q", n.Name, n.BusDriver)
		}

		opts := []dnlink.Option{}
		if n.WaitTime > 0 {
			opts = append(opts, dnlink.WithWaitTime(n.WaitTime))
		}
		if log != nil {
			opts = append(opts, dnlink.WithLogger(log))
		}

		nodes[n.Name] = dnlink.NewNode(bus, n.MasterMAC, n.SlaveMAC, opts...)
	}
	return nodes, nil
}

type sinkSet struct {
	mqtt  []*mqtt.Publisher
	kafka *kafka.Producer
	cache *valkey.Cache
}

func startSinks(ctx context.Context, cfg *dnconfig.Config, log *dnlog.Logger) sinkSet {
	var set sinkSet

	for _, n := range cfg.Nodes {
		if !cfg.MQTT.Enabled {
			continue
		}
		pub := mqtt.NewPublisher(n.Name, cfg.MQTT, log)
		if err := pub.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "dnlinkd: mqtt %s: %v\n", n.Name, err)
			continue
		}
		set.mqtt = append(set.mqtt, pub)
	}

	if cfg.Kafka.Enabled {
		prod := kafka.NewProducer(cfg.Kafka, log)
		if err := prod.Connect(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "dnlinkd: kafka: %v\n", err)
		} else {
			set.kafka = prod
		}
	}

	if cfg.Valkey.Enabled {
		cache := valkey.NewCache("dnlinkd", cfg.Valkey, log)
		if err := cache.Connect(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "dnlinkd: valkey: %v\n", err)
		} else {
			set.cache = cache
		}
	}

	return set
}

func stopSinks(s sinkSet) {
	for _, pub := range s.mqtt {
		pub.Stop()
	}
	if s.kafka != nil {
		s.kafka.Close()
	}
	if s.cache != nil {
		s.cache.Close()
	}
}

func setAdmin(cfg *dnconfig.Config, user, pass string) error {
	if pass == "" {
		return fmt.Errorf("-admin-pass is required with -admin-user")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	cfg.DiagAPI.AdminUser = user
	cfg.DiagAPI.AdminPassHash = string(hash)
	if cfg.DiagAPI.SessionSecret == "" {
		secret := make([]byte, 32)
		cfg.DiagAPI.SessionSecret = base64.StdEncoding.EncodeToString(secret)
	}
	return cfg.Save(*configPath)
}

func runStressTest(cfg *dnconfig.Config) {
	runner := dnbrokertest.NewRunner(cfg, dnbrokertest.TestConfig{
		Duration:     *stressDuration,
		NumExchanges: *stressCount,
	})
	ctx, cancel := context.WithTimeout(context.Background(), *stressDuration+10*time.Second)
	defer cancel()
	results := runner.Run(ctx)
	fmt.Print(dnbrokertest.Report(results))
}
