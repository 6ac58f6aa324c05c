// Package dnconfig handles configuration persistence for a DeviceNet
// master node, in the same YAML-backed, listener-notified shape the
// teacher's config package uses for its PLC gateway configuration.
package dnconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// ListenerID identifies a registered change-notification callback.
type ListenerID string

// MQTTConfig holds the MQTT telemetry sink's connection settings.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	UseTLS   bool   `yaml:"use_tls,omitempty"`
}

// KafkaConfig holds the Kafka audit sink's connection settings.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	UseTLS  bool     `yaml:"use_tls,omitempty"`
}

// ValkeyConfig holds the Valkey connection-table cache sink's settings.
type ValkeyConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Address  string        `yaml:"address"`
	Password string        `yaml:"password,omitempty"`
	Database int           `yaml:"database"`
	KeyTTL   time.Duration `yaml:"key_ttl,omitempty"`
}

// DiagAPIConfig holds the HTTP diagnostics API's listen settings.
type DiagAPIConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret,omitempty"`
	AdminUser     string `yaml:"admin_user,omitempty"`
	AdminPassHash string `yaml:"admin_pass_hash,omitempty"` // bcrypt
}

// NodeConfig describes one DeviceNet master Node and the telemetry sinks
// bound to it.
type NodeConfig struct {
	Name       string        `yaml:"name"`
	BusDriver  string        `yaml:"bus_driver"` // "loopback" or a real CAN interface name
	MasterMAC  int           `yaml:"master_mac"`
	SlaveMAC   int           `yaml:"slave_mac"`
	WaitTime   time.Duration `yaml:"wait_time"`
	PollRate   time.Duration `yaml:"poll_rate"`
	ProducedSz int           `yaml:"produced_size,omitempty"`
	ConsumedSz int           `yaml:"consumed_size,omitempty"`
}

// Config is the top-level configuration document: one or more node
// definitions plus the telemetry sinks shared across them.
type Config struct {
	Nodes   []NodeConfig  `yaml:"nodes"`
	MQTT    MQTTConfig    `yaml:"mqtt,omitempty"`
	Kafka   KafkaConfig   `yaml:"kafka,omitempty"`
	Valkey  ValkeyConfig  `yaml:"valkey,omitempty"`
	DiagAPI DiagAPIConfig `yaml:"diag_api,omitempty"`

	dataMu          sync.Mutex                  `yaml:"-"`
	changeListeners map[ListenerID]func()       `yaml:"-"`
	listenersMu     sync.RWMutex                `yaml:"-"`
	listenerCounter uint64                      `yaml:"-"`
}

// DefaultConfig returns a configuration with one loopback node and every
// telemetry sink disabled, matching the teacher's "safe to start" default.
func DefaultConfig() *Config {
	return &Config{
		Nodes: []NodeConfig{{
			Name:      "node0",
			BusDriver: "loopback",
			MasterMAC: 0,
			SlaveMAC:  1,
			WaitTime:  time.Second,
			PollRate:  20 * time.Millisecond,
		}},
	}
}

// DefaultPath returns the default configuration file path
// (~/.dnlinkd/config.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".dnlinkd", "config.yaml")
}

// Load reads configuration from a YAML file, falling back to
// DefaultConfig (and saving it) if the file does not yet exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		return cfg, cfg.Save(path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("dnconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}

// FindNode returns the node config with the given name, or nil.
func (c *Config) FindNode(name string) *NodeConfig {
	for i := range c.Nodes {
		if c.Nodes[i].Name == name {
			return &c.Nodes[i]
		}
	}
	return nil
}

// AddOnChangeListener registers cb to run (in its own goroutine) every
// time Save succeeds. It returns an ID usable with RemoveOnChangeListener.
func (c *Config) AddOnChangeListener(cb func()) ListenerID {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	if c.changeListeners == nil {
		c.changeListeners = make(map[ListenerID]func())
	}
	id := ListenerID(fmt.Sprintf("listener-%d", atomic.AddUint64(&c.listenerCounter, 1)))
	c.changeListeners[id] = cb
	return id
}

// RemoveOnChangeListener removes a previously registered listener.
func (c *Config) RemoveOnChangeListener(id ListenerID) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	delete(c.changeListeners, id)
}

func (c *Config) notifyChangeListeners() {
	c.listenersMu.RLock()
	cbs := make([]func(), 0, len(c.changeListeners))
	for _, cb := range c.changeListeners {
		cbs = append(cbs, cb)
	}
	c.listenersMu.RUnlock()
	for _, cb := range cbs {
		go cb()
	}
}

// Save marshals and writes the config to path, then notifies change
// listeners. The dataMu lock serializes concurrent saves of the same
// Config; it does not protect individual field reads by callers that
// don't go through Save/Load.
func (c *Config) Save(path string) error {
	c.dataMu.Lock()
	data, err := yaml.Marshal(c)
	c.dataMu.Unlock()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	c.notifyChangeListeners()
	return nil
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	if len(c.Nodes) == 0 {
		return fmt.Errorf("dnconfig: at least one node is required")
	}
	for _, n := range c.Nodes {
		if n.MasterMAC < 0 || n.MasterMAC > 0x3F {
			return fmt.Errorf("dnconfig: node %q master_mac %d out of range", n.Name, n.MasterMAC)
		}
		if n.SlaveMAC < 0 || n.SlaveMAC > 0x3F {
			return fmt.Errorf("dnconfig: node %q slave_mac %d out of range", n.Name, n.SlaveMAC)
		}
	}
	return nil
}
