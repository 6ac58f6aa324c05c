// Package valkey caches a DeviceNet node's connection table and
// in-flight fragment reassembly windows in Valkey/Redis, so a restarted
// master process can recover its view of established connections
// instead of starting cold, adapted from the gateway's tag-value cache
// manager down to the two record shapes this module needs.
package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/braboj/protocol-devicenet/dnconfig"
	"github.com/braboj/protocol-devicenet/dnlink"
)

// DebugLogger is the subset of dnlog.Logger the cache needs.
type DebugLogger interface {
	Log(tag, format string, args ...interface{})
}

// Cache owns one Valkey client caching state for a single node.
type Cache struct {
	cfg  dnconfig.ValkeyConfig
	node string
	log  DebugLogger

	client *redis.Client
}

// NewCache creates a Cache for node, not yet connected.
func NewCache(node string, cfg dnconfig.ValkeyConfig, log DebugLogger) *Cache {
	return &Cache{cfg: cfg, node: node, log: log}
}

func (c *Cache) logf(format string, args ...interface{}) {
	if c.log != nil {
		c.log.Log("valkey", format, args...)
	}
}

// Connect opens the Valkey client and verifies reachability with PING.
// It is a no-op if the sink is disabled.
func (c *Cache) Connect(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:     c.cfg.Address,
		Password: c.cfg.Password,
		DB:       c.cfg.Database,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("valkey: ping %s: %w", c.cfg.Address, err)
	}

	c.logf("connected to %s db=%d", c.cfg.Address, c.cfg.Database)
	return nil
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Cache) connKey(instance int) string {
	return fmt.Sprintf("devicenet:%s:conn:%d", c.node, instance)
}

func (c *Cache) fragKey(msgKey string) string {
	return fmt.Sprintf("devicenet:%s:frag:%s", c.node, msgKey)
}

// SaveConnections snapshots node's connection table into Valkey, one key
// per instance, each expiring after KeyTTL (0 = no expiry).
func (c *Cache) SaveConnections(ctx context.Context, node *dnlink.Node) error {
	if c.client == nil {
		return nil
	}
	for instance, conn := range node.Connections() {
		payload, err := json.Marshal(conn)
		if err != nil {
			return fmt.Errorf("valkey: marshal connection %d: %w", instance, err)
		}
		if err := c.client.Set(ctx, c.connKey(instance), payload, c.cfg.KeyTTL).Err(); err != nil {
			return fmt.Errorf("valkey: save connection %d: %w", instance, err)
		}
	}
	return nil
}

// LoadConnection returns the cached connection-table entry for instance,
// or (Connection{}, false) if nothing is cached.
func (c *Cache) LoadConnection(ctx context.Context, instance int) (dnlink.Connection, bool) {
	var conn dnlink.Connection
	if c.client == nil {
		return conn, false
	}
	raw, err := c.client.Get(ctx, c.connKey(instance)).Bytes()
	if err != nil {
		return conn, false
	}
	if err := json.Unmarshal(raw, &conn); err != nil {
		c.logf("decode cached connection %d: %v", instance, err)
		return dnlink.Connection{}, false
	}
	return conn, true
}

// fragState is the reassembly window persisted for one in-flight
// fragmented transfer.
type fragState struct {
	PrevCount int    `json:"prev_count"`
	Buffer    []byte `json:"buffer"`
}

// SaveFragWindow persists the reassembly window for the in-flight
// message identified by msgKey (typically "<classID>:<instanceID>"),
// with a short TTL since a stalled transfer should not survive long
// past the link layer's own fragment-ack timeout.
func (c *Cache) SaveFragWindow(ctx context.Context, msgKey string, prevCount int, buffer []byte) error {
	if c.client == nil {
		return nil
	}
	payload, err := json.Marshal(fragState{PrevCount: prevCount, Buffer: buffer})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.fragKey(msgKey), payload, 10*time.Second).Err()
}

// ClearFragWindow removes a completed or abandoned reassembly window.
func (c *Cache) ClearFragWindow(ctx context.Context, msgKey string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.fragKey(msgKey)).Err()
}
