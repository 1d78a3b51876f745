package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tagdb/tagdb/pkg/objectstore"
)

// Config is the node configuration this tool reads from --config. Every
// field has a usable default so a bare invocation against a local daemon
// works without a file.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	DataDir string        `yaml:"dataDir"`
	Tracker TrackerConfig `yaml:"tracker"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// StoreConfig selects and configures the object store backend.
type StoreConfig struct {
	// Backend is "zdb" (an append-log daemon speaking the Redis wire
	// protocol) or "memory".
	Backend   string `yaml:"backend"`
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
	// EncryptionKey, when set, is a 64-char hex AES-256 key; every blob
	// is transparently encrypted at rest.
	EncryptionKey string `yaml:"encryptionKey"`
}

// TrackerConfig bounds the peer cache. TTL is expressed in seconds since
// yaml.v3 has no native duration parsing.
type TrackerConfig struct {
	Capacity     int    `yaml:"capacity"`
	TTLSeconds   int    `yaml:"ttlSeconds"`
	SnapshotPath string `yaml:"snapshotPath"`
}

// TTL returns the configured cache entry lifetime.
func (t TrackerConfig) TTL() time.Duration {
	return time.Duration(t.TTLSeconds) * time.Second
}

// MetricsConfig configures the metrics/health listener.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func defaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend:   "zdb",
			Addr:      "localhost:9900",
			Namespace: "tagdb",
		},
		DataDir: "/var/lib/tagdb",
		Tracker: TrackerConfig{
			Capacity:   256,
			TTLSeconds: 300,
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
		},
	}
}

// loadConfig reads the YAML file named by the persistent --config flag,
// or returns defaults when the flag is unset.
func loadConfig() (Config, error) {
	path, _ := rootCmd.PersistentFlags().GetString("config")
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// openStore builds the configured object store backend under namespace,
// wrapping it with encryption when a key is configured.
func openStore(cfg Config, namespace string) (objectstore.Store, error) {
	var backend objectstore.Store
	switch cfg.Store.Backend {
	case "", "zdb":
		b, err := objectstore.NewRedisBackend(objectstore.RedisConfig{
			Addr:      cfg.Store.Addr,
			Namespace: namespace,
		})
		if err != nil {
			return nil, err
		}
		backend = b
	case "memory":
		backend = objectstore.NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Store.EncryptionKey == "" {
		return backend, nil
	}
	key, err := hex.DecodeString(cfg.Store.EncryptionKey)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	enc, err := objectstore.NewEncryptedBackend(backend, key)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return enc, nil
}

// namespaces used by subcommands: documents live under the configured
// namespace, ACL records and per-collection meta logs under suffixes of it.
func dataNamespace(cfg Config) string { return cfg.Store.Namespace }
func aclNamespace(cfg Config) string  { return cfg.Store.Namespace + "-acl" }
func metaNamespace(cfg Config, collection string) string {
	return cfg.Store.Namespace + "-meta-" + collection
}
