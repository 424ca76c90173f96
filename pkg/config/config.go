// Package config loads the node configuration file cmd/xapiand reads
// at startup, following the teacher's gopkg.in/yaml.v3-backed config
// loading (pkg/log.Config's plain-struct-plus-defaults shape, but
// sourced from a file on disk instead of literal construction).
package config

import (
	"os"
	"time"

	"github.com/dubalu/xapiand-go/pkg/endpoint"
	"github.com/dubalu/xapiand-go/pkg/log"
	"github.com/dubalu/xapiand-go/pkg/raft"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of a node's configuration file. Every
// field has a zero value that Default fills in, so a partial file
// (or no file at all, for "xapiand serve" run with bare flags) is
// valid.
type Config struct {
	Node struct {
		Name    string `yaml:"name"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"node"`

	Cluster struct {
		Name string `yaml:"name"`
		// Multicast is the group:port raft.NewUDPTransport joins
		// (spec.md §6 "Wire — UDP Raft packets").
		Multicast string `yaml:"multicast"`
		// Interface names the network interface to bind the multicast
		// socket to; empty picks the system default route.
		Interface string `yaml:"interface"`
	} `yaml:"cluster"`

	Listen struct {
		Address    string `yaml:"address"`
		HTTPPort   int    `yaml:"http_port"`
		BinaryPort int    `yaml:"binary_port"`
	} `yaml:"listen"`

	Pool struct {
		Quota                  int `yaml:"quota"`
		CleanupIntervalSeconds int `yaml:"cleanup_interval_seconds"`
		CleanupMaxIdleSeconds  int `yaml:"cleanup_max_idle_seconds"`
	} `yaml:"pool"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
}

// Default returns a Config with every field set to its documented
// default, suitable for a single-node development run.
func Default() *Config {
	cfg := &Config{}
	cfg.Node.Name = "node1"
	cfg.Node.DataDir = "./data"
	cfg.Cluster.Name = "xapiand"
	cfg.Cluster.Multicast = "239.10.10.10:9191"
	cfg.Listen.Address = "127.0.0.1"
	cfg.Listen.HTTPPort = 8880
	cfg.Listen.BinaryPort = endpoint.DefaultBinaryPort
	cfg.Pool.Quota = 64
	cfg.Pool.CleanupIntervalSeconds = 60
	cfg.Pool.CleanupMaxIdleSeconds = 600
	cfg.Log.Level = "info"
	return cfg
}

// Load reads and parses the YAML file at path over Default, so any
// field the file omits keeps its default.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Self returns the raft.Node descriptor this config describes.
func (c *Config) Self() raft.Node {
	return raft.Node{
		Name:       c.Node.Name,
		Address:    c.Listen.Address,
		HTTPPort:   c.Listen.HTTPPort,
		BinaryPort: c.Listen.BinaryPort,
	}
}

// LogConfig translates the Log section into a log.Config.
func (c *Config) LogConfig() log.Config {
	level := log.InfoLevel
	switch c.Log.Level {
	case "debug":
		level = log.DebugLevel
	case "warn":
		level = log.WarnLevel
	case "error":
		level = log.ErrorLevel
	}
	return log.Config{Level: level, JSONOutput: c.Log.JSON}
}

// CleanupInterval and CleanupMaxIdle translate the Pool section's
// second counts into durations for cluster.Config.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Pool.CleanupIntervalSeconds) * time.Second
}

func (c *Config) CleanupMaxIdle() time.Duration {
	return time.Duration(c.Pool.CleanupMaxIdleSeconds) * time.Second
}
