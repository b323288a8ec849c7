// Package config loads the Hub's static configuration: pool sizing,
// the path name-length limit, destination definitions, and routing
// defaults. Grounded on the teacher's internal/config/config.go
// (YAML load + environment variable overrides), trimmed to this
// module's much smaller configuration surface.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// PoolConfig sizes the sample store's two allocation pools (spec.md
// §4.1's "Allocation policy"). Pool tuning policy itself is out of
// scope (spec.md Non-goals); this is just the static sizing knob the
// teacher exposes for its own worker/queue pools, applied here to
// sample pools instead.
type PoolConfig struct {
	NonStringCapacity int `yaml:"non_string_capacity"`
	LargeStringBlocks int `yaml:"large_string_blocks"`
}

// DestinationConfig names and configures one entry in the routing
// table: exactly one of Kafka/Elastic/LocalFile should be set.
type DestinationConfig struct {
	Name      string           `yaml:"name"`
	Kafka     *KafkaConfig     `yaml:"kafka,omitempty"`
	Elastic   *ElasticConfig   `yaml:"elastic,omitempty"`
	LocalFile *LocalFileConfig `yaml:"local_file,omitempty"`
}

// KafkaConfig mirrors internal/destination.KafkaConfig's YAML shape.
type KafkaConfig struct {
	Brokers      []string        `yaml:"brokers"`
	Topic        string          `yaml:"topic"`
	Compression  string          `yaml:"compression"`
	RequiredAcks int16           `yaml:"required_acks"`
	QueueSize    int             `yaml:"queue_size"`
	Auth         KafkaAuthConfig `yaml:"auth"`
}

// KafkaAuthConfig mirrors internal/destination.KafkaAuthConfig's YAML
// shape: SASL credentials for a Kafka destination (PLAIN or
// SCRAM-SHA-256/512), carried over from the teacher's config.Auth.
type KafkaAuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Mechanism string `yaml:"mechanism"`
}

// ElasticConfig mirrors internal/destination.ElasticConfig's YAML shape.
type ElasticConfig struct {
	Hosts       []string `yaml:"hosts"`
	IndexPrefix string   `yaml:"index_prefix"`
	BatchSize   int      `yaml:"batch_size"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
}

// LocalFileConfig mirrors internal/destination.LocalFileConfig's YAML shape.
type LocalFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// RoutingDefaults is the part of configuration eligible for hot
// reload (internal/config.Watcher): which destination new outputs
// bind to absent an explicit admin choice, and default observation
// buffer sizing. Everything else — pool sizes, destination
// definitions themselves — requires a process restart, same as the
// teacher's config does for anything beyond its watched subset. The
// hub does not read these values: cmd/datahubd only logs the archive
// destination on load and the default destination on reload, so they
// do not change how outputs or observations are created.
type RoutingDefaults struct {
	DefaultOutputDestination string `yaml:"default_output_destination"`
	ObservationMaxHot        int    `yaml:"observation_max_hot"`
	ObservationHardCap       int    `yaml:"observation_hard_cap"`
	ObservationArchive       string `yaml:"observation_archive_destination"`
}

// ProducerConfig names a file-tail Input producer to start at launch:
// tail Filename and push each line as a string sample at Path.
type ProducerConfig struct {
	Path     string `yaml:"path"`
	Filename string `yaml:"filename"`
	SeekEnd  bool   `yaml:"seek_end"`
}

// Config is the Hub's full static configuration.
type Config struct {
	NameLimit         int                 `yaml:"name_limit"`
	CommandQueueDepth int                 `yaml:"command_queue_depth"`
	Pool              PoolConfig          `yaml:"pool"`
	Destinations      []DestinationConfig `yaml:"destinations"`
	Routing           RoutingDefaults     `yaml:"routing"`
	Producers         []ProducerConfig    `yaml:"producers"`
}

// Load reads and parses a YAML configuration file, applying defaults
// for anything left zero and then environment variable overrides,
// exactly the two-pass shape of the teacher's LoadConfig +
// applyEnvironmentOverrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.NameLimit <= 0 {
		cfg.NameLimit = 64
	}
	if cfg.CommandQueueDepth <= 0 {
		cfg.CommandQueueDepth = 1024
	}
	if cfg.Pool.NonStringCapacity <= 0 {
		cfg.Pool.NonStringCapacity = 4096
	}
	if cfg.Pool.LargeStringBlocks <= 0 {
		cfg.Pool.LargeStringBlocks = 64
	}
	if cfg.Routing.ObservationMaxHot <= 0 {
		cfg.Routing.ObservationMaxHot = 256
	}
	if cfg.Routing.ObservationHardCap <= 0 {
		cfg.Routing.ObservationHardCap = 4096
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Routing.DefaultOutputDestination = getEnvString("DATAHUB_DEFAULT_DESTINATION", cfg.Routing.DefaultOutputDestination)
	cfg.Pool.NonStringCapacity = getEnvInt("DATAHUB_NONSTRING_POOL_CAPACITY", cfg.Pool.NonStringCapacity)
	cfg.Pool.LargeStringBlocks = getEnvInt("DATAHUB_LARGE_STRING_BLOCKS", cfg.Pool.LargeStringBlocks)
}

func getEnvString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}
