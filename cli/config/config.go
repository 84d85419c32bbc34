package config

import (
	"fmt"
	"time"
)

// Config represents a seam.yaml configuration file.
// All values are optional and act as defaults for seam serve flags.
// CLI flags always override config values.
type Config struct {
	Trove    TroveConfig    `yaml:"trove"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Session  SessionConfig  `yaml:"session"`
	Writer   WriterConfig   `yaml:"writer"`
	Adapter  AdapterConfig  `yaml:"adapter"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Server   ServerConfig   `yaml:"server"`
}

// TroveConfig holds storage API defaults from the config file.
type TroveConfig struct {
	BaseURL        string            `yaml:"base_url"`
	APIKey         string            `yaml:"api_key"`
	Timeout        Duration          `yaml:"timeout,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	MaxRecordChars int               `yaml:"max_record_chars,omitempty"`
}

// ChunkingConfig holds chunk planning defaults from the config file.
type ChunkingConfig struct {
	MaxChunkChars   int `yaml:"max_chunk_chars,omitempty"`
	MinContentChars int `yaml:"min_content_chars,omitempty"`
}

// SessionConfig holds session registry defaults from the config file.
// TTL eviction is off unless a TTL is set.
type SessionConfig struct {
	TTL           Duration `yaml:"ttl,omitempty"`
	SweepInterval Duration `yaml:"sweep_interval,omitempty"`
}

// WriterConfig selects the segment write strategy.
type WriterConfig struct {
	// Strategy is "sequential" (default) or "parallel".
	Strategy    string `yaml:"strategy,omitempty"`
	Parallelism int    `yaml:"parallelism,omitempty"`
}

// AdapterConfig holds completion event adapter defaults.
type AdapterConfig struct {
	// Type is "webhook", "redis", or empty for no adapter.
	Type    string            `yaml:"type,omitempty"`
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`

	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Channel  string `yaml:"channel,omitempty"`
}

// ArchiveConfig holds local archive defaults.
type ArchiveConfig struct {
	Dir      string `yaml:"dir,omitempty"`
	S3Bucket string `yaml:"s3_bucket,omitempty"`
	S3Prefix string `yaml:"s3_prefix,omitempty"`
}

// ServerConfig holds MCP server defaults.
type ServerConfig struct {
	DisabledTools []string `yaml:"disabled_tools,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate rejects config combinations that cannot be wired.
func (c *Config) Validate() error {
	switch c.Writer.Strategy {
	case "", "sequential", "parallel":
	default:
		return fmt.Errorf("unknown writer strategy %q", c.Writer.Strategy)
	}
	switch c.Adapter.Type {
	case "", "webhook", "redis":
	default:
		return fmt.Errorf("unknown adapter type %q", c.Adapter.Type)
	}
	if c.Adapter.Type == "webhook" && c.Adapter.URL == "" {
		return fmt.Errorf("adapter type webhook requires url")
	}
	if c.Adapter.Type == "redis" && c.Adapter.Addr == "" {
		return fmt.Errorf("adapter type redis requires addr")
	}
	if c.Archive.S3Bucket != "" && c.Archive.Dir == "" {
		return fmt.Errorf("archive s3_bucket requires dir")
	}
	return nil
}
