// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vgassen/lexharvest/internal/harvest"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	SRU        SRUConfig        `mapstructure:"sru"`
	Harvest    HarvestConfig    `mapstructure:"harvest"`
	Content    ContentConfig    `mapstructure:"content"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Sink       SinkConfig       `mapstructure:"sink"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SRUConfig describes the catalog search endpoint.
type SRUConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	Connection     string        `mapstructure:"connection"`
	Version        string        `mapstructure:"version"`
	Query          string        `mapstructure:"query"`
	HTTPAccept     string        `mapstructure:"http_accept"`
	PageSize       int           `mapstructure:"page_size"`
	RecordPath     string        `mapstructure:"record_path"`
	IdentifierPath string        `mapstructure:"identifier_path"`
	TotalPath      string        `mapstructure:"total_path"`
	RequestDelay   time.Duration `mapstructure:"request_delay"`
	PageTimeout    time.Duration `mapstructure:"page_timeout"`
}

// HarvestConfig governs the pipeline run.
type HarvestConfig struct {
	BatchSize        int           `mapstructure:"batch_size"`
	MinContentLength int           `mapstructure:"min_content_length"`
	FetchDelay       time.Duration `mapstructure:"fetch_delay"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	FetchConcurrency int           `mapstructure:"fetch_concurrency"`
	RetryAttempts    int           `mapstructure:"retry_attempts"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	SkipPolicy       string        `mapstructure:"skip_policy"`
	FailurePolicy    string        `mapstructure:"failure_policy"`
	SourceLabel      string        `mapstructure:"source_label"`
}

// ContentConfig describes the per-identifier content source.
type ContentConfig struct {
	URLTemplate string `mapstructure:"url_template"`
	UserAgent   string `mapstructure:"user_agent"`
}

// CheckpointConfig selects and configures the resolved-set store.
type CheckpointConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`
}

// SinkConfig selects and configures the dataset sink.
type SinkConfig struct {
	Backend  string        `mapstructure:"backend"`
	Endpoint string        `mapstructure:"endpoint"`
	Repo     string        `mapstructure:"repo"`
	Split    string        `mapstructure:"split"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ArchiveConfig selects the raw-document archive backend.
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// NotifyConfig selects the batch-event notifier backend.
type NotifyConfig struct {
	Backend   string `mapstructure:"backend"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ServerConfig controls the optional ops HTTP server. An empty address
// disables the server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sru.endpoint", "https://zoekservice.overheid.nl/sru/Search")
	v.SetDefault("sru.connection", "eur")
	v.SetDefault("sru.version", "2.0")
	v.SetDefault("sru.query", "cql.allRecords=1")
	v.SetDefault("sru.http_accept", "application/xml")
	v.SetDefault("sru.page_size", 100)
	v.SetDefault("sru.record_path", "//*[local-name()='record']")
	v.SetDefault("sru.identifier_path", ".//*[local-name()='identifier']")
	v.SetDefault("sru.total_path", "//*[local-name()='numberOfRecords']")
	v.SetDefault("sru.request_delay", "1s")
	v.SetDefault("sru.page_timeout", "30s")

	v.SetDefault("harvest.batch_size", 100)
	v.SetDefault("harvest.min_content_length", 100)
	v.SetDefault("harvest.fetch_delay", "1s")
	v.SetDefault("harvest.fetch_timeout", "30s")
	v.SetDefault("harvest.fetch_concurrency", 1)
	v.SetDefault("harvest.retry_attempts", 3)
	v.SetDefault("harvest.retry_delay", "2s")
	v.SetDefault("harvest.skip_policy", string(harvest.SkipPermanent))
	v.SetDefault("harvest.failure_policy", string(harvest.FailAbort))
	v.SetDefault("harvest.source_label", "EU richtlijnen")

	v.SetDefault("content.url_template", "https://eur-lex.europa.eu/legal-content/NL/TXT/HTML/?uri=CELEX:%s")
	v.SetDefault("content.user_agent", "lexharvest/1.0 (+https://github.com/vgassen/lexharvest)")

	v.SetDefault("checkpoint.backend", "file")
	v.SetDefault("checkpoint.path", "data/processed_celex.json")
	v.SetDefault("checkpoint.table", "resolved_identifiers")

	v.SetDefault("sink.backend", "hub")
	v.SetDefault("sink.split", "train")
	v.SetDefault("sink.timeout", "120s")

	v.SetDefault("archive.backend", "noop")
	v.SetDefault("archive.prefix", "raw")

	v.SetDefault("notify.backend", "noop")

	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits. Deeper
// validation of pipeline knobs happens in the component configs built
// from this one.
func (c Config) Validate() error {
	if c.SRU.Endpoint == "" {
		return fmt.Errorf("sru.endpoint must be set")
	}
	if c.SRU.PageSize <= 0 {
		return fmt.Errorf("sru.page_size must be > 0")
	}
	if c.SRU.IdentifierPath == "" {
		return fmt.Errorf("sru.identifier_path must be set")
	}
	if c.Harvest.BatchSize <= 0 {
		return fmt.Errorf("harvest.batch_size must be > 0")
	}
	if c.Harvest.FetchConcurrency <= 0 {
		return fmt.Errorf("harvest.fetch_concurrency must be > 0")
	}
	switch c.Checkpoint.Backend {
	case "file":
		if c.Checkpoint.Path == "" {
			return fmt.Errorf("checkpoint.path must be set for the file backend")
		}
	case "memory":
	case "postgres":
		if c.Checkpoint.DSN == "" {
			return fmt.Errorf("checkpoint.dsn must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown checkpoint backend: %s", c.Checkpoint.Backend)
	}
	switch c.Sink.Backend {
	case "hub":
		if c.Sink.Endpoint == "" {
			return fmt.Errorf("sink.endpoint must be set for the hub backend")
		}
		if c.Sink.Repo == "" {
			return fmt.Errorf("sink.repo must be set for the hub backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown sink backend: %s", c.Sink.Backend)
	}
	switch c.Archive.Backend {
	case "noop", "memory":
	case "local":
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir must be set for the local backend")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown archive backend: %s", c.Archive.Backend)
	}
	switch c.Notify.Backend {
	case "noop", "memory":
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.Topic == "" {
			return fmt.Errorf("notify.project_id and notify.topic must be set for the pubsub backend")
		}
	default:
		return fmt.Errorf("unknown notify backend: %s", c.Notify.Backend)
	}
	return nil
}
