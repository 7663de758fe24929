// Package config loads and validates DIRBS Core configuration, matching
// the teacher's Config.Load/DefaultConfig/Validate trio
// (internal/config/config_test.go in the teacher repo) generalized from
// its webhook/SLM domain to DIRBS Core's import/classify/listgen domain.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dirbs/dirbs-core/internal/errs"
	"github.com/dirbs/dirbs-core/internal/logging"
)

// DBConfig holds Postgres connection settings, overridable by the
// DIRBS_DB_* environment variables (spec.md §6).
type DBConfig struct {
	Database string `yaml:"database"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	MaxDBConnections int           `yaml:"max_db_connections" validate:"gte=1,lte=32"`
	ConnMaxLifetime  time.Duration `yaml:"conn_max_lifetime"`
}

// StatsdConfig holds metrics sink settings, overridable by DIRBS_STATSD_*
// and DIRBS_ENV (spec.md §6). The sink itself is an external collaborator
// (spec.md §1); this struct only carries where to send samples.
type StatsdConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Env  string `yaml:"env"`
}

// KafkaConfig holds the whitelist distributor's broker settings
// (spec.md §6). The distributor itself is external; DIRBS Core only
// needs these to know where historic_whitelist change notifications
// should eventually be forwarded.
type KafkaConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Topic          string `yaml:"topic"`
	Protocol       string `yaml:"protocol" validate:"omitempty,oneof=PLAINTEXT SSL"`
	ClientCertPath string `yaml:"client_cert"`
	ClientKeyPath  string `yaml:"client_key"`
	CARootCertPath string `yaml:"caroot_cert"`
}

// MultiprocessingConfig bounds the worker/connection pools (spec.md §5).
type MultiprocessingConfig struct {
	MaxLocalCPUs int `yaml:"max_local_cpus" validate:"gte=0"`
}

// RegionConfig describes the country's operator/MCC-MNC ownership used
// by the threshold guard's out-of-prefix check (spec.md §4.5).
type RegionConfig struct {
	CountryCode string              `yaml:"country_code"`
	Operators   map[string][]string `yaml:"operators"` // operator_id -> ["mcc+mnc", ...]
}

// ImportSizeThresholds holds the historic size-variation guard's
// parameters (spec.md §4.5).
type ImportSizeThresholds struct {
	ImportSizeVariationAbsolute int     `yaml:"import_size_variation_absolute" validate:"gte=0"`
	ImportSizeVariationPercent  float64 `yaml:"import_size_variation_percent" validate:"gte=0,lte=1"`
}

// ListGenerationConfig holds listgen-wide settings (spec.md §4.8).
type ListGenerationConfig struct {
	LookbackDays                             int     `yaml:"lookback_days" validate:"gte=0"`
	RestrictExceptionsListToBlacklistedIMEIs bool    `yaml:"restrict_exceptions_list_to_blacklisted_imeis"`
	IncludeBarredIMEIsInExceptionsList       bool    `yaml:"include_barred_imeis_in_exceptions_list"`
	MaxSanityDeltaFraction                   float64 `yaml:"max_sanity_delta_fraction" validate:"gte=0"`
}

// AmnestyConfig describes an operator-scoped pardon window (glossary:
// Amnesty).
type AmnestyConfig struct {
	Enabled        bool      `yaml:"enabled"`
	AmnestyCutoff  time.Time `yaml:"amnesty_cutoff"`
	AmnestyEndDate time.Time `yaml:"amnesty_end_date"`
}

// RetentionConfig bounds how long closed/historic data survives before
// `dirbs prune` deletes it, generalized from the original implementation's
// data_retention config block (original_source/src/dirbs/config/__init__.py
// references a RetentionConfig not carried into this pack; the fields
// below are this port's own retention policy, not a direct port).
type RetentionConfig struct {
	MonthsRetention      int `yaml:"months_retention" validate:"gte=1"`
	JobMetadataRetention int `yaml:"job_metadata_retention_months" validate:"gte=1"`
}

// Config is the root configuration document.
type Config struct {
	DB               DBConfig              `yaml:"db"`
	Statsd           StatsdConfig          `yaml:"statsd"`
	Kafka            KafkaConfig           `yaml:"kafka"`
	Logging          logging.Config        `yaml:"logging"`
	Multiprocessing  MultiprocessingConfig `yaml:"multiprocessing"`
	Region           RegionConfig          `yaml:"region"`
	ImportThresholds ImportSizeThresholds  `yaml:"import_thresholds"`
	ListGeneration   ListGenerationConfig  `yaml:"list_generation"`
	Amnesty          AmnestyConfig         `yaml:"amnesty"`
	Retention        RetentionConfig       `yaml:"data_retention"`
	Conditions       []ConditionConfig     `yaml:"conditions"`
}

// DefaultConfig returns the built-in defaults, applied before a config
// file is parsed.
func DefaultConfig() *Config {
	return &Config{
		DB: DBConfig{
			Database:         "dirbs",
			Host:             "localhost",
			Port:             5432,
			User:             "dirbs_core_power_user",
			MaxDBConnections: 4,
			ConnMaxLifetime:  5 * time.Minute,
		},
		Statsd: StatsdConfig{Host: "localhost", Port: 8125, Env: "dev"},
		Logging: logging.Config{Level: "info", Format: "json"},
		Multiprocessing: MultiprocessingConfig{
			MaxLocalCPUs: 0, // 0 means "half the host CPUs, capped at CPUs-1" — resolved at runtime
		},
		ImportThresholds: ImportSizeThresholds{
			ImportSizeVariationAbsolute: 1000,
			ImportSizeVariationPercent:  0.10,
		},
		ListGeneration: ListGenerationConfig{
			LookbackDays:           120,
			MaxSanityDeltaFraction: 0.25,
		},
		Retention: RetentionConfig{
			MonthsRetention:      18,
			JobMetadataRetention: 18,
		},
	}
}

// searchPaths is consulted, in order, when DIRBS_CONFIG_FILE is unset.
func searchPaths() []string {
	paths := []string{"/opt/dirbs/etc/config.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append([]string{filepath.Join(home, ".dirbs.yml")}, paths...)
	}
	return paths
}

// ResolvePath returns the config file path to load: DIRBS_CONFIG_FILE if
// set, else the first existing default search path, else "".
func ResolvePath() string {
	if p := os.Getenv("DIRBS_CONFIG_FILE"); p != "" {
		return p
	}
	for _, p := range searchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads and parses the YAML config file at path over the built-in
// defaults, applies environment overrides, and validates the result.
// An empty path is not an error: defaults plus environment overrides
// are used as-is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.NewConfigError(fmt.Sprintf("read config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errs.NewConfigError(fmt.Sprintf("parse config file %s", path), err)
		}
	}

	cfg.LoadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, errs.NewConfigError("validate config", err)
	}
	return cfg, nil
}

// LoadFromEnv overlays environment variables onto an already-parsed
// config, matching the teacher's LoadFromEnv semantics: invalid values
// are silently ignored, keeping whatever was already set.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("DIRBS_DB_DATABASE"); v != "" {
		c.DB.Database = v
	}
	if v := os.Getenv("DIRBS_DB_HOST"); v != "" {
		c.DB.Host = v
	}
	if v := os.Getenv("DIRBS_DB_PORT"); v != "" {
		if port, err := parsePort(v); err == nil {
			c.DB.Port = port
		}
	}
	if v := os.Getenv("DIRBS_DB_USER"); v != "" {
		c.DB.User = v
	}
	if v := os.Getenv("DIRBS_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
	if v := os.Getenv("DIRBS_STATSD_HOST"); v != "" {
		c.Statsd.Host = v
	}
	if v := os.Getenv("DIRBS_STATSD_PORT"); v != "" {
		if port, err := parsePort(v); err == nil {
			c.Statsd.Port = port
		}
	}
	if v := os.Getenv("DIRBS_ENV"); v != "" {
		c.Statsd.Env = v
	}
	if v := os.Getenv("DIRBS_KAFKA_HOST"); v != "" {
		c.Kafka.Host = v
	}
	if v := os.Getenv("DIRBS_KAFKA_PORT"); v != "" {
		if port, err := parsePort(v); err == nil {
			c.Kafka.Port = port
		}
	}
	if v := os.Getenv("DIRBS_KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("DIRBS_KAFKA_PROTOCOL"); v != "" {
		c.Kafka.Protocol = v
	}
	if v := os.Getenv("DIRBS_KAFKA_CLIENT_CERT"); v != "" {
		c.Kafka.ClientCertPath = v
	}
	if v := os.Getenv("DIRBS_KAFKA_CLIENT_KEY"); v != "" {
		c.Kafka.ClientKeyPath = v
	}
	if v := os.Getenv("DIRBS_KAFKA_CAROOT_CERT"); v != "" {
		c.Kafka.CARootCertPath = v
	}
}

func parsePort(v string) (int, error) {
	var port int
	_, err := fmt.Sscanf(v, "%d", &port)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", v)
	}
	return port, nil
}

var validate = validator.New()

// Validate checks struct-tag invariants plus the cross-field invariants
// that validator tags cannot express (condition reason charset, operator
// MCC+MNC prefix disjointness).
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for _, cond := range c.Conditions {
		if err := cond.validate(); err != nil {
			return err
		}
	}
	return validateDisjointPrefixes(c.Region.Operators)
}

func validateDisjointPrefixes(operators map[string][]string) error {
	seen := map[string]string{}
	for op, prefixes := range operators {
		for _, prefix := range prefixes {
			for existingPrefix, existingOp := range seen {
				if prefixStartsWith(prefix, existingPrefix) || prefixStartsWith(existingPrefix, prefix) {
					return fmt.Errorf("operator %s prefix %s overlaps operator %s prefix %s",
						op, prefix, existingOp, existingPrefix)
				}
			}
			seen[prefix] = op
		}
	}
	return nil
}

func prefixStartsWith(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
