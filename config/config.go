// Package config holds the run configuration of the kernelbp command:
// defaults, a YAML (or JSON) file, then KERNELBP_* environment overrides,
// then validation. Command-line flags are applied on top by the caller.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/kernelbp/gas"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the complete run configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after Validate.
type Config struct {
	// Graph is the graph-definition file. Required.
	Graph string `json:"graph" yaml:"graph"`

	// Output receives "source target beta..." lines. Empty disables the text output.
	Output string `json:"output" yaml:"output"`

	// GraphDir resolves relative matrix paths. Empty means the graph file's directory.
	GraphDir string `json:"graph_dir" yaml:"graph_dir"`

	// BetaEpsilon is the convergence tolerance on ‖β_new − β_old‖₂.
	BetaEpsilon float64 `json:"beta_epsilon" yaml:"beta_epsilon"`

	// Engine is the execution mode, "sync" or "async". Only "sync" runs.
	Engine string `json:"engine" yaml:"engine"`

	// Partitions is the number of vertex partitions (parallel workers).
	Partitions int `json:"partitions" yaml:"partitions"`

	// MaxSupersteps bounds the run; 0 means unbounded.
	MaxSupersteps int `json:"max_supersteps" yaml:"max_supersteps"`

	// Timeout bounds the run's wall time; 0 means unbounded.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Codec gob-encodes partial gathers shipped between partitions.
	Codec bool `json:"codec" yaml:"codec"`

	Metrics     MetricsConfig     `json:"metrics" yaml:"metrics"`
	Store       StoreConfig       `json:"store" yaml:"store"`
	Log         LogConfig         `json:"log" yaml:"log"`
	Aggregation AggregationConfig `json:"aggregation" yaml:"aggregation"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of /metrics, e.g. ":9090". Empty disables the server.
	Addr string `json:"addr" yaml:"addr"`

	// Enabled toggles engine metric recording.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// StoreConfig controls the BadgerDB result store.
type StoreConfig struct {
	// Path is the database directory. Empty with InMemory false disables the store.
	Path     string `json:"path" yaml:"path"`
	InMemory bool   `json:"in_memory" yaml:"in_memory"`
}

// Enabled reports whether a result store is configured.
func (s StoreConfig) Enabled() bool { return s.InMemory || s.Path != "" }

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// AggregationConfig controls the summary aggregations.
type AggregationConfig struct {
	// EverySupersteps runs the aggregations every N supersteps; 0 runs them only at halt.
	EverySupersteps int `json:"every_supersteps" yaml:"every_supersteps"`

	// Interval additionally runs them on a wall-clock ticker; 0 disables it.
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		BetaEpsilon: 1e-6,
		Engine:      string(gas.ModeSync),
		Partitions:  1,
		Codec:       false,
		Metrics:     MetricsConfig{Enabled: true},
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Load returns defaults overlaid with the file at path (JSON for a .json
// extension, YAML otherwise) and KERNELBP_* environment variables, then validates. An empty
// path skips the file. The result may still lack Graph when flags are
// expected to supply it; call Validate again after applying them.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.validateValues(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// loadFile decodes path as JSON when its extension is .json and as YAML
// otherwise.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err = json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parse JSON %s: %w", path, err)
		}
		return nil
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse YAML %s: %w", path, err)
	}

	return nil
}

// applyEnv overrides cfg from KERNELBP_* variables. Malformed numbers are errors.
func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"KERNELBP_GRAPH":        &cfg.Graph,
		"KERNELBP_OUTPUT":       &cfg.Output,
		"KERNELBP_GRAPH_DIR":    &cfg.GraphDir,
		"KERNELBP_ENGINE":       &cfg.Engine,
		"KERNELBP_METRICS_ADDR": &cfg.Metrics.Addr,
		"KERNELBP_STORE_PATH":   &cfg.Store.Path,
		"KERNELBP_LOG_LEVEL":    &cfg.Log.Level,
		"KERNELBP_LOG_FORMAT":   &cfg.Log.Format,
	}
	for name, dst := range str {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"KERNELBP_PARTITIONS":     &cfg.Partitions,
		"KERNELBP_MAX_SUPERSTEPS": &cfg.MaxSupersteps,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s=%q: %w", name, v, ErrInvalid)
			}
			*dst = i
		}
	}

	if v := os.Getenv("KERNELBP_BETA_EPSILON"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: KERNELBP_BETA_EPSILON=%q: %w", v, ErrInvalid)
		}
		cfg.BetaEpsilon = f
	}
	if v := os.Getenv("KERNELBP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: KERNELBP_TIMEOUT=%q: %w", v, ErrInvalid)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("KERNELBP_CODEC"); v != "" {
		cfg.Codec = v == "true" || v == "1"
	}

	return nil
}

// Validate checks the configuration is complete and consistent.
func (c Config) Validate() error {
	if c.Graph == "" {
		return fmt.Errorf("config: graph is required: %w", ErrInvalid)
	}

	return c.validateValues()
}

func (c Config) validateValues() error {
	if c.BetaEpsilon < 0 || math.IsNaN(c.BetaEpsilon) || math.IsInf(c.BetaEpsilon, 0) {
		return fmt.Errorf("config: beta_epsilon must be finite and >= 0, got %v: %w", c.BetaEpsilon, ErrInvalid)
	}
	if _, err := gas.ParseMode(c.Engine); err != nil {
		return fmt.Errorf("config: engine %q: %w", c.Engine, ErrInvalid)
	}
	if c.Partitions < 1 {
		return fmt.Errorf("config: partitions must be >= 1, got %d: %w", c.Partitions, ErrInvalid)
	}
	if c.MaxSupersteps < 0 {
		return fmt.Errorf("config: max_supersteps must be >= 0: %w", ErrInvalid)
	}
	if c.Timeout < 0 || c.Aggregation.Interval < 0 || c.Aggregation.EverySupersteps < 0 {
		return fmt.Errorf("config: durations and intervals must be >= 0: %w", ErrInvalid)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log format %q: %w", c.Log.Format, ErrInvalid)
	}

	return nil
}

// SlogLevel maps Level to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("config: log level %q: %w", l.Level, ErrInvalid)
	}

	return lvl, nil
}
