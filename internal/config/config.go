package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/emberdb/ember/internal/log"
)

// Config is the engine configuration. Zero values are filled in by
// DefaultConfig; Validate rejects combinations the engine cannot run with.
type Config struct {
	Log log.Config `mapstructure:"log"`

	Storage struct {
		// ChunkSize is the maximum number of rows per chunk.
		ChunkSize int `mapstructure:"chunk_size"`
	} `mapstructure:"storage"`

	Scheduler struct {
		// NumaNodes overrides the detected node count. 0 means autodetect.
		NumaNodes int `mapstructure:"numa_nodes"`
		// CPUsPerNode overrides the detected CPUs per node. 0 means autodetect.
		CPUsPerNode int `mapstructure:"cpus_per_node"`
		// PinWorkers controls best-effort CPU affinity for workers.
		PinWorkers bool `mapstructure:"pin_workers"`
	} `mapstructure:"scheduler"`

	Optimizer struct {
		// MaxIterations bounds the fixpoint loop.
		MaxIterations int `mapstructure:"max_iterations"`
		// IndexScanSelectivity is the maximum selectivity at which a
		// predicate is still routed through an index.
		IndexScanSelectivity float64 `mapstructure:"index_scan_selectivity"`
	} `mapstructure:"optimizer"`
}

// DefaultConfig returns the configuration the engine runs with when no file
// is given.
func DefaultConfig() *Config {
	cfg := &Config{Log: log.DefaultConfig()}
	cfg.Storage.ChunkSize = 65536
	cfg.Scheduler.PinWorkers = true
	cfg.Optimizer.MaxIterations = 10
	cfg.Optimizer.IndexScanSelectivity = 0.01
	return cfg
}

// LoadConfig reads a YAML config file and merges it over the defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Storage.ChunkSize <= 0 {
		return fmt.Errorf("storage.chunk_size must be positive, got %d", c.Storage.ChunkSize)
	}
	if c.Scheduler.NumaNodes < 0 {
		return fmt.Errorf("scheduler.numa_nodes must not be negative, got %d", c.Scheduler.NumaNodes)
	}
	if c.Scheduler.CPUsPerNode < 0 {
		return fmt.Errorf("scheduler.cpus_per_node must not be negative, got %d", c.Scheduler.CPUsPerNode)
	}
	if c.Optimizer.MaxIterations <= 0 {
		return fmt.Errorf("optimizer.max_iterations must be positive, got %d", c.Optimizer.MaxIterations)
	}
	if c.Optimizer.IndexScanSelectivity <= 0 || c.Optimizer.IndexScanSelectivity > 1 {
		return fmt.Errorf("optimizer.index_scan_selectivity must be in (0, 1], got %g", c.Optimizer.IndexScanSelectivity)
	}
	return nil
}
