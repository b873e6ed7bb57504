// Package config loads settings of the flatkv command from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kjk/flatkv/backend"
	"github.com/kjk/flatkv/backup"
	"github.com/kjk/flatkv/store"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in current directory when --config is not given
const DefaultFileName = ".flatkv.yaml"

type BackupConfig struct {
	// none, gzip, zstd or brotli
	Compression string `yaml:"compression"`
	// local directory for snapshots
	Dir string `yaml:"dir"`
	// if set, snapshots are uploaded to S3-compatible storage instead of Dir
	Minio *backup.MinioConfig `yaml:"minio,omitempty"`
}

type Config struct {
	// deferred or immediate
	FlushMode string `yaml:"flush_mode"`
	// 0 disables automatic flushing in deferred mode
	AutoFlushThreshold int `yaml:"auto_flush_threshold"`
	// pattern of temp files used when replacing documents
	TempPattern string `yaml:"temp_pattern"`
	// directory for log files, no file logging if empty
	LogDir  string `yaml:"log_dir"`
	Verbose bool   `yaml:"verbose"`

	// document paths used by script runner for "json" and "xml" commands
	ScriptJSON string `yaml:"script_json"`
	ScriptXML  string `yaml:"script_xml"`
	// where script results are written, stdout if empty
	ScriptResults string `yaml:"script_results"`

	Backup BackupConfig `yaml:"backup"`
}

func DefaultConfig() *Config {
	return &Config{
		FlushMode:          store.Deferred.String(),
		AutoFlushThreshold: store.DefaultAutoFlushThreshold,
		TempPattern:        backend.DefaultTempPattern,
		ScriptJSON:         "test.json",
		ScriptXML:          "test.xml",
		Backup: BackupConfig{
			Compression: string(backup.Zstd),
			Dir:         "backups",
		},
	}
}

// Load reads config from a YAML file. Missing file means default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config '%s': %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	_, err := c.StoreOptions()
	if err != nil {
		return err
	}
	_, err = backup.ParseMethod(c.Backup.Compression)
	return err
}

// StoreOptions converts config to options for store.Open
func (c *Config) StoreOptions() (*store.Options, error) {
	mode, err := store.ParseFlushMode(c.FlushMode)
	if err != nil {
		return nil, err
	}
	opts := &store.Options{
		FlushMode:          mode,
		AutoFlushThreshold: c.AutoFlushThreshold,
		TempPattern:        c.TempPattern,
	}
	if err = opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
