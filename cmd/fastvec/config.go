package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the fastvec configuration file (~/.config/fastvec/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	Mode    string   `yaml:"mode"`
	Loss    string   `yaml:"loss"`
	Dim     *int64   `yaml:"dim"`
	Window  *int64   `yaml:"ws"`
	Epochs  *int64   `yaml:"epoch"`
	Neg     *int64   `yaml:"neg"`
	LR      *float64 `yaml:"lr"`
	Threads *int64   `yaml:"thread"`
	Seed    *int64   `yaml:"seed"`
	Minn    *int64   `yaml:"minn"`
	Maxn    *int64   `yaml:"maxn"`
	Bucket  *int64   `yaml:"bucket"`

	OutDir string `yaml:"out_dir"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`
	CacheSize     *int64 `yaml:"cache_size"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "fastvec", "config.yaml")
}

// LoadConfig reads path, or the default location when path is empty. A
// missing default file yields a zero Config; a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
	}
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// applyLoggingConfig fills logging settings that were not set on the command line.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyTrainConfig applies config file defaults to o when the corresponding
// flag was not explicitly set.
func applyTrainConfig(c *cli.Command, cfg Config, o *trainOptions) {
	if cfg.Mode != "" && !c.IsSet("mode") {
		o.mode = cfg.Mode
	}
	if cfg.Loss != "" && !c.IsSet("loss") {
		o.loss = cfg.Loss
	}
	setInt := func(dst *int64, v *int64, name string) {
		if v != nil && !c.IsSet(name) {
			*dst = *v
		}
	}
	setInt(&o.dim, cfg.Dim, "dim")
	setInt(&o.window, cfg.Window, "ws")
	setInt(&o.epochs, cfg.Epochs, "epoch")
	setInt(&o.neg, cfg.Neg, "neg")
	setInt(&o.threads, cfg.Threads, "thread")
	setInt(&o.seed, cfg.Seed, "seed")
	setInt(&o.minn, cfg.Minn, "minn")
	setInt(&o.maxn, cfg.Maxn, "maxn")
	setInt(&o.bucket, cfg.Bucket, "bucket")
	if cfg.LR != nil && !c.IsSet("lr") {
		o.lr = *cfg.LR
	}
	if cfg.OutDir != "" && os.Getenv(envOutDir) == "" {
		_ = os.Setenv(envOutDir, cfg.OutDir)
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, cacheSize *int64) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.CacheSize != nil && !c.IsSet("cache-size") {
		*cacheSize = *cfg.CacheSize
	}
}
