package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the fxprep configuration file
// (~/.config/fxprep/config.yaml). Numeric fields are pointers so "not set"
// stays distinguishable from zero values.
type Config struct {
	DataDir    string `yaml:"data_dir"`
	Checkpoint string `yaml:"checkpoint"`
	OutDir     string `yaml:"out_dir"`

	// Training defaults
	Epochs       *int64   `yaml:"epochs"`
	BatchSize    *int64   `yaml:"batch_size"`
	LearningRate *float64 `yaml:"learning_rate"`
	Momentum     *float64 `yaml:"momentum"`
	HiddenSize   *int64   `yaml:"hidden_size"`
	Seed         *int64   `yaml:"seed"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "fxprep", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file
// doesn't exist or fails to parse.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// applyCommonConfig applies config file defaults to flags shared across
// commands when the corresponding CLI flag was not explicitly set.
func applyCommonConfig(c *cli.Command, cfg Config) {
	if cfg.DataDir != "" && !c.IsSet("data") {
		dataDir = cfg.DataDir
	}
	if cfg.Checkpoint != "" && !c.IsSet("checkpoint") && !c.IsSet("m") {
		checkpointPath = cfg.Checkpoint
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyTrainConfig applies config file defaults to train command variables.
func applyTrainConfig(c *cli.Command, cfg Config,
	epochs, batchSize *int64, lr, momentum *float64, hidden, seed *int64,
) {
	if cfg.Epochs != nil && !c.IsSet("epochs") {
		*epochs = *cfg.Epochs
	}
	if cfg.BatchSize != nil && !c.IsSet("batch-size") {
		*batchSize = *cfg.BatchSize
	}
	if cfg.LearningRate != nil && !c.IsSet("lr") && !c.IsSet("learning-rate") {
		*lr = *cfg.LearningRate
	}
	if cfg.Momentum != nil && !c.IsSet("momentum") {
		*momentum = *cfg.Momentum
	}
	if cfg.HiddenSize != nil && !c.IsSet("hidden") {
		*hidden = *cfg.HiddenSize
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
}
