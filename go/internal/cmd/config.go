package main

import (
	"fmt"
	"os"

	"github.com/mvcampos/gelateria/go/internal/sequence"
	"gopkg.in/yaml.v3"
)

// Config holds the exercise settings loaded from config.yaml. Connection
// settings stay in the environment; these knobs describe how rounds run.
type Config struct {
	Round struct {
		TeamQuota            int   `yaml:"team_quota"`
		WarningThresholdsSec []int `yaml:"warning_thresholds_sec"`
	} `yaml:"round"`
	Sequence struct {
		Policy string `yaml:"policy"`
	} `yaml:"sequence"`
	Rejector struct {
		GraceWindowSec int `yaml:"grace_window_sec"`
	} `yaml:"rejector"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func defaultConfig() *Config {
	var config Config
	config.applyDefaults()
	return &config
}

func (c *Config) applyDefaults() {
	if c.Round.TeamQuota <= 0 {
		c.Round.TeamQuota = 2
	}
	if len(c.Round.WarningThresholdsSec) == 0 {
		c.Round.WarningThresholdsSec = []int{60, 30, 10}
	}
	if c.Sequence.Policy == "" {
		c.Sequence.Policy = string(sequence.PolicyRoundRobin)
	}
	if c.Rejector.GraceWindowSec <= 0 {
		c.Rejector.GraceWindowSec = 60
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
