// Package config assembles the immutable runtime configuration: file
// paths, transport settings and the named constant tables the engines are
// constructed with. Nothing here is mutated after Load.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"voltguard/internal/diagnose"
	"voltguard/internal/policy"
	"voltguard/internal/reconcile"
)

// Kafka holds the consumer/producer settings for stream scoring.
type Kafka struct {
	Brokers  []string `yaml:"brokers"`
	InTopic  string   `yaml:"in_topic"`
	OutTopic string   `yaml:"out_topic"`
	GroupID  string   `yaml:"group_id"`
}

// Config is the full runtime configuration.
type Config struct {
	HTTPBind string `yaml:"http_bind"`
	Parallel int    `yaml:"parallel"`

	// Empty paths load the embedded defaults shipped with the binary.
	ManifestPath string `yaml:"manifest_path"`
	AliasesPath  string `yaml:"aliases_path"`
	ModelPath    string `yaml:"model_path"`

	Kafka Kafka `yaml:"kafka"`

	Reconcile reconcile.Config `yaml:"reconcile"`
	Diagnose  diagnose.Config  `yaml:"diagnose"`
	Policy    policy.Config    `yaml:"policy"`
}

// Default returns the shipped configuration.
func Default() Config {
	return Config{
		HTTPBind: ":8080",
		Parallel: 4,
		Kafka: Kafka{
			Brokers:  splitAndTrim(os.Getenv("KAFKA_BROKERS"), ","),
			InTopic:  "chargers.telemetry",
			OutTopic: "chargers.verdicts",
			GroupID:  "voltguard",
		},
		Reconcile: reconcile.DefaultConfig(),
		Diagnose:  diagnose.DefaultConfig(),
		Policy:    policy.DefaultConfig(),
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Policy.DecisionThreshold <= 0 || c.Policy.DecisionThreshold >= 1 {
		return fmt.Errorf("decision_threshold %v out of (0,1)", c.Policy.DecisionThreshold)
	}
	if c.Policy.OverrideFloor <= c.Policy.DecisionThreshold {
		return fmt.Errorf("override_floor %v must exceed decision_threshold %v",
			c.Policy.OverrideFloor, c.Policy.DecisionThreshold)
	}
	if c.Reconcile.StdFraction < 0 || c.Reconcile.NoiseFloor < 0 {
		return fmt.Errorf("std_fraction and noise_floor must be non-negative")
	}
	if c.Parallel < 1 {
		c.Parallel = 1
	}
	return nil
}

func splitAndTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
