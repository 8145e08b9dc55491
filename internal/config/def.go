package config

import (
	"fmt"

	"github.com/karupanerura/intcalc/internal/expression"
)

type Config struct {
	Overflow expression.OverflowPolicy
	MaxDepth int
	Debug    bool
}

func Default() *Config {
	return &Config{
		Overflow: expression.OverflowError,
		MaxDepth: expression.DefaultMaxDepth,
	}
}

func (c *Config) Evaluator() *expression.Evaluator {
	return &expression.Evaluator{
		Overflow: c.Overflow,
		MaxDepth: c.MaxDepth,
		Debug:    c.Debug,
	}
}

type configDef struct {
	Overflow string `json:"overflow" mapstructure:"overflow"`
	MaxDepth *int   `json:"max_depth" mapstructure:"max_depth"`
	Debug    bool   `json:"debug" mapstructure:"debug"`
}

func (d *configDef) compile() (*Config, error) {
	cfg := Default()
	cfg.Debug = d.Debug

	if d.Overflow != "" {
		policy, err := expression.ParseOverflowPolicy(d.Overflow)
		if err != nil {
			return nil, fmt.Errorf("overflow: %w", err)
		}
		cfg.Overflow = policy
	}

	if d.MaxDepth != nil {
		if *d.MaxDepth < 0 {
			return nil, fmt.Errorf("max_depth: must not be negative: %d", *d.MaxDepth)
		}
		cfg.MaxDepth = *d.MaxDepth
	}

	return cfg, nil
}
