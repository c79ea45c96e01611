package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

var errNoGroups = errors.New("workload has no task groups")

// Config is a workload: task groups that all contend for one lock.
type Config struct {
	Groups []Group `yaml:"groups"`
}

// Group is a set of identical tasks.
type Group struct {
	Name string `yaml:"name"`
	// Kind is "read" or "write".
	Kind  string `yaml:"kind"`
	Count int    `yaml:"count"`
	// Hold is how long every task keeps the lock once granted.
	Hold       time.Duration `yaml:"hold"`
	StartDelay time.Duration `yaml:"start_delay"`
	// Repeat is the number of acquire/release rounds per task, 1 if unset.
	Repeat int `yaml:"repeat"`
}

func loadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid workload: %w", err)
	}

	return &config, nil
}

func (c *Config) validate() error {
	if len(c.Groups) == 0 {
		return errNoGroups
	}
	seen := make(map[string]bool, len(c.Groups))
	for i := range c.Groups {
		g := &c.Groups[i]
		if g.Name == "" {
			return fmt.Errorf("group %d: name is required", i)
		}
		if seen[g.Name] {
			return fmt.Errorf("group %q: duplicate name", g.Name)
		}
		seen[g.Name] = true

		if g.Kind != "read" && g.Kind != "write" {
			return fmt.Errorf("group %q: kind must be read or write, got %q", g.Name, g.Kind)
		}
		if g.Count < 1 {
			return fmt.Errorf("group %q: count must be positive", g.Name)
		}
		if g.Hold < 0 || g.StartDelay < 0 {
			return fmt.Errorf("group %q: durations must not be negative", g.Name)
		}
		if g.Repeat < 0 {
			return fmt.Errorf("group %q: repeat must not be negative", g.Name)
		}
		if g.Repeat == 0 {
			g.Repeat = 1
		}
	}
	return nil
}
