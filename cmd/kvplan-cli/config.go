package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/drone/envsubst"
	"gopkg.in/yaml.v3"

	"github.com/kvplan/kvplan/pkg/planner"
	"github.com/kvplan/kvplan/pkg/store"
)

// Config is the root config for the cli.
type Config struct {
	Planner planner.Config      `yaml:"planner"`
	Tables  []store.TableConfig `yaml:"tables"`
}

func (c *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	c.Planner.RegisterFlagsAndApplyDefaults(prefix+"planner", f)
}

// loadConfig applies defaults and overlays the config file, if any.
func loadConfig(path string, expandEnv bool) (*Config, error) {
	cfg := &Config{}
	cfg.RegisterFlagsAndApplyDefaults("", flag.NewFlagSet("", flag.ContinueOnError))
	if path == "" {
		return cfg, nil
	}

	buff, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configFile %s: %w", path, err)
	}
	if expandEnv {
		s, err := envsubst.EvalEnv(string(buff))
		if err != nil {
			return nil, fmt.Errorf("failed to expand env vars from configFile %s: %w", path, err)
		}
		buff = []byte(s)
	}

	dec := yaml.NewDecoder(bytes.NewReader(buff))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse configFile %s: %w", path, err)
	}

	if err := cfg.Planner.Validate(); err != nil {
		return nil, fmt.Errorf("invalid planner config: %w", err)
	}
	return cfg, nil
}
