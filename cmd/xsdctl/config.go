package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/pflag"
)

// Config holds settings shared by every xsdctl subcommand. Flags take
// precedence over a loaded config file, which takes precedence over
// the zero value, mirroring the layering magicschema.Config uses for
// its own flag/config split.
type Config struct {
	BasePath     string `yaml:"basePath"`
	Color        bool   `yaml:"color"`
	ContextLines int    `yaml:"contextLines"`
}

// defaultConfig returns the settings xsdctl runs with when no --config
// file is given and no flags override them.
func defaultConfig() *Config {
	return &Config{Color: true, ContextLines: 2}
}

// RegisterFlags adds the persistent flags common to every subcommand
// to flags, binding them directly to c's fields.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.BasePath, "base-path", c.BasePath, "base directory for resolving relative schemaLocation values")
	flags.BoolVar(&c.Color, "color", c.Color, "colorize diagnostic output")
	flags.IntVar(&c.ContextLines, "context-lines", c.ContextLines, "lines of source context around each diagnostic")
}

// loadConfigFile merges YAML settings from path into c. A missing file
// is not an error: --config is optional, and defaultConfig already
// supplies sane values.
func loadConfigFile(c *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}
