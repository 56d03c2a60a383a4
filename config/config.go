// Package config loads and validates the harness configuration document.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sparql-conformance/harness/compare"
)

// Engine systems.
const (
	SystemContainer = "container"
	SystemBinary    = "binary"
)

// AliasPair declares two tokens the lenient comparison pass treats as
// interchangeable.
type AliasPair struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// Config is the harness configuration, decoded strictly from YAML.
type Config struct {
	System        string      `yaml:"system"`
	Image         string      `yaml:"image"`
	Port          int         `yaml:"port"`
	ServerAddress string      `yaml:"server_address"`
	GraphStore    string      `yaml:"graph_store"`
	TestSuiteDir  string      `yaml:"testsuite_dir"`
	BinariesDir   string      `yaml:"binaries_dir"`
	AccessToken   string      `yaml:"access_token"`
	Aliases       []AliasPair `yaml:"aliases"`
	Exclude       []string    `yaml:"exclude"`
	Include       []string    `yaml:"include"`
	NumberTypes   []string    `yaml:"number_types"`
}

// Load reads, decodes and validates a configuration file. Paths are made
// absolute relative to the current working directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var c Config
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode config yaml: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.TestSuiteDir, err = filepath.Abs(c.TestSuiteDir); err != nil {
		return nil, fmt.Errorf("resolve testsuite dir: %w", err)
	}
	if c.BinariesDir != "" {
		if c.BinariesDir, err = filepath.Abs(c.BinariesDir); err != nil {
			return nil, fmt.Errorf("resolve binaries dir: %w", err)
		}
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.ServerAddress == "" {
		c.ServerAddress = "localhost"
	}
	if c.AccessToken == "" {
		c.AccessToken = "abc"
	}
	if len(c.NumberTypes) == 0 {
		for t := range compare.DefaultNumericTypes() {
			c.NumberTypes = append(c.NumberTypes, t)
		}
	}
}

// Validate checks configuration semantics.
func (c *Config) Validate() error {
	switch c.System {
	case SystemContainer:
		if c.Image == "" {
			return fmt.Errorf("config: image is required for system %q", SystemContainer)
		}
	case SystemBinary:
		if c.BinariesDir == "" {
			return fmt.Errorf("config: binaries_dir is required for system %q", SystemBinary)
		}
	default:
		return fmt.Errorf("config: invalid system %q", c.System)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.GraphStore == "" {
		return fmt.Errorf("config: graph_store is required")
	}
	if c.TestSuiteDir == "" {
		return fmt.Errorf("config: testsuite_dir is required")
	}
	return nil
}

// Endpoint is the host:port the engine serves on.
func (c *Config) Endpoint() string {
	return fmt.Sprintf("%s:%d", c.ServerAddress, c.Port)
}

// AliasTable converts the configured pairs for the comparators.
func (c *Config) AliasTable() compare.AliasTable {
	table := make(compare.AliasTable, 0, len(c.Aliases))
	for _, p := range c.Aliases {
		table = append(table, [2]string{p.A, p.B})
	}
	return table
}

// NumericTypes converts the configured numeric datatype IRIs.
func (c *Config) NumericTypes() compare.NumericTypes {
	nt := make(compare.NumericTypes, len(c.NumberTypes))
	for _, t := range c.NumberTypes {
		nt[t] = struct{}{}
	}
	return nt
}
