// Package config loads the optional codegraph.hcl configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// FileName is the config file looked up at the repo root.
const FileName = "codegraph.hcl"

// Config is the decoded codegraph.hcl.
type Config struct {
	Index     *IndexConfig     `hcl:"index,block"`
	Retrieval *RetrievalConfig `hcl:"retrieval,block"`
}

// IndexConfig tunes file discovery.
type IndexConfig struct {
	// Exclude lists extra directory names pruned during discovery,
	// on top of the built-in set (.git, node_modules, ...).
	Exclude []string `hcl:"exclude,optional"`
}

// RetrievalConfig tunes context retrieval.
type RetrievalConfig struct {
	DefaultBudget   int `hcl:"default_budget,optional"`
	MaxSnippetLines int `hcl:"max_snippet_lines,optional"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Index: &IndexConfig{},
		Retrieval: &RetrievalConfig{
			DefaultBudget:   8000,
			MaxSnippetLines: 500,
		},
	}
}

// Load reads path, or repoRoot/codegraph.hcl when path is empty. A missing
// file yields the defaults; a malformed file is an input error.
func Load(repoRoot, path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(repoRoot, FileName)
		if _, err := os.Stat(path); err != nil {
			return Default(), nil
		}
	}

	cfg := &Config{}
	if err := hclsimple.DecodeFile(path, nil, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	def := Default()
	if cfg.Index == nil {
		cfg.Index = def.Index
	}
	if cfg.Retrieval == nil {
		cfg.Retrieval = def.Retrieval
	}
	if cfg.Retrieval.DefaultBudget == 0 {
		cfg.Retrieval.DefaultBudget = def.Retrieval.DefaultBudget
	}
	if cfg.Retrieval.MaxSnippetLines == 0 {
		cfg.Retrieval.MaxSnippetLines = def.Retrieval.MaxSnippetLines
	}
	return cfg, nil
}
