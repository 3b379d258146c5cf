// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// PandocBackend selects how pandoc is executed.
type PandocBackend string

const (
	// BackendLocal runs a pandoc binary found on PATH.
	BackendLocal PandocBackend = "local"
	// BackendContainer runs the pandoc image through docker or podman.
	BackendContainer PandocBackend = "container"
)

const (
	DefaultPandocBinary = "pandoc"
	DefaultPandocImage  = "pandoc/core:latest"
	DefaultFrom         = "markdown"
	DefaultTo           = "html"
	DefaultOutDir       = "output/abstracts"
	DefaultPapersDir    = "papers"
	DefaultIndexDir     = "index"
	defaultTimeout      = 60 * time.Second
)

// PandocConfig holds settings for the pandoc engine.
type PandocConfig struct {
	// Backend is local or container (default local).
	Backend PandocBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Binary is the pandoc executable for the local backend.
	Binary string `json:"binary" yaml:"binary" mapstructure:"binary"`

	// Image is the container image for the container backend.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// Timeout bounds a single pandoc invocation (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// RenderConfig holds settings for rendering abstract files.
type RenderConfig struct {
	// From is the pandoc reader for the input files (default markdown).
	From string `json:"from" yaml:"from" mapstructure:"from"`

	// To is the pandoc writer for the output files (default html).
	To string `json:"to" yaml:"to" mapstructure:"to"`

	// OutDir receives the rendered files.
	OutDir string `json:"out_dir" yaml:"out_dir" mapstructure:"out_dir"`

	// Force re-renders files whose output already exists.
	Force bool `json:"force" yaml:"force" mapstructure:"force"`
}

// AbstractsConfig holds settings for the abstract ledger.
type AbstractsConfig struct {
	// PapersDir is the base directory for papers (contains metadata/).
	PapersDir string `json:"papers_dir" yaml:"papers_dir" mapstructure:"papers_dir"`

	// IndexDir holds the ledger database and its exports.
	IndexDir string `json:"index_dir" yaml:"index_dir" mapstructure:"index_dir"`
}

// Config groups all delink settings. It is loaded by viper from delink.yaml
// and DELINK_* environment variables.
type Config struct {
	Pandoc    PandocConfig    `json:"pandoc" yaml:"pandoc" mapstructure:"pandoc"`
	Render    RenderConfig    `json:"render" yaml:"render" mapstructure:"render"`
	Abstracts AbstractsConfig `json:"abstracts" yaml:"abstracts" mapstructure:"abstracts"`
}

// WithDefaults returns a copy of c with empty fields filled in.
func (c Config) WithDefaults() Config {
	if c.Pandoc.Backend == "" {
		c.Pandoc.Backend = BackendLocal
	}
	if c.Pandoc.Binary == "" {
		c.Pandoc.Binary = DefaultPandocBinary
	}
	if c.Pandoc.Image == "" {
		c.Pandoc.Image = DefaultPandocImage
	}
	if c.Pandoc.Timeout <= 0 {
		c.Pandoc.Timeout = defaultTimeout
	}
	if c.Render.From == "" {
		c.Render.From = DefaultFrom
	}
	if c.Render.To == "" {
		c.Render.To = DefaultTo
	}
	if c.Render.OutDir == "" {
		c.Render.OutDir = DefaultOutDir
	}
	if c.Abstracts.PapersDir == "" {
		c.Abstracts.PapersDir = DefaultPapersDir
	}
	if c.Abstracts.IndexDir == "" {
		c.Abstracts.IndexDir = DefaultIndexDir
	}
	return c
}

// Validate reports configuration values that cannot be used.
func (c Config) Validate() error {
	switch c.Pandoc.Backend {
	case BackendLocal, BackendContainer:
	default:
		return fmt.Errorf("unsupported pandoc backend %q: use %s or %s",
			c.Pandoc.Backend, BackendLocal, BackendContainer)
	}
	if c.Render.To == "json" {
		return fmt.Errorf("render target %q is the filter wire format; run delink as a pandoc filter instead", c.Render.To)
	}
	return nil
}
