package config

import (
	"fmt"

	"github.com/cognicore/herba/pkg/remedy/crossref"
)

// Loader loads the pipeline configuration and constructs components
type Loader struct {
	ConfigPath string

	// Command-line overrides; zero values leave the file value in place.
	Model   string
	BaseURL string
	Workers int
}

// Components holds the loaded configuration and what is built from it
type Components struct {
	Config  *Config
	Builder *crossref.Builder
}

// Load reads the config file, applies overrides and returns initialized components
func (l *Loader) Load() (*Components, error) {
	cfg, err := Load(l.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if l.Model != "" {
		cfg.LLM.Model = l.Model
	}
	if l.BaseURL != "" {
		cfg.LLM.BaseURL = l.BaseURL
	}
	if l.Workers > 0 {
		cfg.LLM.Workers = l.Workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Components{
		Config:  cfg,
		Builder: crossref.New(cfg.CrossRef.BuilderOptions()),
	}, nil
}
