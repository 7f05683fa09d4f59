package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/herba/pkg/remedy/crossref"
	"github.com/cognicore/herba/pkg/remedy/internalerr"
)

// Config is the pipeline configuration file (pipeline.yaml).
type Config struct {
	Paths      Paths      `yaml:"paths"`
	LLM        LLM        `yaml:"llm"`
	CrossRef   CrossRef   `yaml:"crossref"`
	Categories Categories `yaml:"categories"`
}

// Paths names every file the pipeline stages read or write.
type Paths struct {
	JSONSource  string   `yaml:"json_source"`
	RTFSource   string   `yaml:"rtf_source"`
	HTMLSources []string `yaml:"html_sources"`
	Structured  string   `yaml:"structured"`
	Categorized string   `yaml:"categorized"`
	Enhanced    string   `yaml:"enhanced"`
	Checkpoint  string   `yaml:"checkpoint"`
	Database    string   `yaml:"database"`
}

// LLM configures the chat completion endpoint.
type LLM struct {
	BaseURL           string        `yaml:"base_url"`
	Model             string        `yaml:"model"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute float64       `yaml:"requests_per_minute"`
	Workers           int           `yaml:"workers"`
}

// CrossRef configures the similarity builder.
type CrossRef struct {
	AlternativeThreshold float64          `yaml:"alternative_threshold"`
	RelatedThreshold     float64          `yaml:"related_threshold"`
	Weights              crossref.Weights `yaml:"weights"`
}

// Categories holds manual category assignments keyed by category, listing
// remedy names that should receive it when the LLM left it blank.
type Categories struct {
	Overrides map[string][]string `yaml:"overrides"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	def := crossref.DefaultOptions()
	return Config{
		Paths: Paths{
			JSONSource:  "Resources/herbal_knowledge.json",
			Structured:  "Resources/herbal_knowledge_structured.json",
			Categorized: "Resources/herbal_knowledge_categorized.json",
			Enhanced:    "Resources/herbal_knowledge_enhanced.json",
			Checkpoint:  "Resources/herbal_knowledge_enhanced_temp.json",
		},
		LLM: LLM{
			BaseURL: "https://api.openai.com/v1/chat/completions",
			Model:   "gpt-4",
			Timeout: 2 * time.Minute,
			Workers: 1,
		},
		CrossRef: CrossRef{
			AlternativeThreshold: def.AlternativeThreshold,
			RelatedThreshold:     def.RelatedThreshold,
			Weights:              def.Weights,
		},
		Categories: Categories{
			Overrides: map[string][]string{
				"herb": {"Chamomile", "Echinacea", "Ginger", "Turmeric", "Garlic"},
			},
		},
	}
}

// Load reads a YAML config on top of Default. An empty path returns Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	cr := c.CrossRef
	if cr.AlternativeThreshold < 0 || cr.RelatedThreshold > 1 || cr.AlternativeThreshold > cr.RelatedThreshold {
		return fmt.Errorf("%w: thresholds must satisfy 0 <= alternative (%.2f) <= related (%.2f) <= 1",
			internalerr.ErrInvalidConfig, cr.AlternativeThreshold, cr.RelatedThreshold)
	}
	w := cr.Weights
	if w.Tags < 0 || w.Uses < 0 || w.Conditions < 0 {
		return fmt.Errorf("%w: crossref weights must be non-negative", internalerr.ErrInvalidConfig)
	}
	if c.LLM.Workers < 1 {
		return fmt.Errorf("%w: llm.workers must be at least 1", internalerr.ErrInvalidConfig)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: llm.requests_per_minute must be non-negative", internalerr.ErrInvalidConfig)
	}
	return nil
}

// BuilderOptions converts the crossref section into builder options.
func (c CrossRef) BuilderOptions() crossref.Options {
	return crossref.Options{
		AlternativeThreshold: c.AlternativeThreshold,
		RelatedThreshold:     c.RelatedThreshold,
		Weights:              c.Weights,
	}
}

// CategoryFor returns the override category for a remedy name.
func (c Categories) CategoryFor(name string) (string, bool) {
	for category, names := range c.Overrides {
		for _, n := range names {
			if n == name {
				return category, true
			}
		}
	}
	return "", false
}
