// Package config loads mergectx settings from an optional YAML file with
// environment overrides for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"mergectx/internal/embedder"
	"mergectx/internal/retrieve"
)

// DefaultFileName is looked up in the repository root when --config is not
// given.
const DefaultFileName = "mergectx.yaml"

// Config holds all tunables. Zero values fall back to defaults at Load time.
type Config struct {
	Voyage struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"voyage"`

	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`

	Index struct {
		MainRef string `yaml:"main_ref"`
		Workers int    `yaml:"workers"`
	} `yaml:"index"`

	Retrieval struct {
		K                 int     `yaml:"k"`
		DistanceThreshold float64 `yaml:"distance_threshold"`
		MaxContextLength  int     `yaml:"max_context_length"`
	} `yaml:"retrieval"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.Voyage.Model = embedder.DefaultModel
	c.Voyage.BaseURL = embedder.DefaultBaseURL
	c.Store.Path = filepath.Join(".mergectx", "index.db")
	c.Index.MainRef = "origin/main"
	c.Retrieval.K = retrieve.DefaultK
	c.Retrieval.DistanceThreshold = retrieve.DefaultDistanceThreshold
	return c
}

// Load merges defaults, the YAML file at path (if it exists), and the
// VOYAGE_API_KEY environment variable, in that order of precedence.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No config file is fine; defaults apply.
		case err != nil:
			return c, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &c); err != nil {
				return c, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if key := os.Getenv("VOYAGE_API_KEY"); key != "" {
		c.Voyage.APIKey = key
	}
	return c, nil
}

// NewEmbedder builds the configured Voyage embedder. Fails fast when the API
// key is missing so no work happens before the misconfiguration surfaces.
func (c Config) NewEmbedder() (*embedder.VoyageEmbedder, error) {
	return embedder.NewVoyageEmbedder(c.Voyage.BaseURL, c.Voyage.APIKey, c.Voyage.Model)
}
