package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mergectx/internal/config"
	"mergectx/internal/embedder"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VOYAGE_API_KEY", "")

	c, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Voyage.Model != "voyage-code-3" {
		t.Errorf("model = %q", c.Voyage.Model)
	}
	if c.Voyage.BaseURL != embedder.DefaultBaseURL {
		t.Errorf("base url = %q", c.Voyage.BaseURL)
	}
	if c.Index.MainRef != "origin/main" {
		t.Errorf("main ref = %q", c.Index.MainRef)
	}
	if c.Retrieval.K != 5 || c.Retrieval.DistanceThreshold != 0.5 {
		t.Errorf("retrieval defaults = %d/%f", c.Retrieval.K, c.Retrieval.DistanceThreshold)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("VOYAGE_API_KEY", "")
	path := filepath.Join(t.TempDir(), "mergectx.yaml")
	doc := `voyage:
  api_key: from-file
  model: voyage-3-lite
index:
  main_ref: origin/develop
retrieval:
  k: 8
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Voyage.APIKey != "from-file" || c.Voyage.Model != "voyage-3-lite" {
		t.Errorf("voyage = %+v", c.Voyage)
	}
	if c.Index.MainRef != "origin/develop" {
		t.Errorf("main ref = %q", c.Index.MainRef)
	}
	if c.Retrieval.K != 8 {
		t.Errorf("k = %d", c.Retrieval.K)
	}
	// Untouched settings keep their defaults.
	if c.Retrieval.DistanceThreshold != 0.5 {
		t.Errorf("threshold = %f, want default", c.Retrieval.DistanceThreshold)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mergectx.yaml")
	if err := os.WriteFile(path, []byte("voyage:\n  api_key: from-file\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("VOYAGE_API_KEY", "from-env")

	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Voyage.APIKey != "from-env" {
		t.Errorf("api key = %q, want env to win", c.Voyage.APIKey)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("VOYAGE_API_KEY", "")

	c, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if c.Voyage.Model != "voyage-code-3" {
		t.Errorf("model = %q, want default", c.Voyage.Model)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mergectx.yaml")
	if err := os.WriteFile(path, []byte("voyage: [broken\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestNewEmbedder_RequiresKey(t *testing.T) {
	t.Setenv("VOYAGE_API_KEY", "")

	c, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := c.NewEmbedder(); !errors.Is(err, embedder.ErrMissingAPIKey) {
		t.Errorf("err = %v, want ErrMissingAPIKey", err)
	}
}
