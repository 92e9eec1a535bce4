package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_AGENTD_API_KEY", "sk-test-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "agentd.yaml")
	content := `
providers:
  - name: main
    kind: anthropic
    api_key: ${TEST_AGENTD_API_KEY}
session:
  backend: file
  path: ./sessions
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].APIKey != "sk-test-123" {
		t.Fatalf("expected expanded api_key, got %+v", cfg.Providers)
	}
	if cfg.MaxToolIterations != 5 {
		t.Fatalf("expected default max_tool_iterations=5, got %d", cfg.MaxToolIterations)
	}
	if cfg.Memory.Scorer != "bm25" {
		t.Fatalf("expected default scorer bm25, got %q", cfg.Memory.Scorer)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected default server addr :8080, got %q", cfg.Server.Addr)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/agentd.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoadUnsetEnvVarExpandsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentd.yaml")
	content := `
providers:
  - name: main
    kind: anthropic
    api_key: ${TOTALLY_UNSET_AGENTD_VAR}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers[0].APIKey != "" {
		t.Fatalf("expected empty expansion for unset var, got %q", cfg.Providers[0].APIKey)
	}
}
