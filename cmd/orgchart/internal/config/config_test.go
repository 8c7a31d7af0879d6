package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFrom_CurrentContext(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, currentContextFile), []byte("dev\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CurrentContext != "dev" {
		t.Errorf("CurrentContext = %q, want %q", cfg.CurrentContext, "dev")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDir, dir)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dir != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
	}
}

func TestContextLifecycle(t *testing.T) {
	cfg, _ := LoadFrom(t.TempDir())

	if err := cfg.AddContext("dev"); err != nil {
		t.Fatalf("AddContext: %v", err)
	}
	if err := cfg.AddContext("dev"); err == nil {
		t.Error("AddContext should fail for an existing context")
	}
	if err := cfg.UseContext("dev"); err != nil {
		t.Fatalf("UseContext: %v", err)
	}

	reloaded, _ := LoadFrom(cfg.Dir)
	if reloaded.CurrentContext != "dev" {
		t.Errorf("persisted CurrentContext = %q", reloaded.CurrentContext)
	}

	name, dir, err := cfg.ResolveContext("")
	if err != nil || name != "dev" || dir != cfg.ContextDir("dev") {
		t.Errorf("ResolveContext = %q, %q, %v", name, dir, err)
	}

	names, _ := cfg.ListContexts()
	if len(names) != 1 || names[0] != "dev" {
		t.Errorf("ListContexts = %v", names)
	}

	if err := cfg.DeleteContext("dev"); err != nil {
		t.Fatalf("DeleteContext: %v", err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("CurrentContext after delete = %q", cfg.CurrentContext)
	}
	if err := cfg.UseContext("dev"); err == nil {
		t.Error("UseContext should fail for a deleted context")
	}
}

func TestResolveContext(t *testing.T) {
	cfg, _ := LoadFrom(t.TempDir())

	name, dir, err := cfg.ResolveContext("")
	if err != nil || name != "" || dir != "" {
		t.Errorf("ResolveContext without context = %q, %q, %v", name, dir, err)
	}
	if _, _, err := cfg.ResolveContext("missing"); err == nil {
		t.Error("ResolveContext should fail for an unknown context")
	}
	if _, _, err := cfg.ResolveContext("../etc"); err == nil {
		t.Error("ResolveContext should reject path separators")
	}
}

func TestValidateContextName(t *testing.T) {
	for _, bad := range []string{"", "a/b", `a\b`, ".hidden"} {
		if err := ValidateContextName(bad); err == nil {
			t.Errorf("ValidateContextName(%q) should fail", bad)
		}
	}
	if err := ValidateContextName("prod-1"); err != nil {
		t.Errorf("ValidateContextName(prod-1): %v", err)
	}
}
