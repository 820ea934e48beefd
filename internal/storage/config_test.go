package storage

import (
	"path/filepath"
	"testing"
)

func TestResolveConfigOverridePath(t *testing.T) {
	cfg, err := ResolveConfig("SECURE", "/tmp/tabreport-custom.db")
	if err != nil {
		t.Fatalf("ResolveConfig() unexpected error: %v", err)
	}
	if cfg.Mode != ModeSecure {
		t.Fatalf("cfg.Mode = %q, want %q", cfg.Mode, ModeSecure)
	}
	if cfg.Path != "/tmp/tabreport-custom.db" {
		t.Fatalf("cfg.Path = %q, want %q", cfg.Path, "/tmp/tabreport-custom.db")
	}
}

func TestResolveConfigDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("HOME", home)

	cfg, err := ResolveConfig("", "")
	if err != nil {
		t.Fatalf("ResolveConfig() unexpected error: %v", err)
	}
	if cfg.Mode != ModePlain {
		t.Fatalf("cfg.Mode = %q, want %q", cfg.Mode, ModePlain)
	}
	if filepath.Base(cfg.Path) != "tabreport.db" || filepath.Base(filepath.Dir(cfg.Path)) != "tabreport" {
		t.Fatalf("cfg.Path = %q, want .../tabreport/tabreport.db", cfg.Path)
	}
}

func TestResolveConfigRejectsUnknownMode(t *testing.T) {
	if _, err := ResolveConfig("cloud", ""); err == nil {
		t.Fatal("ResolveConfig(\"cloud\") error = nil, want non-nil")
	}
}
