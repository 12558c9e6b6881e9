package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultProfile = "work"
	cfg.DeleteGraceMs = 150
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.DeleteGraceMs != 150 {
		t.Errorf("DeleteGraceMs = %d, want 150", loaded.DeleteGraceMs)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadOrDefaultMissing(t *testing.T) {
	cfg := LoadOrDefault("/nonexistent/config.toml")
	if cfg.DeleteTimerMs != 5000 {
		t.Errorf("DeleteTimerMs = %d, want default 5000", cfg.DeleteTimerMs)
	}
	if !cfg.AutoDelete || !cfg.Encryption {
		t.Error("default conversation settings should enable auto-delete and encryption")
	}
}

func TestIntervalAccessors(t *testing.T) {
	cfg := Default()
	if got := cfg.DeleteGrace(); got != 200*time.Millisecond {
		t.Errorf("DeleteGrace() = %v, want 200ms", got)
	}
	if got := cfg.TypingExpiry(); got != 3*time.Second {
		t.Errorf("TypingExpiry() = %v, want 3s", got)
	}
	if got := cfg.SaveCooldown(); got != 50*time.Millisecond {
		t.Errorf("SaveCooldown() = %v, want 50ms", got)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
