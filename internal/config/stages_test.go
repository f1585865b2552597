package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeStagesFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stages.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write stages file: %v", err)
	}
	return path
}

func TestLoadStageOverrides(t *testing.T) {
	path := writeStagesFile(t, `
stages:
  - name: db
    timeout: 3m
  - name: web
    timeout: 45s
`)

	overrides, err := LoadStageOverrides(path)
	if err != nil {
		t.Fatalf("LoadStageOverrides error: %v", err)
	}
	if len(overrides) != 2 {
		t.Fatalf("overrides = %v", overrides)
	}
	if overrides["db"] != 3*time.Minute {
		t.Errorf("db override = %v", overrides["db"])
	}
	if overrides["web"] != 45*time.Second {
		t.Errorf("web override = %v", overrides["web"])
	}
}

func TestLoadStageOverrides_EmptyPath(t *testing.T) {
	overrides, err := LoadStageOverrides("")
	if err != nil {
		t.Fatalf("LoadStageOverrides error: %v", err)
	}
	if overrides != nil {
		t.Fatalf("overrides = %v, want nil", overrides)
	}
}

func TestLoadStageOverrides_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"missing name", "stages:\n  - timeout: 10s\n"},
		{"zero timeout", "stages:\n  - name: db\n    timeout: 0s\n"},
		{"duplicate name", "stages:\n  - name: db\n    timeout: 10s\n  - name: db\n    timeout: 20s\n"},
		{"not yaml", "{{{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeStagesFile(t, tt.contents)
			if _, err := LoadStageOverrides(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadStageOverrides_MissingFile(t *testing.T) {
	if _, err := LoadStageOverrides(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
