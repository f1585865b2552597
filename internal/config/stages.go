package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StageOverride adjusts the startup budget for a single named stage. Stage
// order is fixed in code; only timing is tunable per deployment.
type StageOverride struct {
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`
}

// StagesFile is the parsed YAML structure for stage overrides:
// stages: [{name, timeout}]
type StagesFile struct {
	Stages []StageOverride `yaml:"stages"`
}

// LoadStageOverrides parses a YAML stage-override file from the given path.
// Returns nil if path is empty (no override file).
func LoadStageOverrides(path string) (map[string]time.Duration, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stages file: %w", err)
	}

	var sf StagesFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse stages file: %w", err)
	}

	overrides := make(map[string]time.Duration, len(sf.Stages))
	for i, s := range sf.Stages {
		if s.Name == "" {
			return nil, fmt.Errorf("stage %d: name is required", i)
		}
		if s.Timeout <= 0 {
			return nil, fmt.Errorf("stage %q: timeout must be greater than zero", s.Name)
		}
		if _, ok := overrides[s.Name]; ok {
			return nil, fmt.Errorf("stage %q: duplicate name", s.Name)
		}
		overrides[s.Name] = s.Timeout
	}

	return overrides, nil
}
