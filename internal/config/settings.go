package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Compiled-in defaults, used when no settings file overrides them.
const (
	DefaultConfigScript  = "./config-script.sh"
	DefaultMachineScript = "./machine-script.sh"
)

// Settings holds the per-user defaults persisted in ~/.runover/settings.yaml.
// A .runover.yaml in the working directory overrides the user file.
type Settings struct {
	ConfigScript  string `yaml:"config_script,omitempty"`
	MachineScript string `yaml:"machine_script,omitempty"`
	HistoryDB     string `yaml:"history_db,omitempty"`
}

// LoadSettings reads the user and directory settings files. Missing files
// are not an error; absent fields fall back to the compiled-in defaults.
func LoadSettings() (*Settings, error) {
	s := &Settings{
		ConfigScript:  DefaultConfigScript,
		MachineScript: DefaultMachineScript,
	}

	if home, err := os.UserHomeDir(); err == nil {
		if err := s.merge(filepath.Join(home, ".runover", "settings.yaml")); err != nil {
			return nil, err
		}
	}
	if err := s.merge(".runover.yaml"); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) merge(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read settings %s: %w", path, err)
	}
	var over Settings
	if err := yaml.Unmarshal(data, &over); err != nil {
		return fmt.Errorf("parse settings %s: %w", path, err)
	}
	if over.ConfigScript != "" {
		s.ConfigScript = over.ConfigScript
	}
	if over.MachineScript != "" {
		s.MachineScript = over.MachineScript
	}
	if over.HistoryDB != "" {
		s.HistoryDB = over.HistoryDB
	}
	return nil
}
