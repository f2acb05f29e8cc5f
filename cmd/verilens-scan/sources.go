// cmd/verilens-scan/sources.go
package main

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Source is one RSS feed to scan.
type Source struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
	Paused   bool   `yaml:"paused"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads the YAML source list, skipping paused entries.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	active := make([]Source, 0, len(file.Sources))
	for _, s := range file.Sources {
		if s.Paused {
			continue
		}
		if s.Name == "" || s.URL == "" {
			return nil, fmt.Errorf("source entries need both name and url")
		}
		active = append(active, s)
	}
	return active, nil
}
