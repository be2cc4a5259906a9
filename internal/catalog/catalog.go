// Package catalog loads the seed list of activities offered by the school.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/extracurricular/internal/domain"
)

//go:embed activities.yaml
var defaultCatalog []byte

type entry struct {
	Description     string   `yaml:"description"`
	Schedule        string   `yaml:"schedule"`
	MaxParticipants int      `yaml:"max_participants"`
	Participants    []string `yaml:"participants"`
}

// Default returns the built-in catalog.
func Default() ([]domain.Activity, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, falling back to the built-in catalog for an empty path.
func Load(path string) ([]domain.Activity, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML mapping of activity name to details. Document order is kept.
func Parse(data []byte) ([]domain.Activity, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", domain.ErrInvalidCatalog)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: catalog must be a mapping of activity names", domain.ErrInvalidCatalog)
	}

	activities := make([]domain.Activity, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		var e entry
		if err := root.Content[i+1].Decode(&e); err != nil {
			return nil, fmt.Errorf("parse catalog entry %q: %w", name, err)
		}
		participants := e.Participants
		if participants == nil {
			participants = []string{}
		}
		activities = append(activities, domain.Activity{
			Name:            name,
			Description:     e.Description,
			Schedule:        e.Schedule,
			MaxParticipants: e.MaxParticipants,
			Participants:    participants,
		})
	}
	return activities, nil
}
