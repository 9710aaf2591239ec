package jurisdiction

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
)

type nodesFile struct {
	Jurisdictions []nodeEntry `yaml:"jurisdictions"`
}

type nodeEntry struct {
	ID           string `yaml:"id"`
	Parent       string `yaml:"parent"`
	Level        string `yaml:"level"`
	Abbreviation string `yaml:"abbreviation"`
	Name         string `yaml:"name"`
}

// LoadNodes reads a jurisdiction reference file.
func LoadNodes(path string) ([]Node, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jurisdictions file: %w", err)
	}
	return ParseNodes(raw)
}

// ParseNodes decodes a jurisdiction list. Ids must be present and unique.
func ParseNodes(raw []byte) ([]Node, error) {
	var file nodesFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "malformed jurisdictions file")
	}

	seen := make(map[string]struct{}, len(file.Jurisdictions))
	nodes := make([]Node, 0, len(file.Jurisdictions))
	for i, e := range file.Jurisdictions {
		n := cleanNode(Node{
			ID:           id.JurisdictionID(e.ID),
			ParentID:     id.JurisdictionID(e.Parent),
			LevelID:      e.Level,
			Abbreviation: e.Abbreviation,
			Name:         e.Name,
		})
		if n.ID == "" {
			return nil, dErrors.Newf(dErrors.CodeValidation, "jurisdiction %d has no id", i)
		}
		if _, dup := seen[string(n.ID)]; dup {
			return nil, dErrors.Newf(dErrors.CodeValidation, "jurisdiction %s listed twice", n.ID)
		}
		seen[string(n.ID)] = struct{}{}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
