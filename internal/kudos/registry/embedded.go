// Package registry provides concrete implementations of
// domain.ModelRegistry: an embedded default model-size table and a
// network client for the real external collaborator.
package registry

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var embeddedYAML []byte

type embeddedFile struct {
	Models map[string]float64 `yaml:"models"`
}

// Embedded is the bundled fallback model registry: a fixed table of
// well-known model name to parameter-count-in-billions, analogous to
// the original broker's hard-coded Hugging Face config lookup. It never
// fails to construct and answers from memory only.
type Embedded struct {
	models map[string]float64
}

// NewEmbedded parses the bundled models.yaml into an Embedded registry.
func NewEmbedded() (*Embedded, error) {
	var f embeddedFile
	if err := yaml.Unmarshal(embeddedYAML, &f); err != nil {
		return nil, fmt.Errorf("op=registry.NewEmbedded: %w", err)
	}
	return &Embedded{models: f.Models}, nil
}

// ParameterCount implements domain.ModelRegistry against the embedded
// table, matching case-insensitively on the model name.
func (e *Embedded) ParameterCount(_ context.Context, modelName string) (float64, error) {
	if v, ok := e.models[strings.ToLower(modelName)]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("op=registry.Embedded.ParameterCount: unknown model %q", modelName)
}
