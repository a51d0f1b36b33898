package models

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Family tags a model's parameter policy.
type Family string

const (
	FamilyStandard  Family = "standard"
	FamilyReasoning Family = "reasoning"
)

// Model is static registry metadata. Prices are dollars per million tokens.
type Model struct {
	ID          string  `json:"id" yaml:"id"`
	DisplayName string  `json:"name" yaml:"name"`
	Speed       string  `json:"speed" yaml:"speed"`
	Cost        string  `json:"cost" yaml:"cost"`
	Accuracy    string  `json:"accuracy" yaml:"accuracy"`
	InputPrice  float64 `json:"input_price_per_million" yaml:"input_price_per_million"`
	OutputPrice float64 `json:"output_price_per_million" yaml:"output_price_per_million"`
	Reasoning   bool    `json:"reasoning" yaml:"reasoning"`
	Vision      bool    `json:"vision" yaml:"vision"`
}

// Family reports the parameter family from the capability flag.
func (m Model) Family() Family {
	if m.Reasoning {
		return FamilyReasoning
	}
	return FamilyStandard
}

// Registry is the set of models the relay will route to.
type Registry struct {
	models      map[string]Model
	order       []string
	VisionModel string
	DefaultText string
}

var (
	ErrUnknownModel = errors.New("unknown model")
	errNoVision     = errors.New("vision model must be registered with vision: true")
)

// DefaultRegistry returns the built-in model table.
func DefaultRegistry() *Registry {
	r, _ := NewRegistry([]Model{
		{ID: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo", Speed: "fastest", Cost: "low", Accuracy: "good", InputPrice: 0.50, OutputPrice: 1.50},
		{ID: "gpt-4o-mini", DisplayName: "GPT-4o mini", Speed: "fast", Cost: "lowest", Accuracy: "good", InputPrice: 0.15, OutputPrice: 0.60, Vision: true},
		{ID: "gpt-4o", DisplayName: "GPT-4o", Speed: "medium", Cost: "high", Accuracy: "excellent", InputPrice: 2.50, OutputPrice: 10.00, Vision: true},
		{ID: "gpt-4.1-mini", DisplayName: "GPT-4.1 mini", Speed: "fast", Cost: "low", Accuracy: "very good", InputPrice: 0.40, OutputPrice: 1.60, Vision: true},
		{ID: "gpt-4.1-nano", DisplayName: "GPT-4.1 nano", Speed: "fastest", Cost: "lowest", Accuracy: "fair", InputPrice: 0.10, OutputPrice: 0.40},
		{ID: "gpt-5-mini", DisplayName: "GPT-5 mini", Speed: "slow", Cost: "medium", Accuracy: "excellent", InputPrice: 0.25, OutputPrice: 2.00, Reasoning: true},
		{ID: "gpt-5-nano", DisplayName: "GPT-5 nano", Speed: "medium", Cost: "low", Accuracy: "very good", InputPrice: 0.05, OutputPrice: 0.40, Reasoning: true},
		{ID: "o4-mini", DisplayName: "o4-mini", Speed: "slow", Cost: "medium", Accuracy: "excellent", InputPrice: 1.10, OutputPrice: 4.40, Reasoning: true},
	}, "gpt-4o", "gpt-3.5-turbo")
	return r
}

// NewRegistry validates and indexes a model list.
func NewRegistry(list []Model, visionModel, defaultText string) (*Registry, error) {
	r := &Registry{models: make(map[string]Model, len(list))}
	for _, m := range list {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			return nil, errors.New("model id is required")
		}
		if _, dup := r.models[id]; dup {
			return nil, fmt.Errorf("duplicate model %q", id)
		}
		m.ID = id
		if m.DisplayName == "" {
			m.DisplayName = id
		}
		r.models[id] = m
		r.order = append(r.order, id)
	}
	vision, ok := r.models[visionModel]
	if !ok {
		return nil, fmt.Errorf("vision model %q: %w", visionModel, ErrUnknownModel)
	}
	if !vision.Vision {
		return nil, errNoVision
	}
	if _, ok := r.models[defaultText]; !ok {
		return nil, fmt.Errorf("default model %q: %w", defaultText, ErrUnknownModel)
	}
	r.VisionModel = visionModel
	r.DefaultText = defaultText
	return r, nil
}

// Lookup returns a registered model.
func (r *Registry) Lookup(id string) (Model, bool) {
	m, ok := r.models[strings.TrimSpace(id)]
	return m, ok
}

// List returns models in registration order.
func (r *Registry) List() []Model {
	out := make([]Model, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.models[id])
	}
	return out
}

// IDs returns the sorted model ids.
func (r *Registry) IDs() []string {
	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	return ids
}

type fileRegistry struct {
	VisionModel  string  `yaml:"vision_model"`
	DefaultModel string  `yaml:"default_model"`
	Models       []Model `yaml:"models"`
}

// LoadFile reads a YAML registry override:
//
//	vision_model: gpt-4o
//	default_model: gpt-4o-mini
//	models:
//	  - id: gpt-4o
//	    vision: true
//	    input_price_per_million: 2.5
//	    output_price_per_million: 10
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read models file: %w", err)
	}
	var f fileRegistry
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse models file: %w", err)
	}
	if len(f.Models) == 0 {
		return nil, errors.New("models file lists no models")
	}
	r, err := NewRegistry(f.Models, f.VisionModel, f.DefaultModel)
	if err != nil {
		return nil, fmt.Errorf("models file %s: %w", path, err)
	}
	return r, nil
}
