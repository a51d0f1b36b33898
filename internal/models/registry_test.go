package models

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSelectImageAlwaysRoutesToVision(t *testing.T) {
	r := DefaultRegistry()
	for _, requested := range []string{"", "gpt-3.5-turbo", "gpt-5-mini", "nope"} {
		m, _ := r.Select(true, requested)
		if m.ID != r.VisionModel {
			t.Fatalf("Select(true, %q) = %s, want %s", requested, m.ID, r.VisionModel)
		}
	}
}

func TestSelectTextModel(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		requested string
		want      string
	}{
		{requested: "gpt-4o-mini", want: "gpt-4o-mini"},
		{requested: " gpt-5-mini ", want: "gpt-5-mini"},
		{requested: "", want: "gpt-3.5-turbo"},
		{requested: "claude-9", want: "gpt-3.5-turbo"},
	}
	for _, tt := range tests {
		m, _ := r.Select(false, tt.requested)
		if m.ID != tt.want {
			t.Fatalf("Select(false, %q) = %s, want %s", tt.requested, m.ID, tt.want)
		}
	}
}

func TestBudgetBifurcation(t *testing.T) {
	for _, m := range DefaultRegistry().List() {
		b := BudgetFor(m)
		if m.Reasoning {
			if b.Temperature != nil {
				t.Fatalf("%s: reasoning budget must not carry temperature", m.ID)
			}
			if b.MaxTokens != 0 || b.MaxCompletionTokens != reasoningMaxTokens {
				t.Fatalf("%s: unexpected reasoning budget %+v", m.ID, b)
			}
			continue
		}
		if b.Temperature == nil || *b.Temperature != standardTemperature {
			t.Fatalf("%s: standard budget must carry temperature", m.ID)
		}
		if b.MaxTokens != standardMaxTokens || b.MaxCompletionTokens != 0 {
			t.Fatalf("%s: unexpected standard budget %+v", m.ID, b)
		}
	}
}

func TestReasoningIsAFlagNotAPrefix(t *testing.T) {
	r, err := NewRegistry([]Model{
		{ID: "gpt-5-chat", Vision: true},
		{ID: "thinker-1", Reasoning: true},
	}, "gpt-5-chat", "thinker-1")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	m, b := r.Select(false, "gpt-5-chat")
	if m.Reasoning || b.Temperature == nil {
		t.Fatalf("gpt-5-chat registered without the flag must be standard")
	}
	_, b = r.Select(false, "thinker-1")
	if b.Family != FamilyReasoning || b.Temperature != nil {
		t.Fatalf("thinker-1 must use the reasoning budget")
	}
}

func TestNewRegistryValidation(t *testing.T) {
	if _, err := NewRegistry([]Model{{ID: "a"}}, "a", "a"); !errors.Is(err, errNoVision) {
		t.Fatalf("expected vision error, got %v", err)
	}
	if _, err := NewRegistry([]Model{{ID: "a", Vision: true}}, "a", "b"); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected unknown default error, got %v", err)
	}
	if _, err := NewRegistry([]Model{{ID: "a", Vision: true}, {ID: "a"}}, "a", "a"); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	content := strings.Join([]string{
		"vision_model: gpt-4o",
		"default_model: gpt-4o-mini",
		"models:",
		"  - id: gpt-4o",
		"    vision: true",
		"    input_price_per_million: 2.5",
		"    output_price_per_million: 10",
		"  - id: gpt-4o-mini",
		"    name: Mini",
		"    input_price_per_million: 0.15",
		"    output_price_per_million: 0.6",
		"  - id: o3",
		"    reasoning: true",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if r.DefaultText != "gpt-4o-mini" {
		t.Fatalf("unexpected default %s", r.DefaultText)
	}
	m, ok := r.Lookup("gpt-4o-mini")
	if !ok || m.DisplayName != "Mini" || m.InputPrice != 0.15 {
		t.Fatalf("unexpected model %+v", m)
	}
	o3, _ := r.Lookup("o3")
	if o3.Family() != FamilyReasoning || o3.DisplayName != "o3" {
		t.Fatalf("unexpected o3 %+v", o3)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
	path := filepath.Join(t.TempDir(), "empty.yaml")
	_ = os.WriteFile(path, []byte("models: []\n"), 0o644)
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected empty registry error")
	}
}
