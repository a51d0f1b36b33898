package models

const (
	standardMaxTokens   = 600
	standardTemperature = float32(0.7)
	reasoningMaxTokens  = 4000
)

// Budget is the token ceiling and sampling policy for one call. Standard
// models get MaxTokens and a Temperature; reasoning models get only
// MaxCompletionTokens.
type Budget struct {
	Family              Family
	MaxTokens           int
	MaxCompletionTokens int
	Temperature         *float32
}

// BudgetFor maps a model to its parameter set.
func BudgetFor(m Model) Budget {
	if m.Reasoning {
		return Budget{
			Family:              FamilyReasoning,
			MaxCompletionTokens: reasoningMaxTokens,
		}
	}
	temp := standardTemperature
	return Budget{
		Family:      FamilyStandard,
		MaxTokens:   standardMaxTokens,
		Temperature: &temp,
	}
}

// Select picks the model for a request. An image always goes to the vision
// model; otherwise a registered requested model wins over the default.
func (r *Registry) Select(hasImage bool, requested string) (Model, Budget) {
	if hasImage {
		m := r.models[r.VisionModel]
		return m, BudgetFor(m)
	}
	if m, ok := r.Lookup(requested); ok {
		return m, BudgetFor(m)
	}
	m := r.models[r.DefaultText]
	return m, BudgetFor(m)
}
