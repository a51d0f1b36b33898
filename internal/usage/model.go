package usage

// Snapshot is the cumulative usage counter. Figures are estimates derived
// from local heuristics, not provider billing.
type Snapshot struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	ImageTokens  int     `json:"image_tokens"`
	TotalCost    float64 `json:"total_cost"`
	RequestCount int     `json:"request_count"`
	Estimated    bool    `json:"estimated"`
}

// Record is one completed request's estimated consumption. InputTokens
// excludes ImageTokens.
type Record struct {
	Model        string
	InputTokens  int
	OutputTokens int
	ImageTokens  int
}
