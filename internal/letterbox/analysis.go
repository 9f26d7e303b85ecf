package letterbox

import "time"

// Analysis is the reviewable output of a letterbox analyze run. Like the
// duplicate Analysis, the schema is stable and consumed by other tooling.
type Analysis struct {
	GeneratedAt time.Time `json:"generated_at"`
	ServerURL   string    `json:"server_url"`
	Pairs       []Pair    `json:"pairs"`
	Summary     Summary   `json:"summary"`
}

// NewAnalysis wraps detected pairs into an Analysis.
func NewAnalysis(pairs []Pair, summary Summary, serverURL string) *Analysis {
	if pairs == nil {
		pairs = []Pair{}
	}
	return &Analysis{
		GeneratedAt: time.Now().UTC(),
		ServerURL:   serverURL,
		Pairs:       pairs,
		Summary:     summary,
	}
}
