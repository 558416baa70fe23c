package workflow

import (
	"strings"
	"time"

	"github.com/vegscan/vegscan/internal/api"
)

// knownVegetables maps filename substrings to display names for the
// fabricated fallback result.
var knownVegetables = []struct {
	keyword string
	name    string
}{
	{"tomato", "Tomato"},
	{"lettuce", "Lettuce"},
	{"carrot", "Carrot"},
}

// fabricateResult synthesizes a plausible but random verdict from nothing
// more than the filename. Produced only when the backend is unreachable and
// always tagged OriginDegraded. Callers hold w.mu.
func (w *Workflow) fabricateResult(filename string) *api.ScanResult {
	name := "Unknown Vegetable"
	lower := strings.ToLower(filename)
	for _, v := range knownVegetables {
		if strings.Contains(lower, v.keyword) {
			name = v.name
			break
		}
	}

	disease := "None detected"
	if w.rng.Float64() > 0.7 {
		disease = "Bacterial Spot"
	}

	return &api.ScanResult{
		VegetableName: name,
		SafeToEat:     w.rng.Float64() > 0.3,
		DiseaseName:   disease,
		Confidence:    w.rng.Intn(31) + 70,
		AnalysisDate:  time.Now().UTC(),
		Origin:        api.OriginDegraded,
	}
}
