package integrity

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/goccy/go-json"
)

// DefaultDriftThreshold is the similarity below which an embedding is
// considered corrupted.
const DefaultDriftThreshold = 0.85

// Embeddings maps an item id to its vector.
type Embeddings map[string][]float64

func LoadEmbeddings(path string) (Embeddings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read embeddings: %w", err)
	}
	var e Embeddings
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode embeddings %s: %w", path, err)
	}
	return e, nil
}

// Cosine returns 0 when either vector has zero magnitude. Vectors of
// different length are compared over their common prefix.
func Cosine(a, b []float64) float64 {
	ma, mb := magnitude(a), magnitude(b)
	if ma == 0 || mb == 0 {
		return 0
	}
	var dot float64
	for i := 0; i < min(len(a), len(b)); i++ {
		dot += a[i] * b[i]
	}
	return dot / (ma * mb)
}

func magnitude(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

type DriftReport struct {
	Scores   map[string]float64
	Missing  []string
	Critical []string
}

func (r DriftReport) Passed() bool { return len(r.Critical) == 0 }

// MeasureDrift scores every golden id against current. Ids missing from
// current score 0 and are therefore always critical.
func MeasureDrift(golden, current Embeddings, threshold float64) DriftReport {
	if threshold <= 0 {
		threshold = DefaultDriftThreshold
	}
	report := DriftReport{Scores: make(map[string]float64, len(golden))}
	for id, g := range golden {
		c, ok := current[id]
		if !ok {
			report.Missing = append(report.Missing, id)
			report.Scores[id] = 0
		} else {
			report.Scores[id] = Cosine(g, c)
		}
		if report.Scores[id] < threshold {
			report.Critical = append(report.Critical, id)
		}
	}
	sort.Strings(report.Missing)
	sort.Strings(report.Critical)
	return report
}
