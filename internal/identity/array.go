package identity

import (
	"fmt"

	"github.com/wiber/intentguard/internal/dimension"
	"github.com/wiber/intentguard/internal/model"
)

// ToArray densifies an identity's scores into dimension order.
func ToArray(id *model.Identity) []float64 {
	if id == nil {
		return make([]float64, dimension.Count)
	}
	return dimension.ToVector(id.Scores)
}

// FromArray builds an identity from a dense score array in dimension order.
// A wrong-length array is schema drift between writer and reader, a bug
// rather than input, and panics.
func FromArray(subject string, scores []float64, aggregate float64) *model.Identity {
	if len(scores) != dimension.Count {
		panic(fmt.Sprintf("identity: dense array has %d scores, want %d", len(scores), dimension.Count))
	}
	m := make(map[string]float64, dimension.Count)
	for i, name := range dimension.Names() {
		m[name] = scores[i]
	}
	return &model.Identity{
		SubjectID:      subject,
		Scores:         m,
		AggregateScore: aggregate,
	}
}
