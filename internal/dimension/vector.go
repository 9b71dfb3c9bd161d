package dimension

import (
	"fmt"
	"math"
)

// ToVector densifies a sparse score map into a fixed-length vector in
// dimension order. Unknown names are ignored; absent dimensions are 0.
func ToVector(scores map[string]float64) []float64 {
	v := make([]float64, Count)
	for name, score := range scores {
		if i, ok := index[name]; ok {
			v[i] = score
		}
	}
	return v
}

// Dot returns the dot product of two vectors. Vectors of different length
// indicate a caller bug, not bad input, and panic.
func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("dimension: dot product of mismatched vectors (%d vs %d)", len(a), len(b)))
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Magnitude returns the Euclidean norm of a vector.
func Magnitude(a []float64) float64 {
	var sum float64
	for _, x := range a {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine of the angle between two vectors,
// clamped to [-1, 1] against float drift. Either vector having zero
// magnitude yields 0: a scoreless identity is orthogonal to everything.
func CosineSimilarity(a, b []float64) float64 {
	ma, mb := Magnitude(a), Magnitude(b)
	if ma == 0 || mb == 0 {
		return 0
	}
	cos := Dot(a, b) / (ma * mb)
	if cos > 1 {
		return 1
	}
	if cos < -1 {
		return -1
	}
	return cos
}

// Overlap returns the fraction of required dimensions the identity meets:
// count(identity[d] >= required[d]) / len(required). An empty requirement
// constrains nothing and overlaps fully.
func Overlap(scores, required map[string]float64) float64 {
	if len(required) == 0 {
		return 1.0
	}
	passed := 0
	for name, min := range required {
		if scores[name] >= min {
			passed++
		}
	}
	return float64(passed) / float64(len(required))
}
