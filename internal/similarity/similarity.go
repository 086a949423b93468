// Package similarity scores and ranks vectors by clamped cosine similarity.
package similarity

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrDimensionMismatch is returned when two vectors differ in length.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Cosine returns the cosine similarity of a and b clamped to [0, 1].
// A zero-norm vector scores 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}

	sim := dot / math.Sqrt(na*nb)
	switch {
	case sim < 0:
		return 0, nil
	case sim > 1:
		return 1, nil
	}
	return sim, nil
}

// Candidate is anything that can be ranked against a query vector.
type Candidate interface {
	CandidateVector() []float32
}

// Scored pairs a candidate with its similarity to the query.
type Scored[T Candidate] struct {
	Item       T
	Similarity float64
}

// Result holds the ranked items and the number of candidates skipped
// because their dimension did not match the query.
type Result[T Candidate] struct {
	Matches    []Scored[T]
	Mismatched int
}

// Rank scores every candidate against query and returns the top k by
// descending similarity. Ties keep the original candidate order. A candidate
// with mismatched dimensions is excluded without affecting the others.
// A negative k returns all scored candidates.
func Rank[T Candidate](query []float32, candidates []T, k int) Result[T] {
	var res Result[T]
	scored := make([]Scored[T], 0, len(candidates))
	for _, c := range candidates {
		sim, err := Cosine(query, c.CandidateVector())
		if err != nil {
			res.Mismatched++
			continue
		}
		scored = append(scored, Scored[T]{Item: c, Similarity: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if k >= 0 && len(scored) > k {
		scored = scored[:k]
	}
	res.Matches = scored
	return res
}
