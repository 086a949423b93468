package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat-platform/internal/vectorizer"
)

type item struct {
	id  string
	vec []float32
}

func (i item) CandidateVector() []float32 { return i.vec }

func TestCosine_Identity(t *testing.T) {
	v := vectorizer.NewHashVectorizer(0)
	for _, text := range []string{"a", "identical chunk text", ""} {
		vec := v.Vector(text)
		sim, err := Cosine(vec, vec)
		require.NoError(t, err)
		assert.Equal(t, 1.0, sim, "text %q", text)
	}
}

func TestCosine_Symmetric(t *testing.T) {
	v := vectorizer.NewHashVectorizer(0)
	a, b := v.Vector("left"), v.Vector("right")

	ab, err := Cosine(a, b)
	require.NoError(t, err)
	ba, err := Cosine(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestCosine_ZeroVector(t *testing.T) {
	zero := make([]float32, 3)
	sim, err := Cosine(zero, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Zero(t, sim)

	sim, err = Cosine(zero, zero)
	require.NoError(t, err)
	assert.Zero(t, sim)
}

func TestCosine_ClampsNegative(t *testing.T) {
	sim, err := Cosine([]float32{1, 0}, []float32{-1, 0})
	require.NoError(t, err)
	assert.Zero(t, sim)
}

func TestCosine_Orthogonal(t *testing.T) {
	sim, err := Cosine([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.Zero(t, sim)
}

func TestCosine_DimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestRank_TopKSortedAndStable(t *testing.T) {
	query := []float32{1, 0}
	candidates := []item{
		{id: "low", vec: []float32{0, 1}},
		{id: "tie-a", vec: []float32{1, 1}},
		{id: "best", vec: []float32{1, 0}},
		{id: "tie-b", vec: []float32{2, 2}},
	}

	res := Rank(query, candidates, 3)
	require.Len(t, res.Matches, 3)
	assert.Equal(t, "best", res.Matches[0].Item.id)
	assert.Equal(t, "tie-a", res.Matches[1].Item.id)
	assert.Equal(t, "tie-b", res.Matches[2].Item.id)

	for i := 1; i < len(res.Matches); i++ {
		assert.GreaterOrEqual(t, res.Matches[i-1].Similarity, res.Matches[i].Similarity)
	}
}

func TestRank_MismatchSkippedNotFatal(t *testing.T) {
	query := []float32{1, 0}
	candidates := []item{
		{id: "wrong", vec: []float32{1, 0, 0}},
		{id: "ok", vec: []float32{1, 0}},
	}

	res := Rank(query, candidates, 5)
	assert.Equal(t, 1, res.Mismatched)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "ok", res.Matches[0].Item.id)
}

func TestRank_Bounds(t *testing.T) {
	candidates := []item{{id: "a", vec: []float32{1}}, {id: "b", vec: []float32{1}}}

	assert.Empty(t, Rank([]float32{1}, candidates, 0).Matches)
	assert.Len(t, Rank([]float32{1}, candidates, 10).Matches, 2)
	assert.Len(t, Rank([]float32{1}, candidates, -1).Matches, 2)
	assert.Empty(t, Rank([]float32{1}, []item{}, 3).Matches)
}
