package coloring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomHypergraph(rng *rand.Rand, constraints, particles, maxArity int) (pi, ci []int32) {
	ci = append(ci, 0)
	for c := 0; c < constraints; c++ {
		arity := 1 + rng.Intn(maxArity)
		for k := 0; k < arity; k++ {
			pi = append(pi, int32(rng.Intn(particles)))
		}
		ci = append(ci, int32(len(pi)))
	}
	return pi, ci
}

func TestColorNeverSharesParticleWithinColor(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		pi, ci := randomHypergraph(rng, 1+rng.Intn(300), 2+rng.Intn(80), 4)
		colors, count := Color(pi, ci)
		require.Len(t, colors, len(ci)-1)
		assert.True(t, Valid(pi, ci, colors), "trial %d", trial)
		for _, c := range colors {
			assert.Less(t, int(c), count)
		}
	}
}

func TestColorIsFirstFit(t *testing.T) {
	// Every constraint with color k > 0 must conflict with some constraint of
	// each lower color.
	rng := rand.New(rand.NewSource(3))
	pi, ci := randomHypergraph(rng, 200, 40, 3)
	colors, _ := Color(pi, ci)
	touches := func(a, b int) bool {
		for _, p := range pi[ci[a]:ci[a+1]] {
			for _, q := range pi[ci[b]:ci[b+1]] {
				if p == q {
					return true
				}
			}
		}
		return false
	}
	for c := range colors {
		for lower := int32(0); lower < colors[c]; lower++ {
			found := false
			for o := 0; o < c && !found; o++ {
				found = colors[o] == lower && touches(c, o)
			}
			assert.True(t, found, "constraint %d could have used color %d", c, lower)
		}
	}
}

func TestColorEmpty(t *testing.T) {
	colors, count := Color(nil, nil)
	assert.Empty(t, colors)
	assert.Zero(t, count)

	colors, count = Color(nil, []int32{0})
	assert.Empty(t, colors)
	assert.Zero(t, count)
}

func TestColorDisjointAllZero(t *testing.T) {
	pi := []int32{0, 1, 2, 3, 4, 5, 6, 7}
	ci := []int32{0, 2, 4, 6, 8}
	colors, count := Color(pi, ci)
	assert.Equal(t, []int32{0, 0, 0, 0}, colors)
	assert.Equal(t, 1, count)
}

func TestColorChain(t *testing.T) {
	// 0-1, 1-2, 2-3 alternate colors.
	colors, count := Color([]int32{0, 1, 1, 2, 2, 3}, []int32{0, 2, 4, 6})
	assert.Equal(t, []int32{0, 1, 0}, colors)
	assert.Equal(t, 2, count)
	assert.Equal(t, [][]int32{{0, 2}, {1}}, Partition(colors, count))
}

func TestColorDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	pi, ci := randomHypergraph(rng, 150, 30, 4)
	a, _ := Color(pi, ci)
	b, _ := Color(pi, ci)
	assert.Equal(t, a, b)
}
