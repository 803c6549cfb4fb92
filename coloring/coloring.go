// Package coloring assigns constraints to batches so that no two constraints
// in the same batch share a particle.
package coloring

// Color runs greedy first-fit coloring over the constraint hypergraph.
//
// particleIndices holds the flattened particle tuples; constraintIndices holds
// one offset per constraint into particleIndices plus a final entry equal to
// len(particleIndices). Constraints are processed in order, and each receives
// the smallest color not already used by a constraint sharing a particle with
// it. It returns one color per constraint and the number of colors used.
func Color(particleIndices, constraintIndices []int32) (colors []int32, count int) {
	n := len(constraintIndices) - 1
	if n <= 0 {
		return nil, 0
	}

	maxParticle := int32(-1)
	for _, p := range particleIndices {
		maxParticle = max(maxParticle, p)
	}
	constraintsPerParticle := make([][]int32, maxParticle+1)

	colors = make([]int32, n)
	var used []bool
	for c := 0; c < n; c++ {
		tuple := particleIndices[constraintIndices[c]:constraintIndices[c+1]]

		for _, p := range tuple {
			for _, other := range constraintsPerParticle[p] {
				col := colors[other]
				for int(col) >= len(used) {
					used = append(used, false)
				}
				used[col] = true
			}
		}

		color := int32(0)
		for int(color) < len(used) && used[color] {
			color++
		}
		colors[c] = color
		count = max(count, int(color)+1)

		for _, p := range tuple {
			for _, other := range constraintsPerParticle[p] {
				used[colors[other]] = false
			}
		}
		for _, p := range tuple {
			constraintsPerParticle[p] = append(constraintsPerParticle[p], int32(c))
		}
	}
	return colors, count
}

// Partition groups constraint ids by color, ascending within each color.
func Partition(colors []int32, count int) [][]int32 {
	out := make([][]int32, count)
	for c, col := range colors {
		out[col] = append(out[col], int32(c))
	}
	return out
}

// Valid reports whether no two constraints of the same color share a
// particle. It is meant for tests and debug assertions.
func Valid(particleIndices, constraintIndices, colors []int32) bool {
	type key struct{ particle, color int32 }
	seen := make(map[key]int32)
	for c := 0; c+1 < len(constraintIndices); c++ {
		for _, p := range particleIndices[constraintIndices[c]:constraintIndices[c+1]] {
			k := key{p, colors[c]}
			if prev, ok := seen[k]; ok && prev != int32(c) {
				return false
			}
			seen[k] = int32(c)
		}
	}
	return true
}
