package turn

import "math/rand"

// weightedPick returns an index drawn proportionally to weights. The
// caller guarantees a non-empty slice of positive weights.
func weightedPick(weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	n := rand.Intn(total)
	for i, w := range weights {
		if n < w {
			return i
		}
		n -= w
	}
	return len(weights) - 1
}
