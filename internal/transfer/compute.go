package transfer

import "github.com/roach88/lifeledger/internal/config"

// Compute returns how much resource moves from a loser holding l to a winner
// holding w. A result <= 0 means no transfer.
func Compute(l, w int, r config.ResourceConfig) int {
	actual := r.PerEvent
	if l-actual < r.Min {
		actual = max(0, l-r.Min)
	}
	if w+actual > r.Max {
		actual = max(0, r.Max-w)
	}
	return actual
}

// Eliminates reports whether a loser holding l is eliminated by losing
// actual.
func Eliminates(l, actual int) bool {
	return actual > 0 && l-actual <= 0
}
