// Package transfer moves resource from the loser of an elimination event to
// the winner.
//
// The amount is computed with two sequential clamps. The loser is first held
// at the configured minimum, then the winner is held at the configured
// maximum. The clamps are not jointly optimised, so a narrow band between the
// bounds can yield a smaller amount than either clamp alone. If either clamp
// zeroes the amount nothing changes.
//
// A loser left at zero or below is eliminated. The check uses an absolute
// floor of zero, not the configured minimum, so with a minimum above zero a
// participant can never be eliminated by a transfer. The elimination side
// effect runs on the loser's locality after a short configured delay.
package transfer
