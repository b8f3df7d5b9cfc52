package ledger

import "fmt"

// Pair gives locked access to exactly two participants. It is only valid
// inside the WithPair callback that produced it.
type Pair struct {
	l      *Ledger
	a, b   string
	sa, sb *shard
	done   bool
}

// WithPair runs fn while holding the stripe locks of a and b, acquired in
// ascending stripe order. No other ledger operation on a or b can interleave
// with fn. a and b may be equal.
//
// fn must not call back into the Ledger for a or b; use the Pair instead.
func (l *Ledger) WithPair(a, b string, fn func(p *Pair)) {
	i, j := stripeOf(a), stripeOf(b)
	lo, hi := i, j
	if lo > hi {
		lo, hi = hi, lo
	}

	l.shards[lo].mu.Lock()
	defer l.shards[lo].mu.Unlock()
	if hi != lo {
		l.shards[hi].mu.Lock()
		defer l.shards[hi].mu.Unlock()
	}

	p := &Pair{l: l, a: a, b: b, sa: &l.shards[i], sb: &l.shards[j]}
	defer func() { p.done = true }()
	fn(p)
}

// Get returns id's resource level, or the default if id is not cached.
func (p *Pair) Get(id string) int {
	return p.l.getLocked(p.shard(id), id)
}

// Set overwrites id's resource level without clamping.
func (p *Pair) Set(id string, v int) {
	p.l.setLocked(p.shard(id), id, v)
}

// Loaded reports whether id is cached.
func (p *Pair) Loaded(id string) bool {
	_, ok := p.shard(id).records[id]
	return ok
}

func (p *Pair) shard(id string) *shard {
	if p.done {
		panic("ledger: Pair used outside WithPair")
	}
	switch id {
	case p.a:
		return p.sa
	case p.b:
		return p.sb
	default:
		panic(fmt.Sprintf("ledger: participant %q is not part of the pair", id))
	}
}
