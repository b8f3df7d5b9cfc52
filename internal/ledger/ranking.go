package ledger

import (
	"sort"

	"github.com/roach88/lifeledger/internal/store"
)

// Top returns up to n cached records ordered by resource level, highest
// first, ties broken by id. n <= 0 returns every cached record.
func (l *Ledger) Top(n int) []store.Record {
	all := l.Records()
	sort.Slice(all, func(i, j int) bool {
		if all[i].Resource != all[j].Resource {
			return all[i].Resource > all[j].Resource
		}
		return all[i].ID < all[j].ID
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// Records returns a copy of every cached record in no particular order.
func (l *Ledger) Records() []store.Record {
	out := make([]store.Record, 0)
	for i := range l.shards {
		sh := &l.shards[i]
		sh.mu.RLock()
		for _, e := range sh.records {
			out = append(out, e.rec)
		}
		sh.mu.RUnlock()
	}
	return out
}
