package ledger

import (
	"sync"
	"time"
)

type cooldownShard struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func (l *Ledger) cooldownFor(id string) *cooldownShard {
	return &l.cooldowns[stripeOf(id)]
}

// MarkCooldown records now as id's last cooldown-gated action.
func (l *Ledger) MarkCooldown(id string) {
	cs := l.cooldownFor(id)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.last[id] = l.clock.Now()
}

// IsOnCooldown reports whether id marked a cooldown less than window ago.
func (l *Ledger) IsOnCooldown(id string, window time.Duration) bool {
	return l.remaining(id, window) > 0
}

// RemainingCooldown returns the whole seconds left on id's cooldown, 0 if
// none.
func (l *Ledger) RemainingCooldown(id string, window time.Duration) int64 {
	return int64(l.remaining(id, window) / time.Second)
}

func (l *Ledger) remaining(id string, window time.Duration) time.Duration {
	cs := l.cooldownFor(id)
	cs.mu.Lock()
	last, ok := cs.last[id]
	cs.mu.Unlock()
	if !ok {
		return 0
	}
	left := window - l.clock.Now().Sub(last)
	if left < 0 {
		return 0
	}
	return left
}

// PruneCooldowns forgets cooldowns that expired under window and returns how
// many were dropped.
func (l *Ledger) PruneCooldowns(window time.Duration) int {
	now := l.clock.Now()
	pruned := 0
	for i := range l.cooldowns {
		cs := &l.cooldowns[i]
		cs.mu.Lock()
		for id, last := range cs.last {
			if now.Sub(last) >= window {
				delete(cs.last, id)
				pruned++
			}
		}
		cs.mu.Unlock()
	}
	return pruned
}
