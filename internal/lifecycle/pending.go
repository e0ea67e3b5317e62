package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/aurelwyn/conclave/internal/discord"
)

// confirmTTL bounds how long a delete confirmation stays actionable.
const confirmTTL = 15 * time.Minute

// sweepInterval is how often stale confirmations are purged in the
// background. Expiry is also checked lazily on take, so the sweep only
// bounds memory, not correctness.
const sweepInterval = time.Minute

type confirmKey struct {
	channel discord.Snowflake
	actor   discord.Snowflake
}

// pendingConfirms tracks outstanding delete requests per channel and
// actor. Entries are single use.
type pendingConfirms struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[confirmKey]time.Time
}

func newPendingConfirms(ttl time.Duration) *pendingConfirms {
	return &pendingConfirms{
		ttl:     ttl,
		entries: make(map[confirmKey]time.Time),
	}
}

func (p *pendingConfirms) put(channel, actor discord.Snowflake, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[confirmKey{channel: channel, actor: actor}] = now
}

// take consumes a pending entry. It returns false for absent entries and
// for entries older than the TTL; stale entries are removed either way.
func (p *pendingConfirms) take(channel, actor discord.Snowflake, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := confirmKey{channel: channel, actor: actor}
	requested, ok := p.entries[key]
	if !ok {
		return false
	}
	delete(p.entries, key)
	return now.Sub(requested) <= p.ttl
}

func (p *pendingConfirms) sweep(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, requested := range p.entries {
		if now.Sub(requested) > p.ttl {
			delete(p.entries, key)
		}
	}
}

// RunPendingSweep purges expired delete confirmations until the context is
// canceled. Intended to run as a background goroutine next to the gateway.
func (s *Service) RunPendingSweep(ctx context.Context) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.pending.sweep(s.clock())
		}
	}
}
