package config

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PollLimiter caps history fetches per conversation so an externally
// triggered refresh cannot double-fetch inside one poll interval. Burst 1:
// the timer tick and a manual refresh coalesce into a single request.
type PollLimiter struct {
	conversations map[string]*pollEntry
	mu            sync.Mutex
	rate          rate.Limit
	burst         int
	ttl           time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
}

type pollEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// A non-positive interval disables limiting entirely.
func NewPollLimiter(interval time.Duration) *PollLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	pl := &PollLimiter{
		conversations: make(map[string]*pollEntry),
		rate:          limit,
		burst:         1,
		ttl:           interval*4 + 5*time.Second,
		stopCh:        make(chan struct{}),
	}

	go pl.cleanup()

	return pl
}

func (pl *PollLimiter) Stop() {
	pl.stopOnce.Do(func() {
		close(pl.stopCh)
	})
}

// Allow reports whether a fetch for the given conversation key may proceed
// now. A denied fetch is simply skipped; the next tick covers it.
func (pl *PollLimiter) Allow(key string) bool {
	pl.mu.Lock()
	entry, exists := pl.conversations[key]
	if !exists {
		entry = &pollEntry{limiter: rate.NewLimiter(pl.rate, pl.burst)}
		pl.conversations[key] = entry
	}
	entry.lastSeen = time.Now()
	pl.mu.Unlock()

	return entry.limiter.Allow()
}

func (pl *PollLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-pl.stopCh:
			return
		case <-ticker.C:
			pl.mu.Lock()
			for key, entry := range pl.conversations {
				if time.Since(entry.lastSeen) > pl.ttl {
					delete(pl.conversations, key)
				}
			}
			pl.mu.Unlock()
		}
	}
}
