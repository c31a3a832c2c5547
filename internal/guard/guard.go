// Package guard limits how fast sessions act and how many may be live at once.
package guard

import (
	"sync"
	"time"

	"github.com/rogersf/court-engine/internal/domain"
)

// GuardConfig holds rate and session limits. Zero disables a limit.
type GuardConfig struct {
	RateLimitPerMinute int
	MaxSessions        int
}

// Guard enforces per-session action rates and the live session cap.
type Guard struct {
	Config GuardConfig

	mu         sync.Mutex
	rateCounts map[string]*rateBucket
	live       map[string]struct{}
}

type rateBucket struct {
	count       int
	windowStart int64
}

// NewGuard creates a Guard with the given limits.
func NewGuard(cfg GuardConfig) *Guard {
	return &Guard{
		Config:     cfg,
		rateCounts: make(map[string]*rateBucket),
		live:       make(map[string]struct{}),
	}
}

// Admit reserves a live slot for a new session. Returns ErrSessionLimit when
// the cap is reached and ErrDuplicateSession when the id is already live.
func (g *Guard) Admit(sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.live[sessionID]; ok {
		return domain.ErrDuplicateSession
	}
	if g.Config.MaxSessions > 0 && len(g.live) >= g.Config.MaxSessions {
		return domain.ErrSessionLimit
	}
	g.live[sessionID] = struct{}{}
	return nil
}

// Release frees the session's slot and forgets its rate window.
func (g *Guard) Release(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.live, sessionID)
	delete(g.rateCounts, sessionID)
}

// Live returns the number of admitted sessions.
func (g *Guard) Live() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.live)
}

// CheckRateLimit enforces a per-session fixed window rate limit.
// The window is 60 seconds. If the count exceeds the configured limit,
// ErrRateLimitExceeded is returned.
func (g *Guard) CheckRateLimit(sessionID string) error {
	if g.Config.RateLimitPerMinute <= 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().Unix()
	bucket, ok := g.rateCounts[sessionID]
	if !ok {
		g.rateCounts[sessionID] = &rateBucket{count: 1, windowStart: now}
		return nil
	}

	if now-bucket.windowStart > 60 {
		bucket.count = 1
		bucket.windowStart = now
		return nil
	}

	if bucket.count >= g.Config.RateLimitPerMinute {
		return domain.ErrRateLimitExceeded
	}

	bucket.count++
	return nil
}
