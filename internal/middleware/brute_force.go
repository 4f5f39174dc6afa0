package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	bruteForceMaxAttempts = 5
	bruteForceWindow      = 15 * time.Minute
	bruteForceLockout     = 5 * time.Minute
	bruteForceCleanup     = 60 * time.Second
	bruteForceMaxRecords  = 10000
)

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

// BruteForceGuard tracks invalid-token failures per client IP and locks out
// IPs that exceed the failure threshold within the tracking window.
type BruteForceGuard struct {
	mu      sync.Mutex
	records map[string]*failureRecord
	log     *logrus.Logger
	now     func() time.Time
}

// NewBruteForceGuard creates a new guard and starts a background cleanup goroutine
// that stops when ctx is cancelled.
func NewBruteForceGuard(ctx context.Context, log *logrus.Logger) *BruteForceGuard {
	g := &BruteForceGuard{
		records: make(map[string]*failureRecord),
		log:     log,
		now:     time.Now,
	}
	go g.cleanupLoop(ctx)
	return g
}

// IsBlocked reports whether ip is currently locked out.
func (g *BruteForceGuard) IsBlocked(ip string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[ip]
	if !ok {
		return false
	}

	return !rec.lockedAt.IsZero() && g.now().Sub(rec.lockedAt) < bruteForceLockout
}

// RecordFailure records a rejected token presented from ip.
func (g *BruteForceGuard) RecordFailure(ip string) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[ip]
	if !ok {
		if len(g.records) >= bruteForceMaxRecords {
			g.evictOldest(1)
		}
		g.records[ip] = &failureRecord{attempts: 1, firstFail: now}
		return
	}

	// Reset if outside the tracking window.
	if now.Sub(rec.firstFail) > bruteForceWindow {
		rec.attempts = 1
		rec.firstFail = now
		rec.lockedAt = time.Time{}
		return
	}

	rec.attempts++
	if rec.attempts >= bruteForceMaxAttempts && rec.lockedAt.IsZero() {
		rec.lockedAt = now
		g.log.WithField("client_ip", ip).Warn("client locked out due to repeated auth failures")
	}
}

// Reset clears failure tracking for ip (call on successful auth).
func (g *BruteForceGuard) Reset(ip string) {
	g.mu.Lock()
	delete(g.records, ip)
	g.mu.Unlock()
}

func (g *BruteForceGuard) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(bruteForceCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

// sweep removes expired lockouts and stale windows.
func (g *BruteForceGuard) sweep() {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for ip, rec := range g.records {
		if !rec.lockedAt.IsZero() && now.Sub(rec.lockedAt) >= bruteForceLockout {
			delete(g.records, ip)
		} else if rec.lockedAt.IsZero() && now.Sub(rec.firstFail) >= bruteForceWindow {
			delete(g.records, ip)
		}
	}
}

// evictOldest removes n entries with the oldest firstFail times.
// Caller must hold g.mu.
func (g *BruteForceGuard) evictOldest(n int) {
	for range n {
		var oldestIP string
		var oldest time.Time
		for ip, rec := range g.records {
			if oldestIP == "" || rec.firstFail.Before(oldest) {
				oldestIP, oldest = ip, rec.firstFail
			}
		}
		if oldestIP == "" {
			return
		}
		delete(g.records, oldestIP)
	}
}

// BruteForceMiddleware returns middleware that rejects requests from locked-out IPs
// before their token is checked.
func BruteForceMiddleware(guard *BruteForceGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if guard.IsBlocked(c.ClientIP()) {
			respondError(c, http.StatusTooManyRequests, "rate_limited", "too many failed authentication attempts")
			return
		}

		c.Next()
	}
}
