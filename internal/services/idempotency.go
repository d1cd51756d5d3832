package services

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"donation-api/pkg/logging"
)

// IdempotencyState is the outcome of IdempotencyGuard.Begin.
type IdempotencyState int

const (
	// IdempotencyNew means the key was reserved for this request.
	IdempotencyNew IdempotencyState = iota
	// IdempotencyInFlight means another request holding the key has not finished.
	IdempotencyInFlight
	// IdempotencyDone means the key already produced a transaction.
	IdempotencyDone
)

type idempotencyEntry struct {
	transactionID string
	recordedAt    time.Time
}

// IdempotencyGuard remembers which transaction a client-supplied Idempotency-Key
// produced, so a retried create returns the original transaction.
type IdempotencyGuard struct {
	entries         map[string]idempotencyEntry
	mutex           sync.Mutex
	cleanupInterval time.Duration
	ttl             time.Duration
	stopCleanup     chan struct{}
	now             func() time.Time
}

// NewIdempotencyGuard creates a guard that forgets keys after ttl
func NewIdempotencyGuard(ttl time.Duration) *IdempotencyGuard {
	g := &IdempotencyGuard{
		entries:         make(map[string]idempotencyEntry),
		cleanupInterval: time.Hour, // 每小时清理一次
		ttl:             ttl,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}

	// 启动清理协程
	go g.startCleanupRoutine()

	return g
}

// Begin reserves key or reports the transaction it already produced.
func (g *IdempotencyGuard) Begin(key string) (string, IdempotencyState) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	id := hashKey(key)
	if entry, exists := g.entries[id]; exists && g.now().Sub(entry.recordedAt) <= g.ttl {
		if entry.transactionID == "" {
			return "", IdempotencyInFlight
		}
		logging.Infof("Idempotent replay - key: %s, transaction: %s", id[:12], entry.transactionID)
		return entry.transactionID, IdempotencyDone
	}

	g.entries[id] = idempotencyEntry{recordedAt: g.now()}
	return "", IdempotencyNew
}

// Complete records the transaction created under key.
func (g *IdempotencyGuard) Complete(key, transactionID string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.entries[hashKey(key)] = idempotencyEntry{transactionID: transactionID, recordedAt: g.now()}
}

// Release forgets a reservation whose request failed, so the client may retry.
func (g *IdempotencyGuard) Release(key string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	delete(g.entries, hashKey(key))
}

func hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

func (g *IdempotencyGuard) startCleanupRoutine() {
	ticker := time.NewTicker(g.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.cleanup()
		case <-g.stopCleanup:
			return
		}
	}
}

// cleanup 清理过期的记录
func (g *IdempotencyGuard) cleanup() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	now := g.now()
	initialCount := len(g.entries)

	for id, entry := range g.entries {
		if now.Sub(entry.recordedAt) > g.ttl {
			delete(g.entries, id)
		}
	}

	if cleaned := initialCount - len(g.entries); cleaned > 0 {
		logging.Infof("Idempotency cleanup: removed %d expired keys, remaining: %d", cleaned, len(g.entries))
	}
}

// Stop 停止清理协程
func (g *IdempotencyGuard) Stop() {
	close(g.stopCleanup)
}
