package llm

import (
	"log"
	"strings"
	"sync"
	"time"
)

// DefaultCooldown is how long a slot rests after a rate-limit signal.
const DefaultCooldown = 60 * time.Second

// Credential is a leased slot from a CredentialPool.
type Credential struct {
	Index int
	Key   string
}

// CredentialStats is a point-in-time view of one slot.
type CredentialStats struct {
	Index         int        `json:"index"`
	KeySuffix     string     `json:"key_suffix"`
	LastUsed      *time.Time `json:"last_used,omitempty"`
	ErrorCount    int        `json:"error_count"`
	CoolingDown   bool       `json:"cooling_down"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
}

type credentialSlot struct {
	key           string
	lastUsed      time.Time
	errorCount    int
	cooldownUntil time.Time
}

// CredentialPool rotates round-robin over API keys. A slot that reports a rate limit
// is skipped until its cool-down elapses. Safe for concurrent use.
type CredentialPool struct {
	mu       sync.Mutex
	slots    []*credentialSlot
	cursor   int
	cooldown time.Duration
	now      func() time.Time
}

// PoolOption configures a CredentialPool.
type PoolOption func(*CredentialPool)

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) PoolOption {
	return func(p *CredentialPool) {
		if d >= 0 {
			p.cooldown = d
		}
	}
}

// WithClock sets the time source, mainly for tests.
func WithClock(now func() time.Time) PoolOption {
	return func(p *CredentialPool) {
		if now != nil {
			p.now = now
		}
	}
}

// NewCredentialPool builds a pool from keys, ignoring blanks and duplicates.
func NewCredentialPool(keys []string, opts ...PoolOption) (*CredentialPool, error) {
	p := &CredentialPool{cooldown: DefaultCooldown, now: time.Now}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		p.slots = append(p.slots, &credentialSlot{key: k})
	}
	if len(p.slots) == 0 {
		return nil, ErrNoCredentials
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Size returns the number of slots.
func (p *CredentialPool) Size() int {
	return len(p.slots)
}

// Acquire returns the slot at the cursor, advancing past slots that are still cooling down.
func (p *CredentialPool) Acquire() (Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.slots {
		slot := p.slots[p.cursor]
		if !slot.cooldownUntil.IsZero() && !now.Before(slot.cooldownUntil) {
			slot.cooldownUntil = time.Time{}
			log.Printf("[llm] credential %d cool-down elapsed", p.cursor)
		}
		if slot.cooldownUntil.IsZero() {
			return Credential{Index: p.cursor, Key: slot.key}, nil
		}
		p.cursor = (p.cursor + 1) % len(p.slots)
	}
	return Credential{}, ErrAllCredentialsCoolingDown
}

// MarkSucceeded records a successful call and rotates to spread load.
func (p *CredentialPool) MarkSucceeded(c Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()

	slot, ok := p.slot(c)
	if !ok {
		return
	}
	slot.lastUsed = p.now()
	slot.errorCount = 0
	p.cursor = (c.Index + 1) % len(p.slots)
}

// MarkRateLimited puts the slot into cool-down and rotates away from it.
func (p *CredentialPool) MarkRateLimited(c Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()

	slot, ok := p.slot(c)
	if !ok {
		return
	}
	slot.cooldownUntil = p.now().Add(p.cooldown)
	slot.errorCount++
	p.cursor = (c.Index + 1) % len(p.slots)
	log.Printf("[llm] credential %d rate limited for %s", c.Index, p.cooldown)
}

// MarkFailed counts a non rate-limit failure. The cursor does not move.
func (p *CredentialPool) MarkFailed(c Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if slot, ok := p.slot(c); ok {
		slot.errorCount++
	}
}

// Stats returns a snapshot of every slot.
func (p *CredentialPool) Stats() []CredentialStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	stats := make([]CredentialStats, len(p.slots))
	for i, slot := range p.slots {
		s := CredentialStats{
			Index:      i,
			KeySuffix:  keySuffix(slot.key),
			ErrorCount: slot.errorCount,
		}
		if !slot.lastUsed.IsZero() {
			t := slot.lastUsed
			s.LastUsed = &t
		}
		if !slot.cooldownUntil.IsZero() && now.Before(slot.cooldownUntil) {
			t := slot.cooldownUntil
			s.CoolingDown = true
			s.CooldownUntil = &t
		}
		stats[i] = s
	}
	return stats
}

// slot must be called with p.mu held.
func (p *CredentialPool) slot(c Credential) (*credentialSlot, bool) {
	if c.Index < 0 || c.Index >= len(p.slots) || p.slots[c.Index].key != c.Key {
		return nil, false
	}
	return p.slots[c.Index], true
}

func keySuffix(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "..." + key[len(key)-4:]
}
