package stealth

import "math/rand"

// Rotator steps through a proxy pool. The zero value (empty pool) is
// usable and always yields the empty proxy.
//
// Rotation policy: the retry loop advances the rotator only after a
// blocked attempt, and only when the pool has more than one entry —
// blocking is the symptom proxy diversity actually fixes, so challenge
// and timeout failures retry on the same egress.
type Rotator struct {
	pool  []string
	index int
}

// NewRotator creates a Rotator over the given pool. The pool slice is
// not copied; callers must not mutate it afterwards.
func NewRotator(pool []string) *Rotator {
	return &Rotator{pool: pool}
}

// Empty reports whether the rotator has no proxies.
func (r *Rotator) Empty() bool { return len(r.pool) == 0 }

// Size returns the pool size.
func (r *Rotator) Size() int { return len(r.pool) }

// Current returns the proxy the next attempt should use, or "" when the
// pool is empty.
func (r *Rotator) Current() string {
	if len(r.pool) == 0 {
		return ""
	}
	return r.pool[r.index]
}

// Index returns the current position in the pool.
func (r *Rotator) Index() int { return r.index }

// Advance moves to the next proxy with wrap-around. It is a no-op for
// pools of one or zero entries.
func (r *Rotator) Advance() {
	if len(r.pool) > 1 {
		r.index = (r.index + 1) % len(r.pool)
	}
}

// Pick returns a random proxy from the pool, or "" when empty. Used
// when a caller wants proxy diversity without positional state.
func (r *Rotator) Pick() string {
	if len(r.pool) == 0 {
		return ""
	}
	return r.pool[rand.Intn(len(r.pool))]
}
