package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/use-agent/prowl/engine"
	"github.com/use-agent/prowl/stealth"
)

// Session pairs a live engine session with the profile fingerprint it
// was created from and its last-used timestamp.
type Session struct {
	// ID is empty for the implicit global session.
	ID string

	// Engine is the underlying engine session handle.
	Engine engine.Session

	fingerprint string
	lastUsed    time.Time
}

// Registry owns the long-lived sessions shared across tool calls. All
// map access is mutex-guarded; the registry is injected into handlers
// rather than living in package state.
//
// Two independent stores:
//
//   - one implicit global slot keyed by profile equality: a request
//     with an equal profile reuses the live session, anything else
//     closes and recreates it
//   - named sessions keyed by caller-supplied or generated id, with no
//     profile-based eviction — callers own their lifecycle via the id
//
// Concurrent fetches on the SAME session id are not serialized here;
// that is documented caller responsibility.
type Registry struct {
	mu     sync.Mutex
	engine engine.Engine

	global *Session
	named  map[string]*Session

	// maxNamed bounds the named map; the least recently used session is
	// evicted (and closed) on overflow so long-running deployments do
	// not accumulate sessions forever.
	maxNamed int
}

// DefaultMaxNamedSessions bounds the named-session map unless the
// registry is configured otherwise.
const DefaultMaxNamedSessions = 32

// NewRegistry creates a Registry over the given engine. maxNamed <= 0
// selects DefaultMaxNamedSessions.
func NewRegistry(eng engine.Engine, maxNamed int) *Registry {
	if maxNamed <= 0 {
		maxNamed = DefaultMaxNamedSessions
	}
	return &Registry{
		engine:   eng,
		named:    make(map[string]*Session),
		maxNamed: maxNamed,
	}
}

// GetOrCreate returns the implicit global session when its profile
// equals the requested one and its engine handle is still alive;
// otherwise the old session is closed and a fresh one created.
func (r *Registry) GetOrCreate(ctx context.Context, profile *stealth.Profile) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fingerprint := profile.Fingerprint()
	if r.global != nil {
		if r.global.fingerprint == fingerprint && r.global.Engine.Alive() {
			r.global.lastUsed = time.Now()
			return r.global, nil
		}
		slog.Debug("global session stale, recreating",
			"profileChanged", r.global.fingerprint != fingerprint)
		r.closeLocked(r.global)
		r.global = nil
	}

	sess, err := r.engine.NewSession(ctx, profile)
	if err != nil {
		return nil, err
	}
	r.global = &Session{Engine: sess, fingerprint: fingerprint, lastUsed: time.Now()}
	return r.global, nil
}

// Named returns the session stored under id, creating it from the
// profile when absent. Lookup is by id only — a live named session is
// reused even when the requested profile differs from the one it was
// created with.
func (r *Registry) Named(ctx context.Context, id string, profile *stealth.Profile) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.named[id]; ok {
		if existing.Engine.Alive() {
			existing.lastUsed = time.Now()
			return existing, nil
		}
		r.closeLocked(existing)
		delete(r.named, id)
	}

	if len(r.named) >= r.maxNamed {
		r.evictOldestLocked()
	}

	sess, err := r.engine.NewSession(ctx, profile)
	if err != nil {
		return nil, err
	}
	created := &Session{
		ID:          id,
		Engine:      sess,
		fingerprint: profile.Fingerprint(),
		lastUsed:    time.Now(),
	}
	r.named[id] = created
	slog.Info("named session created", "sessionID", id, "total", len(r.named))
	return created, nil
}

// evictOldestLocked drops the least recently used named session.
func (r *Registry) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, sess := range r.named {
		if oldestID == "" || sess.lastUsed.Before(oldest) {
			oldestID, oldest = id, sess.lastUsed
		}
	}
	if oldestID != "" {
		slog.Info("evicting named session", "sessionID", oldestID, "lastUsed", oldest)
		r.closeLocked(r.named[oldestID])
		delete(r.named, oldestID)
	}
}

// Count returns the number of live named sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.named)
}

// CloseAll closes every held session, swallowing individual close
// errors, and clears both stores. Used on process shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.global != nil {
		r.closeLocked(r.global)
		r.global = nil
	}
	for id, sess := range r.named {
		r.closeLocked(sess)
		delete(r.named, id)
	}
	slog.Info("session registry cleared")
}

func (r *Registry) closeLocked(sess *Session) {
	if err := sess.Engine.Close(); err != nil {
		slog.Warn("session close failed", "sessionID", sess.ID, "error", err)
	}
}

// GenerateSessionID builds an id for callers that did not supply one:
// a UTC timestamp plus a random suffix.
func GenerateSessionID() string {
	return fmt.Sprintf("session_%s_%04d",
		time.Now().UTC().Format("20060102150405"),
		1000+rand.Intn(9000))
}
