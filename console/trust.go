package console

import (
	"sync"
)

type TrustState int

const (
	RevokedTrust TrustState = iota
	GrantedTrust
)

// TrustSet tracks which sessions may issue commands. Trust is granted
// and revoked only by the session itself via the trust phrase, and lives
// only as long as the process.
type TrustSet struct {
	mu      sync.RWMutex
	trusted map[string]struct{}
}

func NewTrustSet() *TrustSet {
	return &TrustSet{
		trusted: map[string]struct{}{},
	}
}

// Toggle flips trust for a session and returns the new state.
func (t *TrustSet) Toggle(sessionID string) TrustState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, found := t.trusted[sessionID]; found {
		delete(t.trusted, sessionID)
		return RevokedTrust
	}
	t.trusted[sessionID] = struct{}{}
	return GrantedTrust
}

// IsTrusted is a pure membership check.
func (t *TrustSet) IsTrusted(sessionID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, found := t.trusted[sessionID]
	return found
}

// ObserverSet holds the sessions notified when someone without trust
// attempts a command. Membership is independent of trust: a session may
// be in neither set, either, or both.
type ObserverSet struct {
	mu        sync.RWMutex
	observers map[string]Session
}

func NewObserverSet() *ObserverSet {
	return &ObserverSet{
		observers: map[string]Session{},
	}
}

func (o *ObserverSet) Observe(sess Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers[sess.ID()] = sess
}

func (o *ObserverSet) Unobserve(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.observers, sessionID)
}

// Snapshot copies the current observers so notification can happen
// without holding the lock.
func (o *ObserverSet) Snapshot() []Session {
	o.mu.RLock()
	defer o.mu.RUnlock()
	result := make([]Session, 0, len(o.observers))
	for _, sess := range o.observers {
		result = append(result, sess)
	}
	return result
}
