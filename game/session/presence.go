package session

import "sync"

// Presence tracks which session each connection is attached to.
// A connection belongs to at most one session at a time.
type Presence struct {
	mu     sync.Mutex
	byConn map[string]*Session
}

// NewPresence creates an empty tracker.
func NewPresence() *Presence {
	return &Presence{byConn: make(map[string]*Session)}
}

// Attach adds connID to sess, detaching it from the session it was attached
// to before. previous is that earlier session, or nil.
func (p *Presence) Attach(connID string, sess *Session) (previous *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if current, ok := p.byConn[connID]; ok && current != sess {
		current.detach(connID)
		previous = current
	}
	p.byConn[connID] = sess
	sess.attach(connID)
	return previous
}

// Detach removes connID from its session and returns that session, or nil if
// the connection was not attached. The session itself is left in place even
// when it becomes empty.
func (p *Presence) Detach(connID string) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	sess, ok := p.byConn[connID]
	if !ok {
		return nil
	}
	delete(p.byConn, connID)
	sess.detach(connID)
	return sess
}

// SessionOf returns the session connID is attached to, or nil.
func (p *Presence) SessionOf(connID string) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byConn[connID]
}
