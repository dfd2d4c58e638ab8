package mcp

import (
	"sort"
	"sync"
)

// SessionRegistry maps MCP session IDs to the graph each session last
// worked on. Tools called without a snapshot or graph_id fall back to it.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]string // sessionID → graphID
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]string)}
}

// Register sets the current graph of a session, replacing any previous one.
func (r *SessionRegistry) Register(sessionID, graphID string) {
	if sessionID == "" || graphID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = graphID
}

// GraphFor returns the current graph of a session.
func (r *SessionRegistry) GraphFor(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gid, ok := r.sessions[sessionID]
	return gid, ok
}

// SessionsFor returns the sessions whose current graph is graphID, sorted.
func (r *SessionRegistry) SessionsFor(graphID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for sid, gid := range r.sessions {
		if gid == graphID {
			out = append(out, sid)
		}
	}
	sort.Strings(out)
	return out
}

// Remove forgets a session. Called when it disconnects.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}
