package presence

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Session is one live connection with the profile that was current when the
// user connected. The dispatch path treats the cached profile as possibly
// stale and re-checks eligibility against it rather than trusting presence
// alone.
type Session struct {
	UserID   string
	SchoolID string
	Role     string
	ClassID  string

	conn *websocket.Conn
	mu   sync.Mutex // gorilla conns allow one concurrent writer
}

func NewSession(conn *websocket.Conn, userID, schoolID, role, classID string) *Session {
	return &Session{
		UserID:   userID,
		SchoolID: schoolID,
		Role:     role,
		ClassID:  classID,
		conn:     conn,
	}
}

func (s *Session) Send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *Session) Close() error {
	return s.conn.Close()
}

// Registry is the in-process connected-session directory. The websocket
// handler is its only writer; everything else takes read snapshots.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string][]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string][]*Session)}
}

func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	r.sessions[s.UserID] = append(r.sessions[s.UserID], s)
	r.mu.Unlock()
}

func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.sessions[s.UserID]
	for i, existing := range list {
		if existing == s {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.sessions, s.UserID)
	} else {
		r.sessions[s.UserID] = list
	}
}

// SnapshotFor returns a copy of the user's current sessions so emission
// happens outside the lock.
func (r *Registry) SnapshotFor(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.sessions[userID]
	if len(list) == 0 {
		return nil
	}
	out := make([]*Session, len(list))
	copy(out, list)
	return out
}

func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
