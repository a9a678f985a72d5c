// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/drinkcal/roomserver/network"
)

// Session is one connected client. The identity fields are the snapshot
// delivered by the login handshake; the server trusts them as an opaque
// identity provider's output and copies them into room participants.
type Session struct {
	ID          string
	Conn        network.Connection
	UserID      string
	DisplayName string
	Email       string
	PhotoURL    string
	CreatedAt   time.Time

	// roomID and lastActive are written by other connections' goroutines
	// (kicks, broadcasts), so they stay behind the mutex.
	roomID     string
	lastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
	}
}

// SetIdentity installs the login snapshot. A blank display name falls back
// to the email so chat and participant lists always have a printable name.
func (s *Session) SetIdentity(userID, displayName, email, photoURL string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if displayName == "" {
		displayName = email
	}
	s.UserID = userID
	s.DisplayName = displayName
	s.Email = email
	s.PhotoURL = photoURL
}

// Authenticated reports whether the login handshake has completed.
func (s *Session) Authenticated() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.UserID != ""
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) GetUserID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.UserID
}

func (s *Session) GetRoomID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomID
}

func (s *Session) SetRoomID(roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomID = roomID
}

// Touch records client activity.
func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActive = time.Now()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager tracks all live sessions.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

func (m *Manager) GetByUserID(userID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.GetUserID() == userID {
			result = append(result, session)
		}
	}
	return result
}

func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// GetByRoomID returns every session currently attached to the room.
func (m *Manager) GetByRoomID(roomID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.GetRoomID() == roomID {
			result = append(result, session)
		}
	}
	return result
}

// DetachRoom clears the room binding of every session attached to roomID.
// Used when a room is deleted out from under its members.
func (m *Manager) DetachRoom(roomID string) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, session := range m.sessions {
		if session.GetRoomID() == roomID {
			session.SetRoomID("")
		}
	}
}

// DetachUserFromRoom clears the room binding of the user's sessions that
// are attached to roomID. Used when a member is kicked.
func (m *Manager) DetachUserFromRoom(userID, roomID string) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, session := range m.sessions {
		if session.GetUserID() == userID && session.GetRoomID() == roomID {
			session.SetRoomID("")
		}
	}
}
