// room/manager.go
package room

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drinkcal/roomserver/logger"
	"github.com/drinkcal/roomserver/models"
	"github.com/drinkcal/roomserver/timer"
)

// Manager owns every live room. Rooms whose last participant left are
// closed after emptyTTL; a room that gains a member before the timer
// fires survives.
type Manager struct {
	rooms    map[string]*Room
	mutex    sync.RWMutex
	timers   *timer.Manager
	emptyTTL time.Duration
	metrics  Metrics
}

func NewRoomManager(timers *timer.Manager, emptyTTL time.Duration) *Manager {
	return &Manager{
		rooms:    make(map[string]*Room),
		timers:   timers,
		emptyTTL: emptyTTL,
	}
}

func (m *Manager) SetMetrics(metrics Metrics) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.metrics = metrics
}

// CreateRoom validates and registers a new room with the creator as its
// first participant.
func (m *Manager) CreateRoom(name, gameType string, maxParticipants int, creator models.Participant, broadcaster Broadcaster, recorder Recorder) (*Room, error) {
	room, err := NewRoom(uuid.New().String(), name, gameType, maxParticipants, creator, broadcaster, recorder)
	if err != nil {
		return nil, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	room.SetMetrics(m.metrics)
	m.rooms[room.ID] = room
	m.reportActiveRooms()
	return room, nil
}

// RemoveRoom drops the room and, with it, its chat log.
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.rooms, id)
	m.reportActiveRooms()
}

func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	room, exists := m.rooms[id]
	return room, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// ListByGameType returns summaries for the room browser, newest first.
func (m *Manager) ListByGameType(gameType string) []Summary {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []Summary
	for _, room := range m.rooms {
		if room.GameType == gameType {
			result = append(result, room.Summary())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// ScheduleExpiry arms the empty-room timer for roomID. Emptiness is
// re-checked when the timer fires, so a room someone rejoined is spared.
func (m *Manager) ScheduleExpiry(roomID string) {
	if m.timers == nil || m.emptyTTL <= 0 {
		return
	}
	m.timers.AddTimer(m.emptyTTL, 0, func() {
		room, exists := m.GetRoom(roomID)
		if !exists || room.ParticipantCount() > 0 {
			return
		}
		logger.Log.Infof("Closing empty room %s", roomID)
		m.RemoveRoom(roomID)
	})
}

func (m *Manager) reportActiveRooms() {
	if m.metrics != nil {
		m.metrics.SetActiveRooms(len(m.rooms))
	}
}
