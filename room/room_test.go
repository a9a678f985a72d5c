package room

import (
	"errors"
	"testing"

	"github.com/drinkcal/roomserver/models"
	"github.com/drinkcal/roomserver/network"
)

// MockBroadcaster is a test double for the Broadcaster interface. It
// records every broadcast so tests can count message types.
type MockBroadcaster struct {
	sent []uint16
}

func (m *MockBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	m.sent = append(m.sent, msgID)
	return nil
}

func (m *MockBroadcaster) countSent(msgID uint16) int {
	count := 0
	for _, id := range m.sent {
		if id == msgID {
			count++
		}
	}
	return count
}

// MockRecorder is a test double for the Recorder interface.
type MockRecorder struct {
	saved []*models.FinishedGame
}

func (m *MockRecorder) SaveFinishedGame(game *models.FinishedGame) error {
	m.saved = append(m.saved, game)
	return nil
}

// mockPlayer satisfies state.Player for HandleAction calls.
type mockPlayer struct {
	id     string
	userID string
}

func (m *mockPlayer) GetID() string     { return m.id }
func (m *mockPlayer) GetUserID() string { return m.userID }

func participant(userID, name string) models.Participant {
	return models.Participant{
		UserID:      userID,
		DisplayName: name,
		Email:       userID + "@example.com",
	}
}

func newTestRoom(t *testing.T, maxParticipants int) (*Room, *MockBroadcaster, *MockRecorder) {
	t.Helper()
	broadcaster := &MockBroadcaster{}
	recorder := &MockRecorder{}
	r, err := NewRoom("room1", "Test Room", "21", maxParticipants, participant("user1", "Alice"), broadcaster, recorder)
	if err != nil {
		t.Fatalf("NewRoom failed: %v", err)
	}
	return r, broadcaster, recorder
}

// startedRoom returns a room with three ready members and a running game.
func startedRoom(t *testing.T) (*Room, *MockBroadcaster, *MockRecorder) {
	t.Helper()
	r, broadcaster, recorder := newTestRoom(t, 4)

	if err := r.Join(participant("user2", "Bob")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := r.Join(participant("user3", "Carol")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	for _, id := range []string{"user1", "user2", "user3"} {
		if err := r.ToggleReady(id); err != nil {
			t.Fatalf("ToggleReady(%s) failed: %v", id, err)
		}
	}
	if err := r.ToggleGameStatus("user1"); err != nil {
		t.Fatalf("ToggleGameStatus failed: %v", err)
	}
	return r, broadcaster, recorder
}

func act(t *testing.T, r *Room, userID, actionType string) {
	t.Helper()
	player := &mockPlayer{id: "sess_" + userID, userID: userID}
	if err := r.HandleAction(player, []byte(`{"type":"`+actionType+`"}`)); err != nil {
		t.Fatalf("HandleAction(%s, %s) failed: %v", userID, actionType, err)
	}
}

func TestNewRoom_Validation(t *testing.T) {
	broadcaster := &MockBroadcaster{}
	recorder := &MockRecorder{}

	_, err := NewRoom("room1", "   ", "21", 4, participant("user1", "Alice"), broadcaster, recorder)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for a blank name, got %v", err)
	}

	_, err = NewRoom("room1", "Test", "21", 1, participant("user1", "Alice"), broadcaster, recorder)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for max participants below 2, got %v", err)
	}

	_, err = NewRoom("room1", "Test", "21", 7, participant("user1", "Alice"), broadcaster, recorder)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for max participants above 6, got %v", err)
	}
}

func TestRoomManager_CreateAndGetRoom(t *testing.T) {
	manager := NewRoomManager(nil, 0)
	broadcaster := &MockBroadcaster{}
	recorder := &MockRecorder{}

	room, err := manager.CreateRoom("Test Room", "21", 4, participant("user1", "Alice"), broadcaster, recorder)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if room.ID == "" {
		t.Fatal("CreateRoom should assign a room ID")
	}

	retrieved, exists := manager.GetRoom(room.ID)
	if !exists {
		t.Fatal("GetRoom should find the created room")
	}
	if retrieved != room {
		t.Error("GetRoom should return the same room instance")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected room count to be 1, got %d", manager.Count())
	}

	manager.RemoveRoom(room.ID)
	if manager.Count() != 0 {
		t.Errorf("Expected room count to be 0 after removal, got %d", manager.Count())
	}
}

func TestRoomManager_ListByGameType(t *testing.T) {
	manager := NewRoomManager(nil, 0)
	broadcaster := &MockBroadcaster{}
	recorder := &MockRecorder{}

	if _, err := manager.CreateRoom("Room A", "21", 4, participant("user1", "Alice"), broadcaster, recorder); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if _, err := manager.CreateRoom("Room B", "other", 4, participant("user2", "Bob"), broadcaster, recorder); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	summaries := manager.ListByGameType("21")
	if len(summaries) != 1 {
		t.Fatalf("Expected 1 room of type 21, got %d", len(summaries))
	}
	if summaries[0].Name != "Room A" {
		t.Errorf("Expected Room A, got %s", summaries[0].Name)
	}
	if summaries[0].Participants != 1 {
		t.Errorf("Expected 1 participant in summary, got %d", summaries[0].Participants)
	}
}

func TestRoom_Join_Duplicate(t *testing.T) {
	r, _, _ := newTestRoom(t, 4)

	if err := r.Join(participant("user2", "Bob")); err != nil {
		t.Fatalf("First join failed: %v", err)
	}
	if err := r.Join(participant("user2", "Bob")); !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("Expected ErrAlreadyMember, got %v", err)
	}
	if r.ParticipantCount() != 2 {
		t.Errorf("Expected 2 participants, got %d", r.ParticipantCount())
	}
}

func TestRoom_Join_Full(t *testing.T) {
	r, _, _ := newTestRoom(t, 2)

	if err := r.Join(participant("user2", "Bob")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := r.Join(participant("user3", "Carol")); !errors.Is(err, ErrRoomFull) {
		t.Errorf("Expected ErrRoomFull, got %v", err)
	}
	if r.ParticipantCount() != 2 {
		t.Errorf("Expected 2 participants after trying to join a full room, got %d", r.ParticipantCount())
	}
}

func TestRoom_Leave(t *testing.T) {
	r, _, _ := newTestRoom(t, 4)

	if err := r.Join(participant("user2", "Bob")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := r.Leave("user2"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if r.IsMember("user2") {
		t.Error("user2 should no longer be a member")
	}
	if err := r.Leave("stranger"); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember for a stranger, got %v", err)
	}
}

func TestRoom_Kick(t *testing.T) {
	r, _, _ := newTestRoom(t, 4)

	if err := r.Join(participant("user2", "Bob")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if err := r.Kick("user2", "user1"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized when a non-creator kicks, got %v", err)
	}

	// Kicking someone who already left is a silent no-op.
	if err := r.Kick("user1", "ghost"); err != nil {
		t.Errorf("Kicking an absent user should be a no-op, got %v", err)
	}

	if err := r.Kick("user1", "user2"); err != nil {
		t.Fatalf("Kick failed: %v", err)
	}
	if r.IsMember("user2") {
		t.Error("user2 should have been removed")
	}
}

func TestRoom_ToggleGameStatus_RequiresAllReady(t *testing.T) {
	r, _, _ := newTestRoom(t, 4)

	if err := r.Join(participant("user2", "Bob")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := r.ToggleReady("user1"); err != nil {
		t.Fatalf("ToggleReady failed: %v", err)
	}

	err := r.ToggleGameStatus("user1")
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("Expected ErrNotReady while a participant is not ready, got %v", err)
	}
	if r.Status() != StatusWaiting {
		t.Error("A refused start must leave the room in waiting status")
	}

	if err := r.ToggleReady("user2"); err != nil {
		t.Fatalf("ToggleReady failed: %v", err)
	}
	if err := r.ToggleGameStatus("user1"); err != nil {
		t.Fatalf("ToggleGameStatus should succeed once everyone is ready: %v", err)
	}
	if r.Status() != StatusStarted {
		t.Error("Room should be started")
	}
}

func TestRoom_ToggleGameStatus_CreatorOnly(t *testing.T) {
	r, _, _ := newTestRoom(t, 4)

	if err := r.Join(participant("user2", "Bob")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := r.ToggleGameStatus("user2"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized, got %v", err)
	}
}

func TestRoom_StartDealsGame(t *testing.T) {
	r, broadcaster, _ := startedRoom(t)

	if r.GameNumber() != 1 {
		t.Errorf("Expected game number 1 after the first start, got %d", r.GameNumber())
	}
	if broadcaster.countSent(network.MsgTypeGameStart) != 1 {
		t.Errorf("Expected exactly one game start broadcast, got %d", broadcaster.countSent(network.MsgTypeGameStart))
	}
}

func TestRoom_StopAndRestart_KeepsGame(t *testing.T) {
	r, broadcaster, _ := startedRoom(t)

	if err := r.ToggleGameStatus("user1"); err != nil {
		t.Fatalf("Stopping the game failed: %v", err)
	}
	if r.Status() != StatusWaiting {
		t.Error("Room should be back in waiting status")
	}

	if err := r.ToggleGameStatus("user1"); err != nil {
		t.Fatalf("Restarting the game failed: %v", err)
	}
	if r.GameNumber() != 1 {
		t.Errorf("Restart must not deal a fresh game; expected game number 1, got %d", r.GameNumber())
	}
	if broadcaster.countSent(network.MsgTypeGameStart) != 1 {
		t.Errorf("Expected no additional game start broadcast on restart, got %d", broadcaster.countSent(network.MsgTypeGameStart))
	}
}

func TestRoom_FullRound_AllStand(t *testing.T) {
	r, broadcaster, recorder := startedRoom(t)

	// Nobody can bust on the two dealt cards, so standing everyone ends
	// the round with a winner.
	act(t, r, "user1", "stand")
	act(t, r, "user2", "stand")
	act(t, r, "user3", "stand")

	if len(recorder.saved) != 1 {
		t.Fatalf("Expected exactly one finished game record, got %d", len(recorder.saved))
	}
	fg := recorder.saved[0]
	if fg.Winner == nil {
		t.Fatal("Expected a winner when nobody busted")
	}
	if fg.PlayersCount != 3 || len(fg.Participants) != 3 {
		t.Errorf("Expected 3 players in the record, got count=%d participants=%d", fg.PlayersCount, len(fg.Participants))
	}
	if fg.GameNumber != 1 {
		t.Errorf("Expected game number 1, got %d", fg.GameNumber)
	}
	if broadcaster.countSent(network.MsgTypeGameEnd) != 1 {
		t.Errorf("Expected exactly one game end broadcast, got %d", broadcaster.countSent(network.MsgTypeGameEnd))
	}
}

func TestRoom_HandleAction_OutOfTurnIgnored(t *testing.T) {
	r, broadcaster, _ := startedRoom(t)

	before := broadcaster.countSent(network.MsgTypeGameSync)
	act(t, r, "user2", "hit") // user1 is to act
	if broadcaster.countSent(network.MsgTypeGameSync) != before {
		t.Error("An out-of-turn hit must be dropped without a game sync")
	}
}

func TestRoom_ActionsAfterRoundEndIgnored(t *testing.T) {
	r, _, recorder := startedRoom(t)

	act(t, r, "user1", "stand")
	act(t, r, "user2", "stand")
	act(t, r, "user3", "stand")

	act(t, r, "user1", "hit")
	act(t, r, "user1", "stand")

	if len(recorder.saved) != 1 {
		t.Errorf("Actions after the round ended must not produce more records, got %d", len(recorder.saved))
	}
}

func TestRoom_NewGameAfterRound(t *testing.T) {
	r, broadcaster, _ := startedRoom(t)

	// A new game request mid-round is ignored.
	act(t, r, "user1", "new_game")
	if r.GameNumber() != 1 {
		t.Fatalf("A new game must not start mid-round, game number is %d", r.GameNumber())
	}

	act(t, r, "user1", "stand")
	act(t, r, "user2", "stand")
	act(t, r, "user3", "stand")

	// Only the creator can deal the next game.
	act(t, r, "user2", "new_game")
	if r.GameNumber() != 1 {
		t.Fatalf("A non-creator must not start a new game, game number is %d", r.GameNumber())
	}

	act(t, r, "user1", "new_game")
	if r.GameNumber() != 2 {
		t.Errorf("Expected game number 2 after the creator's new game, got %d", r.GameNumber())
	}
	if broadcaster.countSent(network.MsgTypeGameStart) != 2 {
		t.Errorf("Expected a second game start broadcast, got %d", broadcaster.countSent(network.MsgTypeGameStart))
	}
}

func TestRoom_PostChat(t *testing.T) {
	r, broadcaster, _ := newTestRoom(t, 4)

	if err := r.PostChat(participant("stranger", "Eve"), "hello"); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember for a stranger, got %v", err)
	}
	if err := r.PostChat(participant("user1", "Alice"), "   "); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for a blank message, got %v", err)
	}

	if err := r.PostChat(participant("user1", "Alice"), "hello room"); err != nil {
		t.Fatalf("PostChat failed: %v", err)
	}

	messages := r.Messages()
	if len(messages) != 1 {
		t.Fatalf("Expected 1 chat message, got %d", len(messages))
	}
	if messages[0].Message != "hello room" || messages[0].UserID != "user1" {
		t.Errorf("Unexpected chat message: %+v", messages[0])
	}
	if broadcaster.countSent(network.MsgTypeChatMessage) != 1 {
		t.Errorf("Expected one chat broadcast, got %d", broadcaster.countSent(network.MsgTypeChatMessage))
	}
}

func TestRoom_SystemMessagesInChatLog(t *testing.T) {
	r, _, _ := newTestRoom(t, 4)

	if err := r.Join(participant("user2", "Bob")); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	messages := r.Messages()
	if len(messages) != 1 {
		t.Fatalf("Expected 1 system message after a join, got %d", len(messages))
	}
	if messages[0].Type != models.MessageTypeSystem {
		t.Errorf("Expected a system message, got type %q", messages[0].Type)
	}
}

func TestRoom_Delete(t *testing.T) {
	r, broadcaster, _ := newTestRoom(t, 4)

	if err := r.Delete("user2"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized when a non-creator deletes, got %v", err)
	}
	if err := r.Delete("user1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if broadcaster.countSent(network.MsgTypeRoomClosed) != 1 {
		t.Errorf("Expected one room closed broadcast, got %d", broadcaster.countSent(network.MsgTypeRoomClosed))
	}
}
