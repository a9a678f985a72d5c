package state

import (
	"testing"
)

// MockState is a test double for the State interface.
// It helps us track which methods have been called.
type MockState struct {
	ID            string
	OnEnterCalled bool
	OnExitCalled  bool
}

func (m *MockState) OnEnter() {
	m.OnEnterCalled = true
}

func (m *MockState) OnExit() {
	m.OnExitCalled = true
}

func (m *MockState) GetID() string {
	return m.ID
}

func (m *MockState) HandleAction(player Player, actionData []byte) error {
	return nil
}

// reset clears the call tracking flags.
func (m *MockState) reset() {
	m.OnEnterCalled = false
	m.OnExitCalled = false
}

func TestStateMachine_InitialState(t *testing.T) {
	initialState := &MockState{ID: "initial"}
	sm := NewBaseStateMachine(initialState)

	if !initialState.OnEnterCalled {
		t.Error("Expected OnEnter to be called on the initial state")
	}

	if sm.GetCurrentState() != initialState {
		t.Error("GetCurrentState should return the initial state")
	}
}

func TestStateMachine_ChangeState(t *testing.T) {
	initialState := &MockState{ID: "initial"}
	nextState := &MockState{ID: "next"}

	sm := NewBaseStateMachine(initialState)
	initialState.reset() // Reset after initialization

	err := sm.ChangeState(nextState)
	if err != nil {
		t.Fatalf("ChangeState should not return an error, but got: %v", err)
	}

	if !initialState.OnExitCalled {
		t.Error("Expected OnExit to be called on the old state")
	}

	if !nextState.OnEnterCalled {
		t.Error("Expected OnEnter to be called on the new state")
	}

	if sm.GetCurrentState() != nextState {
		t.Error("GetCurrentState should return the new state")
	}
}

func TestStateMachine_AddAndUseTransition(t *testing.T) {
	stateA := &MockState{ID: "A"}
	stateB := &MockState{ID: "B"}
	stateC := &MockState{ID: "C"}

	sm := NewBaseStateMachine(stateA)

	// Add a valid transition from A to B
	err := sm.AddTransition(stateA, stateB, func() bool { return true })
	if err != nil {
		t.Fatalf("AddTransition failed: %v", err)
	}

	// Add a blocked transition from B to C
	err = sm.AddTransition(stateB, stateC, func() bool { return false })
	if err != nil {
		t.Fatalf("AddTransition failed: %v", err)
	}

	// --- Test valid transition ---
	stateA.reset()
	err = sm.ChangeState(stateB)
	if err != nil {
		t.Errorf("Expected transition from A to B to be allowed, but got error: %v", err)
	}
	if sm.GetCurrentState().GetID() != "B" {
		t.Errorf("Expected current state to be B, but got %s", sm.GetCurrentState().GetID())
	}

	// --- Test blocked transition ---
	stateB.reset()
	err = sm.ChangeState(stateC)
	if err != ErrTransitionNotAllowed {
		t.Errorf("Expected ErrTransitionNotAllowed, but got: %v", err)
	}
	if sm.GetCurrentState().GetID() != "B" {
		t.Errorf("Expected current state to remain B after a blocked transition, but got %s", sm.GetCurrentState().GetID())
	}
	if stateB.OnExitCalled {
		t.Error("OnExit should not be called on the current state if transition is blocked")
	}
	if stateC.OnEnterCalled {
		t.Error("OnEnter should not be called on the new state if transition is blocked")
	}
}

// mockRoom is a minimal RoomContext for exercising the playing state's
// action routing.
type mockRoom struct {
	takeCardCalls []string
	passCalls     []string
	newGameCalls  []string
}

func (m *mockRoom) GetID() string                          { return "room1" }
func (m *mockRoom) GetGameType() string                    { return "21" }
func (m *mockRoom) Broadcast(msgID uint16, d []byte) error { return nil }
func (m *mockRoom) BeginRound()                            {}

func (m *mockRoom) TakeCard(userID string) {
	m.takeCardCalls = append(m.takeCardCalls, userID)
}

func (m *mockRoom) Pass(userID string) {
	m.passCalls = append(m.passCalls, userID)
}

func (m *mockRoom) StartNewGame(userID string) {
	m.newGameCalls = append(m.newGameCalls, userID)
}

type mockPlayer struct {
	id     string
	userID string
}

func (m *mockPlayer) GetID() string     { return m.id }
func (m *mockPlayer) GetUserID() string { return m.userID }

func TestPlayingState_RoutesActions(t *testing.T) {
	room := &mockRoom{}
	playing := NewPlayingState(room)
	player := &mockPlayer{id: "sess1", userID: "user1"}

	if err := playing.HandleAction(player, []byte(`{"type":"hit"}`)); err != nil {
		t.Fatalf("hit action should not fail: %v", err)
	}
	if err := playing.HandleAction(player, []byte(`{"type":"stand"}`)); err != nil {
		t.Fatalf("stand action should not fail: %v", err)
	}
	if err := playing.HandleAction(player, []byte(`{"type":"new_game"}`)); err != nil {
		t.Fatalf("new_game action should not fail: %v", err)
	}

	if len(room.takeCardCalls) != 1 || room.takeCardCalls[0] != "user1" {
		t.Errorf("Expected one TakeCard call for user1, got %v", room.takeCardCalls)
	}
	if len(room.passCalls) != 1 || room.passCalls[0] != "user1" {
		t.Errorf("Expected one Pass call for user1, got %v", room.passCalls)
	}
	if len(room.newGameCalls) != 1 || room.newGameCalls[0] != "user1" {
		t.Errorf("Expected one StartNewGame call for user1, got %v", room.newGameCalls)
	}
}

func TestPlayingState_RejectsUnknownAction(t *testing.T) {
	room := &mockRoom{}
	playing := NewPlayingState(room)
	player := &mockPlayer{id: "sess1", userID: "user1"}

	if err := playing.HandleAction(player, []byte(`{"type":"fold"}`)); err == nil {
		t.Error("Expected an error for an unknown action type")
	}
	if err := playing.HandleAction(player, []byte(`not json`)); err == nil {
		t.Error("Expected an error for malformed action data")
	}
	if len(room.takeCardCalls)+len(room.passCalls)+len(room.newGameCalls) != 0 {
		t.Error("No room calls expected for rejected actions")
	}
}

func TestWaitingState_DropsActions(t *testing.T) {
	room := &mockRoom{}
	waiting := NewWaitingState(room)
	player := &mockPlayer{id: "sess1", userID: "user1"}

	if err := waiting.HandleAction(player, []byte(`{"type":"hit"}`)); err != nil {
		t.Fatalf("Waiting state should drop actions silently, got: %v", err)
	}
	if len(room.takeCardCalls) != 0 {
		t.Error("Waiting state should not forward game actions")
	}
}
