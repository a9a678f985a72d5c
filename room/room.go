// room/room.go
package room

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drinkcal/roomserver/game"
	"github.com/drinkcal/roomserver/logger"
	"github.com/drinkcal/roomserver/models"
	"github.com/drinkcal/roomserver/network"
	"github.com/drinkcal/roomserver/state"
)

// Status is the room's membership-facing status.
type Status int

const (
	StatusWaiting Status = iota
	StatusStarted
)

func (s Status) String() string {
	if s == StatusStarted {
		return "started"
	}
	return "waiting"
}

// Room is a shared multiplayer session: an ordered participant list, a
// chat log and at most one active card game. The server owns the room;
// every mutation is serialized under mu, so precondition checks always see
// the authoritative state and round-resolution side effects fire exactly
// once.
type Room struct {
	ID              string
	Name            string
	GameType        string
	CreatedBy       string
	CreatedAt       time.Time
	MaxParticipants int

	status       Status
	gameNumber   int
	participants []models.Participant // insertion order = join order
	gameState    *game.State
	messages     []models.ChatMessage

	StateMachine state.StateMachine
	broadcaster  Broadcaster
	recorder     Recorder
	metrics      Metrics
	rng          *rand.Rand
	mu           sync.Mutex
}

// NewRoom creates a room with the creator as its only (not ready)
// participant.
func NewRoom(id, name, gameType string, maxParticipants int, creator models.Participant, broadcaster Broadcaster, recorder Recorder) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrValidation)
	}
	if maxParticipants < 2 || maxParticipants > 6 {
		return nil, fmt.Errorf("%w: max participants must be between 2 and 6", ErrValidation)
	}

	creator.JoinedAt = time.Now()
	creator.Ready = false

	r := &Room{
		ID:              id,
		Name:            name,
		GameType:        gameType,
		CreatedBy:       creator.UserID,
		CreatedAt:       time.Now(),
		MaxParticipants: maxParticipants,
		status:          StatusWaiting,
		participants:    []models.Participant{creator},
		broadcaster:     broadcaster,
		recorder:        recorder,
	}

	waiting := state.NewWaitingState(r)
	r.StateMachine = state.NewBaseStateMachine(waiting)
	// The start gate: the waiting -> playing transition is refused until
	// every participant has readied up.
	r.StateMachine.AddTransition(waiting, state.NewPlayingState(r), func() bool {
		return len(r.participants) > 0 && r.allReady()
	})

	return r, nil
}

// --- server-facing operations (these take the room lock) ---

// Join appends a new participant. The identity fields of p are the
// snapshot kept for the lifetime of the membership.
func (r *Room) Join(p models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findParticipant(p.UserID) != nil {
		return ErrAlreadyMember
	}
	if len(r.participants) >= r.MaxParticipants {
		return ErrRoomFull
	}

	p.JoinedAt = time.Now()
	p.Ready = false
	r.participants = append(r.participants, p)

	r.systemMessage(fmt.Sprintf("%s joined the room", p.DisplayName))
	r.broadcastState()
	return nil
}

// Leave removes the caller from the participant list.
func (r *Room) Leave(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findParticipant(userID)
	if p == nil {
		return ErrNotMember
	}
	name := p.DisplayName
	r.removeParticipant(userID)

	r.systemMessage(fmt.Sprintf("%s left the room", name))
	r.broadcastState()
	return nil
}

// Kick removes the target participant. Creator only; kicking a user who
// is not in the room is a no-op.
func (r *Room) Kick(callerID, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if callerID != r.CreatedBy {
		return ErrNotAuthorized
	}
	p := r.findParticipant(targetID)
	if p == nil {
		return nil
	}
	name := p.DisplayName
	r.removeParticipant(targetID)

	r.systemMessage(fmt.Sprintf("%s was kicked from the room", name))
	r.broadcastState()
	return nil
}

// ToggleReady flips the caller's ready flag.
func (r *Room) ToggleReady(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findParticipant(userID)
	if p == nil {
		return ErrNotMember
	}
	p.Ready = !p.Ready

	statusText := "not ready"
	if p.Ready {
		statusText = "ready"
	}
	r.systemMessage(fmt.Sprintf("%s is now %s", p.DisplayName, statusText))
	r.broadcastState()
	return nil
}

// ToggleGameStatus starts or stops the game. Creator only. Starting is
// refused until every participant is ready; stopping is always permitted.
// The first start (and any start with no game state present) deals a round.
func (r *Room) ToggleGameStatus(callerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if callerID != r.CreatedBy {
		return ErrNotAuthorized
	}

	if r.status == StatusStarted {
		r.status = StatusWaiting
		if err := r.StateMachine.ChangeState(state.NewWaitingState(r)); err != nil {
			logger.Log.Errorf("Room %s failed to enter waiting state: %v", r.ID, err)
		}
		r.systemMessage("Game ended.")
		r.broadcastState()
		return nil
	}

	r.status = StatusStarted
	if err := r.StateMachine.ChangeState(state.NewPlayingState(r)); err != nil {
		r.status = StatusWaiting
		return ErrNotReady
	}
	r.systemMessage("Game started!")
	r.broadcastState()
	return nil
}

// Delete notifies members that the room is closing. The manager removes
// the room (and with it the chat log) afterwards.
func (r *Room) Delete(callerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if callerID != r.CreatedBy {
		return ErrNotAuthorized
	}

	notice := map[string]string{
		"roomId": r.ID,
		"reason": "Room was closed by the owner",
	}
	data, _ := json.Marshal(notice)
	r.broadcaster.BroadcastToRoom(r.ID, network.MsgTypeRoomClosed, data)
	return nil
}

// PostChat appends a user-authored chat message. Members only; blank
// messages are rejected.
func (r *Room) PostChat(author models.Participant, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findParticipant(author.UserID) == nil {
		return ErrNotMember
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: message is empty", ErrValidation)
	}

	msg := models.ChatMessage{
		ID:          uuid.New().String(),
		UserID:      author.UserID,
		DisplayName: author.DisplayName,
		Email:       author.Email,
		PhotoURL:    author.PhotoURL,
		Message:     text,
		Timestamp:   time.Now(),
	}
	r.appendMessage(msg)
	return nil
}

// HandleAction routes an in-game action through the current lifecycle
// state, which drops it when no game is running.
func (r *Room) HandleAction(player state.Player, actionData []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.StateMachine.GetCurrentState().HandleAction(player, actionData)
}

// Messages returns a copy of the chat log, oldest first.
func (r *Room) Messages() []models.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]models.ChatMessage, len(r.messages))
	copy(msgs, r.messages)
	return msgs
}

func (r *Room) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

func (r *Room) IsMember(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findParticipant(userID) != nil
}

func (r *Room) GameNumber() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gameNumber
}

func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Room) SetMetrics(m Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// StateJSON marshals the full room snapshot, for sending to a single
// session (joins, reconnects).
func (r *Room) StateJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.Marshal(r.snapshot())
}

// Summary is the listing view shown in the room browser.
type Summary struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	GameType        string    `json:"gameType"`
	CreatedBy       string    `json:"createdBy"`
	CreatedAt       time.Time `json:"createdAt"`
	MaxParticipants int       `json:"maxParticipants"`
	Status          string    `json:"status"`
	Participants    int       `json:"participants"`
	GameNumber      int       `json:"gameNumber"`
}

func (r *Room) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Summary{
		ID:              r.ID,
		Name:            r.Name,
		GameType:        r.GameType,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		MaxParticipants: r.MaxParticipants,
		Status:          r.status.String(),
		Participants:    len(r.participants),
		GameNumber:      r.gameNumber,
	}
}

// --- state.RoomContext implementation ---
// Called by the state machine from within operations that already hold mu.

func (r *Room) GetID() string {
	return r.ID
}

func (r *Room) GetGameType() string {
	return r.GameType
}

func (r *Room) Broadcast(msgID uint16, data []byte) error {
	return r.broadcaster.BroadcastToRoom(r.ID, msgID, data)
}

// BeginRound deals the first round of a started game. It is idempotent:
// a game state left over from a stopped round is kept, and only an
// explicit new-game action replaces it.
func (r *Room) BeginRound() {
	if r.gameState != nil || len(r.participants) == 0 {
		return
	}
	r.deal()
}

// TakeCard applies a hit for userID. Illegal attempts (stale clients
// pressing buttons out of turn) are dropped.
func (r *Room) TakeCard(userID string) {
	if r.gameState == nil {
		return
	}
	_, outcome, endedNow := r.gameState.Hit(userID)
	if outcome.Ignored() {
		logger.Log.Debugf("Room %s: ignored hit by %s: %s", r.ID, userID, outcome)
		return
	}
	r.broadcastGame(network.MsgTypeGameSync)
	if endedNow {
		r.resolveRound()
	}
}

// Pass applies a stand for userID.
func (r *Room) Pass(userID string) {
	if r.gameState == nil {
		return
	}
	outcome, endedNow := r.gameState.Stand(userID)
	if outcome.Ignored() {
		logger.Log.Debugf("Room %s: ignored stand by %s: %s", r.ID, userID, outcome)
		return
	}
	r.broadcastGame(network.MsgTypeGameSync)
	if endedNow {
		r.resolveRound()
	}
}

// StartNewGame replaces a concluded round with a fresh deal from the
// current participant list. Creator only; silently ignored otherwise.
func (r *Room) StartNewGame(userID string) {
	if userID != r.CreatedBy {
		logger.Log.Debugf("Room %s: ignored new game request by non-creator %s", r.ID, userID)
		return
	}
	if r.gameState == nil || !r.gameState.RoundEnded {
		return
	}
	r.deal()
}

// --- internals (mu held) ---

func (r *Room) findParticipant(userID string) *models.Participant {
	for i := range r.participants {
		if r.participants[i].UserID == userID {
			return &r.participants[i]
		}
	}
	return nil
}

func (r *Room) removeParticipant(userID string) {
	for i := range r.participants {
		if r.participants[i].UserID == userID {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			return
		}
	}
}

func (r *Room) allReady() bool {
	for _, p := range r.participants {
		if !p.Ready {
			return false
		}
	}
	return true
}

// deal starts game number gameNumber+1 from the current participant list,
// in join order.
func (r *Room) deal() {
	seats := make([]game.Seat, len(r.participants))
	for i, p := range r.participants {
		seats[i] = game.Seat{UserID: p.UserID, DisplayName: p.DisplayName}
	}
	r.gameNumber++
	r.gameState = game.Deal(seats, r.rng)
	logger.Log.Infof("Room %s dealt game #%d for %d players", r.ID, r.gameNumber, len(seats))
	r.broadcastGame(network.MsgTypeGameStart)
}

// resolveRound runs the once-per-round completion side effects. It is
// reached only from the action that flipped roundEnded, so the chat
// announcement and the FinishedGame record cannot double-fire.
func (r *Room) resolveRound() {
	winner := r.gameState.Winner()

	fg := &models.FinishedGame{
		GameID:       uuid.New().String(),
		RoomID:       r.ID,
		GameType:     r.GameType,
		GameNumber:   r.gameNumber,
		PlayersCount: len(r.gameState.Players),
		Participants: make([]string, len(r.gameState.Players)),
		FinishedAt:   time.Now(),
	}
	for i, p := range r.gameState.Players {
		fg.Participants[i] = p.UserID
	}

	if winner != nil {
		score := game.HandValue(winner.Cards)
		fg.Winner = &models.WinnerSummary{
			UserID:      winner.UserID,
			DisplayName: winner.DisplayName,
			Score:       score,
		}
		r.systemMessage(fmt.Sprintf("🎉 %s wins with %d points!", winner.DisplayName, score))
	} else {
		r.systemMessage("All players busted! No winner.")
	}

	if err := r.recorder.SaveFinishedGame(fg); err != nil {
		// Losing the stats record is not fatal to the room.
		logger.Log.Errorf("Room %s: failed to save finished game %s: %v", r.ID, fg.GameID, err)
	}
	r.gameState.GameID = fg.GameID

	if r.metrics != nil {
		r.metrics.IncGamesFinished()
	}
	r.broadcastGame(network.MsgTypeGameEnd)
}

func (r *Room) systemMessage(text string) {
	msg := models.ChatMessage{
		ID:        uuid.New().String(),
		Type:      models.MessageTypeSystem,
		Message:   text,
		Timestamp: time.Now(),
	}
	r.appendMessage(msg)
}

func (r *Room) appendMessage(msg models.ChatMessage) {
	r.messages = append(r.messages, msg)
	data, _ := json.Marshal(msg)
	r.broadcaster.BroadcastToRoom(r.ID, network.MsgTypeChatMessage, data)
}

// snapshot is the full room view broadcast to members.
type snapshotView struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	GameType        string               `json:"gameType"`
	CreatedBy       string               `json:"createdBy"`
	CreatedAt       time.Time            `json:"createdAt"`
	MaxParticipants int                  `json:"maxParticipants"`
	Status          string               `json:"status"`
	GameNumber      int                  `json:"gameNumber"`
	Participants    []models.Participant `json:"participants"`
	GameState       *game.State          `json:"gameState,omitempty"`
}

func (r *Room) snapshot() snapshotView {
	participants := make([]models.Participant, len(r.participants))
	copy(participants, r.participants)
	return snapshotView{
		ID:              r.ID,
		Name:            r.Name,
		GameType:        r.GameType,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		MaxParticipants: r.MaxParticipants,
		Status:          r.status.String(),
		GameNumber:      r.gameNumber,
		Participants:    participants,
		GameState:       r.gameState,
	}
}

func (r *Room) broadcastState() {
	data, _ := json.Marshal(r.snapshot())
	r.broadcaster.BroadcastToRoom(r.ID, network.MsgTypeRoomState, data)
}

func (r *Room) broadcastGame(msgID uint16) {
	data, _ := json.Marshal(r.gameState)
	r.broadcaster.BroadcastToRoom(r.ID, msgID, data)
}
