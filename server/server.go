package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/drinkcal/roomserver/broadcast"
	"github.com/drinkcal/roomserver/logger"
	"github.com/drinkcal/roomserver/models"
	"github.com/drinkcal/roomserver/monitor"
	"github.com/drinkcal/roomserver/network"
	"github.com/drinkcal/roomserver/persistence"
	"github.com/drinkcal/roomserver/room"
	roomserver_rpc "github.com/drinkcal/roomserver/rpc"
	"github.com/drinkcal/roomserver/services"
	"github.com/drinkcal/roomserver/session"
	"github.com/drinkcal/roomserver/timer"
)

// GameServer ties the transport to the room layer: it upgrades
// websockets, runs the per-connection read loop and maps packets onto
// room operations. Clients must complete the login handshake before any
// other message is accepted.
type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	statsService   *services.StatsService
	db             persistence.Database
	broadcaster    broadcast.Broadcaster
	rpcServer      *roomserver_rpc.Server
	mon            *monitor.Monitor
	shutdownChan   chan struct{}
}

func NewGameServer(addr, rpcAddr string, db persistence.Database, timers *timer.Manager, emptyRoomTTL time.Duration) *GameServer {
	s := &GameServer{
		addr:           addr,
		roomManager:    room.NewRoomManager(timers, emptyRoomTTL),
		sessionManager: session.NewManager(),
		statsService:   services.NewStatsService(db),
		db:             db,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.broadcaster = broadcast.NewRoomBroadcaster(s.sessionManager)

	rpcServer, err := roomserver_rpc.NewServer(rpcAddr)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	statsRPC := roomserver_rpc.NewStatsRPC(s.statsService)
	rpc.Register(statsRPC)

	return s
}

// SetMonitor wires server metrics. Must be called before Start.
func (s *GameServer) SetMonitor(mon *monitor.Monitor) {
	s.mon = mon
	s.roomManager.SetMetrics(mon)
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Room server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.disconnect(sess)
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// disconnect treats a dropped connection as leaving the room: the
// participant entry goes away and the empty-room timer is armed if the
// room emptied out.
func (s *GameServer) disconnect(sess *session.Session) {
	s.sessionManager.Remove(sess.GetID())

	if roomID := sess.GetRoomID(); roomID != "" {
		if r, exists := s.roomManager.GetRoom(roomID); exists {
			if err := r.Leave(sess.GetUserID()); err != nil && !errors.Is(err, room.ErrNotMember) {
				logger.Log.Errorf("Session %s failed to leave room %s: %v", sess.GetID(), roomID, err)
			}
			if r.ParticipantCount() == 0 {
				s.roomManager.ScheduleExpiry(roomID)
			}
		}
		sess.SetRoomID("")
	}

	if s.mon != nil && sess.Authenticated() {
		s.mon.DecOnlinePlayers()
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	if s.mon != nil {
		s.mon.IncMessagesReceived()
	}

	if packet.MsgID == network.MsgTypeHeartbeat {
		sess.Touch()
		return
	}
	if packet.MsgID == network.MsgTypeLogin {
		s.handleLogin(sess, packet)
		return
	}
	if !sess.Authenticated() {
		s.sendError(sess, "not_authenticated", "login required")
		return
	}

	switch packet.MsgID {
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(sess, packet)
	case network.MsgTypeKickPlayer:
		s.handleKickPlayer(sess, packet)
	case network.MsgTypeDeleteRoom:
		s.handleDeleteRoom(sess, packet)
	case network.MsgTypeToggleReady:
		s.handleToggleReady(sess, packet)
	case network.MsgTypeToggleGame:
		s.handleToggleGame(sess, packet)
	case network.MsgTypeListRooms:
		s.handleListRooms(sess, packet)
	case network.MsgTypeRoomStats:
		s.handleRoomStats(sess, packet)
	case network.MsgTypePlayerAction:
		s.handleGameAction(sess, packet)
	case network.MsgTypeChatMessage:
		s.handleChatMessage(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

type loginRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
}

func (s *GameServer) handleLogin(sess *session.Session, packet *network.Packet) {
	var req loginRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.UserID == "" {
		s.sendError(sess, "bad_login", "login requires a user id")
		return
	}

	wasAuthenticated := sess.Authenticated()
	sess.SetIdentity(req.UserID, req.DisplayName, req.Email, req.PhotoURL)
	if s.mon != nil && !wasAuthenticated {
		s.mon.IncOnlinePlayers()
	}

	logger.Log.Infof("Session %s logged in as %s", sess.GetID(), req.UserID)

	resp := map[string]string{"sessionId": sess.GetID()}
	data, _ := json.Marshal(resp)
	sess.Send(network.MsgTypeLogin, data)
}

type createRoomRequest struct {
	Name            string `json:"name"`
	GameType        string `json:"gameType"`
	MaxParticipants int    `json:"maxParticipants"`
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	var req createRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "bad_request", "malformed create room request")
		return
	}
	if req.GameType == "" {
		req.GameType = "21"
	}

	r, err := s.roomManager.CreateRoom(req.Name, req.GameType, req.MaxParticipants, s.participantFor(sess), s.broadcaster, s.db)
	if err != nil {
		s.sendRoomError(sess, err)
		return
	}
	sess.SetRoomID(r.ID)

	logger.Log.Infof("Session %s created room %s (%q)", sess.GetID(), r.ID, r.Name)

	resp := map[string]string{"roomId": r.ID}
	data, _ := json.Marshal(resp)
	sess.Send(network.MsgTypeCreateRoom, data)
	s.sendRoomSnapshot(sess, r)
}

type joinRoomRequest struct {
	RoomID string `json:"roomId"`
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req joinRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "bad_request", "malformed join room request")
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomID)
	if !exists {
		s.sendRoomError(sess, room.ErrRoomNotFound)
		return
	}

	err := r.Join(s.participantFor(sess))
	if err != nil && !errors.Is(err, room.ErrAlreadyMember) {
		s.sendRoomError(sess, err)
		return
	}
	// Rejoining an open membership (a reconnect) is allowed; the session
	// just re-attaches.
	sess.SetRoomID(r.ID)

	logger.Log.Infof("Session %s joined room %s", sess.GetID(), r.ID)
	s.sendRoomSnapshot(sess, r)
	s.sendChatHistory(sess, r)
}

func (s *GameServer) handleLeaveRoom(sess *session.Session, packet *network.Packet) {
	r, ok := s.currentRoom(sess)
	if !ok {
		return
	}

	if err := r.Leave(sess.GetUserID()); err != nil {
		s.sendRoomError(sess, err)
		return
	}
	sess.SetRoomID("")

	if r.ParticipantCount() == 0 {
		s.roomManager.ScheduleExpiry(r.ID)
	}
}

type kickRequest struct {
	UserID string `json:"userId"`
}

func (s *GameServer) handleKickPlayer(sess *session.Session, packet *network.Packet) {
	var req kickRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "bad_request", "malformed kick request")
		return
	}

	r, ok := s.currentRoom(sess)
	if !ok {
		return
	}

	if err := r.Kick(sess.GetUserID(), req.UserID); err != nil {
		s.sendRoomError(sess, err)
		return
	}

	s.sessionManager.DetachUserFromRoom(req.UserID, r.ID)
}

func (s *GameServer) handleDeleteRoom(sess *session.Session, packet *network.Packet) {
	r, ok := s.currentRoom(sess)
	if !ok {
		return
	}

	if err := r.Delete(sess.GetUserID()); err != nil {
		s.sendRoomError(sess, err)
		return
	}

	s.sessionManager.DetachRoom(r.ID)
	s.roomManager.RemoveRoom(r.ID)
	logger.Log.Infof("Room %s deleted by %s", r.ID, sess.GetUserID())
}

func (s *GameServer) handleToggleReady(sess *session.Session, packet *network.Packet) {
	r, ok := s.currentRoom(sess)
	if !ok {
		return
	}
	if err := r.ToggleReady(sess.GetUserID()); err != nil {
		s.sendRoomError(sess, err)
	}
}

func (s *GameServer) handleToggleGame(sess *session.Session, packet *network.Packet) {
	r, ok := s.currentRoom(sess)
	if !ok {
		return
	}
	if err := r.ToggleGameStatus(sess.GetUserID()); err != nil {
		s.sendRoomError(sess, err)
	}
}

type listRoomsRequest struct {
	GameType string `json:"gameType"`
}

func (s *GameServer) handleListRooms(sess *session.Session, packet *network.Packet) {
	var req listRoomsRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "bad_request", "malformed list rooms request")
		return
	}
	if req.GameType == "" {
		req.GameType = "21"
	}

	summaries := s.roomManager.ListByGameType(req.GameType)
	data, _ := json.Marshal(summaries)
	sess.Send(network.MsgTypeListRooms, data)
}

type roomStatsRequest struct {
	RoomID string `json:"roomId"`
}

func (s *GameServer) handleRoomStats(sess *session.Session, packet *network.Packet) {
	var req roomStatsRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "bad_request", "malformed stats request")
		return
	}
	if req.RoomID == "" {
		req.RoomID = sess.GetRoomID()
	}

	stats, err := s.statsService.GetRoomStats(req.RoomID, sess.GetUserID())
	if err != nil {
		logger.Log.Errorf("Failed to load stats for room %s: %v", req.RoomID, err)
		s.sendError(sess, "stats_unavailable", "could not load game stats")
		return
	}

	data, _ := json.Marshal(stats)
	sess.Send(network.MsgTypeRoomStats, data)
}

func (s *GameServer) handleGameAction(sess *session.Session, packet *network.Packet) {
	r, ok := s.currentRoom(sess)
	if !ok {
		return
	}

	start := time.Now()
	if err := r.HandleAction(sess, packet.Data); err != nil {
		logger.Log.Errorf("Error handling action in room %s: %v", r.ID, err)
		s.sendError(sess, "bad_action", err.Error())
	}
	if s.mon != nil {
		s.mon.ObserveActionLatency(time.Since(start))
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *GameServer) handleChatMessage(sess *session.Session, packet *network.Packet) {
	var req chatRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "bad_request", "malformed chat message")
		return
	}

	r, ok := s.currentRoom(sess)
	if !ok {
		return
	}

	if err := r.PostChat(s.participantFor(sess), req.Message); err != nil {
		s.sendRoomError(sess, err)
	}
}

func (s *GameServer) currentRoom(sess *session.Session) (*room.Room, bool) {
	roomID := sess.GetRoomID()
	if roomID == "" {
		s.sendError(sess, "no_room", "not in a room")
		return nil, false
	}
	r, exists := s.roomManager.GetRoom(roomID)
	if !exists {
		sess.SetRoomID("")
		s.sendRoomError(sess, room.ErrRoomNotFound)
		return nil, false
	}
	return r, true
}

func (s *GameServer) participantFor(sess *session.Session) models.Participant {
	return models.Participant{
		UserID:      sess.GetUserID(),
		DisplayName: sess.DisplayName,
		Email:       sess.Email,
		PhotoURL:    sess.PhotoURL,
	}
}

func (s *GameServer) sendRoomSnapshot(sess *session.Session, r *room.Room) {
	data, err := r.StateJSON()
	if err != nil {
		logger.Log.Errorf("Failed to marshal room %s state: %v", r.ID, err)
		return
	}
	sess.Send(network.MsgTypeRoomState, data)
}

// chatHistoryPageBytes caps one chat-history frame well below the frame
// header's 64KB payload limit.
const chatHistoryPageBytes = 32 * 1024

// chatHistoryPages splits the log into pages whose marshaled size stays
// within budget. The log is unbounded; sending it as one frame would
// overflow the 2-byte length field of long-lived chatty rooms.
func chatHistoryPages(messages []models.ChatMessage, budget int) [][]models.ChatMessage {
	var pages [][]models.ChatMessage
	var page []models.ChatMessage
	size := 0
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if len(page) > 0 && size+len(data)+2 > budget {
			pages = append(pages, page)
			page = nil
			size = 0
		}
		page = append(page, msg)
		size += len(data) + 2
	}
	if len(page) > 0 {
		pages = append(pages, page)
	}
	return pages
}

func (s *GameServer) sendChatHistory(sess *session.Session, r *room.Room) {
	for _, page := range chatHistoryPages(r.Messages(), chatHistoryPageBytes) {
		data, err := json.Marshal(page)
		if err != nil {
			return
		}
		if err := sess.Send(network.MsgTypeChatHistory, data); err != nil {
			logger.Log.Errorf("Failed to send chat history page to session %s: %v", sess.GetID(), err)
			return
		}
	}
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *GameServer) sendError(sess *session.Session, code, message string) {
	data, _ := json.Marshal(errorPayload{Code: code, Message: message})
	sess.Send(network.MsgTypeError, data)
}

// sendRoomError maps room-layer errors to wire codes.
func (s *GameServer) sendRoomError(sess *session.Session, err error) {
	code := "internal"
	switch {
	case errors.Is(err, room.ErrValidation):
		code = "validation"
	case errors.Is(err, room.ErrNotAuthorized):
		code = "not_authorized"
	case errors.Is(err, room.ErrNotMember):
		code = "not_member"
	case errors.Is(err, room.ErrAlreadyMember):
		code = "already_member"
	case errors.Is(err, room.ErrRoomFull):
		code = "room_full"
	case errors.Is(err, room.ErrRoomNotFound):
		code = "not_found"
	case errors.Is(err, room.ErrNotReady):
		code = "not_ready"
	}
	s.sendError(sess, code, err.Error())
}
