package rpc

import (
	"net"
	"net/rpc"

	"github.com/drinkcal/roomserver/logger"
	"github.com/drinkcal/roomserver/models"
	"github.com/drinkcal/roomserver/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered by the
// caller before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// StatsRPC exposes the stats service over net/rpc for internal tooling.
type StatsRPC struct {
	statsService *services.StatsService
}

func NewStatsRPC(ss *services.StatsService) *StatsRPC {
	return &StatsRPC{statsService: ss}
}

type RoomStatsArgs struct {
	RoomID string
	UserID string
}

type RoomStatsReply struct {
	Stats models.RoomGameStats
}

func (s *StatsRPC) GetRoomStats(args *RoomStatsArgs, reply *RoomStatsReply) error {
	stats, err := s.statsService.GetRoomStats(args.RoomID, args.UserID)
	if err != nil {
		return err
	}
	reply.Stats = *stats
	return nil
}

type PlayerStatsArgs struct {
	UserID string
}

type PlayerStatsReply struct {
	Stats models.PlayerGameStats
}

func (s *StatsRPC) GetPlayerStats(args *PlayerStatsArgs, reply *PlayerStatsReply) error {
	stats, err := s.statsService.GetPlayerStats(args.UserID)
	if err != nil {
		return err
	}
	reply.Stats = *stats
	return nil
}
