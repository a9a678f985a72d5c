package network

const (
	MsgTypeHeartbeat = 1
	MsgTypeLogin     = 2
	MsgTypeError     = 3

	MsgTypeJoinRoom    = 101
	MsgTypeLeaveRoom   = 102
	MsgTypeCreateRoom  = 103
	MsgTypeKickPlayer  = 104
	MsgTypeDeleteRoom  = 105
	MsgTypeToggleReady = 106
	MsgTypeToggleGame  = 107
	MsgTypeListRooms   = 108
	MsgTypeRoomStats   = 109

	MsgTypePlayerAction = 202
	MsgTypeChatMessage  = 203

	MsgTypeRoomState   = 301
	MsgTypeChatHistory = 302
	MsgTypeGameStart   = 303
	MsgTypeGameSync    = 304
	MsgTypeGameEnd     = 305
	MsgTypeRoomClosed  = 306
)
