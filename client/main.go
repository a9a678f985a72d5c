package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeLogin        = 2
	MsgTypeJoinRoom     = 101
	MsgTypeLeaveRoom    = 102
	MsgTypeCreateRoom   = 103
	MsgTypeToggleReady  = 106
	MsgTypeToggleGame   = 107
	MsgTypeListRooms    = 108
	MsgTypeRoomStats    = 109
	MsgTypePlayerAction = 202
	MsgTypeChatMessage  = 203
)

// send frames the message as 2-byte msg ID + 2-byte payload length + payload.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func sendJSON(c *websocket.Conn, msgID uint16, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return send(c, msgID, data)
}

// loginPayload builds the identity snapshot for the login packet. A blank
// display name falls back to the user id so rooms never show an empty name.
func loginPayload(userID, displayName string) map[string]string {
	if displayName == "" {
		displayName = userID
	}
	return map[string]string{"userId": userID, "displayName": displayName}
}

func printHelp() {
	fmt.Println(`Commands:
  create <name> [maxPlayers]  create a room
  join <roomId>               join a room
  leave                       leave the current room
  ready                       toggle ready
  start                       start/stop the game (creator only)
  hit                         take a card
  stand                       pass
  new                         deal a new game after a round ends (creator only)
  say <text>                  send a chat message
  rooms                       list open rooms
  stats                       show your record in this room
  quit                        exit`)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	userID := flag.String("user", "", "user id to log in as")
	name := flag.String("name", "", "display name")
	flag.Parse()

	if *userID == "" {
		log.Fatal("a -user id is required")
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
		}
	}()

	login := loginPayload(*userID, *name)
	displayName := login["displayName"]
	if err := sendJSON(c, MsgTypeLogin, login); err != nil {
		log.Fatalf("Login failed: %v", err)
	}

	printHelp()

	lines := make(chan string)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			text, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- strings.TrimSpace(text)
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case text, ok := <-lines:
			if !ok {
				return
			}
			if text == "" {
				continue
			}
			if err := handleCommand(c, text, displayName); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}

func handleCommand(c *websocket.Conn, text, displayName string) error {
	parts := strings.SplitN(text, " ", 2)
	cmd := parts[0]
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "create":
		fields := strings.Fields(arg)
		maxPlayers := 4
		roomName := arg
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
				maxPlayers = n
				roomName = strings.Join(fields[:len(fields)-1], " ")
			}
		}
		if roomName == "" {
			roomName = displayName + "'s room"
		}
		return sendJSON(c, MsgTypeCreateRoom, map[string]interface{}{
			"name":            roomName,
			"gameType":        "21",
			"maxParticipants": maxPlayers,
		})
	case "join":
		return sendJSON(c, MsgTypeJoinRoom, map[string]string{"roomId": arg})
	case "leave":
		return send(c, MsgTypeLeaveRoom, []byte("{}"))
	case "ready":
		return send(c, MsgTypeToggleReady, []byte("{}"))
	case "start":
		return send(c, MsgTypeToggleGame, []byte("{}"))
	case "hit":
		return sendJSON(c, MsgTypePlayerAction, map[string]string{"type": "hit"})
	case "stand":
		return sendJSON(c, MsgTypePlayerAction, map[string]string{"type": "stand"})
	case "new":
		return sendJSON(c, MsgTypePlayerAction, map[string]string{"type": "new_game"})
	case "say":
		return sendJSON(c, MsgTypeChatMessage, map[string]string{"message": arg})
	case "rooms":
		return sendJSON(c, MsgTypeListRooms, map[string]string{"gameType": "21"})
	case "stats":
		return send(c, MsgTypeRoomStats, []byte("{}"))
	case "quit":
		os.Exit(0)
	case "help":
		printHelp()
	default:
		fmt.Println("Unknown command. Type 'help'.")
	}
	return nil
}
