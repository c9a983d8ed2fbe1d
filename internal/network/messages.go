// Package network defines the JSON wire protocol and the per-connection
// plumbing between websockets and the game core.
package network

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Message type discriminators. Every frame in either direction is a JSON
// object carrying one of these in its "type" field.
const (
	// Client -> server
	TypeCreateRoom = "createRoom"
	TypeJoinRoom   = "joinRoom"
	TypeLeaveRoom  = "leaveRoom"
	TypeRotate     = "rotate"
	TypeIsReady    = "isReady"

	// Server -> client
	TypeJoinedRoom     = "joinedRoom"
	TypeJoinRoomError  = "joinRoomError"
	TypeLeftRoom       = "leftRoom"
	TypeLeaveRoomError = "leaveRoomError"
	TypeUpdate         = "update"
	TypeSyncPaths      = "syncPaths"
	TypeGameEnded      = "gameEnded"
	TypeUserEliminated = "userEliminated"
	TypeFaultyMessage  = "faultyMessage"
)

// Game outcome discriminators inside a gameEnded frame.
const (
	OutcomeWinner = "winner"
	OutcomeTie    = "tie"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidRoomID      = errors.New("invalid room id")
)

// ClientMessage is a decoded client -> server frame. Only the fields for
// the given Type are meaningful.
type ClientMessage struct {
	Type string

	// joinRoom
	RoomID uuid.UUID

	// rotate
	AngleUnitVectorX float64
	AngleUnitVectorY float64

	// isReady
	IsReady bool
}

// DecodeClientMessage parses a raw inbound frame. Any failure - bad JSON,
// an unknown type, an unparseable room id - is a protocol fault the caller
// answers with a faultyMessage frame.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var raw struct {
		Type             string  `json:"type"`
		RoomID           string  `json:"roomId"`
		AngleUnitVectorX float64 `json:"angleUnitVectorX"`
		AngleUnitVectorY float64 `json:"angleUnitVectorY"`
		IsReady          bool    `json:"isReady"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return ClientMessage{}, err
	}

	msg := ClientMessage{
		Type:             raw.Type,
		AngleUnitVectorX: raw.AngleUnitVectorX,
		AngleUnitVectorY: raw.AngleUnitVectorY,
		IsReady:          raw.IsReady,
	}

	switch raw.Type {
	case TypeCreateRoom, TypeLeaveRoom, TypeRotate, TypeIsReady:
	case TypeJoinRoom:
		roomID, err := uuid.Parse(raw.RoomID)
		if err != nil {
			return ClientMessage{}, fmt.Errorf("%w: %q", ErrInvalidRoomID, raw.RoomID)
		}
		msg.RoomID = roomID
	default:
		return ClientMessage{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, raw.Type)
	}

	return msg, nil
}

// ClientHandle delivers outbound frames to one connected client. Handles
// are shared freely between the router and rooms; Send never blocks, and
// frames sent after the connection closed are dropped.
type ClientHandle interface {
	Send(data []byte) error
}

// Sink accepts inbound messages for dispatch. Implemented by the router.
type Sink interface {
	Deliver(fm ForwardedMessage)
}

// ForwardedMessage is an inbound frame paired with the sender's identity
// and a handle for replies.
type ForwardedMessage struct {
	Message ClientMessage
	UserID  uuid.UUID
	Client  ClientHandle
}

// PlayerState is a player as it appears inside an update frame.
type PlayerState struct {
	ID               string  `json:"id"`
	X                float64 `json:"x"`
	Y                float64 `json:"y"`
	AngleUnitVectorX float64 `json:"angleUnitVectorX"`
	AngleUnitVectorY float64 `json:"angleUnitVectorY"`
	IsReady          bool    `json:"isReady"`
}

// PathNode serializes as a two-element [x, y] array.
type PathNode [2]float64

// PathState is one player's trail inside a syncPaths frame.
type PathState struct {
	Nodes []PathNode `json:"nodes"`
}

// Outcome is the result of a finished round.
type Outcome struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
}

// EncodeJoinedRoom confirms room entry to the joining client.
func EncodeJoinedRoom(roomID, userID uuid.UUID) []byte {
	return encode(struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
		UserID string `json:"userId"`
	}{TypeJoinedRoom, roomID.String(), userID.String()})
}

// EncodeJoinRoomError reports a failed join attempt.
func EncodeJoinRoomError(reason string) []byte {
	return encode(struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}{TypeJoinRoomError, reason})
}

// EncodeLeftRoom confirms room exit.
func EncodeLeftRoom() []byte {
	return encode(struct {
		Type string `json:"type"`
	}{TypeLeftRoom})
}

// EncodeLeaveRoomError reports a failed leave attempt.
func EncodeLeaveRoomError(reason string) []byte {
	return encode(struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}{TypeLeaveRoomError, reason})
}

// EncodeUpdate carries the per-tick (and lobby) state of the world.
func EncodeUpdate(players []PlayerState, gameState string) []byte {
	return encode(struct {
		Type      string        `json:"type"`
		Players   []PlayerState `json:"players"`
		GameState string        `json:"gameState"`
	}{TypeUpdate, players, gameState})
}

// EncodeSyncPaths carries the full trail history of every player.
func EncodeSyncPaths(paths map[string]PathState) []byte {
	return encode(struct {
		Type  string               `json:"type"`
		Paths map[string]PathState `json:"paths"`
	}{TypeSyncPaths, paths})
}

// EncodeGameEnded announces the round outcome and the score board.
func EncodeGameEnded(outcome Outcome, scoreBoard map[string]uint32) []byte {
	return encode(struct {
		Type       string            `json:"type"`
		Outcome    Outcome           `json:"outcome"`
		ScoreBoard map[string]uint32 `json:"scoreBoard"`
	}{TypeGameEnded, outcome, scoreBoard})
}

// EncodeUserEliminated announces a player's elimination or departure.
func EncodeUserEliminated(userID uuid.UUID) []byte {
	return encode(struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	}{TypeUserEliminated, userID.String()})
}

// EncodeFaultyMessage echoes an unparseable frame back to its sender.
func EncodeFaultyMessage(original string) []byte {
	return encode(struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{TypeFaultyMessage, original})
}

func encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Marshalling our own plain structs cannot fail; if it does the
		// protocol definition itself is broken.
		panic(fmt.Sprintf("network: encode %T: %v", v, err))
	}
	return data
}
