// Package router owns the room table and dispatches every inbound client
// message either to itself (room lifecycle) or to the addressed room's
// inbox (gameplay).
package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/curve/server/config"
	"github.com/curve/server/internal/game"
	"github.com/curve/server/internal/network"
)

// Router routes inbound messages to rooms. It is the only owner of the
// room table and of the user->room membership map.
//
// The table is read on every gameplay forward and written on room create
// and retire, hence the RWMutex; message handling itself is single
// threaded in Run.
type Router struct {
	mu       sync.RWMutex
	rooms    map[uuid.UUID]*game.Room
	userRoom map[uuid.UUID]uuid.UUID

	inbox chan network.ForwardedMessage
	log   *logrus.Logger
}

// New creates a router.
func New(logger *logrus.Logger) *Router {
	return &Router{
		rooms:    make(map[uuid.UUID]*game.Room),
		userRoom: make(map[uuid.UUID]uuid.UUID),
		inbox:    make(chan network.ForwardedMessage, config.InboxCapacity),
		log:      logger,
	}
}

// Deliver enqueues an inbound message for dispatch. It never blocks; when
// the inbox is full the message is dropped.
func (rt *Router) Deliver(fm network.ForwardedMessage) {
	select {
	case rt.inbox <- fm:
	default:
		rt.log.WithField("type", fm.Message.Type).Debug("router inbox full, dropping message")
	}
}

// Run consumes the inbox until the context is cancelled.
func (rt *Router) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fm := <-rt.inbox:
			rt.dispatch(fm)
		}
	}
}

func (rt *Router) dispatch(fm network.ForwardedMessage) {
	switch fm.Message.Type {
	case network.TypeCreateRoom:
		rt.handleCreate(fm)

	case network.TypeJoinRoom:
		rt.handleJoin(fm, fm.Message.RoomID)

	case network.TypeLeaveRoom:
		rt.handleLeave(fm)

	case network.TypeRotate, network.TypeIsReady:
		rt.forward(fm)

	default:
		// Decoding rejects unknown types before they get here.
		rt.log.WithField("type", fm.Message.Type).Error("undispatchable message")
	}
}

func (rt *Router) handleCreate(fm network.ForwardedMessage) {
	roomID := uuid.New()
	room := game.NewRoom(roomID, rt.log, rt.retireRoom)

	rt.mu.Lock()
	rt.rooms[roomID] = room
	rt.mu.Unlock()

	go room.Run()
	rt.log.WithField("room", roomID).Info("room created")

	rt.admit(room, fm)
}

func (rt *Router) handleJoin(fm network.ForwardedMessage, roomID uuid.UUID) {
	rt.mu.RLock()
	room, ok := rt.rooms[roomID]
	rt.mu.RUnlock()

	if !ok {
		rt.reply(fm, network.EncodeJoinRoomError(fmt.Sprintf("Room %s does not exist", roomID)))
		return
	}

	rt.admit(room, fm)
}

// admit records the membership, hands the join to the room and confirms it
// to the client.
func (rt *Router) admit(room *game.Room, fm network.ForwardedMessage) {
	rt.mu.Lock()
	rt.userRoom[fm.UserID] = room.ID
	rt.mu.Unlock()

	room.Deliver(network.ForwardedMessage{
		Message: network.ClientMessage{Type: network.TypeJoinRoom, RoomID: room.ID},
		UserID:  fm.UserID,
		Client:  fm.Client,
	})

	rt.reply(fm, network.EncodeJoinedRoom(room.ID, fm.UserID))
}

func (rt *Router) handleLeave(fm network.ForwardedMessage) {
	rt.mu.Lock()
	roomID, ok := rt.userRoom[fm.UserID]
	if ok {
		delete(rt.userRoom, fm.UserID)
	}
	rt.mu.Unlock()

	if !ok {
		rt.reply(fm, network.EncodeLeaveRoomError("You are not in a room"))
		return
	}

	rt.mu.RLock()
	room := rt.rooms[roomID]
	rt.mu.RUnlock()

	if room != nil {
		room.Deliver(fm)
	}

	rt.reply(fm, network.EncodeLeftRoom())
}

// forward hands a gameplay message to the sender's room. Messages from
// users who are in no room are dropped.
func (rt *Router) forward(fm network.ForwardedMessage) {
	rt.mu.RLock()
	roomID, ok := rt.userRoom[fm.UserID]
	room := rt.rooms[roomID]
	rt.mu.RUnlock()

	if !ok || room == nil {
		rt.log.WithFields(logrus.Fields{
			"user": fm.UserID,
			"type": fm.Message.Type,
		}).Debug("user is not in a room, dropping message")
		return
	}

	room.Deliver(fm)
}

// retireRoom is handed to every room and runs on the room's goroutine once
// its last member left. In-flight messages for the room are discarded.
func (rt *Router) retireRoom(roomID uuid.UUID) {
	rt.mu.Lock()
	delete(rt.rooms, roomID)
	for userID, id := range rt.userRoom {
		if id == roomID {
			delete(rt.userRoom, userID)
		}
	}
	rt.mu.Unlock()

	rt.log.WithField("room", roomID).Info("room removed")
}

func (rt *Router) reply(fm network.ForwardedMessage, data []byte) {
	if err := fm.Client.Send(data); err != nil {
		rt.log.WithField("user", fm.UserID).Debug("dropping reply for closed connection")
	}
}

// RoomCount reports the number of live rooms.
func (rt *Router) RoomCount() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.rooms)
}

// Snapshots clones the state of every room for the debug UI.
func (rt *Router) Snapshots() []game.RoomSnapshot {
	rt.mu.RLock()
	rooms := make([]*game.Room, 0, len(rt.rooms))
	for _, room := range rt.rooms {
		rooms = append(rooms, room)
	}
	rt.mu.RUnlock()

	snaps := make([]game.RoomSnapshot, 0, len(rooms))
	for _, room := range rooms {
		snaps = append(snaps, room.Snapshot())
	}
	return snaps
}
