// Package game implements the core game logic: players, trails, rooms and
// the round simulation.
package game

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/curve/server/config"
	"github.com/curve/server/internal/geometry"
	"github.com/curve/server/internal/network"
)

// GameState is the lifecycle phase of a room.
type GameState uint8

const (
	StateWaiting GameState = iota
	StateCountdown
	StateStarted
)

// String returns the wire name of the state.
func (s GameState) String() string {
	switch s {
	case StateCountdown:
		return "countdown"
	case StateStarted:
		return "started"
	default:
		return "waiting"
	}
}

// Room is a logical actor owning one set of participants and, while a round
// runs, the engine simulating it.
//
// Each room has its own:
// - message loop consuming its private inbox
// - membership, player, trail and score tables
// - tick engine goroutine, alive only between round start and round end
//
// Thread safety:
// The message loop and the tick engine are the only writers, and both take
// the room mutex for every mutation, so each observes the other's writes.
// Broadcast helpers ending in "Locked" expect the caller to already hold
// the lock.
type Room struct {
	mu sync.RWMutex

	ID uuid.UUID

	members map[uuid.UUID]network.ClientHandle
	players map[uuid.UUID]*Player
	paths   map[uuid.UUID]*Path
	scores  map[uuid.UUID]uint32
	state   GameState

	inbox chan network.ForwardedMessage
	stop  chan struct{} // fresh per round; closed to abort a running engine

	countdown time.Duration
	rng       *rand.Rand
	log       *logrus.Entry

	onRetire func(roomID uuid.UUID)
}

// NewRoom creates a room. onRetire is called exactly once, from the room's
// own goroutine, after the last member left and the message loop stopped.
func NewRoom(id uuid.UUID, logger *logrus.Logger, onRetire func(roomID uuid.UUID)) *Room {
	return &Room{
		ID:        id,
		members:   make(map[uuid.UUID]network.ClientHandle),
		players:   make(map[uuid.UUID]*Player),
		paths:     make(map[uuid.UUID]*Path),
		scores:    make(map[uuid.UUID]uint32),
		state:     StateWaiting,
		inbox:     make(chan network.ForwardedMessage, config.InboxCapacity),
		countdown: config.GameStartCountdown,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		log:       logger.WithField("room", id),
		onRetire:  onRetire,
	}
}

// Deliver enqueues an inbound message for the room's message loop. It never
// blocks; when the inbox is full the message is dropped.
func (r *Room) Deliver(fm network.ForwardedMessage) {
	select {
	case r.inbox <- fm:
	default:
		r.log.WithField("type", fm.Message.Type).Debug("room inbox full, dropping message")
	}
}

// Run is the room's message loop. It terminates once the last member left.
func (r *Room) Run() {
	for fm := range r.inbox {
		switch fm.Message.Type {
		case network.TypeJoinRoom:
			r.handleJoin(fm.UserID, fm.Client)

		case network.TypeLeaveRoom:
			if r.handleLeave(fm.UserID) {
				r.retire()
				return
			}

		case network.TypeRotate:
			r.handleRotate(fm.UserID, fm.Message.AngleUnitVectorX, fm.Message.AngleUnitVectorY)

		case network.TypeIsReady:
			r.handleReady(fm.UserID, fm.Message.IsReady)

		default:
			// Room-lifecycle messages are the router's job; one arriving
			// here is a dispatch bug.
			r.log.WithField("type", fm.Message.Type).Error("message cannot be handled by a room")
		}
	}
}

func (r *Room) handleJoin(userID uuid.UUID, client network.ClientHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members[userID] = client
	if _, ok := r.scores[userID]; !ok {
		r.scores[userID] = 0
	}

	// Mid-round joiners spectate: they receive every broadcast now and
	// become players when the lobby reforms at round end.
	if r.state == StateWaiting {
		r.players[userID] = NewPlayer(userID)
	}

	r.log.WithField("user", userID).Info("user joined")
	r.broadcastLocked(r.encodeUpdateLocked())
}

// handleLeave removes the user entirely. Reports whether the room is now
// empty and should retire.
func (r *Room) handleLeave(userID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[userID]; !ok {
		return len(r.members) == 0
	}

	delete(r.members, userID)
	delete(r.players, userID)
	delete(r.paths, userID)
	delete(r.scores, userID)

	r.log.WithField("user", userID).Info("user left")
	r.broadcastLocked(network.EncodeUserEliminated(userID))

	return len(r.members) == 0
}

func (r *Room) handleRotate(userID uuid.UUID, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if player, ok := r.players[userID]; ok {
		player.SetHeading(x, y)
	}
}

func (r *Room) handleReady(userID uuid.UUID, ready bool) {
	r.mu.Lock()

	player, ok := r.players[userID]
	if !ok || r.state != StateWaiting {
		r.mu.Unlock()
		return
	}
	player.IsReady = ready

	if len(r.players) < config.MinPlayersToStart || !r.allReadyLocked() {
		r.broadcastLocked(r.encodeUpdateLocked())
		r.mu.Unlock()
		return
	}

	r.positionPlayersLocked()
	r.state = StateCountdown
	r.broadcastLocked(r.encodeUpdateLocked())
	r.mu.Unlock()

	// The countdown suspends the whole message loop: it cannot be
	// cancelled, and messages arriving meanwhile queue in the inbox until
	// the round has started.
	time.Sleep(r.countdown)

	r.startRound()
}

func (r *Room) allReadyLocked() bool {
	for _, p := range r.players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// positionPlayersLocked spreads the players over a circle around the map
// center, each facing inward. The angular gap between consecutive players
// is a fresh random sample rather than an even division, so spawns can
// cluster.
func (r *Room) positionPlayersLocked() {
	radius := config.SpawnRadiusFactor * math.Min(config.MapWidth, config.MapHeight)
	cx := config.MapWidth / 2.0
	cy := config.MapHeight / 2.0

	theta := r.rng.Float64() * 360
	for _, p := range r.players {
		rad := theta * math.Pi / 180
		p.Pos = geometry.Point{X: cx + radius*math.Cos(rad), Y: cy + radius*math.Sin(rad)}
		p.SetHeading(cx-p.Pos.X, cy-p.Pos.Y)
		theta = math.Mod(theta+r.rng.Float64()*360, 360)
	}
}

func (r *Room) startRound() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = StateStarted

	// Fresh trails, seeded with each player's spawn position.
	r.paths = make(map[uuid.UUID]*Path, len(r.players))
	for id, p := range r.players {
		r.paths[id] = NewPath(p.Pos)
	}

	r.broadcastLocked(r.encodeUpdateLocked())

	r.stop = make(chan struct{})
	engine := newEngine(r)
	go engine.Run(r.stop)

	r.log.WithField("players", len(r.players)).Info("round started")
}

// endRoundLocked announces the outcome, reforms the lobby and flips the
// room back to Waiting. Called by the tick engine with the lock held.
func (r *Room) endRoundLocked(outcome network.Outcome) {
	scoreBoard := make(map[string]uint32, len(r.scores))
	for id, score := range r.scores {
		scoreBoard[id.String()] = score
	}
	r.broadcastLocked(network.EncodeGameEnded(outcome, scoreBoard))

	// Every member returns to the lobby as an idle, un-ready player:
	// survivors are reset, eliminated players and mid-round joiners get a
	// fresh record.
	players := make(map[uuid.UUID]*Player, len(r.members))
	for id := range r.members {
		if p, ok := r.players[id]; ok {
			p.Reset()
			players[id] = p
		} else {
			players[id] = NewPlayer(id)
		}
	}
	r.players = players
	r.paths = make(map[uuid.UUID]*Path)
	r.state = StateWaiting

	r.broadcastLocked(r.encodeUpdateLocked())

	r.log.WithField("outcome", outcome.Type).Info("round ended")
}

func (r *Room) retire() {
	r.mu.Lock()
	if r.state == StateStarted {
		close(r.stop)
		r.state = StateWaiting
	}
	r.mu.Unlock()

	r.log.Info("room retired")
	if r.onRetire != nil {
		r.onRetire(r.ID)
	}
}

// broadcastLocked fans a frame out to every member.
// IMPORTANT: caller must hold the room lock (read or write).
func (r *Room) broadcastLocked(data []byte) {
	for id, client := range r.members {
		if err := client.Send(data); err != nil {
			r.log.WithField("user", id).Debug("dropping frame for closed connection")
		}
	}
}

func (r *Room) encodeUpdateLocked() []byte {
	players := make([]network.PlayerState, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, network.PlayerState{
			ID:               p.ID.String(),
			X:                p.Pos.X,
			Y:                p.Pos.Y,
			AngleUnitVectorX: p.Heading.X,
			AngleUnitVectorY: p.Heading.Y,
			IsReady:          p.IsReady,
		})
	}
	return network.EncodeUpdate(players, r.state.String())
}

func (r *Room) encodeSyncPathsLocked() []byte {
	paths := make(map[string]network.PathState, len(r.paths))
	for id, path := range r.paths {
		nodes := make([]network.PathNode, len(path.Nodes))
		for i, node := range path.Nodes {
			nodes[i] = network.PathNode{node.X, node.Y}
		}
		paths[id.String()] = network.PathState{Nodes: nodes}
	}
	return network.EncodeSyncPaths(paths)
}

// RoomSnapshot is a cloned view of room state, safe to hand outside the
// room's ownership.
type RoomSnapshot struct {
	ID      uuid.UUID
	State   GameState
	Members []uuid.UUID
	Paths   map[uuid.UUID]*Path
}

// Snapshot clones the room state for the debug UI.
func (r *Room) Snapshot() RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := RoomSnapshot{
		ID:      r.ID,
		State:   r.state,
		Members: make([]uuid.UUID, 0, len(r.members)),
		Paths:   make(map[uuid.UUID]*Path, len(r.paths)),
	}
	for id := range r.members {
		snap.Members = append(snap.Members, id)
	}
	for id, path := range r.paths {
		snap.Paths[id] = path.Clone()
	}
	return snap
}
