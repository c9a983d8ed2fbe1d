package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/curve/server/config"
	"github.com/curve/server/internal/network"
)

// Engine drives one round of simulation for a room. It runs in its own
// goroutine, ticking at a fixed rate, and terminates itself once the round
// has an outcome. Exactly one engine is alive per room while the room is in
// the Started state.
type Engine struct {
	room      *Room
	tickCount uint32
}

func newEngine(r *Room) *Engine {
	return &Engine{room: r}
}

// Run ticks the simulation until the round ends or stop closes. The loop
// never touches the room's inbox; a slow tick only lowers the effective
// tick rate.
func (e *Engine) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !e.tick() {
				return
			}
		}
	}
}

// tick advances every player one step, resolves eliminations, broadcasts
// the world state and, once per TickCountToSync ticks, the full trail
// history. Returns false when the round is over.
func (e *Engine) tick() bool {
	r := e.room
	r.mu.Lock()
	defer r.mu.Unlock()

	var eliminated []uuid.UUID
	for id, p := range r.players {
		p.Step()

		if p.OutOfBounds() {
			eliminated = append(eliminated, id)
		} else {
			for _, path := range r.paths {
				if path.CollidesWith(p) {
					eliminated = append(eliminated, id)
					break
				}
			}
		}

		// Doomed or not, the step is recorded: the trail stays on the map
		// as a hazard for the rest of the round.
		if path, ok := r.paths[id]; ok {
			path.Append(p.Pos)
		}
	}

	for _, id := range eliminated {
		delete(r.players, id)
		r.broadcastLocked(network.EncodeUserEliminated(id))
		r.log.WithField("user", id).Info("user eliminated")
	}

	r.broadcastLocked(r.encodeUpdateLocked())

	// The outcome is only evaluated on ticks that eliminated someone, so a
	// round left with a single player without an elimination (the others
	// left the room) keeps running until that player dies too.
	if len(eliminated) > 0 {
		switch len(r.players) {
		case 0:
			// The last players died on the same tick.
			r.endRoundLocked(network.Outcome{Type: network.OutcomeTie})
			return false

		case 1:
			var winner uuid.UUID
			for id := range r.players {
				winner = id
			}
			r.scores[winner]++
			r.endRoundLocked(network.Outcome{
				Type:   network.OutcomeWinner,
				UserID: winner.String(),
			})
			return false
		}
	}

	if e.tickCount%config.TickCountToSync == 0 {
		r.broadcastLocked(r.encodeSyncPathsLocked())
	}
	e.tickCount++

	return true
}
