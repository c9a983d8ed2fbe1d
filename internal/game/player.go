package game

import (
	"math"

	"github.com/google/uuid"

	"github.com/curve/server/config"
	"github.com/curve/server/internal/geometry"
)

// Player is one participant's simulation state. It is owned by its room and
// only ever mutated by the room's message loop or the room's tick engine,
// both of which hold the room lock.
type Player struct {
	ID      uuid.UUID
	Pos     geometry.Point
	Heading geometry.Vector
	IsReady bool
}

// NewPlayer creates a player at the origin with a zero heading. Position and
// heading are assigned when a round is being set up.
func NewPlayer(id uuid.UUID) *Player {
	return &Player{ID: id}
}

// Step advances the player one tick along its heading.
func (p *Player) Step() {
	p.Pos = geometry.Advance(p.Pos, p.Heading, config.DeltaPosPerTick)
}

// OutOfBounds reports whether the player has left the map.
func (p *Player) OutOfBounds() bool {
	return geometry.OutOfBounds(p.Pos, config.MapWidth, config.MapHeight)
}

// SetHeading replaces the player's heading with the unit vector pointing
// along (x, y). A zero vector is ignored - there is no direction to face.
func (p *Player) SetHeading(x, y float64) {
	length := math.Hypot(x, y)
	if length == 0 {
		return
	}
	p.Heading = geometry.Vector{X: x / length, Y: y / length}
}

// Reset returns the player to its idle lobby state.
func (p *Player) Reset() {
	p.Pos = geometry.Point{}
	p.Heading = geometry.Vector{}
	p.IsReady = false
}
