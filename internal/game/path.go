package game

import (
	"github.com/curve/server/config"
	"github.com/curve/server/internal/geometry"
)

// Path is the trail a player leaves behind during a round: the ordered
// positions sampled once per tick, starting with the spawn position. It is
// append-only until the round resets, and doubles as a collision hazard for
// every player in the room, including its owner.
type Path struct {
	Nodes []geometry.Point
}

// NewPath creates a path with the given starting node.
func NewPath(start geometry.Point) *Path {
	return &Path{Nodes: []geometry.Point{start}}
}

// Append records the next sampled position.
func (p *Path) Append(node geometry.Point) {
	p.Nodes = append(p.Nodes, node)
}

// CollidesWith reports whether the player's current motion segment crosses
// any segment of this path. The motion segment runs from the position one
// step behind the player to its current position.
func (p *Path) CollidesWith(player *Player) bool {
	if len(p.Nodes) < 2 {
		return false
	}

	tail := geometry.Point{
		X: player.Pos.X - player.Heading.X*config.DeltaPosPerTick,
		Y: player.Pos.Y - player.Heading.Y*config.DeltaPosPerTick,
	}

	for i := 0; i < len(p.Nodes)-1; i++ {
		if geometry.SegmentsIntersect(p.Nodes[i], p.Nodes[i+1], tail, player.Pos) {
			return true
		}
	}

	return false
}

// Clone returns a deep copy, used when path data leaves the room's
// ownership (sync broadcasts, debug snapshots).
func (p *Path) Clone() *Path {
	nodes := make([]geometry.Point, len(p.Nodes))
	copy(nodes, p.Nodes)
	return &Path{Nodes: nodes}
}
