package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/curve/server/internal/geometry"
)

func TestPathCollidesWithTooShort(t *testing.T) {
	player := NewPlayer(uuid.New())
	player.Pos = geometry.Point{X: 5, Y: 5}
	player.Heading = geometry.Vector{X: 1, Y: 0}

	empty := &Path{}
	assert.False(t, empty.CollidesWith(player))

	single := NewPath(geometry.Point{X: 5, Y: 5})
	assert.False(t, single.CollidesWith(player))
}

func TestPathCollidesWithCrossingTrail(t *testing.T) {
	trail := &Path{Nodes: []geometry.Point{{X: 0, Y: 5}, {X: 10, Y: 5}}}

	// Moving straight up through the trail
	player := NewPlayer(uuid.New())
	player.Heading = geometry.Vector{X: 0, Y: 1}
	player.Pos = geometry.Point{X: 5, Y: 5.2}

	assert.True(t, trail.CollidesWith(player))
}

func TestPathCollidesWithMissesDistantTrail(t *testing.T) {
	trail := &Path{Nodes: []geometry.Point{{X: 0, Y: 5}, {X: 10, Y: 5}}}

	player := NewPlayer(uuid.New())
	player.Heading = geometry.Vector{X: 0, Y: 1}
	player.Pos = geometry.Point{X: 5, Y: 50}

	assert.False(t, trail.CollidesWith(player))
}

func TestPathOwnTrailStraightAheadIsSafe(t *testing.T) {
	// A player moving in a straight line trails colinear segments behind
	// itself; they must never register as self-collisions.
	player := NewPlayer(uuid.New())
	player.Heading = geometry.Vector{X: 1, Y: 0}
	player.Pos = geometry.Point{X: 1.0, Y: 5}

	own := &Path{Nodes: []geometry.Point{{X: 0, Y: 5}, {X: 0.5, Y: 5}}}
	assert.False(t, own.CollidesWith(player))
}

func TestPathOwnTrailTurnBackCollides(t *testing.T) {
	// Doubling back across the own trail does collide.
	own := &Path{Nodes: []geometry.Point{{X: 0, Y: 5}, {X: 0.5, Y: 5}}}

	player := NewPlayer(uuid.New())
	player.Heading = geometry.Vector{X: 0, Y: 1}
	player.Pos = geometry.Point{X: 0.25, Y: 5.2}

	assert.True(t, own.CollidesWith(player))
}

func TestPathCollisionMonotoneInLength(t *testing.T) {
	trail := &Path{Nodes: []geometry.Point{{X: 0, Y: 5}, {X: 10, Y: 5}}}

	player := NewPlayer(uuid.New())
	player.Heading = geometry.Vector{X: 0, Y: 1}
	player.Pos = geometry.Point{X: 5, Y: 5.2}

	assert.True(t, trail.CollidesWith(player))

	// Growing the path can never un-collide it.
	trail.Append(geometry.Point{X: 10, Y: 20})
	trail.Append(geometry.Point{X: 30, Y: 20})
	assert.True(t, trail.CollidesWith(player))
	assert.Len(t, trail.Nodes, 4)
}

func TestPathCloneIsDeep(t *testing.T) {
	path := NewPath(geometry.Point{X: 1, Y: 2})
	path.Append(geometry.Point{X: 3, Y: 4})

	clone := path.Clone()
	clone.Nodes[0] = geometry.Point{X: 9, Y: 9}
	clone.Append(geometry.Point{X: 5, Y: 6})

	assert.Equal(t, geometry.Point{X: 1, Y: 2}, path.Nodes[0])
	assert.Len(t, path.Nodes, 2)
}
