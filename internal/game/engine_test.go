package game

import (
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curve/server/internal/geometry"
)

// fakeClient records every frame it is sent, decoded for assertions.
type fakeClient struct {
	mu     sync.Mutex
	frames []map[string]any
}

func (f *fakeClient) Send(data []byte) error {
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	f.mu.Lock()
	f.frames = append(f.frames, decoded)
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) ofType(msgType string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, frame := range f.frames {
		if frame["type"] == msgType {
			out = append(out, frame)
		}
	}
	return out
}

func (f *fakeClient) lastOfType(msgType string) map[string]any {
	frames := f.ofType(msgType)
	if len(frames) == 0 {
		return nil
	}
	return frames[len(frames)-1]
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// addPlayer wires a live player straight into room state for engine tests.
func addPlayer(r *Room, fc *fakeClient, pos geometry.Point, heading geometry.Vector) uuid.UUID {
	id := uuid.New()
	p := NewPlayer(id)
	p.Pos = pos
	p.Heading = heading
	r.members[id] = fc
	r.players[id] = p
	r.scores[id] = 0
	r.paths[id] = NewPath(pos)
	return id
}

func TestEngineWallEliminationEndsInTie(t *testing.T) {
	r := NewRoom(uuid.New(), testLogger(), nil)
	fc := &fakeClient{}
	id := addPlayer(r, fc, geometry.Point{X: 149.3, Y: 50}, geometry.Vector{X: 1, Y: 0})
	r.state = StateStarted

	e := newEngine(r)

	// First step keeps the player on the map
	assert.True(t, e.tick())
	// Second step carries it past the right border
	assert.False(t, e.tick())

	elims := fc.ofType("userEliminated")
	require.Len(t, elims, 1)
	assert.Equal(t, id.String(), elims[0]["userId"])

	ended := fc.lastOfType("gameEnded")
	require.NotNil(t, ended)
	outcome := ended["outcome"].(map[string]any)
	assert.Equal(t, "tie", outcome["type"])

	scoreBoard := ended["scoreBoard"].(map[string]any)
	assert.Equal(t, float64(0), scoreBoard[id.String()])

	// The lobby reforms: state back to Waiting, the member restored as an
	// idle player
	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.Equal(t, StateWaiting, r.state)
	require.Contains(t, r.players, id)
	assert.Equal(t, geometry.Point{}, r.players[id].Pos)
	assert.False(t, r.players[id].IsReady)
	assert.Empty(t, r.paths)
}

func TestEngineTrailCollisionAwardsWinner(t *testing.T) {
	r := NewRoom(uuid.New(), testLogger(), nil)
	fc := &fakeClient{}

	// Crosser heads straight into the survivor's trail
	crosser := addPlayer(r, fc, geometry.Point{X: 50, Y: 49.8}, geometry.Vector{X: 0, Y: 1})
	survivor := addPlayer(r, fc, geometry.Point{X: 10, Y: 10}, geometry.Vector{X: 1, Y: 0})
	r.paths[survivor] = &Path{Nodes: []geometry.Point{{X: 45, Y: 50}, {X: 55, Y: 50}}}
	r.state = StateStarted

	e := newEngine(r)
	assert.False(t, e.tick())

	elims := fc.ofType("userEliminated")
	require.Len(t, elims, 1)
	assert.Equal(t, crosser.String(), elims[0]["userId"])

	ended := fc.lastOfType("gameEnded")
	require.NotNil(t, ended)
	outcome := ended["outcome"].(map[string]any)
	assert.Equal(t, "winner", outcome["type"])
	assert.Equal(t, survivor.String(), outcome["userId"])

	scoreBoard := ended["scoreBoard"].(map[string]any)
	assert.Equal(t, float64(1), scoreBoard[survivor.String()])
	assert.Equal(t, float64(0), scoreBoard[crosser.String()])
}

func TestEngineTieWhenLastPlayersDieTogether(t *testing.T) {
	r := NewRoom(uuid.New(), testLogger(), nil)
	fc := &fakeClient{}
	addPlayer(r, fc, geometry.Point{X: 149.8, Y: 50}, geometry.Vector{X: 1, Y: 0})
	addPlayer(r, fc, geometry.Point{X: 0.2, Y: 50}, geometry.Vector{X: -1, Y: 0})
	r.state = StateStarted

	e := newEngine(r)
	assert.False(t, e.tick())

	assert.Len(t, fc.ofType("userEliminated"), 2)

	ended := fc.lastOfType("gameEnded")
	require.NotNil(t, ended)
	outcome := ended["outcome"].(map[string]any)
	assert.Equal(t, "tie", outcome["type"])

	// Nobody scores on a tie
	for _, score := range ended["scoreBoard"].(map[string]any) {
		assert.Equal(t, float64(0), score)
	}
}

func TestEngineSoloSurvivorKeepsRunning(t *testing.T) {
	r := NewRoom(uuid.New(), testLogger(), nil)
	fc := &fakeClient{}
	addPlayer(r, fc, geometry.Point{X: 75, Y: 50}, geometry.Vector{X: 1, Y: 0})
	r.state = StateStarted

	// One living player and no elimination this tick: no outcome yet
	e := newEngine(r)
	assert.True(t, e.tick())
	assert.Nil(t, fc.lastOfType("gameEnded"))
}

func TestEngineSyncCadence(t *testing.T) {
	r := NewRoom(uuid.New(), testLogger(), nil)
	fc := &fakeClient{}
	p1 := addPlayer(r, fc, geometry.Point{X: 10, Y: 30}, geometry.Vector{X: 1, Y: 0})
	addPlayer(r, fc, geometry.Point{X: 10, Y: 70}, geometry.Vector{X: 1, Y: 0})
	r.state = StateStarted

	e := newEngine(r)
	for i := 0; i < 21; i++ {
		require.True(t, e.tick())
	}

	// Sync fires on the first tick and again twenty ticks later
	syncs := fc.ofType("syncPaths")
	require.Len(t, syncs, 2)
	assert.Len(t, fc.ofType("update"), 21)

	// The last sync carries the full trail: spawn node plus 21 samples
	paths := syncs[1]["paths"].(map[string]any)
	nodes := paths[p1.String()].(map[string]any)["nodes"].([]any)
	assert.Len(t, nodes, 22)

	first := nodes[0].([]any)
	assert.Equal(t, float64(10), first[0])
	assert.Equal(t, float64(30), first[1])
}

func TestEngineEliminatedTrailStaysHazardous(t *testing.T) {
	r := NewRoom(uuid.New(), testLogger(), nil)
	fc := &fakeClient{}

	// Doomed player steps over the left border; its trail must still grow
	// by that final step.
	doomed := addPlayer(r, fc, geometry.Point{X: 0.2, Y: 50}, geometry.Vector{X: -1, Y: 0})
	addPlayer(r, fc, geometry.Point{X: 75, Y: 20}, geometry.Vector{X: 1, Y: 0})
	addPlayer(r, fc, geometry.Point{X: 75, Y: 80}, geometry.Vector{X: 1, Y: 0})
	r.state = StateStarted

	e := newEngine(r)
	assert.True(t, e.tick())

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.NotContains(t, r.players, doomed)
	require.Contains(t, r.paths, doomed)
	assert.Len(t, r.paths[doomed].Nodes, 2)
	assert.Equal(t, geometry.Point{X: -0.3, Y: 50}, r.paths[doomed].Nodes[1])
}
