package config

import "time"

// Game constants - must match the browser client exactly
const (
	// Map dimensions (map units)
	MapWidth  = 150.0
	MapHeight = 100.0

	// Simulation
	TickRate        = 20 // Hz
	MsPerTick       = 1000 / TickRate
	DeltaPosPerTick = 0.5 // map units moved per tick
	TickCountToSync = 20  // one syncPaths broadcast per second

	// Spawn placement: players start on a circle centered on the map
	SpawnRadiusFactor = 0.4 // of min(MapWidth, MapHeight)

	// Lobby
	GameStartCountdown = 3 * time.Second
	MinPlayersToStart  = 2

	// Queues
	InboxCapacity  = 100 // router and room inboxes
	SendBufferSize = 256 // per-connection outbound buffer
	MaxFrameSize   = 512 // inbound websocket frame limit
)

// TickInterval is the wall-clock period of one simulation tick.
const TickInterval = time.Duration(MsPerTick) * time.Millisecond

// Server configuration
type ServerConfig struct {
	Address string
	Port    uint16
	DebugUI bool
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address: "0.0.0.0",
		Port:    8080,
		DebugUI: false,
	}
}
