// Package debugui renders a live terminal dashboard of the server: the
// trails of one running game on a map canvas, plus a directory of rooms
// and their members. Purely observational - it only ever sees cloned
// snapshots, never live room state.
package debugui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	channerics "github.com/niceyeti/channerics/channels"

	"github.com/curve/server/config"
	"github.com/curve/server/internal/game"
)

const (
	refreshInterval = 100 * time.Millisecond
	// Fraction of the terminal given to the map canvas; the rest lists rooms
	mapWidthFraction = 0.6
)

// SnapshotSource produces cloned room state on demand.
type SnapshotSource func() []game.RoomSnapshot

// UI is the terminal dashboard.
type UI struct {
	screen tcell.Screen
	source SnapshotSource
}

// New creates the dashboard over the given snapshot source.
func New(source SnapshotSource) *UI {
	return &UI{source: source}
}

// Run initializes the terminal and redraws until the context is cancelled
// or the user quits with Esc, q or Ctrl-C.
func (ui *UI) Run(ctx context.Context) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	ui.screen = screen
	defer screen.Fini()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go ui.pollEvents(cancel)

	// Snapshots flow through a channel so rendering is decoupled from
	// polling; OrDone tears the stream down with the context.
	snapshots := make(chan []game.RoomSnapshot)
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		defer close(snapshots)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case snapshots <- ui.source():
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for snap := range channerics.OrDone[[]game.RoomSnapshot](ctx.Done(), snapshots) {
		ui.draw(snap)
	}

	return ctx.Err()
}

func (ui *UI) pollEvents(cancel context.CancelFunc) {
	for {
		ev := ui.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
				cancel()
				return
			}
		case *tcell.EventResize:
			ui.screen.Sync()
		}
	}
}

func (ui *UI) draw(snaps []game.RoomSnapshot) {
	ui.screen.Clear()

	width, height := ui.screen.Size()
	mapWidth := int(float64(width) * mapWidthFraction)

	ui.drawCanvas(pickGame(snaps), mapWidth, height)
	ui.drawRooms(snaps, mapWidth+1, height)

	ui.screen.Show()
}

// pickGame selects the room to draw on the canvas: the first one with a
// running round, else the first room with any trail data.
func pickGame(snaps []game.RoomSnapshot) *game.RoomSnapshot {
	for i := range snaps {
		if snaps[i].State == game.StateStarted {
			return &snaps[i]
		}
	}
	for i := range snaps {
		if len(snaps[i].Paths) > 0 {
			return &snaps[i]
		}
	}
	return nil
}

// drawCanvas scales the map onto the left pane and plots every trail node.
// The y axis flips: map y grows upward, terminal rows grow downward.
func (ui *UI) drawCanvas(snap *game.RoomSnapshot, width, height int) {
	style := tcell.StyleDefault.Foreground(tcell.ColorLightBlue)
	border := tcell.StyleDefault.Foreground(tcell.ColorWhite)

	for x := 0; x < width; x++ {
		ui.screen.SetContent(x, 0, '-', nil, border)
		ui.screen.SetContent(x, height-1, '-', nil, border)
	}
	for y := 0; y < height; y++ {
		ui.screen.SetContent(0, y, '|', nil, border)
		ui.screen.SetContent(width-1, y, '|', nil, border)
	}
	ui.printText(2, 0, " Game ", border)

	if snap == nil {
		return
	}

	innerW := float64(width - 2)
	innerH := float64(height - 2)
	for _, path := range snap.Paths {
		for _, node := range path.Nodes {
			x := 1 + int(node.X/config.MapWidth*innerW)
			y := 1 + int((config.MapHeight-node.Y)/config.MapHeight*innerH)
			if x >= 1 && x < width-1 && y >= 1 && y < height-1 {
				ui.screen.SetContent(x, y, '*', nil, style)
			}
		}
	}
}

// drawRooms lists every room, its members and the totals on the right pane.
func (ui *UI) drawRooms(snaps []game.RoomSnapshot, left, height int) {
	header := tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	body := tcell.StyleDefault.Foreground(tcell.ColorWhite)

	ui.printText(left, 0, "Rooms", header)

	row := 2
	totalUsers := 0
	for _, snap := range snaps {
		if row >= height-3 {
			break
		}
		ui.printText(left, row, fmt.Sprintf("Room: %s [%s]", snap.ID, snap.State), header)
		row++
		for _, userID := range snap.Members {
			if row >= height-3 {
				break
			}
			ui.printText(left+2, row, fmt.Sprintf("User: %s", userID), body)
			row++
		}
		ui.printText(left+2, row, fmt.Sprintf("User count: %d", len(snap.Members)), body)
		row += 2
		totalUsers += len(snap.Members)
	}

	ui.printText(left, height-2, fmt.Sprintf("Total rooms: %d  Total users: %d", len(snaps), totalUsers), header)
}

func (ui *UI) printText(x, y int, text string, style tcell.Style) {
	for i, r := range text {
		ui.screen.SetContent(x+i, y, r, nil, style)
	}
}
