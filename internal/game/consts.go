package game

import "time"

const (
	SimHz          = 20.0 // room tick rate
	Dt             = time.Second / time.Duration(SimHz)
	UpdateRateHz   = 10.0 // per-client WS state pushes
	RoomMaxPlayers = 8

	// DefaultTextWidth is the wrap width for talkers that do not set one.
	DefaultTextWidth = 40
	// MaxPendingMessages caps each player's outbound queue; the oldest
	// messages are dropped first.
	MaxPendingMessages = 256
	// DefaultCollectSound plays when a collectable has no sound of its own.
	DefaultCollectSound = "chime"
)
