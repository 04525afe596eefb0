package model

import (
	"fmt"
	"time"
)

type Tile int

const (
	Floor Tile = iota
	Wall
)

func (t Tile) String() string {
	switch t {
	case Floor:
		return "·"
	case Wall:
		return "█"
	default:
		return "?"
	}
}

type Point struct {
	X, Y uint8
}

type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

// Rotate turns the direction by 90 degrees.
func (d Direction) Rotate(clockwise bool) Direction {
	if clockwise {
		return (d + 1) % 4
	}
	return (d + 3) % 4
}

// Delta is the unit step in the facing direction.
func (d Direction) Delta() (int, int) {
	switch d {
	case Up:
		return 0, -1
	case Right:
		return 1, 0
	case Down:
		return 0, 1
	default:
		return -1, 0
	}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "Up"
	case Right:
		return "Right"
	case Down:
		return "Down"
	case Left:
		return "Left"
	default:
		return fmt.Sprintf("n/a:%d", int(d))
	}
}

// Position is a player or target slot. An inactive slot is an eliminated,
// escaped or absent player.
type Position struct {
	Point
	Active bool
}

func At(x, y uint8) Position {
	return Position{Point: Point{X: x, Y: y}, Active: true}
}

// Guard is inactive once an attacker has stepped onto it.
type Guard struct {
	Point
	Facing Direction
	Active bool
}

func NewGuard(x, y uint8, facing Direction) Guard {
	return Guard{Point: Point{X: x, Y: y}, Facing: facing, Active: true}
}

type Status int

const (
	Running Status = iota
	AttackerVictory
	DefenderVictory
	Quit
)

func (s Status) Name() string {
	switch s {
	case Running:
		return "RUNNING"
	case AttackerVictory:
		return "ATTACKER_VICTORY"
	case DefenderVictory:
		return "DEFENDER_VICTORY"
	case Quit:
		return "QUIT"
	default:
		return fmt.Sprintf("n/a:%d", int(s))
	}
}

// Config holds the per-session parameters, fixed by the server at start.
type Config struct {
	// InputTimeout bounds a single wait for a key press.
	InputTimeout time.Duration
	// AttackerActions and DefenderActions are the per-turn action budgets.
	AttackerActions int
	DefenderActions int
	// DetectionActions is the number of consecutive actions an attacker
	// may spend inside a view cone before being caught.
	DetectionActions int
	// ViewconeLength is the cone depth, ViewconeWidth its half-width.
	ViewconeLength int
	ViewconeWidth  int
	// TurnTime is the wall-clock budget of a single turn.
	TurnTime time.Duration
	// SetupTime bounds the defender's guard placement.
	SetupTime time.Duration
	Players   int
	Guards    int
	// Len is the side length of the square map.
	Len int
}

func DefaultConfig() Config {
	return Config{
		InputTimeout:     300 * time.Millisecond,
		AttackerActions:  5,
		DefenderActions:  10,
		DetectionActions: 3,
		ViewconeLength:   16,
		ViewconeWidth:    10,
		TurnTime:         2 * time.Minute,
		SetupTime:        5 * time.Minute,
		Players:          4,
		Guards:           5,
		Len:              48,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Players < 2:
		return fmt.Errorf("config: need at least 2 players, got %d", c.Players)
	case c.Guards < 1:
		return fmt.Errorf("config: need at least 1 guard, got %d", c.Guards)
	case c.Len < 1 || c.Len > 256:
		return fmt.Errorf("config: map side %d outside 1..256", c.Len)
	case c.AttackerActions < 1 || c.DefenderActions < 1:
		return fmt.Errorf("config: action budgets must be positive")
	case c.DetectionActions < 1:
		return fmt.Errorf("config: detection actions must be positive")
	case c.ViewconeLength < 0 || c.ViewconeWidth < 0:
		return fmt.Errorf("config: negative view cone")
	case c.TurnTime <= 0 || c.InputTimeout <= 0 || c.SetupTime <= 0:
		return fmt.Errorf("config: timeouts must be positive")
	}
	return nil
}

// Game is the authoritative aggregate on the server and its mirror on the
// client. Player is only meaningful on a client copy.
type Game struct {
	Address   string
	Config    Config
	Status    Status
	Defender  int
	Player    int
	Positions []Position
	Guards    []Guard
	Targets   []Position
	// Escaped marks attackers that reached their target.
	Escaped []bool
	Map     *Map
}
