package ui

import "time"

type KeyCode int

const (
	KeyRune KeyCode = iota
	KeyTab
	KeyLeft
	KeyDown
	KeyUp
	KeyRight
)

// Key is one key press. Rune is only set for KeyRune.
type Key struct {
	Code KeyCode
	Rune rune
}

func Char(r rune) Key {
	return Key{Code: KeyRune, Rune: r}
}

type Colour int

const (
	Reset Colour = iota
	Black
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
	Grey
)

// Backend is the drawing surface and keyboard of a user interface.
type Backend interface {
	// Draw writes s at the given cell. Nothing shows before Flush.
	Draw(x, y int, s string, fg, bg Colour) error
	Flush() error
	Clear() error
	// Input waits up to timeout for a key. ok is false when none came.
	Input(timeout time.Duration) (key Key, ok bool, err error)
	// Size is the display size in cells, the last row is the message line.
	Size() (width, height int)
	// Message replaces the message line.
	Message(msg string) error
	Reset()
}
