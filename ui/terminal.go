package ui

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
)

var ErrScreenClosed = errors.New("screen closed")

// Terminal is a Backend over a tcell screen.
type Terminal struct {
	screen tcell.Screen
	events chan tcell.Event
	fini   sync.Once
}

func NewTerminal(screen tcell.Screen) (*Terminal, error) {
	if screen == nil {
		var err error
		if screen, err = tcell.NewScreen(); err != nil {
			return nil, fmt.Errorf("terminal: %w", err)
		}
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("terminal init: %w", err)
	}
	screen.HideCursor()
	screen.Clear()
	t := &Terminal{
		screen: screen,
		events: make(chan tcell.Event, 16),
	}
	go t.poll()
	return t, nil
}

// poll feeds screen events until the screen is finalized.
func (t *Terminal) poll() {
	defer close(t.events)
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		t.events <- ev
	}
}

func colour(c Colour) tcell.Color {
	switch c {
	case Black:
		return tcell.ColorBlack
	case Red:
		return tcell.ColorRed
	case Green:
		return tcell.ColorGreen
	case Yellow:
		return tcell.ColorYellow
	case Blue:
		return tcell.ColorBlue
	case Magenta:
		return tcell.ColorFuchsia
	case Cyan:
		return tcell.ColorAqua
	case White:
		return tcell.ColorWhite
	case Grey:
		return tcell.ColorGray
	default:
		return tcell.ColorDefault
	}
}

func (t *Terminal) Draw(x, y int, s string, fg, bg Colour) error {
	style := tcell.StyleDefault.Foreground(colour(fg)).Background(colour(bg))
	for _, r := range s {
		t.screen.SetContent(x, y, r, nil, style)
		x++
	}
	return nil
}

func (t *Terminal) Flush() error {
	t.screen.Show()
	return nil
}

func (t *Terminal) Clear() error {
	t.screen.Clear()
	return nil
}

func (t *Terminal) Input(timeout time.Duration) (Key, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-t.events:
			if !ok {
				return Key{}, false, ErrScreenClosed
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if key, ok := translate(ev); ok {
					return key, true, nil
				}
			case *tcell.EventResize:
				t.screen.Sync()
			}
		case <-timer.C:
			return Key{}, false, nil
		}
	}
}

func translate(ev *tcell.EventKey) (Key, bool) {
	switch ev.Key() {
	case tcell.KeyTab:
		return Key{Code: KeyTab}, true
	case tcell.KeyLeft:
		return Key{Code: KeyLeft}, true
	case tcell.KeyRight:
		return Key{Code: KeyRight}, true
	case tcell.KeyUp:
		return Key{Code: KeyUp}, true
	case tcell.KeyDown:
		return Key{Code: KeyDown}, true
	case tcell.KeyRune:
		return Char(ev.Rune()), true
	}
	return Key{}, false
}

func (t *Terminal) Size() (int, int) {
	return t.screen.Size()
}

func (t *Terminal) Message(msg string) error {
	w, h := t.screen.Size()
	style := tcell.StyleDefault.Foreground(tcell.ColorFuchsia)
	x := 0
	for _, r := range msg {
		if x >= w {
			break
		}
		t.screen.SetContent(x, h-1, r, nil, style)
		x++
	}
	for ; x < w; x++ {
		t.screen.SetContent(x, h-1, ' ', nil, tcell.StyleDefault)
	}
	t.screen.Show()
	return nil
}

func (t *Terminal) Reset() {
	t.fini.Do(t.screen.Fini)
}
