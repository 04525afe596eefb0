package ui

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zucenko/hanzo/model"
)

const splash = `██   ██  █████  ███    ██ ███████  ██████
██   ██ ██   ██ ████   ██    ███  ██    ██
███████ ███████ ██ ██  ██   ███   ██    ██
██   ██ ██   ██ ██  ██ ██  ███    ██    ██
██   ██ ██   ██ ██   ████ ███████  ██████`

// UserInterface draws a game and turns key presses into local moves.
type UserInterface struct {
	backend Backend
	// centre of the view, the map's origin is drawn top left when unset
	centre *model.Point
	seen   map[model.Point]model.Tile
	// selected guard
	guard int
	rng   *rand.Rand
	now   func() time.Time
}

func New(backend Backend) *UserInterface {
	return &UserInterface{
		backend: backend,
		seen:    make(map[model.Point]model.Tile),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
}

func (u *UserInterface) Message(msg string) error {
	return u.backend.Message(msg)
}

func (u *UserInterface) Reset() {
	u.backend.Reset()
}

// toScreen maps a map point to a display cell, false when it is off screen.
func (u *UserInterface) toScreen(p model.Point) (int, int, bool) {
	w, h := u.backend.Size()
	x, y := int(p.X), int(p.Y)
	if u.centre != nil {
		x += w/2 - int(u.centre.X)
		y += (h-1)/2 - int(u.centre.Y)
	}
	if x < 0 || y < 0 || x >= w || y >= h-1 {
		return 0, 0, false
	}
	return x, y, true
}

func (u *UserInterface) draw(p model.Point, s string, fg, bg Colour) error {
	x, y, ok := u.toScreen(p)
	if !ok {
		return nil
	}
	return u.backend.Draw(x, y, s, fg, bg)
}

func (u *UserInterface) drawSeen() error {
	for p, t := range u.seen {
		if err := u.draw(p, t.String(), Grey, Reset); err != nil {
			return err
		}
	}
	return nil
}

func (u *UserInterface) Display(g *model.Game, defender bool) error {
	if defender {
		return u.displayDefender(g, false)
	}
	return u.displayAttacker(g)
}

// displayDefender shows what the guards see. full also draws the whole map,
// which the defender only gets while placing guards.
func (u *UserInterface) displayDefender(g *model.Game, full bool) error {
	if err := u.backend.Clear(); err != nil {
		return err
	}
	u.centre = nil
	if u.guard < len(g.Guards) && g.Guards[u.guard].Active {
		p := g.Guards[u.guard].Point
		u.centre = &p
	}

	if full {
		for it := g.Map.Tiles(); ; {
			p, t, ok := it.Next()
			if !ok {
				break
			}
			if err := u.draw(p, t.String(), Grey, Reset); err != nil {
				return err
			}
		}
	} else if err := u.drawSeen(); err != nil {
		return err
	}

	watched := g.Watched()
	for p, t := range watched {
		u.seen[p] = t
		if err := u.draw(p, t.String(), Reset, Red); err != nil {
			return err
		}
	}
	for _, pos := range g.Positions {
		if pos.Active && watched.Contains(pos.Point) {
			if err := u.draw(pos.Point, "A", Blue, White); err != nil {
				return err
			}
		}
	}
	for i, guard := range g.Guards {
		if !guard.Active {
			continue
		}
		bg := Reset
		if i == u.guard {
			bg = Yellow
		}
		if err := u.draw(guard.Point, "G", Red, bg); err != nil {
			return err
		}
	}
	return u.backend.Flush()
}

// displayAttacker shows the attacker's surroundings, the guard cones inside
// them and its own target once it has been seen.
func (u *UserInterface) displayAttacker(g *model.Game) error {
	if err := u.backend.Clear(); err != nil {
		return err
	}
	self := g.Positions[g.Player]
	if self.Active {
		p := self.Point
		u.centre = &p
	}
	if err := u.drawSeen(); err != nil {
		return err
	}

	watched := g.Watched()
	visible := model.Sight(g.Map, self, g.Config.ViewconeLength, g.Config.ViewconeWidth)
	for p, t := range visible {
		u.seen[p] = t
		bg := Reset
		if watched.Contains(p) {
			bg = Red
		}
		if err := u.draw(p, t.String(), Green, bg); err != nil {
			return err
		}
	}
	for _, guard := range g.Guards {
		if guard.Active && visible.Contains(guard.Point) {
			if err := u.draw(guard.Point, "G", Red, Reset); err != nil {
				return err
			}
		}
	}
	for i, pos := range g.Positions {
		if i != g.Player && pos.Active && visible.Contains(pos.Point) {
			if err := u.draw(pos.Point, "A", Yellow, Reset); err != nil {
				return err
			}
		}
	}
	if target := g.Targets[g.Player]; target.Active && visible.Contains(target.Point) {
		if err := u.draw(target.Point, "X", Green, Reset); err != nil {
			return err
		}
	}
	if self.Active {
		if err := u.draw(self.Point, "A", Cyan, Reset); err != nil {
			return err
		}
	}
	return u.backend.Flush()
}

func (u *UserInterface) status(g *model.Game, actions int, remaining time.Duration) error {
	attackers, guards := 0, 0
	for _, p := range g.Positions {
		if p.Active {
			attackers++
		}
	}
	for _, guard := range g.Guards {
		if guard.Active {
			guards++
		}
	}
	return u.backend.Message(fmt.Sprintf("Your turn! Attackers: %d, Guards: %d, Actions: %d, Turn Time: %ds",
		attackers, guards, actions, int(remaining.Seconds())))
}

// firstGuard selects the first active guard.
func (u *UserInterface) firstGuard(g *model.Game) {
	u.guard = 0
	for i, guard := range g.Guards {
		if guard.Active {
			u.guard = i
			return
		}
	}
}

// nextGuard cycles the selection to the next active guard.
func (u *UserInterface) nextGuard(g *model.Game) {
	for range g.Guards {
		u.guard = (u.guard + 1) % len(g.Guards)
		if g.Guards[u.guard].Active {
			return
		}
	}
}

func arrow(code KeyCode) model.Direction {
	switch code {
	case KeyUp:
		return model.Up
	case KeyRight:
		return model.Right
	case KeyDown:
		return model.Down
	default:
		return model.Left
	}
}

// defenderKey applies one key to the selected guard and returns its cost.
func (u *UserInterface) defenderKey(g *model.Game, key Key) int {
	switch key.Code {
	case KeyTab:
		u.nextGuard(g)
		return 0
	case KeyLeft, KeyRight, KeyUp, KeyDown:
		dx, dy := arrow(key.Code).Delta()
		g.MoveGuard(u.guard, dx, dy)
	case KeyRune:
		switch key.Rune {
		case 'q':
			g.Status = model.Quit
			return g.Config.DefenderActions
		case '[':
			g.RotateGuard(u.guard, false)
		case ']':
			g.RotateGuard(u.guard, true)
		case '.':
		default:
			return 0
		}
	}
	return 1
}

func (u *UserInterface) attackerKey(g *model.Game, key Key) int {
	switch key.Code {
	case KeyTab:
		return 0
	case KeyLeft, KeyRight, KeyUp, KeyDown:
		g.MovePlayer(arrow(key.Code).Delta())
	case KeyRune:
		switch key.Rune {
		case 'q':
			g.Status = model.Quit
			return g.Config.AttackerActions
		case '.':
		default:
			return 0
		}
	}
	return 1
}

// Input runs one turn: keys are read until the action budget or the turn
// time runs out. An attacker's turn also ends once it is caught or escapes.
func (u *UserInterface) Input(g *model.Game, defender bool) error {
	start := u.now()
	u.firstGuard(g)
	actions := g.Config.AttackerActions
	if defender {
		actions = g.Config.DefenderActions
	}
	streak := 0
	for actions > 0 {
		remaining := g.Config.TurnTime - u.now().Sub(start)
		if remaining <= 0 {
			log.Info("UserInterface.Input turn time is up")
			break
		}
		if err := u.status(g, actions, remaining); err != nil {
			return err
		}
		if !defender && !g.Positions[g.Player].Active {
			break
		}
		key, ok, err := u.backend.Input(g.Config.InputTimeout)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		var cost int
		if defender {
			cost = u.defenderKey(g, key)
		} else {
			cost = u.attackerKey(g, key)
		}
		if cost == 0 {
			continue
		}
		actions -= cost
		over := false
		if !defender {
			over = g.ResolveAction(&streak)
		}
		if err := u.Display(g, defender); err != nil {
			return err
		}
		if over || g.Status != model.Running {
			break
		}
	}
	return nil
}

// PlaceGuards lets the defender walk every guard to its starting tile, space
// fixes the selected one. Guards still loose when the setup time runs out
// stay where they are.
func (u *UserInterface) PlaceGuards(g *model.Game) error {
	start := u.now()
	u.guard = 0
	positions := g.Positions
	g.Positions = make([]model.Position, len(positions))
	defer func() { g.Positions = positions }()

	placed := make([]model.Guard, 0, len(g.Guards))
	if err := u.displayDefender(g, true); err != nil {
		return err
	}
	for remaining := len(g.Guards); remaining > 0; {
		if u.now().Sub(start) >= g.Config.SetupTime {
			log.Warn("UserInterface.PlaceGuards setup time is up")
			break
		}
		if err := u.backend.Message(fmt.Sprintf("%d guards remaining to place", remaining)); err != nil {
			return err
		}
		key, ok, err := u.backend.Input(g.Config.InputTimeout)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if key.Code == KeyRune && key.Rune == ' ' {
			placed = append(placed, g.Guards[u.guard])
			g.Guards[u.guard].Active = false
			remaining--
			u.firstGuard(g)
		} else {
			u.defenderKey(g, key)
		}
		if err := u.displayDefender(g, true); err != nil {
			return err
		}
	}
	for _, guard := range g.Guards {
		if guard.Active {
			placed = append(placed, guard)
		}
	}
	g.Guards = placed
	// setup cannot end the game
	g.Status = model.Running
	return nil
}

func (u *UserInterface) Splash() error {
	if err := u.backend.Clear(); err != nil {
		return err
	}
	for i, line := range strings.Split(splash, "\n") {
		if err := u.backend.Draw(5, 5+i, line, Red, Reset); err != nil {
			return err
		}
	}
	return u.backend.Flush()
}

// Idle keeps the screen alive between turns. It reports true when the
// player pressed q.
func (u *UserInterface) Idle(begun bool) (bool, error) {
	key, ok, err := u.backend.Input(100 * time.Millisecond)
	if err != nil {
		return false, err
	}
	if ok && key == Char('q') {
		return true, nil
	}
	if begun {
		w, h := u.backend.Size()
		if w > 0 && h > 1 {
			for i := 0; i < w/4; i++ {
				if err := u.backend.Draw(u.rng.Intn(w), u.rng.Intn(h-1), "@", Magenta, Reset); err != nil {
					return false, err
				}
			}
		}
	}
	return false, u.backend.Message("Waiting for other players...")
}
