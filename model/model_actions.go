package model

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrInvalidUpdate = errors.New("invalid update")

// NewGame scatters attackers, their targets and the guards over random floor
// tiles and picks the defender at random.
func NewGame(address string, cfg Config, m *Map, rng *rand.Rand) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m.Len != cfg.Len {
		return nil, fmt.Errorf("map side %d does not match config %d", m.Len, cfg.Len)
	}
	g := &Game{
		Address:   address,
		Config:    cfg,
		Status:    Running,
		Defender:  rng.Intn(cfg.Players),
		Positions: make([]Position, cfg.Players),
		Targets:   make([]Position, cfg.Players),
		Guards:    make([]Guard, cfg.Guards),
		Escaped:   make([]bool, cfg.Players),
		Map:       m,
	}
	for i := 0; i < cfg.Players; i++ {
		if i == g.Defender {
			continue
		}
		pos, err := m.Random(rng)
		if err != nil {
			return nil, err
		}
		target, err := m.Random(rng)
		if err != nil {
			return nil, err
		}
		g.Positions[i] = Position{Point: pos, Active: true}
		g.Targets[i] = Position{Point: target, Active: true}
	}
	for i := range g.Guards {
		pos, err := m.Random(rng)
		if err != nil {
			return nil, err
		}
		g.Guards[i] = Guard{Point: pos, Facing: Direction(rng.Intn(4)), Active: true}
	}
	return g, nil
}

// Place replaces the random layout with a fixed one. The defender keeps
// an empty slot whatever positions says.
func (g *Game) Place(positions, targets []Position, guards []Guard) error {
	if len(positions) != g.Config.Players || len(targets) != g.Config.Players {
		return fmt.Errorf("layout for %d/%d players, want %d", len(positions), len(targets), g.Config.Players)
	}
	if len(guards) != g.Config.Guards {
		return fmt.Errorf("layout with %d guards, want %d", len(guards), g.Config.Guards)
	}
	g.Positions = append([]Position(nil), positions...)
	g.Targets = append([]Position(nil), targets...)
	g.Guards = append([]Guard(nil), guards...)
	g.Positions[g.Defender] = Position{}
	g.Targets[g.Defender] = Position{}
	return nil
}

// Clone copies the game for one connection.
func (g *Game) Clone(player int) *Game {
	c := *g
	c.Player = player
	c.Positions = append([]Position(nil), g.Positions...)
	c.Targets = append([]Position(nil), g.Targets...)
	c.Guards = append([]Guard(nil), g.Guards...)
	c.Escaped = append([]bool(nil), g.Escaped...)
	return &c
}

func (g *Game) IsDefender() bool {
	return g.Player == g.Defender
}

// Turn builds the round message for one recipient. Losers of a decided
// game are told Quit, winners the real outcome.
func (g *Game) Turn(player, current int) TurnMessage {
	defender := player == g.Defender
	status := g.Status
	if defender && status == AttackerVictory || !defender && status == DefenderVictory {
		status = Quit
	}
	return TurnMessage{
		Turn:      player == current,
		Defender:  defender,
		Positions: append([]Position(nil), g.Positions...),
		Guards:    append([]Guard(nil), g.Guards...),
		Status:    status,
	}
}

// Update applies the acting player's message.
func (g *Game) Update(msg UpdateMessage, current int) {
	g.Positions[current] = msg.New
	g.Guards = append([]Guard(nil), msg.Guards...)
	g.Status = msg.Status
	if msg.Escaped {
		g.Escaped[current] = true
	}
}

// Mirror copies a round message into a client's local game.
func (g *Game) Mirror(msg TurnMessage) {
	g.Positions = append([]Position(nil), msg.Positions...)
	g.Guards = append([]Guard(nil), msg.Guards...)
	g.Status = msg.Status
}

// Play is the update a client sends once its input is done.
func (g *Game) Play() UpdateMessage {
	msg := UpdateMessage{
		Guards: append([]Guard(nil), g.Guards...),
		Status: g.Status,
	}
	if !g.IsDefender() {
		msg.New = g.Positions[g.Player]
		msg.Escaped = g.Escaped[g.Player]
	}
	return msg
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidUpdate, fmt.Sprintf(format, args...))
}

func (g *Game) validStatus(s Status) error {
	if s != Running && s != Quit {
		return invalid("clients may not declare %s", s.Name())
	}
	return nil
}

// ValidatePlacement checks the defender's guard placement sent before the
// first round.
func (g *Game) ValidatePlacement(msg UpdateMessage) error {
	if err := g.validStatus(msg.Status); err != nil {
		return err
	}
	if msg.New.Active || msg.Escaped {
		return invalid("defender has no avatar")
	}
	if len(msg.Guards) != g.Config.Guards {
		return invalid("%d guards placed, want %d", len(msg.Guards), g.Config.Guards)
	}
	for i, guard := range msg.Guards {
		if !guard.Active || !g.Map.IsFloor(int(guard.X), int(guard.Y)) {
			return invalid("guard %d placed off floor", i)
		}
		if guard.Facing < Up || guard.Facing > Left {
			return invalid("guard %d faces %d", i, guard.Facing)
		}
	}
	return nil
}

// ValidateUpdate checks that the acting player only changed what its role
// allows: the defender moves and turns guards within its budget, an
// attacker moves itself within its budget and may only take out guards it
// could have stepped on, or escape when its target is within reach.
func (g *Game) ValidateUpdate(msg UpdateMessage, current int) error {
	if current < 0 || current >= len(g.Positions) {
		return invalid("no player %d", current)
	}
	if err := g.validStatus(msg.Status); err != nil {
		return err
	}
	if len(msg.Guards) != len(g.Guards) {
		return invalid("%d guards sent, want %d", len(msg.Guards), len(g.Guards))
	}
	if current == g.Defender {
		return g.validateDefender(msg)
	}
	return g.validateAttacker(msg, current)
}

func (g *Game) validateDefender(msg UpdateMessage) error {
	if msg.New.Active || msg.Escaped {
		return invalid("defender has no avatar")
	}
	spent := 0
	for i, guard := range msg.Guards {
		old := g.Guards[i]
		if guard.Active != old.Active {
			return invalid("defender toggled guard %d", i)
		}
		if !guard.Active {
			continue
		}
		if !g.Map.IsFloor(int(guard.X), int(guard.Y)) {
			return invalid("guard %d moved off floor", i)
		}
		if guard.Facing < Up || guard.Facing > Left {
			return invalid("guard %d faces %d", i, guard.Facing)
		}
		spent += distance(old.Point, guard.Point)
	}
	if spent > g.Config.DefenderActions {
		return invalid("guards moved %d tiles, budget %d", spent, g.Config.DefenderActions)
	}
	return nil
}

func (g *Game) validateAttacker(msg UpdateMessage, current int) error {
	old := g.Positions[current]
	budget := g.Config.AttackerActions
	for i, guard := range msg.Guards {
		prev := g.Guards[i]
		if guard == prev {
			continue
		}
		if !prev.Active || guard.Active || guard.Point != prev.Point || guard.Facing != prev.Facing {
			return invalid("attacker %d changed guard %d", current, i)
		}
		// a guard is taken by stepping on it, so it must lie within reach
		if !old.Active {
			return invalid("player %d is out of play", current)
		}
		if d := distance(old.Point, prev.Point); d > budget {
			return invalid("player %d took guard %d from %d tiles, budget %d", current, i, d, budget)
		}
	}
	if msg.New.Active {
		if !old.Active {
			return invalid("player %d is out of play", current)
		}
		if !g.Map.IsFloor(int(msg.New.X), int(msg.New.Y)) {
			return invalid("player %d moved off floor", current)
		}
		if d := distance(old.Point, msg.New.Point); d > budget {
			return invalid("player %d moved %d tiles, budget %d", current, d, budget)
		}
	}
	if msg.Escaped && !g.Escaped[current] {
		target := g.Targets[current]
		if msg.New.Active || !old.Active || !target.Active {
			return invalid("player %d cannot escape from here", current)
		}
		if d := distance(old.Point, target.Point); d > budget {
			return invalid("player %d is %d tiles from its target, budget %d", current, d, budget)
		}
	}
	return nil
}

func distance(a, b Point) int {
	return abs(int(a.X)-int(b.X)) + abs(int(a.Y)-int(b.Y))
}

// Victory decides the game once per round. Attackers win when nobody is
// left away from their target and at least one of them made it, or when
// every guard is down. The defender wins when every slot is empty.
func (g *Game) Victory() {
	if g.Status != Running {
		return
	}
	home, away := 0, 0
	for i, pos := range g.Positions {
		if i == g.Defender {
			continue
		}
		switch {
		case g.Escaped[i]:
			home++
		case !pos.Active:
		case g.Targets[i].Active && g.Targets[i].Point == pos.Point:
			home++
		default:
			away++
		}
	}
	guardsDown := true
	for _, guard := range g.Guards {
		if guard.Active {
			guardsDown = false
			break
		}
	}
	if away == 0 && home > 0 || guardsDown {
		g.Status = AttackerVictory
		return
	}
	empty := 0
	for _, pos := range g.Positions {
		if !pos.Active {
			empty++
		}
	}
	if empty == len(g.Positions) {
		g.Status = DefenderVictory
	}
}

func (g *Game) step(x, y uint8, dx, dy int) (uint8, uint8, bool) {
	x2, y2 := int(x)+dx, int(y)+dy
	if !g.Map.IsFloor(x2, y2) {
		return x, y, false
	}
	return uint8(x2), uint8(y2), true
}

// MovePlayer moves the local attacker; walls and the map edge block it.
func (g *Game) MovePlayer(dx, dy int) {
	p := &g.Positions[g.Player]
	if !p.Active {
		return
	}
	p.X, p.Y, _ = g.step(p.X, p.Y, dx, dy)
}

func (g *Game) MoveGuard(i, dx, dy int) {
	if i < 0 || i >= len(g.Guards) || !g.Guards[i].Active {
		return
	}
	guard := &g.Guards[i]
	guard.X, guard.Y, _ = g.step(guard.X, guard.Y, dx, dy)
}

func (g *Game) RotateGuard(i int, clockwise bool) {
	if i < 0 || i >= len(g.Guards) || !g.Guards[i].Active {
		return
	}
	g.Guards[i].Facing = g.Guards[i].Facing.Rotate(clockwise)
}

// Watched is everything the guards see right now.
func (g *Game) Watched() Cone {
	cone := Cone{}
	for _, guard := range g.Guards {
		cone.Merge(ViewCone(g.Map, guard, g.Config.ViewconeLength, g.Config.ViewconeWidth))
	}
	return cone
}

// Visible reports whether any guard sees the player.
func (g *Game) Visible(player int) bool {
	pos := g.Positions[player]
	if !pos.Active {
		return false
	}
	for _, guard := range g.Guards {
		if ViewCone(g.Map, guard, g.Config.ViewconeLength, g.Config.ViewconeWidth).Contains(pos.Point) {
			return true
		}
	}
	return false
}

// ResolveAction applies the elimination rules after one attacker action.
// streak counts consecutive actions spent in sight. It reports whether the
// attacker's turn is over.
func (g *Game) ResolveAction(streak *int) bool {
	pos := g.Positions[g.Player]
	if !pos.Active {
		return true
	}
	for i, guard := range g.Guards {
		if guard.Active && guard.Point == pos.Point {
			g.Guards[i].Active = false
		}
	}
	if g.Visible(g.Player) {
		*streak++
	} else {
		*streak = 0
	}
	if *streak >= g.Config.DetectionActions {
		g.Positions[g.Player].Active = false
		return true
	}
	if target := g.Targets[g.Player]; target.Active && target.Point == pos.Point {
		g.Positions[g.Player].Active = false
		g.Escaped[g.Player] = true
		return true
	}
	return false
}
