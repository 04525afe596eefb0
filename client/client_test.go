package client

import (
	"math/rand"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zucenko/hanzo/model"
	"github.com/zucenko/hanzo/transport"
)

// fakeUI steps the attacker one tile right per turn and leaves guards alone.
type fakeUI struct {
	displays int
	inputs   int
	placed   bool
	splashed bool
	idles    int
	quitIdle bool
	reset    bool
}

func (f *fakeUI) Display(*model.Game, bool) error {
	f.displays++
	return nil
}

func (f *fakeUI) Input(g *model.Game, defender bool) error {
	f.inputs++
	if !defender {
		g.MovePlayer(1, 0)
	}
	return nil
}

func (f *fakeUI) PlaceGuards(g *model.Game) error {
	f.placed = true
	g.Guards[0].Facing = model.Left
	return nil
}

func (f *fakeUI) Splash() error {
	f.splashed = true
	return nil
}

func (f *fakeUI) Idle(bool) (bool, error) {
	f.idles++
	return f.quitIdle, nil
}

func (f *fakeUI) Reset() {
	f.reset = true
}

const room = `
######
#....#
#....#
#....#
#....#
######
`

func game(t *testing.T) *model.Game {
	t.Helper()
	m, err := model.ParseMap(strings.NewReader(room))
	require.NoError(t, err)
	cfg := model.DefaultConfig()
	cfg.Len = 6
	cfg.Players = 2
	cfg.Guards = 1
	g, err := model.NewGame("test", cfg, m, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	g.Defender = 0
	require.NoError(t, g.Place(
		[]model.Position{{}, model.At(1, 1)},
		[]model.Position{{}, model.At(4, 4)},
		[]model.Guard{model.NewGuard(4, 1, model.Down)},
	))
	return g
}

func pipe(t *testing.T) (server, client transport.Conn) {
	t.Helper()
	a, b := net.Pipe()
	server, client = transport.Stream(a), transport.Stream(b)
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return server, client
}

func TestAttackerPlaysTurn(t *testing.T) {
	g := game(t)
	server, conn := pipe(t)
	updates := make(chan model.UpdateMessage, 1)
	go func() {
		if server.Send(g.Clone(1)) != nil {
			return
		}
		if server.Send(g.Turn(1, 1)) != nil {
			return
		}
		var update model.UpdateMessage
		if server.Receive(&update) != nil {
			return
		}
		updates <- update
		g.Update(update, 1)
		g.Status = model.AttackerVictory
		server.Send(g.Turn(1, 0))
	}()

	ui := &fakeUI{}
	c, err := New(conn, ui)
	require.NoError(t, err)
	assert.False(t, ui.placed)
	assert.True(t, ui.splashed)
	assert.Equal(t, 1, c.Game.Player)

	require.NoError(t, c.Run())
	update := <-updates
	assert.Equal(t, model.At(2, 1), update.New)
	assert.Equal(t, model.Running, update.Status)
	assert.Equal(t, 1, ui.inputs)
	assert.Equal(t, 2, ui.displays)
	assert.True(t, c.Result())

	require.NoError(t, c.Close())
	assert.True(t, ui.reset)
}

func TestDefenderPlacesGuardsFirst(t *testing.T) {
	g := game(t)
	server, conn := pipe(t)
	placements := make(chan model.UpdateMessage, 1)
	go func() {
		if server.Send(g.Clone(0)) != nil {
			return
		}
		var placement model.UpdateMessage
		if server.Receive(&placement) != nil {
			return
		}
		placements <- placement
		g.Status = model.AttackerVictory
		server.Send(g.Turn(0, 1))
	}()

	ui := &fakeUI{}
	c, err := New(conn, ui)
	require.NoError(t, err)
	assert.True(t, ui.placed)

	placement := <-placements
	require.Len(t, placement.Guards, 1)
	assert.Equal(t, model.Left, placement.Guards[0].Facing)
	assert.False(t, placement.New.Active)
	assert.NoError(t, g.ValidatePlacement(placement))

	require.NoError(t, c.Run())
	assert.Equal(t, model.Quit, c.Game.Status)
	assert.False(t, c.Result())
	assert.Zero(t, ui.inputs)
}

func TestLostServerEndsRun(t *testing.T) {
	g := game(t)
	server, conn := pipe(t)
	go func() {
		if server.Send(g.Clone(1)) != nil {
			return
		}
		time.Sleep(3 * IdleTimeout)
		server.Close()
	}()

	ui := &fakeUI{}
	c, err := New(conn, ui)
	require.NoError(t, err)
	err = c.Run()
	assert.ErrorIs(t, err, transport.ErrClosed)
	assert.NotZero(t, ui.idles)
	assert.False(t, c.Result())
}

func TestQuitWhileIdle(t *testing.T) {
	g := game(t)
	server, conn := pipe(t)
	go server.Send(g.Clone(1))

	ui := &fakeUI{quitIdle: true}
	c, err := New(conn, ui)
	require.NoError(t, err)
	require.NoError(t, c.Run())
	assert.Equal(t, model.Quit, c.Game.Status)
	assert.Equal(t, 1, ui.idles)
}
