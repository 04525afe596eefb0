package server

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zucenko/hanzo/model"
	"github.com/zucenko/hanzo/store"
	"github.com/zucenko/hanzo/transport"
)

const arena = `
########
#......#
#......#
#......#
#......#
#......#
#......#
########
`

func arenaConfig(players int) model.Config {
	cfg := model.DefaultConfig()
	cfg.Len = 8
	cfg.Players = players
	cfg.Guards = 1
	cfg.ViewconeLength = 2
	cfg.ViewconeWidth = 1
	return cfg
}

// arenaGames makes slot 0 the defender. Attackers start on the top row and
// aim three tiles to their right, the guard looks at the bottom wall.
func arenaGames(address string, cfg model.Config, rng *rand.Rand) (*model.Game, error) {
	g, err := model.NewGame(address, cfg, mustParse(arena), rng)
	if err != nil {
		return nil, err
	}
	g.Defender = 0
	positions := make([]model.Position, cfg.Players)
	targets := make([]model.Position, cfg.Players)
	for i := 1; i < cfg.Players; i++ {
		positions[i] = model.At(1, uint8(i))
		targets[i] = model.At(4, uint8(i))
	}
	return g, g.Place(positions, targets, []model.Guard{model.NewGuard(6, 5, model.Down)})
}

func startServer(t *testing.T, cfg model.Config, factory GameFactory) (*GameServer, *store.Memory) {
	t.Helper()
	results := store.NewMemory()
	s := NewGameServer("test", cfg, factory, results)
	s.TurnGrace = 0
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Loop(ctx)
	return s, results
}

// connect seats one in-memory player the way ServeTCP does.
func connect(t *testing.T, s *GameServer) transport.Conn {
	t.Helper()
	client, server := net.Pipe()
	go func() {
		conn := transport.Stream(server)
		defer conn.Close()
		gs, code, err := s.seat(time.Second)
		if err != nil || code != GAME_READY {
			return
		}
		gs.join(conn)
	}()
	return transport.Stream(client)
}

// bot plays one connection. onTurn edits the local game before it is sent
// back; returning false drops the connection instead.
type bot struct {
	game   *model.Game
	turns  int
	final  model.TurnMessage
	err    error
	onTurn func(b *bot, msg model.TurnMessage) bool
}

func (b *bot) run(conn transport.Conn, log *turnLog) {
	defer conn.Close()
	var snapshot model.Game
	if b.err = conn.Receive(&snapshot); b.err != nil {
		return
	}
	b.game = &snapshot
	if b.game.IsDefender() {
		if b.err = conn.Send(b.game.Play()); b.err != nil {
			return
		}
	}
	for {
		var msg model.TurnMessage
		if b.err = conn.Receive(&msg); b.err != nil {
			return
		}
		b.game.Mirror(msg)
		if msg.Status != model.Running {
			b.final = msg
			return
		}
		if !msg.Turn {
			continue
		}
		log.add(b.game.Player)
		b.turns++
		if b.onTurn != nil && !b.onTurn(b, msg) {
			return
		}
		if b.err = conn.Send(b.game.Play()); b.err != nil {
			return
		}
	}
}

type turnLog struct {
	mu    sync.Mutex
	order []int
}

func (l *turnLog) add(player int) {
	l.mu.Lock()
	l.order = append(l.order, player)
	l.mu.Unlock()
}

func play(t *testing.T, s *GameServer, bots ...*bot) *turnLog {
	t.Helper()
	log := &turnLog{}
	var wg sync.WaitGroup
	for _, b := range bots {
		conn := connect(t, s)
		wg.Add(1)
		go func(b *bot) {
			defer wg.Done()
			b.run(conn, log)
		}(b)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("game did not finish")
	}
	return log
}

// walker moves attackers right until their target, the defender stands still
// and quits after quitAfter turns when set.
func walker(quitAfter int) func(b *bot, msg model.TurnMessage) bool {
	return func(b *bot, msg model.TurnMessage) bool {
		if b.game.IsDefender() {
			if quitAfter > 0 && b.turns >= quitAfter {
				b.game.Status = model.Quit
			}
			return true
		}
		streak := 0
		for i := 0; i < b.game.Config.AttackerActions; i++ {
			b.game.MovePlayer(1, 0)
			if b.game.ResolveAction(&streak) {
				break
			}
		}
		return true
	}
}

func waitRecord(t *testing.T, results *store.Memory) store.Record {
	t.Helper()
	var rec store.Record
	require.Eventually(t, func() bool {
		list, err := results.List(context.Background(), 1)
		if err != nil || len(list) == 0 {
			return false
		}
		rec = list[0]
		return true
	}, 2*time.Second, 10*time.Millisecond)
	return rec
}

func TestAttackerReachesTarget(t *testing.T) {
	s, results := startServer(t, arenaConfig(2), arenaGames)
	a, b := &bot{onTurn: walker(0)}, &bot{onTurn: walker(0)}
	log := play(t, s, a, b)

	assert.Equal(t, []int{0, 1}, log.order)
	defender, attacker := a, b
	if !a.game.IsDefender() {
		defender, attacker = b, a
	}
	assert.Equal(t, model.Quit, defender.final.Status)
	assert.Equal(t, model.AttackerVictory, attacker.final.Status)
	assert.False(t, attacker.final.Positions[attacker.game.Player].Active)

	rec := waitRecord(t, results)
	assert.False(t, rec.Failed)
	assert.Equal(t, "ATTACKER_VICTORY", rec.Status)
	assert.Equal(t, 2, rec.Rounds)
}

func TestSummaryCountsConnectionTraffic(t *testing.T) {
	s, results := startServer(t, arenaConfig(2), arenaGames)
	play(t, s, &bot{onTurn: walker(0)}, &bot{onTurn: walker(0)})
	waitRecord(t, results)

	var summary Summary
	require.Eventually(t, func() bool {
		sessions := s.Sessions()
		if len(sessions) != 1 {
			return false
		}
		summary = sessions[0]
		return summary.State == "GS_OVER"
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, summary.Connected)
	require.Len(t, summary.Connections, 2)
	for i, c := range summary.Connections {
		assert.Equal(t, i, c.Player)
		assert.Equal(t, "OVER", c.State)
		assert.GreaterOrEqual(t, c.Out, 2, "snapshot and final round for %d", i)
		assert.GreaterOrEqual(t, c.In, 1, "player %d sent nothing", i)
		assert.False(t, c.LastMessage.IsZero())
	}
}

func TestTurnsRotateThroughEveryPlayer(t *testing.T) {
	cfg := arenaConfig(3)
	s, results := startServer(t, cfg, func(address string, cfg model.Config, rng *rand.Rand) (*model.Game, error) {
		g, err := arenaGames(address, cfg, rng)
		if err != nil {
			return nil, err
		}
		// targets out of reach keep the game running
		g.Targets[1], g.Targets[2] = model.At(6, 6), model.At(6, 6)
		return g, nil
	})
	still := func(b *bot, msg model.TurnMessage) bool {
		if b.game.IsDefender() && b.turns == 3 {
			b.game.Status = model.Quit
		}
		return true
	}
	bots := []*bot{{onTurn: still}, {onTurn: still}, {onTurn: still}}
	log := play(t, s, bots...)

	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, log.order)
	for _, b := range bots {
		require.NoError(t, b.err)
		assert.Equal(t, model.Quit, b.final.Status)
	}
	rec := waitRecord(t, results)
	assert.Equal(t, "QUIT", rec.Status)
	assert.Equal(t, 7, rec.Rounds)
}

func TestInvalidUpdateIsDropped(t *testing.T) {
	s, _ := startServer(t, arenaConfig(2), arenaGames)
	var seen []model.Position
	cheat := func(b *bot, msg model.TurnMessage) bool {
		if b.game.IsDefender() {
			if b.turns == 2 {
				b.game.Status = model.Quit
			}
			return true
		}
		seen = append(seen, msg.Positions[b.game.Player])
		// ten tiles in one go
		b.game.Positions[b.game.Player] = model.At(6, 6)
		return true
	}
	a, b := &bot{onTurn: cheat}, &bot{onTurn: cheat}
	play(t, s, a, b)

	attacker := a
	if a.game.IsDefender() {
		attacker = b
	}
	require.Len(t, seen, 1)
	assert.Equal(t, model.At(1, 1), seen[0])
	assert.Equal(t, model.At(1, 1), attacker.final.Positions[attacker.game.Player])
}

func TestLostConnectionAbortsSession(t *testing.T) {
	s, results := startServer(t, arenaConfig(2), arenaGames)
	quitter := func(b *bot, msg model.TurnMessage) bool {
		return b.game.IsDefender()
	}
	a, b := &bot{onTurn: quitter}, &bot{onTurn: quitter}
	play(t, s, a, b)

	rec := waitRecord(t, results)
	assert.True(t, rec.Failed)
	assert.Contains(t, rec.Reason, "player 1")
	for _, b := range []*bot{a, b} {
		assert.Equal(t, model.Running, b.final.Status)
	}
}

func TestSilentPlayerTimesOut(t *testing.T) {
	cfg := arenaConfig(2)
	cfg.TurnTime = 50 * time.Millisecond
	s, results := startServer(t, cfg, arenaGames)

	conns := []transport.Conn{connect(t, s), connect(t, s)}
	for _, conn := range conns {
		var snapshot model.Game
		require.NoError(t, conn.Receive(&snapshot))
		if snapshot.IsDefender() {
			require.NoError(t, conn.Send(snapshot.Play()))
		}
		defer conn.Close()
	}

	rec := waitRecord(t, results)
	assert.True(t, rec.Failed)
	assert.Contains(t, rec.Reason, ErrTurnTimeout.Error())
	assert.Equal(t, 0, rec.Rounds)
}

func TestPlayerErrorMatchesBothCauses(t *testing.T) {
	cause := errors.New("broken pipe")
	err := error(PlayerError{Player: 2, Err: cause})
	assert.ErrorIs(t, err, ErrPlayerLost)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "player 2: broken pipe", err.Error())
}

func TestLobbyFillsOneSessionAtATime(t *testing.T) {
	s, _ := startServer(t, arenaConfig(2), arenaGames)
	first, code, err := s.seat(time.Second)
	require.NoError(t, err)
	require.Equal(t, GAME_READY, code)
	second, _, err := s.seat(time.Second)
	require.NoError(t, err)
	third, _, err := s.seat(time.Second)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.NotSame(t, first, third)
	require.Eventually(t, func() bool {
		sessions := s.Sessions()
		if len(sessions) != 2 {
			return false
		}
		for _, summary := range sessions {
			if summary.State != "GS_WAIT" {
				return false
			}
		}
		return true
	}, time.Second, 10*time.Millisecond)
	for _, summary := range s.Sessions() {
		assert.Equal(t, 2, summary.Players)
		assert.Equal(t, 0, summary.Connected)
	}
}

func TestReleaseAfterLobbyStops(t *testing.T) {
	s := NewGameServer("test", arenaConfig(2), arenaGames, nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Loop(ctx)
		close(stopped)
	}()
	gs, code, err := s.seat(time.Second)
	require.NoError(t, err)
	require.Equal(t, GAME_READY, code)
	cancel()
	<-stopped

	released := make(chan struct{})
	go func() {
		s.release(gs)
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("release blocked on a stopped lobby")
	}
}

func TestBrokenFactoryAnswersBadRequest(t *testing.T) {
	s, _ := startServer(t, arenaConfig(2), func(string, model.Config, *rand.Rand) (*model.Game, error) {
		return nil, errors.New("no map")
	})
	srv := httptest.NewServer(s.HandleHttpCall())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebSocketGame(t *testing.T) {
	s, results := startServer(t, arenaConfig(2), arenaGames)
	srv := httptest.NewServer(s.HandleHttpCall())
	defer srv.Close()
	address := "ws://" + strings.TrimPrefix(srv.URL, "http://")

	log := &turnLog{}
	bots := []*bot{{onTurn: walker(0)}, {onTurn: walker(0)}}
	var wg sync.WaitGroup
	for _, b := range bots {
		conn, err := transport.Dial(context.Background(), address)
		require.NoError(t, err)
		wg.Add(1)
		go func(b *bot) {
			defer wg.Done()
			b.run(conn, log)
		}(b)
	}
	wg.Wait()

	for _, b := range bots {
		assert.NotEqual(t, model.Running, b.final.Status)
	}
	rec := waitRecord(t, results)
	assert.Equal(t, "ATTACKER_VICTORY", rec.Status)
}

func TestServeTCP(t *testing.T) {
	s, results := startServer(t, arenaConfig(2), arenaGames)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.ServeTCP(ln)
	defer ln.Close()

	log := &turnLog{}
	bots := []*bot{{onTurn: walker(0)}, {onTurn: walker(0)}}
	var wg sync.WaitGroup
	for _, b := range bots {
		conn, err := transport.Dial(context.Background(), "tcp://"+ln.Addr().String())
		require.NoError(t, err)
		wg.Add(1)
		go func(b *bot) {
			defer wg.Done()
			b.run(conn, log)
		}(b)
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1}, log.order)
	rec := waitRecord(t, results)
	assert.Equal(t, "ATTACKER_VICTORY", rec.Status)
}
