package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/zucenko/hanzo/model"
	"github.com/zucenko/hanzo/store"
	"github.com/zucenko/hanzo/transport"
)

func NewGameServer(address string, cfg model.Config, factory GameFactory, results store.Store) *GameServer {
	if factory == nil {
		factory = DefaultGames
	}
	if results == nil {
		results = store.NewMemory()
	}
	return &GameServer{
		Address:      address,
		Config:       cfg,
		NewGame:      factory,
		Store:        results,
		GameSessions: make([]*GameSession, 0),
		GameRequests: make(chan GameRequest),
		Upgrader:     &websocket.Upgrader{},
		TurnGrace:    TurnGrace,
		ctx:          context.Background(),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// seat asks the lobby for a session with a free seat.
func (s *GameServer) seat(timeout time.Duration) (*GameSession, ResponseCode, error) {
	gcas := make(chan GameContextAwaiting, 1)
	select {
	case s.GameRequests <- GameRequest{GameContextAwaiting: gcas}:
	case <-time.After(timeout):
		return nil, GAME_NOT_FOUND, errors.New("GameRequests TIMEOUTED")
	}
	select {
	case gca := <-gcas:
		return gca.GameSession, gca.ResponseCode, nil
	case <-time.After(timeout):
		return nil, GAME_NOT_FOUND, errors.New("GameContextAwaiting TIMEOUTED")
	}
}

// release gives back an unused seat, or nothing once the lobby has stopped.
func (s *GameServer) release(gs *GameSession) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	select {
	case s.GameRequests <- GameRequest{Release: gs}:
	case <-ctx.Done():
	}
}

func (s *GameServer) HandleHttpCall() http.HandlerFunc {
	timeout := 200 * time.Millisecond
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("HandleHttpCall - Conection received from %s", r.RemoteAddr)

		gs, code, err := s.seat(timeout)
		if err != nil {
			log.Warnf("HandleHttpCall %v", err)
			w.WriteHeader(HTTP_TIMEOUT)
			return
		}
		if code != GAME_READY {
			log.Warnf("HandleHttpCall no game, code:%d", code)
			w.WriteHeader(code.ToHttp())
			return
		}

		log.Info("HandleHttpCall lets upgrade websocket ")
		con, err := s.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already answered the request
			log.Printf("HandleHttpCall websocket upgrade err %v", err)
			go s.release(gs)
			return
		}
		conn := transport.WebSocket(con)
		defer conn.Close()

		log.Info("HandleHttpCall and wait for gameover ")
		gs.join(conn)
	}
}

// ServeTCP seats raw stream connections until the listener is closed.
func (s *GameServer) ServeTCP(ln net.Listener) error {
	log.Infof("GameServer.ServeTCP on %s", ln.Addr())
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go func() {
			conn := transport.Stream(c)
			defer conn.Close()
			gs, code, err := s.seat(time.Second)
			if err != nil || code != GAME_READY {
				log.Warnf("ServeTCP no game for %s: code:%d %v", c.RemoteAddr(), code, err)
				return
			}
			gs.join(conn)
		}()
	}
}

// Loop is the lobby. It hands out seats and creates sessions when every
// open one is full.
func (s *GameServer) Loop(ctx context.Context) {
	log.Printf("GameServer.Loop starting")
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			log.Printf("GameServer.Loop stopping")
			return
		case gameReq := <-s.GameRequests:
			if gameReq.Release != nil {
				gameReq.Release.Seats--
				continue
			}
			s.reap()
			var gs *GameSession
			for _, candidate := range s.GameSessions {
				if candidate.Seats < candidate.Config.Players && candidate.State() <= GS_WAIT {
					gs = candidate
					break
				}
			}
			if gs == nil {
				log.Info("create GameSession")
				game, err := s.NewGame(s.Address, s.Config, s.rng)
				if err != nil {
					log.Errorf("GameServer.Loop cannot create game: %v", err)
					gameReq.GameContextAwaiting <- GameContextAwaiting{ResponseCode: GAME_INVALIDE}
					continue
				}
				gs = s.newSession(game)
				s.mu.Lock()
				s.GameSessions = append(s.GameSessions, gs)
				s.mu.Unlock()
				go gs.Loop()
			}
			gs.Seats++
			gameReq.GameContextAwaiting <- GameContextAwaiting{
				ResponseCode: GAME_READY,
				GameSession:  gs,
			}
		}
	}
}

// reap forgets finished sessions.
func (s *GameServer) reap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.GameSessions[:0]
	for _, gs := range s.GameSessions {
		if st := gs.State(); st != GS_OVER && st != GS_ERR {
			live = append(live, gs)
		}
	}
	for i := len(live); i < len(s.GameSessions); i++ {
		s.GameSessions[i] = nil
	}
	s.GameSessions = live
}

func (s *GameServer) newSession(game *model.Game) *GameSession {
	players := game.Config.Players
	return &GameSession{
		ID:                    uuid.New(),
		Config:                game.Config,
		Game:                  game,
		PlayerSessions:        make([]*PlayerSession, 0, players),
		Errors:                make(chan PlayerError, players),
		PlayerConnectRequests: make(chan PlayerConnectRequest, players),
		Store:                 s.Store,
		TurnGrace:             s.TurnGrace,
		ctx:                   s.ctx,
		done:                  make(chan struct{}),
		state:                 GS_NEW,
	}
}

// Sessions lists the live sessions.
func (s *GameServer) Sessions() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.GameSessions))
	for _, gs := range s.GameSessions {
		out = append(out, gs.Summary())
	}
	return out
}

func (gs *GameSession) State() GameSessionState {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.state
}

func (gs *GameSession) setState(state GameSessionState) {
	gs.mu.Lock()
	gs.state = state
	gs.mu.Unlock()
	log.Infof("GameSession %s -> %s", gs.ID, state.Name())
}

func (gs *GameSession) publish(round int, status model.Status) {
	gs.mu.Lock()
	gs.round = round
	gs.status = status
	gs.mu.Unlock()
}

func (gs *GameSession) Summary() Summary {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	connections := make([]ConnectionSummary, 0, len(gs.seated))
	for _, ps := range gs.seated {
		connections = append(connections, ps.Summary())
	}
	return Summary{
		ID:          gs.ID,
		State:       gs.state.Name(),
		Players:     gs.Config.Players,
		Connected:   len(gs.seated),
		Round:       gs.round,
		Status:      gs.status.Name(),
		Connections: connections,
	}
}

func (ps *PlayerSession) Summary() ConnectionSummary {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ConnectionSummary{
		Player:      ps.Id,
		State:       ps.State.Name(),
		In:          ps.DebugInMessages,
		Out:         ps.DebugOutMessages,
		LastMessage: ps.DebugLastMessage,
	}
}

func (ps *PlayerSession) setState(state PlayerSessionState) {
	ps.mu.Lock()
	ps.State = state
	ps.mu.Unlock()
}

func (ps *PlayerSession) count(in bool) {
	ps.mu.Lock()
	if in {
		ps.DebugInMessages++
		ps.DebugLastMessage = time.Now()
	} else {
		ps.DebugOutMessages++
	}
	ps.mu.Unlock()
}

// join hands a connection to the session and blocks until its worker is
// done with it.
func (gs *GameSession) join(conn transport.Conn) {
	gameOver := make(chan struct{})
	gs.mu.Lock()
	if gs.closed {
		gs.mu.Unlock()
		log.Warnf("GameSession %s already closed", gs.ID)
		return
	}
	// buffered for every seat, never blocks
	gs.PlayerConnectRequests <- PlayerConnectRequest{Con: conn, GameOver: gameOver}
	gs.mu.Unlock()
	<-gameOver
}

// Loop is the central turn loop. It is the only goroutine touching Game.
func (gs *GameSession) Loop() {
	log.Infof("GameSession.Loop %s start", gs.ID)
	gs.started = time.Now()
	rounds, err := gs.play()
	gs.finish(rounds, err)
}

func (gs *GameSession) play() (int, error) {
	gs.setState(GS_WAIT)
	for len(gs.PlayerSessions) < gs.Config.Players {
		select {
		case pcr := <-gs.PlayerConnectRequests:
			gs.addPlayer(pcr.Con, pcr.GameOver)
		case pe := <-gs.Errors:
			return 0, pe
		case <-gs.ctx.Done():
			return 0, ErrShutdown
		}
	}

	gs.setState(GS_SETUP)
	defender := gs.Game.Defender
	msg, err := gs.receive(defender, gs.Config.SetupTime)
	if err != nil {
		return 0, fmt.Errorf("guard placement: %w", err)
	}
	if err := gs.Game.ValidatePlacement(msg); err != nil {
		log.Warnf("GameSession %s keeps initial guards: %v", gs.ID, err)
	} else {
		gs.Game.Update(msg, defender)
		log.Infof("GameSession %s received guard positions from defender %d", gs.ID, defender)
	}

	gs.setState(GS_PLAY)
	current, round := 0, 0
	for {
		gs.Game.Victory()
		for i, ps := range gs.PlayerSessions {
			if err := gs.send(ps, gs.Game.Turn(i, current)); err != nil {
				return round, err
			}
		}
		gs.publish(round, gs.Game.Status)
		log.Debugf("GameSession %s round %d broadcasted", gs.ID, round)
		if gs.Game.Status != model.Running {
			return round, nil
		}

		msg, err := gs.receive(current, gs.Config.TurnTime)
		if err != nil {
			return round, err
		}
		if err := gs.Game.ValidateUpdate(msg, current); err != nil {
			log.Warnf("GameSession %s dropping update from %d: %v", gs.ID, current, err)
		} else {
			gs.Game.Update(msg, current)
		}
		current = (current + 1) % gs.Config.Players
		round++
	}
}

func (gs *GameSession) send(ps *PlayerSession, msg model.TurnMessage) error {
	select {
	case ps.MessagesToSend <- msg:
		return nil
	case pe := <-gs.Errors:
		return pe
	case <-gs.ctx.Done():
		return ErrShutdown
	}
}

// receive waits for the acting player only. Any lost connection ends the
// session, as does a player sitting on its turn past the limit.
func (gs *GameSession) receive(player int, limit time.Duration) (model.UpdateMessage, error) {
	timer := time.NewTimer(limit + gs.TurnGrace)
	defer timer.Stop()
	select {
	case msg := <-gs.PlayerSessions[player].Updates:
		return msg, nil
	case pe := <-gs.Errors:
		return model.UpdateMessage{}, pe
	case <-timer.C:
		return model.UpdateMessage{}, fmt.Errorf("player %d: %w", player, ErrTurnTimeout)
	case <-gs.ctx.Done():
		return model.UpdateMessage{}, ErrShutdown
	}
}

func (gs *GameSession) finish(rounds int, err error) {
	close(gs.done)
	gs.mu.Lock()
	gs.closed = true
	gs.mu.Unlock()

	if err != nil {
		log.Warnf("GameSession %s failed: %v", gs.ID, err)
		gs.setState(GS_ERR)
		for _, ps := range gs.PlayerSessions {
			ps.Conn.Close()
		}
	}
	for _, ps := range gs.PlayerSessions {
		close(ps.MessagesToSend)
	}
	gs.wg.Wait()
	// connections that arrived after the game was decided
	for drained := false; !drained; {
		select {
		case pcr := <-gs.PlayerConnectRequests:
			close(pcr.GameOver)
		default:
			drained = true
		}
	}

	record := store.Record{
		ID:        gs.ID,
		StartedAt: gs.started,
		EndedAt:   time.Now(),
		Players:   gs.Config.Players,
		Defender:  gs.Game.Defender,
		Rounds:    rounds,
		Status:    gs.Game.Status.Name(),
		Failed:    err != nil,
	}
	if err != nil {
		record.Reason = err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := gs.Store.Save(ctx, record); serr != nil {
		log.Errorf("GameSession %s cannot store result: %v", gs.ID, serr)
	}
	if err == nil {
		gs.setState(GS_OVER)
	}
	log.Infof("GameSession %s ended %s after %d rounds", gs.ID, gs.Game.Status.Name(), rounds)
}

func (gs *GameSession) addPlayer(conn transport.Conn, gameOver chan struct{}) {
	id := len(gs.PlayerSessions)
	log.Printf("GameSession.addPlayer %d", id)
	ps := &PlayerSession{
		State:          PS_NEW,
		Id:             id,
		GameSession:    gs,
		Conn:           conn,
		GameOver:       gameOver,
		MessagesToSend: make(chan model.TurnMessage, 4),
		Updates:        make(chan model.UpdateMessage, 1),
	}
	gs.PlayerSessions = append(gs.PlayerSessions, ps)
	gs.mu.Lock()
	gs.seated = append(gs.seated, ps)
	gs.mu.Unlock()
	gs.wg.Add(1)
	go ps.Run(gs.Game.Clone(id))
}

// Run serves one connection: the snapshot first, the defender's guard
// placement next, then one message per round and one read per own turn.
func (ps *PlayerSession) Run(snapshot *model.Game) {
	defer ps.GameSession.wg.Done()
	defer close(ps.GameOver)
	log.Printf("PlayerSession.Run %d STARTED", ps.Id)

	if err := ps.Conn.Send(snapshot); err != nil {
		ps.fail(fmt.Errorf("send snapshot: %w", err))
		return
	}
	ps.count(false)
	if snapshot.IsDefender() {
		ps.setState(PS_SETUP)
		if !ps.forward() {
			return
		}
	}

	ps.setState(PS_PLAY)
	for mes := range ps.MessagesToSend {
		if err := ps.Conn.Send(mes); err != nil {
			ps.fail(fmt.Errorf("send turn: %w", err))
			return
		}
		ps.count(false)
		if mes.Status != model.Running {
			ps.setState(PS_OVER)
			log.Printf("PlayerSession.Run %d game over %s", ps.Id, mes.Status.Name())
			return
		}
		if mes.Turn && !ps.forward() {
			return
		}
	}
	log.Printf("PlayerSession.Run %d ENDED", ps.Id)
}

// forward reads one update from the socket and hands it to the central loop.
func (ps *PlayerSession) forward() bool {
	var cm model.UpdateMessage
	if err := ps.Conn.Receive(&cm); err != nil {
		ps.fail(fmt.Errorf("receive update: %w", err))
		return false
	}
	ps.count(true)
	select {
	case ps.Updates <- cm:
		return true
	case <-ps.GameSession.done:
		return false
	}
}

func (ps *PlayerSession) fail(err error) {
	ps.setState(PS_ERR)
	select {
	case <-ps.GameSession.done:
		log.Printf("PlayerSession %d closed with session: %v", ps.Id, err)
		return
	default:
	}
	log.Warnf("PlayerSession %d: %v", ps.Id, err)
	select {
	case ps.GameSession.Errors <- PlayerError{Player: ps.Id, Err: err}:
	default:
	}
}

// Results lists recent finished sessions.
func (s *GameServer) Results(ctx context.Context, limit int) ([]store.Record, error) {
	return s.Store.List(ctx, limit)
}
