package server

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zucenko/hanzo/model"
	"github.com/zucenko/hanzo/store"
	"github.com/zucenko/hanzo/transport"
)

// TurnGrace is added to the configured turn and setup times before the
// central loop gives up on the acting player.
const TurnGrace = 10 * time.Second

// GameFactory builds the initial game of a new session.
type GameFactory func(address string, cfg model.Config, rng *rand.Rand) (*model.Game, error)

type GameServer struct {
	Address      string
	Config       model.Config
	NewGame      GameFactory
	Store        store.Store
	GameSessions []*GameSession
	GameRequests chan GameRequest
	Upgrader     *websocket.Upgrader
	TurnGrace    time.Duration

	ctx context.Context
	rng *rand.Rand
	// mu guards GameSessions and ctx for readers outside Loop
	mu sync.RWMutex
}

type GameSessionState int

const (
	GS_NEW GameSessionState = iota
	GS_WAIT
	GS_SETUP
	GS_PLAY
	GS_ERR
	GS_OVER
)

type GameSession struct {
	ID                    uuid.UUID
	Config                model.Config
	Game                  *model.Game
	PlayerSessions        []*PlayerSession
	Errors                chan PlayerError
	PlayerConnectRequests chan PlayerConnectRequest
	Store                 store.Store
	TurnGrace             time.Duration
	// Seats is owned by GameServer.Loop.
	Seats int

	ctx     context.Context
	done    chan struct{}
	wg      sync.WaitGroup
	started time.Time

	// mu guards the published summary and closed
	mu      sync.RWMutex
	state   GameSessionState
	round   int
	status  model.Status
	seated  []*PlayerSession
	closed  bool
}

type PlayerSessionState int

const (
	PS_NEW PlayerSessionState = iota + 1
	PS_SETUP
	PS_PLAY
	PS_OVER
	PS_ERR
)

// PlayerSession is the worker bridging one connection to the central loop.
// Only the worker touches Conn after it starts.
type PlayerSession struct {
	Id          int
	GameSession *GameSession
	Conn        transport.Conn
	GameOver    chan struct{}

	MessagesToSend chan model.TurnMessage
	Updates        chan model.UpdateMessage

	// mu guards the state and counters read by Summary
	mu               sync.Mutex
	State            PlayerSessionState
	DebugInMessages  int
	DebugOutMessages int
	DebugLastMessage time.Time
}
