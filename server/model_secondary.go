package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zucenko/hanzo/transport"
)

const HTTP_SUCCESS = 200
const HTTP_BAD_REQUEST = 400
const HTTP_NOT_FOUND = 404
const HTTP_TIMEOUT = 408
const HTTP_SERVER_ERR = 503

var (
	ErrTurnTimeout = errors.New("turn timed out")
	ErrPlayerLost  = errors.New("player connection lost")
	ErrShutdown    = errors.New("server shutting down")
)

type ResponseCode int

const (
	GAME_READY ResponseCode = iota
	GAME_NOT_FOUND
	GAME_INVALIDE
)

func (h ResponseCode) ToHttp() int {
	switch h {
	case GAME_READY:
		return HTTP_SUCCESS
	case GAME_NOT_FOUND:
		return HTTP_NOT_FOUND
	case GAME_INVALIDE:
		return HTTP_BAD_REQUEST
	default:
		panic(h)
	}
}

func (gss GameSessionState) Name() string {
	switch gss {
	case GS_NEW:
		return "GS_NEW"
	case GS_WAIT:
		return "GS_WAIT"
	case GS_SETUP:
		return "GS_SETUP"
	case GS_PLAY:
		return "GS_PLAY"
	case GS_ERR:
		return "GS_ERR"
	case GS_OVER:
		return "GS_OVER"
	default:
		return fmt.Sprintf("n/a:%d", gss)
	}
}

func (ps PlayerSessionState) Name() string {
	switch ps {
	case PS_NEW:
		return "NEW"
	case PS_SETUP:
		return "SETUP"
	case PS_PLAY:
		return "PLAY"
	case PS_OVER:
		return "OVER"
	case PS_ERR:
		return "ERR"
	default:
		return "N/A"
	}
}

type GameContextAwaiting struct {
	ResponseCode ResponseCode
	GameSession  *GameSession
}

// GameRequest asks the lobby for a seat. A request with Release set gives
// back a seat that was never used.
type GameRequest struct {
	GameContextAwaiting chan GameContextAwaiting
	Release             *GameSession
}

type PlayerConnectRequest struct {
	Con      transport.Conn
	GameOver chan struct{}
}

// PlayerError is reported by a worker that lost its connection.
type PlayerError struct {
	Player int
	Err    error
}

func (pe PlayerError) Error() string {
	return fmt.Sprintf("player %d: %v", pe.Player, pe.Err)
}

func (pe PlayerError) Unwrap() []error {
	return []error{ErrPlayerLost, pe.Err}
}

// Summary is the public view of a session.
type Summary struct {
	ID          uuid.UUID           `json:"id"`
	State       string              `json:"state"`
	Players     int                 `json:"players"`
	Connected   int                 `json:"connected"`
	Round       int                 `json:"round"`
	Status      string              `json:"status"`
	Connections []ConnectionSummary `json:"connections"`
}

type ConnectionSummary struct {
	Player      int       `json:"player"`
	State       string    `json:"state"`
	In          int       `json:"in"`
	Out         int       `json:"out"`
	LastMessage time.Time `json:"last_message"`
}
