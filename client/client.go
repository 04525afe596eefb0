package client

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zucenko/hanzo/model"
	"github.com/zucenko/hanzo/transport"
)

// IdleTimeout is how long Run waits for a message before idling the UI.
const IdleTimeout = 100 * time.Millisecond

// Interface is the display and input side of a client. *ui.UserInterface
// implements it.
type Interface interface {
	Display(g *model.Game, defender bool) error
	Input(g *model.Game, defender bool) error
	PlaceGuards(g *model.Game) error
	Splash() error
	// Idle reports true when the player asked to leave.
	Idle(begun bool) (bool, error)
	Reset()
}

type Client struct {
	Game *model.Game
	conn transport.Conn
	ui   Interface
	// defender as told by the latest round message
	defender bool
}

type received struct {
	msg model.TurnMessage
	err error
}

// New reads the initial game from conn. A defender places its guards before
// New returns.
func New(conn transport.Conn, ui Interface) (*Client, error) {
	game := &model.Game{}
	if err := conn.Receive(game); err != nil {
		return nil, fmt.Errorf("receive game: %w", err)
	}
	log.Infof("Client joined %s as player %d, defender %d", game.Address, game.Player, game.Defender)
	c := &Client{Game: game, conn: conn, ui: ui, defender: game.IsDefender()}
	if c.defender {
		if err := ui.PlaceGuards(game); err != nil {
			return nil, fmt.Errorf("place guards: %w", err)
		}
		if err := conn.Send(game.Play()); err != nil {
			return nil, fmt.Errorf("send guards: %w", err)
		}
		log.Info("Client guards placed")
	}
	if err := ui.Splash(); err != nil {
		return nil, err
	}
	return c, nil
}

// read decodes round messages until the connection fails.
func (c *Client) read(messages chan<- received, done <-chan struct{}) {
	for {
		var msg model.TurnMessage
		err := c.conn.Receive(&msg)
		select {
		case messages <- received{msg: msg, err: err}:
		case <-done:
			return
		}
		if err != nil || msg.Status != model.Running {
			return
		}
	}
}

// Run plays until the game is decided or the player quits while idle.
func (c *Client) Run() error {
	messages := make(chan received)
	done := make(chan struct{})
	defer close(done)
	go c.read(messages, done)

	begun := false
	for {
		select {
		case r := <-messages:
			if r.err != nil {
				if errors.Is(r.err, transport.ErrClosed) {
					return fmt.Errorf("server closed the game: %w", r.err)
				}
				return fmt.Errorf("receive turn: %w", r.err)
			}
			begun = true
			c.defender = r.msg.Defender
			c.Game.Mirror(r.msg)
			if err := c.ui.Display(c.Game, c.defender); err != nil {
				return err
			}
			if r.msg.Status != model.Running {
				log.Infof("Client game over: %s", r.msg.Status.Name())
				return nil
			}
			if !r.msg.Turn {
				continue
			}
			if err := c.ui.Input(c.Game, c.defender); err != nil {
				return err
			}
			if err := c.conn.Send(c.Game.Play()); err != nil {
				return fmt.Errorf("send update: %w", err)
			}
		case <-time.After(IdleTimeout):
			quit, err := c.ui.Idle(begun)
			if err != nil {
				return err
			}
			if quit {
				log.Info("Client quit while waiting")
				c.Game.Status = model.Quit
				return nil
			}
		}
	}
}

// Result reports whether this player won. Losers are told Quit.
func (c *Client) Result() bool {
	return c.Game.Status != model.Quit && c.Game.Status != model.Running
}

func (c *Client) Close() error {
	c.ui.Reset()
	return c.conn.Close()
}
