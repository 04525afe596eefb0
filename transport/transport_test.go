package transport

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zucenko/hanzo/model"
)

func sample() model.TurnMessage {
	return model.TurnMessage{
		Turn:      true,
		Positions: []model.Position{{}, model.At(3, 4)},
		Guards:    []model.Guard{model.NewGuard(1, 2, model.Left)},
		Status:    model.Running,
	}
}

func TestStreamCarriesSequentialValues(t *testing.T) {
	a, b := net.Pipe()
	left, right := Stream(a), Stream(b)
	defer left.Close()

	done := make(chan error, 1)
	go func() {
		if err := left.Send(sample()); err != nil {
			done <- err
			return
		}
		done <- left.Send(model.UpdateMessage{New: model.At(9, 9), Status: model.Quit})
	}()

	var turn model.TurnMessage
	require.NoError(t, right.Receive(&turn))
	assert.Equal(t, sample(), turn)
	var update model.UpdateMessage
	require.NoError(t, right.Receive(&update))
	assert.Equal(t, model.At(9, 9), update.New)
	assert.Equal(t, model.Quit, update.Status)
	require.NoError(t, <-done)

	require.NoError(t, right.Close())
	assert.ErrorIs(t, left.Receive(&turn), ErrClosed)
}

func TestWebSocketRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PlayPath, r.URL.Path)
		c, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		conn := WebSocket(c)
		defer conn.Close()
		var update model.UpdateMessage
		if !assert.NoError(t, conn.Receive(&update)) {
			return
		}
		assert.NoError(t, conn.Send(model.TurnMessage{Positions: []model.Position{update.New}}))
	}))
	defer srv.Close()

	conn, err := Dial(context.Background(), strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send(model.UpdateMessage{New: model.At(7, 1)}))
	var turn model.TurnMessage
	require.NoError(t, conn.Receive(&turn))
	assert.Equal(t, []model.Position{model.At(7, 1)}, turn.Positions)
	assert.ErrorIs(t, conn.Receive(&turn), ErrClosed)
}

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		conn := Stream(c)
		defer conn.Close()
		conn.Send(sample())
	}()

	conn, err := Dial(context.Background(), "tcp://"+ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	var turn model.TurnMessage
	require.NoError(t, conn.Receive(&turn))
	assert.Equal(t, sample(), turn)
}
