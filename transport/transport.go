// Package transport frames game messages over a connection. Each value is
// gob encoded; on a websocket every value travels in its own binary message,
// on a raw stream socket values follow each other on one gob stream.
package transport

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var ErrClosed = errors.New("connection closed")

// Conn carries one value per call in each direction. Send and Receive may
// run concurrently with each other, but not with themselves.
type Conn interface {
	Send(v interface{}) error
	Receive(v interface{}) error
	Close() error
}

type wsConn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

// WebSocket wraps an upgraded or dialed websocket and answers pings.
func WebSocket(conn *websocket.Conn) Conn {
	conn.SetPingHandler(
		func(message string) error {
			err := conn.WriteControl(websocket.PongMessage, []byte(message), time.Now().Add(time.Second))
			if err == websocket.ErrCloseSent {
				return nil
			} else if e, ok := err.(net.Error); ok && e.Timeout() {
				return nil
			}
			return err
		})
	return &wsConn{conn: conn}
}

func (c *wsConn) Send(v interface{}) error {
	w, err := c.conn.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return fmt.Errorf("next writer: %w", err)
	}
	if err := gob.NewEncoder(w).Encode(v); err != nil {
		w.Close()
		return fmt.Errorf("encode: %w", err)
	}
	return w.Close()
}

func (c *wsConn) Receive(v interface{}) error {
	messageType, r, err := c.conn.NextReader()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return ErrClosed
		}
		return fmt.Errorf("next reader: %w", err)
	}
	if messageType != websocket.BinaryMessage {
		return fmt.Errorf("unexpected message type %d", messageType)
	}
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); werr != nil {
			log.Debugf("transport close message: %v", werr)
		}
		err = c.conn.Close()
	})
	return err
}

type streamConn struct {
	rwc io.ReadWriteCloser
	enc *gob.Encoder
	dec *gob.Decoder
}

// Stream runs one gob stream in each direction over a byte stream, such as
// a TCP connection or one end of net.Pipe.
func Stream(rwc io.ReadWriteCloser) Conn {
	return &streamConn{
		rwc: rwc,
		enc: gob.NewEncoder(rwc),
		dec: gob.NewDecoder(rwc),
	}
}

func (c *streamConn) Send(v interface{}) error {
	if err := c.enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func (c *streamConn) Receive(v interface{}) error {
	if err := c.dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
			return ErrClosed
		}
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func (c *streamConn) Close() error {
	return c.rwc.Close()
}
