package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// PlayPath is where the server upgrades websocket players.
const PlayPath = "/play"

// Dial connects to a server. "tcp://host:port" opens a raw stream socket,
// anything else is taken as a websocket host (optionally with ws:// or
// wss:// scheme).
func Dial(ctx context.Context, address string) (Conn, error) {
	if strings.HasPrefix(address, "tcp://") {
		var d net.Dialer
		c, err := d.DialContext(ctx, "tcp", strings.TrimPrefix(address, "tcp://"))
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", address, err)
		}
		return Stream(c), nil
	}
	u := address
	if !strings.Contains(u, "://") {
		u = "ws://" + u
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", address, err)
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = PlayPath
	}
	log.Infof("transport dialing %s", parsed)
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, parsed.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", parsed, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", parsed, err)
	}
	return WebSocket(c), nil
}
