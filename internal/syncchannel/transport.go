package syncchannel

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"clusterdash/internal/config"
	"clusterdash/internal/protocol"

	"github.com/gorilla/websocket"
)

// Conn is one live duplex handle. WriteMessage may be called from several
// goroutines; ReadMessage only from the channel's read loop.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Transport dials a Conn to an address.
type Transport interface {
	Dial(ctx context.Context, address protocol.NodeAddress) (Conn, error)
}

// WebsocketTransport dials ws://<address><path>.
type WebsocketTransport struct {
	scheme       string
	path         string
	writeTimeout time.Duration
	readLimit    int64
	dialer       *websocket.Dialer
}

// NewWebsocketTransport builds the transport from channel settings.
func NewWebsocketTransport(cfg config.ChannelConfig) *WebsocketTransport {
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "ws"
	}
	path := cfg.Path
	if path == "" {
		path = config.DefaultPath
	}
	return &WebsocketTransport{
		scheme:       scheme,
		path:         path,
		writeTimeout: cfg.WriteTimeout,
		readLimit:    cfg.MaxMessageSize,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// URL returns the endpoint dialed for address.
func (t *WebsocketTransport) URL(address protocol.NodeAddress) string {
	u := url.URL{Scheme: t.scheme, Host: string(address), Path: t.path}
	return u.String()
}

// Dial implements Transport.
func (t *WebsocketTransport) Dial(ctx context.Context, address protocol.NodeAddress) (Conn, error) {
	conn, _, err := t.dialer.DialContext(ctx, t.URL(address), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.URL(address), err)
	}
	if t.readLimit > 0 {
		conn.SetReadLimit(t.readLimit)
	}
	return &websocketConn{conn: conn, writeTimeout: t.writeTimeout}, nil
}

type websocketConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
}

func (c *websocketConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *websocketConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *websocketConn) Close() error {
	return c.conn.Close()
}
