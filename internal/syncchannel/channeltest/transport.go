// Package channeltest provides an in-memory Transport for tests. Each
// address is a Node that the test drives: push inbound payloads, drop the
// live connection, refuse dials, and inspect what the client sent.
package channeltest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"clusterdash/internal/protocol"
	"clusterdash/internal/syncchannel"
)

// ErrRefused is returned by Dial while a node refuses connections.
var ErrRefused = errors.New("connection refused")

// Frame is one message written by the client.
type Frame struct {
	At   time.Time
	Kind protocol.Kind
	Data []byte
}

// Transport routes dials to Nodes by address.
type Transport struct {
	mu    sync.Mutex
	nodes map[protocol.NodeAddress]*Node
}

// NewTransport returns an empty Transport; nodes appear on first use.
func NewTransport() *Transport {
	return &Transport{nodes: make(map[protocol.NodeAddress]*Node)}
}

// Node returns the endpoint for address, creating it if needed.
func (t *Transport) Node(address protocol.NodeAddress) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[address]
	if !ok {
		n = &Node{address: address}
		t.nodes[address] = n
	}
	return n
}

// Dial implements syncchannel.Transport.
func (t *Transport) Dial(ctx context.Context, address protocol.NodeAddress) (syncchannel.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.Node(address).accept()
}

// Node is the server side of one address.
type Node struct {
	address protocol.NodeAddress

	mu     sync.Mutex
	live   *Conn
	refuse bool
	dials  int
	sent   []Frame
}

// Refuse makes subsequent dials fail until called with false.
func (n *Node) Refuse(refuse bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refuse = refuse
}

// Dials counts dial attempts, refused ones included.
func (n *Node) Dials() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dials
}

// Connected reports whether a client connection is live.
func (n *Node) Connected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.live != nil && !n.live.isClosed()
}

// Push delivers a raw payload to the live client connection.
func (n *Node) Push(payload string) error {
	n.mu.Lock()
	conn := n.live
	n.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("%s: no live connection", n.address)
	}
	return conn.deliver([]byte(payload))
}

// PushJSON marshals v and pushes it.
func (n *Node) PushJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return n.Push(string(data))
}

// Drop closes the live connection from the server side.
func (n *Node) Drop() {
	n.mu.Lock()
	conn := n.live
	n.live = nil
	n.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Sent returns a copy of every frame the client wrote.
func (n *Node) Sent() []Frame {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Frame(nil), n.sent...)
}

// SentOf returns the frames of one kind.
func (n *Node) SentOf(kind protocol.Kind) []Frame {
	var out []Frame
	for _, f := range n.Sent() {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

func (n *Node) accept() (*Conn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dials++
	if n.refuse {
		return nil, fmt.Errorf("%s: %w", n.address, ErrRefused)
	}
	conn := &Conn{node: n, inbox: make(chan []byte, 256), closed: make(chan struct{})}
	n.live = conn
	return conn, nil
}

func (n *Node) record(data []byte) {
	var env struct {
		Type protocol.Kind `json:"type"`
	}
	_ = json.Unmarshal(data, &env)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Frame{At: time.Now(), Kind: env.Type, Data: append([]byte(nil), data...)})
}

// Conn is the client side handed to the channel.
type Conn struct {
	node      *Node
	inbox     chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Conn) deliver(data []byte) error {
	if c.isClosed() {
		return io.ErrClosedPipe
	}
	select {
	case c.inbox <- data:
		return nil
	case <-c.closed:
		return io.ErrClosedPipe
	}
}

// ReadMessage implements syncchannel.Conn.
func (c *Conn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbox:
		return data, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

// WriteMessage implements syncchannel.Conn.
func (c *Conn) WriteMessage(data []byte) error {
	if c.isClosed() {
		return io.ErrClosedPipe
	}
	c.node.record(data)
	return nil
}

// Close implements syncchannel.Conn.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}
