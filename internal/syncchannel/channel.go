// Package syncchannel keeps one resilient duplex connection to one node.
//
// A Channel loops CONNECTING -> OPEN -> CLOSED -> CONNECTING until it is
// closed at shutdown. Entering OPEN sends a state query immediately; a single
// heartbeat ticker then re-sends it every interval while the channel is OPEN.
// The ticker lives as long as the Channel and is restarted on every OPEN, so
// the cadence carries over reconnects without a second query chain.
package syncchannel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"clusterdash/internal/config"
	"clusterdash/internal/protocol"
	"clusterdash/pkg/logging"
)

const subsystem = "SyncChannel"

// ErrNotConnected is returned when a request is made while the channel is not OPEN.
var ErrNotConnected = errors.New("connection with server is not established")

// State is a channel's position in its connect loop.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
	// StateSuspended means the breaker tripped and the channel waits out its cooldown.
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateOpen:
		return "Open"
	case StateClosed:
		return "Closed"
	case StateSuspended:
		return "Suspended"
	default:
		return "Unknown"
	}
}

// Handler receives every parsed inbound message together with the address
// of the channel it arrived on.
type Handler func(msg protocol.Inbound, source protocol.NodeAddress)

// StateObserver is told about every state transition.
type StateObserver func(address protocol.NodeAddress, state State)

// Options tune a Channel.
type Options struct {
	HeartbeatInterval time.Duration
	Backoff           Backoff
	OnState           StateObserver
}

// OptionsFromConfig maps channel settings onto Options.
func OptionsFromConfig(cfg config.ChannelConfig) Options {
	return Options{
		HeartbeatInterval: cfg.HeartbeatInterval,
		Backoff:           BackoffFromConfig(cfg.Reconnect),
	}
}

// Channel is one SyncChannel bound to one NodeAddress.
type Channel struct {
	address   protocol.NodeAddress
	transport Transport
	handler   Handler
	opts      Options

	mu    sync.RWMutex
	live  Conn
	state State

	opened chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Open creates a Channel and starts connecting in the background.
func Open(ctx context.Context, address protocol.NodeAddress, transport Transport, handler Handler, opts Options) *Channel {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = config.DefaultHeartbeatInterval
	}
	cctx, cancel := context.WithCancel(ctx)
	c := &Channel{
		address:   address,
		transport: transport,
		handler:   handler,
		opts:      opts,
		state:     StateConnecting,
		opened:    make(chan struct{}, 1),
		ctx:       cctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.connectLoop()
	}()
	go func() {
		defer wg.Done()
		c.heartbeatLoop()
	}()
	go func() {
		wg.Wait()
		close(c.done)
	}()

	return c
}

// Address returns the endpoint this channel targets.
func (c *Channel) Address() protocol.NodeAddress { return c.address }

// State returns the current state.
func (c *Channel) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the channel is OPEN.
func (c *Channel) IsConnected() bool {
	return c.State() == StateOpen
}

// QueryState sends query_cluster_details over the live handle.
func (c *Channel) QueryState() error {
	return c.send(protocol.QueryClusterDetails{})
}

// SendCommand sends execute_command over the live handle. It never queues:
// when the channel is not OPEN it returns ErrNotConnected.
func (c *Channel) SendCommand(req protocol.CommandRequest, correlationID string) error {
	return c.send(protocol.ExecuteCommand{Request: req, CorrelationID: correlationID})
}

// Close stops the channel for good. It is only used at shutdown.
func (c *Channel) Close() {
	c.cancel()
	c.mu.Lock()
	if c.live != nil {
		_ = c.live.Close()
	}
	c.mu.Unlock()
	<-c.done
}

// Done is closed once every goroutine of the channel has exited.
func (c *Channel) Done() <-chan struct{} { return c.done }

func (c *Channel) send(msg protocol.Outbound) error {
	c.mu.RLock()
	conn, state := c.live, c.state
	c.mu.RUnlock()

	if state != StateOpen || conn == nil {
		return ErrNotConnected
	}
	data, err := protocol.EncodeOutbound(msg)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(data); err != nil {
		return fmt.Errorf("send %s to %s: %w", msg.Kind(), c.address, err)
	}
	return nil
}

func (c *Channel) setState(state State, live Conn) {
	c.mu.Lock()
	changed := c.state != state
	c.state = state
	c.live = live
	c.mu.Unlock()

	if changed && c.opts.OnState != nil {
		c.opts.OnState(c.address, state)
	}
}

// attach makes conn the live handle. It fails, closing conn, when the
// channel was closed while the dial was in flight.
func (c *Channel) attach(conn Conn) bool {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return false
	}
	c.state = StateOpen
	c.live = conn
	c.mu.Unlock()

	if c.opts.OnState != nil {
		c.opts.OnState(c.address, StateOpen)
	}
	return true
}

func (c *Channel) connectLoop() {
	schedule := c.opts.Backoff.NewSchedule()
	retry := false
	attempt := 0
	failures := 0

	for {
		if c.ctx.Err() != nil {
			c.setState(StateClosed, nil)
			return
		}

		if retry {
			if !c.sleep(schedule.Next()) {
				c.setState(StateClosed, nil)
				return
			}
		}

		c.setState(StateConnecting, nil)
		conn, err := c.transport.Dial(c.ctx, c.address)
		if err != nil {
			if c.ctx.Err() != nil {
				c.setState(StateClosed, nil)
				return
			}
			retry = true
			attempt++
			failures++
			logging.Debug(subsystem, "Dial %s failed (attempt %d): %v", c.address, attempt, err)

			if c.opts.Backoff.ShouldSuspend(failures) {
				logging.Warn(subsystem, "Suspending %s for %s after %d failed dials", c.address, c.opts.Backoff.Cooldown, failures)
				c.setState(StateSuspended, nil)
				if !c.sleep(c.opts.Backoff.Cooldown) {
					c.setState(StateClosed, nil)
					return
				}
				schedule.Reset()
				retry, attempt, failures = false, 0, 0
			}
			continue
		}

		schedule.Reset()
		attempt, failures = 0, 0
		if !c.attach(conn) {
			c.setState(StateClosed, nil)
			return
		}
		logging.Info(subsystem, "Synchronization with %s is enabled", c.address)
		select {
		case c.opened <- struct{}{}:
		default:
		}

		c.readLoop(conn)

		// The old handle is discarded; a replacement is dialed next.
		_ = conn.Close()
		c.setState(StateClosed, nil)
		retry = true
		if c.ctx.Err() == nil {
			logging.Debug(subsystem, "Channel to %s closed, reconnecting", c.address)
		}
	}
}

func (c *Channel) readLoop(conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				logging.Debug(subsystem, "Read from %s failed: %v", c.address, err)
			}
			return
		}

		msg, err := protocol.DecodeInbound(data)
		if err != nil {
			logging.Debug(subsystem, "Dropping message from %s: %v", c.address, err)
			continue
		}
		if c.handler != nil {
			c.handler(msg, c.address)
		}
	}
}

func (c *Channel) heartbeatLoop() {
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.opened:
			ticker.Reset(c.opts.HeartbeatInterval)
			c.query("open")
		case <-ticker.C:
			// checked against whichever handle is live at fire time
			if c.IsConnected() {
				c.query("heartbeat")
			}
		}
	}
}

func (c *Channel) query(reason string) {
	if err := c.QueryState(); err != nil && !errors.Is(err, ErrNotConnected) {
		logging.Debug(subsystem, "Query on %s (%s) failed: %v", c.address, reason, err)
	}
}

// sleep waits d or until the channel is closed; it reports false on close.
func (c *Channel) sleep(d time.Duration) bool {
	if d <= 0 {
		return c.ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}
