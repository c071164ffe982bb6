// Package pool holds one SyncChannel per node address for the whole session.
package pool

import (
	"context"
	"fmt"
	"sync"

	"clusterdash/internal/protocol"
	"clusterdash/internal/syncchannel"
	"clusterdash/pkg/logging"
)

const subsystem = "ChannelPool"

// Pool owns the mapping NodeAddress -> SyncChannel. Entries are never
// removed while the session runs; CloseAll is for shutdown only.
type Pool struct {
	ctx       context.Context
	transport syncchannel.Transport
	handler   syncchannel.Handler
	opts      syncchannel.Options

	mu       sync.RWMutex
	channels map[protocol.NodeAddress]*syncchannel.Channel
	order    []protocol.NodeAddress
}

// New creates an empty pool. Every channel it opens feeds handler, the
// single shared dispatcher, with (message, source address).
func New(ctx context.Context, transport syncchannel.Transport, handler syncchannel.Handler, opts syncchannel.Options) *Pool {
	return &Pool{
		ctx:       ctx,
		transport: transport,
		handler:   handler,
		opts:      opts,
		channels:  make(map[protocol.NodeAddress]*syncchannel.Channel),
	}
}

// Open returns the channel for address, creating and connecting it on first
// use. Repeated calls return the same channel and never dial again.
func (p *Pool) Open(address protocol.NodeAddress) *syncchannel.Channel {
	p.mu.RLock()
	ch, ok := p.channels[address]
	p.mu.RUnlock()
	if ok {
		return ch
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.channels[address]; ok {
		return ch
	}

	ch = syncchannel.Open(p.ctx, address, p.transport, p.handler, p.opts)
	p.channels[address] = ch
	p.order = append(p.order, address)
	logging.Info(subsystem, "Opened channel to %s (%d in pool)", address, len(p.channels))
	return ch
}

// Get returns the channel for address if the pool has one.
func (p *Pool) Get(address protocol.NodeAddress) (*syncchannel.Channel, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ch, ok := p.channels[address]
	return ch, ok
}

// IsConnected reports whether address has an OPEN channel.
func (p *Pool) IsConnected(address protocol.NodeAddress) bool {
	ch, ok := p.Get(address)
	return ok && ch.IsConnected()
}

// SendCommand sends req over the channel for address. It fails with
// syncchannel.ErrNotConnected when the pool has no such channel or the
// channel is not OPEN.
func (p *Pool) SendCommand(address protocol.NodeAddress, req protocol.CommandRequest, correlationID string) error {
	ch, ok := p.Get(address)
	if !ok {
		return fmt.Errorf("%s: %w", address, syncchannel.ErrNotConnected)
	}
	return ch.SendCommand(req, correlationID)
}

// Addresses lists pool entries in the order they were opened.
func (p *Pool) Addresses() []protocol.NodeAddress {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]protocol.NodeAddress(nil), p.order...)
}

// Len returns the number of entries.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.channels)
}

// CloseAll closes every channel and waits for them to stop.
func (p *Pool) CloseAll() {
	p.mu.RLock()
	channels := make([]*syncchannel.Channel, 0, len(p.order))
	for _, address := range p.order {
		channels = append(channels, p.channels[address])
	}
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(ch *syncchannel.Channel) {
			defer wg.Done()
			ch.Close()
		}(ch)
	}
	wg.Wait()
	logging.Debug(subsystem, "Closed %d channels", len(channels))
}
