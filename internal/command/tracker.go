package command

import (
	"sync"
	"time"

	"clusterdash/internal/protocol"

	"github.com/google/uuid"
)

// Pending is one execute_command awaiting its result.
type Pending struct {
	Token   string
	Channel protocol.NodeAddress
	Request protocol.CommandRequest
	SentAt  time.Time

	// Abandoned requests keep their place in the channel queue so that
	// their late result cannot be taken for a later request's.
	Abandoned bool
}

// Tracker pairs execution results with the requests that caused them.
// A result carrying a known correlation token resolves that request. A
// result without one resolves the oldest pending request on the channel
// it arrived on.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]Pending
	queues  map[protocol.NodeAddress][]string
	waiters map[string]chan protocol.CommandResult
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		pending: make(map[string]Pending),
		queues:  make(map[protocol.NodeAddress][]string),
		waiters: make(map[string]chan protocol.CommandResult),
	}
}

// Track registers a request about to be sent over channel and returns its
// freshly generated token.
func (t *Tracker) Track(channel protocol.NodeAddress, req protocol.CommandRequest) Pending {
	p := Pending{
		Token:   uuid.NewString(),
		Channel: channel,
		Request: req,
		SentAt:  time.Now(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[p.Token] = p
	t.queues[channel] = append(t.queues[channel], p.Token)
	return p
}

// Await returns a channel that receives the result for token once it is
// resolved. It must be called before the result can arrive.
func (t *Tracker) Await(token string) <-chan protocol.CommandResult {
	ch := make(chan protocol.CommandResult, 1)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.waiters[token] = ch
	return ch
}

// Resolve matches a result that arrived on source. It returns false when
// nothing is pending for it or when it belongs to an abandoned request,
// in which case the result is consumed and discarded.
func (t *Tracker) Resolve(source protocol.NodeAddress, correlationID string, result protocol.CommandResult) (Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	token := correlationID
	if _, ok := t.pending[token]; !ok {
		token = ""
		if queue := t.queues[source]; len(queue) > 0 {
			token = queue[0]
		}
	}
	p, ok := t.pending[token]
	if !ok {
		return Pending{}, false
	}
	t.forgetLocked(token)
	if p.Abandoned {
		return Pending{}, false
	}

	if w, ok := t.waiters[token]; ok {
		w <- result
		delete(t.waiters, token)
	}
	return p, true
}

// Abandon stops waiting for a sent request. Its result, when it arrives,
// is still matched against it and then dropped.
func (t *Tracker) Abandon(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.waiters, token)
	if p, ok := t.pending[token]; ok {
		p.Abandoned = true
		t.pending[token] = p
	}
}

// Forget drops a request that was never sent.
func (t *Tracker) Forget(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.forgetLocked(token)
	delete(t.waiters, token)
}

// Len returns the number of pending requests.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Tracker) forgetLocked(token string) {
	p, ok := t.pending[token]
	if !ok {
		return
	}
	delete(t.pending, token)

	queue := t.queues[p.Channel]
	for i, tok := range queue {
		if tok == token {
			queue = append(queue[:i:i], queue[i+1:]...)
			break
		}
	}
	if len(queue) == 0 {
		delete(t.queues, p.Channel)
	} else {
		t.queues[p.Channel] = queue
	}
}
