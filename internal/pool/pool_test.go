package pool

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"clusterdash/internal/protocol"
	"clusterdash/internal/syncchannel"
	"clusterdash/internal/syncchannel/channeltest"
	"clusterdash/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.InitForCLI(logging.LevelDebug, io.Discard)
	os.Exit(m.Run())
}

func newTestPool(t *testing.T, handler syncchannel.Handler) (*Pool, *channeltest.Transport) {
	t.Helper()
	transport := channeltest.NewTransport()
	p := New(context.Background(), transport, handler, syncchannel.Options{HeartbeatInterval: time.Hour})
	t.Cleanup(p.CloseAll)
	return p, transport
}

func TestOpen_OneEntryPerDistinctAddress(t *testing.T) {
	p, transport := newTestPool(t, nil)

	sightings := []protocol.NodeAddress{
		"10.0.0.1:8081", "10.0.0.2:8081", "10.0.0.1:8081",
		"10.0.0.3:8081", "10.0.0.2:8081", "10.0.0.1:8081",
	}
	first := map[protocol.NodeAddress]*syncchannel.Channel{}
	for _, address := range sightings {
		ch := p.Open(address)
		if prev, seen := first[address]; seen {
			assert.Same(t, prev, ch, "reopening %s returned a new channel", address)
		} else {
			first[address] = ch
		}
	}

	assert.Equal(t, 3, p.Len())
	assert.Equal(t, []protocol.NodeAddress{"10.0.0.1:8081", "10.0.0.2:8081", "10.0.0.3:8081"}, p.Addresses())

	for address := range first {
		require.Eventually(t, func() bool { return p.IsConnected(address) }, time.Second, 5*time.Millisecond)
		assert.Equal(t, 1, transport.Node(address).Dials(), "%s dialed more than once", address)
	}
}

func TestOpen_ConcurrentCallersShareOneChannel(t *testing.T) {
	p, _ := newTestPool(t, nil)

	var wg sync.WaitGroup
	got := make([]*syncchannel.Channel, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = p.Open("10.0.0.9:8081")
		}(i)
	}
	wg.Wait()

	for _, ch := range got[1:] {
		assert.Same(t, got[0], ch)
	}
	assert.Equal(t, 1, p.Len())
}

func TestPool_SharedHandlerReceivesSource(t *testing.T) {
	var mu sync.Mutex
	sources := map[protocol.NodeAddress]string{}
	p, transport := newTestPool(t, func(msg protocol.Inbound, source protocol.NodeAddress) {
		mu.Lock()
		defer mu.Unlock()
		sources[source] = msg.(protocol.LogMessage).Record.Data
	})

	for _, address := range []protocol.NodeAddress{"a:1", "b:2"} {
		p.Open(address)
		require.Eventually(t, func() bool { return p.IsConnected(address) }, time.Second, 5*time.Millisecond)
		require.NoError(t, transport.Node(address).Push(`{"type":"log_message","data":"from `+string(address)+`"}`))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sources) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "from a:1", sources["a:1"])
	assert.Equal(t, "from b:2", sources["b:2"])
}

func TestGet(t *testing.T) {
	p, _ := newTestPool(t, nil)

	_, ok := p.Get("nowhere:1")
	assert.False(t, ok)
	assert.False(t, p.IsConnected("nowhere:1"))

	ch := p.Open("somewhere:1")
	got, ok := p.Get("somewhere:1")
	assert.True(t, ok)
	assert.Same(t, ch, got)
}

func TestSendCommand(t *testing.T) {
	p, transport := newTestPool(t, nil)
	req := protocol.CommandRequest{TargetHostname: "10.0.0.1", TargetPort: 9000, RuntimeName: "python"}

	err := p.SendCommand("10.0.0.1:8081", req, "tok")
	assert.ErrorIs(t, err, syncchannel.ErrNotConnected)

	p.Open("10.0.0.1:8081")
	require.Eventually(t, func() bool { return p.IsConnected("10.0.0.1:8081") }, time.Second, 5*time.Millisecond)
	require.NoError(t, p.SendCommand("10.0.0.1:8081", req, "tok"))
	assert.Len(t, transport.Node("10.0.0.1:8081").SentOf(protocol.KindExecuteCommand), 1)
}
