package syncchannel_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"clusterdash/internal/config"
	"clusterdash/internal/protocol"
	"clusterdash/internal/syncchannel"
	"clusterdash/internal/syncchannel/channeltest"
	"clusterdash/pkg/logging"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const node protocol.NodeAddress = "10.0.0.1:8081"

func TestMain(m *testing.M) {
	logging.InitForCLI(logging.LevelDebug, io.Discard)
	os.Exit(m.Run())
}

type received struct {
	mu   sync.Mutex
	msgs []protocol.Inbound
	from []protocol.NodeAddress
}

func (r *received) handle(msg protocol.Inbound, source protocol.NodeAddress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	r.from = append(r.from, source)
}

func (r *received) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func openChannel(t *testing.T, transport syncchannel.Transport, handler syncchannel.Handler, opts syncchannel.Options) *syncchannel.Channel {
	t.Helper()
	ch := syncchannel.Open(context.Background(), node, transport, handler, opts)
	t.Cleanup(ch.Close)
	return ch
}

func TestChannel_QueriesImmediatelyOnOpen(t *testing.T) {
	transport := channeltest.NewTransport()
	server := transport.Node(node)

	start := time.Now()
	ch := openChannel(t, transport, nil, syncchannel.Options{HeartbeatInterval: time.Hour})

	require.Eventually(t, func() bool {
		return len(server.SentOf(protocol.KindQueryClusterDetails)) == 1
	}, time.Second, 5*time.Millisecond)

	first := server.SentOf(protocol.KindQueryClusterDetails)[0]
	assert.Less(t, first.At.Sub(start), 500*time.Millisecond)
	assert.True(t, ch.IsConnected())
	assert.Equal(t, syncchannel.StateOpen, ch.State())
	assert.Contains(t, string(first.Data), `"requestedAt"`)
}

func TestChannel_HeartbeatCadence(t *testing.T) {
	transport := channeltest.NewTransport()
	server := transport.Node(node)
	interval := 40 * time.Millisecond

	openChannel(t, transport, nil, syncchannel.Options{HeartbeatInterval: interval})

	require.Eventually(t, func() bool {
		return len(server.SentOf(protocol.KindQueryClusterDetails)) >= 4
	}, 2*time.Second, 5*time.Millisecond)

	queries := server.SentOf(protocol.KindQueryClusterDetails)
	for i := 1; i < len(queries); i++ {
		gap := queries[i].At.Sub(queries[i-1].At)
		assert.GreaterOrEqual(t, gap, interval/2, "gap %d too short: %s", i, gap)
	}
}

func TestChannel_ReconnectDoesNotDoubleHeartbeat(t *testing.T) {
	transport := channeltest.NewTransport()
	server := transport.Node(node)
	interval := 40 * time.Millisecond

	ch := openChannel(t, transport, nil, syncchannel.Options{
		HeartbeatInterval: interval,
		Backoff:           syncchannel.Immediate(),
	})
	require.Eventually(t, ch.IsConnected, time.Second, 5*time.Millisecond)

	for round := 0; round < 3; round++ {
		dials := server.Dials()
		server.Drop()
		require.Eventually(t, func() bool {
			return server.Dials() > dials && ch.IsConnected()
		}, time.Second, 2*time.Millisecond)
	}

	before := len(server.SentOf(protocol.KindQueryClusterDetails))
	time.Sleep(10 * interval)
	after := server.SentOf(protocol.KindQueryClusterDetails)[before:]

	// one chain: about one query per interval, never a burst
	assert.LessOrEqual(t, len(after), 12)
	assert.GreaterOrEqual(t, len(after), 5)
	for i := 1; i < len(after); i++ {
		assert.GreaterOrEqual(t, after[i].At.Sub(after[i-1].At), interval/2)
	}
}

func TestChannel_DeliversMessagesWithSource(t *testing.T) {
	transport := channeltest.NewTransport()
	server := transport.Node(node)
	var got received

	ch := openChannel(t, transport, got.handle, syncchannel.Options{HeartbeatInterval: time.Hour})
	require.Eventually(t, ch.IsConnected, time.Second, 5*time.Millisecond)

	require.NoError(t, server.Push(`{"type":"log_message","data":"info: y"}`))
	require.Eventually(t, func() bool { return got.count() == 1 }, time.Second, 5*time.Millisecond)

	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Equal(t, node, got.from[0])
	assert.Equal(t, "info: y", got.msgs[0].(protocol.LogMessage).Record.Data)
}

func TestChannel_MalformedPayloadIsDropped(t *testing.T) {
	transport := channeltest.NewTransport()
	server := transport.Node(node)
	var got received

	ch := openChannel(t, transport, got.handle, syncchannel.Options{HeartbeatInterval: time.Hour})
	require.Eventually(t, ch.IsConnected, time.Second, 5*time.Millisecond)

	require.NoError(t, server.Push(`{"type":`))
	require.NoError(t, server.Push(`{"type":"reboot"}`))
	require.NoError(t, server.Push(`{"type":"log_message","data":"after"}`))

	require.Eventually(t, func() bool { return got.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, ch.IsConnected())
	assert.Equal(t, 1, server.Dials())
}

func TestChannel_SendCommandRequiresOpen(t *testing.T) {
	transport := channeltest.NewTransport()
	server := transport.Node(node)
	server.Refuse(true)

	ch := openChannel(t, transport, nil, syncchannel.Options{
		HeartbeatInterval: time.Hour,
		Backoff:           syncchannel.Backoff{InitialDelay: 10 * time.Millisecond},
	})

	req := protocol.CommandRequest{TargetHostname: "10.0.0.1", TargetPort: 9000, RuntimeName: "python"}
	err := ch.SendCommand(req, "tok")
	assert.ErrorIs(t, err, syncchannel.ErrNotConnected)
	assert.EqualError(t, err, "connection with server is not established")

	server.Refuse(false)
	require.Eventually(t, ch.IsConnected, time.Second, 5*time.Millisecond)

	require.NoError(t, ch.SendCommand(req, "tok"))
	commands := server.SentOf(protocol.KindExecuteCommand)
	require.Len(t, commands, 1)
	assert.Contains(t, string(commands[0].Data), `"correlationId":"tok"`)
	assert.Contains(t, string(commands[0].Data), `"targetPort":9000`)
}

func TestChannel_BreakerSuspends(t *testing.T) {
	transport := channeltest.NewTransport()
	server := transport.Node(node)
	server.Refuse(true)

	var mu sync.Mutex
	var states []syncchannel.State
	ch := openChannel(t, transport, nil, syncchannel.Options{
		HeartbeatInterval: time.Hour,
		Backoff: syncchannel.Backoff{
			InitialDelay:           time.Millisecond,
			MaxConsecutiveFailures: 3,
			Cooldown:               50 * time.Millisecond,
		},
		OnState: func(_ protocol.NodeAddress, s syncchannel.State) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, s)
		},
	})

	require.Eventually(t, func() bool {
		return ch.State() == syncchannel.StateSuspended
	}, time.Second, time.Millisecond)
	assert.Equal(t, 3, server.Dials())

	// the cooldown ends in another dial, not a terminal state
	server.Refuse(false)
	require.Eventually(t, ch.IsConnected, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, syncchannel.StateSuspended)
	assert.Equal(t, syncchannel.StateOpen, states[len(states)-1])
}

func TestChannel_CloseStopsEverything(t *testing.T) {
	transport := channeltest.NewTransport()
	server := transport.Node(node)

	ch := syncchannel.Open(context.Background(), node, transport, nil, syncchannel.Options{HeartbeatInterval: 10 * time.Millisecond})
	require.Eventually(t, ch.IsConnected, time.Second, 5*time.Millisecond)

	ch.Close()
	select {
	case <-ch.Done():
	default:
		t.Fatal("channel goroutines still running after Close")
	}
	assert.Equal(t, syncchannel.StateClosed, ch.State())
	assert.False(t, server.Connected())

	sent := len(server.Sent())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, sent, len(server.Sent()))
}

func TestWebsocketTransport_URL(t *testing.T) {
	cfg := config.GetDefaultConfig().Channel
	transport := syncchannel.NewWebsocketTransport(cfg)
	assert.Equal(t, "ws://10.0.0.1:8081/view/updates", transport.URL(node))

	cfg.Scheme = "wss"
	cfg.Path = "/feed"
	assert.Equal(t, "wss://10.0.0.1:8081/feed", syncchannel.NewWebsocketTransport(cfg).URL(node))
}

func TestWebsocketTransport_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	queries := make(chan string, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != config.DefaultPath {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		queries <- string(data)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"cluster_details","data":{"clusters":[{"name":"c1","nodes":[]}]}}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	address := protocol.NodeAddress(strings.TrimPrefix(srv.URL, "http://"))
	var got received
	ch := syncchannel.Open(context.Background(), address, syncchannel.NewWebsocketTransport(config.GetDefaultConfig().Channel), got.handle, syncchannel.Options{HeartbeatInterval: time.Hour})
	defer ch.Close()

	select {
	case q := <-queries:
		assert.Contains(t, q, `"type":"query_cluster_details"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no query received")
	}

	require.Eventually(t, func() bool { return got.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	got.mu.Lock()
	details := got.msgs[0].(protocol.ClusterDetails)
	got.mu.Unlock()
	assert.Equal(t, "c1", details.Snapshot.Clusters[0].Name)
}

func TestWebsocketTransport_ReadLimit(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"log_message","data":"ok"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 512)))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	cfg := config.GetDefaultConfig().Channel
	cfg.MaxMessageSize = 128
	address := protocol.NodeAddress(strings.TrimPrefix(srv.URL, "http://"))

	conn, err := syncchannel.NewWebsocketTransport(cfg).Dial(context.Background(), address)
	require.NoError(t, err)
	defer conn.Close()

	data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data":"ok"`)

	_, err = conn.ReadMessage()
	assert.ErrorIs(t, err, websocket.ErrReadLimit)
}
