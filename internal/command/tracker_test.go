package command

import (
	"testing"
	"time"

	"clusterdash/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_ResolveByToken(t *testing.T) {
	tr := NewTracker()
	first := tr.Track("a:1", protocol.CommandRequest{RuntimeName: "first"})
	second := tr.Track("a:1", protocol.CommandRequest{RuntimeName: "second"})
	assert.NotEqual(t, first.Token, second.Token)

	p, ok := tr.Resolve("a:1", second.Token, protocol.CommandResult{})
	require.True(t, ok)
	assert.Equal(t, "second", p.Request.RuntimeName)
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_ResolveOldestOnSourceWithoutToken(t *testing.T) {
	tr := NewTracker()
	a1 := tr.Track("a:1", protocol.CommandRequest{})
	b1 := tr.Track("b:1", protocol.CommandRequest{})
	a2 := tr.Track("a:1", protocol.CommandRequest{})

	p, ok := tr.Resolve("a:1", "", protocol.CommandResult{})
	require.True(t, ok)
	assert.Equal(t, a1.Token, p.Token)

	// unknown tokens fall back the same way
	p, ok = tr.Resolve("a:1", "not-a-token", protocol.CommandResult{})
	require.True(t, ok)
	assert.Equal(t, a2.Token, p.Token)

	_, ok = tr.Resolve("a:1", "", protocol.CommandResult{})
	assert.False(t, ok)

	p, ok = tr.Resolve("b:1", "", protocol.CommandResult{})
	require.True(t, ok)
	assert.Equal(t, b1.Token, p.Token)
	assert.Zero(t, tr.Len())
}

func TestTracker_Forget(t *testing.T) {
	tr := NewTracker()
	p := tr.Track("a:1", protocol.CommandRequest{})
	tr.Forget(p.Token)
	tr.Forget("never-tracked")

	_, ok := tr.Resolve("a:1", "", protocol.CommandResult{})
	assert.False(t, ok)
}

func TestTracker_AbandonKeepsQueuePosition(t *testing.T) {
	tr := NewTracker()
	first := tr.Track("a:1", protocol.CommandRequest{})
	second := tr.Track("a:1", protocol.CommandRequest{})
	firstWait := tr.Await(first.Token)
	tr.Abandon(first.Token)
	tr.Abandon("never-tracked")

	_, ok := tr.Resolve("a:1", "", protocol.CommandResult{Output: "late"})
	assert.False(t, ok, "the late result belongs to the abandoned request")
	assert.Equal(t, 1, tr.Len())
	select {
	case <-firstWait:
		t.Fatal("abandoned waiter received a result")
	default:
	}

	p, ok := tr.Resolve("a:1", "", protocol.CommandResult{Output: "on time"})
	require.True(t, ok)
	assert.Equal(t, second.Token, p.Token)
	assert.Zero(t, tr.Len())
}

func TestTracker_AbandonedByToken(t *testing.T) {
	tr := NewTracker()
	first := tr.Track("a:1", protocol.CommandRequest{})
	second := tr.Track("a:1", protocol.CommandRequest{})
	tr.Abandon(second.Token)

	_, ok := tr.Resolve("a:1", second.Token, protocol.CommandResult{})
	assert.False(t, ok)

	p, ok := tr.Resolve("a:1", "", protocol.CommandResult{})
	require.True(t, ok)
	assert.Equal(t, first.Token, p.Token)
}

func TestTracker_Await(t *testing.T) {
	tr := NewTracker()
	p := tr.Track("a:1", protocol.CommandRequest{})
	wait := tr.Await(p.Token)

	go tr.Resolve("a:1", p.Token, protocol.CommandResult{StatusCode: 3, Output: "done"})

	select {
	case result := <-wait:
		assert.Equal(t, protocol.CommandResult{StatusCode: 3, Output: "done"}, result)
	case <-time.After(time.Second):
		t.Fatal("result never delivered")
	}
}
