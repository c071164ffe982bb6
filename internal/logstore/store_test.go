package logstore

import (
	"fmt"
	"sync"
	"testing"

	"clusterdash/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nodeA protocol.NodeAddress = "10.0.0.1:8081"
	nodeB protocol.NodeAddress = "10.0.0.2:8081"
)

func rec(data string) protocol.LogRecord { return protocol.LogRecord{Data: data} }

func datas(records []protocol.LogRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Data
	}
	return out
}

func TestFilter(t *testing.T) {
	s := New(0)
	for _, d := range []string{"error: x", "info: y", "error: z"} {
		s.RecordLog(nodeA, rec(d))
	}
	s.SelectNode(nodeA)

	tests := []struct {
		term string
		want []string
	}{
		{"error", []string{"error: x", "error: z"}},
		{"", []string{"error: x", "info: y", "error: z"}},
		{"ERROR", []string{}},
		{": y", []string{"info: y"}},
		{"x", []string{"error: x"}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, datas(s.Filter(tt.term)))
		})
	}
}

func TestFilter_NoActiveNode(t *testing.T) {
	s := New(0)
	s.RecordLog(nodeA, rec("x"))
	assert.Empty(t, s.Filter(""))
	assert.Equal(t, []string{"x"}, datas(s.FilterNode(nodeA, "")))
}

func TestSelectNode_ReturnsOnlyThatNode(t *testing.T) {
	s := New(0)
	s.RecordLog(nodeA, rec("a1"))
	s.RecordLog(nodeB, rec("b1"))
	s.RecordLog(nodeA, rec("a2"))

	assert.Equal(t, []string{"a1", "a2"}, datas(s.SelectNode(nodeA)))
	assert.Equal(t, []string{"b1"}, datas(s.SelectNode(nodeB)))

	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, nodeB, active)
	assert.Equal(t, []string{"b1"}, datas(s.Filter("")))
}

func TestRecordLog_ReportsActive(t *testing.T) {
	s := New(0)
	active, _ := s.RecordLog(nodeA, rec("before selection"))
	assert.False(t, active)

	s.SelectNode(nodeA)
	active, _ = s.RecordLog(nodeA, rec("shown"))
	assert.True(t, active)
	active, _ = s.RecordLog(nodeB, rec("stored only"))
	assert.False(t, active)

	assert.Equal(t, []string{"stored only"}, datas(s.Buffer(nodeB)))
}

func TestEnsure_FirstSeenOrder(t *testing.T) {
	s := New(0)
	s.Ensure(nodeB)
	s.RecordLog(nodeA, rec("x"))
	s.Ensure(nodeB)
	s.SelectNode("10.0.0.3:8081")

	assert.Equal(t, []protocol.NodeAddress{nodeB, nodeA, "10.0.0.3:8081"}, s.Addresses())
	assert.True(t, s.Has(nodeB))
	assert.Empty(t, s.Buffer(nodeB))
	assert.False(t, s.Has("nowhere:1"))
}

func TestRetentionRing(t *testing.T) {
	s := New(3)
	var evictions int
	for i := 1; i <= 10; i++ {
		if _, evicted := s.RecordLog(nodeA, rec(fmt.Sprintf("line %d", i))); evicted {
			evictions++
		}
	}

	assert.Equal(t, []string{"line 8", "line 9", "line 10"}, datas(s.Buffer(nodeA)))
	assert.Equal(t, 7, evictions)
	assert.Equal(t, int64(7), s.Evicted())
}

func TestUnbounded(t *testing.T) {
	s := New(0)
	for i := 0; i < 10000; i++ {
		s.RecordLog(nodeA, rec("x"))
	}
	assert.Len(t, s.Buffer(nodeA), 10000)
	assert.Zero(t, s.Evicted())
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	s := New(0)
	s.RecordLog(nodeA, rec("original"))
	got := s.SelectNode(nodeA)
	got[0].Data = "mutated"
	assert.Equal(t, []string{"original"}, datas(s.Buffer(nodeA)))
}

func TestConcurrentWritersAndReaders(t *testing.T) {
	s := New(100)
	s.SelectNode(nodeA)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				s.RecordLog(nodeA, rec(fmt.Sprintf("w%d-%d", w, i)))
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_ = s.Filter("w")
			}
		}()
	}
	wg.Wait()
	assert.Len(t, s.Buffer(nodeA), 100)
}
