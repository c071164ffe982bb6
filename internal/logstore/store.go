// Package logstore keeps one log buffer per node and tracks which node's
// buffer is on screen.
package logstore

import (
	"strings"
	"sync"

	"clusterdash/internal/protocol"
)

// Store holds the per-node buffers. Buffers are append-only; with a
// positive retention limit each one behaves as a ring that drops its oldest
// records. A zero limit keeps everything.
type Store struct {
	maxRecords int

	mu        sync.RWMutex
	buffers   map[protocol.NodeAddress][]protocol.LogRecord
	order     []protocol.NodeAddress
	active    protocol.NodeAddress
	hasActive bool
	evicted   int64
}

// New creates an empty store.
func New(maxRecordsPerNode int) *Store {
	if maxRecordsPerNode < 0 {
		maxRecordsPerNode = 0
	}
	return &Store{
		maxRecords: maxRecordsPerNode,
		buffers:    make(map[protocol.NodeAddress][]protocol.LogRecord),
	}
}

// Ensure creates an empty buffer for address if it has none.
func (s *Store) Ensure(address protocol.NodeAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(address)
}

func (s *Store) ensureLocked(address protocol.NodeAddress) {
	if _, ok := s.buffers[address]; !ok {
		s.buffers[address] = nil
		s.order = append(s.order, address)
	}
}

// RecordLog appends record to address's buffer, creating it if absent.
// It reports whether address is the active node and whether the append
// pushed an old record out.
func (s *Store) RecordLog(address protocol.NodeAddress, record protocol.LogRecord) (active, evicted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked(address)
	buf := append(s.buffers[address], record)
	if s.maxRecords > 0 && len(buf) > s.maxRecords {
		drop := len(buf) - s.maxRecords
		if cap(buf) > 2*s.maxRecords {
			buf = append(make([]protocol.LogRecord, 0, s.maxRecords+1), buf[drop:]...)
		} else {
			buf = buf[drop:]
		}
		s.evicted += int64(drop)
		evicted = true
	}
	s.buffers[address] = buf
	return s.hasActive && s.active == address, evicted
}

// SelectNode makes address the active node and returns its full buffer.
func (s *Store) SelectNode(address protocol.NodeAddress) []protocol.LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked(address)
	s.active = address
	s.hasActive = true
	return clone(s.buffers[address])
}

// Active returns the active node, if one was selected.
func (s *Store) Active() (protocol.NodeAddress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, s.hasActive
}

// Filter returns the active node's records whose data contains term,
// in their original order. An empty term returns the whole buffer.
func (s *Store) Filter(term string) []protocol.LogRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasActive {
		return nil
	}
	return filter(s.buffers[s.active], term)
}

// FilterNode is Filter for any node, active or not.
func (s *Store) FilterNode(address protocol.NodeAddress, term string) []protocol.LogRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter(s.buffers[address], term)
}

// Buffer returns a copy of address's buffer.
func (s *Store) Buffer(address protocol.NodeAddress) []protocol.LogRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.buffers[address])
}

// Has reports whether address has a buffer.
func (s *Store) Has(address protocol.NodeAddress) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buffers[address]
	return ok
}

// Addresses lists every node with a buffer, in first-seen order.
func (s *Store) Addresses() []protocol.NodeAddress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]protocol.NodeAddress(nil), s.order...)
}

// Evicted counts records dropped by retention across all nodes.
func (s *Store) Evicted() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evicted
}

// Matches reports whether record passes the filter term.
func Matches(record protocol.LogRecord, term string) bool {
	return strings.Contains(record.Data, term)
}

func filter(buf []protocol.LogRecord, term string) []protocol.LogRecord {
	if term == "" {
		return clone(buf)
	}
	var out []protocol.LogRecord
	for _, r := range buf {
		if Matches(r, term) {
			out = append(out, r)
		}
	}
	return out
}

func clone(buf []protocol.LogRecord) []protocol.LogRecord {
	return append([]protocol.LogRecord(nil), buf...)
}
