// Package session is the application context of one dashboard session.
//
// A Session owns every component (event bus, channel pool, log store,
// renderers, command dialog, correlation tracker) and the serialized task
// queue they are mutated from. Channel goroutines never touch that state
// directly: their messages are queued as tasks and run one at a time by
// whoever drives the session, the bubbletea loop or Run in headless mode.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"clusterdash/internal/command"
	"clusterdash/internal/config"
	"clusterdash/internal/eventbus"
	"clusterdash/internal/logstore"
	"clusterdash/internal/pool"
	"clusterdash/internal/protocol"
	"clusterdash/internal/syncchannel"
	"clusterdash/internal/template"
	"clusterdash/pkg/logging"
)

const subsystem = "Dispatcher"

const inboxSize = 1024

// Task is one unit of work on the session's event loop.
type Task func()

// Notice is a blocking message for the user.
type Notice struct {
	Title   string
	Message string
	At      time.Time
}

// Observer is told about every applied message and channel transition.
// Calls happen on the event loop.
type Observer interface {
	MessageApplied(msg protocol.Inbound, source protocol.NodeAddress)
	ChannelChanged(address protocol.NodeAddress, state syncchannel.State)
}

// Session is the application context.
type Session struct {
	cfg     config.Config
	primary protocol.NodeAddress

	Bus     *eventbus.Bus
	Pool    *pool.Pool
	Logs    *logstore.Store
	Table   *template.TableRenderer
	LogList *template.ListRenderer
	Dialog  *command.Dialog
	Tracker *command.Tracker

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan Task

	mu       sync.RWMutex
	nodes    []protocol.NodeRef
	lastSync protocol.Stamp
	syncedAt time.Time
	states   map[protocol.NodeAddress]syncchannel.State
	filter   string
	notice   *Notice
	observer Observer
}

// New wires a session over transport. Nothing connects until Start.
func New(ctx context.Context, cfg config.Config, transport syncchannel.Transport) *Session {
	cctx, cancel := context.WithCancel(ctx)
	s := &Session{
		cfg:     cfg,
		primary: protocol.NodeAddress(cfg.Seed),
		Bus:     eventbus.New(),
		Logs:    logstore.New(cfg.Logs.MaxRecordsPerNode),
		Table:   template.NewTableRenderer(template.ColumnsFromConfig(cfg.UI.TableColumns)),
		LogList: template.NewListRenderer(cfg.UI.LogTemplate),
		Tracker: command.NewTracker(),
		ctx:     cctx,
		cancel:  cancel,
		inbox:   make(chan Task, inboxSize),
		states:  make(map[protocol.NodeAddress]syncchannel.State),
	}

	opts := syncchannel.OptionsFromConfig(cfg.Channel)
	opts.OnState = s.onChannelState
	s.Pool = pool.New(cctx, transport, s.onMessage, opts)
	s.Dialog = command.NewDialog(s.Pool, s.Tracker, cfg.Commands.StrictCorrelation)

	s.subscribe()
	return s
}

// SetObserver registers o. It must be called before Start.
func (s *Session) SetObserver(o Observer) {
	s.observer = o
}

// Start opens the primary channel.
func (s *Session) Start() {
	logging.Info(subsystem, "Starting with primary channel %s", s.primary)
	s.Pool.Open(s.primary)
}

// Close stops every channel. Queued tasks are dropped.
func (s *Session) Close() {
	s.cancel()
	s.Pool.CloseAll()
	s.Bus.Close()
}

// Primary returns the seed channel's address.
func (s *Session) Primary() protocol.NodeAddress { return s.primary }

// Config returns the configuration the session was built with.
func (s *Session) Config() config.Config { return s.cfg }

// Inbox delivers queued tasks to the event loop.
func (s *Session) Inbox() <-chan Task { return s.inbox }

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Run executes queued tasks until ctx or the session ends.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return nil
		case task := <-s.inbox:
			task()
		}
	}
}

// RunPending executes the tasks queued so far without waiting for more.
func (s *Session) RunPending() int {
	n := 0
	for {
		select {
		case task := <-s.inbox:
			task()
			n++
		default:
			return n
		}
	}
}

// Enqueue schedules task on the event loop. It blocks while the queue is
// full and gives up once the session is closed.
func (s *Session) Enqueue(task Task) {
	select {
	case s.inbox <- task:
	case <-s.ctx.Done():
	}
}

// onMessage is the pool's shared handler; it runs on channel goroutines.
func (s *Session) onMessage(msg protocol.Inbound, source protocol.NodeAddress) {
	s.Enqueue(func() { s.HandleMessage(msg, source) })
}

func (s *Session) onChannelState(address protocol.NodeAddress, state syncchannel.State) {
	s.Enqueue(func() {
		s.mu.Lock()
		s.states[address] = state
		s.mu.Unlock()
		logging.Debug(subsystem, "Channel %s is %s", address, state)
		if s.observer != nil {
			s.observer.ChannelChanged(address, state)
		}
	})
}

// HandleMessage applies one inbound message. It must run on the event loop.
func (s *Session) HandleMessage(msg protocol.Inbound, source protocol.NodeAddress) {
	switch m := msg.(type) {
	case protocol.ClusterDetails:
		s.applySnapshot(m.Snapshot, source)
	case protocol.LogMessage:
		s.recordLog(source, m.Record)
	case protocol.ExecutionResult:
		s.applyResult(source, m)
	default:
		logging.Warn(subsystem, "Unhandled %T from %s", msg, source)
		return
	}
	if s.observer != nil {
		s.observer.MessageApplied(msg, source)
	}
}

func (s *Session) applySnapshot(snapshot protocol.ClusterSnapshot, source protocol.NodeAddress) {
	refs := snapshot.Nodes()
	rows := make([]template.Record, len(refs))
	for i, ref := range refs {
		rows[i] = RowFor(ref)
	}
	s.Table.SetEntries(rows)

	s.mu.Lock()
	s.nodes = refs
	s.lastSync = snapshot.ProcessedAt
	s.syncedAt = time.Now()
	s.mu.Unlock()

	for _, ref := range refs {
		web := ref.Node.WebAddress()
		s.Logs.Ensure(web)
		s.Pool.Open(web)
	}
	logging.Debug(subsystem, "Snapshot from %s: %d clusters, %d nodes", source, len(snapshot.Clusters), len(refs))

	if _, ok := s.Logs.Active(); !ok && len(refs) > 0 {
		s.SelectNode(refs[0].Node.WebAddress())
	}
}

func (s *Session) recordLog(source protocol.NodeAddress, record protocol.LogRecord) {
	active, evicted := s.Logs.RecordLog(source, record)
	if !active {
		return
	}
	if evicted {
		s.refreshLogList()
		return
	}
	if logstore.Matches(record, s.Filter()) {
		s.LogList.AddEntry(record.Fields())
	}
}

func (s *Session) applyResult(source protocol.NodeAddress, m protocol.ExecutionResult) {
	token := m.CorrelationID
	if p, ok := s.Tracker.Resolve(source, m.CorrelationID, m.Result); ok {
		token = p.Token
	} else {
		logging.Debug(subsystem, "Result from %s matches no pending request", source)
	}
	s.Dialog.UpdateOutput(m.Result, token)
}

// RowFor projects one node onto the table record.
func RowFor(ref protocol.NodeRef) template.Record {
	n := ref.Node
	return template.Record{
		"name":              ref.ClusterName,
		"address":           string(n.Address()),
		"web_address":       string(n.WebAddress()),
		"tasks":             "",
		"last_heartbeat":    string(n.LastHeartbeat),
		"trip_time":         n.LastTrip,
		"supportedRuntimes": strings.Join(n.SupportedRuntimes, ", "),
	}
}

// SelectNode makes address the active log tab. The filter is cleared so the
// list shows the node's whole buffer.
func (s *Session) SelectNode(address protocol.NodeAddress) {
	s.mu.Lock()
	s.filter = ""
	s.mu.Unlock()

	records := s.Logs.SelectNode(address)
	s.LogList.SetEntries(fieldsOf(records))
}

// SetFilter re-renders the active node's buffer through term.
func (s *Session) SetFilter(term string) {
	s.mu.Lock()
	s.filter = term
	s.mu.Unlock()
	s.refreshLogList()
}

// Filter returns the current filter term.
func (s *Session) Filter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

func (s *Session) refreshLogList() {
	s.LogList.SetEntries(fieldsOf(s.Logs.Filter(s.Filter())))
}

// DisplayedLogs returns the active node's records passing the filter.
func (s *Session) DisplayedLogs() []protocol.LogRecord {
	return s.Logs.Filter(s.Filter())
}

func fieldsOf(records []protocol.LogRecord) []template.Record {
	out := make([]template.Record, len(records))
	for i, r := range records {
		out[i] = r.Fields()
	}
	return out
}

// NodeLogs returns the records of one node's buffer passing term. It is
// safe to call from any goroutine.
func (s *Session) NodeLogs(address protocol.NodeAddress, term string) ([]protocol.LogRecord, bool) {
	if ref, ok := s.FindNode(address); ok {
		address = ref.Node.WebAddress()
	}
	if !s.Logs.Has(address) {
		return nil, false
	}
	return s.Logs.FilterNode(address, term), true
}

// Resync re-issues the topology query on the primary channel. While that
// channel is not OPEN it raises a notice and returns ErrNotConnected.
func (s *Session) Resync() error {
	ch, ok := s.Pool.Get(s.primary)
	if !ok {
		s.raise("Resync failed", syncchannel.ErrNotConnected.Error())
		return syncchannel.ErrNotConnected
	}
	if err := ch.QueryState(); err != nil {
		s.raise("Resync failed", err.Error())
		return err
	}
	logging.Info(subsystem, "Resync requested on %s", s.primary)
	return nil
}

// ExecuteOnNode opens the command dialog for ref.
func (s *Session) ExecuteOnNode(ref protocol.NodeRef) {
	s.Dialog.ShowFor(ref.Node)
}

// SubmitCommand submits the dialog. Submitting while the target's channel
// is not OPEN sends nothing and raises a notice.
func (s *Session) SubmitCommand() error {
	_, err := s.Dialog.Submit()
	if errors.Is(err, syncchannel.ErrNotConnected) {
		s.raise("Command not sent", err.Error())
	}
	return err
}

// Execute sends a command on behalf of a non-interactive caller and waits
// for its correlated result.
func (s *Session) Execute(ctx context.Context, ref protocol.NodeRef, runtime, cmdline string, repeatTimes int) (protocol.CommandResult, error) {
	req := protocol.CommandRequest{
		TargetHostname: ref.Node.Hostname,
		TargetPort:     ref.Node.CommunicationPort,
		RuntimeName:    runtime,
		Input: protocol.CommandInput{
			Command:             cmdline,
			PositionalArguments: []string{},
			Options:             map[string]string{},
		},
		RepeatTimes: repeatTimes,
		RequestedAt: time.Now(),
	}

	channel := ref.Node.WebAddress()
	p := s.Tracker.Track(channel, req)
	wait := s.Tracker.Await(p.Token)
	if err := s.Pool.SendCommand(channel, req, p.Token); err != nil {
		s.Tracker.Forget(p.Token)
		return protocol.CommandResult{}, err
	}

	select {
	case result := <-wait:
		return result, nil
	case <-ctx.Done():
		s.Tracker.Abandon(p.Token)
		return protocol.CommandResult{}, fmt.Errorf("waiting for result from %s: %w", ref.Node.Address(), ctx.Err())
	}
}

// Nodes returns the nodes of the latest snapshot, in table order.
func (s *Session) Nodes() []protocol.NodeRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]protocol.NodeRef(nil), s.nodes...)
}

// FindNode looks a node up by its communication or web address.
func (s *Session) FindNode(address protocol.NodeAddress) (protocol.NodeRef, bool) {
	for _, ref := range s.Nodes() {
		if ref.Node.Address() == address || ref.Node.WebAddress() == address {
			return ref, true
		}
	}
	return protocol.NodeRef{}, false
}

// LastSync returns processedAt of the latest snapshot and when it arrived.
func (s *Session) LastSync() (protocol.Stamp, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync, s.syncedAt
}

// ChannelState returns the last reported state of address's channel.
func (s *Session) ChannelState(address protocol.NodeAddress) (syncchannel.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[address]
	return st, ok
}

// Notice returns the pending notice, if any.
func (s *Session) Notice() (Notice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.notice == nil {
		return Notice{}, false
	}
	return *s.notice, true
}

// DismissNotice clears the pending notice.
func (s *Session) DismissNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = nil
}

func (s *Session) raise(title, message string) {
	s.mu.Lock()
	s.notice = &Notice{Title: title, Message: message, At: time.Now()}
	s.mu.Unlock()
	logging.Warn(subsystem, "%s: %s", title, message)
}
