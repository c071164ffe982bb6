package protocol

import "time"

// Kind is the "type" discriminator carried by every message.
type Kind string

const (
	KindQueryClusterDetails Kind = "query_cluster_details"
	KindExecuteCommand      Kind = "execute_command"
	KindClusterDetails      Kind = "cluster_details"
	KindLogMessage          Kind = "log_message"
	KindExecutionResult     Kind = "execution_result"
)

// Inbound is the closed set of messages a node sends to the dashboard.
// Only the types in this file implement it.
type Inbound interface {
	Kind() Kind
	isInbound()
}

// ClusterDetails answers a query_cluster_details.
type ClusterDetails struct {
	Snapshot    ClusterSnapshot
	RequestedAt Stamp
}

// LogMessage carries one streamed log record.
type LogMessage struct {
	Record LogRecord
}

// ExecutionResult answers one execute_command.
type ExecutionResult struct {
	Result CommandResult
	// CorrelationID is empty when the backend does not echo it.
	CorrelationID string
	RequestedAt   Stamp
	ProcessedAt   Stamp
}

func (ClusterDetails) Kind() Kind  { return KindClusterDetails }
func (LogMessage) Kind() Kind      { return KindLogMessage }
func (ExecutionResult) Kind() Kind { return KindExecutionResult }

func (ClusterDetails) isInbound()  {}
func (LogMessage) isInbound()      {}
func (ExecutionResult) isInbound() {}

// Outbound is the closed set of requests the dashboard sends.
type Outbound interface {
	Kind() Kind
	isOutbound()
}

// QueryClusterDetails asks for a full topology snapshot.
type QueryClusterDetails struct {
	RequestedAt time.Time
}

// ExecuteCommand submits a CommandRequest.
type ExecuteCommand struct {
	Request       CommandRequest
	CorrelationID string
}

func (QueryClusterDetails) Kind() Kind { return KindQueryClusterDetails }
func (ExecuteCommand) Kind() Kind      { return KindExecuteCommand }

func (QueryClusterDetails) isOutbound() {}
func (ExecuteCommand) isOutbound()      {}
