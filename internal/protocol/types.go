// Package protocol defines the cluster data model and the JSON messages
// exchanged with a node over its synchronization channel.
package protocol

import (
	"bytes"
	"encoding/json"
	"net"
	"strconv"
	"time"
)

// NodeAddress is the host:port of a reachable channel endpoint.
type NodeAddress string

// NewNodeAddress joins host and port into a NodeAddress.
func NewNodeAddress(host string, port int) NodeAddress {
	return NodeAddress(net.JoinHostPort(host, strconv.Itoa(port)))
}

func (a NodeAddress) String() string { return string(a) }

// Stamp is a backend timestamp kept in the textual form it was sent in.
// The backend may encode times as ISO-8601 strings or as numbers.
type Stamp string

// UnmarshalJSON accepts a JSON string, a number, or null.
func (s *Stamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Stamp(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = Stamp(n.String())
	return nil
}

// FormatTime renders t the way requestedAt is sent on the wire.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// NodeDescriptor is one node inside a cluster snapshot.
type NodeDescriptor struct {
	Hostname          string   `json:"hostname"`
	CommunicationPort int      `json:"communicationPort"`
	WebPort           int      `json:"webPort"`
	LastHeartbeat     Stamp    `json:"lastHeartbeat"`
	LastTrip          int64    `json:"lastTrip"`
	SupportedRuntimes []string `json:"supportedRuntimes"`
}

// Address is the node's communication endpoint, the one commands target.
func (n NodeDescriptor) Address() NodeAddress {
	return NewNodeAddress(n.Hostname, n.CommunicationPort)
}

// WebAddress is the endpoint the node's own sync channel connects to.
func (n NodeDescriptor) WebAddress() NodeAddress {
	return NewNodeAddress(n.Hostname, n.WebPort)
}

// Cluster groups nodes under a name.
type Cluster struct {
	Name  string           `json:"name"`
	Nodes []NodeDescriptor `json:"nodes"`
}

// ClusterSnapshot is one full, authoritative view of the topology.
type ClusterSnapshot struct {
	ProcessedAt Stamp
	Clusters    []Cluster
}

// NodeRef pairs a node with the cluster it was listed under.
type NodeRef struct {
	ClusterName string
	Node        NodeDescriptor
}

// Nodes flattens the snapshot in listing order.
func (s ClusterSnapshot) Nodes() []NodeRef {
	var refs []NodeRef
	for _, c := range s.Clusters {
		for _, n := range c.Nodes {
			refs = append(refs, NodeRef{ClusterName: c.Name, Node: n})
		}
	}
	return refs
}

// LogRecord is one log line streamed by a node.
type LogRecord struct {
	Data        string
	RequestedAt Stamp
	ReceivedAt  Stamp
	ProcessedAt Stamp
	// Extra keeps envelope fields this client does not interpret.
	Extra map[string]json.RawMessage
}

// Fields exposes the record to marker templates.
func (r LogRecord) Fields() map[string]any {
	fields := make(map[string]any, len(r.Extra)+4)
	for k, v := range r.Extra {
		var decoded any
		if err := json.Unmarshal(v, &decoded); err == nil {
			fields[k] = decoded
		}
	}
	fields["data"] = r.Data
	fields["requestedAt"] = string(r.RequestedAt)
	fields["receivedAt"] = string(r.ReceivedAt)
	fields["processedAt"] = string(r.ProcessedAt)
	return fields
}

// CommandInput is the command line handed to a runtime.
type CommandInput struct {
	Command             string            `json:"command"`
	PositionalArguments []string          `json:"positionalArguments"`
	Options             map[string]string `json:"options"`
}

// CommandRequest targets one runtime on one node.
type CommandRequest struct {
	TargetHostname string
	TargetPort     int
	RuntimeName    string
	Input          CommandInput
	// RepeatTimes is non-negative; negative values are sent as 0.
	RepeatTimes int
	RequestedAt time.Time
}

// CommandResult is the outcome of one execute_command.
type CommandResult struct {
	StatusCode int    `json:"statusCode"`
	Output     string `json:"output"`
}
