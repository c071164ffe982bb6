package mcpserver

import (
	"context"
	"fmt"
	"slices"
	"time"

	"clusterdash/internal/protocol"
	"clusterdash/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

// NodeInfo is one entry of list_nodes.
type NodeInfo struct {
	Cluster           string   `json:"cluster"`
	Address           string   `json:"address"`
	WebAddress        string   `json:"webAddress"`
	SupportedRuntimes []string `json:"supportedRuntimes"`
	LastHeartbeat     string   `json:"lastHeartbeat,omitempty"`
	LastTrip          int64    `json:"lastTrip"`
	Channel           string   `json:"channel"`
}

// NodeList is the list_nodes result.
type NodeList struct {
	Primary        string     `json:"primary"`
	PrimaryChannel string     `json:"primaryChannel"`
	LastSync       string     `json:"lastSync,omitempty"`
	Nodes          []NodeInfo `json:"nodes"`
}

// LogEntry is one record of get_logs.
type LogEntry struct {
	Data        string `json:"data"`
	RequestedAt string `json:"requestedAt,omitempty"`
	ReceivedAt  string `json:"receivedAt,omitempty"`
	ProcessedAt string `json:"processedAt,omitempty"`
}

// CommandOutput is the execute_command result.
type CommandOutput struct {
	Address    string `json:"address"`
	Runtime    string `json:"runtime"`
	StatusCode int    `json:"statusCode"`
	Output     string `json:"output"`
}

func (s *Server) channelState(address protocol.NodeAddress) string {
	if st, ok := s.state.ChannelState(address); ok {
		return st.String()
	}
	return "Unknown"
}

func (s *Server) handleListNodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stamp, _ := s.state.LastSync()
	list := NodeList{
		Primary:        string(s.state.Primary()),
		PrimaryChannel: s.channelState(s.state.Primary()),
		LastSync:       string(stamp),
		Nodes:          []NodeInfo{},
	}
	for _, ref := range s.state.Nodes() {
		n := ref.Node
		list.Nodes = append(list.Nodes, NodeInfo{
			Cluster:           ref.ClusterName,
			Address:           string(n.Address()),
			WebAddress:        string(n.WebAddress()),
			SupportedRuntimes: n.SupportedRuntimes,
			LastHeartbeat:     string(n.LastHeartbeat),
			LastTrip:          n.LastTrip,
			Channel:           s.channelState(n.WebAddress()),
		})
	}
	return jsonResult(list)
}

func (s *Server) handleGetLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address, err := request.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError("address parameter is required"), nil
	}
	filter := request.GetString("filter", "")
	limit := request.GetInt("limit", defaultLogLimit)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}

	records, ok := s.state.NodeLogs(protocol.NodeAddress(address), filter)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("No log stream for %s", address)), nil
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	entries := make([]LogEntry, len(records))
	for i, r := range records {
		entries[i] = LogEntry{
			Data:        r.Data,
			RequestedAt: string(r.RequestedAt),
			ReceivedAt:  string(r.ReceivedAt),
			ProcessedAt: string(r.ProcessedAt),
		}
	}
	return jsonResult(entries)
}

func (s *Server) handleExecuteCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address, err := request.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError("address parameter is required"), nil
	}
	cmdline, err := request.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError("command parameter is required"), nil
	}
	repeat := request.GetInt("repeatTimes", 0)
	if repeat < 0 {
		return mcp.NewToolResultError("repeatTimes must not be negative"), nil
	}
	timeout := request.GetInt("timeoutSeconds", defaultTimeoutSeconds)
	if timeout <= 0 {
		return mcp.NewToolResultError("timeoutSeconds must be positive"), nil
	}

	ref, ok := s.state.FindNode(protocol.NodeAddress(address))
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("Unknown node %s", address)), nil
	}

	runtimes := ref.Node.SupportedRuntimes
	runtime := request.GetString("runtime", "")
	switch {
	case runtime == "" && len(runtimes) > 0:
		runtime = runtimes[0]
	case runtime != "" && len(runtimes) > 0 && !slices.Contains(runtimes, runtime):
		return mcp.NewToolResultError(fmt.Sprintf("Runtime %q is not supported by %s (supported: %v)", runtime, address, runtimes)), nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	logging.Info(subsystem, "execute_command on %s (%s): %s", ref.Node.Address(), runtime, cmdline)
	result, err := s.state.Execute(ctx, ref, runtime, cmdline, repeat)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Command failed: %v", err)), nil
	}
	return jsonResult(CommandOutput{
		Address:    string(ref.Node.Address()),
		Runtime:    runtime,
		StatusCode: result.StatusCode,
		Output:     result.Output,
	})
}

func (s *Server) handleResync(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.state.Resync(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Resync failed: %v", err)), nil
	}
	return mcp.NewToolResultText("Resync requested on " + string(s.state.Primary())), nil
}
