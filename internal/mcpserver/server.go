// Package mcpserver exposes the synchronized cluster state to agents as MCP
// tools served over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"clusterdash/internal/protocol"
	"clusterdash/internal/syncchannel"
	"clusterdash/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const subsystem = "MCPServer"

const (
	defaultLogLimit       = 100
	defaultTimeoutSeconds = 30
)

// State is the part of a session the tools read and act on. Every method
// must be safe for concurrent use.
type State interface {
	Primary() protocol.NodeAddress
	Nodes() []protocol.NodeRef
	FindNode(address protocol.NodeAddress) (protocol.NodeRef, bool)
	NodeLogs(address protocol.NodeAddress, term string) ([]protocol.LogRecord, bool)
	ChannelState(address protocol.NodeAddress) (syncchannel.State, bool)
	LastSync() (protocol.Stamp, time.Time)
	Resync() error
	Execute(ctx context.Context, ref protocol.NodeRef, runtime, cmdline string, repeatTimes int) (protocol.CommandResult, error)
}

// Server serves the dashboard tools.
type Server struct {
	state State
	mcp   *server.MCPServer
}

// New registers the tools over state.
func New(state State, version string) *Server {
	s := &Server{
		state: state,
		mcp: server.NewMCPServer(
			"clusterdash",
			version,
			server.WithToolCapabilities(false),
		),
	}
	for _, t := range s.tools() {
		s.mcp.AddTool(t.tool, t.handler)
	}
	return s
}

// ServeStdio answers requests read from in on out until ctx ends.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	logging.Info(subsystem, "Serving MCP over stdio")
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

type toolDef struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
}

func (s *Server) tools() []toolDef {
	return []toolDef{
		{
			tool: mcp.NewTool("list_nodes",
				mcp.WithDescription("List every node of the latest cluster snapshot with its channel state"),
			),
			handler: s.handleListNodes,
		},
		{
			tool: mcp.NewTool("get_logs",
				mcp.WithDescription("Return the buffered log records of one node, oldest first"),
				mcp.WithString("address",
					mcp.Required(),
					mcp.Description("Node address, host:communicationPort or host:webPort"),
				),
				mcp.WithString("filter",
					mcp.Description("Case-sensitive substring the record data must contain"),
				),
				mcp.WithNumber("limit",
					mcp.Description("Maximum number of most recent records to return (default 100, 0 for all)"),
				),
			),
			handler: s.handleGetLogs,
		},
		{
			tool: mcp.NewTool("execute_command",
				mcp.WithDescription("Run a command in one of a node's runtimes and wait for its result"),
				mcp.WithString("address",
					mcp.Required(),
					mcp.Description("Node address, host:communicationPort or host:webPort"),
				),
				mcp.WithString("runtime",
					mcp.Description("Runtime name; defaults to the node's first supported runtime"),
				),
				mcp.WithString("command",
					mcp.Required(),
					mcp.Description("Command line handed to the runtime"),
				),
				mcp.WithNumber("repeatTimes",
					mcp.Description("How many extra times the node repeats the command"),
				),
				mcp.WithNumber("timeoutSeconds",
					mcp.Description("How long to wait for the result (default 30)"),
				),
			),
			handler: s.handleExecuteCommand,
		},
		{
			tool: mcp.NewTool("resync",
				mcp.WithDescription("Ask the primary node for a fresh cluster snapshot"),
			),
			handler: s.handleResync,
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
