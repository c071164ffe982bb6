package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewDashboardCmd(t *testing.T) {
	dashboardCmd := newDashboardCmd()

	if !strings.HasPrefix(dashboardCmd.Use, "dashboard") {
		t.Errorf("Expected Use to start with 'dashboard', got %s", dashboardCmd.Use)
	}

	if dashboardCmd.RunE == nil {
		t.Error("Expected RunE function to be set")
	}

	if dashboardCmd.Flags().Lookup("no-tui") == nil {
		t.Error("Expected --no-tui flag to be registered")
	}
}

func TestDashboardCmdArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "no seed", args: []string{}, wantErr: false},
		{name: "one seed", args: []string{"10.0.0.1:8080"}, wantErr: false},
		{name: "two seeds", args: []string{"a:1", "b:2"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newDashboardCmd().Args(nil, tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("Args(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestSeedArg(t *testing.T) {
	if got := seedArg(nil); got != "" {
		t.Errorf("Expected empty seed, got %q", got)
	}
	if got := seedArg([]string{"node:9000"}); got != "node:9000" {
		t.Errorf("Expected node:9000, got %q", got)
	}
}

func TestMCPCmdHelp(t *testing.T) {
	mcpCmd := newMCPCmd()
	var buf bytes.Buffer
	mcpCmd.SetOut(&buf)
	mcpCmd.SetErr(&buf)
	mcpCmd.SetArgs([]string{"--help"})

	if err := mcpCmd.Execute(); err != nil {
		t.Fatalf("Error executing mcp help: %v", err)
	}

	for _, tool := range []string{"list_nodes", "get_logs", "execute_command", "resync"} {
		if !strings.Contains(buf.String(), tool) {
			t.Errorf("Help output should mention %s. Got: %q", tool, buf.String())
		}
	}
}
