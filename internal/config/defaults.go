package config

import "time"

const (
	DefaultSeed              = "127.0.0.1:8080"
	DefaultPath              = "/view/updates"
	DefaultHeartbeatInterval = 5000 * time.Millisecond
	DefaultMaxRecordsPerNode = 5000
	DefaultMaxMessageSize    = 1 << 20
)

// DefaultTableColumns mirrors the columns of the cluster table.
func DefaultTableColumns() []ColumnConfig {
	return []ColumnConfig{
		{Title: "Cluster", Width: 14, Template: "@name@"},
		{Title: "Address", Width: 22, Template: "@address@"},
		{Title: "Tasks", Width: 8, Template: "@tasks@"},
		{Title: "Last heartbeat", Width: 26, Template: "@last_heartbeat@"},
		{Title: "Trip", Width: 8, Template: "@trip_time@"},
		{Title: "Runtimes", Width: 24, Template: "@supportedRuntimes@"},
	}
}

// GetDefaultConfig returns the configuration used when no file overrides it.
func GetDefaultConfig() Config {
	return Config{
		Seed: DefaultSeed,
		Channel: ChannelConfig{
			Scheme:            "ws",
			Path:              DefaultPath,
			HeartbeatInterval: DefaultHeartbeatInterval,
			HandshakeTimeout:  10 * time.Second,
			WriteTimeout:      5 * time.Second,
			MaxMessageSize:    DefaultMaxMessageSize,
			Reconnect: ReconnectConfig{
				InitialDelay:           250 * time.Millisecond,
				MaxDelay:               30 * time.Second,
				Multiplier:             2,
				Jitter:                 0.2,
				MaxConsecutiveFailures: 0,
				Cooldown:               time.Minute,
			},
		},
		Logs: LogsConfig{
			MaxRecordsPerNode: DefaultMaxRecordsPerNode,
		},
		Commands: CommandsConfig{
			StrictCorrelation: true,
		},
		UI: UIConfig{
			TableColumns: DefaultTableColumns(),
			LogTemplate:  "[@processedAt@] @data@",
		},
	}
}
