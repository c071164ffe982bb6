package config

import (
	"time"
)

// Config is the top-level configuration structure for clusterdash.
type Config struct {
	// Seed is the address of the primary channel, host:port of a node's web endpoint.
	Seed     string         `yaml:"seed"`
	Channel  ChannelConfig  `yaml:"channel"`
	Logs     LogsConfig     `yaml:"logs"`
	Commands CommandsConfig `yaml:"commands"`
	UI       UIConfig       `yaml:"ui"`
}

// ChannelConfig controls every SyncChannel in the pool.
type ChannelConfig struct {
	Scheme            string          `yaml:"scheme,omitempty"` // "ws" or "wss"
	Path              string          `yaml:"path,omitempty"`
	HeartbeatInterval time.Duration   `yaml:"heartbeatInterval,omitempty"`
	HandshakeTimeout  time.Duration   `yaml:"handshakeTimeout,omitempty"`
	WriteTimeout      time.Duration   `yaml:"writeTimeout,omitempty"`
	// MaxMessageSize bounds one inbound frame in bytes; 0 leaves it unbounded.
	MaxMessageSize int64           `yaml:"maxMessageSize,omitempty"`
	Reconnect      ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig defines how a closed channel dials again.
type ReconnectConfig struct {
	// InitialDelay of zero reconnects immediately, with no throttling.
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay,omitempty"`
	// Multiplier for exponential backoff
	Multiplier float64 `yaml:"multiplier,omitempty"`
	// Jitter is the fraction of each delay that is randomized, between 0 and 1.
	Jitter float64 `yaml:"jitter"`
	// MaxConsecutiveFailures opens the circuit breaker; 0 disables it.
	MaxConsecutiveFailures int           `yaml:"maxConsecutiveFailures"`
	Cooldown               time.Duration `yaml:"cooldown,omitempty"`
}

// LogsConfig defines retention of the per-node log buffers.
type LogsConfig struct {
	// MaxRecordsPerNode caps each buffer as a ring; 0 keeps everything.
	MaxRecordsPerNode int `yaml:"maxRecordsPerNode"`
}

// CommandsConfig defines how execution results are matched to the dialog.
type CommandsConfig struct {
	// StrictCorrelation only applies results that resolve the dialog's own request.
	// When false the most recently received result wins.
	StrictCorrelation bool `yaml:"strictCorrelation"`
}

// UIConfig holds the marker templates used to render the table and the log list.
type UIConfig struct {
	TableColumns []ColumnConfig `yaml:"tableColumns,omitempty"`
	LogTemplate  string         `yaml:"logTemplate,omitempty"`
}

// ColumnConfig is one column of the cluster table.
type ColumnConfig struct {
	Title    string `yaml:"title"`
	Width    int    `yaml:"width"`
	Template string `yaml:"template"`
}
