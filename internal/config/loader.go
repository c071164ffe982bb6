package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned (wrapped) when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd
var osLookupEnv = os.LookupEnv

const (
	userConfigDir    = ".config/clusterdash"
	projectConfigDir = ".clusterdash"
	configFileName   = "config.yaml"
	dotEnvFileName   = ".env"
	envPrefix        = "CLUSTERDASH_"
)

// Override is applied after every file and environment layer, the way a
// command-line flag is.
type Override func(*Config)

// WithSeed sets the primary channel address unless seed is empty.
func WithSeed(seed string) Override {
	return func(c *Config) {
		if seed != "" {
			c.Seed = seed
		}
	}
}

// LoadConfig loads the configuration by layering default, user, project and
// environment settings, then overrides. An explicit path, when given,
// replaces the user and project lookups.
func LoadConfig(explicitPath string, overrides ...Override) (Config, error) {
	config := GetDefaultConfig()

	if explicitPath != "" {
		if err := overlayFile(&config, explicitPath); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", explicitPath, err)
		}
	} else {
		for _, lookup := range []func() (string, error){getUserConfigPath, getProjectConfigPath} {
			path, err := lookup()
			if err != nil {
				// Optional layer; keep going with what we have.
				fmt.Fprintf(os.Stderr, "Warning: Could not determine config path: %v\n", err)
				continue
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				continue
			}
			if err := overlayFile(&config, path); err != nil {
				return Config{}, fmt.Errorf("error loading config from %s: %w", path, err)
			}
		}
	}

	env, err := readEnvironment()
	if err != nil {
		return Config{}, err
	}
	if err := applyEnvironment(&config, env); err != nil {
		return Config{}, err
	}
	for _, o := range overrides {
		o(&config)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// overlayFile decodes a YAML file on top of config; keys absent from the
// file keep their current value.
func overlayFile(config *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}

// readEnvironment collects CLUSTERDASH_* variables. Values from a .env file in
// the working directory are used unless the process environment sets them too.
func readEnvironment() (map[string]string, error) {
	env := map[string]string{}

	if wd, err := osGetwd(); err == nil {
		path := filepath.Join(wd, dotEnvFileName)
		if _, statErr := os.Stat(path); statErr == nil {
			fileEnv, err := godotenv.Read(path)
			if err != nil {
				return nil, fmt.Errorf("error reading %s: %w", path, err)
			}
			for k, v := range fileEnv {
				if strings.HasPrefix(k, envPrefix) {
					env[k] = v
				}
			}
		}
	}

	for _, key := range envKeys {
		if v, ok := osLookupEnv(key); ok {
			env[key] = v
		}
	}
	return env, nil
}

var envKeys = []string{
	envPrefix + "SEED",
	envPrefix + "HEARTBEAT_INTERVAL",
	envPrefix + "RECONNECT_INITIAL_DELAY",
	envPrefix + "RECONNECT_MAX_DELAY",
	envPrefix + "MAX_RECORDS_PER_NODE",
	envPrefix + "STRICT_CORRELATION",
}

func applyEnvironment(config *Config, env map[string]string) error {
	for key, value := range env {
		var err error
		switch strings.TrimPrefix(key, envPrefix) {
		case "SEED":
			config.Seed = value
		case "HEARTBEAT_INTERVAL":
			config.Channel.HeartbeatInterval, err = time.ParseDuration(value)
		case "RECONNECT_INITIAL_DELAY":
			config.Channel.Reconnect.InitialDelay, err = time.ParseDuration(value)
		case "RECONNECT_MAX_DELAY":
			config.Channel.Reconnect.MaxDelay, err = time.ParseDuration(value)
		case "MAX_RECORDS_PER_NODE":
			config.Logs.MaxRecordsPerNode, err = strconv.Atoi(value)
		case "STRICT_CORRELATION":
			config.Commands.StrictCorrelation, err = strconv.ParseBool(value)
		}
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, value, err)
		}
	}
	return nil
}

// Validate checks the values every component relies on.
func (c Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Seed); err != nil {
		return fmt.Errorf("%w: seed %q is not host:port: %v", ErrInvalid, c.Seed, err)
	}
	if c.Channel.Scheme != "ws" && c.Channel.Scheme != "wss" {
		return fmt.Errorf("%w: channel.scheme must be ws or wss, got %q", ErrInvalid, c.Channel.Scheme)
	}
	if c.Channel.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: channel.heartbeatInterval must be positive", ErrInvalid)
	}
	if c.Channel.MaxMessageSize < 0 {
		return fmt.Errorf("%w: channel.maxMessageSize must not be negative", ErrInvalid)
	}
	r := c.Channel.Reconnect
	if r.InitialDelay < 0 || r.MaxDelay < 0 || r.Cooldown < 0 {
		return fmt.Errorf("%w: channel.reconnect delays must not be negative", ErrInvalid)
	}
	if r.MaxDelay > 0 && r.MaxDelay < r.InitialDelay {
		return fmt.Errorf("%w: channel.reconnect.maxDelay is below initialDelay", ErrInvalid)
	}
	if r.Multiplier != 0 && r.Multiplier < 1 {
		return fmt.Errorf("%w: channel.reconnect.multiplier must be >= 1", ErrInvalid)
	}
	if r.Jitter < 0 || r.Jitter > 1 {
		return fmt.Errorf("%w: channel.reconnect.jitter must be within [0,1]", ErrInvalid)
	}
	if r.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("%w: channel.reconnect.maxConsecutiveFailures must not be negative", ErrInvalid)
	}
	if c.Logs.MaxRecordsPerNode < 0 {
		return fmt.Errorf("%w: logs.maxRecordsPerNode must not be negative", ErrInvalid)
	}
	if len(c.UI.TableColumns) == 0 {
		return fmt.Errorf("%w: ui.tableColumns must list at least one column", ErrInvalid)
	}
	return nil
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
