package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "bridge"
	configFile = "config.yaml"
)

var fileMutex sync.Mutex

// PerformanceMode is one of the named tuning presets for the bridge.
type PerformanceMode string

const (
	ModeHighThroughput PerformanceMode = "high_throughput"
	ModeLowLatency     PerformanceMode = "low_latency"
	ModeBalanced       PerformanceMode = "balanced"
)

// Config holds every tunable the bridge recognizes, per spec §6.
type Config struct {
	// Port is the explicit listener port. Zero means "scan for a free port"
	// starting at PortScanBase across PortScanSpan ports.
	Port         int `yaml:"port"`
	PortScanBase int `yaml:"port_scan_base"`
	PortScanSpan int `yaml:"port_scan_span"`

	MaxConnections    int           `yaml:"max_connections"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`

	ReliableTimeout      time.Duration `yaml:"reliable_timeout"`
	ReliableMaxRetries   int           `yaml:"reliable_max_retries"`
	ReliableBackoffBase  time.Duration `yaml:"reliable_backoff_base"`
	ReliableBackoffCeil  time.Duration `yaml:"reliable_backoff_ceiling"`
	ReliableSweepInterval time.Duration `yaml:"reliable_sweep_interval"`

	StreamingRateLimitEnabled  bool `yaml:"streaming_rate_limit_enabled"`
	StreamingMessagesPerSecond int  `yaml:"streaming_messages_per_second"`
	StreamingQueueCap          int  `yaml:"streaming_queue_cap"`
	StreamingDropOldMessages   bool `yaml:"streaming_drop_old_messages"`

	OverloadThreshold   float64       `yaml:"overload_threshold"`
	OverloadCooldown    time.Duration `yaml:"overload_cooldown"`
	OverloadDropPercent int           `yaml:"overload_drop_percent"`

	PerformanceMode PerformanceMode `yaml:"performance_mode"`
	LogLevel        string          `yaml:"log_level"`
}

// Default returns a Config populated with the defaults named in spec §6.
func Default() *Config {
	return &Config{
		Port:         0,
		PortScanBase: 8080,
		PortScanSpan: 50,

		MaxConnections:    10,
		HeartbeatInterval: 30 * time.Second,
		ConnectionTimeout: 60 * time.Second,

		ReliableTimeout:       5 * time.Second,
		ReliableMaxRetries:    3,
		ReliableBackoffBase:   1 * time.Second,
		ReliableBackoffCeil:   10 * time.Second,
		ReliableSweepInterval: 10 * time.Second,

		StreamingRateLimitEnabled:  true,
		StreamingMessagesPerSecond: 1000,
		StreamingQueueCap:          100,
		StreamingDropOldMessages:   true,

		OverloadThreshold:   1000,
		OverloadCooldown:    5 * time.Second,
		OverloadDropPercent: 50,

		PerformanceMode: ModeBalanced,
		LogLevel:        "info",
	}
}

// GetConfigDir returns the OS-appropriate configuration directory.
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

func ensureConfigDir() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// Load reads the configuration file from disk, applying defaults for any
// fields the file omits. If the file does not exist, Load returns the
// default configuration unmodified.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	cfg := Default()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadFrom reads the configuration from an explicit path, applying
// defaults for any fields the file omits. Unlike Load, a missing file is
// an error: an explicit path is assumed to be intentional.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to disk atomically (write to a temp file,
// then rename).
func (c *Config) Save() error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := ensureConfigDir(); err != nil {
		return err
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Bridge configuration file
# Location: ` + configPath + `

`)
	data = append(header, data...)

	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
