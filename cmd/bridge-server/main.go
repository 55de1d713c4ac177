// Bridge-server is the standalone process that hosts the sensor bridge:
// a WebSocket listener that multiplexes device-control, recording, and
// motion-streaming sessions for any number of user-interface clients.
//
// Usage:
//
//	bridge-server serve [flags]
//
// See 'bridge-server serve --help' for available options.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/bridge/internal/bridge"
	"github.com/muurk/bridge/internal/config"
	"github.com/muurk/bridge/internal/logging"
	"github.com/muurk/bridge/internal/ports/fake"
	"github.com/muurk/bridge/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bridge-server",
	Short: "Sensor bridge WebSocket server",
	Long: `A standalone WebSocket bridge that binds the device plane, the motion
processing plane, and any number of user-interface clients onto a single
local transport.

Device discovery/connection and motion processing are external ports: this
binary wires in in-memory fakes by default so the bridge can be exercised
without real hardware attached. A deployment with real BLE hardware wires
its own ports.Device and ports.Processing implementations in place of the
fakes constructed here.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var (
	flagPort              int
	flagMaxConnections    int
	flagHeartbeatInterval time.Duration
	flagLogLevel          string
	flagConfigPath        string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge listener",
	Long: `Start the bridge listener to accept WebSocket sessions from device
managers, recording controllers, and monitor clients.

If --port is zero (the default) the bridge scans upward from the
configured base port until it finds one free. Configuration loaded from
disk (~/.config/bridge/config.yaml or the platform equivalent) is
overridden by any flag explicitly set on the command line.`,
	Example: `  # Start with an auto-scanned port
  bridge-server serve

  # Start on an explicit port with debug logging
  bridge-server serve --port 9090 --log-level debug

  # Cap concurrent sessions at 4
  bridge-server serve --max-connections 4`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "Explicit listener port (0 = scan for a free port)")
	serveCmd.Flags().IntVar(&flagMaxConnections, "max-connections", 0, "Maximum simultaneous sessions (0 = use config default)")
	serveCmd.Flags().DurationVar(&flagHeartbeatInterval, "heartbeat-interval", 0, "Ping cadence for liveness checks (0 = use config default)")
	serveCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&flagConfigPath, "config", "", "Path to a config.yaml to load instead of the default location")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("port") {
		cfg.Port = flagPort
	}
	if cmd.Flags().Changed("max-connections") {
		cfg.MaxConnections = flagMaxConnections
	}
	if cmd.Flags().Changed("heartbeat-interval") {
		cfg.HeartbeatInterval = flagHeartbeatInterval
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	device := fake.NewDevice()
	processing := fake.NewProcessing()

	var activeSessions func() int
	sys := fake.NewSystem(func() int {
		if activeSessions != nil {
			return activeSessions()
		}
		return 0
	}, func() int {
		devices, err := device.GetConnectedDevices(context.Background())
		if err != nil {
			return 0
		}
		return len(devices)
	})

	br, err := bridge.New(cfg, device, processing, sys)
	if err != nil {
		return fmt.Errorf("failed to construct bridge: %w", err)
	}
	activeSessions = br.SessionCount

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- br.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("bridge exited: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := br.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("bridge shutdown failed: %w", err)
		}
		return nil
	}
}

func loadConfig() (*config.Config, error) {
	if flagConfigPath != "" {
		return config.LoadFrom(flagConfigPath)
	}
	return config.Load()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bridge-server %s (commit: %s)\n", version.Version, version.Commit)
	},
}
