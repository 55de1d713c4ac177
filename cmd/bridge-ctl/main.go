// Bridge-ctl is an operator inspection utility for a running bridge.
//
// It connects as an ordinary WebSocket client (the same transport any
// user-interface client uses), issues a single reliable request, waits
// for the correlated response, and prints it.
//
// Usage:
//
//	bridge-ctl status --addr ws://localhost:8080
//	bridge-ctl devices --addr ws://localhost:8080
//
// See 'bridge-ctl --help' for available commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/muurk/bridge/internal/version"
	"github.com/muurk/bridge/internal/wire"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bridge-ctl",
	Short: "Bridge operator inspection CLI",
	Long: `A small utility for inspecting a running bridge from the command line.

It dials the bridge's WebSocket listener exactly like any user-interface
client would, issues one reliable request, and prints the correlated
response as JSON. Useful for smoke-testing a deployment or checking
bridge health without a full client.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", "ws://localhost:8080", "Bridge WebSocket address")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 5*time.Second, "Time to wait for a response")
}

var (
	flagAddr    string
	flagTimeout time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Request the bridge's system status",
	Long: `Sends a status request and prints the bridge's system snapshot:
uptime, active session count, connected device count, and per-error-class
counters.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return roundTrip(flagAddr, flagTimeout, wire.MsgStatusRequest, wire.MsgStatusResponse, nil)
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Request the bridge's current device-state snapshot",
	Long:  `Sends a get-devices-state request and prints the returned device list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return roundTrip(flagAddr, flagTimeout, wire.MsgGetDevicesStateRequest, wire.MsgGetDevicesStateResponse, nil)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bridge-ctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}

// roundTrip dials addr, sends a single request of reqType with a freshly
// generated request id, reads frames until one carries a matching
// request id and expRespType (ignoring broadcasts and unrelated
// responses in between, the same tolerance the reliable-transport layer
// affords its own callers), and prints its fields as JSON.
func roundTrip(addr string, timeout time.Duration, reqType, expRespType wire.MessageType, fields map[string]interface{}) error {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	requestID := newRequestID()

	req := &wire.Message{
		Type:      reqType,
		RequestID: requestID,
		Timestamp: float64(time.Now().UnixMilli()),
		Fields:    fields,
	}
	frame, err := wire.Encode(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("timed out waiting for response to request %d", requestID)
		}
		_ = conn.SetReadDeadline(time.Now().Add(remaining))

		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("connection closed before a response arrived: %w", err)
		}

		msg, err := wire.Decode(data)
		if err != nil {
			continue
		}

		if msg.Type == wire.MsgError && msg.RequestID == requestID {
			return fmt.Errorf("bridge returned an error: %s", msg.StringField("message"))
		}
		if msg.Type != expRespType || msg.RequestID != requestID {
			continue
		}

		out, err := json.MarshalIndent(msg.Fields, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format response: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}
}

// newRequestID generates a request id for the CLI's single outstanding
// request. The CLI never holds more than one request in flight, so an
// id taken from the clock (rather than the session-monotone counter the bridge itself
// keeps) is sufficient to avoid colliding with a stale response.
func newRequestID() uint32 {
	return uint32(time.Now().UnixNano()) & 0x7fffffff
}
