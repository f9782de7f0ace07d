package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/springcard/sscp-host/output"
	"github.com/springcard/sscp-host/sscp"
)

var version = "1.0.0"

// Global flags shared by every subcommand that opens a session.
var (
	portName     string
	baudRate     int
	addr         int
	keyHex       string
	selfTest     bool
	firstTimeout time.Duration
	nextTimeout  time.Duration
	maxRetry     int
	jsonOutput   bool
)

var rootCmd = &cobra.Command{
	Use:     "sscp-host",
	Short:   "SSCPv2 coupler reader client",
	Version: version,
	Long: `sscp-host v` + version + `
Drives an NFC coupler reader over RS-232/RS-485 using the SSCPv2 mutual
authentication and secure exchange protocol.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&portName, "port", "/dev/ttyUSB0", "serial device path")
	rootCmd.PersistentFlags().IntVar(&baudRate, "baud", 115200, "serial baud rate")
	rootCmd.PersistentFlags().IntVar(&addr, "addr", 0, "RS-485 target address (0 for point-to-point)")
	rootCmd.PersistentFlags().StringVar(&keyHex, "key", "", "transport key, hex-encoded (defaults to the reader's factory key)")
	rootCmd.PersistentFlags().BoolVar(&selfTest, "selftest", false, "run against the embedded self-test vectors instead of a real port")
	rootCmd.PersistentFlags().DurationVar(&firstTimeout, "first-timeout", time.Second, "header receive timeout")
	rootCmd.PersistentFlags().DurationVar(&nextTimeout, "next-timeout", 100*time.Millisecond, "inter-byte receive timeout")
	rootCmd.PersistentFlags().IntVar(&maxRetry, "max-retry", 2, "transport-timeout retries per secure exchange")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON instead of tables")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// connectAndAuthenticate opens the configured transport (or self-test mode)
// and runs the mutual authentication handshake, mirroring the card reader's
// connect-then-verify startup sequence.
func connectAndAuthenticate() (*sscp.Session, error) {
	opts := []sscp.Option{
		sscp.WithTimeouts(firstTimeout, nextTimeout),
		sscp.WithMaxRetry(maxRetry),
	}
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid --key: %w", err)
		}
		opts = append(opts, sscp.WithKey(key))
	}

	var session *sscp.Session
	if selfTest {
		session = sscp.NewSelfTestSession(opts...)
	} else {
		var err error
		session, err = sscp.Open(portName, baudRate, byte(addr), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", portName, err)
		}
	}

	if !jsonOutput {
		output.PrintSuccess(fmt.Sprintf("Authenticating on %s...", describeTransport()))
	}
	if err := session.Authenticate(); err != nil {
		session.Close()
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !jsonOutput {
		output.PrintSuccess("Session established")
	}
	return session, nil
}

func describeTransport() string {
	if selfTest {
		return "self-test vectors"
	}
	return fmt.Sprintf("%s @ %d baud", portName, baudRate)
}
