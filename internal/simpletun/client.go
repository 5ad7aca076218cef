package simpletun

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/rectcircle/simpletun/internal/simpletun/protocol"
)

// ClientOptions - configuration of Client
type ClientOptions struct {
	// Address - server `host:port`
	Address string
	// Device - the virtual interface
	Device protocol.Device
	// Credentials - asked after the connection is established
	Credentials CredentialsProvider
	// Out - operator status output
	Out     io.Writer
	Options protocol.Options
}

// Client - connect to the server, authenticate and bridge the device with the connection.
// Returns nil when the server closes the connection after a successful handshake.
func Client(ctx context.Context, opts ClientOptions) error {
	options := withLogger(opts.Options)
	logger := options.Logger
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", opts.Address)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()
	logger.Info("CLIENT: Connected to server", "remote", conn.RemoteAddr().String())

	credentials, err := opts.Credentials.Credentials()
	if err != nil {
		return err
	}
	outcome, err := protocol.Initiate(ctx, conn, credentials, &options)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	if !outcome.Passed() {
		fmt.Fprintf(out, "Connection failed! Didn't pass authentication process!(Status: %s)\n", outcome.Verdict())
		return authFailed(outcome)
	}
	fmt.Fprintln(out, "Pass Verification!")
	return bridge(ctx, conn, opts.Device, &options)
}
