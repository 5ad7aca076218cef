package simpletun

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/rectcircle/simpletun/internal/simpletun/protocol"
)

// ServerOptions - configuration of Server
type ServerOptions struct {
	// Address - `host:port` to listen on, ignored if Listener is set
	Address string
	// Listener - accept the connection from this listener instead of Address
	Listener net.Listener
	// Device - the virtual interface
	Device protocol.Device
	// Verifier - the configured server credentials
	Verifier protocol.Verifier
	// Out - operator status output (the verdict)
	Out     io.Writer
	Options protocol.Options
}

// Server - accept one client, check its credentials and bridge its packets with the device.
// Returns nil when the client closes the connection after a successful handshake.
func Server(ctx context.Context, opts ServerOptions) error {
	options := withLogger(opts.Options)
	logger := options.Logger
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	listener := opts.Listener
	if listener == nil {
		var (
			listenConfig net.ListenConfig
			err          error
		)
		listener, err = listenConfig.Listen(ctx, "tcp", opts.Address)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}
	defer listener.Close()
	logger.Info("SERVER: waiting for a client", "address", listener.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	conn, err := listener.Accept()
	stop()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("accept: %w", err)
	}
	// One client per run
	listener.Close()
	defer conn.Close()
	logger.Info("SERVER: Client connected", "remote", conn.RemoteAddr().String())

	outcome, err := protocol.Respond(ctx, conn, opts.Verifier, &options)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	fmt.Fprintln(out, outcome.Verdict())
	if !outcome.Passed() {
		return authFailed(outcome)
	}
	return bridge(ctx, conn, opts.Device, &options)
}
