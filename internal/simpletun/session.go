package simpletun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/rectcircle/simpletun/internal/simpletun/protocol"
	"github.com/rectcircle/simpletun/tools"
)

// ErrAuthFailed - the handshake completed without a Pass verdict
var ErrAuthFailed = errors.New("authentication failed")

func authFailed(outcome protocol.Outcome) error {
	return fmt.Errorf("%w: %s (Status: %s)", ErrAuthFailed, outcome, outcome.Verdict())
}

func withLogger(options protocol.Options) protocol.Options {
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	if options.Counters == nil {
		options.Counters = &protocol.Counters{}
	}
	return options
}

// bridge - forward packets between device and conn until the peer closes or ctx is done.
// conn is closed when ctx is done so the bridge readers return.
func bridge(ctx context.Context, conn net.Conn, device protocol.Device, options *protocol.Options) error {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()
	err := protocol.NewBridge(device, conn, options).Serve(ctx)
	if err != nil && ctx.Err() != nil && (errors.Is(err, ctx.Err()) || tools.IsExpectedCloseError(err)) {
		return ctx.Err()
	}
	options.Logger.Info("bridge stopped",
		"tap2net", options.Counters.Tap2Net.Load(),
		"net2tap", options.Counters.Net2Tap.Load(),
		"error", err)
	return err
}
