package protocol

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Device - a virtual network interface (TUN/TAP).
// ReadPacket blocks until one whole packet is available; WritePacket emits one packet or fails.
type Device interface {
	ReadPacket() ([]byte, error)
	WritePacket(packet []byte) error
}

// Counters - packets forwarded in each direction, for diagnostics only
type Counters struct {
	// Tap2Net - packets read from the device and sent to the peer
	Tap2Net atomic.Uint64
	// Net2Tap - packets received from the peer and written to the device
	Net2Tap atomic.Uint64
}

// Options - settings shared by the handshake and the bridge
type Options struct {
	// Logger receives diagnostics; debug level enables per-packet traces
	Logger *slog.Logger
	// HandshakeTimeout bounds the whole handshake, 0 means no limit
	HandshakeTimeout time.Duration
	// Counters is updated by the bridge, may be nil
	Counters *Counters
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

func (o *Options) handshakeTimeout() time.Duration {
	if o == nil {
		return 0
	}
	return o.HandshakeTimeout
}

func (o *Options) counters() *Counters {
	if o == nil || o.Counters == nil {
		return &Counters{}
	}
	return o.Counters
}
