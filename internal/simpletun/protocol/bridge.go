package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Bridge - forward packets between a Device and a connection to the peer
type Bridge struct {
	Device   Device
	Conn     io.ReadWriter
	Counters *Counters
	logger   *slog.Logger
}

// NewBridge - Create a Bridge to serve
func NewBridge(device Device, conn io.ReadWriter, options *Options) *Bridge {
	return &Bridge{
		Device:   device,
		Conn:     conn,
		Counters: options.counters(),
		logger:   options.logger(),
	}
}

// ReadFromDevice - start a goroutine to read packets from `device` and send them to the packet channel.
// if ReadPacket() fails, `closed` will receive the error and close. `done` stops the goroutine.
func ReadFromDevice(device Device, done <-chan struct{}) (<-chan []byte, <-chan error) {
	packetChannel := make(chan []byte)
	closed := make(chan error, 1)
	go func() {
		defer close(closed)
		for {
			packet, err := device.ReadPacket()
			if err != nil {
				closed <- err
				return
			}
			select {
			case packetChannel <- packet:
			case <-done:
				return
			}
		}
	}()
	return packetChannel, closed
}

// Serve - forward until the peer closes the connection (returns nil), ctx is done,
// or an I/O error occurs on either side.
//
// Each side has one reader goroutine that hands over exactly one unit at a time;
// the loop waits on both in a single select, so a silent side never holds up the other.
// The caller closes Device and Conn after Serve returns to release the readers.
func (bridge *Bridge) Serve(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	devicePackets, deviceClosed := ReadFromDevice(bridge.Device, done)
	netPackets, netClosed := DecodeFromReader(bridge.Conn, done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case packet := <-devicePackets:
			if err := bridge.forwardToNet(packet); err != nil {
				return err
			}
			// Both sides may be ready in the same cycle
			select {
			case packet := <-netPackets:
				if err := bridge.forwardToDevice(packet); err != nil {
					return err
				}
			default:
			}
		case packet := <-netPackets:
			if err := bridge.forwardToDevice(packet); err != nil {
				return err
			}
			select {
			case packet := <-devicePackets:
				if err := bridge.forwardToNet(packet); err != nil {
					return err
				}
			default:
			}
		case err := <-deviceClosed:
			return fmt.Errorf("read device: %w", err)
		case err := <-netClosed:
			if errors.Is(err, ErrPeerClosed) {
				bridge.logger.Info("peer closed the connection",
					"tap2net", bridge.Counters.Tap2Net.Load(),
					"net2tap", bridge.Counters.Net2Tap.Load())
				return nil
			}
			return fmt.Errorf("read connection: %w", err)
		}
	}
}

func (bridge *Bridge) forwardToNet(packet []byte) error {
	if err := WriteFrame(bridge.Conn, packet); err != nil {
		return fmt.Errorf("write connection: %w", err)
	}
	n := bridge.Counters.Tap2Net.Add(1)
	bridge.logger.Debug("TAP2NET", "count", n, "read", len(packet), "written", len(packet)+FrameHeaderLength)
	return nil
}

func (bridge *Bridge) forwardToDevice(packet []byte) error {
	if err := bridge.Device.WritePacket(packet); err != nil {
		return fmt.Errorf("write device: %w", err)
	}
	n := bridge.Counters.Net2Tap.Add(1)
	bridge.logger.Debug("NET2TAP", "count", n, "read", len(packet)+FrameHeaderLength, "written", len(packet))
	return nil
}
