package simpletun

import (
	"fmt"
	"io"

	"github.com/rectcircle/simpletun/internal/simpletun/protocol"
)

// PacketDevice - a protocol.Device over a handle where every Read returns one whole
// packet and every Write emits one packet (tun/tap fd, datagram socket)
type PacketDevice struct {
	name       string
	handle     io.ReadWriteCloser
	bufferSize int
}

var _ protocol.Device = (*PacketDevice)(nil)

// NewPacketDevice - wrap `handle`; packets longer than bufferSize are truncated by the OS
func NewPacketDevice(name string, handle io.ReadWriteCloser, bufferSize int) *PacketDevice {
	return &PacketDevice{
		name:       name,
		handle:     handle,
		bufferSize: bufferSize,
	}
}

// Name - interface name
func (d *PacketDevice) Name() string {
	return d.name
}

// ReadPacket - read one packet
func (d *PacketDevice) ReadPacket() ([]byte, error) {
	buffer := make([]byte, d.bufferSize)
	n, err := d.handle.Read(buffer)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.name, err)
	}
	return buffer[:n], nil
}

// WritePacket - write one packet, a partial write is an error
func (d *PacketDevice) WritePacket(packet []byte) error {
	n, err := d.handle.Write(packet)
	if err != nil {
		return fmt.Errorf("write %s: %w", d.name, err)
	}
	if n != len(packet) {
		return fmt.Errorf("write %s: %w (%d of %d bytes)", d.name, io.ErrShortWrite, n, len(packet))
	}
	return nil
}

// Close - close the handle
func (d *PacketDevice) Close() error {
	return d.handle.Close()
}
