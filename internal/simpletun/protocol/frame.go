package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// FrameHeaderLength - length prefix size, Big-Endian uint16
	FrameHeaderLength = 2
	// MaxPacketSize - the largest payload a frame can carry
	MaxPacketSize = 1<<16 - 1
	// maxEmptyReads - consecutive (0, nil) reads tolerated before giving up
	maxEmptyReads = 100
)

var (
	// ErrPacketTooLarge - packet does not fit in a uint16 length prefix
	ErrPacketTooLarge = errors.New("packet too large")
	// ErrTruncatedFrame - stream ended inside a frame
	ErrTruncatedFrame = errors.New("truncated frame")
	// ErrPeerClosed - stream ended cleanly at a frame boundary
	ErrPeerClosed = errors.New("peer closed")
)

// A frame on the connection:
//
//	+----------------+---------------------+
//	| length (2, BE) | payload (length)    |
//	+----------------+---------------------+

// Encode - Serialize packet to a frame
func Encode(packet []byte) ([]byte, error) {
	if len(packet) > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, len(packet), MaxPacketSize)
	}
	data := make([]byte, FrameHeaderLength+len(packet))
	binary.BigEndian.PutUint16(data[:FrameHeaderLength], uint16(len(packet)))
	copy(data[FrameHeaderLength:], packet)
	return data, nil
}

// WriteFrame - encode packet and write the whole frame to `writer`
func WriteFrame(writer io.Writer, packet []byte) error {
	data, err := Encode(packet)
	if err != nil {
		return err
	}
	return writeAll(writer, data)
}

// Decode - read exactly one frame from `reader` and return its payload.
// Returns ErrPeerClosed if the stream ends before the first byte, and
// ErrTruncatedFrame if it ends anywhere after that.
func Decode(reader io.Reader) ([]byte, error) {
	var header [FrameHeaderLength]byte
	n, err := readExact(reader, header[:])
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return nil, ErrPeerClosed
		}
		return nil, truncated(err)
	}
	length := binary.BigEndian.Uint16(header[:])
	packet := make([]byte, length)
	if _, err := readExact(reader, packet); err != nil {
		return nil, truncated(err)
	}
	return packet, nil
}

// DecodeFromReader - start a goroutine to decode frames from `reader` and send them to the packet channel.
// if Decode() fails, `closed` will receive the error and close. `done` stops the goroutine.
func DecodeFromReader(reader io.Reader, done <-chan struct{}) (<-chan []byte, <-chan error) {
	packetChannel := make(chan []byte)
	closed := make(chan error, 1)
	go func() {
		defer close(closed)
		for {
			packet, err := Decode(reader)
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

func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrTruncatedFrame
	}
	return err
}

// readExact - fill buffer completely. A read of zero bytes ends the stream.
// Returns the number of bytes read and io.EOF if the stream ended early.
func readExact(reader io.Reader, buffer []byte) (int, error) {
	read := 0
	for read < len(buffer) {
		n, err := reader.Read(buffer[read:])
		read += n
		if read == len(buffer) {
			return read, nil
		}
		if err != nil {
			return read, err
		}
		if n == 0 {
			return read, io.EOF
		}
	}
	return read, nil
}

func writeAll(writer io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := writer.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		data = data[n:]
	}
	return nil
}
