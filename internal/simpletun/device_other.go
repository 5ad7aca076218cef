//go:build !linux

package simpletun

import (
	"errors"
	"fmt"
)

// OpenDevice - tun/tap interfaces are only supported on Linux
func OpenDevice(name string, tap bool, bufferSize int) (*PacketDevice, error) {
	return nil, fmt.Errorf("connecting to tun/tap interface %s: %w", name, errors.ErrUnsupported)
}
