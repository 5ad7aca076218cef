package simpletun

import (
	"fmt"

	"github.com/songgao/water"
)

// OpenDevice - allocate or reconnect to the tun/tap interface `name`.
// The interface is opened without packet information (IFF_NO_PI).
func OpenDevice(name string, tap bool, bufferSize int) (*PacketDevice, error) {
	config := water.Config{DeviceType: water.TUN}
	if tap {
		config.DeviceType = water.TAP
	}
	config.Name = name
	iface, err := water.New(config)
	if err != nil {
		return nil, fmt.Errorf("connecting to tun/tap interface %s: %w", name, err)
	}
	return NewPacketDevice(iface.Name(), iface, bufferSize), nil
}
