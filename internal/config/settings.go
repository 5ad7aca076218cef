package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rectcircle/simpletun/internal/simpletun/protocol"
	"github.com/rectcircle/simpletun/internal/variable"
	"gopkg.in/yaml.v3"
)

// Settings - everything the command line can set. A YAML settings file supplies
// defaults; explicit flags override them.
type Settings struct {
	// Interface - name of the tun/tap interface
	Interface string `yaml:"interface"`
	// InterfaceType - "tun" or "tap"
	InterfaceType string `yaml:"interface_type"`
	// Server - address of the server (client only)
	Server string `yaml:"server"`
	// Port - port to listen on or to connect to
	Port uint16 `yaml:"port"`
	// Credentials - credentials file path (server only)
	Credentials string `yaml:"credentials"`
	// BufferSize - bound of one packet read from the interface
	BufferSize int `yaml:"buffer_size"`
	// HandshakeTimeout - bound of the whole handshake, 0 for none
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	// Debug - output per packet debug information
	Debug bool `yaml:"debug"`
}

// DefaultSettings - settings without any file or flag
func DefaultSettings() Settings {
	return Settings{
		InterfaceType: variable.DefaultInterfaceType,
		Port:          variable.DefaultPort,
		Credentials:   variable.CredentialsFileName,
		BufferSize:    variable.DefaultBufferSize,
	}
}

// LoadSettings - DefaultSettings overlaid with the YAML file at path
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	file, err := os.Open(path)
	if err != nil {
		return settings, err
	}
	defer file.Close()
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
		return settings, fmt.Errorf("%s: %w", path, err)
	}
	return settings, nil
}

// Validate - check settings shared by client and server
func (s *Settings) Validate() error {
	if s.Interface == "" {
		return errors.New("must specify interface name")
	}
	if s.InterfaceType != "tun" && s.InterfaceType != "tap" {
		return fmt.Errorf("interface type must be tun or tap, got %q", s.InterfaceType)
	}
	if s.BufferSize <= 0 || s.BufferSize > protocol.MaxPacketSize {
		return fmt.Errorf("buffer size must be in [1, %d], got %d", protocol.MaxPacketSize, s.BufferSize)
	}
	if s.HandshakeTimeout < 0 {
		return fmt.Errorf("handshake timeout must not be negative")
	}
	return nil
}
