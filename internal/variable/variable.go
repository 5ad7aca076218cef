package variable

import (
	"os"
	"path/filepath"
)

const (
	// DefaultPort - port to listen on (server) or to connect to (client)
	DefaultPort = uint16(55555)
	// DefaultBufferSize - buffer for reading from tun/tap interface, must be >= MTU (1500)
	DefaultBufferSize = 2000
	// DefaultInterfaceType - "tun" or "tap"
	DefaultInterfaceType = "tun"
	// CredentialsFileName - legacy server credentials file, `Username=` / `Password=` lines
	CredentialsFileName = "ServerConfig.txt"
	// SettingsFileName - optional YAML settings file in ConfigBaseDir
	SettingsFileName = "simpletun.yaml"
)

// ConfigBaseDir - the project config dir, "" if the home directory is unknown
func ConfigBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".simpletun")
}
