// Package paths centralizes the home-relative file locations the daemon
// and CLI agree on. Every other package that touches the filesystem goes
// through here rather than building its own path.
package paths

import (
	"os"
	"path/filepath"
)

const dirName = ".hl"

// Dir returns "<home>/.hl", without creating it.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dirName), nil
}

// EnsureDir creates "<home>/.hl" if it does not already exist.
func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func join(name string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// SocketPath returns "<home>/.hl/server.sock".
func SocketPath() (string, error) { return join("server.sock") }

// PidPath returns "<home>/.hl/server.pid".
func PidPath() (string, error) { return join("server.pid") }

// LogPath returns "<home>/.hl/server.log".
func LogPath() (string, error) { return join("server.log") }

// ServerOptionsPath returns "<home>/.hl/server.json".
func ServerOptionsPath() (string, error) { return join("server.json") }

// UserConfigPath returns "<home>/.hl/user-config.json".
func UserConfigPath() (string, error) { return join("user-config.json") }
