// Package config handles the Moodle connection file and application settings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tidwall/jsonc"
)

// DefaultMoodleLocation is the Moodle instance used until the user changes it.
const DefaultMoodleLocation = "https://cms.bits-hyderabad.ac.in"

// ConnectionFileName is the connection file name under the config directory.
const ConnectionFileName = "cms_notifs.json"

// Config is the persisted Moodle connection.
// MoodleLocation has no trailing slash once it has passed through Normalize.
type Config struct {
	MoodleLocation string `json:"moodle_location"`
	Token          string `json:"token"`
}

// Default returns the connection written on first run.
func Default() Config {
	return Config{MoodleLocation: DefaultMoodleLocation}
}

// Normalize strips trailing slashes from the URL. Nothing else changes.
func Normalize(c Config) Config {
	c.MoodleLocation = strings.TrimRight(c.MoodleLocation, "/")
	return c
}

// IOError is a filesystem failure while reading or writing the connection file.
// Callers treat it as fatal.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("config %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsIOError reports whether err is an IOError.
func IsIOError(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}

// ConnectionPath returns the connection file path.
// On Linux this is $XDG_CONFIG_HOME/cms_notifs.json (or ~/.config/...),
// elsewhere ~/.cms_notifs.json.
func ConnectionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS != "linux" {
		return filepath.Join(home, "."+ConnectionFileName), nil
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConnectionFileName), nil
}

// LogPath returns the log file path.
// On Linux this is $XDG_STATE_HOME/cms_notifs.log (or ~/.local/state/...),
// elsewhere ~/.cms_notifs.log.
func LogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS != "linux" {
		return filepath.Join(home, ".cms_notifs.log"), nil
	}
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "cms_notifs.log"), nil
}

// DataPath returns the data directory used for the seen-notification history.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "cms_notifs")
}

// SeenPath returns the path to the seen-notification JSONL file.
func SeenPath() string {
	return filepath.Join(DataPath(), "seen.jsonl")
}

// Store reads and writes the connection file.
type Store struct {
	path string
}

// NewStore creates a Store for path. An empty path uses ConnectionPath.
func NewStore(path string) (*Store, error) {
	if path == "" {
		p, err := ConnectionPath()
		if err != nil {
			return nil, &IOError{Op: "locate", Path: ConnectionFileName, Err: err}
		}
		path = p
	}
	return &Store{path: path}, nil
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Retrieve reads the connection file. When the file is absent or cannot be
// parsed, Default is written, read back, and returned with regenerated set.
// Only filesystem failures are returned as errors.
func (s *Store) Retrieve() (Config, bool, error) {
	cfg, err := s.read()
	if err == nil {
		return cfg, false, nil
	}
	if IsIOError(err) {
		return Config{}, false, err
	}

	if err := s.Save(Default()); err != nil {
		return Config{}, false, err
	}
	cfg, err = s.read()
	if err != nil {
		return Config{}, false, fmt.Errorf("re-reading regenerated config: %w", err)
	}
	return cfg, true, nil
}

// Save overwrites the connection file with cfg.
func (s *Store) Save(cfg Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return &IOError{Op: "mkdir", Path: filepath.Dir(s.path), Err: err}
	}

	// Write atomically via temp file
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return &IOError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return &IOError{Op: "rename", Path: s.path, Err: err}
	}
	return nil
}

// errUnparseable marks a connection file that exists but is not usable.
var errUnparseable = errors.New("connection file is not valid")

// connectionFile requires both keys to be present.
type connectionFile struct {
	MoodleLocation *string `json:"moodle_location"`
	Token          *string `json:"token"`
}

func (s *Store) read() (Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s missing", errUnparseable, s.path)
		}
		return Config{}, &IOError{Op: "read", Path: s.path, Err: err}
	}

	var file connectionFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return Config{}, fmt.Errorf("%w: %v", errUnparseable, err)
	}
	if file.MoodleLocation == nil || file.Token == nil {
		return Config{}, fmt.Errorf("%w: moodle_location and token are required", errUnparseable)
	}
	return Config{MoodleLocation: *file.MoodleLocation, Token: *file.Token}, nil
}
