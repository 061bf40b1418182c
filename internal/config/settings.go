package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "30s", "15m", "1h30m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '30s', '15m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Settings is the application configuration.
// Loaded from <user config dir>/cms_notifs/settings.toml
type Settings struct {
	Poll     PollConfig     `toml:"poll"`
	Errors   ErrorsConfig   `toml:"errors"`
	MarkRead MarkReadConfig `toml:"mark_read"`
	Display  DisplayConfig  `toml:"display"`
	Desktop  DesktopConfig  `toml:"desktop"`
}

// PollConfig controls the fetch schedule.
type PollConfig struct {
	Interval       Duration `toml:"interval"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// ErrorsConfig controls error presentation.
type ErrorsConfig struct {
	Silent bool `toml:"silent"` // log only, never show the error view
}

// MarkReadConfig selects the optional mark-all-read parameters.
type MarkReadConfig struct {
	SendUserID        bool `toml:"send_user_id"`
	SendTimeCreatedTo bool `toml:"send_time_created_to"`
}

// DisplayConfig selects and configures the display surface.
type DisplayConfig struct {
	Mode        string `toml:"mode"`   // "web" or "terminal"
	Listen      string `toml:"listen"` // loopback address for the web surface
	OpenBrowser bool   `toml:"open_browser"`
	Theme       string `toml:"theme"` // theme name without .css extension
}

// DesktopConfig controls desktop alerts for new notifications.
type DesktopConfig struct {
	Notify bool   `toml:"notify"`
	Sound  string `toml:"sound"`  // wav, ogg or mp3 path; empty disables
	Volume int    `toml:"volume"` // 0-100
}

// DisplayMode names a display surface.
type DisplayMode string

const (
	DisplayModeWeb      DisplayMode = "web"
	DisplayModeTerminal DisplayMode = "terminal"
)

// Default settings values.
const (
	DefaultInterval       = 15 * time.Minute
	DefaultRequestTimeout = 30 * time.Second
	DefaultListen         = "127.0.0.1:0"
	DefaultTheme          = "default"
	DefaultVolume         = 80
)

// DefaultSettings returns Settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		Poll: PollConfig{
			Interval:       Duration(DefaultInterval),
			RequestTimeout: Duration(DefaultRequestTimeout),
		},
		MarkRead: MarkReadConfig{
			SendUserID: true,
		},
		Display: DisplayConfig{
			Mode:        string(DisplayModeWeb),
			Listen:      DefaultListen,
			OpenBrowser: true,
			Theme:       DefaultTheme,
		},
		Desktop: DesktopConfig{
			Notify: true,
			Volume: DefaultVolume,
		},
	}
}

// SettingsDir returns the application config directory.
func SettingsDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cms_notifs"), nil
}

// SettingsPath returns the path to the settings file.
func SettingsPath() (string, error) {
	dir, err := SettingsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.toml"), nil
}

// ThemesDir returns the directory searched for user theme overrides.
func ThemesDir() string {
	dir, err := SettingsDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "themes")
}

// LoadSettings loads settings from path. An empty path uses SettingsPath.
// If the file doesn't exist, returns the default settings.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		p, err := SettingsPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get settings path: %w", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	settings := DefaultSettings()
	if err := toml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return settings, nil
}

// Save writes the settings to path atomically.
func (s *Settings) Save(path string) error {
	if path == "" {
		p, err := SettingsPath()
		if err != nil {
			return fmt.Errorf("failed to get settings path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the settings are valid.
func (s *Settings) Validate() error {
	if s.Poll.Interval.Duration() < time.Minute {
		return fmt.Errorf("poll interval must be at least 1m, got %s", s.Poll.Interval.Duration())
	}
	if s.Poll.RequestTimeout.Duration() <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", s.Poll.RequestTimeout.Duration())
	}

	switch DisplayMode(s.Display.Mode) {
	case DisplayModeWeb, DisplayModeTerminal:
	default:
		return fmt.Errorf("invalid display mode %q, must be one of: %v",
			s.Display.Mode, []DisplayMode{DisplayModeWeb, DisplayModeTerminal})
	}
	if s.Display.Theme == "" {
		return fmt.Errorf("display theme cannot be empty")
	}

	if s.Desktop.Volume < 0 || s.Desktop.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", s.Desktop.Volume)
	}

	return nil
}

// SoundPath returns the configured sound file with ~ expanded.
func (s *Settings) SoundPath() string {
	return expandPath(s.Desktop.Sound)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
