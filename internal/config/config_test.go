package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "cms_notifs.json"))
	require.NoError(t, err)
	return s
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "https://cms.bits-hyderabad.ac.in", cfg.MoodleLocation)
	assert.Empty(t, cfg.Token)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Config
		want Config
	}{
		{"no slash", Config{"https://cms.example", "t"}, Config{"https://cms.example", "t"}},
		{"one slash", Config{"https://cms.example/", "t"}, Config{"https://cms.example", "t"}},
		{"many slashes", Config{"https://cms.example///", "t"}, Config{"https://cms.example", "t"}},
		{"inner path kept", Config{"https://cms.example/moodle/", "t"}, Config{"https://cms.example/moodle", "t"}},
		{"only slashes", Config{"///", "t"}, Config{"", "t"}},
		{"whitespace kept", Config{" https://cms.example/ ", " tok "}, Config{" https://cms.example/ ", " tok "}},
		{"slash before whitespace kept", Config{"https://cms.example/\n", "t"}, Config{"https://cms.example/\n", "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestStore_SaveRetrieveRoundTrip(t *testing.T) {
	s := newTestStore(t)
	cfg := Config{MoodleLocation: "https://cms.example", Token: "abc123"}

	require.NoError(t, s.Save(cfg))
	first, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, `{"moodle_location":"https://cms.example","token":"abc123"}`, string(first))

	got, regenerated, err := s.Retrieve()
	require.NoError(t, err)
	assert.False(t, regenerated)
	assert.Equal(t, cfg, got)

	require.NoError(t, s.Save(got))
	second, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStore_RetrieveMissingWritesDefault(t *testing.T) {
	s := newTestStore(t)

	cfg, regenerated, err := s.Retrieve()
	require.NoError(t, err)
	assert.True(t, regenerated)
	assert.Equal(t, Default(), cfg)

	_, err = os.Stat(s.Path())
	require.NoError(t, err, "default config should be persisted")

	cfg, regenerated, err = s.Retrieve()
	require.NoError(t, err)
	assert.False(t, regenerated)
	assert.Equal(t, Default(), cfg)
}

func TestStore_RetrieveCorruptWritesDefault(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", `this is not json {`},
		{"missing token", `{"moodle_location":"https://cms.example"}`},
		{"wrong type", `{"moodle_location":5,"token":"x"}`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			require.NoError(t, os.WriteFile(s.Path(), []byte(tt.content), 0600))

			cfg, regenerated, err := s.Retrieve()
			require.NoError(t, err)
			assert.True(t, regenerated)
			assert.Equal(t, Default(), cfg)
		})
	}
}

func TestStore_RetrieveToleratesComments(t *testing.T) {
	s := newTestStore(t)
	content := `{
  // edited by hand
  "moodle_location": "https://cms.example",
  "token": "abc",
}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0600))

	cfg, regenerated, err := s.Retrieve()
	require.NoError(t, err)
	assert.False(t, regenerated)
	assert.Equal(t, Config{MoodleLocation: "https://cms.example", Token: "abc"}, cfg)
}

func TestStore_SaveCreatesDirectory(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "nested", "dir", "cms_notifs.json"))
	require.NoError(t, err)

	require.NoError(t, s.Save(Default()))
	_, err = os.Stat(s.Path())
	require.NoError(t, err)
}

func TestStore_RetrieveIOError(t *testing.T) {
	// A directory where the file should be cannot be read as a file
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	_, _, err = s.Retrieve()
	require.Error(t, err)
	assert.True(t, IsIOError(err))
}

func TestConnectionPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout only applies on linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	path, err := ConnectionPath()
	require.NoError(t, err)
	assert.Equal(t, "/custom/config/cms_notifs.json", path)
}

func TestLogPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout only applies on linux")
	}
	t.Setenv("XDG_STATE_HOME", "/custom/state")
	path, err := LogPath()
	require.NoError(t, err)
	assert.Equal(t, "/custom/state/cms_notifs.log", path)
}

func TestSeenPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	assert.Equal(t, filepath.Join("/custom/data", "cms_notifs", "seen.jsonl"), SeenPath())
}
