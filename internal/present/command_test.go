package present

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/cmsnotifs/internal/config"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want Command
	}{
		{"url", "url https://cms.example/mod/forum?id=1", OpenURL{URL: "https://cms.example/mod/forum?id=1"}},
		{"url keeps remainder verbatim", "url https://cms.example/a b", OpenURL{URL: "https://cms.example/a b"}},
		{"url tab separator", "url\thttps://cms.example", OpenURL{URL: "https://cms.example"}},
		{"settings", "settings", OpenSettings{}},
		{"settings with empty data", "settings ", OpenSettings{}},
		{"mark_read", "mark_read ", MarkRead{}},
		{"close", "close ", Close{}},
		{"unload", "unload ", Unload{}},
		{"config", `config {"moodle_location":"https://cms.example/","token":"abc"}`,
			SaveConfig{Config: config.Config{MoodleLocation: "https://cms.example/", Token: "abc"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	_, err := ParseCommand("reboot now")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = ParseCommand("")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = ParseCommand("url ")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownCommand)

	_, err = ParseCommand("config {not json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownCommand)
}

func TestFormatCommand_ParsesBack(t *testing.T) {
	for _, cmd := range []Command{
		OpenURL{URL: "https://cms.example/x"},
		OpenSettings{},
		MarkRead{},
		Close{},
		Unload{},
		SaveConfig{Config: config.Config{MoodleLocation: "https://m", Token: "t"}},
	} {
		t.Run(cmd.Name(), func(t *testing.T) {
			got, err := ParseCommand(FormatCommand(cmd))
			require.NoError(t, err)
			assert.Equal(t, cmd, got)
		})
	}
}
