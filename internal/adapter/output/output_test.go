package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

const testBaseURL = "https://cms.example"

func testNotifications() []model.Notification {
	return []model.Notification{
		{
			ID:                11,
			Subject:           "Quiz 3 opens tomorrow",
			Text:              model.StringPtr("Deadline is\nFriday   at noon"),
			ContextURL:        model.StringPtr("https://cms.example/mod/quiz/view.php?id=3"),
			UserIDTo:          7,
			TimeCreatedPretty: "5 mins ago",
		},
		{
			ID:                12,
			Subject:           "New forum post",
			UserIDTo:          7,
			TimeCreatedPretty: "2 hours ago",
		},
	}
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestDmenuFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(DefaultFormatterOptions()).Format(&buf, testNotifications()))

	assert.Equal(t, []string{
		"1 | 5 mins ago | Quiz 3 opens tomorrow: Deadline is Friday at noon",
		"2 | 2 hours ago | New forum post",
	}, lines(buf.String()))
}

func TestDmenuFormatter_NoIndexNoTime(t *testing.T) {
	opts := DefaultFormatterOptions()
	opts.ShowIndex = false
	opts.ShowTime = false
	opts.Separator = " ~ "

	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, testNotifications()))
	assert.Equal(t, "New forum post", lines(buf.String())[1])
}

func TestDmenuFormatter_CustomTemplate(t *testing.T) {
	opts := DefaultFormatterOptions()
	opts.Template = "{{.Index}}: #{{.Notification.ID}} {{truncate .Notification.Subject 10}} {{.Link}}"
	opts.BaseURL = testBaseURL

	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, testNotifications()))

	assert.Equal(t, []string{
		"1: #11 Quiz 3 ... https://cms.example/mod/quiz/view.php?id=3",
		"2: #12 New for... https://cms.example",
	}, lines(buf.String()))
}

func TestDmenuFormatter_BadTemplateFallsBack(t *testing.T) {
	opts := DefaultFormatterOptions()
	opts.Template = "{{.Index"

	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, testNotifications()))
	assert.True(t, strings.HasPrefix(buf.String(), "1 | 5 mins ago | "))
}

func TestDmenuFormatter_TruncateBody(t *testing.T) {
	opts := DefaultFormatterOptions()
	opts.BodyMaxLen = 10

	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, testNotifications()[:1]))
	assert.Equal(t, "1 | 5 mins ago | Quiz 3 opens tomorrow: Deadlin...", strings.TrimSpace(buf.String()))
}

func TestPlainFormatter_Format(t *testing.T) {
	opts := DefaultFormatterOptions()
	opts.BaseURL = testBaseURL

	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testNotifications()))

	assert.Equal(t, `[1] Quiz 3 opens tomorrow (5 mins ago)
    Deadline is Friday at noon
    https://cms.example/mod/quiz/view.php?id=3
[2] New forum post (2 hours ago)
    https://cms.example
`, buf.String())
}

func TestPlainFormatter_IncludeNewline(t *testing.T) {
	opts := DefaultFormatterOptions()
	opts.IncludeNewline = true
	opts.ShowLink = false

	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testNotifications()[:1]))
	assert.Equal(t, "[1] Quiz 3 opens tomorrow (5 mins ago)\n    Deadline is\n    Friday at noon\n", buf.String())
}

func TestPlainFormatter_Template(t *testing.T) {
	opts := DefaultFormatterOptions()
	opts.Template = "{{.Notification.Subject}} [{{.Created}}] {{oneline .Detail}}"

	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testNotifications()))
	assert.Equal(t, []string{
		"Quiz 3 opens tomorrow [5 mins ago] Deadline is Friday at noon",
		"New forum post [2 hours ago] " + model.DefaultDetail,
	}, lines(buf.String()))
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(DefaultFormatterOptions()).Format(&buf, testNotifications()))

	var result []model.Notification
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, testNotifications(), result)
	assert.Contains(t, buf.String(), `"useridto": 7`)
}

func TestJSONFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(DefaultFormatterOptions()).Format(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestJSONFormatter_FormatSingle(t *testing.T) {
	n := testNotifications()[1]

	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(DefaultFormatterOptions()).FormatSingle(&buf, &n))

	var result model.Notification
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, n, result)
	assert.NotContains(t, buf.String(), "contexturl", "absent optional fields stay absent")
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLFormatter(DefaultFormatterOptions()).Format(&buf, testNotifications()))

	assert.True(t, strings.HasPrefix(buf.String(), "- id: 11\n  subject: Quiz 3 opens tomorrow\n"))

	var result []model.Notification
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, testNotifications(), result)
}

func TestIDsFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIDsFormatter().Format(&buf, testNotifications()))
	assert.Equal(t, "11\n12\n", buf.String())
}

func TestFormatField(t *testing.T) {
	n := testNotifications()[0]
	bare := testNotifications()[1]

	tests := []struct {
		n        *model.Notification
		field    string
		expected string
	}{
		{&n, "id", "11"},
		{&n, "subject", "Quiz 3 opens tomorrow"},
		{&n, "body", "Deadline is\nFriday   at noon"},
		{&bare, "text", model.DefaultDetail},
		{&n, "link", "https://cms.example/mod/quiz/view.php?id=3"},
		{&bare, "url", testBaseURL},
		{&n, "created", "5 mins ago"},
		{&n, "useridto", "7"},
		{&bare, "all", "New forum post\n" + model.DefaultDetail},
		{&n, "unknown", "Quiz 3 opens tomorrow"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatField(tt.n, tt.field, testBaseURL))
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]FormatType{
		"":      FormatPlain,
		"plain": FormatPlain,
		"JSON":  FormatJSON,
		"yaml":  FormatYAML,
		"dmenu": FormatDmenu,
		" ids ": FormatIDs,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestNewFormatter(t *testing.T) {
	opts := DefaultFormatterOptions()
	assert.IsType(t, &PlainFormatter{}, NewFormatter(FormatPlain, opts))
	assert.IsType(t, &JSONFormatter{}, NewFormatter(FormatJSON, opts))
	assert.IsType(t, &YAMLFormatter{}, NewFormatter(FormatYAML, opts))
	assert.IsType(t, &DmenuFormatter{}, NewFormatter(FormatDmenu, opts))
	assert.IsType(t, &IDsFormatter{}, NewFormatter(FormatIDs, opts))
	assert.IsType(t, &PlainFormatter{}, NewFormatter("other", opts))
}
