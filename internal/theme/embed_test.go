package theme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEmbeddedTheme(t *testing.T) {
	for _, name := range BundledThemes {
		t.Run(name, func(t *testing.T) {
			css, found := GetEmbeddedTheme(name)
			require.True(t, found)
			assert.Contains(t, css, `@import "_base.css"`)
			assert.Contains(t, css, "--cms-bg")
		})
	}

	css, found := GetEmbeddedTheme("nonexistent")
	assert.False(t, found)
	assert.Empty(t, css)

	_, found = GetEmbeddedTheme("_base")
	assert.False(t, found, "partials are not themes")
}

func TestGetEmbeddedPartial(t *testing.T) {
	for _, name := range []string{"_base.css", "_base", "base"} {
		css, found := GetEmbeddedPartial(name)
		require.True(t, found, name)
		assert.Contains(t, css, ".cms-item")
	}

	_, found := GetEmbeddedPartial("_nonexistent.css")
	assert.False(t, found)
}

func TestListEmbeddedThemes(t *testing.T) {
	themes := ListEmbeddedThemes()
	assert.ElementsMatch(t, BundledThemes, themes)
	for _, name := range themes {
		assert.False(t, strings.HasPrefix(name, "_"), "partial listed as theme: %s", name)
	}
}

func TestIsEmbeddedTheme(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"default", true},
		{"dark", true},
		{"catppuccin", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsEmbeddedTheme(tt.name))
		})
	}
}

func TestBundledThemes_ValidCSS(t *testing.T) {
	for _, name := range BundledThemes {
		t.Run(name, func(t *testing.T) {
			css := Load(name, "", nil).CSS
			assert.Equal(t, strings.Count(css, "{"), strings.Count(css, "}"),
				"theme %s should have balanced braces", name)
			assert.NotContains(t, css, "import failed")
		})
	}
}
