package present

import (
	"bytes"
	"html/template"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownInstance goldmark.Markdown
	detailPolicy     *bluemonday.Policy
	markdownOnce     sync.Once
)

// getMarkdown returns the shared converter and sanitizer. Raw HTML passes
// through the converter; the sanitizer decides what survives.
func getMarkdown() (goldmark.Markdown, *bluemonday.Policy) {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
		)
		detailPolicy = bluemonday.UGCPolicy()
		detailPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	})
	return markdownInstance, detailPolicy
}

// renderDetail converts notification detail text to HTML. Moodle sends the
// text already formatted as HTML; plain and markdown text is converted. On
// conversion failure the text is returned escaped.
func renderDetail(text string) template.HTML {
	md, policy := getMarkdown()

	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes()))
}
