package richtext

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Markdown converts markdown typed at the terminal into note markup.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates a converter with GitHub flavored extensions. Raw HTML
// is passed through so inline images and internal links survive.
func NewMarkdown() *Markdown {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithUnsafe(),
		),
	)
	return &Markdown{md: md}
}

// Convert renders source to HTML.
func (m *Markdown) Convert(source []byte) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert(source, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
