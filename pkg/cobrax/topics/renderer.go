package topics

import (
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
)

// Renderer formats topic content for terminal display.
type Renderer interface {
	Render(content string, format string) string
}

// PlainRenderer returns content unchanged.
type PlainRenderer struct{}

// Render implements Renderer.
func (r *PlainRenderer) Render(content string, _ string) string {
	return content
}

// GlamourRenderer renders markdown topics with glamour. Non-markdown
// content passes through untouched.
type GlamourRenderer struct {
	Width int
}

// Render implements Renderer.
func (r *GlamourRenderer) Render(content string, format string) string {
	if format != ".md" {
		return content
	}

	options := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if r.Width > 0 {
		options = append(options, glamour.WithWordWrap(r.Width))
	}

	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// DefaultRenderer picks glamour when stdout is a terminal and plain
// passthrough when output is piped.
func DefaultRenderer() Renderer {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return &GlamourRenderer{}
	}
	return &PlainRenderer{}
}
