// Package statusbar joins rendered feature strings into the aggregate line
// and writes it to the output sink.
package statusbar

import (
	"fmt"
	"io"
	"strings"

	"barstatus/internal/feature"
)

const DefaultSeparator = " | "

// Bar is stateless apart from its separator and sink.
type Bar struct {
	sep string
	out io.Writer
}

func New(sep string, out io.Writer) *Bar {
	return &Bar{sep: sep, out: out}
}

// Assemble renders every feature in order and joins the results.
func (b *Bar) Assemble(order []feature.ID, table map[feature.ID]feature.Feature) (string, error) {
	parts := make([]string, 0, len(order))
	for _, id := range order {
		f, ok := table[id]
		if !ok {
			return "", feature.ProtocolError("statusbar", fmt.Sprintf("feature %q is not registered", id), nil)
		}
		parts = append(parts, f.Render())
	}
	return strings.Join(parts, b.sep), nil
}

// Render assembles the line and writes it newline-terminated.
func (b *Bar) Render(order []feature.ID, table map[feature.ID]feature.Feature) (string, error) {
	line, err := b.Assemble(order, table)
	if err != nil {
		return "", err
	}
	if _, err := io.WriteString(b.out, line+"\n"); err != nil {
		return line, fmt.Errorf("write status line: %w", err)
	}
	return line, nil
}
