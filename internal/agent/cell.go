package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CodeCell is a single notebook code block: opaque source text plus a
// stable identifier.
type CodeCell struct {
	ID     string
	Source string
}

// NewCodeCell creates a cell. When id is empty the identifier is derived
// from the source text, so identical cells share an ID across sessions.
func NewCodeCell(id, source string) CodeCell {
	if id == "" {
		id = ContentID(source)
	}
	return CodeCell{ID: id, Source: source}
}

// ContentID returns the content-derived identifier for source.
func ContentID(source string) string {
	sum := sha256.Sum256([]byte(source))
	return "cell-" + hex.EncodeToString(sum[:6])
}

// Lines returns the physical source lines. A single trailing newline does
// not start a new line, and an empty cell has no lines.
func (c CodeCell) Lines() []string {
	if c.Source == "" {
		return nil
	}
	src := strings.ReplaceAll(c.Source, "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(src, "\n"), "\n")
}

// LineCount returns the number of physical lines in the cell.
func (c CodeCell) LineCount() int {
	return len(c.Lines())
}
