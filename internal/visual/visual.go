// Package visual defines the visual capability: turning a structured
// diagram request into a renderable image artifact.
package visual

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Renderer maps a diagram request to an image. A nil image with a nil
// error means the renderer chose to produce nothing.
type Renderer interface {
	Render(ctx context.Context, spec Spec) (*Image, error)
}

// NodeKind classifies a diagram node.
type NodeKind string

const (
	NodeFunction NodeKind = "function"
	NodeClass    NodeKind = "class"
	NodeLoop     NodeKind = "loop"
	NodeBranch   NodeKind = "branch"
	NodeImport   NodeKind = "import"
	NodeStatic   NodeKind = "statement"
)

// Node is one box in the control-flow diagram.
type Node struct {
	Label string
	Kind  NodeKind
}

// Spec is a structured visualization request keyed to a cell.
type Spec struct {
	CellID    string
	Title     string
	Nodes     []Node
	Variables []string

	// Frames, when present, are rendered as an animation, one frame per
	// entry.
	Frames []string
}

// Image is a rendered artifact.
type Image struct {
	Format string // "png"
	Data   []byte
	Width  int
	Height int

	// Path is set when the artifact was written to disk.
	Path string

	// Animation holds an encoded GIF when the spec carried frames.
	Animation     []byte
	AnimationPath string
}

// Load reads a previously written PNG artifact.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read visual %s: %w", path, err)
	}
	img := &Image{Format: "png", Data: data, Path: path}
	anim := strings.TrimSuffix(path, filepath.Ext(path)) + "_anim.gif"
	if b, err := os.ReadFile(anim); err == nil {
		img.Animation = b
		img.AnimationPath = anim
	}
	return img, nil
}
