package visual

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	canvasWidth  = 800
	margin       = 16
	boxHeight    = 36
	boxGap       = 18
	lineHeight   = 16
	maxLabelLen  = 90
	frameWidth   = 640
	frameHeight  = 240
	frameDelayCS = 80 // hundredths of a second
)

var (
	colorBackground = color.RGBA{0xf0, 0xf0, 0xf0, 0xff}
	colorText       = color.RGBA{0x10, 0x10, 0x10, 0xff}
	colorEdge       = color.RGBA{0x60, 0x60, 0x60, 0xff}

	kindColors = map[NodeKind]color.RGBA{
		NodeFunction: {0xc8, 0xe0, 0xff, 0xff},
		NodeClass:    {0xe0, 0xd0, 0xff, 0xff},
		NodeLoop:     {0xff, 0xe0, 0xb0, 0xff},
		NodeBranch:   {0xff, 0xd0, 0xd0, 0xff},
		NodeImport:   {0xd8, 0xf0, 0xd8, 0xff},
		NodeStatic:   {0xff, 0xff, 0xff, 0xff},
	}
)

// PNGRenderer draws a box-and-arrow control-flow diagram. When Dir is set,
// artifacts are also written there as <cell-id>_diagram.png.
type PNGRenderer struct {
	Dir string
}

// NewPNGRenderer creates a renderer writing artifacts to dir. An empty dir
// keeps artifacts in memory only.
func NewPNGRenderer(dir string) *PNGRenderer {
	return &PNGRenderer{Dir: dir}
}

func (r *PNGRenderer) Render(ctx context.Context, spec Spec) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(spec.Nodes) == 0 && spec.Title == "" {
		return nil, nil
	}

	height := margin*2 + lineHeight*2 + len(spec.Nodes)*(boxHeight+boxGap)
	if len(spec.Variables) > 0 {
		height += lineHeight * 2
	}
	canvas := image.NewRGBA(image.Rect(0, 0, canvasWidth, height))
	fill(canvas, canvas.Bounds(), colorBackground)

	y := margin + lineHeight
	drawText(canvas, margin, y, "DIAGRAM: "+spec.Title)
	y += lineHeight

	for i, n := range spec.Nodes {
		box := image.Rect(margin, y, canvasWidth-margin, y+boxHeight)
		outline(canvas, box, colorEdge)
		fill(canvas, box.Inset(1), kindColors[n.Kind])
		drawText(canvas, box.Min.X+8, box.Min.Y+boxHeight/2+4, fmt.Sprintf("[%s] %s", n.Kind, n.Label))
		y += boxHeight
		if i < len(spec.Nodes)-1 {
			mid := canvasWidth / 2
			fill(canvas, image.Rect(mid-1, y, mid+1, y+boxGap), colorEdge)
		}
		y += boxGap
	}

	if len(spec.Variables) > 0 {
		drawText(canvas, margin, y+lineHeight, "variables: "+strings.Join(spec.Variables, ", "))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode diagram: %w", err)
	}

	img := &Image{
		Format: "png",
		Data:   buf.Bytes(),
		Width:  canvasWidth,
		Height: height,
	}

	if len(spec.Frames) > 0 {
		anim, err := renderAnimation(spec.Frames)
		if err != nil {
			return nil, err
		}
		img.Animation = anim
	}

	if r.Dir != "" {
		if err := r.write(spec.CellID, img); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func (r *PNGRenderer) write(cellID string, img *Image) error {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("create visual dir: %w", err)
	}
	img.Path = filepath.Join(r.Dir, cellID+"_diagram.png")
	if err := os.WriteFile(img.Path, img.Data, 0o644); err != nil {
		return fmt.Errorf("write diagram: %w", err)
	}
	if img.Animation != nil {
		img.AnimationPath = filepath.Join(r.Dir, cellID+"_diagram_anim.gif")
		if err := os.WriteFile(img.AnimationPath, img.Animation, 0o644); err != nil {
			return fmt.Errorf("write animation: %w", err)
		}
	}
	return nil
}

func renderAnimation(frames []string) ([]byte, error) {
	anim := &gif.GIF{LoopCount: 0}
	for i, text := range frames {
		frame := image.NewPaletted(image.Rect(0, 0, frameWidth, frameHeight), palette.Plan9)
		fill(frame, frame.Bounds(), color.White)
		drawText(frame, 10, 20, fmt.Sprintf("Frame %d: %s", i+1, text))
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, frameDelayCS)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("encode animation: %w", err)
	}
	return buf.Bytes(), nil
}

func fill(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func outline(dst draw.Image, r image.Rectangle, c color.Color) {
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), c)
	fill(dst, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), c)
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), c)
	fill(dst, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func drawText(dst draw.Image, x, y int, s string) {
	if len(s) > maxLabelLen {
		s = s[:maxLabelLen-3] + "..."
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(colorText),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
