// Package share renders level share images: a grid thumbnail with a caption,
// encoded as PNG. Output is deterministic for a given level so responses can
// be cached indefinitely.
package share

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/gridlock-dev/gridlock/internal/sim"
)

const (
	cellSize   = 16
	margin     = 12
	captionH   = 28
	maxRenderW = 1024
)

var (
	bgColor      = color.RGBA{R: 0x1e, G: 0x1e, B: 0x2e, A: 0xff}
	wallColor    = color.RGBA{R: 0x45, G: 0x47, B: 0x5a, A: 0xff}
	floorColor   = color.RGBA{R: 0x2a, G: 0x2b, B: 0x3c, A: 0xff}
	goalColor    = color.RGBA{R: 0xa6, G: 0xe3, B: 0xa1, A: 0xff}
	hazardColor  = color.RGBA{R: 0xf3, G: 0x8b, B: 0xa8, A: 0xff}
	spawnColor   = color.RGBA{R: 0x89, G: 0xb4, B: 0xfa, A: 0xff}
	patrolColor  = color.RGBA{R: 0xf9, G: 0xe2, B: 0xaf, A: 0xff}
	captionColor = color.RGBA{R: 0xcd, G: 0xd6, B: 0xf4, A: 0xff}
)

func tileColor(kind sim.TileKind) color.RGBA {
	switch kind {
	case sim.TileWall:
		return wallColor
	case sim.TileGoal:
		return goalColor
	case sim.TileHazard:
		return hazardColor
	case sim.TileSpawn:
		return spawnColor
	case sim.TilePath:
		return patrolColor
	default:
		return floorColor
	}
}

// Render draws a parsed level as a PNG share card. The caption carries the
// title and, when positive, the author par.
func Render(lvl *sim.Level, title string, parMoves int) ([]byte, error) {
	width := lvl.Width*cellSize + 2*margin
	height := lvl.Height*cellSize + 2*margin + captionH
	if width > maxRenderW {
		return nil, fmt.Errorf("level too wide to render: %d tiles", lvl.Width)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(bgColor), image.Point{}, draw.Src)

	for y := 0; y < lvl.Height; y++ {
		for x := 0; x < lvl.Width; x++ {
			rect := image.Rect(
				margin+x*cellSize,
				margin+y*cellSize,
				margin+(x+1)*cellSize-1,
				margin+(y+1)*cellSize-1,
			)
			c := tileColor(lvl.Cells[y][x].Kind)
			draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Src)
		}
	}

	caption := title
	if parMoves > 0 {
		caption = fmt.Sprintf("%s · par %d", title, parMoves)
	}
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(captionColor),
		Face: basicfont.Face7x13,
		Dot: fixed.P(
			margin,
			lvl.Height*cellSize+margin+captionH/2+basicfont.Face7x13.Ascent/2,
		),
	}
	drawer.DrawString(caption)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
