package sim

import (
	"fmt"
	"strings"
)

// TileKind is the static terrain type of a cell. It never changes during a
// run; the patrol phase riding on TilePath cells lives in a separate overlay
// owned by the simulation.
type TileKind uint8

const (
	TileWall TileKind = iota
	TileEmpty
	TileGoal
	TileHazard
	TileSpawn
	TilePath
)

// Tile glyphs as authored by the level editor.
const (
	glyphWall   = '#'
	glyphEmpty  = ' '
	glyphGoal   = '!'
	glyphHazard = '*'
	glyphSpawn  = 'P'
)

// Cell is one grid position: a static kind plus, for TilePath cells, the
// initial patrol phase authored as a digit 1-9.
type Cell struct {
	Kind  TileKind
	Phase int
}

// Point is a grid coordinate, x across, y down.
type Point struct {
	X int
	Y int
}

// Level is the parsed, immutable form of a level. Spawns and Enemies are in
// scan order (row-major, left to right), which fixes actor ids for the whole
// run.
type Level struct {
	Width   int
	Height  int
	Cells   [][]Cell
	Spawns  []Point
	Enemies []Point
}

// MinWidth is the narrowest playable grid; anything under it cannot hold a
// wall border around a single cell.
const MinWidth = 3

// ParseLevel turns level text into a Level. Rows are newline separated and
// must be rectangular; a single trailing blank row from a final newline is
// tolerated. Every 'P' becomes a player spawn and every tile authored as the
// digit 1 an enemy, both numbered in scan order. A level with no spawn is
// rejected.
func ParseLevel(text string) (*Level, error) {
	rows := strings.Split(text, "\n")
	for i := range rows {
		rows[i] = strings.TrimRight(rows[i], "\r")
	}
	if n := len(rows); n > 0 && rows[n-1] == "" {
		rows = rows[:n-1]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrMalformedLevel)
	}

	width := len(rows[0])
	if width < MinWidth {
		return nil, fmt.Errorf("%w: rows must be at least %d tiles wide", ErrMalformedLevel, MinWidth)
	}

	lvl := &Level{
		Width:  width,
		Height: len(rows),
		Cells:  make([][]Cell, len(rows)),
	}
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d is %d tiles wide, want %d", ErrMalformedLevel, y, len(row), width)
		}
		lvl.Cells[y] = make([]Cell, width)
		for x := 0; x < width; x++ {
			ch := row[x]
			switch {
			case ch == glyphWall:
				lvl.Cells[y][x] = Cell{Kind: TileWall}
			case ch == glyphEmpty:
				lvl.Cells[y][x] = Cell{Kind: TileEmpty}
			case ch == glyphGoal:
				lvl.Cells[y][x] = Cell{Kind: TileGoal}
			case ch == glyphHazard:
				lvl.Cells[y][x] = Cell{Kind: TileHazard}
			case ch == glyphSpawn:
				lvl.Cells[y][x] = Cell{Kind: TileSpawn}
				lvl.Spawns = append(lvl.Spawns, Point{X: x, Y: y})
			case ch >= '1' && ch <= '9':
				lvl.Cells[y][x] = Cell{Kind: TilePath, Phase: int(ch - '0')}
				// Only the first tile of a patrol route carries an enemy.
				if ch == '1' {
					lvl.Enemies = append(lvl.Enemies, Point{X: x, Y: y})
				}
			default:
				return nil, fmt.Errorf("%w: unknown tile %q at %d,%d", ErrMalformedLevel, ch, x, y)
			}
		}
	}

	if len(lvl.Spawns) == 0 {
		return nil, fmt.Errorf("%w: no player spawn", ErrMalformedLevel)
	}
	return lvl, nil
}
