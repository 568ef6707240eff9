package sim

import (
	"errors"
	"testing"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("#####\n#P !#\n#####\n")
	if err != nil {
		t.Fatalf("ParseLevel returned error: %v", err)
	}
	if lvl.Width != 5 || lvl.Height != 3 {
		t.Fatalf("expected 5x3 grid, got %dx%d", lvl.Width, lvl.Height)
	}
	if len(lvl.Spawns) != 1 {
		t.Fatalf("expected 1 spawn, got %d", len(lvl.Spawns))
	}
	if lvl.Spawns[0] != (Point{X: 1, Y: 1}) {
		t.Errorf("spawn at %+v, want {1 1}", lvl.Spawns[0])
	}
	if lvl.Cells[1][3].Kind != TileGoal {
		t.Errorf("expected goal at 3,1")
	}
	if len(lvl.Enemies) != 0 {
		t.Errorf("expected no enemies, got %d", len(lvl.Enemies))
	}
}

func TestParseLevelActorOrder(t *testing.T) {
	// Ids are assigned row-major, left to right.
	lvl, err := ParseLevel("#####\n#P1P#\n#1 !#\n#####")
	if err != nil {
		t.Fatalf("ParseLevel returned error: %v", err)
	}
	wantSpawns := []Point{{X: 1, Y: 1}, {X: 3, Y: 1}}
	wantEnemies := []Point{{X: 2, Y: 1}, {X: 1, Y: 2}}
	for i, p := range wantSpawns {
		if lvl.Spawns[i] != p {
			t.Errorf("spawn %d at %+v, want %+v", i, lvl.Spawns[i], p)
		}
	}
	for i, p := range wantEnemies {
		if lvl.Enemies[i] != p {
			t.Errorf("enemy %d at %+v, want %+v", i, lvl.Enemies[i], p)
		}
	}
}

func TestParseLevelDigitsAreTerrain(t *testing.T) {
	// Only value-1 tiles spawn enemies; 2-9 are plain walkable terrain.
	lvl, err := ParseLevel("#####\n#P29#\n#####")
	if err != nil {
		t.Fatalf("ParseLevel returned error: %v", err)
	}
	if len(lvl.Enemies) != 0 {
		t.Fatalf("expected no enemies, got %d", len(lvl.Enemies))
	}
	if c := lvl.Cells[1][2]; c.Kind != TilePath || c.Phase != 2 {
		t.Errorf("expected path tile phase 2, got kind=%d phase=%d", c.Kind, c.Phase)
	}
	if c := lvl.Cells[1][3]; c.Kind != TilePath || c.Phase != 9 {
		t.Errorf("expected path tile phase 9, got kind=%d phase=%d", c.Kind, c.Phase)
	}
}

func TestParseLevelRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"blank", "\n"},
		{"too narrow", "##\n#P\n##"},
		{"ragged rows", "#####\n#P  !#\n#####"},
		{"no spawn", "#####\n#  !#\n#####"},
		{"unknown tile", "#####\n#P?!#\n#####"},
		{"zero digit", "#####\n#P0!#\n#####"},
		{"interior blank row", "#####\n\n#P !#\n#####"},
	}

	for _, tt := range tests {
		if _, err := ParseLevel(tt.text); !errors.Is(err, ErrMalformedLevel) {
			t.Errorf("%s: ParseLevel = %v, want ErrMalformedLevel", tt.name, err)
		}
	}
}

func TestParseLevelCRLF(t *testing.T) {
	lvl, err := ParseLevel("#####\r\n#P !#\r\n#####\r\n")
	if err != nil {
		t.Fatalf("ParseLevel returned error: %v", err)
	}
	if lvl.Width != 5 || lvl.Height != 3 {
		t.Errorf("expected 5x3 grid, got %dx%d", lvl.Width, lvl.Height)
	}
}
