// Package sim is the replay verification engine: a deterministic re-simulator
// that replays an encoded move sequence against a level and decides whether
// it actually clears it, and at which move. Score submission and level
// publishing trust nothing the client claims, only what Verify recomputes.
package sim

// Patrol phases run 1..maxPhase and cycle. A vacated patrol cell is rewritten
// to phaseMirror-phase, the complementary position on the same loop, so the
// return trip reads the route backwards without any explicit path data.
const (
	maxPhase    = 17
	phaseMirror = 18
)

// Status is the outcome of a single tick.
type Status uint8

const (
	// StatusPlaying is the only non-terminal status; the loop advances.
	StatusPlaying Status = iota
	// StatusCleared means every player reached the goal.
	StatusCleared
	// StatusReset means the level failed: a player touched a hazard or an
	// enemy.
	StatusReset
	// StatusInvalid means an unrecognized move symbol reached the engine.
	// DecodeMoves already rejects those, so this is defensive only.
	StatusInvalid
)

// Verdict is the engine's only output: whether the replay clears the level,
// and the 1-based index of the decisive move (the full replay length when the
// sequence ran out undecided).
type Verdict struct {
	OK    bool `json:"ok"`
	Moves int  `json:"moves"`
}

// actor is a player or enemy in a stable slot. Slots are never reordered or
// compacted; a despawned player just flips alive off.
type actor struct {
	pos   Point
	alive bool
}

// simulation is the mutable world for one verification call. The phase
// overlay is a private copy because enemies rewrite patrol values as they
// move; the Level itself stays untouched and shareable.
type simulation struct {
	level   *Level
	phase   [][]int
	players []actor
	enemies []actor
	total   int
	escaped int
}

func newSimulation(lvl *Level) *simulation {
	s := &simulation{
		level: lvl,
		phase: make([][]int, lvl.Height),
		total: len(lvl.Spawns),
	}
	for y := 0; y < lvl.Height; y++ {
		s.phase[y] = make([]int, lvl.Width)
		for x := 0; x < lvl.Width; x++ {
			s.phase[y][x] = lvl.Cells[y][x].Phase
		}
	}
	for _, p := range lvl.Spawns {
		s.players = append(s.players, actor{pos: p, alive: true})
	}
	for _, p := range lvl.Enemies {
		s.enemies = append(s.enemies, actor{pos: p, alive: true})
	}
	return s
}

// Verify decodes a replay, parses a level, and mechanically replays the moves
// to a verdict. It is a pure function of its inputs: every call builds and
// discards its own state, so concurrent calls need no synchronization.
func Verify(levelText, replay string) (Verdict, error) {
	moves, err := DecodeMoves(replay)
	if err != nil {
		return Verdict{}, err
	}
	lvl, err := ParseLevel(levelText)
	if err != nil {
		return Verdict{}, err
	}
	return Run(lvl, moves), nil
}

// Run replays an already-decoded move sequence against a parsed level.
func Run(lvl *Level, moves string) Verdict {
	s := newSimulation(lvl)
	for i := 0; i < len(moves); i++ {
		switch s.step(moves[i]) {
		case StatusCleared:
			return Verdict{OK: true, Moves: i + 1}
		case StatusReset, StatusInvalid:
			return Verdict{OK: false, Moves: i + 1}
		}
	}
	// Exhausted: the sequence ran out with players still on the board.
	return Verdict{OK: false, Moves: len(moves)}
}

// step advances the world by one tick: the player phase applies the move to
// every live player, then the enemy phase advances every patrol. The overlap
// checks look redundant but their count and placement decide which move index
// a Reset reports; recorded replays depend on that, so they stay exactly
// where they are.
func (s *simulation) step(move byte) Status {
	if s.anyPlayerOnEnemy() {
		return StatusReset
	}

	// Player phase. Slots are visited in creation order; a slot despawned
	// earlier this tick is skipped.
	for i := range s.players {
		p := &s.players[i]
		if !p.alive {
			continue
		}
		var dx, dy int
		switch move {
		case 'u':
			dy = -1
		case 'd':
			dy = 1
		case 'l':
			dx = -1
		case 'r':
			dx = 1
		default:
			return StatusInvalid
		}
		tx, ty := p.pos.X+dx, p.pos.Y+dy
		switch {
		case !s.inBounds(tx, ty):
			// Walking off the grid despawns the player silently. Not a
			// failure, but one fewer player who can reach the goal.
			p.alive = false
			continue
		case s.walkable(tx, ty) && !s.playerAt(tx, ty):
			p.pos = Point{X: tx, Y: ty}
		case s.kindAt(tx, ty) == TileGoal:
			p.alive = false
			s.escaped++
			if s.escaped == s.total {
				return StatusCleared
			}
			continue
		case s.kindAt(tx, ty) == TileHazard:
			return StatusReset
		default:
			// Bump: wall, or another live player holds the target. The
			// player stays put this step.
		}
		if s.enemyAt(p.pos.X, p.pos.Y) {
			return StatusReset
		}
	}

	// Enemy phase.
	if s.anyPlayerOnEnemy() {
		return StatusReset
	}
	for i := range s.enemies {
		s.enemyStep(&s.enemies[i])
		// A later enemy can end the run even though earlier ones were clean.
		if s.anyPlayerOnEnemy() {
			return StatusReset
		}
	}
	if s.anyPlayerOnEnemy() {
		return StatusReset
	}
	return StatusPlaying
}

// enemyStep advances one enemy along its patrol route. The route is the
// terrain itself: the enemy sits on phase n and scans its 3x3 neighborhood,
// rows then columns, for the first cell holding phase n+1. On a match it
// writes the mirror value into the cell it leaves and takes the step; with no
// match it stays put. At phase 17 the sought value falls back to 1, but only
// after each comparison, so the first scanned neighbor is still checked
// against 18. Legacy replays depend on that ordering.
func (s *simulation) enemyStep(e *actor) {
	phase := s.phaseAt(e.pos.X, e.pos.Y)
	if phase == 0 {
		return
	}
	target := phase + 1
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := e.pos.X+dx, e.pos.Y+dy
			if s.inBounds(nx, ny) && s.phaseAt(nx, ny) == target {
				s.phase[e.pos.Y][e.pos.X] = phaseMirror - phase
				e.pos = Point{X: nx, Y: ny}
				return
			}
			if phase == maxPhase {
				target = 1
			}
		}
	}
}

func (s *simulation) inBounds(x, y int) bool {
	return x >= 0 && x < s.level.Width && y >= 0 && y < s.level.Height
}

func (s *simulation) kindAt(x, y int) TileKind {
	return s.level.Cells[y][x].Kind
}

// phaseAt reads the mutable patrol overlay, not the authored level.
func (s *simulation) phaseAt(x, y int) int {
	return s.phase[y][x]
}

// walkable reports whether a player may stand on the cell: empty terrain, a
// spawn tile, or any patrol-path tile. Goals, hazards and walls are handled
// by their own branches.
func (s *simulation) walkable(x, y int) bool {
	switch s.kindAt(x, y) {
	case TileEmpty, TileSpawn, TilePath:
		return true
	}
	return false
}

func (s *simulation) playerAt(x, y int) bool {
	for i := range s.players {
		if s.players[i].alive && s.players[i].pos.X == x && s.players[i].pos.Y == y {
			return true
		}
	}
	return false
}

func (s *simulation) enemyAt(x, y int) bool {
	for i := range s.enemies {
		if s.enemies[i].pos.X == x && s.enemies[i].pos.Y == y {
			return true
		}
	}
	return false
}

func (s *simulation) anyPlayerOnEnemy() bool {
	for i := range s.players {
		if s.players[i].alive && s.enemyAt(s.players[i].pos.X, s.players[i].pos.Y) {
			return true
		}
	}
	return false
}
