package store

import (
	"errors"
	"time"
)

// Sentinel errors returned by DB implementations. Callers branch on these to
// pick HTTP status codes.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// DB represents the database interface
type DB interface {
	Close() error
	Migrate() error

	CreateUser(user *User) error
	GetUser(id string) (*User, error)
	GetUserByName(username string) (*User, error)

	CreateSession(session *Session) error
	GetSession(token string) (*Session, error)
	DeleteSession(token string) error
	PurgeExpiredSessions(now time.Time) (int64, error)

	CreateLevel(level *Level) error
	UpdateLevel(level *Level) error
	DeleteLevel(id string) error
	GetLevel(id string) (*Level, error)
	PublishLevel(id string, parMoves int) error
	ListPublishedLevels(query LevelsQuery) (*LevelsList, error)

	UpsertBestScore(score *Score) (bool, error)
	GetBestScore(levelID, userID string) (*Score, error)
	TopScores(levelID string, limit int) ([]LeaderboardEntry, error)
}

// User is a registered account. PasswordHash is a bcrypt hash and never
// leaves the store layer.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Session is a server-side login session. Token is the opaque cookie value;
// CSRFToken must accompany every mutating request on this session.
type Session struct {
	Token     string    `json:"-" db:"token"`
	UserID    string    `json:"user_id" db:"user_id"`
	CSRFToken string    `json:"csrf_token" db:"csrf_token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// Level is a stored level. Grid holds the raw level text; ParMoves is the
// verified move count of the owner's proof replay, set on publish.
type Level struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Title     string    `json:"title" db:"title"`
	Grid      string    `json:"grid" db:"grid"`
	Published bool      `json:"published" db:"published"`
	ParMoves  int       `json:"par_moves" db:"par_moves"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Score is a player's best verified result on a level. Moves is always the
// engine's recomputed count, never a client claim; Replay is kept so the
// result stays re-verifiable.
type Score struct {
	ID        int64     `json:"id" db:"id"`
	LevelID   string    `json:"level_id" db:"level_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Moves     int       `json:"moves" db:"moves"`
	Replay    string    `json:"replay" db:"replay"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// LeaderboardEntry is one row of a level's leaderboard.
type LeaderboardEntry struct {
	Username  string    `json:"username" db:"username"`
	Moves     int       `json:"moves" db:"moves"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// LevelsQuery represents query parameters for listing published levels
type LevelsQuery struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

// LevelsList represents a paginated levels response
type LevelsList struct {
	Levels     []Level `json:"levels"`
	TotalCount int     `json:"totalCount"`
	Page       int     `json:"page"`
	PerPage    int     `json:"perPage"`
	TotalPages int     `json:"totalPages"`
}
