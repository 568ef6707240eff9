package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded goose migrations.
func (s *SQLiteDB) Migrate() error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// isUniqueViolation checks for a SQLite unique constraint failure
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser inserts a new account. Returns ErrDuplicate if the username is
// taken.
func (s *SQLiteDB) CreateUser(user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
	}
	return err
}

// GetUser retrieves a user by id
func (s *SQLiteDB) GetUser(id string) (*User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id))
}

// GetUserByName retrieves a user by username
func (s *SQLiteDB) GetUserByName(username string) (*User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username))
}

func (s *SQLiteDB) scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateSession inserts a login session
func (s *SQLiteDB) CreateSession(session *Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (token, user_id, csrf_token, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		session.Token, session.UserID, session.CSRFToken, session.CreatedAt, session.ExpiresAt,
	)
	return err
}

// GetSession retrieves a session by token, expired or not. Expiry policy
// belongs to the caller so it can distinguish "expired" from "unknown".
func (s *SQLiteDB) GetSession(token string) (*Session, error) {
	var session Session
	err := s.db.QueryRow(
		`SELECT token, user_id, csrf_token, created_at, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&session.Token, &session.UserID, &session.CSRFToken, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session (logout)
func (s *SQLiteDB) DeleteSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// PurgeExpiredSessions deletes sessions past their expiry and reports how
// many were removed.
func (s *SQLiteDB) PurgeExpiredSessions(now time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateLevel inserts a new draft level
func (s *SQLiteDB) CreateLevel(level *Level) error {
	if level.ID == "" {
		level.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if level.CreatedAt.IsZero() {
		level.CreatedAt = now
	}
	level.UpdatedAt = now

	_, err := s.db.Exec(
		`INSERT INTO levels (id, owner_id, title, grid, published, par_moves, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		level.ID, level.OwnerID, level.Title, level.Grid, boolToInt(level.Published),
		level.ParMoves, level.CreatedAt, level.UpdatedAt,
	)
	return err
}

// UpdateLevel rewrites a level's title and grid
func (s *SQLiteDB) UpdateLevel(level *Level) error {
	level.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE levels SET title = ?, grid = ?, updated_at = ? WHERE id = ?`,
		level.Title, level.Grid, level.UpdatedAt, level.ID,
	)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// DeleteLevel removes a level and its scores
func (s *SQLiteDB) DeleteLevel(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM scores WHERE level_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM levels WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// GetLevel retrieves a level by id
func (s *SQLiteDB) GetLevel(id string) (*Level, error) {
	var level Level
	var published int
	err := s.db.QueryRow(
		`SELECT id, owner_id, title, grid, published, par_moves, created_at, updated_at
		 FROM levels WHERE id = ?`, id,
	).Scan(&level.ID, &level.OwnerID, &level.Title, &level.Grid, &published,
		&level.ParMoves, &level.CreatedAt, &level.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	level.Published = published != 0
	return &level, nil
}

// PublishLevel marks a level published and records the proven par
func (s *SQLiteDB) PublishLevel(id string, parMoves int) error {
	res, err := s.db.Exec(
		`UPDATE levels SET published = 1, par_moves = ?, updated_at = ? WHERE id = ?`,
		parMoves, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// ListPublishedLevels returns a page of published levels, newest first
func (s *SQLiteDB) ListPublishedLevels(query LevelsQuery) (*LevelsList, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PerPage < 1 || query.PerPage > 100 {
		query.PerPage = 20
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM levels WHERE published = 1`).Scan(&total); err != nil {
		return nil, err
	}

	offset := (query.Page - 1) * query.PerPage
	rows, err := s.db.Query(
		`SELECT id, owner_id, title, grid, published, par_moves, created_at, updated_at
		 FROM levels WHERE published = 1
		 ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		query.PerPage, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := &LevelsList{
		Levels:     []Level{},
		TotalCount: total,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: (total + query.PerPage - 1) / query.PerPage,
	}
	for rows.Next() {
		var level Level
		var published int
		if err := rows.Scan(&level.ID, &level.OwnerID, &level.Title, &level.Grid, &published,
			&level.ParMoves, &level.CreatedAt, &level.UpdatedAt); err != nil {
			return nil, err
		}
		level.Published = published != 0
		list.Levels = append(list.Levels, level)
	}
	return list, rows.Err()
}

// UpsertBestScore records a verified score, keeping only the lowest move
// count per (level, user). Returns true when the row was inserted or
// improved.
func (s *SQLiteDB) UpsertBestScore(score *Score) (bool, error) {
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO scores (level_id, user_id, moves, replay, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(level_id, user_id) DO UPDATE SET
		   moves = excluded.moves,
		   replay = excluded.replay,
		   created_at = excluded.created_at
		 WHERE excluded.moves < scores.moves`,
		score.LevelID, score.UserID, score.Moves, score.Replay, score.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetBestScore retrieves a user's best score on a level
func (s *SQLiteDB) GetBestScore(levelID, userID string) (*Score, error) {
	var score Score
	err := s.db.QueryRow(
		`SELECT id, level_id, user_id, moves, replay, created_at
		 FROM scores WHERE level_id = ? AND user_id = ?`, levelID, userID,
	).Scan(&score.ID, &score.LevelID, &score.UserID, &score.Moves, &score.Replay, &score.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}

// TopScores returns the leaderboard for a level: lowest move counts first,
// earlier submissions breaking ties.
func (s *SQLiteDB) TopScores(levelID string, limit int) ([]LeaderboardEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT u.username, sc.moves, sc.created_at
		 FROM scores sc JOIN users u ON u.id = sc.user_id
		 WHERE sc.level_id = ?
		 ORDER BY sc.moves, sc.created_at LIMIT ?`,
		levelID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []LeaderboardEntry{}
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Moves, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
