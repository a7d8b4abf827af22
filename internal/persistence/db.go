// Package persistence provides SQLite-based save storage and the round journal.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/brood/internal/game"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("key not found")

// DB wraps a SQLite connection for save persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	if path == ":memory:" {
		dsn = path
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would get its own empty database.
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS rounds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		game TEXT NOT NULL,
		round INTEGER NOT NULL,
		population INTEGER NOT NULL,
		evolution_points INTEGER NOT NULL,
		level_index INTEGER NOT NULL,
		cycle INTEGER NOT NULL,
		survived INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		mitigated INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rounds_game ON rounds(game, round);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Put stores a key-value pair, replacing any previous value.
func (db *DB) Put(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO saves (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get retrieves a value. A missing key returns ErrNotFound.
func (db *DB) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.GetContext(ctx, &value, "SELECT value FROM saves WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return value, err
}

// Keys lists stored keys with a prefix, oldest update first.
func (db *DB) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := db.conn.SelectContext(ctx, &keys,
		"SELECT key FROM saves WHERE key LIKE ? ESCAPE '\\' ORDER BY updated_at, key",
		escapeLike(prefix)+"%",
	)
	return keys, err
}

// AppendRound writes one journal row.
func (db *DB) AppendRound(ctx context.Context, gameID string, e game.JournalEntry) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO rounds
		(game, round, population, evolution_points, level_index, cycle, survived, deaths, mitigated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gameID, e.Round, e.Population, e.EvolutionPoints, e.LevelIndex, e.Cycle,
		e.Survived, e.Deaths, e.Mitigated,
	)
	if err != nil {
		return fmt.Errorf("insert round %d for %s: %w", e.Round, gameID, err)
	}
	return nil
}

// RecentRounds returns up to limit journal rows for a game, newest first.
func (db *DB) RecentRounds(ctx context.Context, gameID string, limit int) ([]game.JournalEntry, error) {
	var rows []game.JournalEntry
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT round, population, evolution_points, level_index, cycle, survived, deaths, mitigated
		FROM rounds WHERE game = ? ORDER BY id DESC LIMIT ?`,
		gameID, limit,
	)
	return rows, err
}

// DeleteGame removes a game's save and journal in one transaction.
func (db *DB) DeleteGame(ctx context.Context, gameID string) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM saves WHERE key = ?", game.SaveKey(gameID)); err != nil {
		return fmt.Errorf("delete save: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM rounds WHERE game = ?", gameID); err != nil {
		return fmt.Errorf("delete rounds: %w", err)
	}
	return tx.Commit()
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
