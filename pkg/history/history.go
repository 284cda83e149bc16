package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AccelByte/extend-stream-duels/pkg/game"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Outcome is one finished session.
type Outcome struct {
	SessionID    string             `json:"sessionId"`
	GameType     string             `json:"gameType"`
	Players      [2]game.Player     `json:"players"`
	WinnerID     string             `json:"winnerId,omitempty"`
	Draw         bool               `json:"draw"`
	Reason       string             `json:"reason"`
	StartedAt    time.Time          `json:"startedAt"`
	EndedAt      time.Time          `json:"endedAt"`
	RatingDeltas map[string]float64 `json:"ratingDeltas,omitempty"`
}

// PlayerResult is one row of a player's recent history.
type PlayerResult struct {
	SessionID   string    `json:"sessionId"`
	GameType    string    `json:"gameType"`
	OpponentID  string    `json:"opponentId"`
	Result      string    `json:"result"` // win, loss, draw or the end reason when nobody won
	Reason      string    `json:"reason"`
	RatingDelta float64   `json:"ratingDelta"`
	EndedAt     time.Time `json:"endedAt"`
}

// Recorder appends finished sessions to the history log.
type Recorder interface {
	Record(ctx context.Context, o *Outcome) error
}

// Store is the SQLite-backed history log.
type Store struct {
	db *sql.DB
}

// New opens/creates a SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&cache=shared", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS outcomes (
			session_id TEXT PRIMARY KEY,
			game_type TEXT NOT NULL,
			winner_id TEXT NOT NULL DEFAULT '',
			draw INTEGER NOT NULL DEFAULT 0,
			reason TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS outcome_players (
			session_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			side TEXT NOT NULL,
			synthetic INTEGER NOT NULL DEFAULT 0,
			rating_delta REAL NOT NULL DEFAULT 0,
			PRIMARY KEY(session_id, player_id),
			FOREIGN KEY(session_id) REFERENCES outcomes(session_id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_outcome_players_player ON outcome_players(player_id);`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_ended ON outcomes(ended_at DESC);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Record stores an outcome. Recording the same session twice is a no-op.
func (s *Store) Record(ctx context.Context, o *Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO outcomes (session_id, game_type, winner_id, draw, reason, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.SessionID, o.GameType, o.WinnerID, o.Draw, o.Reason, o.StartedAt.UTC(), o.EndedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert outcome %s: %w", o.SessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		logrus.Debugf("outcome %s already recorded", o.SessionID)
		return nil
	}

	for _, p := range o.Players {
		if p.ID == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO outcome_players (session_id, player_id, display_name, side, synthetic, rating_delta)
			VALUES (?, ?, ?, ?, ?, ?)`,
			o.SessionID, p.ID, p.DisplayName, string(p.Side), p.Synthetic, o.RatingDeltas[p.ID])
		if err != nil {
			return fmt.Errorf("failed to insert outcome player %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// RecentForPlayer lists the player's latest results, newest first.
func (s *Store) RecentForPlayer(ctx context.Context, playerID string, limit int) ([]PlayerResult, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT o.session_id, o.game_type, o.winner_id, o.draw, o.reason, o.ended_at,
		       me.rating_delta, COALESCE(opp.player_id, '')
		FROM outcome_players me
		JOIN outcomes o ON o.session_id = me.session_id
		LEFT JOIN outcome_players opp ON opp.session_id = me.session_id AND opp.player_id <> me.player_id
		WHERE me.player_id = ?
		ORDER BY o.ended_at DESC
		LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", playerID, err)
	}
	defer rows.Close()

	var out []PlayerResult
	for rows.Next() {
		var (
			r        PlayerResult
			winnerID string
			draw     bool
		)
		if err := rows.Scan(&r.SessionID, &r.GameType, &winnerID, &draw, &r.Reason, &r.EndedAt, &r.RatingDelta, &r.OpponentID); err != nil {
			return nil, err
		}
		switch {
		case draw:
			r.Result = "draw"
		case winnerID == playerID:
			r.Result = "win"
		case winnerID != "":
			r.Result = "loss"
		default:
			r.Result = r.Reason
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of recorded outcomes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outcomes`).Scan(&n)
	return n, err
}
