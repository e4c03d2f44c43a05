package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"track-duel/server/rank"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNotFound is returned when a track id does not exist.
var ErrNotFound = errors.New("store: track not found")

type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context) { db.Pool.Close() }

func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

/* -----------------------------
   rank.Source implementation
------------------------------*/

// Items runs a ranking query and returns the matching tracks in query order.
func (db *DB) Items(ctx context.Context, q rank.Query) ([]rank.Item, error) {
	sql, args := buildTrackSQL("SELECT "+trackColumns+" FROM tracks", q, time.Now(), false)
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var out []rank.Item
	for rows.Next() {
		it, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Count returns how many tracks match q, ignoring limit and offset.
func (db *DB) Count(ctx context.Context, q rank.Query) (int, error) {
	sql, args := buildTrackSQL("SELECT count(*) FROM tracks", q, time.Now(), true)
	var n int
	if err := db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return n, nil
}

// ItemByID fetches one track with its current score.
func (db *DB) ItemByID(ctx context.Context, id int64) (rank.Item, error) {
	row := db.QueryRow(ctx, "SELECT "+trackColumns+" FROM tracks WHERE id = $1", id)
	it, err := scanTrack(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return rank.Item{}, ErrNotFound
	}
	return it, err
}

func scanTrack(row pgx.Row) (rank.Item, error) {
	var it rank.Item
	err := row.Scan(&it.ID, &it.Title, &it.Artist, &it.Album, &it.Score, &it.RatingCount, &it.LastRatedAt)
	if err != nil {
		return rank.Item{}, err
	}
	return it, nil
}

/* -----------------------------
   Write path
------------------------------*/

// ApplyRating persists one verdict atomically: both scores, both rating
// counters and last-rated stamps, plus a history row. The strategy's
// bookkeeping must only be updated after this succeeds.
func (db *DB) ApplyRating(ctx context.Context, sessionID uuid.UUID, winnerID, loserID int64, draw bool, winnerScore, loserScore float64) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const upd = `
		UPDATE tracks
		   SET score = $2,
		       rating_count = rating_count + 1,
		       last_rated_at = now()
		 WHERE id = $1`
	if _, err := tx.Exec(ctx, upd, winnerID, winnerScore); err != nil {
		return fmt.Errorf("update winner: %w", err)
	}
	if _, err := tx.Exec(ctx, upd, loserID, loserScore); err != nil {
		return fmt.Errorf("update loser: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO ratings(session_id, winner_id, loser_id, draw, winner_score, loser_score)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, sessionID, winnerID, loserID, draw, winnerScore, loserScore); err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}
	return tx.Commit(ctx)
}

// SeedTrack inserts a track if it is not already present and returns its id.
func (db *DB) SeedTrack(ctx context.Context, title, artist, album string) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
		INSERT INTO tracks(title, artist, album)
		VALUES ($1,$2,$3)
		ON CONFLICT (title, artist, album) DO UPDATE SET title = EXCLUDED.title
		RETURNING id
	`, title, artist, album).Scan(&id)
	return id, err
}

/* -----------------------------
   Leaderboard
------------------------------*/

type LeaderboardRow struct {
	rank.Item
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

// Leaderboard returns the top rated tracks with their career verdict tallies
// from the ratings history.
func (db *DB) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
		SELECT t.id, t.title, t.artist, t.album, t.score, t.rating_count, t.last_rated_at,
		       COALESCE(w.ct, 0) AS wins,
		       COALESCE(l.ct, 0) AS losses,
		       COALESCE(d.ct, 0) AS draws
		  FROM tracks t
		  LEFT JOIN (SELECT winner_id AS id, count(*) AS ct FROM ratings WHERE NOT draw GROUP BY winner_id) w ON w.id = t.id
		  LEFT JOIN (SELECT loser_id  AS id, count(*) AS ct FROM ratings WHERE NOT draw GROUP BY loser_id)  l ON l.id = t.id
		  LEFT JOIN (
		        SELECT id, count(*) AS ct FROM (
		            SELECT winner_id AS id FROM ratings WHERE draw
		            UNION ALL
		            SELECT loser_id FROM ratings WHERE draw
		        ) dd GROUP BY id
		  ) d ON d.id = t.id
		 WHERE t.score IS NOT NULL
		 ORDER BY t.score DESC, t.rating_count DESC, t.id
		 LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var out []LeaderboardRow
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Artist, &r.Album, &r.Score, &r.RatingCount, &r.LastRatedAt,
			&r.Wins, &r.Losses, &r.Draws); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
