package review

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store reads and writes review data in a SQLite database. The schema is
// created on open, so pointing it at a fresh file (or ":memory:" in
// tests) just works.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the review database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL improves concurrent read behavior
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reviews (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			mall_id      TEXT NOT NULL,
			shop_id      TEXT NOT NULL,
			text         TEXT NOT NULL,
			rating       INTEGER NOT NULL,
			created_at   TEXT NOT NULL,
			image_exists INTEGER NOT NULL DEFAULT 0,
			display      INTEGER NOT NULL DEFAULT 1,
			is_deleted   INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_shop
			ON reviews(mall_id, shop_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS recommended_reviews (
			review_id  INTEGER NOT NULL,
			mall_id    TEXT NOT NULL,
			shop_id    TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			summary    TEXT NOT NULL DEFAULT '',
			score      REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			PRIMARY KEY (review_id, mall_id, shop_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate review schema: %w", err)
		}
	}
	return nil
}

const selectColumns = `id, text, rating, created_at, image_exists`

// RecentReviews returns the newest displayed reviews for a shop.
func (s *Store) RecentReviews(ctx context.Context, mallID, shopID string, limit int) ([]Review, error) {
	return s.queryReviews(ctx, `
		SELECT `+selectColumns+`
		FROM reviews
		WHERE mall_id = ? AND shop_id = ? AND display = 1 AND is_deleted = 0
		ORDER BY created_at DESC
		LIMIT ?
	`, mallID, shopID, limit)
}

// HighRatedReviews returns reviews at or above minRating, best first.
func (s *Store) HighRatedReviews(ctx context.Context, mallID, shopID string, minRating, limit int) ([]Review, error) {
	return s.queryReviews(ctx, `
		SELECT `+selectColumns+`
		FROM reviews
		WHERE mall_id = ? AND shop_id = ? AND display = 1 AND is_deleted = 0
		  AND rating >= ?
		ORDER BY rating DESC, created_at DESC
		LIMIT ?
	`, mallID, shopID, minRating, limit)
}

// ReviewsWithImages returns the newest displayed reviews carrying images.
func (s *Store) ReviewsWithImages(ctx context.Context, mallID, shopID string, limit int) ([]Review, error) {
	return s.queryReviews(ctx, `
		SELECT `+selectColumns+`
		FROM reviews
		WHERE mall_id = ? AND shop_id = ? AND display = 1 AND is_deleted = 0
		  AND image_exists = 1
		ORDER BY created_at DESC
		LIMIT ?
	`, mallID, shopID, limit)
}

// CountByRating returns the number of displayed reviews per rating value.
func (s *Store) CountByRating(ctx context.Context, mallID, shopID string) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rating, COUNT(*)
		FROM reviews
		WHERE mall_id = ? AND shop_id = ? AND display = 1 AND is_deleted = 0
		GROUP BY rating
	`, mallID, shopID)
	if err != nil {
		return nil, fmt.Errorf("count by rating: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan rating count: %w", err)
		}
		counts[rating] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating counts: %w", err)
	}
	return counts, nil
}

// AddReview inserts a review and returns its assigned id. Used by tests
// and the import path of the CLI.
func (s *Store) AddReview(ctx context.Context, mallID, shopID string, r Review) (int64, error) {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (mall_id, shop_id, text, rating, created_at, image_exists)
		VALUES (?, ?, ?, ?, ?, ?)
	`, mallID, shopID, r.Text, r.Rating, createdAt.Format(time.RFC3339Nano), r.ImageExists)
	if err != nil {
		return 0, fmt.Errorf("insert review: %w", err)
	}
	return res.LastInsertId()
}

// SaveRecommended upserts the selection results for a shop, replacing any
// previous recommendation for the same review.
func (s *Store) SaveRecommended(ctx context.Context, mallID, shopID string, selected []SelectedCandidate, extras map[int64]Recommended) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	saved := 0
	for _, c := range selected {
		extra := extras[c.ID]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO recommended_reviews (review_id, mall_id, shop_id, title, summary, score, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(review_id, mall_id, shop_id) DO UPDATE SET
				title      = excluded.title,
				summary    = excluded.summary,
				score      = excluded.score,
				created_at = excluded.created_at
		`, c.ID, mallID, shopID, extra.Title, extra.Summary, c.Score, now)
		if err != nil {
			return 0, fmt.Errorf("save recommended review %d: %w", c.ID, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save: %w", err)
	}
	return saved, nil
}

// Recommended returns the persisted selection for a shop, best first.
func (s *Store) Recommended(ctx context.Context, mallID, shopID string) ([]Recommended, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT review_id, title, summary
		FROM recommended_reviews
		WHERE mall_id = ? AND shop_id = ?
		ORDER BY score DESC
	`, mallID, shopID)
	if err != nil {
		return nil, fmt.Errorf("load recommended: %w", err)
	}
	defer rows.Close()

	var out []Recommended
	for rows.Next() {
		var r Recommended
		if err := rows.Scan(&r.ID, &r.Title, &r.Summary); err != nil {
			return nil, fmt.Errorf("scan recommended: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommended: %w", err)
	}
	return out, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) queryReviews(ctx context.Context, query string, args ...any) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Text, &r.Rating, &createdAt, &r.ImageExists); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}
