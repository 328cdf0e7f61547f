package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"ebay_watcher/internal/model"
	"ebay_watcher/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// AddKeyword inserts a normalized keyword. Returns ErrKeywordExists if the
// keyword is already present.
func (s *SQLite) AddKeyword(ctx context.Context, keyword string) error {
	kw := model.NormalizeKeyword(keyword)
	if kw == "" {
		return fmt.Errorf("keyword is empty")
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO keywords (keyword, created_at) VALUES (?, ?)`, kw, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrKeywordExists
		}
		return fmt.Errorf("insert keyword: %w", err)
	}
	return nil
}

// RemoveKeyword deletes a keyword and everything attached to it: seen
// entries and rules go with it so a re-added keyword starts fresh.
func (s *SQLite) RemoveKeyword(ctx context.Context, keyword string) error {
	kw := model.NormalizeKeyword(keyword)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM keywords WHERE keyword = ?`, kw)
	if err != nil {
		return fmt.Errorf("delete keyword: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrKeywordNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_listings WHERE keyword = ?`, kw); err != nil {
		return fmt.Errorf("delete seen_listings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rules WHERE keyword = ?`, kw); err != nil {
		return fmt.Errorf("delete rules: %w", err)
	}
	return tx.Commit()
}

// ListKeywords returns all keywords in insertion order.
func (s *SQLite) ListKeywords(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT keyword FROM keywords ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keywords []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

// IsSeen checks whether a listing has already been notified for a keyword.
func (s *SQLite) IsSeen(ctx context.Context, keyword, listingID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seen_listings WHERE keyword = ? AND listing_id = ?`,
		keyword, listingID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check seen: %w", err)
	}
	return count > 0, nil
}

// MarkSeen records a notified listing. Recording an existing pair is a no-op.
func (s *SQLite) MarkSeen(ctx context.Context, keyword, listingID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO seen_listings (keyword, listing_id, notified_at) VALUES (?, ?, ?)`,
		keyword, listingID, at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// PruneSeen deletes seen entries notified before olderThan and returns the
// number of rows removed.
func (s *SQLite) PruneSeen(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM seen_listings WHERE notified_at < ?`,
		olderThan.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune seen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// CreateRule inserts a new rule and populates its ID and CreatedAt.
func (s *SQLite) CreateRule(ctx context.Context, r *model.Rule) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rules (keyword, kind, value, created_at) VALUES (?, ?, ?, ?)`,
		model.NormalizeKeyword(r.Keyword), string(r.Kind), r.Value, now,
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	r.Keyword = model.NormalizeKeyword(r.Keyword)
	r.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListRules returns all rules for the given keyword.
func (s *SQLite) ListRules(ctx context.Context, keyword string) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, keyword, kind, value, created_at FROM rules WHERE keyword = ? ORDER BY id`,
		model.NormalizeKeyword(keyword),
	)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		var r model.Rule
		var kindStr, createdStr string
		if err := rows.Scan(&r.ID, &r.Keyword, &kindStr, &r.Value, &createdStr); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.Kind = model.RuleKind(kindStr)
		r.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// DeleteRule removes a rule by its ID.
func (s *SQLite) DeleteRule(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

// SaveCycleStatus replaces the current cycle status snapshot.
func (s *SQLite) SaveCycleStatus(ctx context.Context, st *model.CycleStatus) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cycle_status (id, started_at, finished_at, keywords_processed, new_listings_found, last_error)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   started_at = excluded.started_at,
		   finished_at = excluded.finished_at,
		   keywords_processed = excluded.keywords_processed,
		   new_listings_found = excluded.new_listings_found,
		   last_error = excluded.last_error`,
		st.StartedAt.UTC().Format(timeLayout), st.FinishedAt.UTC().Format(timeLayout),
		st.KeywordsProcessed, st.NewListingsFound, st.LastError,
	)
	if err != nil {
		return fmt.Errorf("save cycle status: %w", err)
	}
	return nil
}

// LoadCycleStatus returns the latest cycle status, or nil if none was saved.
func (s *SQLite) LoadCycleStatus(ctx context.Context) (*model.CycleStatus, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT started_at, finished_at, keywords_processed, new_listings_found, last_error
		 FROM cycle_status WHERE id = 1`,
	)
	var st model.CycleStatus
	var startedStr, finishedStr string
	err := row.Scan(&startedStr, &finishedStr, &st.KeywordsProcessed, &st.NewListingsFound, &st.LastError)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan cycle status: %w", err)
	}
	st.StartedAt, _ = time.Parse(timeLayout, startedStr)
	st.FinishedAt, _ = time.Parse(timeLayout, finishedStr)
	return &st, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
