package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tradelens/tradelens/internal/models"
	"github.com/tradelens/tradelens/internal/storage/sqlite"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidCredentials indicates a failed username/password check.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Store persists users and analysis history in sqlite.
type Store struct {
	db *sql.DB
}

// AnalysisRecord is one row of analysis history.
type AnalysisRecord struct {
	ID             int64     `json:"id"`
	Symbol         string    `json:"symbol"`
	Recommendation string    `json:"recommendation"`
	Confidence     float64   `json:"confidence"`
	Trend          string    `json:"trend"`
	MeanSentiment  float64   `json:"mean_sentiment"`
	ChangePercent  float64   `json:"change_percent"`
	LatestPrice    string    `json:"latest_price"`
	Result         string    `json:"result,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.initTables(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS analyses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			recommendation TEXT NOT NULL,
			confidence REAL NOT NULL,
			trend TEXT NOT NULL,
			mean_sentiment REAL NOT NULL,
			change_percent REAL NOT NULL,
			latest_price TEXT NOT NULL,
			result_json TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_symbol ON analyses(symbol, id);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("init tables: %w", err)
		}
	}
	return nil
}

// UpsertUser creates a user or resets an existing user's password.
func (s *Store) UpsertUser(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash) VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET password_hash = excluded.password_hash
	`, username, string(hash))
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", username, err)
	}
	return nil
}

// VerifyUser checks a username/password pair against the users table.
func (s *Store) VerifyUser(ctx context.Context, username, password string) error {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("lookup user %s: %w", username, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// SaveAnalysis appends one analysis result to the history table.
func (s *Store) SaveAnalysis(ctx context.Context, result *models.AnalysisResult) (int64, error) {
	if result == nil || result.Advice == nil {
		return 0, errors.New("analysis result with advice is required")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("marshal analysis result: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses
		(symbol, recommendation, confidence, trend, mean_sentiment, change_percent, latest_price, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.Symbol,
		string(result.Advice.Recommendation),
		result.Advice.Confidence,
		string(result.Advice.Trend),
		result.Advice.MeanSentiment,
		result.ChangePercent,
		result.LatestPrice.String(),
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("insert analysis for %s: %w", result.Symbol, err)
	}
	return res.LastInsertId()
}

// GetAnalysis loads one history row including the full result payload.
func (s *Store) GetAnalysis(ctx context.Context, id int64) (*AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, recommendation, confidence, trend, mean_sentiment,
		       change_percent, latest_price, result_json, created_at
		FROM analyses WHERE id = ?
	`, id)

	var rec AnalysisRecord
	var resultJSON sql.NullString
	err := row.Scan(&rec.ID, &rec.Symbol, &rec.Recommendation, &rec.Confidence,
		&rec.Trend, &rec.MeanSentiment, &rec.ChangePercent, &rec.LatestPrice,
		&resultJSON, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load analysis %d: %w", id, err)
	}
	rec.Result = resultJSON.String
	return &rec, nil
}

// ListAnalyses returns history rows newest first. A symbol narrows the
// listing; beforeID pages backwards through the table (0 starts from the
// newest row).
func (s *Store) ListAnalyses(ctx context.Context, symbol string, limit int, beforeID int64) ([]*AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if beforeID <= 0 {
		beforeID = int64(^uint64(0) >> 1) // max int64
	}

	query := `
		SELECT id, symbol, recommendation, confidence, trend, mean_sentiment,
		       change_percent, latest_price, created_at
		FROM analyses
		WHERE id < ?`
	args := []interface{}{beforeID}
	if symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var records []*AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Recommendation, &rec.Confidence,
			&rec.Trend, &rec.MeanSentiment, &rec.ChangePercent, &rec.LatestPrice,
			&rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
