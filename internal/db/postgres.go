package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fingoldin/sbrlmod/pkg/models"
)

// PostgresStore persists training runs so a dashboard or a later
// process can poll a run's status after the submitting HTTP request
// has returned.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	log.Println("Successfully connected to PostgreSQL for the training-run store")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file.
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/db/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %w", err)
	}

	log.Println("train_runs schema initialized")
	return nil
}

// SaveRun upserts a run record, encoding its request/result fields as
// jsonb.
func (s *PostgresStore) SaveRun(ctx context.Context, run *models.TrainRun) error {
	requestJSON, err := json.Marshal(run.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	ruleIDsJSON, err := json.Marshal(run.RuleIDs)
	if err != nil {
		return fmt.Errorf("marshal rule ids: %w", err)
	}
	thetaJSON, err := json.Marshal(run.Theta)
	if err != nil {
		return fmt.Errorf("marshal theta: %w", err)
	}

	sql := `
		INSERT INTO train_runs
			(id, status, request, rule_ids, theta, max_log_posterior, error, created_at, completed_at)
		VALUES ($1, $2, $3::jsonb, $4::jsonb, $5::jsonb, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status            = EXCLUDED.status,
			rule_ids          = EXCLUDED.rule_ids,
			theta             = EXCLUDED.theta,
			max_log_posterior = EXCLUDED.max_log_posterior,
			error             = EXCLUDED.error,
			completed_at      = EXCLUDED.completed_at;
	`
	_, err = s.pool.Exec(ctx, sql, run.ID, run.Status, requestJSON, ruleIDsJSON, thetaJSON,
		run.MaxLogPosterior, run.Error, run.CreatedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun fetches one run by id.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*models.TrainRun, error) {
	sql := `
		SELECT id, status, request, rule_ids, theta, max_log_posterior, error, created_at, completed_at
		FROM train_runs WHERE id = $1
	`
	row := s.pool.QueryRow(ctx, sql, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, page, limit int) ([]*models.TrainRun, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var totalCount int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM train_runs`).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	sql := `
		SELECT id, status, request, rule_ids, theta, max_log_posterior, error, created_at, completed_at
		FROM train_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`
	rows, err := s.pool.Query(ctx, sql, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.TrainRun
	for rows.Next() {
		run, err := scanRunRow(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	if runs == nil {
		runs = []*models.TrainRun{}
	}
	return runs, totalCount, nil
}

// rowScanner covers the subset of pgx.Row/pgx.Rows that Scan needs.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.TrainRun, error) {
	return scanRunRow(row)
}

func scanRunRow(row rowScanner) (*models.TrainRun, error) {
	var run models.TrainRun
	var requestJSON, ruleIDsJSON, thetaJSON []byte
	var maxLogPosterior *float64
	var errText *string
	var completedAt *time.Time

	if err := row.Scan(&run.ID, &run.Status, &requestJSON, &ruleIDsJSON, &thetaJSON,
		&maxLogPosterior, &errText, &run.CreatedAt, &completedAt); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if err := json.Unmarshal(requestJSON, &run.Request); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}
	if len(ruleIDsJSON) > 0 {
		if err := json.Unmarshal(ruleIDsJSON, &run.RuleIDs); err != nil {
			return nil, fmt.Errorf("unmarshal rule ids: %w", err)
		}
	}
	if len(thetaJSON) > 0 {
		if err := json.Unmarshal(thetaJSON, &run.Theta); err != nil {
			return nil, fmt.Errorf("unmarshal theta: %w", err)
		}
	}
	if maxLogPosterior != nil {
		run.MaxLogPosterior = *maxLogPosterior
	}
	if errText != nil {
		run.Error = *errText
	}
	run.CompletedAt = completedAt

	return &run, nil
}

// GetPool exposes the connection pool for callers that need a raw
// query the store doesn't wrap.
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
