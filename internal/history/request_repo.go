package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RequestRepo — репозиторий истории запросов.
type RequestRepo struct {
	pool *pgxpool.Pool
}

// NewRequestRepo создаёт новый RequestRepo.
func NewRequestRepo(pool *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

// Create создаёт запись запроса.
func (r *RequestRepo) Create(ctx context.Context, req *Request) error {
	query := `
		INSERT INTO requests (id, text, correlation_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		req.ID,
		req.Text,
		nullString(req.CorrelationID),
		req.Status,
		req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// Update обновляет статус и результат запроса.
func (r *RequestRepo) Update(ctx context.Context, req *Request) error {
	query := `
		UPDATE requests
		SET status = $2, response = $3, error = $4, started_at = $5, finished_at = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		req.ID,
		req.Status,
		nullString(req.Response),
		nullString(req.Error),
		req.StartedAt,
		req.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает запрос по ID.
func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	query := `
		SELECT id, text, correlation_id, status, response, error,
		       created_at, started_at, finished_at
		FROM requests
		WHERE id = $1
	`
	return scanRequest(r.pool.QueryRow(ctx, query, id))
}

// ListRecent возвращает последние запросы.
func (r *RequestRepo) ListRecent(ctx context.Context, limit int) ([]Request, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, text, correlation_id, status, response, error,
		       created_at, started_at, finished_at
		FROM requests
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// scanRequest сканирует одну строку в Request.
func scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	var correlationID, response, reqError *string

	err := row.Scan(
		&req.ID,
		&req.Text,
		&correlationID,
		&req.Status,
		&response,
		&reqError,
		&req.CreatedAt,
		&req.StartedAt,
		&req.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan request: %w", err)
	}

	if correlationID != nil {
		req.CorrelationID = *correlationID
	}
	if response != nil {
		req.Response = *response
	}
	if reqError != nil {
		req.Error = *reqError
	}

	return &req, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
