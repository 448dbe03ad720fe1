package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/workorder-service/internal/domain"
)

// UserLogRepository stores immutable user audit entries.
type UserLogRepository interface {
	Create(ctx context.Context, log *domain.UserLog) error
	ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.UserLog, error)
	ListRecent(ctx context.Context, scope LogScope, limit int) ([]domain.UserLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type userLogRepository struct {
	pool *pgxpool.Pool
}

// NewUserLogRepository builds repository.
func NewUserLogRepository(pool *pgxpool.Pool) UserLogRepository {
	return &userLogRepository{pool: pool}
}

const userLogColumns = `id, user_id, action, timestamp, details, ip_address, related_ticket_id`

func (r *userLogRepository) Create(ctx context.Context, log *domain.UserLog) error {
	const query = `
        INSERT INTO user_logs (user_id, action, details, ip_address, related_ticket_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, timestamp`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		log.UserID,
		log.Action,
		log.Details,
		log.IPAddress,
		log.RelatedTicketID,
	).Scan(&log.ID, &log.Timestamp)
}

func (r *userLogRepository) ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.UserLog, error) {
	query := `
        SELECT ` + userLogColumns + `
        FROM user_logs WHERE related_ticket_id=$1 ORDER BY timestamp DESC LIMIT $2`
	rows, err := querier(ctx, r.pool).Query(ctx, query, ticketID, normalizedLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserLogs(rows)
}

func (r *userLogRepository) ListRecent(ctx context.Context, scope LogScope, limit int) ([]domain.UserLog, error) {
	if scope.InvolvedUserID != nil {
		// Contractors see logs tied to their tickets plus their own entries.
		query := `
            SELECT l.id, l.user_id, l.action, l.timestamp, l.details, l.ip_address, l.related_ticket_id
            FROM user_logs l
            LEFT JOIN tickets t ON t.id = l.related_ticket_id
            WHERE l.user_id=$1 OR t.created_by=$1 OR t.assigned_contractor=$1
            ORDER BY l.timestamp DESC LIMIT $2`
		rows, err := querier(ctx, r.pool).Query(ctx, query, *scope.InvolvedUserID, normalizedLimit(limit))
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanUserLogs(rows)
	}

	query := `SELECT ` + userLogColumns + ` FROM user_logs ORDER BY timestamp DESC LIMIT $1`
	rows, err := querier(ctx, r.pool).Query(ctx, query, normalizedLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserLogs(rows)
}

func (r *userLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM user_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanUserLogs(rows pgx.Rows) ([]domain.UserLog, error) {
	var result []domain.UserLog
	for rows.Next() {
		var log domain.UserLog
		if err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.Action,
			&log.Timestamp,
			&log.Details,
			&log.IPAddress,
			&log.RelatedTicketID,
		); err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, rows.Err()
}
