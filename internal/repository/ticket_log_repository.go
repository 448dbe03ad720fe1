package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/workorder-service/internal/domain"
)

// LogScope limits log queries to rows a user may see. When InvolvedUserID is
// set, only logs attached to tickets that user created or is assigned to are
// matched; a nil scope matches everything (admin).
type LogScope struct {
	InvolvedUserID *string
}

// TicketLogRepository stores immutable ticket audit entries.
type TicketLogRepository interface {
	Create(ctx context.Context, log *domain.TicketLog) error
	ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.TicketLog, error)
	ListRecent(ctx context.Context, scope LogScope, limit int) ([]domain.TicketLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ticketLogRepository struct {
	pool *pgxpool.Pool
}

// NewTicketLogRepository builds repository.
func NewTicketLogRepository(pool *pgxpool.Pool) TicketLogRepository {
	return &ticketLogRepository{pool: pool}
}

const ticketLogColumns = `id, ticket_id, action_by, action, timestamp, details, previous_values`

func (r *ticketLogRepository) Create(ctx context.Context, log *domain.TicketLog) error {
	const query = `
        INSERT INTO ticket_logs (ticket_id, action_by, action, details, previous_values)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, timestamp`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		log.TicketID,
		log.ActionBy,
		log.Action,
		log.Details,
		log.PreviousValues,
	).Scan(&log.ID, &log.Timestamp)
}

func (r *ticketLogRepository) ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.TicketLog, error) {
	query := `
        SELECT ` + ticketLogColumns + `
        FROM ticket_logs WHERE ticket_id=$1 ORDER BY timestamp DESC LIMIT $2`
	rows, err := querier(ctx, r.pool).Query(ctx, query, ticketID, normalizedLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTicketLogs(rows)
}

func (r *ticketLogRepository) ListRecent(ctx context.Context, scope LogScope, limit int) ([]domain.TicketLog, error) {
	if scope.InvolvedUserID != nil {
		query := `
            SELECT l.id, l.ticket_id, l.action_by, l.action, l.timestamp, l.details, l.previous_values
            FROM ticket_logs l
            JOIN tickets t ON t.id = l.ticket_id
            WHERE t.created_by=$1 OR t.assigned_contractor=$1
            ORDER BY l.timestamp DESC LIMIT $2`
		rows, err := querier(ctx, r.pool).Query(ctx, query, *scope.InvolvedUserID, normalizedLimit(limit))
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanTicketLogs(rows)
	}

	query := `SELECT ` + ticketLogColumns + ` FROM ticket_logs ORDER BY timestamp DESC LIMIT $1`
	rows, err := querier(ctx, r.pool).Query(ctx, query, normalizedLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTicketLogs(rows)
}

func (r *ticketLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM ticket_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanTicketLogs(rows pgx.Rows) ([]domain.TicketLog, error) {
	var result []domain.TicketLog
	for rows.Next() {
		var log domain.TicketLog
		if err := rows.Scan(
			&log.ID,
			&log.TicketID,
			&log.ActionBy,
			&log.Action,
			&log.Timestamp,
			&log.Details,
			&log.PreviousValues,
		); err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, rows.Err()
}

func normalizedLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
