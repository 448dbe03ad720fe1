package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/workorder-service/internal/domain"
)

// TicketOrder selects the sort order for ticket listings.
type TicketOrder string

const (
	OrderCreatedDesc   TicketOrder = "created_desc"
	OrderExpirationAsc TicketOrder = "expiration_asc"
)

// TicketFilter captures role-scoped search parameters. Visibility scoping is
// part of the base query: when InvolvedUserID is set, only tickets the user
// created or is assigned to are matched.
type TicketFilter struct {
	InvolvedUserID *string
	Status         *domain.TicketStatus
	Statuses       []domain.TicketStatus
	Search         *string
	ExpiresAfter   *time.Time
	ExpiresBefore  *time.Time
	CreatedOn      *time.Time
	OrderBy        TicketOrder
	Limit          int
	Offset         int
}

// StatusCount is one row of the per-status ticket summary.
type StatusCount struct {
	Status domain.TicketStatus `json:"status"`
	Count  int64               `json:"count"`
}

// ContractorSummary is one row of the per-contractor ticket summary.
type ContractorSummary struct {
	ContractorName  string `json:"contractor_name"`
	ContractorEmail string `json:"contractor_email"`
	Total           int64  `json:"total_tickets"`
	Open            int64  `json:"open_tickets"`
	InProgress      int64  `json:"in_progress_tickets"`
	Closed          int64  `json:"closed_tickets"`
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountWithFilter(ctx context.Context, filter TicketFilter) (int64, error)
	CountCreatedOn(ctx context.Context, day time.Time) (int64, error)
	SummaryByStatus(ctx context.Context) ([]StatusCount, error)
	SummaryByContractor(ctx context.Context) ([]ContractorSummary, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, organization, location, notes, status,
               expiration_date, assigned_contractor, created_by, updated_by, created_date, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, organization, location, notes, status, expiration_date, assigned_contractor, created_by, updated_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_date, updated_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Organization,
		ticket.Location,
		ticket.Notes,
		ticket.Status,
		ticket.ExpirationDate,
		ticket.AssignedContractor,
		ticket.CreatedBy,
		ticket.UpdatedBy,
	).Scan(&ticket.ID, &ticket.CreatedDate, &ticket.UpdatedAt)
	return mapInsertError(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET organization=$1, location=$2, notes=$3, status=$4,
            expiration_date=$5, assigned_contractor=$6, updated_by=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		ticket.Organization,
		ticket.Location,
		ticket.Notes,
		ticket.Status,
		ticket.ExpirationDate,
		ticket.AssignedContractor,
		ticket.UpdatedBy,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := querier(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Organization,
		&ticket.Location,
		&ticket.Notes,
		&ticket.Status,
		&ticket.ExpirationDate,
		&ticket.AssignedContractor,
		&ticket.CreatedBy,
		&ticket.UpdatedBy,
		&ticket.CreatedDate,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func buildTicketClauses(filter TicketFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.InvolvedUserID != nil {
		args = append(args, *filter.InvolvedUserID)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(created_by=%s OR assigned_contractor=%s)", placeholder, placeholder))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(ticket_number) LIKE %s OR LOWER(organization) LIKE %s OR LOWER(location) LIKE %s OR LOWER(notes) LIKE %s)",
			placeholder, placeholder, placeholder, placeholder))
	}
	if filter.ExpiresAfter != nil {
		args = append(args, *filter.ExpiresAfter)
		clauses = append(clauses, fmt.Sprintf("expiration_date > $%d", len(args)))
	}
	if filter.ExpiresBefore != nil {
		args = append(args, *filter.ExpiresBefore)
		clauses = append(clauses, fmt.Sprintf("expiration_date <= $%d", len(args)))
	}
	if filter.CreatedOn != nil {
		args = append(args, *filter.CreatedOn)
		clauses = append(clauses, fmt.Sprintf("created_date::date = ($%d)::date", len(args)))
	}
	return clauses, args
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses, args := buildTicketClauses(filter)

	order := "created_date DESC"
	if filter.OrderBy == OrderExpirationAsc {
		order = "expiration_date ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s`,
		ticketColumns, strings.Join(clauses, " AND "), order)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountWithFilter(ctx context.Context, filter TicketFilter) (int64, error) {
	clauses, args := buildTicketClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, strings.Join(clauses, " AND "))

	var count int64
	err := querier(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func (r *ticketRepository) CountCreatedOn(ctx context.Context, day time.Time) (int64, error) {
	var count int64
	err := querier(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE created_date::date = ($1)::date`, day,
	).Scan(&count)
	return count, err
}

func (r *ticketRepository) SummaryByStatus(ctx context.Context) ([]StatusCount, error) {
	const query = `SELECT status, COUNT(*) FROM tickets GROUP BY status ORDER BY status`
	rows, err := querier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StatusCount
	for rows.Next() {
		var row StatusCount
		if err := rows.Scan(&row.Status, &row.Count); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *ticketRepository) SummaryByContractor(ctx context.Context) ([]ContractorSummary, error) {
	const query = `
        SELECT u.name, u.email,
            COUNT(*),
            COUNT(*) FILTER (WHERE t.status = 'open'),
            COUNT(*) FILTER (WHERE t.status = 'in_progress'),
            COUNT(*) FILTER (WHERE t.status = 'closed')
        FROM tickets t
        JOIN users u ON u.id = t.assigned_contractor
        GROUP BY u.name, u.email
        ORDER BY u.name`
	rows, err := querier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ContractorSummary
	for rows.Next() {
		var row ContractorSummary
		if err := rows.Scan(&row.ContractorName, &row.ContractorEmail,
			&row.Total, &row.Open, &row.InProgress, &row.Closed); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketNumber,
			&ticket.Organization,
			&ticket.Location,
			&ticket.Notes,
			&ticket.Status,
			&ticket.ExpirationDate,
			&ticket.AssignedContractor,
			&ticket.CreatedBy,
			&ticket.UpdatedBy,
			&ticket.CreatedDate,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
