package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/repository"
)

// In-memory repository fakes shared by the service tests. They mirror the
// filter semantics of the Postgres implementations closely enough to exercise
// the services without a database.

type fakeUserRepo struct {
	users map[string]*domain.User
	now   time.Time
}

func newFakeUserRepo(now time.Time) *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}, now: now}
}

func (r *fakeUserRepo) add(user domain.User) *domain.User {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	stored := user
	r.users[stored.ID] = &stored
	return &stored
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return fmt.Errorf("%w: users_email_key", repository.ErrDuplicate)
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = r.now
	user.UpdatedAt = r.now
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ListActiveContractors(context.Context) ([]domain.User, error) {
	var result []domain.User
	for _, user := range r.users {
		if user.Role == domain.RoleContractor && user.Active {
			result = append(result, *user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *fakeUserRepo) CountUsers(context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) CountActiveContractors(context.Context) (int64, error) {
	var count int64
	for _, user := range r.users {
		if user.Role == domain.RoleContractor && user.Active {
			count++
		}
	}
	return count, nil
}

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
	users   *fakeUserRepo
	now     time.Time
}

func newFakeTicketRepo(now time.Time) *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}, now: now}
}

// involves reports whether the user created or is assigned to the ticket.
func (r *fakeTicketRepo) involves(ticketID, userID string) bool {
	ticket, ok := r.tickets[ticketID]
	if !ok {
		return false
	}
	return ticket.CreatedBy == userID || ticket.AssignedContractor == userID
}

func (r *fakeTicketRepo) add(ticket domain.Ticket) *domain.Ticket {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.CreatedDate.IsZero() {
		ticket.CreatedDate = r.now
	}
	stored := ticket
	r.tickets[stored.ID] = &stored
	return &stored
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	for _, existing := range r.tickets {
		if existing.TicketNumber == ticket.TicketNumber {
			return fmt.Errorf("%w: tickets_ticket_number_key", repository.ErrDuplicate)
		}
	}
	ticket.ID = uuid.NewString()
	ticket.CreatedDate = r.now
	ticket.UpdatedAt = r.now
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = r.now
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) matches(ticket *domain.Ticket, filter repository.TicketFilter) bool {
	if filter.InvolvedUserID != nil &&
		ticket.CreatedBy != *filter.InvolvedUserID &&
		ticket.AssignedContractor != *filter.InvolvedUserID {
		return false
	}
	if filter.Status != nil && ticket.Status != *filter.Status {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if ticket.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Search != nil {
		needle := strings.ToLower(strings.TrimSpace(*filter.Search))
		haystack := strings.ToLower(ticket.TicketNumber + " " + ticket.Organization + " " + ticket.Location + " " + ticket.Notes)
		if needle != "" && !strings.Contains(haystack, needle) {
			return false
		}
	}
	if filter.ExpiresAfter != nil && !ticket.ExpirationDate.After(*filter.ExpiresAfter) {
		return false
	}
	if filter.ExpiresBefore != nil && ticket.ExpirationDate.After(*filter.ExpiresBefore) {
		return false
	}
	if filter.CreatedOn != nil {
		fy, fm, fd := filter.CreatedOn.Date()
		ty, tm, td := ticket.CreatedDate.Date()
		if fy != ty || fm != tm || fd != td {
			return false
		}
	}
	return true
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if r.matches(ticket, filter) {
			result = append(result, *ticket)
		}
	}
	if filter.OrderBy == repository.OrderExpirationAsc {
		sort.Slice(result, func(i, j int) bool {
			return result[i].ExpirationDate.Before(result[j].ExpirationDate)
		})
	} else {
		sort.Slice(result, func(i, j int) bool {
			return result[i].CreatedDate.After(result[j].CreatedDate)
		})
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *fakeTicketRepo) CountWithFilter(_ context.Context, filter repository.TicketFilter) (int64, error) {
	var count int64
	for _, ticket := range r.tickets {
		if r.matches(ticket, filter) {
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) CountCreatedOn(_ context.Context, day time.Time) (int64, error) {
	dy, dm, dd := day.Date()
	var count int64
	for _, ticket := range r.tickets {
		ty, tm, td := ticket.CreatedDate.Date()
		if dy == ty && dm == tm && dd == td {
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) SummaryByStatus(context.Context) ([]repository.StatusCount, error) {
	counts := map[domain.TicketStatus]int64{}
	for _, ticket := range r.tickets {
		counts[ticket.Status]++
	}
	var result []repository.StatusCount
	for status, count := range counts {
		result = append(result, repository.StatusCount{Status: status, Count: count})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Status < result[j].Status })
	return result, nil
}

func (r *fakeTicketRepo) SummaryByContractor(context.Context) ([]repository.ContractorSummary, error) {
	byContractor := map[string]*repository.ContractorSummary{}
	for _, ticket := range r.tickets {
		row, ok := byContractor[ticket.AssignedContractor]
		if !ok {
			row = &repository.ContractorSummary{}
			if r.users != nil {
				if contractor, exists := r.users.users[ticket.AssignedContractor]; exists {
					row.ContractorName = contractor.Name
					row.ContractorEmail = contractor.Email
				}
			}
			byContractor[ticket.AssignedContractor] = row
		}
		row.Total++
		switch ticket.Status {
		case domain.TicketStatusOpen:
			row.Open++
		case domain.TicketStatusInProgress:
			row.InProgress++
		case domain.TicketStatusClosed:
			row.Closed++
		}
	}
	var result []repository.ContractorSummary
	for _, row := range byContractor {
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ContractorName < result[j].ContractorName
	})
	return result, nil
}

type fakeTicketLogRepo struct {
	entries []domain.TicketLog
	tickets *fakeTicketRepo
	now     time.Time
	failing bool
}

func newFakeTicketLogRepo(now time.Time) *fakeTicketLogRepo {
	return &fakeTicketLogRepo{now: now}
}

func (r *fakeTicketLogRepo) Create(_ context.Context, log *domain.TicketLog) error {
	if r.failing {
		return fmt.Errorf("insert ticket_logs: connection reset")
	}
	log.ID = uuid.NewString()
	log.Timestamp = r.now
	r.entries = append(r.entries, *log)
	return nil
}

func (r *fakeTicketLogRepo) ListByTicket(_ context.Context, ticketID string, limit int) ([]domain.TicketLog, error) {
	var result []domain.TicketLog
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	sortTicketLogs(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *fakeTicketLogRepo) ListRecent(_ context.Context, scope repository.LogScope, limit int) ([]domain.TicketLog, error) {
	var result []domain.TicketLog
	for _, entry := range r.entries {
		if scope.InvolvedUserID != nil &&
			(r.tickets == nil || !r.tickets.involves(entry.TicketID, *scope.InvolvedUserID)) {
			continue
		}
		result = append(result, entry)
	}
	sortTicketLogs(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *fakeTicketLogRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []domain.TicketLog
	var removed int64
	for _, entry := range r.entries {
		if entry.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	r.entries = kept
	return removed, nil
}

func sortTicketLogs(logs []domain.TicketLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Timestamp.After(logs[j].Timestamp)
	})
}

type fakeUserLogRepo struct {
	entries []domain.UserLog
	tickets *fakeTicketRepo
	now     time.Time
}

func newFakeUserLogRepo(now time.Time) *fakeUserLogRepo {
	return &fakeUserLogRepo{now: now}
}

func (r *fakeUserLogRepo) Create(_ context.Context, log *domain.UserLog) error {
	log.ID = uuid.NewString()
	log.Timestamp = r.now
	r.entries = append(r.entries, *log)
	return nil
}

func (r *fakeUserLogRepo) ListByTicket(_ context.Context, ticketID string, limit int) ([]domain.UserLog, error) {
	var result []domain.UserLog
	for _, entry := range r.entries {
		if entry.RelatedTicketID != nil && *entry.RelatedTicketID == ticketID {
			result = append(result, entry)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *fakeUserLogRepo) ListRecent(_ context.Context, scope repository.LogScope, limit int) ([]domain.UserLog, error) {
	var result []domain.UserLog
	for _, entry := range r.entries {
		if scope.InvolvedUserID != nil && !r.inScope(entry, *scope.InvolvedUserID) {
			continue
		}
		result = append(result, entry)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// inScope mirrors the user-log visibility join: the user's own rows plus rows
// tied to tickets they created or are assigned to.
func (r *fakeUserLogRepo) inScope(entry domain.UserLog, userID string) bool {
	if entry.UserID == userID {
		return true
	}
	if entry.RelatedTicketID == nil || r.tickets == nil {
		return false
	}
	return r.tickets.involves(*entry.RelatedTicketID, userID)
}

func (r *fakeUserLogRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []domain.UserLog
	var removed int64
	for _, entry := range r.entries {
		if entry.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	r.entries = kept
	return removed, nil
}

// fakeTxManager runs the function directly; the fakes have no transactional
// semantics to enforce.
type fakeTxManager struct{}

func (fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeSink struct {
	messages []string
}

func (s *fakeSink) Send(_ context.Context, message string) error {
	s.messages = append(s.messages, message)
	return nil
}
