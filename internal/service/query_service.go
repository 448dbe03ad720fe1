package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-service/internal/authz"
	"github.com/fieldops/workorder-service/internal/clock"
	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/repository"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

// QueryService serves all read paths: role-scoped listings, single-ticket
// lookups, statistics, audit trails and the dashboard composition. It never
// mutates state.
type QueryService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	ticketLogs repository.TicketLogRepository
	userLogs   repository.UserLogRepository
	clock      clock.Clock
}

// QueryDependencies bundles collaborators for the query service.
type QueryDependencies struct {
	TicketRepo    repository.TicketRepository
	UserRepo      repository.UserRepository
	TicketLogRepo repository.TicketLogRepository
	UserLogRepo   repository.UserLogRepository
	Clock         clock.Clock
}

// NewQueryService constructs the service.
func NewQueryService(deps QueryDependencies) *QueryService {
	return &QueryService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		ticketLogs: deps.TicketLogRepo,
		userLogs:   deps.UserLogRepo,
		clock:      deps.Clock,
	}
}

// TicketQuery carries optional listing filters plus pagination.
type TicketQuery struct {
	Status *domain.TicketStatus
	Search *string
	Limit  int
	Offset int
}

// TicketStats aggregates ticket counts for the caller's visible set.
type TicketStats struct {
	Total        int64 `json:"total"`
	Open         int64 `json:"open"`
	InProgress   int64 `json:"in_progress"`
	Closed       int64 `json:"closed"`
	ExpiringSoon int64 `json:"expiring_soon"`
	Expired      int64 `json:"expired"`
}

// AuditEntry is one row of a ticket's merged audit trail.
type AuditEntry struct {
	Source         string         `json:"source"`
	Action         string         `json:"action"`
	ActorID        *string        `json:"actor_id,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	Details        map[string]any `json:"details"`
	PreviousValues map[string]any `json:"previous_values,omitempty"`
}

// ActivityEntry is one row of the dashboard activity feed.
type ActivityEntry struct {
	Source    string         `json:"source"`
	Action    string         `json:"action"`
	ActorID   *string        `json:"actor_id,omitempty"`
	TicketID  *string        `json:"ticket_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details"`
}

// Dashboard aggregates the landing-page payload. Admin-only fields are nil or
// zero for contractors.
type Dashboard struct {
	Stats               TicketStats     `json:"stats"`
	RecentTickets       []domain.Ticket `json:"recent_tickets"`
	ExpiringTickets     []domain.Ticket `json:"expiring_tickets"`
	RecentActivity      []ActivityEntry `json:"recent_activity"`
	Contractors         []domain.User   `json:"contractors,omitempty"`
	TotalUsers          int64           `json:"total_users,omitempty"`
	ActiveContractors   int64           `json:"active_contractors,omitempty"`
	TicketsCreatedToday int64           `json:"tickets_created_today,omitempty"`
}

// visibilityScope translates the actor's role into a repository filter. The
// second return is false when the actor may see nothing at all.
func visibilityScope(actor domain.Actor) (*string, bool) {
	if !actor.Authenticated {
		return nil, false
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return nil, true
	case domain.RoleContractor:
		id := actor.ID
		return &id, true
	default:
		return nil, false
	}
}

// TicketsForUser lists tickets the actor may see, filtered and paginated.
// Returns the page plus the total count of the filtered visible set.
func (s *QueryService) TicketsForUser(ctx context.Context, actor domain.Actor, query TicketQuery) ([]domain.Ticket, int64, error) {
	involved, visible := visibilityScope(actor)
	if !visible {
		return []domain.Ticket{}, 0, nil
	}

	filter := repository.TicketFilter{
		InvolvedUserID: involved,
		Status:         query.Status,
		Search:         query.Search,
		OrderBy:        repository.OrderCreatedDesc,
		Limit:          query.Limit,
		Offset:         query.Offset,
	}

	total, err := s.tickets.CountWithFilter(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, total, nil
}

// TicketByID returns a single ticket. Tickets outside the actor's visibility
// are reported as not found, indistinguishable from absent ones.
func (s *QueryService) TicketByID(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !authz.CanViewTicket(actor, ticket) {
		return nil, apperrors.NewNotFound("Ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// Stats computes aggregate counts over the actor's visible tickets. Closed
// tickets never count as expiring or expired regardless of their date.
func (s *QueryService) Stats(ctx context.Context, actor domain.Actor) (TicketStats, error) {
	involved, visible := visibilityScope(actor)
	if !visible {
		return TicketStats{}, nil
	}

	now := s.clock.Now()
	activeStatuses := []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress}

	var stats TicketStats
	counts := []struct {
		dst    *int64
		filter repository.TicketFilter
	}{
		{&stats.Total, repository.TicketFilter{InvolvedUserID: involved}},
		{&stats.Open, repository.TicketFilter{InvolvedUserID: involved, Status: statusPtr(domain.TicketStatusOpen)}},
		{&stats.InProgress, repository.TicketFilter{InvolvedUserID: involved, Status: statusPtr(domain.TicketStatusInProgress)}},
		{&stats.Closed, repository.TicketFilter{InvolvedUserID: involved, Status: statusPtr(domain.TicketStatusClosed)}},
		{&stats.ExpiringSoon, repository.TicketFilter{
			InvolvedUserID: involved,
			Statuses:       activeStatuses,
			ExpiresAfter:   &now,
			ExpiresBefore:  timePtr(now.Add(domain.ExpiringSoonWindow)),
		}},
		{&stats.Expired, repository.TicketFilter{
			InvolvedUserID: involved,
			Statuses:       activeStatuses,
			ExpiresBefore:  &now,
		}},
	}
	for _, c := range counts {
		count, err := s.tickets.CountWithFilter(ctx, c.filter)
		if err != nil {
			return TicketStats{}, apperrors.MapError(err)
		}
		*c.dst = count
	}
	return stats, nil
}

// ExpiringTickets lists open and in-progress tickets expiring within the given
// window, soonest first. hours defaults to 48.
func (s *QueryService) ExpiringTickets(ctx context.Context, actor domain.Actor, hours int) ([]domain.Ticket, error) {
	involved, visible := visibilityScope(actor)
	if !visible {
		return []domain.Ticket{}, nil
	}
	if hours <= 0 {
		hours = int(domain.ExpiringSoonWindow / time.Hour)
	}

	now := s.clock.Now()
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		InvolvedUserID: involved,
		Statuses:       []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
		ExpiresAfter:   &now,
		ExpiresBefore:  timePtr(now.Add(time.Duration(hours) * time.Hour)),
		OrderBy:        repository.OrderExpirationAsc,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// RecentTickets lists the actor's most recently created tickets.
func (s *QueryService) RecentTickets(ctx context.Context, actor domain.Actor, limit int) ([]domain.Ticket, error) {
	involved, visible := visibilityScope(actor)
	if !visible {
		return []domain.Ticket{}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		InvolvedUserID: involved,
		OrderBy:        repository.OrderCreatedDesc,
		Limit:          limit,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// AuditTrail merges a ticket's TicketLog and UserLog entries into one
// reverse-chronological feed. Actors without visibility get an empty trail.
func (s *QueryService) AuditTrail(ctx context.Context, actor domain.Actor, ticketID string, limit int) ([]AuditEntry, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !authz.CanViewTicket(actor, ticket) {
		return []AuditEntry{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	ticketLogs, err := s.ticketLogs.ListByTicket(ctx, ticketID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	userLogs, err := s.userLogs.ListByTicket(ctx, ticketID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	entries := make([]AuditEntry, 0, len(ticketLogs)+len(userLogs))
	for _, log := range ticketLogs {
		entries = append(entries, AuditEntry{
			Source:         "ticket",
			Action:         string(log.Action),
			ActorID:        log.ActionBy,
			Timestamp:      log.Timestamp,
			Details:        log.Details,
			PreviousValues: log.PreviousValues,
		})
	}
	for _, log := range userLogs {
		userID := log.UserID
		entries = append(entries, AuditEntry{
			Source:    "user",
			Action:    string(log.Action),
			ActorID:   &userID,
			Timestamp: log.Timestamp,
			Details:   log.Details,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// RecentActivity merges recent log rows across all tickets the actor may see.
func (s *QueryService) RecentActivity(ctx context.Context, actor domain.Actor, limit int) ([]ActivityEntry, error) {
	involved, visible := visibilityScope(actor)
	if !visible {
		return []ActivityEntry{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	scope := repository.LogScope{InvolvedUserID: involved}

	ticketLogs, err := s.ticketLogs.ListRecent(ctx, scope, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	userLogs, err := s.userLogs.ListRecent(ctx, scope, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	entries := make([]ActivityEntry, 0, len(ticketLogs)+len(userLogs))
	for _, log := range ticketLogs {
		ticketID := log.TicketID
		entries = append(entries, ActivityEntry{
			Source:    "ticket",
			Action:    string(log.Action),
			ActorID:   log.ActionBy,
			TicketID:  &ticketID,
			Timestamp: log.Timestamp,
			Details:   log.Details,
		})
	}
	for _, log := range userLogs {
		userID := log.UserID
		entries = append(entries, ActivityEntry{
			Source:    "user",
			Action:    string(log.Action),
			ActorID:   &userID,
			TicketID:  log.RelatedTicketID,
			Timestamp: log.Timestamp,
			Details:   log.Details,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// TicketSummaryByStatus counts tickets per status, ordered by status name.
// Admin only.
func (s *QueryService) TicketSummaryByStatus(ctx context.Context, actor domain.Actor) ([]repository.StatusCount, error) {
	if !authz.CanManageUsers(actor) {
		return nil, apperrors.NewPermissionDenied("You don't have permission to view ticket reports")
	}
	summary, err := s.tickets.SummaryByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if summary == nil {
		summary = []repository.StatusCount{}
	}
	return summary, nil
}

// TicketSummaryByContractor breaks ticket counts down per assigned contractor,
// ordered by contractor name. Admin only.
func (s *QueryService) TicketSummaryByContractor(ctx context.Context, actor domain.Actor) ([]repository.ContractorSummary, error) {
	if !authz.CanManageUsers(actor) {
		return nil, apperrors.NewPermissionDenied("You don't have permission to view ticket reports")
	}
	summary, err := s.tickets.SummaryByContractor(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if summary == nil {
		summary = []repository.ContractorSummary{}
	}
	return summary, nil
}

// Contractors lists active contractors for assignment pickers. Admin only.
func (s *QueryService) Contractors(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if !authz.CanManageUsers(actor) {
		return nil, apperrors.NewPermissionDenied("You don't have permission to list contractors")
	}
	contractors, err := s.users.ListActiveContractors(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if contractors == nil {
		contractors = []domain.User{}
	}
	return contractors, nil
}

// BuildDashboard composes the landing-page payload: stats, five most recent
// tickets, the 48-hour expiring list and a ten-row activity feed. Admins also
// get the contractor roster and platform counters.
func (s *QueryService) BuildDashboard(ctx context.Context, actor domain.Actor) (*Dashboard, error) {
	stats, err := s.Stats(ctx, actor)
	if err != nil {
		return nil, err
	}
	recent, err := s.RecentTickets(ctx, actor, 5)
	if err != nil {
		return nil, err
	}
	expiring, err := s.ExpiringTickets(ctx, actor, 0)
	if err != nil {
		return nil, err
	}
	activity, err := s.RecentActivity(ctx, actor, 10)
	if err != nil {
		return nil, err
	}

	dashboard := &Dashboard{
		Stats:           stats,
		RecentTickets:   recent,
		ExpiringTickets: expiring,
		RecentActivity:  activity,
	}

	if actor.Role == domain.RoleAdmin {
		contractors, err := s.users.ListActiveContractors(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		totalUsers, err := s.users.CountUsers(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		activeContractors, err := s.users.CountActiveContractors(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		today := s.clock.Now()
		createdToday, err := s.tickets.CountCreatedOn(ctx, today)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		dashboard.Contractors = contractors
		dashboard.TotalUsers = totalUsers
		dashboard.ActiveContractors = activeContractors
		dashboard.TicketsCreatedToday = createdToday
	}
	return dashboard, nil
}

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func timePtr(t time.Time) *time.Time { return &t }
