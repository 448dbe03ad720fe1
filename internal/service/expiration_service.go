package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops/workorder-service/internal/clock"
	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/events"
	"github.com/fieldops/workorder-service/internal/notification"
	"github.com/fieldops/workorder-service/internal/observability"
	"github.com/fieldops/workorder-service/internal/repository"
)

// ExpirationService runs the scheduled sweeps: expiration alerts, auto-expiry
// of overdue tickets, audit-log retention and the daily ticket report. Each
// Execute-style method returns the number of items it processed so the
// scheduler can report batch outcomes.
type ExpirationService struct {
	tickets      repository.TicketRepository
	users        repository.UserRepository
	ticketLogs   repository.TicketLogRepository
	userLogs     repository.UserLogRepository
	audit        *AuditLogger
	tx           repository.TxManager
	sink         notification.Sink
	dispatcher   events.Dispatcher
	clock        clock.Clock
	metrics      *observability.Metrics
	logger       *zap.Logger
	alertWindow  time.Duration
	logRetention time.Duration
}

// ExpirationDependencies bundles collaborators for the sweep service.
type ExpirationDependencies struct {
	TicketRepo    repository.TicketRepository
	UserRepo      repository.UserRepository
	TicketLogRepo repository.TicketLogRepository
	UserLogRepo   repository.UserLogRepository
	Audit         *AuditLogger
	Tx            repository.TxManager
	Sink          notification.Sink
	Dispatcher    events.Dispatcher
	Clock         clock.Clock
	Metrics       *observability.Metrics
	Logger        *zap.Logger

	// AlertWindow defaults to 48h, LogRetention to 90 days.
	AlertWindow  time.Duration
	LogRetention time.Duration
}

// NewExpirationService constructs the service.
func NewExpirationService(deps ExpirationDependencies) *ExpirationService {
	alertWindow := deps.AlertWindow
	if alertWindow <= 0 {
		alertWindow = domain.ExpiringSoonWindow
	}
	logRetention := deps.LogRetention
	if logRetention <= 0 {
		logRetention = 90 * 24 * time.Hour
	}
	return &ExpirationService{
		tickets:      deps.TicketRepo,
		users:        deps.UserRepo,
		ticketLogs:   deps.TicketLogRepo,
		userLogs:     deps.UserLogRepo,
		audit:        deps.Audit,
		tx:           deps.Tx,
		sink:         deps.Sink,
		dispatcher:   deps.Dispatcher,
		clock:        deps.Clock,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		alertWindow:  alertWindow,
		logRetention: logRetention,
	}
}

// SendExpirationAlerts emits one alert per open or in-progress ticket whose
// expiration falls within the alert window. Delivery failures are logged and
// do not stop the sweep.
func (s *ExpirationService) SendExpirationAlerts(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := now.Add(s.alertWindow)

	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:      []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
		ExpiresAfter:  &now,
		ExpiresBefore: &cutoff,
		OrderBy:       repository.OrderExpirationAsc,
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, ticket := range tickets {
		hoursLeft := int(ticket.ExpirationDate.Sub(now).Hours())
		contractorEmail := "unassigned"
		if contractor, err := s.users.GetByID(ctx, ticket.AssignedContractor); err == nil {
			contractorEmail = contractor.Email
		}

		message := fmt.Sprintf("Ticket %s (%s) expires in %d hours. Assigned contractor: %s",
			ticket.TicketNumber, ticket.Organization, hoursLeft, contractorEmail)
		if err := s.sink.Send(ctx, message); err != nil {
			s.logger.Error("expiration alert delivery failed",
				zap.String("ticket_number", ticket.TicketNumber),
				zap.Error(err))
			continue
		}
		sent++
	}

	s.metrics.RecordSweep("expiration_alerts", sent)
	s.logger.Info("expiration alert sweep complete",
		zap.Int("candidates", len(tickets)),
		zap.Int("alerts_sent", sent))
	return sent, nil
}

// MarkExpiredTickets closes every open or in-progress ticket whose expiration
// date has passed. Each ticket is closed in its own transaction with one
// system TicketLog entry (no acting user, so no UserLog). A failure on one
// ticket does not stop the rest of the sweep.
func (s *ExpirationService) MarkExpiredTickets(ctx context.Context) (int, error) {
	now := s.clock.Now()

	expired, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:      []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
		ExpiresBefore: &now,
	})
	if err != nil {
		return 0, err
	}

	closed := 0
	for i := range expired {
		ticket := expired[i]
		previousStatus := ticket.Status

		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			ticket.Status = domain.TicketStatusClosed
			if err := s.tickets.Update(ctx, &ticket); err != nil {
				return err
			}
			_ = s.audit.LogTicketAction(ctx, ticket.ID, nil, domain.TicketActionClosed,
				map[string]any{"reason": "Automatically closed due to expiration"},
				map[string]any{"status": string(previousStatus)})
			return nil
		})
		if err != nil {
			s.logger.Error("auto-expire failed for ticket",
				zap.String("ticket_number", ticket.TicketNumber),
				zap.Error(err))
			continue
		}

		closed++
		if s.dispatcher != nil {
			_ = s.dispatcher.Publish(ctx, events.Event{
				ID:           uuid.NewString(),
				Type:         events.EventTicketExpired,
				TicketID:     ticket.ID,
				TicketNumber: ticket.TicketNumber,
				Timestamp:    now,
				Payload: events.TicketClosedPayload{
					PreviousStatus: previousStatus,
					Reason:         "Automatically closed due to expiration",
				},
			})
		}
	}

	s.metrics.RecordSweep("auto_expire", closed)
	s.logger.Info("auto-expire sweep complete",
		zap.Int("candidates", len(expired)),
		zap.Int("closed", closed))
	return closed, nil
}

// GenerateTicketReports logs the daily ticket report: ticket counts per
// status followed by a per-contractor breakdown. Returns the number of
// summary rows emitted.
func (s *ExpirationService) GenerateTicketReports(ctx context.Context) (int, error) {
	byStatus, err := s.tickets.SummaryByStatus(ctx)
	if err != nil {
		return 0, err
	}
	byContractor, err := s.tickets.SummaryByContractor(ctx)
	if err != nil {
		return 0, err
	}

	for _, row := range byStatus {
		s.logger.Info("daily ticket report: status",
			zap.String("status", string(row.Status)),
			zap.Int64("count", row.Count))
	}
	for _, row := range byContractor {
		s.logger.Info("daily ticket report: contractor",
			zap.String("contractor", row.ContractorName),
			zap.String("email", row.ContractorEmail),
			zap.Int64("total", row.Total),
			zap.Int64("open", row.Open),
			zap.Int64("in_progress", row.InProgress),
			zap.Int64("closed", row.Closed))
	}

	rows := len(byStatus) + len(byContractor)
	s.metrics.RecordSweep("ticket_reports", rows)
	s.logger.Info("daily ticket report complete",
		zap.Int("status_rows", len(byStatus)),
		zap.Int("contractor_rows", len(byContractor)))
	return rows, nil
}

// CleanupOldLogs deletes ticket and user log rows older than the retention
// period. Returns the total number of rows removed.
func (s *ExpirationService) CleanupOldLogs(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.logRetention)

	ticketRows, err := s.ticketLogs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	userRows, err := s.userLogs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return int(ticketRows), err
	}

	removed := int(ticketRows + userRows)
	s.metrics.RecordSweep("log_retention", removed)
	s.logger.Info("log retention sweep complete",
		zap.Time("cutoff", cutoff),
		zap.Int64("ticket_logs_removed", ticketRows),
		zap.Int64("user_logs_removed", userRows))
	return removed, nil
}
