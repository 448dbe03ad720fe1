package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/repository"
)

// AuditLogger appends immutable audit rows for user and ticket actions. It is
// called from inside the transaction of the mutation it records, so a rolled
// back mutation also drops its audit rows. The reverse does not hold: both
// methods return their error for the caller to deliberately discard, and the
// failure is logged here, so a broken audit write can never abort a
// successful business mutation.
type AuditLogger struct {
	userLogs   repository.UserLogRepository
	ticketLogs repository.TicketLogRepository
	logger     *zap.Logger
}

// NewAuditLogger constructs the logger.
func NewAuditLogger(userLogs repository.UserLogRepository, ticketLogs repository.TicketLogRepository, logger *zap.Logger) *AuditLogger {
	return &AuditLogger{userLogs: userLogs, ticketLogs: ticketLogs, logger: logger}
}

// LogUserAction records one action from the actor's point of view.
func (a *AuditLogger) LogUserAction(ctx context.Context, userID string, action domain.UserAction, details map[string]any, relatedTicketID *string, ipAddress *string) error {
	if details == nil {
		details = map[string]any{}
	}
	entry := &domain.UserLog{
		UserID:          userID,
		Action:          action,
		Details:         details,
		IPAddress:       ipAddress,
		RelatedTicketID: relatedTicketID,
	}
	if err := a.userLogs.Create(ctx, entry); err != nil {
		a.logger.Error("failed to log user action",
			zap.String("user_id", userID),
			zap.String("action", string(action)),
			zap.Error(err))
		return err
	}
	return nil
}

// LogTicketAction records one action applied to a ticket. A nil actionBy
// denotes a system-initiated event.
func (a *AuditLogger) LogTicketAction(ctx context.Context, ticketID string, actionBy *string, action domain.TicketAction, details, previousValues map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	if previousValues == nil {
		previousValues = map[string]any{}
	}
	entry := &domain.TicketLog{
		TicketID:       ticketID,
		ActionBy:       actionBy,
		Action:         action,
		Details:        details,
		PreviousValues: previousValues,
	}
	if err := a.ticketLogs.Create(ctx, entry); err != nil {
		a.logger.Error("failed to log ticket action",
			zap.String("ticket_id", ticketID),
			zap.String("action", string(action)),
			zap.Error(err))
		return err
	}
	return nil
}
