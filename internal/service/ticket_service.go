package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fieldops/workorder-service/internal/authz"
	"github.com/fieldops/workorder-service/internal/clock"
	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/events"
	"github.com/fieldops/workorder-service/internal/repository"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

// ticketNumberAttempts bounds retries when concurrent same-day creations race
// for the same sequence number; the unique constraint arbitrates.
const ticketNumberAttempts = 3

// TicketService owns all ticket state transitions. Every operation checks the
// relevant authorization predicate first, runs inside one transaction, and
// writes its audit rows through the AuditLogger.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	audit      *AuditLogger
	tx         repository.TxManager
	clock      clock.Clock
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Audit      *AuditLogger
	Tx         repository.TxManager
	Clock      clock.Clock
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		audit:      deps.Audit,
		tx:         deps.Tx,
		clock:      deps.Clock,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Organization   string
	Location       string
	Notes          string
	ExpirationDate time.Time
	ContractorID   string
	IPAddress      *string
}

// UpdateTicketInput carries the partial fields of an update; nil fields are
// left untouched.
type UpdateTicketInput struct {
	Organization   *string
	Status         *domain.TicketStatus
	Location       *string
	Notes          *string
	ExpirationDate *time.Time
}

// Create creates a ticket with full audit logging. Admin only.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input CreateTicketInput) (*domain.Ticket, error) {
	if !authz.CanCreateTicket(actor) {
		return nil, apperrors.NewPermissionDenied("You don't have permission to create tickets")
	}

	contractor, err := s.users.GetByID(ctx, input.ContractorID)
	if err != nil || contractor.Role != domain.RoleContractor || !contractor.Active {
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		return nil, apperrors.NewValidationError("Invalid contractor assignment", nil)
	}

	now := s.clock.Now()
	if !input.ExpirationDate.After(now) {
		return nil, apperrors.NewValidationError("Expiration date must be in the future", nil)
	}

	var ticket *domain.Ticket
	for attempt := 0; attempt < ticketNumberAttempts; attempt++ {
		ticket, err = s.createOnce(ctx, actor, contractor, input, now)
		if err == nil {
			break
		}
		if repository.IsDuplicate(err) {
			s.logger.Warn("ticket number conflict, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		return nil, apperrors.MapError(err)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketCreated,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		ActorID:      &actor.ID,
		Payload: events.TicketCreatedPayload{
			Organization:       ticket.Organization,
			Location:           ticket.Location,
			AssignedContractor: contractor.Email,
			ExpirationDate:     ticket.ExpirationDate,
		},
	})
	s.logger.Info("ticket created",
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("created_by", actor.ID))
	return ticket, nil
}

func (s *TicketService) createOnce(ctx context.Context, actor domain.Actor, contractor *domain.User, input CreateTicketInput, now time.Time) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		number, err := s.generateTicketNumber(ctx, now)
		if err != nil {
			return err
		}
		ticket = &domain.Ticket{
			TicketNumber:       number,
			Organization:       input.Organization,
			Location:           input.Location,
			Notes:              input.Notes,
			Status:             domain.TicketStatusOpen,
			ExpirationDate:     input.ExpirationDate,
			AssignedContractor: contractor.ID,
			CreatedBy:          actor.ID,
			UpdatedBy:          actor.ID,
		}
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}

		_ = s.audit.LogUserAction(ctx, actor.ID, domain.UserActionTicketCreated, map[string]any{
			"ticket_id":     ticket.ID,
			"ticket_number": ticket.TicketNumber,
			"organization":  ticket.Organization,
			"assigned_to":   contractor.Email,
		}, &ticket.ID, input.IPAddress)
		_ = s.audit.LogTicketAction(ctx, ticket.ID, &actor.ID, domain.TicketActionCreated, map[string]any{
			"organization":        ticket.Organization,
			"location":            ticket.Location,
			"assigned_contractor": contractor.Email,
			"expiration_date":     ticket.ExpirationDate.Format(time.RFC3339),
		}, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// generateTicketNumber counts the tickets created today and formats
// TKT-YYYYMMDD-NNNN with the next sequence number. The count is racy under
// concurrent same-day creation; the unique constraint on ticket_number plus
// the caller's retry loop contain it.
func (s *TicketService) generateTicketNumber(ctx context.Context, now time.Time) (string, error) {
	count, err := s.tickets.CountCreatedOn(ctx, now)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TKT-%s-%04d", now.Format("20060102"), count+1), nil
}

// Update applies a partial update with change tracking. Only fields that
// actually changed are logged; a no-op update writes no audit rows.
func (s *TicketService) Update(ctx context.Context, ticketID string, actor domain.Actor, input UpdateTicketInput) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	var changes map[string]any

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.getForMutation(ctx, ticketID)
		if err != nil {
			return err
		}
		if !authz.CanUpdateTicket(actor, ticket) {
			return apperrors.NewPermissionDenied("You don't have permission to update this ticket")
		}

		previousValues := map[string]any{
			"organization":    ticket.Organization,
			"status":          string(ticket.Status),
			"location":        ticket.Location,
			"notes":           ticket.Notes,
			"expiration_date": ticket.ExpirationDate.Format(time.RFC3339),
		}

		changes = map[string]any{}
		if input.Organization != nil && *input.Organization != ticket.Organization {
			changes["organization"] = fieldChange(ticket.Organization, *input.Organization)
			ticket.Organization = *input.Organization
		}
		if input.Status != nil && *input.Status != ticket.Status {
			if !input.Status.Valid() {
				return apperrors.NewValidationError("Invalid status", map[string]any{"status": string(*input.Status)})
			}
			changes["status"] = fieldChange(string(ticket.Status), string(*input.Status))
			ticket.Status = *input.Status
		}
		if input.Location != nil && *input.Location != ticket.Location {
			changes["location"] = fieldChange(ticket.Location, *input.Location)
			ticket.Location = *input.Location
		}
		if input.Notes != nil && *input.Notes != ticket.Notes {
			changes["notes"] = fieldChange(ticket.Notes, *input.Notes)
			ticket.Notes = *input.Notes
		}
		if input.ExpirationDate != nil && !input.ExpirationDate.Equal(ticket.ExpirationDate) {
			if !input.ExpirationDate.After(s.clock.Now()) {
				return apperrors.NewValidationError("Expiration date must be in the future", nil)
			}
			changes["expiration_date"] = fieldChange(
				ticket.ExpirationDate.Format(time.RFC3339),
				input.ExpirationDate.Format(time.RFC3339))
			ticket.ExpirationDate = *input.ExpirationDate
		}

		ticket.UpdatedBy = actor.ID
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}

		if len(changes) > 0 {
			_ = s.audit.LogUserAction(ctx, actor.ID, domain.UserActionTicketUpdated, map[string]any{
				"ticket_id":     ticket.ID,
				"ticket_number": ticket.TicketNumber,
				"changes":       changes,
			}, &ticket.ID, nil)
			_ = s.audit.LogTicketAction(ctx, ticket.ID, &actor.ID, domain.TicketActionUpdated,
				map[string]any{"changes": changes}, previousValues)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if len(changes) > 0 {
		s.publishEvent(ctx, events.Event{
			Type:         events.EventTicketUpdated,
			TicketID:     ticket.ID,
			TicketNumber: ticket.TicketNumber,
			ActorID:      &actor.ID,
			Payload:      events.TicketUpdatedPayload{Changes: changes},
		})
		s.logger.Info("ticket updated",
			zap.String("ticket_number", ticket.TicketNumber),
			zap.String("updated_by", actor.ID))
	}
	return ticket, nil
}

// Close closes a ticket. Closing is not idempotent: closing an already-closed
// ticket is a validation error.
func (s *TicketService) Close(ctx context.Context, ticketID string, actor domain.Actor, reason string, ip *string) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	var previousStatus domain.TicketStatus

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.getForMutation(ctx, ticketID)
		if err != nil {
			return err
		}
		if !authz.CanUpdateTicket(actor, ticket) {
			return apperrors.NewPermissionDenied("You don't have permission to close this ticket")
		}
		if ticket.Status == domain.TicketStatusClosed {
			return apperrors.NewValidationError("Ticket is already closed", nil)
		}

		previousStatus = ticket.Status
		ticket.Status = domain.TicketStatusClosed
		ticket.UpdatedBy = actor.ID
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}

		_ = s.audit.LogUserAction(ctx, actor.ID, domain.UserActionTicketClosed, map[string]any{
			"ticket_id":       ticket.ID,
			"ticket_number":   ticket.TicketNumber,
			"reason":          reason,
			"previous_status": string(previousStatus),
		}, &ticket.ID, ip)
		_ = s.audit.LogTicketAction(ctx, ticket.ID, &actor.ID, domain.TicketActionClosed,
			map[string]any{"reason": reason},
			map[string]any{"status": string(previousStatus)})
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketClosed,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		ActorID:      &actor.ID,
		Payload:      events.TicketClosedPayload{PreviousStatus: previousStatus, Reason: reason},
	})
	s.logger.Info("ticket closed",
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("closed_by", actor.ID))
	return ticket, nil
}

// Renew extends the expiration date by the given number of days (default 15).
func (s *TicketService) Renew(ctx context.Context, ticketID string, actor domain.Actor, days int, ip *string) (*domain.Ticket, error) {
	if days == 0 {
		days = 15
	}
	if days < 1 || days > 365 {
		return nil, apperrors.NewValidationError("Days must be between 1 and 365", map[string]any{"days": days})
	}

	var ticket *domain.Ticket
	var previousExpiration time.Time

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.getForMutation(ctx, ticketID)
		if err != nil {
			return err
		}
		if !authz.CanRenewTicket(actor, ticket) {
			return apperrors.NewPermissionDenied("You don't have permission to renew this ticket")
		}

		previousExpiration = ticket.ExpirationDate
		ticket.ExpirationDate = ticket.ExpirationDate.AddDate(0, 0, days)
		ticket.UpdatedBy = actor.ID
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}

		_ = s.audit.LogUserAction(ctx, actor.ID, domain.UserActionTicketRenewed, map[string]any{
			"ticket_id":           ticket.ID,
			"ticket_number":       ticket.TicketNumber,
			"days_extended":       days,
			"previous_expiration": previousExpiration.Format(time.RFC3339),
			"new_expiration":      ticket.ExpirationDate.Format(time.RFC3339),
		}, &ticket.ID, ip)
		_ = s.audit.LogTicketAction(ctx, ticket.ID, &actor.ID, domain.TicketActionRenewed,
			map[string]any{
				"days_extended":  days,
				"new_expiration": ticket.ExpirationDate.Format(time.RFC3339),
			},
			map[string]any{"expiration_date": previousExpiration.Format(time.RFC3339)})
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketRenewed,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		ActorID:      &actor.ID,
		Payload: events.TicketRenewedPayload{
			DaysExtended:       days,
			PreviousExpiration: previousExpiration,
			NewExpiration:      ticket.ExpirationDate,
		},
	})
	s.logger.Info("ticket renewed",
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("renewed_by", actor.ID),
		zap.Int("days", days))
	return ticket, nil
}

// Assign reassigns a ticket to another active contractor. Admin only.
func (s *TicketService) Assign(ctx context.Context, ticketID, newContractorID string, actor domain.Actor, ip *string) (*domain.Ticket, error) {
	if !authz.CanAssignTicket(actor) {
		return nil, apperrors.NewPermissionDenied("You don't have permission to assign tickets")
	}

	newAssignee, err := s.users.GetByID(ctx, newContractorID)
	if err != nil || newAssignee.Role != domain.RoleContractor || !newAssignee.Active {
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		return nil, apperrors.NewValidationError("Invalid contractor for assignment", nil)
	}

	var ticket *domain.Ticket
	var previousAssignee *domain.User

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.getForMutation(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.AssignedContractor == newAssignee.ID {
			return apperrors.NewValidationError("Ticket is already assigned to this contractor", nil)
		}
		previousAssignee, err = s.users.GetByID(ctx, ticket.AssignedContractor)
		if err != nil {
			return err
		}

		ticket.AssignedContractor = newAssignee.ID
		ticket.UpdatedBy = actor.ID
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}

		_ = s.audit.LogUserAction(ctx, actor.ID, domain.UserActionTicketAssigned, map[string]any{
			"ticket_id":         ticket.ID,
			"ticket_number":     ticket.TicketNumber,
			"previous_assignee": previousAssignee.Email,
			"new_assignee":      newAssignee.Email,
		}, &ticket.ID, ip)
		_ = s.audit.LogTicketAction(ctx, ticket.ID, &actor.ID, domain.TicketActionAssigned,
			map[string]any{"new_assignee": newAssignee.Email},
			map[string]any{"assigned_contractor": previousAssignee.Email})
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketAssigned,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		ActorID:      &actor.ID,
		Payload: events.TicketAssignedPayload{
			PreviousContractor: previousAssignee.Email,
			NewContractor:      newAssignee.Email,
		},
	})
	s.logger.Info("ticket assigned",
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("new_assignee", newAssignee.ID),
		zap.String("assigned_by", actor.ID))
	return ticket, nil
}

func (s *TicketService) getForMutation(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("Ticket not found", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func fieldChange(old, new any) map[string]any {
	return map[string]any{"old": old, "new": new}
}
