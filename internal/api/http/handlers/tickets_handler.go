package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/workorder-service/internal/api/dto"
	"github.com/fieldops/workorder-service/internal/auth"
	"github.com/fieldops/workorder-service/internal/clock"
	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/service"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

// TicketsHandler serves the ticket CRUD and lifecycle endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	queries *service.QueryService
	clock   clock.Clock
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, queries *service.QueryService, clk clock.Clock) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, queries: queries, clock: clk}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)

	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Organization) == "" || strings.TrimSpace(req.Location) == "" {
		return apperrors.NewValidationError("organization and location are required", nil)
	}
	if req.ExpirationDate.IsZero() {
		return apperrors.NewValidationError("expiration_date is required", nil)
	}
	if req.AssignedContractor == "" {
		return apperrors.NewValidationError("assigned_contractor is required", nil)
	}

	ticket, err := h.tickets.Create(c.UserContext(), actor, service.CreateTicketInput{
		Organization:   req.Organization,
		Location:       req.Location,
		Notes:          req.Notes,
		ExpirationDate: req.ExpirationDate,
		ContractorID:   req.AssignedContractor,
		IPAddress:      clientIP(c),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, h.clock.Now())})
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	params := parsePageParams(c)

	query := service.TicketQuery{
		Limit:  params.PageSize,
		Offset: params.Offset(),
	}
	if statusStr := strings.TrimSpace(c.Query("status")); statusStr != "" {
		status := domain.TicketStatus(statusStr)
		if !status.Valid() {
			return apperrors.NewValidationError("Invalid status", map[string]any{"status": statusStr})
		}
		query.Status = &status
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query.Search = &search
	}

	tickets, total, err := h.queries.TicketsForUser(c.UserContext(), actor, query)
	if err != nil {
		return err
	}
	results := dto.TicketsFromDomain(tickets, h.clock.Now())
	return c.JSON(paginate(c, params, total, results))
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	ticket, err := h.queries.TicketByID(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, h.clock.Now())})
}

// Update PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)

	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.Update(c.UserContext(), c.Params("id"), actor, service.UpdateTicketInput{
		Organization:   req.Organization,
		Status:         req.Status,
		Location:       req.Location,
		Notes:          req.Notes,
		ExpirationDate: req.ExpirationDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, h.clock.Now())})
}

// Close POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)

	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.Close(c.UserContext(), c.Params("id"), actor, req.Reason, clientIP(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, h.clock.Now())})
}

// Renew POST /tickets/:id/renew.
func (h *TicketsHandler) Renew(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)

	var req dto.RenewTicketRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.Renew(c.UserContext(), c.Params("id"), actor, req.Days, clientIP(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, h.clock.Now())})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)

	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ContractorID == "" {
		return apperrors.NewValidationError("contractor_id is required", nil)
	}

	ticket, err := h.tickets.Assign(c.UserContext(), c.Params("id"), req.ContractorID, actor, clientIP(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, h.clock.Now())})
}

// AuditTrail GET /tickets/:id/logs.
func (h *TicketsHandler) AuditTrail(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	limit := parseInt(c.Query("limit"), 50)

	entries, err := h.queries.AuditTrail(c.UserContext(), actor, c.Params("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries})
}

// Expiring GET /tickets/expiring.
func (h *TicketsHandler) Expiring(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	hours := parseInt(c.Query("hours"), 0)

	tickets, err := h.queries.ExpiringTickets(c.UserContext(), actor, hours)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketsFromDomain(tickets, h.clock.Now())})
}

// Stats GET /tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	stats, err := h.queries.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Reports GET /tickets/reports. Admin-only summary breakdowns.
func (h *TicketsHandler) Reports(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)

	byStatus, err := h.queries.TicketSummaryByStatus(c.UserContext(), actor)
	if err != nil {
		return err
	}
	byContractor, err := h.queries.TicketSummaryByContractor(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"by_status":     byStatus,
		"by_contractor": byContractor,
	}})
}
