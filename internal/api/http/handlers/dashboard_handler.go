package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/workorder-service/internal/api/dto"
	"github.com/fieldops/workorder-service/internal/auth"
	"github.com/fieldops/workorder-service/internal/clock"
	"github.com/fieldops/workorder-service/internal/service"
)

// DashboardHandler serves the landing-page composition endpoint.
type DashboardHandler struct {
	queries *service.QueryService
	clock   clock.Clock
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(queries *service.QueryService, clk clock.Clock) *DashboardHandler {
	return &DashboardHandler{queries: queries, clock: clk}
}

type dashboardResponse struct {
	Stats               service.TicketStats     `json:"stats"`
	RecentTickets       []dto.TicketResponse    `json:"recent_tickets"`
	ExpiringTickets     []dto.TicketResponse    `json:"expiring_tickets"`
	RecentActivity      []service.ActivityEntry `json:"recent_activity"`
	Contractors         []dto.UserResponse      `json:"contractors,omitempty"`
	TotalUsers          int64                   `json:"total_users,omitempty"`
	ActiveContractors   int64                   `json:"active_contractors,omitempty"`
	TicketsCreatedToday int64                   `json:"tickets_created_today,omitempty"`
}

// Get GET /dashboard.
func (h *DashboardHandler) Get(c *fiber.Ctx) error {
	actor := auth.ActorFromContext(c)
	dashboard, err := h.queries.BuildDashboard(c.UserContext(), actor)
	if err != nil {
		return err
	}

	now := h.clock.Now()
	resp := dashboardResponse{
		Stats:               dashboard.Stats,
		RecentTickets:       dto.TicketsFromDomain(dashboard.RecentTickets, now),
		ExpiringTickets:     dto.TicketsFromDomain(dashboard.ExpiringTickets, now),
		RecentActivity:      dashboard.RecentActivity,
		TotalUsers:          dashboard.TotalUsers,
		ActiveContractors:   dashboard.ActiveContractors,
		TicketsCreatedToday: dashboard.TicketsCreatedToday,
	}
	if dashboard.Contractors != nil {
		resp.Contractors = dto.UsersFromDomain(dashboard.Contractors)
	}
	return c.JSON(fiber.Map{"data": resp})
}
