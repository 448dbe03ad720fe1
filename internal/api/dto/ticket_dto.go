package dto

import (
	"time"

	"github.com/fieldops/workorder-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Organization       string    `json:"organization"`
	Location           string    `json:"location"`
	Notes              string    `json:"notes"`
	ExpirationDate     time.Time `json:"expiration_date"`
	AssignedContractor string    `json:"assigned_contractor"`
}

// UpdateTicketRequest payload; absent fields stay untouched.
type UpdateTicketRequest struct {
	Organization   *string              `json:"organization"`
	Status         *domain.TicketStatus `json:"status"`
	Location       *string              `json:"location"`
	Notes          *string              `json:"notes"`
	ExpirationDate *time.Time           `json:"expiration_date"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Reason string `json:"reason"`
}

// RenewTicketRequest payload. Days defaults to 15.
type RenewTicketRequest struct {
	Days int `json:"days"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	ContractorID string `json:"contractor_id"`
}

// TicketResponse is the wire form of a ticket, including the derived
// expiration flags.
type TicketResponse struct {
	ID                 string              `json:"id"`
	TicketNumber       string              `json:"ticket_number"`
	Organization       string              `json:"organization"`
	Location           string              `json:"location"`
	Notes              string              `json:"notes"`
	Status             domain.TicketStatus `json:"status"`
	ExpirationDate     time.Time           `json:"expiration_date"`
	AssignedContractor string              `json:"assigned_contractor"`
	CreatedBy          string              `json:"created_by"`
	UpdatedBy          string              `json:"updated_by"`
	CreatedDate        time.Time           `json:"created_date"`
	UpdatedAt          time.Time           `json:"updated_at"`
	IsExpired          bool                `json:"is_expired"`
	IsExpiringSoon     bool                `json:"is_expiring_soon"`
}

// PaginatedResponse is the list envelope.
type PaginatedResponse struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// TicketFromDomain converts a domain ticket, deriving the expiration flags
// against the supplied time.
func TicketFromDomain(ticket *domain.Ticket, now time.Time) TicketResponse {
	return TicketResponse{
		ID:                 ticket.ID,
		TicketNumber:       ticket.TicketNumber,
		Organization:       ticket.Organization,
		Location:           ticket.Location,
		Notes:              ticket.Notes,
		Status:             ticket.Status,
		ExpirationDate:     ticket.ExpirationDate,
		AssignedContractor: ticket.AssignedContractor,
		CreatedBy:          ticket.CreatedBy,
		UpdatedBy:          ticket.UpdatedBy,
		CreatedDate:        ticket.CreatedDate,
		UpdatedAt:          ticket.UpdatedAt,
		IsExpired:          ticket.IsExpired(now),
		IsExpiringSoon:     ticket.IsExpiringSoon(now),
	}
}

// TicketsFromDomain converts a slice of domain tickets.
func TicketsFromDomain(tickets []domain.Ticket, now time.Time) []TicketResponse {
	result := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, TicketFromDomain(&tickets[i], now))
	}
	return result
}
