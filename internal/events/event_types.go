package events

import (
	"time"

	"github.com/fieldops/workorder-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketUpdated  EventType = "ticket_updated"
	EventTicketAssigned EventType = "ticket_assigned"
	EventTicketRenewed  EventType = "ticket_renewed"
	EventTicketClosed   EventType = "ticket_closed"
	EventTicketExpired  EventType = "ticket_expired"
)

// Event represents a domain event emitted by services. A nil ActorID marks a
// system-initiated event such as the auto-expire sweep.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	TicketID     string      `json:"ticket_id"`
	TicketNumber string      `json:"ticket_number"`
	ActorID      *string     `json:"actor_id,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Organization       string    `json:"organization"`
	Location           string    `json:"location"`
	AssignedContractor string    `json:"assigned_contractor"`
	ExpirationDate     time.Time `json:"expiration_date"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Changes map[string]any `json:"changes"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	PreviousContractor string `json:"previous_contractor"`
	NewContractor      string `json:"new_contractor"`
}

// TicketRenewedPayload payload.
type TicketRenewedPayload struct {
	DaysExtended       int       `json:"days_extended"`
	PreviousExpiration time.Time `json:"previous_expiration"`
	NewExpiration      time.Time `json:"new_expiration"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	PreviousStatus domain.TicketStatus `json:"previous_status"`
	Reason         string              `json:"reason,omitempty"`
}
