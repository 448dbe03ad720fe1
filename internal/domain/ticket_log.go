package domain

import "time"

// TicketAction enumerates auditable actions applied to one ticket.
type TicketAction string

const (
	TicketActionCreated       TicketAction = "created"
	TicketActionUpdated       TicketAction = "updated"
	TicketActionStatusChanged TicketAction = "status_changed"
	TicketActionAssigned      TicketAction = "assigned"
	TicketActionRenewed       TicketAction = "renewed"
	TicketActionClosed        TicketAction = "closed"
	TicketActionReopened      TicketAction = "reopened"
)

// TicketLog is an immutable append-only audit record of an action applied to
// one ticket. A nil ActionBy marks a system-initiated event such as automatic
// expiration.
type TicketLog struct {
	ID             string
	TicketID       string
	ActionBy       *string
	Action         TicketAction
	Timestamp      time.Time
	Details        map[string]any
	PreviousValues map[string]any
}
