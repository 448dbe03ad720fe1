package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether the status belongs to the closed set.
func (s TicketStatus) Valid() bool {
	return s == TicketStatusOpen || s == TicketStatusInProgress || s == TicketStatusClosed
}

// ExpiringSoonWindow is the remaining-time threshold used for expiration
// alerts and the expiring_soon derived property.
const ExpiringSoonWindow = 48 * time.Hour

// Ticket is the central work-order entity.
type Ticket struct {
	ID                 string
	TicketNumber       string
	Organization       string
	Location           string
	Notes              string
	Status             TicketStatus
	ExpirationDate     time.Time
	AssignedContractor string
	CreatedBy          string
	UpdatedBy          string
	CreatedDate        time.Time
	UpdatedAt          time.Time
}

// IsExpired reports whether the ticket's expiration date has passed.
func (t *Ticket) IsExpired(now time.Time) bool {
	return now.After(t.ExpirationDate)
}

// IsExpiringSoon reports whether the ticket has 48 hours or less remaining.
// Already-expired tickets have non-positive remaining time and therefore also
// report true.
func (t *Ticket) IsExpiringSoon(now time.Time) bool {
	return t.ExpirationDate.Sub(now) <= ExpiringSoonWindow
}
