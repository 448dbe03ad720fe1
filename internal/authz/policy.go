// Package authz holds the pure authorization predicates consulted before
// every read or write. Predicates have no side effects and fail closed:
// unauthenticated actors and unrecognized roles are always denied.
package authz

import "github.com/fieldops/workorder-service/internal/domain"

// CanCreateTicket allows ticket creation for admins only.
func CanCreateTicket(actor domain.Actor) bool {
	return actor.Authenticated && actor.Role == domain.RoleAdmin
}

// CanViewTicket allows admins, and contractors who created or are assigned
// the ticket.
func CanViewTicket(actor domain.Actor, ticket *domain.Ticket) bool {
	if !actor.Authenticated || ticket == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleContractor:
		return ticket.AssignedContractor == actor.ID || ticket.CreatedBy == actor.ID
	default:
		return false
	}
}

// CanUpdateTicket allows admins, and assigned contractors while the ticket is
// not closed.
func CanUpdateTicket(actor domain.Actor, ticket *domain.Ticket) bool {
	if !actor.Authenticated || ticket == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleContractor:
		return ticket.AssignedContractor == actor.ID && ticket.Status != domain.TicketStatusClosed
	default:
		return false
	}
}

// CanRenewTicket allows admins and assigned contractors. There is no status
// restriction: renewing a closed ticket is permitted by this predicate.
func CanRenewTicket(actor domain.Actor, ticket *domain.Ticket) bool {
	if !actor.Authenticated || ticket == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleContractor:
		return ticket.AssignedContractor == actor.ID
	default:
		return false
	}
}

// CanAssignTicket allows ticket assignment for admins only.
func CanAssignTicket(actor domain.Actor) bool {
	return actor.Authenticated && actor.Role == domain.RoleAdmin
}

// CanManageTickets allows administrative ticket management (contractor
// rosters, system-wide views) for admins only.
func CanManageTickets(actor domain.Actor) bool {
	return actor.Authenticated && actor.Role == domain.RoleAdmin
}

// CanManageUsers allows role/active changes on other users for admins only.
func CanManageUsers(actor domain.Actor) bool {
	return actor.Authenticated && actor.Role == domain.RoleAdmin
}
