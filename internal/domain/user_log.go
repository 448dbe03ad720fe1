package domain

import "time"

// UserAction enumerates auditable actions attributable to a user. The
// vocabulary covers account events plus ticket action mirrors recorded from
// the actor's point of view.
type UserAction string

const (
	UserActionLogin            UserAction = "login"
	UserActionLogout           UserAction = "logout"
	UserActionProfileUpdate    UserAction = "profile_update"
	UserActionPasswordChange   UserAction = "password_change"
	UserActionTwoFactorEnable  UserAction = "two_factor_enable"
	UserActionTwoFactorDisable UserAction = "two_factor_disable"
	UserActionTicketCreated    UserAction = "ticket_created"
	UserActionTicketUpdated    UserAction = "ticket_updated"
	UserActionTicketClosed     UserAction = "ticket_closed"
	UserActionTicketRenewed    UserAction = "ticket_renewed"
	UserActionTicketAssigned   UserAction = "ticket_assigned"
)

// UserLog is an immutable append-only audit record of an action attributable
// to a user.
type UserLog struct {
	ID              string
	UserID          string
	Action          UserAction
	Timestamp       time.Time
	Details         map[string]any
	IPAddress       *string
	RelatedTicketID *string
}
