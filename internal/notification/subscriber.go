package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fieldops/workorder-service/internal/events"
)

// SubscribeTicketEvents forwards assignment and expiry events to the alert
// sink so contractors hear about tickets that land on or leave their plate.
func SubscribeTicketEvents(dispatcher events.Dispatcher, sink Sink, logger *zap.Logger) {
	dispatcher.Subscribe(events.EventTicketAssigned, func(ctx context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.TicketAssignedPayload)
		if !ok {
			return nil
		}
		message := fmt.Sprintf("Ticket %s reassigned from %s to %s",
			event.TicketNumber, payload.PreviousContractor, payload.NewContractor)
		if err := sink.Send(ctx, message); err != nil {
			logger.Error("assignment notification failed",
				zap.String("ticket_number", event.TicketNumber),
				zap.Error(err))
		}
		return nil
	})

	dispatcher.Subscribe(events.EventTicketExpired, func(ctx context.Context, event events.Event) error {
		message := fmt.Sprintf("Ticket %s was automatically closed after expiring", event.TicketNumber)
		if err := sink.Send(ctx, message); err != nil {
			logger.Error("expiry notification failed",
				zap.String("ticket_number", event.TicketNumber),
				zap.Error(err))
		}
		return nil
	})
}
