package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatusValid(t *testing.T) {
	assert.True(t, TicketStatusOpen.Valid())
	assert.True(t, TicketStatusInProgress.Valid())
	assert.True(t, TicketStatusClosed.Valid())
	assert.False(t, TicketStatus("cancelled").Valid())
	assert.False(t, TicketStatus("").Valid())
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	ticket := &Ticket{ExpirationDate: now.Add(time.Minute)}
	assert.False(t, ticket.IsExpired(now))

	ticket.ExpirationDate = now
	assert.False(t, ticket.IsExpired(now), "expiring exactly now is not yet expired")

	ticket.ExpirationDate = now.Add(-time.Second)
	assert.True(t, ticket.IsExpired(now))
}

func TestIsExpiringSoon(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		remaining time.Duration
		want      bool
	}{
		{"well in the future", 72 * time.Hour, false},
		{"just outside the window", 48*time.Hour + time.Second, false},
		{"exactly at the window", 48 * time.Hour, true},
		{"inside the window", 12 * time.Hour, true},
		{"already expired", -time.Hour, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket := &Ticket{ExpirationDate: now.Add(tc.remaining)}
			assert.Equal(t, tc.want, ticket.IsExpiringSoon(now))
		})
	}
}

func TestExpiredImpliesExpiringSoon(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ticket := &Ticket{ExpirationDate: now.Add(-24 * time.Hour)}

	assert.True(t, ticket.IsExpired(now))
	assert.True(t, ticket.IsExpiringSoon(now))
}
