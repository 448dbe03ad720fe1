package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/workorder-service/internal/domain"
)

func TestBuildTicketClausesVisibilityScope(t *testing.T) {
	userID := "carol"
	clauses, args := buildTicketClauses(TicketFilter{InvolvedUserID: &userID})

	require.Len(t, args, 1)
	assert.Equal(t, "carol", args[0])
	assert.Contains(t, clauses, "(created_by=$1 OR assigned_contractor=$1)")
}

func TestBuildTicketClausesCombined(t *testing.T) {
	userID := "carol"
	status := domain.TicketStatusOpen
	search := "  Acme  "
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	clauses, args := buildTicketClauses(TicketFilter{
		InvolvedUserID: &userID,
		Status:         &status,
		Search:         &search,
		ExpiresBefore:  &now,
	})

	require.Len(t, args, 4)
	assert.Equal(t, "%acme%", args[2], "search is trimmed and lowercased")
	assert.Contains(t, clauses, "status=$2")
	assert.Contains(t, clauses, "expiration_date <= $4")
}

func TestBuildTicketClausesIgnoresBlankSearch(t *testing.T) {
	search := "   "
	clauses, args := buildTicketClauses(TicketFilter{Search: &search})

	assert.Empty(t, args)
	assert.Equal(t, []string{"1=1"}, clauses)
}

func TestBuildTicketClausesStatusSet(t *testing.T) {
	clauses, args := buildTicketClauses(TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
	})

	require.Len(t, args, 2)
	assert.Contains(t, clauses, "status IN ($1,$2)")
}

func TestMapInsertErrorDetectsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "tickets_ticket_number_key"}
	err := mapInsertError(fmt.Errorf("insert: %w", pgErr))

	assert.True(t, IsDuplicate(err))
	assert.Contains(t, err.Error(), "tickets_ticket_number_key")

	other := errors.New("connection refused")
	assert.False(t, IsDuplicate(mapInsertError(other)))
	assert.NoError(t, mapInsertError(nil))
}
