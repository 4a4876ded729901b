package progress

import (
	"testing"
	"time"

	"github.com/orbitdesk/ticketrouter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsert_OverwritesInProgressRow(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Upsert(models.StageOutcome{TicketID: "t1", BatchID: "b1", Stage: models.StagePIIScrub, Status: models.StatusInProgress}))
	require.NoError(t, s.Upsert(models.StageOutcome{TicketID: "t1", BatchID: "b1", Stage: models.StagePIIScrub, Status: models.StatusCompleted}))

	rows, err := s.ByTicket("t1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusCompleted, rows[0].Status)
}

func TestUpsert_NeverTransitionsAwayFromTerminal(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Upsert(models.StageOutcome{TicketID: "t1", BatchID: "b1", Stage: models.StagePIIScrub, Status: models.StatusCompleted}))
	require.NoError(t, s.Upsert(models.StageOutcome{TicketID: "t1", BatchID: "b1", Stage: models.StagePIIScrub, Status: models.StatusInProgress}))

	rows, err := s.ByTicket("t1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusCompleted, rows[0].Status)
}

func TestByBatch_ReturnsOnlyMatchingBatch(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Upsert(models.StageOutcome{TicketID: "t1", BatchID: "b1", Stage: models.StageSpamCheck, Status: models.StatusCompleted, Start: time.Now()}))
	require.NoError(t, s.Upsert(models.StageOutcome{TicketID: "t2", BatchID: "b2", Stage: models.StageSpamCheck, Status: models.StatusCompleted, Start: time.Now()}))

	rows, err := s.ByBatch("b1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t1", rows[0].TicketID)
}
