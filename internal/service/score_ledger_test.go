package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
)

func TestScoreEventDeltas(t *testing.T) {
	assert.Equal(t, 4, ScoreResolvedOnTime.Delta())
	assert.Equal(t, -5, ScoreSLABreach.Delta())
	assert.Equal(t, -7, ScoreEscalatedFrom.Delta())
	assert.Equal(t, -3, ScoreReopened.Delta())
	assert.Equal(t, 0, ScoreEvent("UNKNOWN").Delta())
}

func TestScoreLedger_ClampsAtBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	low := f.addUser(t, "low", domain.RoleWarden, "")
	require.NoError(t, f.users.UpdateScore(ctx, low.ID, 3))
	for i := 0; i < 3; i++ {
		_, err := f.ledger.Apply(ctx, &low.ID, ScoreEscalatedFrom)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, f.score(t, low.ID))

	high := f.addUser(t, "high", domain.RoleHOD, "cse")
	score, err := f.ledger.Apply(ctx, &high.ID, ScoreResolvedOnTime)
	require.NoError(t, err)
	assert.Equal(t, 100, score)
}

func TestScoreLedger_MissingAuthorityIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	score, err := f.ledger.Apply(ctx, nil, ScoreSLABreach)
	require.NoError(t, err)
	assert.Zero(t, score)

	empty := ""
	_, err = f.ledger.Apply(ctx, &empty, ScoreSLABreach)
	require.NoError(t, err)

	ghost := "00000000-0000-0000-0000-000000000000"
	_, err = f.ledger.Apply(ctx, &ghost, ScoreSLABreach)
	require.NoError(t, err)
	assert.Empty(t, f.eventsOf(events.EventScoreAdjusted))
}

func TestScoreLedger_ConcurrentAppliesDoNotLoseUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "admin", domain.RoleAdmin, "")
	require.NoError(t, f.users.UpdateScore(ctx, admin.ID, 50))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Apply(ctx, &admin.ID, ScoreReopened)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, f.score(t, admin.ID))
	assert.Len(t, f.eventsOf(events.EventScoreAdjusted), 10)
}
