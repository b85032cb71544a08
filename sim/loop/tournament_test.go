package loop

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aipp-t/thermal-sim/sim"
	"github.com/aipp-t/thermal-sim/sim/control"
	"github.com/aipp-t/thermal-sim/sim/trace"
)

func TestTournament_AllStrategies_ResultsInOrder(t *testing.T) {
	// GIVEN the boiling-wall scenario and every strategy
	strategies := []string{control.StrategyUnmanaged, control.StrategyReactive, control.StrategyPredictive}

	// WHEN run concurrently
	results, err := Tournament(context.Background(), sim.DefaultScenario(), strategies, trace.TraceLevelScalars)

	// THEN one result per strategy comes back in the requested order
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, name := range strategies {
		assert.Equal(t, name, results[i].Strategy)
		assert.Equal(t, int64(800), results[i].SimTicks)
	}
	assert.False(t, results[2].Failed())
	assert.True(t, results[1].Failed())
}

func TestTournament_MatchesSequentialRun(t *testing.T) {
	// GIVEN the noisy mesh scenario
	sc := sim.DefaultMeshScenario()
	sc.Run.Duration = 0.03

	// WHEN the predictive strategy runs alone and inside a tournament
	alone, err := runScenario(t, sc, control.StrategyPredictive)
	require.NoError(t, err)
	results, err := Tournament(context.Background(), sc,
		[]string{control.StrategyUnmanaged, control.StrategyPredictive}, trace.TraceLevelScalars)
	require.NoError(t, err)

	// THEN concurrency does not change the outcome
	assert.Equal(t, alone.Trace.Ticks, results[1].Trace.Ticks)
}

func TestTournament_FatalViolation_OtherStrategiesComplete(t *testing.T) {
	// GIVEN a melt bound only the unprotected die reaches
	sc := sim.DefaultScenario()
	sc.Safety.MeltTemp = 100.0

	// WHEN the tournament runs
	results, err := Tournament(context.Background(), sc,
		[]string{control.StrategyUnmanaged, control.StrategyPredictive}, "")

	// THEN the violation is confined to the unmanaged result
	require.NoError(t, err)
	assert.True(t, errors.Is(results[0].Err, sim.ErrPhysicalViolation))
	assert.True(t, results[0].Summary.Fatal)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, int64(800), results[1].SimTicks)
	assert.False(t, results[1].Failed())
}

func TestTournament_InvalidInput_ReturnsError(t *testing.T) {
	_, err := Tournament(context.Background(), sim.DefaultScenario(), nil, "")
	assert.Error(t, err)

	_, err = Tournament(context.Background(), sim.DefaultScenario(), []string{"predictive", "oracle"}, "")
	assert.Error(t, err)
}

func TestTournament_CancelledContext_ReturnsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Tournament(ctx, sim.DefaultScenario(), []string{control.StrategyPredictive}, "")

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.Equal(t, int64(0), results[0].SimTicks)
}
