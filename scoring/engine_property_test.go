package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/basui01/promptgate/types"
)

// TestProperty_FinalScore_InBounds validates spec invariant 6: final_score
// is always in [0,1] regardless of snapshot inputs.
func TestProperty_FinalScore_InBounds(t *testing.T) {
	engine := NewEngine()
	rapid.Check(t, func(rt *rapid.T) {
		snap := ProviderSnapshot{
			ID:         types.ProviderID(rapid.SampledFrom([]string{"A", "B", "C", "D"}).Draw(rt, "id")),
			Status:     Status(rapid.SampledFrom([]string{string(StatusAvailable), string(StatusCooldown), string(StatusUnavailable)}).Draw(rt, "status")),
			ErrorCount: rapid.IntRange(0, 50).Draw(rt, "errorCount"),
			LastUsed:   rapid.Bool().Draw(rt, "lastUsed"),
			Stability:  rapid.Float64Range(0, 1).Draw(rt, "stability"),
		}

		report := engine.Score(snap)
		assert.GreaterOrEqual(t, report.FinalScore, 0.0)
		assert.LessOrEqual(t, report.FinalScore, 1.0)

		qreport, _ := engine.ScoreForQuery("write a Python function", snap)
		assert.GreaterOrEqual(t, qreport.FinalScore, 0.0)
		assert.LessOrEqual(t, qreport.FinalScore, 1.0)
	})
}

// TestProperty_Epsilon_Bounded validates the tie-breaker stays within the
// spec's declared [-0.02, 0.02] band and is stable across repeated calls.
func TestProperty_Epsilon_Bounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := types.ProviderID(rapid.SampledFrom([]string{"A", "B", "C", "D"}).Draw(rt, "id"))
		e1 := epsilon(id)
		e2 := epsilon(id)
		assert.Equal(t, e1, e2)
		assert.GreaterOrEqual(t, e1, -0.02)
		assert.LessOrEqual(t, e1, 0.02)
	})
}

func TestRankGeneral_SortedDescending(t *testing.T) {
	engine := NewEngine()
	snaps := []ProviderSnapshot{
		{ID: types.ProviderA, Status: StatusAvailable, Stability: 0.9},
		{ID: types.ProviderB, Status: StatusCooldown, Stability: 0.5},
		{ID: types.ProviderC, Status: StatusUnavailable, Stability: 0.2},
		{ID: types.ProviderD, Status: StatusAvailable, Stability: 0.6},
	}
	ranked := engine.RankGeneral(snaps)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].FinalScore, ranked[i].FinalScore)
	}
}

func TestBestTwo_ReturnsTopTwo(t *testing.T) {
	engine := NewEngine()
	snaps := []ProviderSnapshot{
		{ID: types.ProviderA, Status: StatusAvailable, Stability: 0.9},
		{ID: types.ProviderB, Status: StatusCooldown, Stability: 0.5},
		{ID: types.ProviderC, Status: StatusUnavailable, Stability: 0.2},
	}
	ranked := engine.RankGeneral(snaps)
	top2 := BestTwo(ranked)
	assert.Len(t, top2, 2)
	assert.Equal(t, ranked[0], top2[0])
	assert.Equal(t, ranked[1], top2[1])
}

func TestClassifyTask_Coding(t *testing.T) {
	assert.Equal(t, TaskCoding, ClassifyTask("write a Python function to sort a list"))
}

func TestClassifyTask_General_NoMatch(t *testing.T) {
	assert.Equal(t, TaskGeneral, ClassifyTask("hello there"))
}
