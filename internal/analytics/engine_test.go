// ABOUTME: Tests for the scoring heuristics against the shared sample data
// ABOUTME: Checks rankings, eligibility filters, chip logic and league summaries

package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curphey/fpl-sub000/internal/fpl"
	"github.com/curphey/fpl-sub000/internal/fpl/fpltest"
)

func TestCaptainPicks(t *testing.T) {
	snap := fpltest.Snapshot()
	picks := New().CaptainPicks(snap, 3)

	require.Len(t, picks, 3)
	top := picks[0]
	assert.Equal(t, fpltest.Salah, top.Player.ID)
	assert.Equal(t, "SHU", top.Opponent)
	assert.True(t, top.Home)
	assert.Equal(t, 2, top.Difficulty)
	assert.InDelta(t, 12.07, top.Score, 0.01)
	assert.Equal(t, fpltest.Haaland, picks[1].Player.ID)

	for i := 1; i < len(picks); i++ {
		assert.GreaterOrEqual(t, picks[i-1].Score, picks[i].Score)
	}
}

func TestCaptainPicks_ExcludesKeepersAndInjured(t *testing.T) {
	snap := fpltest.Snapshot()
	for _, p := range New().CaptainPicks(snap, 100) {
		assert.NotEqual(t, "GKP", p.Player.Position)
		assert.NotEqual(t, fpltest.Injured, p.Player.ID)
	}
}

func TestTransferSuggestions_WithSquad(t *testing.T) {
	snap := fpltest.Snapshot()
	got := New().TransferSuggestions(snap, []int{fpltest.Watkins, fpltest.Injured}, 3.5, 5)

	require.Len(t, got, 1)
	s := got[0]
	require.NotNil(t, s.Out)
	assert.Equal(t, fpltest.Injured, s.Out.ID)
	assert.Equal(t, fpltest.Saka, s.In.ID)
	assert.InDelta(t, 7.0, s.ScoreGain, 0.01)
	assert.Contains(t, s.Reason, "unavailable (Knee injury)")
}

func TestTransferSuggestions_WithoutSquad(t *testing.T) {
	snap := fpltest.Snapshot()
	got := New().TransferSuggestions(snap, nil, 6.0, 10)

	require.NotEmpty(t, got)
	for i, s := range got {
		assert.Nil(t, s.Out)
		assert.LessOrEqual(t, s.In.Price, 6.0)
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].ScoreGain, s.ScoreGain)
		}
	}
}

func TestChipAdvice(t *testing.T) {
	snap := fpltest.Snapshot()
	e := New()

	t.Run("triple captain on a standout pick", func(t *testing.T) {
		advice := e.ChipAdvice(snap, nil)
		assert.Equal(t, fpltest.NextGW, advice.Gameweek)
		assert.Equal(t, []string{ChipWildcard, ChipFreeHit, ChipBenchBoost, ChipTripleCapt}, advice.Available)
		assert.Equal(t, ChipTripleCapt, advice.Recommended)
		assert.Contains(t, advice.Recommendation, "M.Salah")
	})

	t.Run("save when triple captain is gone", func(t *testing.T) {
		advice := e.ChipAdvice(snap, []fpl.ChipPlay{{Name: ChipTripleCapt, Event: 2}})
		assert.NotContains(t, advice.Available, ChipTripleCapt)
		assert.Empty(t, advice.Recommended)
		assert.Contains(t, advice.Recommendation, "Save")
	})

	t.Run("nothing left", func(t *testing.T) {
		var used []fpl.ChipPlay
		for _, c := range []string{ChipWildcard, ChipFreeHit, ChipBenchBoost, ChipTripleCapt} {
			used = append(used, fpl.ChipPlay{Name: c})
		}
		advice := e.ChipAdvice(snap, used)
		assert.Empty(t, advice.Available)
		assert.Equal(t, "All chips have been played.", advice.Recommendation)
	})
}

func TestAnalyzeLeague(t *testing.T) {
	var standings fpl.LeagueStandings
	standings.League.ID = 314
	standings.League.Name = "Office League"
	standings.Standings.Results = []fpl.Standing{
		{Entry: 1, EntryName: "Klopp Fiction", PlayerName: "Ann", Rank: 1, LastRank: 2, Total: 320, EventTotal: 55},
		{Entry: 2, EntryName: "Saka Potatoes", PlayerName: "Bo", Rank: 2, LastRank: 1, Total: 310, EventTotal: 40},
		{Entry: 3, EntryName: "Haal Monitor", PlayerName: "Cy", Rank: 3, LastRank: 6, Total: 300, EventTotal: 71},
	}
	me := 2

	a := New().AnalyzeLeague(&standings, &me)
	assert.Equal(t, "Klopp Fiction", a.Leader)
	require.Len(t, a.Rows, 3)
	assert.Equal(t, 10, a.Rows[1].GapToLeader)
	assert.True(t, a.Rows[1].IsYou)
	assert.Equal(t, -1, a.Rows[1].Movement)
	require.NotNil(t, a.BiggestRise)
	assert.Equal(t, "Haal Monitor", a.BiggestRise.TeamName)
	require.NotNil(t, a.BestWeek)
	assert.Equal(t, 71, a.BestWeek.EventTotal)
	assert.Equal(t, "Klopp Fiction lead Office League on 320 points. You are 2nd, 10 behind.", a.Summary)
}

func TestAnalyzeLeague_Empty(t *testing.T) {
	a := New().AnalyzeLeague(&fpl.LeagueStandings{}, nil)
	assert.Empty(t, a.Rows)
	assert.Equal(t, "The league has no entries yet.", a.Summary)
}
