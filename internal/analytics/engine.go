// ABOUTME: Deterministic form-and-fixture heuristics for captaincy, transfers, chips and leagues
// ABOUTME: Pure functions over an fpl.Snapshot; no I/O

package analytics

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/curphey/fpl-sub000/internal/fpl"
)

// Chip names as used by the FPL API.
const (
	ChipWildcard    = "wildcard"
	ChipFreeHit     = "freehit"
	ChipBenchBoost  = "bboost"
	ChipTripleCapt  = "3xc"
	fixtureHorizon  = 3
	maxDifficulty   = 5
	defaultPickSize = 5
)

// Engine scores players from form and upcoming fixture difficulty.
type Engine struct{}

// New returns an Engine.
func New() *Engine {
	return &Engine{}
}

// Ref builds a PlayerRef for p.
func Ref(snap *fpl.Snapshot, p fpl.Player) PlayerRef {
	return PlayerRef{
		ID:       p.ID,
		Name:     p.WebName,
		Team:     snap.TeamShortName(p.Team),
		Position: p.Position.String(),
		Price:    p.Price(),
	}
}

// Ease returns the mean fixture ease (5 minus difficulty, higher is easier)
// of team's next fixtures from gameweek gw, or a neutral 2 with none.
func Ease(snap *fpl.Snapshot, team, gw, horizon int) float64 {
	fixtures := snap.UpcomingFixtures(team, gw, horizon)
	if len(fixtures) == 0 {
		return 2
	}
	total := 0
	for _, f := range fixtures {
		total += maxDifficulty - f.DifficultyFor(team)
	}
	return float64(total) / float64(len(fixtures))
}

// Score is the expected-return heuristic used everywhere: form and points
// per game, scaled by fixture ease.
func Score(snap *fpl.Snapshot, p fpl.Player, gw int) float64 {
	if !p.Available() {
		return 0
	}
	base := 0.6*p.FormValue() + 0.4*decimal(p.PointsPerGame)
	multiplier := 0.7 + 0.15*Ease(snap, p.Team, gw, fixtureHorizon)
	return round(base * multiplier)
}

// CaptainPicks ranks available players for the planning gameweek.
func (e *Engine) CaptainPicks(snap *fpl.Snapshot, limit int) []CaptainPick {
	if limit <= 0 {
		limit = defaultPickSize
	}
	gw := snap.PlanningGameweek()

	picks := make([]CaptainPick, 0, len(snap.Players))
	for _, p := range snap.Players {
		if !p.Available() || p.Position == fpl.Goalkeeper {
			continue
		}
		fixtures := snap.UpcomingFixtures(p.Team, gw, 1)
		if len(fixtures) == 0 {
			continue
		}
		f := fixtures[0]
		home := f.TeamH == p.Team
		opponent := f.TeamA
		if !home {
			opponent = f.TeamH
		}
		difficulty := f.DifficultyFor(p.Team)

		score := 0.6*p.FormValue() + 0.4*decimal(p.PointsPerGame)
		score *= 0.7 + 0.15*float64(maxDifficulty-difficulty)
		if home {
			score *= 1.1
		}

		picks = append(picks, CaptainPick{
			Player:     Ref(snap, p),
			Score:      round(score),
			Form:       p.FormValue(),
			Opponent:   snap.TeamShortName(opponent),
			Home:       home,
			Difficulty: difficulty,
			Ownership:  p.Ownership(),
			Reason:     captainReason(p, snap.TeamShortName(opponent), home, difficulty),
		})
	}

	slices.SortStableFunc(picks, func(a, b CaptainPick) int {
		return cmp.Or(cmp.Compare(b.Score, a.Score), cmp.Compare(a.Player.ID, b.Player.ID))
	})
	return picks[:min(limit, len(picks))]
}

func captainReason(p fpl.Player, opponent string, home bool, difficulty int) string {
	venue := "away to"
	if home {
		venue = "at home to"
	}
	return fmt.Sprintf("form %.1f, %s %s (FDR %d)", p.FormValue(), venue, opponent, difficulty)
}

// TransferSuggestions proposes upgrades. With a squad, each weak or
// unavailable squad player is matched with the best affordable replacement
// in the same position; budget is money in the bank in millions. Without a
// squad, the best value players costing at most budget are listed.
func (e *Engine) TransferSuggestions(snap *fpl.Snapshot, squad []int, budget float64, limit int) []TransferSuggestion {
	if limit <= 0 {
		limit = defaultPickSize
	}
	gw := snap.PlanningGameweek()
	owned := make(map[int]bool, len(squad))
	for _, id := range squad {
		owned[id] = true
	}

	if len(squad) == 0 {
		return bestValue(snap, gw, budget, limit)
	}

	var out []TransferSuggestion
	for _, id := range squad {
		current, ok := snap.Player(id)
		if !ok {
			continue
		}
		currentScore := Score(snap, current, gw)
		maxPrice := current.Price() + budget

		var best *fpl.Player
		bestScore := currentScore
		for i := range snap.Players {
			cand := snap.Players[i]
			if owned[cand.ID] || cand.Position != current.Position || cand.Price() > maxPrice+1e-9 {
				continue
			}
			if s := Score(snap, cand, gw); s > bestScore {
				best, bestScore = &snap.Players[i], s
			}
		}
		if best == nil {
			continue
		}

		outRef := Ref(snap, current)
		reason := fmt.Sprintf("%s scores %.1f vs %.1f", best.WebName, bestScore, currentScore)
		if !current.Available() {
			reason = fmt.Sprintf("%s is unavailable (%s); %s", current.WebName, strings.TrimSpace(current.News), reason)
		}
		out = append(out, TransferSuggestion{
			Out:       &outRef,
			In:        Ref(snap, *best),
			ScoreGain: round(bestScore - currentScore),
			Reason:    reason,
		})
	}

	slices.SortStableFunc(out, func(a, b TransferSuggestion) int {
		return cmp.Compare(b.ScoreGain, a.ScoreGain)
	})
	return out[:min(limit, len(out))]
}

func bestValue(snap *fpl.Snapshot, gw int, budget float64, limit int) []TransferSuggestion {
	var out []TransferSuggestion
	for _, p := range snap.Players {
		if budget > 0 && p.Price() > budget+1e-9 {
			continue
		}
		s := Score(snap, p, gw)
		if s <= 0 {
			continue
		}
		out = append(out, TransferSuggestion{
			In:        Ref(snap, p),
			ScoreGain: s,
			Reason:    fmt.Sprintf("%.2f points-score per £m", s/math.Max(p.Price(), 0.1)),
		})
	}
	slices.SortStableFunc(out, func(a, b TransferSuggestion) int {
		return cmp.Or(cmp.Compare(b.ScoreGain, a.ScoreGain), cmp.Compare(a.In.ID, b.In.ID))
	})
	return out[:min(limit, len(out))]
}

// ChipAdvice recommends at most one chip for the planning gameweek given
// the chips already played.
func (e *Engine) ChipAdvice(snap *fpl.Snapshot, used []fpl.ChipPlay) ChipAdvice {
	gw := snap.PlanningGameweek()
	advice := ChipAdvice{Gameweek: gw}

	played := make(map[string]bool, len(used))
	for _, c := range used {
		played[c.Name] = true
	}
	for _, c := range []string{ChipWildcard, ChipFreeHit, ChipBenchBoost, ChipTripleCapt} {
		if !played[c] {
			advice.Available = append(advice.Available, c)
		}
	}

	teamEase := 0.0
	for _, t := range snap.Teams {
		teamEase += Ease(snap, t.ID, gw, 1)
	}
	if len(snap.Teams) > 0 {
		teamEase /= float64(len(snap.Teams))
	}

	picks := e.CaptainPicks(snap, 1)
	switch {
	case len(advice.Available) == 0:
		advice.Recommendation = "All chips have been played."
	case !played[ChipTripleCapt] && len(picks) > 0 && picks[0].Score >= 9 && picks[0].Difficulty <= 2:
		advice.Recommended = ChipTripleCapt
		advice.Recommendation = fmt.Sprintf("Triple captain %s this gameweek.", picks[0].Player.Name)
		advice.Reasons = append(advice.Reasons, picks[0].Reason)
	case !played[ChipBenchBoost] && teamEase >= 3:
		advice.Recommended = ChipBenchBoost
		advice.Recommendation = "Fixtures are kind across the board; a bench boost should pay."
		advice.Reasons = append(advice.Reasons, fmt.Sprintf("average fixture ease %.1f", teamEase))
	default:
		advice.Recommendation = "Save your chips; nothing stands out this gameweek."
		advice.Reasons = append(advice.Reasons, fmt.Sprintf("average fixture ease %.1f", teamEase))
	}
	return advice
}

// AnalyzeLeague summarises a league table from the perspective of managerID
// when it is set.
func (e *Engine) AnalyzeLeague(standings *fpl.LeagueStandings, managerID *int) LeagueAnalysis {
	a := LeagueAnalysis{
		LeagueID:   standings.League.ID,
		LeagueName: standings.League.Name,
	}
	results := standings.Standings.Results
	if len(results) == 0 {
		a.Summary = "The league has no entries yet."
		return a
	}

	leaderTotal := results[0].Total
	a.Leader = results[0].EntryName
	for _, s := range results {
		row := LeagueRow{
			Rank:        s.Rank,
			TeamName:    s.EntryName,
			Manager:     s.PlayerName,
			Total:       s.Total,
			EventTotal:  s.EventTotal,
			GapToLeader: leaderTotal - s.Total,
			IsYou:       managerID != nil && *managerID == s.Entry,
		}
		if s.LastRank > 0 {
			row.Movement = s.LastRank - s.Rank
		}
		a.Rows = append(a.Rows, row)
	}

	for i := range a.Rows {
		row := &a.Rows[i]
		if row.Movement > 0 && (a.BiggestRise == nil || row.Movement > a.BiggestRise.Movement) {
			a.BiggestRise = row
		}
		if a.BestWeek == nil || row.EventTotal > a.BestWeek.EventTotal {
			a.BestWeek = row
		}
	}

	a.Summary = fmt.Sprintf("%s lead %s on %d points.", a.Leader, a.LeagueName, leaderTotal)
	for _, row := range a.Rows {
		if row.IsYou {
			a.Summary += fmt.Sprintf(" You are %s, %d behind.", ordinal(row.Rank), row.GapToLeader)
		}
	}
	return a
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

func decimal(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
