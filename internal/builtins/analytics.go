// ABOUTME: Analytics pack: captaincy, transfer, chip and league advice
// ABOUTME: Delegates scoring to the Analytics collaborator and fetches manager data when known

package builtins

import (
	"context"

	"github.com/curphey/fpl-sub000/internal/fpl"
	"github.com/curphey/fpl-sub000/internal/packs"
)

// AnalyticsPack creates the advice tools.
func AnalyticsPack(a Analytics, f Fetcher) *packs.BuiltinPack {
	h := &analyticsHandlers{analytics: a, fetcher: f}
	return &packs.BuiltinPack{
		ID: "builtin:analytics",
		Tools: []*packs.BuiltinTool{
			{
				Definition: packs.ToolDefinition{
					Name:        "get_captain_picks",
					Description: "Rank captaincy candidates for the next gameweek by form and fixture.",
					InputSchema: packs.Object(map[string]packs.Property{
						"limit": {Type: "integer", Description: "How many picks (default 5)"},
					}),
				},
				Handler: h.CaptainPicks,
			},
			{
				Definition: packs.ToolDefinition{
					Name:        "get_transfer_suggestions",
					Description: "Suggest transfers. Uses the manager's squad and bank when a manager ID is set.",
					InputSchema: packs.Object(map[string]packs.Property{
						"budget": {Type: "number", Description: "Money available in millions"},
						"limit":  {Type: "integer"},
					}),
				},
				Handler: h.TransferSuggestions,
			},
			{
				Definition: packs.ToolDefinition{
					Name:        "get_chip_advice",
					Description: "Advise whether to play a chip (wildcard, free hit, bench boost, triple captain) this gameweek.",
					InputSchema: packs.Object(nil),
				},
				Handler: h.ChipAdvice,
			},
			{
				Definition: packs.ToolDefinition{
					Name:        "analyze_league",
					Description: "Analyse a classic mini-league: leader, gaps, movers and this week's best score.",
					InputSchema: packs.Object(map[string]packs.Property{
						"league_id": {Type: "integer"},
					}, "league_id"),
				},
				Handler: h.AnalyzeLeague,
			},
		},
	}
}

type analyticsHandlers struct {
	analytics Analytics
	fetcher   Fetcher
}

type captainInput struct {
	Limit int `json:"limit"`
}

func (h *analyticsHandlers) CaptainPicks(_ context.Context, tc packs.ToolContext, input map[string]any) (any, error) {
	snap, err := snapshot(tc)
	if err != nil {
		return nil, err
	}
	var in captainInput
	if err := packs.Decode(input, &in); err != nil {
		return nil, err
	}
	picks := h.analytics.CaptainPicks(snap, in.Limit)
	return map[string]any{"gameweek": snap.PlanningGameweek(), "picks": picks}, nil
}

type transferInput struct {
	Budget *float64 `json:"budget"`
	Limit  int      `json:"limit"`
}

func (h *analyticsHandlers) TransferSuggestions(ctx context.Context, tc packs.ToolContext, input map[string]any) (any, error) {
	snap, err := snapshot(tc)
	if err != nil {
		return nil, err
	}
	var in transferInput
	if err := packs.Decode(input, &in); err != nil {
		return nil, err
	}

	var squad []int
	budget := 0.0
	if in.Budget != nil {
		budget = *in.Budget
	}
	if tc.ManagerID != nil {
		picks, err := h.fetcher.ManagerPicks(ctx, *tc.ManagerID, currentGameweek(snap))
		if err != nil {
			return nil, packs.Errorf("failed to fetch team", err)
		}
		for _, p := range picks.Picks {
			squad = append(squad, p.Element)
		}
		if in.Budget == nil {
			budget = float64(picks.EntryHistory.Bank) / 10
		}
	}

	suggestions := h.analytics.TransferSuggestions(snap, squad, budget, in.Limit)
	return map[string]any{
		"budget":      budget,
		"used_squad":  len(squad) > 0,
		"suggestions": suggestions,
	}, nil
}

func (h *analyticsHandlers) ChipAdvice(ctx context.Context, tc packs.ToolContext, _ map[string]any) (any, error) {
	snap, err := snapshot(tc)
	if err != nil {
		return nil, err
	}
	var used []fpl.ChipPlay
	if tc.ManagerID != nil {
		history, err := h.fetcher.ManagerHistory(ctx, *tc.ManagerID)
		if err != nil {
			return nil, packs.Errorf("failed to fetch chip history", err)
		}
		used = history.Chips
	}
	return h.analytics.ChipAdvice(snap, used), nil
}

type leagueInput struct {
	LeagueID int `json:"league_id"`
}

func (h *analyticsHandlers) AnalyzeLeague(ctx context.Context, tc packs.ToolContext, input map[string]any) (any, error) {
	var in leagueInput
	if err := packs.Decode(input, &in); err != nil {
		return nil, err
	}
	standings, err := h.fetcher.LeagueStandings(ctx, in.LeagueID)
	if err != nil {
		return nil, packs.Errorf("failed to fetch league", err)
	}
	return h.analytics.AnalyzeLeague(standings, tc.ManagerID), nil
}

// currentGameweek is the gameweek whose picks describe the manager's squad.
func currentGameweek(snap *fpl.Snapshot) int {
	if gw, ok := snap.CurrentGameweek(); ok {
		return gw.ID
	}
	return snap.PlanningGameweek()
}
