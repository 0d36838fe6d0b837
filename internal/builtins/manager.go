// ABOUTME: Manager pack: the caller's own FPL squad
// ABOUTME: Requires a manager ID in the tool context

package builtins

import (
	"context"

	"github.com/curphey/fpl-sub000/internal/packs"
)

// ManagerPack creates tools scoped to the calling manager.
func ManagerPack(f Fetcher) *packs.BuiltinPack {
	h := &managerHandlers{fetcher: f}
	return &packs.BuiltinPack{
		ID: "builtin:manager",
		Tools: []*packs.BuiltinTool{
			{
				Definition: packs.ToolDefinition{
					Name:        "get_my_team",
					Description: "Get the user's own FPL squad, captaincy, bank and gameweek points.",
					InputSchema: packs.Object(map[string]packs.Property{
						"gameweek": {Type: "integer", Description: "Defaults to the current gameweek"},
					}),
				},
				Handler: h.MyTeam,
			},
		},
	}
}

type managerHandlers struct {
	fetcher Fetcher
}

type myTeamInput struct {
	Gameweek int `json:"gameweek"`
}

// SquadPlayer is one slot of the manager's squad.
type SquadPlayer struct {
	PlayerSummary
	Slot        int  `json:"slot"`
	Starting    bool `json:"starting"`
	Captain     bool `json:"captain,omitempty"`
	ViceCaptain bool `json:"vice_captain,omitempty"`
	Multiplier  int  `json:"multiplier"`
}

func (h *managerHandlers) MyTeam(ctx context.Context, tc packs.ToolContext, input map[string]any) (any, error) {
	if tc.ManagerID == nil {
		return nil, errNoManagerID
	}
	snap, err := snapshot(tc)
	if err != nil {
		return nil, err
	}
	var in myTeamInput
	if err := packs.Decode(input, &in); err != nil {
		return nil, err
	}
	gw := in.Gameweek
	if gw <= 0 {
		gw = currentGameweek(snap)
	}

	entry, err := h.fetcher.Entry(ctx, *tc.ManagerID)
	if err != nil {
		return nil, packs.Errorf("failed to fetch team", err)
	}
	picks, err := h.fetcher.ManagerPicks(ctx, *tc.ManagerID, gw)
	if err != nil {
		return nil, packs.Errorf("failed to fetch team", err)
	}

	squad := make([]SquadPlayer, 0, len(picks.Picks))
	for _, pick := range picks.Picks {
		sp := SquadPlayer{
			Slot:        pick.Position,
			Starting:    pick.Position <= 11,
			Captain:     pick.IsCaptain,
			ViceCaptain: pick.IsViceCaptain,
			Multiplier:  pick.Multiplier,
		}
		if p, ok := snap.Player(pick.Element); ok {
			sp.PlayerSummary = summarize(snap, p)
		} else {
			sp.ID = pick.Element
		}
		squad = append(squad, sp)
	}

	result := map[string]any{
		"team_name":     entry.Name,
		"manager":       entry.PlayerFirstName + " " + entry.PlayerLastName,
		"overall_rank":  entry.SummaryOverallRank,
		"total_points":  entry.SummaryOverallPoints,
		"gameweek":      gw,
		"gw_points":     picks.EntryHistory.Points,
		"bank":          float64(picks.EntryHistory.Bank) / 10,
		"squad_value":   float64(picks.EntryHistory.Value) / 10,
		"transfer_cost": picks.EntryHistory.EventTransfersCost,
		"squad":         squad,
	}
	if picks.ActiveChip != nil {
		result["active_chip"] = *picks.ActiveChip
	}
	return result, nil
}
