// ABOUTME: Interfaces for the collaborators FPL tools depend on
// ABOUTME: Analytics scores players; Fetcher performs per-manager downstream fetches

package builtins

import (
	"context"
	"errors"

	"github.com/curphey/fpl-sub000/internal/analytics"
	"github.com/curphey/fpl-sub000/internal/fpl"
	"github.com/curphey/fpl-sub000/internal/packs"
)

// Analytics is the scoring collaborator. Implementations are pure.
type Analytics interface {
	CaptainPicks(snap *fpl.Snapshot, limit int) []analytics.CaptainPick
	TransferSuggestions(snap *fpl.Snapshot, squad []int, budget float64, limit int) []analytics.TransferSuggestion
	ChipAdvice(snap *fpl.Snapshot, used []fpl.ChipPlay) analytics.ChipAdvice
	AnalyzeLeague(standings *fpl.LeagueStandings, managerID *int) analytics.LeagueAnalysis
}

// Fetcher performs downstream fetches that are not part of the shared snapshot.
type Fetcher interface {
	Entry(ctx context.Context, managerID int) (*fpl.Entry, error)
	ManagerPicks(ctx context.Context, managerID, gameweek int) (*fpl.Picks, error)
	ManagerHistory(ctx context.Context, managerID int) (*fpl.ManagerHistory, error)
	LeagueStandings(ctx context.Context, leagueID int) (*fpl.LeagueStandings, error)
}

var (
	errNoData      = errors.New("reference data is unavailable right now")
	errNoManagerID = errors.New("no FPL manager ID is set; add your team ID to use this tool")
)

// snapshot returns the context's snapshot or errNoData.
func snapshot(tc packs.ToolContext) (*fpl.Snapshot, error) {
	if tc.Data == nil {
		return nil, errNoData
	}
	return tc.Data, nil
}

// RegisterAll registers the data, analytics and manager packs.
func RegisterAll(registry *packs.Registry, a Analytics, f Fetcher) error {
	for _, p := range []*packs.BuiltinPack{DataPack(), AnalyticsPack(a, f), ManagerPack(f)} {
		if err := registry.RegisterBuiltinPack(p); err != nil {
			return err
		}
	}
	return nil
}
