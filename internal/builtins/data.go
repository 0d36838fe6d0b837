// ABOUTME: Data pack: player search, player detail, comparison and fixture lookups
// ABOUTME: Reads only the shared reference snapshot

package builtins

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/curphey/fpl-sub000/internal/analytics"
	"github.com/curphey/fpl-sub000/internal/fpl"
	"github.com/curphey/fpl-sub000/internal/packs"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
	maxFixtureWindow   = 10
)

// DataPack creates the reference-data tools.
func DataPack() *packs.BuiltinPack {
	return &packs.BuiltinPack{
		ID: "builtin:data",
		Tools: []*packs.BuiltinTool{
			{
				Definition: packs.ToolDefinition{
					Name:        "search_players",
					Description: "Search Fantasy Premier League players by name, position, team or maximum price. Results are ordered by total points.",
					InputSchema: packs.Object(map[string]packs.Property{
						"query":     {Type: "string", Description: "Part of the player's name"},
						"position":  {Type: "string", Enum: []string{"GKP", "DEF", "MID", "FWD"}},
						"team":      {Type: "string", Description: "Team name or short name, e.g. ARS"},
						"max_price": {Type: "number", Description: "Maximum price in millions"},
						"limit":     {Type: "integer", Description: "Maximum results (default 10)"},
					}),
				},
				Handler: searchPlayers,
			},
			{
				Definition: packs.ToolDefinition{
					Name:        "get_player",
					Description: "Get detailed stats and upcoming fixtures for one player.",
					InputSchema: packs.Object(map[string]packs.Property{
						"player_id": {Type: "integer"},
					}, "player_id"),
				},
				Handler: getPlayer,
			},
			{
				Definition: packs.ToolDefinition{
					Name:        "compare_players",
					Description: "Compare two or more players side by side on form, price, points and fixtures.",
					InputSchema: packs.Object(map[string]packs.Property{
						"player_ids": {Type: "array", Items: &packs.Property{Type: "integer"}, MinItems: 2},
					}, "player_ids"),
				},
				Handler: comparePlayers,
			},
			{
				Definition: packs.ToolDefinition{
					Name:        "get_fixtures",
					Description: "List upcoming fixtures with difficulty ratings, optionally for one team.",
					InputSchema: packs.Object(map[string]packs.Property{
						"team":      {Type: "string"},
						"gameweeks": {Type: "integer", Description: "How many gameweeks ahead (default 1)"},
					}),
				},
				Handler: getFixtures,
			},
		},
	}
}

// PlayerSummary is the compact player view returned by data tools.
type PlayerSummary struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	FullName    string  `json:"full_name"`
	Team        string  `json:"team"`
	Position    string  `json:"position"`
	Price       float64 `json:"price"`
	TotalPoints int     `json:"total_points"`
	Form        float64 `json:"form"`
	Ownership   float64 `json:"ownership"`
	Status      string  `json:"status"`
	News        string  `json:"news,omitempty"`
}

func summarize(snap *fpl.Snapshot, p fpl.Player) PlayerSummary {
	return PlayerSummary{
		ID:          p.ID,
		Name:        p.WebName,
		FullName:    p.FullName(),
		Team:        snap.TeamShortName(p.Team),
		Position:    p.Position.String(),
		Price:       p.Price(),
		TotalPoints: p.TotalPoints,
		Form:        p.FormValue(),
		Ownership:   p.Ownership(),
		Status:      p.Status,
		News:        p.News,
	}
}

// FixtureView is one fixture from a team's perspective.
type FixtureView struct {
	Gameweek   int        `json:"gameweek"`
	Opponent   string     `json:"opponent"`
	Home       bool       `json:"home"`
	Difficulty int        `json:"difficulty"`
	Kickoff    *time.Time `json:"kickoff,omitempty"`
}

func fixtureViews(snap *fpl.Snapshot, team, from, count int) []FixtureView {
	fixtures := snap.UpcomingFixtures(team, from, count)
	views := make([]FixtureView, 0, len(fixtures))
	for _, f := range fixtures {
		home := f.TeamH == team
		opp := f.TeamA
		if !home {
			opp = f.TeamH
		}
		views = append(views, FixtureView{
			Gameweek:   *f.Event,
			Opponent:   snap.TeamShortName(opp),
			Home:       home,
			Difficulty: f.DifficultyFor(team),
			Kickoff:    f.KickoffTime,
		})
	}
	return views
}

type searchPlayersInput struct {
	Query    string  `json:"query"`
	Position string  `json:"position"`
	Team     string  `json:"team"`
	MaxPrice float64 `json:"max_price"`
	Limit    int     `json:"limit"`
}

func searchPlayers(_ context.Context, tc packs.ToolContext, input map[string]any) (any, error) {
	snap, err := snapshot(tc)
	if err != nil {
		return nil, err
	}
	var in searchPlayersInput
	if err := packs.Decode(input, &in); err != nil {
		return nil, err
	}

	var position fpl.Position
	if in.Position != "" {
		p, ok := fpl.ParsePosition(in.Position)
		if !ok {
			return nil, fmt.Errorf("invalid position: %s", in.Position)
		}
		position = p
	}
	team := 0
	if in.Team != "" {
		t, ok := snap.FindTeam(in.Team)
		if !ok {
			return nil, fmt.Errorf("unknown team: %s", in.Team)
		}
		team = t.ID
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)
	query := strings.ToLower(strings.TrimSpace(in.Query))

	var matches []fpl.Player
	for _, p := range snap.Players {
		if position != 0 && p.Position != position {
			continue
		}
		if team != 0 && p.Team != team {
			continue
		}
		if in.MaxPrice > 0 && p.Price() > in.MaxPrice+1e-9 {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.WebName), query) &&
			!strings.Contains(strings.ToLower(p.FullName()), query) {
			continue
		}
		matches = append(matches, p)
	}

	slices.SortStableFunc(matches, func(a, b fpl.Player) int {
		return cmp.Or(cmp.Compare(b.TotalPoints, a.TotalPoints), cmp.Compare(a.ID, b.ID))
	})

	total := len(matches)
	players := make([]PlayerSummary, 0, min(limit, total))
	for _, p := range matches[:min(limit, total)] {
		players = append(players, summarize(snap, p))
	}
	return map[string]any{"players": players, "count": len(players), "total_matches": total}, nil
}

type getPlayerInput struct {
	PlayerID int `json:"player_id"`
}

// PlayerDetail extends PlayerSummary with stats and fixtures.
type PlayerDetail struct {
	PlayerSummary
	PointsPerGame   string        `json:"points_per_game"`
	Minutes         int           `json:"minutes"`
	Goals           int           `json:"goals"`
	Assists         int           `json:"assists"`
	CleanSheets     int           `json:"clean_sheets"`
	ExpectedGoals   string        `json:"expected_goals,omitempty"`
	ExpectedAssists string        `json:"expected_assists,omitempty"`
	Score           float64       `json:"score"`
	Fixtures        []FixtureView `json:"upcoming_fixtures"`
}

func detail(snap *fpl.Snapshot, p fpl.Player) PlayerDetail {
	gw := snap.PlanningGameweek()
	return PlayerDetail{
		PlayerSummary:   summarize(snap, p),
		PointsPerGame:   p.PointsPerGame,
		Minutes:         p.Minutes,
		Goals:           p.GoalsScored,
		Assists:         p.Assists,
		CleanSheets:     p.CleanSheets,
		ExpectedGoals:   p.ExpectedGoals,
		ExpectedAssists: p.ExpectedAssists,
		Score:           analytics.Score(snap, p, gw),
		Fixtures:        fixtureViews(snap, p.Team, gw, 3),
	}
}

func getPlayer(_ context.Context, tc packs.ToolContext, input map[string]any) (any, error) {
	snap, err := snapshot(tc)
	if err != nil {
		return nil, err
	}
	var in getPlayerInput
	if err := packs.Decode(input, &in); err != nil {
		return nil, err
	}
	p, ok := snap.Player(in.PlayerID)
	if !ok {
		return nil, fmt.Errorf("player not found: %d", in.PlayerID)
	}
	return detail(snap, p), nil
}

type comparePlayersInput struct {
	PlayerIDs []int `json:"player_ids"`
}

func comparePlayers(_ context.Context, tc packs.ToolContext, input map[string]any) (any, error) {
	snap, err := snapshot(tc)
	if err != nil {
		return nil, err
	}
	var in comparePlayersInput
	if err := packs.Decode(input, &in); err != nil {
		return nil, err
	}
	if len(in.PlayerIDs) < 2 {
		return nil, fmt.Errorf("compare_players needs at least 2 player_ids, got %d", len(in.PlayerIDs))
	}

	players := make([]PlayerDetail, 0, len(in.PlayerIDs))
	for _, id := range in.PlayerIDs {
		p, ok := snap.Player(id)
		if !ok {
			return nil, fmt.Errorf("player not found: %d", id)
		}
		players = append(players, detail(snap, p))
	}

	best := slices.MaxFunc(players, func(a, b PlayerDetail) int {
		return cmp.Or(cmp.Compare(a.Score, b.Score), cmp.Compare(b.ID, a.ID))
	})
	return map[string]any{"players": players, "best_pick": best.Name}, nil
}

type getFixturesInput struct {
	Team      string `json:"team"`
	Gameweeks int    `json:"gameweeks"`
}

// MatchView is one fixture in the neutral form.
type MatchView struct {
	Gameweek       int        `json:"gameweek"`
	Home           string     `json:"home"`
	Away           string     `json:"away"`
	HomeDifficulty int        `json:"home_difficulty"`
	AwayDifficulty int        `json:"away_difficulty"`
	Kickoff        *time.Time `json:"kickoff,omitempty"`
}

func getFixtures(_ context.Context, tc packs.ToolContext, input map[string]any) (any, error) {
	snap, err := snapshot(tc)
	if err != nil {
		return nil, err
	}
	var in getFixturesInput
	if err := packs.Decode(input, &in); err != nil {
		return nil, err
	}
	window := in.Gameweeks
	if window <= 0 {
		window = 1
	}
	window = min(window, maxFixtureWindow)
	from := snap.PlanningGameweek()

	if in.Team != "" {
		t, ok := snap.FindTeam(in.Team)
		if !ok {
			return nil, fmt.Errorf("unknown team: %s", in.Team)
		}
		return map[string]any{
			"team":     t.Name,
			"from":     from,
			"fixtures": fixtureViews(snap, t.ID, from, window),
		}, nil
	}

	var matches []MatchView
	for _, f := range snap.Fixtures {
		if f.Finished || f.Event == nil || *f.Event < from || *f.Event >= from+window {
			continue
		}
		matches = append(matches, MatchView{
			Gameweek:       *f.Event,
			Home:           snap.TeamShortName(f.TeamH),
			Away:           snap.TeamShortName(f.TeamA),
			HomeDifficulty: f.TeamHDifficulty,
			AwayDifficulty: f.TeamADifficulty,
			Kickoff:        f.KickoffTime,
		})
	}
	slices.SortStableFunc(matches, func(a, b MatchView) int { return cmp.Compare(a.Gameweek, b.Gameweek) })
	return map[string]any{"from": from, "fixtures": matches}, nil
}
