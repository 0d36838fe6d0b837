// ABOUTME: Fantasy Premier League reference data as served by the public FPL API
// ABOUTME: Prices are in tenths of a million; numeric stats arrive as decimal strings

package fpl

import (
	"strconv"
	"strings"
	"time"
)

// Position is a player's element type.
type Position int

const (
	Goalkeeper Position = 1
	Defender   Position = 2
	Midfielder Position = 3
	Forward    Position = 4
)

func (p Position) String() string {
	switch p {
	case Goalkeeper:
		return "GKP"
	case Defender:
		return "DEF"
	case Midfielder:
		return "MID"
	case Forward:
		return "FWD"
	default:
		return "UNK"
	}
}

// ParsePosition accepts short codes (GKP, DEF, MID, FWD) and common names.
func ParsePosition(s string) (Position, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gkp", "gk", "goalkeeper", "keeper":
		return Goalkeeper, true
	case "def", "defender":
		return Defender, true
	case "mid", "midfielder":
		return Midfielder, true
	case "fwd", "forward", "striker":
		return Forward, true
	default:
		return 0, false
	}
}

// Player is an element from bootstrap-static.
type Player struct {
	ID                       int      `json:"id"`
	WebName                  string   `json:"web_name"`
	FirstName                string   `json:"first_name"`
	SecondName               string   `json:"second_name"`
	Team                     int      `json:"team"`
	Position                 Position `json:"element_type"`
	NowCost                  int      `json:"now_cost"`
	TotalPoints              int      `json:"total_points"`
	Form                     string   `json:"form"`
	PointsPerGame            string   `json:"points_per_game"`
	SelectedByPercent        string   `json:"selected_by_percent"`
	Status                   string   `json:"status"`
	News                     string   `json:"news"`
	ChanceOfPlayingNextRound *int     `json:"chance_of_playing_next_round"`
	Minutes                  int      `json:"minutes"`
	GoalsScored              int      `json:"goals_scored"`
	Assists                  int      `json:"assists"`
	CleanSheets              int      `json:"clean_sheets"`
	ExpectedGoals            string   `json:"expected_goals"`
	ExpectedAssists          string   `json:"expected_assists"`
}

// Price returns the player's cost in millions.
func (p Player) Price() float64 {
	return float64(p.NowCost) / 10
}

// FormValue returns the parsed form, or 0 when absent.
func (p Player) FormValue() float64 {
	return decimal(p.Form)
}

// Ownership returns the selected-by percentage.
func (p Player) Ownership() float64 {
	return decimal(p.SelectedByPercent)
}

// FullName joins first and second names.
func (p Player) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.SecondName)
}

// Available reports whether the player is expected to be fit.
func (p Player) Available() bool {
	if p.Status != "" && p.Status != "a" {
		return false
	}
	return p.ChanceOfPlayingNextRound == nil || *p.ChanceOfPlayingNextRound >= 75
}

// Team is a Premier League club.
type Team struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Strength  int    `json:"strength"`
}

// Gameweek is an event from bootstrap-static.
type Gameweek struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	DeadlineTime      time.Time `json:"deadline_time"`
	AverageEntryScore int       `json:"average_entry_score"`
	Finished          bool      `json:"finished"`
	IsCurrent         bool      `json:"is_current"`
	IsNext            bool      `json:"is_next"`
}

// Fixture is one match.
type Fixture struct {
	ID              int        `json:"id"`
	Event           *int       `json:"event"`
	TeamH           int        `json:"team_h"`
	TeamA           int        `json:"team_a"`
	TeamHDifficulty int        `json:"team_h_difficulty"`
	TeamADifficulty int        `json:"team_a_difficulty"`
	KickoffTime     *time.Time `json:"kickoff_time"`
	Finished        bool       `json:"finished"`
	TeamHScore      *int       `json:"team_h_score"`
	TeamAScore      *int       `json:"team_a_score"`
}

// Involves reports whether team plays in the fixture.
func (f Fixture) Involves(team int) bool {
	return f.TeamH == team || f.TeamA == team
}

// DifficultyFor returns the difficulty rating from team's perspective.
func (f Fixture) DifficultyFor(team int) int {
	if f.TeamH == team {
		return f.TeamHDifficulty
	}
	return f.TeamADifficulty
}

// Bootstrap is the bootstrap-static payload.
type Bootstrap struct {
	Events   []Gameweek `json:"events"`
	Teams    []Team     `json:"teams"`
	Elements []Player   `json:"elements"`
}

// Pick is one squad slot of a manager's team.
type Pick struct {
	Element       int  `json:"element"`
	Position      int  `json:"position"`
	Multiplier    int  `json:"multiplier"`
	IsCaptain     bool `json:"is_captain"`
	IsViceCaptain bool `json:"is_vice_captain"`
}

// EntryHistory summarises a manager's gameweek.
type EntryHistory struct {
	Event              int `json:"event"`
	Points             int `json:"points"`
	TotalPoints        int `json:"total_points"`
	Bank               int `json:"bank"`
	Value              int `json:"value"`
	EventTransfers     int `json:"event_transfers"`
	EventTransfersCost int `json:"event_transfers_cost"`
}

// Picks is a manager's squad for one gameweek.
type Picks struct {
	ActiveChip   *string      `json:"active_chip"`
	EntryHistory EntryHistory `json:"entry_history"`
	Picks        []Pick       `json:"picks"`
}

// Entry is a manager's public profile.
type Entry struct {
	ID                   int    `json:"id"`
	Name                 string `json:"name"`
	PlayerFirstName      string `json:"player_first_name"`
	PlayerLastName       string `json:"player_last_name"`
	SummaryOverallPoints int    `json:"summary_overall_points"`
	SummaryOverallRank   int    `json:"summary_overall_rank"`
	CurrentEvent         int    `json:"current_event"`
}

// ChipPlay records one chip used by a manager.
type ChipPlay struct {
	Name  string `json:"name"`
	Event int    `json:"event"`
}

// ManagerHistory is a manager's season history.
type ManagerHistory struct {
	Current []EntryHistory `json:"current"`
	Chips   []ChipPlay     `json:"chips"`
}

// Standing is one row of a classic league table.
type Standing struct {
	Entry      int    `json:"entry"`
	EntryName  string `json:"entry_name"`
	PlayerName string `json:"player_name"`
	Rank       int    `json:"rank"`
	LastRank   int    `json:"last_rank"`
	Total      int    `json:"total"`
	EventTotal int    `json:"event_total"`
}

// LeagueStandings is a classic league table.
type LeagueStandings struct {
	League struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"league"`
	Standings struct {
		HasNext bool       `json:"has_next"`
		Results []Standing `json:"results"`
	} `json:"standings"`
}

func decimal(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
