// ABOUTME: Deterministic FPL reference data for tests in other packages
// ABOUTME: Four teams, a dozen players and two gameweeks of fixtures

package fpltest

import (
	"time"

	"github.com/curphey/fpl-sub000/internal/fpl"
)

// Well-known ids in the sample data.
const (
	ARS = 1
	LIV = 2
	MCI = 3
	SHU = 4

	Salah     = 10
	Haaland   = 11
	Saka      = 12
	Palmer    = 13
	Raya      = 14
	Alisson   = 15
	Gabriel   = 16
	VanDijk   = 17
	Gvardiol  = 18
	Watkins   = 19
	McBurnie  = 20
	Injured   = 21
	CurrentGW = 5
	NextGW    = 6
)

// Time is the fixed "now" of the sample data.
var Time = time.Date(2025, 9, 20, 9, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

// Bootstrap returns the sample bootstrap-static payload.
func Bootstrap() *fpl.Bootstrap {
	return &fpl.Bootstrap{
		Events: []fpl.Gameweek{
			{ID: CurrentGW, Name: "Gameweek 5", DeadlineTime: Time.Add(-7 * 24 * time.Hour), IsCurrent: true, AverageEntryScore: 52},
			{ID: NextGW, Name: "Gameweek 6", DeadlineTime: Time.Add(24 * time.Hour), IsNext: true},
			{ID: 7, Name: "Gameweek 7", DeadlineTime: Time.Add(8 * 24 * time.Hour)},
		},
		Teams: []fpl.Team{
			{ID: ARS, Name: "Arsenal", ShortName: "ARS", Strength: 5},
			{ID: LIV, Name: "Liverpool", ShortName: "LIV", Strength: 5},
			{ID: MCI, Name: "Man City", ShortName: "MCI", Strength: 5},
			{ID: SHU, Name: "Sheffield Utd", ShortName: "SHU", Strength: 2},
		},
		Elements: []fpl.Player{
			{ID: Salah, WebName: "M.Salah", FirstName: "Mohamed", SecondName: "Salah", Team: LIV, Position: fpl.Midfielder, NowCost: 135, TotalPoints: 48, Form: "9.5", PointsPerGame: "9.6", SelectedByPercent: "61.2", Status: "a", Minutes: 450, GoalsScored: 5, Assists: 3},
			{ID: Haaland, WebName: "Haaland", FirstName: "Erling", SecondName: "Haaland", Team: MCI, Position: fpl.Forward, NowCost: 145, TotalPoints: 44, Form: "8.0", PointsPerGame: "8.8", SelectedByPercent: "70.1", Status: "a", Minutes: 430, GoalsScored: 6},
			{ID: Saka, WebName: "Saka", FirstName: "Bukayo", SecondName: "Saka", Team: ARS, Position: fpl.Midfielder, NowCost: 100, TotalPoints: 35, Form: "7.0", PointsPerGame: "7.0", SelectedByPercent: "35.4", Status: "a", Minutes: 420, GoalsScored: 2, Assists: 4},
			{ID: Palmer, WebName: "Palmer", FirstName: "Cole", SecondName: "Palmer", Team: MCI, Position: fpl.Midfielder, NowCost: 105, TotalPoints: 30, Form: "6.0", PointsPerGame: "6.0", SelectedByPercent: "40.0", Status: "a", Minutes: 400, GoalsScored: 3},
			{ID: Raya, WebName: "Raya", FirstName: "David", SecondName: "Raya", Team: ARS, Position: fpl.Goalkeeper, NowCost: 55, TotalPoints: 28, Form: "5.5", PointsPerGame: "5.6", SelectedByPercent: "25.0", Status: "a", Minutes: 450, CleanSheets: 3},
			{ID: Alisson, WebName: "Alisson", FirstName: "Alisson", SecondName: "Becker", Team: LIV, Position: fpl.Goalkeeper, NowCost: 55, TotalPoints: 22, Form: "4.0", PointsPerGame: "4.4", SelectedByPercent: "12.0", Status: "a", Minutes: 450, CleanSheets: 2},
			{ID: Gabriel, WebName: "Gabriel", FirstName: "Gabriel", SecondName: "Magalhães", Team: ARS, Position: fpl.Defender, NowCost: 60, TotalPoints: 33, Form: "6.5", PointsPerGame: "6.6", SelectedByPercent: "30.0", Status: "a", Minutes: 450, GoalsScored: 1, CleanSheets: 3},
			{ID: VanDijk, WebName: "Virgil", FirstName: "Virgil", SecondName: "van Dijk", Team: LIV, Position: fpl.Defender, NowCost: 60, TotalPoints: 27, Form: "5.0", PointsPerGame: "5.4", SelectedByPercent: "22.0", Status: "a", Minutes: 450, CleanSheets: 2},
			{ID: Gvardiol, WebName: "Gvardiol", FirstName: "Joško", SecondName: "Gvardiol", Team: MCI, Position: fpl.Defender, NowCost: 60, TotalPoints: 20, Form: "3.5", PointsPerGame: "4.0", SelectedByPercent: "15.0", Status: "a", Minutes: 400},
			{ID: Watkins, WebName: "Watkins", FirstName: "Ollie", SecondName: "Watkins", Team: SHU, Position: fpl.Forward, NowCost: 85, TotalPoints: 21, Form: "4.5", PointsPerGame: "4.2", SelectedByPercent: "10.0", Status: "a", Minutes: 410, GoalsScored: 2},
			{ID: McBurnie, WebName: "McBurnie", FirstName: "Oli", SecondName: "McBurnie", Team: SHU, Position: fpl.Forward, NowCost: 50, TotalPoints: 8, Form: "1.0", PointsPerGame: "1.6", SelectedByPercent: "0.4", Status: "a", Minutes: 200},
			{ID: Injured, WebName: "Injured", FirstName: "Long", SecondName: "Term", Team: SHU, Position: fpl.Midfielder, NowCost: 70, TotalPoints: 15, Form: "8.0", PointsPerGame: "5.0", SelectedByPercent: "3.0", Status: "i", News: "Knee injury", ChanceOfPlayingNextRound: intPtr(0), Minutes: 180},
		},
	}
}

// Fixtures returns fixtures for gameweeks 5 (finished) through 7.
func Fixtures() []fpl.Fixture {
	kick := func(days int) *time.Time {
		t := Time.Add(time.Duration(days) * 24 * time.Hour)
		return &t
	}
	return []fpl.Fixture{
		{ID: 1, Event: intPtr(CurrentGW), TeamH: ARS, TeamA: LIV, TeamHDifficulty: 4, TeamADifficulty: 4, KickoffTime: kick(-5), Finished: true, TeamHScore: intPtr(1), TeamAScore: intPtr(1)},
		{ID: 2, Event: intPtr(CurrentGW), TeamH: MCI, TeamA: SHU, TeamHDifficulty: 2, TeamADifficulty: 5, KickoffTime: kick(-5), Finished: true, TeamHScore: intPtr(3), TeamAScore: intPtr(0)},
		{ID: 3, Event: intPtr(NextGW), TeamH: LIV, TeamA: SHU, TeamHDifficulty: 2, TeamADifficulty: 5, KickoffTime: kick(2)},
		{ID: 4, Event: intPtr(NextGW), TeamH: MCI, TeamA: ARS, TeamHDifficulty: 4, TeamADifficulty: 4, KickoffTime: kick(2)},
		{ID: 5, Event: intPtr(7), TeamH: SHU, TeamA: ARS, TeamHDifficulty: 5, TeamADifficulty: 2, KickoffTime: kick(9)},
		{ID: 6, Event: intPtr(7), TeamH: LIV, TeamA: MCI, TeamHDifficulty: 4, TeamADifficulty: 4, KickoffTime: kick(9)},
	}
}

// Snapshot returns the indexed sample data.
func Snapshot() *fpl.Snapshot {
	return fpl.NewSnapshot(Bootstrap(), Fixtures(), Time)
}
