// ABOUTME: Snapshot bundles bootstrap data and fixtures with lookup indexes
// ABOUTME: A Snapshot is immutable once built and safe to share across goroutines

package fpl

import (
	"slices"
	"strings"
	"time"
)

// Snapshot is the read-only reference data tools consult.
type Snapshot struct {
	Players   []Player
	Teams     []Team
	Gameweeks []Gameweek
	Fixtures  []Fixture
	FetchedAt time.Time

	players map[int]int
	teams   map[int]int
}

// NewSnapshot indexes bootstrap data and fixtures.
func NewSnapshot(b *Bootstrap, fixtures []Fixture, fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		Players:   b.Elements,
		Teams:     b.Teams,
		Gameweeks: b.Events,
		Fixtures:  fixtures,
		FetchedAt: fetchedAt,
		players:   make(map[int]int, len(b.Elements)),
		teams:     make(map[int]int, len(b.Teams)),
	}
	for i, p := range s.Players {
		s.players[p.ID] = i
	}
	for i, t := range s.Teams {
		s.teams[t.ID] = i
	}
	return s
}

// Player looks up a player by id.
func (s *Snapshot) Player(id int) (Player, bool) {
	i, ok := s.players[id]
	if !ok {
		return Player{}, false
	}
	return s.Players[i], true
}

// Team looks up a team by id.
func (s *Snapshot) Team(id int) (Team, bool) {
	i, ok := s.teams[id]
	if !ok {
		return Team{}, false
	}
	return s.Teams[i], true
}

// TeamShortName returns the team's short name, or "?" when unknown.
func (s *Snapshot) TeamShortName(id int) string {
	if t, ok := s.Team(id); ok {
		return t.ShortName
	}
	return "?"
}

// FindTeam matches a team by name or short name, case-insensitively.
func (s *Snapshot) FindTeam(name string) (Team, bool) {
	name = strings.TrimSpace(name)
	for _, t := range s.Teams {
		if strings.EqualFold(t.Name, name) || strings.EqualFold(t.ShortName, name) {
			return t, true
		}
	}
	return Team{}, false
}

// CurrentGameweek returns the in-progress gameweek, if any.
func (s *Snapshot) CurrentGameweek() (Gameweek, bool) {
	for _, gw := range s.Gameweeks {
		if gw.IsCurrent {
			return gw, true
		}
	}
	return Gameweek{}, false
}

// NextGameweek returns the next gameweek whose deadline has not passed.
func (s *Snapshot) NextGameweek() (Gameweek, bool) {
	for _, gw := range s.Gameweeks {
		if gw.IsNext {
			return gw, true
		}
	}
	return Gameweek{}, false
}

// UpcomingFixtures returns team's unfinished fixtures in gameweeks
// [from, from+count), ordered by gameweek.
func (s *Snapshot) UpcomingFixtures(team, from, count int) []Fixture {
	var out []Fixture
	for _, f := range s.Fixtures {
		if f.Finished || f.Event == nil || !f.Involves(team) {
			continue
		}
		if *f.Event >= from && *f.Event < from+count {
			out = append(out, f)
		}
	}
	slices.SortStableFunc(out, func(a, b Fixture) int { return *a.Event - *b.Event })
	return out
}

// PlanningGameweek is the gameweek advice should target: the next one, or
// the current one late in the season.
func (s *Snapshot) PlanningGameweek() int {
	if gw, ok := s.NextGameweek(); ok {
		return gw.ID
	}
	if gw, ok := s.CurrentGameweek(); ok {
		return gw.ID
	}
	return 1
}
