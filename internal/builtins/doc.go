// Package builtins provides the Fantasy Premier League tool packs.
//
// # Tool Packs
//
// Data Pack (builtin:data), reads the shared snapshot only:
//
//   - search_players: Filter players by name, position, team and price
//   - get_player: Stats and upcoming fixtures for one player
//   - compare_players: Side-by-side view of two or more players
//   - get_fixtures: Upcoming fixtures with difficulty ratings
//
// Analytics Pack (builtin:analytics), delegates to an Analytics implementation:
//
//   - get_captain_picks: Ranked captaincy options
//   - get_transfer_suggestions: Upgrades, squad-aware when a manager ID is set
//   - get_chip_advice: Whether to play a chip this gameweek
//   - analyze_league: Mini-league summary
//
// Manager Pack (builtin:manager):
//
//   - get_my_team: The caller's squad; needs a manager ID
//
// # Registration
//
//	builtins.RegisterAll(registry, analytics.New(), fplClient)
//
// # Tool Implementation
//
// Each handler decodes its input map into a struct, validates what it
// needs, and returns a JSON-ready value. Failures are returned as errors
// with a short description prefix ("failed to fetch team: ...") and reach
// the model as the tool result's error string.
package builtins
