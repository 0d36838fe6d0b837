// ABOUTME: Result types produced by the scoring heuristics
// ABOUTME: Values are JSON-ready and returned verbatim as tool results

package analytics

// PlayerRef identifies a player in results.
type PlayerRef struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Team     string  `json:"team"`
	Position string  `json:"position"`
	Price    float64 `json:"price"`
}

// CaptainPick is one ranked captaincy candidate.
type CaptainPick struct {
	Player     PlayerRef `json:"player"`
	Score      float64   `json:"score"`
	Form       float64   `json:"form"`
	Opponent   string    `json:"opponent"`
	Home       bool      `json:"home"`
	Difficulty int       `json:"difficulty"`
	Ownership  float64   `json:"ownership"`
	Reason     string    `json:"reason"`
}

// TransferSuggestion proposes replacing Out with In. Out is nil when no
// squad was supplied.
type TransferSuggestion struct {
	Out       *PlayerRef `json:"out,omitempty"`
	In        PlayerRef  `json:"in"`
	ScoreGain float64    `json:"score_gain"`
	Reason    string     `json:"reason"`
}

// ChipAdvice recommends whether to play a chip this gameweek.
type ChipAdvice struct {
	Gameweek       int      `json:"gameweek"`
	Available      []string `json:"available"`
	Recommended    string   `json:"recommended,omitempty"`
	Recommendation string   `json:"recommendation"`
	Reasons        []string `json:"reasons"`
}

// LeagueRow is one analysed standings row.
type LeagueRow struct {
	Rank        int    `json:"rank"`
	Movement    int    `json:"movement"`
	TeamName    string `json:"team_name"`
	Manager     string `json:"manager"`
	Total       int    `json:"total"`
	EventTotal  int    `json:"event_total"`
	GapToLeader int    `json:"gap_to_leader"`
	IsYou       bool   `json:"is_you,omitempty"`
}

// LeagueAnalysis summarises a classic league.
type LeagueAnalysis struct {
	LeagueID    int         `json:"league_id"`
	LeagueName  string      `json:"league_name"`
	Leader      string      `json:"leader"`
	Rows        []LeagueRow `json:"rows"`
	BiggestRise *LeagueRow  `json:"biggest_rise,omitempty"`
	BestWeek    *LeagueRow  `json:"best_week,omitempty"`
	Summary     string      `json:"summary"`
}
