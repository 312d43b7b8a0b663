package events

type BetPlaced struct {
	BetID             int64   `json:"bet_id"`
	MatchID           int64   `json:"match_id"`
	Team1             string  `json:"team1"`
	Team2             string  `json:"team2"`
	Team1Odds         float64 `json:"team1_odds"`
	Team2Odds         float64 `json:"team2_odds"`
	BettingValueCents int64   `json:"betting_value_cents"`
	Stake1Cents       int64   `json:"stake1_cents"`
	Stake2Cents       int64   `json:"stake2_cents"`
	Accounts1         []int64 `json:"accounts1"`
	Accounts2         []int64 `json:"accounts2"`
	TsUnixMs          int64   `json:"ts_unix_ms"`
}
