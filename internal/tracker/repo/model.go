package repo

import "time"

// Modelos persistidos no Postgres. Valores monetários sempre em centavos
// (int64), odds em float64.

type Account struct {
	AccountID    int64     `json:"account_id"`
	Name         string    `json:"name"`
	BalanceCents int64     `json:"balance_cents"`
	Remarks      string    `json:"remarks,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Match struct {
	MatchID   int64     `json:"match_id"`
	Team1     string    `json:"team1"`
	Team2     string    `json:"team2"`
	MatchDate string    `json:"match_date"` // "YYYY-MM-DD"
	MatchTime string    `json:"match_time"`
	Status    string    `json:"status"` // upcoming | completed
	CreatedAt time.Time `json:"created_at"`
}

type Bet struct {
	BetID             int64     `json:"bet_id"`
	MatchID           int64     `json:"match_id"`
	Team1Odds         float64   `json:"team1_odds"`
	Team2Odds         float64   `json:"team2_odds"`
	BettingValueCents int64     `json:"betting_value_cents"`
	Status            string    `json:"status"` // active | completed
	CreatedAt         time.Time `json:"created_at"`
}

// StakeAllocation liga uma conta a uma aposta: em que lado entrou e com
// quanto.
type StakeAllocation struct {
	BetID      int64 `json:"bet_id"`
	AccountID  int64 `json:"account_id"`
	Side       int   `json:"side"` // 1 | 2
	StakeCents int64 `json:"stake_cents"`
}

type Result struct {
	ResultID    int64     `json:"result_id"`
	BetID       int64     `json:"bet_id"`
	ResultType  string    `json:"result_type"` // win | loss | cashout
	WinningSide *int      `json:"winning_side,omitempty"`
	ProfitCents int64     `json:"profit_cents"`
	LossCents   int64     `json:"loss_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

type CashoutEntry struct {
	AccountID   int64 `json:"account_id"`
	AmountCents int64 `json:"amount_cents"`
}

type Settings struct {
	MinTransferCents         int64     `json:"min_transfer_cents"`
	DefaultBettingValueCents int64     `json:"default_betting_value_cents"`
	UpdatedAt                time.Time `json:"updated_at"`
}
