package dto

import "time"

type CreateBetResponse struct {
	BetID    int64            `json:"betId"`
	Status   string           `json:"status"` // "active"
	Balances []AccountBalance `json:"balances"`
}

type AccountBalance struct {
	AccountID    int64 `json:"account_id"`
	BalanceCents int64 `json:"balance_cents"`
}

type SettleResponse struct {
	BetID       int64  `json:"betId"`
	Status      string `json:"status"` // "completed"
	ResultType  string `json:"result_type"`
	WinningSide *int   `json:"winning_side,omitempty"`
	ProfitCents int64  `json:"profit_cents"`
	LossCents   int64  `json:"loss_cents"`
}

type AccountView struct {
	AccountID    int64     `json:"account_id"`
	Name         string    `json:"name"`
	BalanceCents int64     `json:"balance_cents"`
	Remarks      string    `json:"remarks,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type BetSummary struct {
	BetID             int64     `json:"betId"`
	MatchID           int64     `json:"matchId"`
	Team1             string    `json:"team1"`
	Team2             string    `json:"team2"`
	MatchDate         string    `json:"match_date"`
	MatchTime         string    `json:"match_time"`
	Team1Odds         float64   `json:"team1_odds"`
	Team2Odds         float64   `json:"team2_odds"`
	BettingValueCents int64     `json:"betting_value_cents"`
	CreatedAt         time.Time `json:"created_at"`
}

// AllocationView é a visão de uma conta dentro de uma aposta (lado + stake +
// saldo atual da conta).
type AllocationView struct {
	AccountID    int64  `json:"account_id"`
	Name         string `json:"name"`
	Side         int    `json:"side"` // 1 | 2
	StakeCents   int64  `json:"stake_cents"`
	BalanceCents int64  `json:"balance_cents"`
}

type BetDetail struct {
	BetSummary
	Status   string           `json:"status"`
	Accounts []AllocationView `json:"accounts"`
}

type HistoricalBet struct {
	BetSummary
	ResultType  string           `json:"result_type,omitempty"`
	WinningSide *int             `json:"winning_side,omitempty"`
	ProfitCents int64            `json:"profit_cents"`
	LossCents   int64            `json:"loss_cents"`
	Cashouts    []CashoutEntry   `json:"cashouts,omitempty"`
	SettledAt   *time.Time       `json:"settled_at,omitempty"`
	Accounts    []AllocationView `json:"accounts"`
}

type SettingsView struct {
	MinTransferCents         int64     `json:"min_transfer_cents"`
	DefaultBettingValueCents int64     `json:"default_betting_value_cents"`
	UpdatedAt                time.Time `json:"updated_at"`
}

type BackupResponse struct {
	Path string `json:"path"`
}

// ErrorResponse é o corpo padrão de erro da API; Shortfalls só aparece em
// falhas de saldo insuficiente.
type ErrorResponse struct {
	Error      string             `json:"error"`
	Shortfalls []BalanceShortfall `json:"shortfalls,omitempty"`
}

type BalanceShortfall struct {
	AccountID     int64 `json:"account_id"`
	Side          int   `json:"side"`
	RequiredCents int64 `json:"required_cents"`
	BalanceCents  int64 `json:"balance_cents"`
}
