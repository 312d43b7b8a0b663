package dto

// CreateBetRequest cria uma aposta dividida entre os dois times de uma partida.
// MatchID reaproveita uma partida existente; sem ele a partida é criada junto
// com a aposta, na mesma transação.
type CreateBetRequest struct {
	MatchID           *int64  `json:"matchId,omitempty"`
	Team1             string  `json:"team1"`
	Team2             string  `json:"team2"`
	MatchDate         string  `json:"match_date"` // "YYYY-MM-DD"
	MatchTime         string  `json:"match_time"` // ex: "3:30 PM"
	Team1Odds         float64 `json:"team1_odds"`
	Team2Odds         float64 `json:"team2_odds"`
	BettingValueCents int64   `json:"betting_value_cents"`
	Accounts1         []int64 `json:"accounts1"`
	Accounts2         []int64 `json:"accounts2"`

	// Stakes pré-calculados pelo chamador; quando zerados o serviço calcula
	// a partir de betting_value_cents e das odds
	Stake1Cents int64 `json:"stake1_cents,omitempty"`
	Stake2Cents int64 `json:"stake2_cents,omitempty"`
	Exact       bool  `json:"exact,omitempty"` // true = valor exato em centavos, sem arredondar pra cima
}

// SettleRequest fecha uma aposta ativa com um dos três resultados possíveis.
type SettleRequest struct {
	ResultType  string         `json:"result_type"` // "win" | "loss" | "cashout"
	WinningSide int            `json:"winning_side,omitempty"`
	Cashouts    []CashoutEntry `json:"cashouts,omitempty"`
}

type CashoutEntry struct {
	AccountID   int64 `json:"account_id"`
	AmountCents int64 `json:"amount_cents"`
}

type SaveAccountRequest struct {
	AccountID    int64  `json:"account_id"`
	Name         string `json:"name"`
	BalanceCents int64  `json:"balance_cents"`
	Remarks      string `json:"remarks,omitempty"`
}

type SaveSettingsRequest struct {
	MinTransferCents         int64 `json:"min_transfer_cents"`
	DefaultBettingValueCents int64 `json:"default_betting_value_cents"`
}
