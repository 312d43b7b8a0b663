package events

// Evento emitido pelo tracker-service após liquidar uma aposta.
type BetSettled struct {
	BetID       int64           `json:"bet_id"`
	ResultType  string          `json:"result_type"` // "win" | "loss" | "cashout"
	WinningSide *int            `json:"winning_side,omitempty"`
	ProfitCents int64           `json:"profit_cents"`
	LossCents   int64           `json:"loss_cents"`
	Cashouts    []CashoutAmount `json:"cashouts,omitempty"`
	TsUnixMs    int64           `json:"ts_unix_ms"`
}

type CashoutAmount struct {
	AccountID   int64 `json:"account_id"`
	AmountCents int64 `json:"amount_cents"`
}
