package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrMatchNotFound     = errors.New("match not found")
	ErrBetNotFound       = errors.New("bet not found")
	ErrBetAlreadySettled = errors.New("bet already settled")
)

// BalanceShortfall descreve uma conta sem saldo pro stake do seu lado.
type BalanceShortfall struct {
	AccountID     int64
	Side          int
	RequiredCents int64
	BalanceCents  int64
}

// InsufficientBalanceError carrega todas as contas sem saldo de uma vez, pra
// API devolver a lista completa em vez de falhar conta a conta.
type InsufficientBalanceError struct {
	Shortfalls []BalanceShortfall
}

func (e *InsufficientBalanceError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("account %d (side %d): needs %d, has %d",
			s.AccountID, s.Side, s.RequiredCents, s.BalanceCents))
	}
	return "insufficient balance: " + strings.Join(parts, "; ")
}

type CreateBetParams struct {
	MatchID           *int64
	Team1             string
	Team2             string
	MatchDate         string
	MatchTime         string
	Team1Odds         float64
	Team2Odds         float64
	BettingValueCents int64
	Accounts1         []int64
	Accounts2         []int64
	Stake1Cents       int64
	Stake2Cents       int64
}

type CreateBetOutcome struct {
	BetID    int64
	MatchID  int64
	Balances []Account
}

// CreateBet grava a aposta inteira numa transação só: trava as contas dos
// dois lados, valida saldo de todas, cria a partida se preciso, insere
// aposta e alocações e debita os stakes. Qualquer falha desfaz tudo.
func (p *Postgres) CreateBet(ctx context.Context, params CreateBetParams) (CreateBetOutcome, error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return CreateBetOutcome{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	required := make(map[int64]int64, len(params.Accounts1)+len(params.Accounts2))
	sides := make(map[int64]int, len(required))
	allIDs := make([]int64, 0, len(params.Accounts1)+len(params.Accounts2))
	for _, id := range params.Accounts1 {
		required[id] = params.Stake1Cents
		sides[id] = 1
		allIDs = append(allIDs, id)
	}
	for _, id := range params.Accounts2 {
		required[id] = params.Stake2Cents
		sides[id] = 2
		allIDs = append(allIDs, id)
	}

	// ordem fixa de lock pra evitar deadlock entre apostas concorrentes
	rows, err := tx.QueryContext(ctx, `
		SELECT account_id, balance_cents
		FROM accounts
		WHERE account_id = ANY($1)
		ORDER BY account_id
		FOR UPDATE
	`, pq.Array(allIDs))
	if err != nil {
		return CreateBetOutcome{}, fmt.Errorf("lock accounts: %w", err)
	}

	balances := make(map[int64]int64, len(allIDs))
	for rows.Next() {
		var id, bal int64
		if err := rows.Scan(&id, &bal); err != nil {
			rows.Close()
			return CreateBetOutcome{}, fmt.Errorf("scan balance: %w", err)
		}
		balances[id] = bal
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return CreateBetOutcome{}, fmt.Errorf("lock accounts: %w", err)
	}

	for _, id := range allIDs {
		if _, ok := balances[id]; !ok {
			return CreateBetOutcome{}, fmt.Errorf("%w: %d", ErrAccountNotFound, id)
		}
	}

	// junta todas as contas sem saldo antes de rejeitar
	var shortfalls []BalanceShortfall
	for _, id := range allIDs {
		if balances[id] < required[id] {
			shortfalls = append(shortfalls, BalanceShortfall{
				AccountID:     id,
				Side:          sides[id],
				RequiredCents: required[id],
				BalanceCents:  balances[id],
			})
		}
	}
	if len(shortfalls) > 0 {
		return CreateBetOutcome{}, &InsufficientBalanceError{Shortfalls: shortfalls}
	}

	var matchID int64
	if params.MatchID != nil {
		matchID = *params.MatchID
		var exists bool
		err := tx.QueryRowContext(ctx, `SELECT TRUE FROM matches WHERE match_id = $1`, matchID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return CreateBetOutcome{}, fmt.Errorf("%w: %d", ErrMatchNotFound, matchID)
		}
		if err != nil {
			return CreateBetOutcome{}, fmt.Errorf("check match: %w", err)
		}
	} else {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO matches (team1, team2, match_date, match_time)
			VALUES ($1, $2, $3, $4)
			RETURNING match_id
		`, params.Team1, params.Team2, params.MatchDate, params.MatchTime).Scan(&matchID)
		if err != nil {
			return CreateBetOutcome{}, fmt.Errorf("insert match: %w", err)
		}
	}

	var betID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO bets (match_id, team1_odds, team2_odds, betting_value_cents, status)
		VALUES ($1, $2, $3, $4, 'active')
		RETURNING bet_id
	`, matchID, params.Team1Odds, params.Team2Odds, params.BettingValueCents).Scan(&betID)
	if err != nil {
		return CreateBetOutcome{}, fmt.Errorf("insert bet: %w", err)
	}

	for _, id := range allIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bet_accounts (bet_id, account_id, side, stake_cents)
			VALUES ($1, $2, $3, $4)
		`, betID, id, sides[id], required[id]); err != nil {
			return CreateBetOutcome{}, fmt.Errorf("insert allocation: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE accounts
			SET balance_cents = balance_cents - $1, updated_at = now()
			WHERE account_id = $2
		`, required[id], id); err != nil {
			return CreateBetOutcome{}, fmt.Errorf("debit account: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return CreateBetOutcome{}, fmt.Errorf("commit: %w", err)
	}

	out := CreateBetOutcome{BetID: betID, MatchID: matchID}
	for _, id := range allIDs {
		out.Balances = append(out.Balances, Account{
			AccountID:    id,
			BalanceCents: balances[id] - required[id],
		})
	}
	return out, nil
}

type SettleOutcome struct {
	ResultType  string
	WinningSide *int
	ProfitCents int64
	LossCents   int64
	Cashouts    []CashoutEntry
}

// lockActiveBet trava a aposta pra liquidação e retorna as odds por lado.
func lockActiveBet(ctx context.Context, tx *sql.Tx, betID int64) (team1Odds, team2Odds float64, err error) {
	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT team1_odds, team2_odds, status
		FROM bets
		WHERE bet_id = $1
		FOR UPDATE
	`, betID).Scan(&team1Odds, &team2Odds, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrBetNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("lock bet: %w", err)
	}
	if status != "active" {
		return 0, 0, ErrBetAlreadySettled
	}
	return team1Odds, team2Odds, nil
}

func loadAllocations(ctx context.Context, tx *sql.Tx, betID int64) ([]StakeAllocation, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT bet_id, account_id, side, stake_cents
		FROM bet_accounts
		WHERE bet_id = $1
		ORDER BY account_id
	`, betID)
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}
	defer rows.Close()

	var out []StakeAllocation
	for rows.Next() {
		var a StakeAllocation
		if err := rows.Scan(&a.BetID, &a.AccountID, &a.Side, &a.StakeCents); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func closeBet(ctx context.Context, tx *sql.Tx, betID int64, r Result, cashouts []CashoutEntry) error {
	// jsonb via lib/pq precisa chegar como texto, não []byte
	var details any
	if len(cashouts) > 0 {
		data, err := json.Marshal(cashouts)
		if err != nil {
			return fmt.Errorf("marshal cashouts: %w", err)
		}
		details = string(data)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO results (bet_id, result_type, winning_side, profit_cents, loss_cents, cashout_details)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, betID, r.ResultType, r.WinningSide, r.ProfitCents, r.LossCents, details); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE bets SET status = 'completed' WHERE bet_id = $1
	`, betID); err != nil {
		return fmt.Errorf("close bet: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE matches SET status = 'completed'
		WHERE match_id = (SELECT match_id FROM bets WHERE bet_id = $1)
		  AND NOT EXISTS (
			SELECT 1 FROM bets b
			WHERE b.match_id = (SELECT match_id FROM bets WHERE bet_id = $1)
			  AND b.status = 'active'
		  )
	`, betID); err != nil {
		return fmt.Errorf("close match: %w", err)
	}
	return nil
}

// SettleWin credita cada conta do lado vencedor com stake * odds (retorno
// bruto, stake incluso) e fecha a aposta.
func (p *Postgres) SettleWin(ctx context.Context, betID int64, winningSide int) (SettleOutcome, error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return SettleOutcome{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	team1Odds, team2Odds, err := lockActiveBet(ctx, tx, betID)
	if err != nil {
		return SettleOutcome{}, err
	}

	odds := team1Odds
	if winningSide == 2 {
		odds = team2Odds
	}

	allocations, err := loadAllocations(ctx, tx, betID)
	if err != nil {
		return SettleOutcome{}, err
	}

	var profit int64
	for _, a := range allocations {
		if a.Side != winningSide {
			continue
		}
		payout := int64(math.Round(float64(a.StakeCents) * odds))
		profit += payout
		if _, err := tx.ExecContext(ctx, `
			UPDATE accounts
			SET balance_cents = balance_cents + $1, updated_at = now()
			WHERE account_id = $2
		`, payout, a.AccountID); err != nil {
			return SettleOutcome{}, fmt.Errorf("credit account: %w", err)
		}
	}

	side := winningSide
	result := Result{ResultType: "win", WinningSide: &side, ProfitCents: profit}
	if err := closeBet(ctx, tx, betID, result, nil); err != nil {
		return SettleOutcome{}, err
	}

	if err := tx.Commit(); err != nil {
		return SettleOutcome{}, fmt.Errorf("commit: %w", err)
	}

	return SettleOutcome{ResultType: "win", WinningSide: &side, ProfitCents: profit}, nil
}

// SettleLoss fecha a aposta sem crédito nenhum; os stakes já debitados viram
// a perda registrada.
func (p *Postgres) SettleLoss(ctx context.Context, betID int64) (SettleOutcome, error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return SettleOutcome{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, _, err := lockActiveBet(ctx, tx, betID); err != nil {
		return SettleOutcome{}, err
	}

	allocations, err := loadAllocations(ctx, tx, betID)
	if err != nil {
		return SettleOutcome{}, err
	}

	var loss int64
	for _, a := range allocations {
		loss += a.StakeCents
	}

	if err := closeBet(ctx, tx, betID, Result{ResultType: "loss", LossCents: loss}, nil); err != nil {
		return SettleOutcome{}, err
	}

	if err := tx.Commit(); err != nil {
		return SettleOutcome{}, fmt.Errorf("commit: %w", err)
	}

	return SettleOutcome{ResultType: "loss", LossCents: loss}, nil
}

// SettleCashout credita os valores negociados conta a conta, tudo na mesma
// transação, e guarda o detalhamento no resultado.
func (p *Postgres) SettleCashout(ctx context.Context, betID int64, cashouts []CashoutEntry) (SettleOutcome, error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return SettleOutcome{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, _, err := lockActiveBet(ctx, tx, betID); err != nil {
		return SettleOutcome{}, err
	}

	allocations, err := loadAllocations(ctx, tx, betID)
	if err != nil {
		return SettleOutcome{}, err
	}
	participants := make(map[int64]bool, len(allocations))
	for _, a := range allocations {
		participants[a.AccountID] = true
	}

	var total int64
	for _, c := range cashouts {
		if !participants[c.AccountID] {
			return SettleOutcome{}, fmt.Errorf("%w: %d not in bet %d", ErrAccountNotFound, c.AccountID, betID)
		}
		total += c.AmountCents
		if _, err := tx.ExecContext(ctx, `
			UPDATE accounts
			SET balance_cents = balance_cents + $1, updated_at = now()
			WHERE account_id = $2
		`, c.AmountCents, c.AccountID); err != nil {
			return SettleOutcome{}, fmt.Errorf("credit account: %w", err)
		}
	}

	result := Result{ResultType: "cashout", ProfitCents: total}
	if err := closeBet(ctx, tx, betID, result, cashouts); err != nil {
		return SettleOutcome{}, err
	}

	if err := tx.Commit(); err != nil {
		return SettleOutcome{}, fmt.Errorf("commit: %w", err)
	}

	return SettleOutcome{ResultType: "cashout", ProfitCents: total, Cashouts: cashouts}, nil
}
