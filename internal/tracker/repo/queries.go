package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/radieske/bet-tracker-poc/internal/tracker/dto"
)

// Leituras da API. Devolvem direto as structs de visão do pacote dto; quem
// chama não precisa remontar joins.

func (p *Postgres) ListActiveBets(ctx context.Context) ([]dto.BetSummary, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT b.bet_id, b.match_id, m.team1, m.team2, m.match_date, m.match_time,
		       b.team1_odds, b.team2_odds, b.betting_value_cents, b.created_at
		FROM bets b
		JOIN matches m ON m.match_id = b.match_id
		WHERE b.status = 'active'
		ORDER BY b.bet_id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list active bets: %w", err)
	}
	defer rows.Close()

	var out []dto.BetSummary
	for rows.Next() {
		var s dto.BetSummary
		if err := rows.Scan(&s.BetID, &s.MatchID, &s.Team1, &s.Team2, &s.MatchDate, &s.MatchTime,
			&s.Team1Odds, &s.Team2Odds, &s.BettingValueCents, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bet summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) GetBetDetail(ctx context.Context, betID int64) (dto.BetDetail, error) {
	var d dto.BetDetail
	err := p.DB.QueryRowContext(ctx, `
		SELECT b.bet_id, b.match_id, m.team1, m.team2, m.match_date, m.match_time,
		       b.team1_odds, b.team2_odds, b.betting_value_cents, b.created_at, b.status
		FROM bets b
		JOIN matches m ON m.match_id = b.match_id
		WHERE b.bet_id = $1
	`, betID).Scan(&d.BetID, &d.MatchID, &d.Team1, &d.Team2, &d.MatchDate, &d.MatchTime,
		&d.Team1Odds, &d.Team2Odds, &d.BettingValueCents, &d.CreatedAt, &d.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return dto.BetDetail{}, ErrBetNotFound
	}
	if err != nil {
		return dto.BetDetail{}, fmt.Errorf("get bet: %w", err)
	}

	accounts, err := p.listAllocationViews(ctx, betID)
	if err != nil {
		return dto.BetDetail{}, err
	}
	d.Accounts = accounts
	return d, nil
}

func (p *Postgres) listAllocationViews(ctx context.Context, betID int64) ([]dto.AllocationView, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT ba.account_id, a.name, ba.side, ba.stake_cents, a.balance_cents
		FROM bet_accounts ba
		JOIN accounts a ON a.account_id = ba.account_id
		WHERE ba.bet_id = $1
		ORDER BY ba.side, ba.account_id
	`, betID)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	var out []dto.AllocationView
	for rows.Next() {
		var v dto.AllocationView
		if err := rows.Scan(&v.AccountID, &v.Name, &v.Side, &v.StakeCents, &v.BalanceCents); err != nil {
			return nil, fmt.Errorf("scan allocation view: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetHistory retorna as apostas liquidadas, mais recentes primeiro, com
// resultado e alocações já montados.
func (p *Postgres) GetHistory(ctx context.Context) ([]dto.HistoricalBet, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT b.bet_id, b.match_id, m.team1, m.team2, m.match_date, m.match_time,
		       b.team1_odds, b.team2_odds, b.betting_value_cents, b.created_at,
		       r.result_type, r.winning_side, r.profit_cents, r.loss_cents,
		       r.cashout_details, r.created_at
		FROM bets b
		JOIN matches m ON m.match_id = b.match_id
		JOIN results r ON r.bet_id = b.bet_id
		WHERE b.status = 'completed'
		ORDER BY r.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer rows.Close()

	var out []dto.HistoricalBet
	for rows.Next() {
		var h dto.HistoricalBet
		var winningSide sql.NullInt64
		var cashoutRaw []byte
		var settledAt time.Time
		if err := rows.Scan(&h.BetID, &h.MatchID, &h.Team1, &h.Team2, &h.MatchDate, &h.MatchTime,
			&h.Team1Odds, &h.Team2Odds, &h.BettingValueCents, &h.CreatedAt,
			&h.ResultType, &winningSide, &h.ProfitCents, &h.LossCents,
			&cashoutRaw, &settledAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if winningSide.Valid {
			side := int(winningSide.Int64)
			h.WinningSide = &side
		}
		if len(cashoutRaw) > 0 {
			if err := json.Unmarshal(cashoutRaw, &h.Cashouts); err != nil {
				return nil, fmt.Errorf("decode cashouts: %w", err)
			}
		}
		h.SettledAt = &settledAt
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		accounts, err := p.listAllocationViews(ctx, out[i].BetID)
		if err != nil {
			return nil, err
		}
		out[i].Accounts = accounts
	}
	return out, nil
}

// InsertSettlementAudit grava o registro de auditoria consumido do Kafka pelo
// worker.
func (p *Postgres) InsertSettlementAudit(ctx context.Context, betID int64, resultType string, profitCents, lossCents int64, payload []byte) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO settlement_audit (bet_id, result_type, profit_cents, loss_cents, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, betID, resultType, profitCents, lossCents, string(payload))
	if err != nil {
		return fmt.Errorf("insert settlement audit: %w", err)
	}
	return nil
}
