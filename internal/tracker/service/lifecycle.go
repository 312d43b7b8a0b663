package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-tracker-poc/internal/tracker/dto"
	"github.com/radieske/bet-tracker-poc/internal/tracker/repo"
	"github.com/radieske/bet-tracker-poc/internal/tracker/stake"
	"github.com/radieske/bet-tracker-poc/pkg/contracts/events"
)

// Store é o que o ciclo de vida precisa do repositório. repo.Postgres
// implementa tudo.
type Store interface {
	CreateBet(ctx context.Context, params repo.CreateBetParams) (repo.CreateBetOutcome, error)
	SettleWin(ctx context.Context, betID int64, winningSide int) (repo.SettleOutcome, error)
	SettleLoss(ctx context.Context, betID int64) (repo.SettleOutcome, error)
	SettleCashout(ctx context.Context, betID int64, cashouts []repo.CashoutEntry) (repo.SettleOutcome, error)
	GetSettings(ctx context.Context) (repo.Settings, error)
}

// Publisher emite os eventos de domínio no Kafka.
type Publisher interface {
	PublishBetPlaced(ctx context.Context, evt events.BetPlaced) error
	PublishBetSettled(ctx context.Context, evt events.BetSettled) error
}

// Invalidator derruba as chaves de cache de leitura depois de uma mutação.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Manager orquestra o ciclo de vida das apostas: valida, calcula stakes,
// delega a transação pro repo e emite eventos.
type Manager struct {
	store             Store
	publisher         Publisher
	cache             Invalidator
	logger            *zap.Logger
	enforceEqualSides bool
}

func NewManager(store Store, publisher Publisher, cache Invalidator, logger *zap.Logger, enforceEqualSides bool) *Manager {
	return &Manager{
		store:             store,
		publisher:         publisher,
		cache:             cache,
		logger:            logger,
		enforceEqualSides: enforceEqualSides,
	}
}

// PlaceBet valida a requisição, resolve stakes e grava a aposta. A ordem de
// validação é fixa: contas faltando, conta nos dois lados, lados
// desbalanceados e só então valores inválidos.
func (m *Manager) PlaceBet(ctx context.Context, req dto.CreateBetRequest) (dto.CreateBetResponse, error) {
	if len(req.Accounts1) == 0 || len(req.Accounts2) == 0 {
		return dto.CreateBetResponse{}, ErrMissingAccounts
	}

	side1 := make(map[int64]bool, len(req.Accounts1))
	for _, id := range req.Accounts1 {
		if side1[id] {
			return dto.CreateBetResponse{}, fmt.Errorf("%w: account %d repeated", ErrInvalidInput, id)
		}
		side1[id] = true
	}
	side2 := make(map[int64]bool, len(req.Accounts2))
	for _, id := range req.Accounts2 {
		if side1[id] {
			return dto.CreateBetResponse{}, fmt.Errorf("%w: %d", ErrAccountOnBothSides, id)
		}
		if side2[id] {
			return dto.CreateBetResponse{}, fmt.Errorf("%w: account %d repeated", ErrInvalidInput, id)
		}
		side2[id] = true
	}

	if m.enforceEqualSides && len(req.Accounts1) != len(req.Accounts2) {
		return dto.CreateBetResponse{}, ErrUnbalancedSides
	}

	if req.Team1Odds <= 0 || req.Team2Odds <= 0 {
		return dto.CreateBetResponse{}, fmt.Errorf("%w: odds must be positive", ErrInvalidInput)
	}
	if req.Stake1Cents < 0 || req.Stake2Cents < 0 {
		return dto.CreateBetResponse{}, fmt.Errorf("%w: stakes cannot be negative", ErrInvalidInput)
	}
	if req.MatchID == nil && (req.Team1 == "" || req.Team2 == "" || req.MatchDate == "") {
		return dto.CreateBetResponse{}, fmt.Errorf("%w: new match needs teams and date", ErrInvalidInput)
	}

	bettingValue := req.BettingValueCents
	if bettingValue == 0 {
		settings, err := m.store.GetSettings(ctx)
		if err != nil {
			return dto.CreateBetResponse{}, err
		}
		bettingValue = settings.DefaultBettingValueCents
	}
	if bettingValue <= 0 {
		return dto.CreateBetResponse{}, fmt.Errorf("%w: betting value must be positive", ErrInvalidInput)
	}

	stake1 := req.Stake1Cents
	stake2 := req.Stake2Cents
	var err error
	if stake1 == 0 {
		if stake1, err = stake.Compute(bettingValue, req.Team1Odds, req.Exact); err != nil {
			return dto.CreateBetResponse{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if stake2 == 0 {
		if stake2, err = stake.Compute(bettingValue, req.Team2Odds, req.Exact); err != nil {
			return dto.CreateBetResponse{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	outcome, err := m.store.CreateBet(ctx, repo.CreateBetParams{
		MatchID:           req.MatchID,
		Team1:             req.Team1,
		Team2:             req.Team2,
		MatchDate:         req.MatchDate,
		MatchTime:         req.MatchTime,
		Team1Odds:         req.Team1Odds,
		Team2Odds:         req.Team2Odds,
		BettingValueCents: bettingValue,
		Accounts1:         req.Accounts1,
		Accounts2:         req.Accounts2,
		Stake1Cents:       stake1,
		Stake2Cents:       stake2,
	})
	if err != nil {
		return dto.CreateBetResponse{}, err
	}

	m.logger.Info("bet placed",
		zap.Int64("betId", outcome.BetID),
		zap.Int64("matchId", outcome.MatchID),
		zap.Int64("stake1_cents", stake1),
		zap.Int64("stake2_cents", stake2),
	)

	evt := events.BetPlaced{
		BetID:             outcome.BetID,
		MatchID:           outcome.MatchID,
		Team1:             req.Team1,
		Team2:             req.Team2,
		Team1Odds:         req.Team1Odds,
		Team2Odds:         req.Team2Odds,
		BettingValueCents: bettingValue,
		Stake1Cents:       stake1,
		Stake2Cents:       stake2,
		Accounts1:         req.Accounts1,
		Accounts2:         req.Accounts2,
		TsUnixMs:          time.Now().UnixMilli(),
	}
	if err := m.publisher.PublishBetPlaced(ctx, evt); err != nil {
		// aposta já está gravada; evento perdido não desfaz a transação
		m.logger.Warn("failed to publish bet_placed", zap.Int64("betId", outcome.BetID), zap.Error(err))
	}

	m.invalidate(ctx)

	resp := dto.CreateBetResponse{BetID: outcome.BetID, Status: "active"}
	for _, acc := range outcome.Balances {
		resp.Balances = append(resp.Balances, dto.AccountBalance{
			AccountID:    acc.AccountID,
			BalanceCents: acc.BalanceCents,
		})
	}
	return resp, nil
}

// Settle fecha uma aposta ativa. result_type decide o fluxo: win precisa de
// winning_side 1 ou 2, cashout precisa da lista de valores por conta.
func (m *Manager) Settle(ctx context.Context, betID int64, req dto.SettleRequest) (dto.SettleResponse, error) {
	var outcome repo.SettleOutcome
	var err error

	switch req.ResultType {
	case "win":
		if req.WinningSide != 1 && req.WinningSide != 2 {
			return dto.SettleResponse{}, fmt.Errorf("%w: winning_side must be 1 or 2", ErrInvalidInput)
		}
		outcome, err = m.store.SettleWin(ctx, betID, req.WinningSide)
	case "loss":
		outcome, err = m.store.SettleLoss(ctx, betID)
	case "cashout":
		if len(req.Cashouts) == 0 {
			return dto.SettleResponse{}, fmt.Errorf("%w: cashout needs at least one entry", ErrInvalidInput)
		}
		entries := make([]repo.CashoutEntry, 0, len(req.Cashouts))
		seen := make(map[int64]bool, len(req.Cashouts))
		for _, c := range req.Cashouts {
			if c.AmountCents < 0 {
				return dto.SettleResponse{}, fmt.Errorf("%w: cashout amount cannot be negative", ErrInvalidInput)
			}
			if seen[c.AccountID] {
				return dto.SettleResponse{}, fmt.Errorf("%w: account %d repeated in cashout", ErrInvalidInput, c.AccountID)
			}
			seen[c.AccountID] = true
			entries = append(entries, repo.CashoutEntry{AccountID: c.AccountID, AmountCents: c.AmountCents})
		}
		outcome, err = m.store.SettleCashout(ctx, betID, entries)
	default:
		return dto.SettleResponse{}, fmt.Errorf("%w: %q", ErrUnknownResultType, req.ResultType)
	}
	if err != nil {
		return dto.SettleResponse{}, err
	}

	m.logger.Info("bet settled",
		zap.Int64("betId", betID),
		zap.String("result_type", outcome.ResultType),
		zap.Int64("profit_cents", outcome.ProfitCents),
		zap.Int64("loss_cents", outcome.LossCents),
	)

	evt := events.BetSettled{
		BetID:       betID,
		ResultType:  outcome.ResultType,
		WinningSide: outcome.WinningSide,
		ProfitCents: outcome.ProfitCents,
		LossCents:   outcome.LossCents,
		TsUnixMs:    time.Now().UnixMilli(),
	}
	for _, c := range outcome.Cashouts {
		evt.Cashouts = append(evt.Cashouts, events.CashoutAmount{AccountID: c.AccountID, AmountCents: c.AmountCents})
	}
	if err := m.publisher.PublishBetSettled(ctx, evt); err != nil {
		m.logger.Warn("failed to publish bet_settled", zap.Int64("betId", betID), zap.Error(err))
	}

	m.invalidate(ctx)

	return dto.SettleResponse{
		BetID:       betID,
		Status:      "completed",
		ResultType:  outcome.ResultType,
		WinningSide: outcome.WinningSide,
		ProfitCents: outcome.ProfitCents,
		LossCents:   outcome.LossCents,
	}, nil
}

func (m *Manager) invalidate(ctx context.Context) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Invalidate(ctx); err != nil {
		m.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}
