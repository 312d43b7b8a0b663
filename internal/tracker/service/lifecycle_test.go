package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/radieske/bet-tracker-poc/internal/tracker/dto"
	"github.com/radieske/bet-tracker-poc/internal/tracker/repo"
	"github.com/radieske/bet-tracker-poc/pkg/contracts/events"
)

type fakeStore struct {
	createCalls  int
	createParams repo.CreateBetParams
	createErr    error

	settleWinCalls     int
	settleLossCalls    int
	settleCashoutCalls int
	settleErr          error
	cashouts           []repo.CashoutEntry
}

func (f *fakeStore) CreateBet(ctx context.Context, params repo.CreateBetParams) (repo.CreateBetOutcome, error) {
	f.createCalls++
	f.createParams = params
	if f.createErr != nil {
		return repo.CreateBetOutcome{}, f.createErr
	}
	return repo.CreateBetOutcome{
		BetID:   42,
		MatchID: 7,
		Balances: []repo.Account{
			{AccountID: 1, BalanceCents: 95000},
			{AccountID: 2, BalanceCents: 130000},
		},
	}, nil
}

func (f *fakeStore) SettleWin(ctx context.Context, betID int64, winningSide int) (repo.SettleOutcome, error) {
	f.settleWinCalls++
	if f.settleErr != nil {
		return repo.SettleOutcome{}, f.settleErr
	}
	return repo.SettleOutcome{ResultType: "win", WinningSide: &winningSide, ProfitCents: 210000}, nil
}

func (f *fakeStore) SettleLoss(ctx context.Context, betID int64) (repo.SettleOutcome, error) {
	f.settleLossCalls++
	if f.settleErr != nil {
		return repo.SettleOutcome{}, f.settleErr
	}
	return repo.SettleOutcome{ResultType: "loss", LossCents: 175000}, nil
}

func (f *fakeStore) SettleCashout(ctx context.Context, betID int64, cashouts []repo.CashoutEntry) (repo.SettleOutcome, error) {
	f.settleCashoutCalls++
	f.cashouts = cashouts
	if f.settleErr != nil {
		return repo.SettleOutcome{}, f.settleErr
	}
	var total int64
	for _, c := range cashouts {
		total += c.AmountCents
	}
	return repo.SettleOutcome{ResultType: "cashout", ProfitCents: total, Cashouts: cashouts}, nil
}

func (f *fakeStore) GetSettings(ctx context.Context) (repo.Settings, error) {
	return repo.Settings{MinTransferCents: 25000, DefaultBettingValueCents: 210000}, nil
}

type fakePublisher struct {
	placed  []events.BetPlaced
	settled []events.BetSettled
}

func (f *fakePublisher) PublishBetPlaced(ctx context.Context, evt events.BetPlaced) error {
	f.placed = append(f.placed, evt)
	return nil
}

func (f *fakePublisher) PublishBetSettled(ctx context.Context, evt events.BetSettled) error {
	f.settled = append(f.settled, evt)
	return nil
}

func newTestManager(store *fakeStore, pub *fakePublisher) *Manager {
	return NewManager(store, pub, nil, zap.NewNop(), true)
}

func validRequest() dto.CreateBetRequest {
	return dto.CreateBetRequest{
		Team1:             "Lakers",
		Team2:             "Celtics",
		MatchDate:         "2026-09-01",
		MatchTime:         "3:30 PM",
		Team1Odds:         2.0,
		Team2Odds:         1.9,
		BettingValueCents: 210000,
		Accounts1:         []int64{1, 3},
		Accounts2:         []int64{2, 4},
	}
}

func TestPlaceBetComputesStakes(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	m := newTestManager(store, pub)

	resp, err := m.PlaceBet(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if resp.BetID != 42 || resp.Status != "active" {
		t.Fatalf("resp = %+v", resp)
	}
	if store.createParams.Stake1Cents != 105000 {
		t.Errorf("stake1 = %d, want 105000", store.createParams.Stake1Cents)
	}
	if store.createParams.Stake2Cents != 110600 {
		t.Errorf("stake2 = %d, want 110600", store.createParams.Stake2Cents)
	}
	if len(pub.placed) != 1 {
		t.Fatalf("placed events = %d, want 1", len(pub.placed))
	}
	if pub.placed[0].BetID != 42 {
		t.Errorf("event betId = %d, want 42", pub.placed[0].BetID)
	}
}

func TestPlaceBetUsesDefaultBettingValue(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store, &fakePublisher{})

	req := validRequest()
	req.BettingValueCents = 0
	if _, err := m.PlaceBet(context.Background(), req); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if store.createParams.BettingValueCents != 210000 {
		t.Errorf("betting value = %d, want default 210000", store.createParams.BettingValueCents)
	}
}

func TestPlaceBetValidationOrder(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*dto.CreateBetRequest)
		wantErr error
	}{
		{"empty side", func(r *dto.CreateBetRequest) { r.Accounts2 = nil }, ErrMissingAccounts},
		{"account on both sides", func(r *dto.CreateBetRequest) { r.Accounts2 = []int64{1, 4} }, ErrAccountOnBothSides},
		{"account repeated on one side", func(r *dto.CreateBetRequest) { r.Accounts1 = []int64{1, 1} }, ErrInvalidInput},
		{"unbalanced sides", func(r *dto.CreateBetRequest) { r.Accounts2 = []int64{2} }, ErrUnbalancedSides},
		{"zero odds", func(r *dto.CreateBetRequest) { r.Team1Odds = 0 }, ErrInvalidInput},
		{"negative stake", func(r *dto.CreateBetRequest) { r.Stake1Cents = -1 }, ErrInvalidInput},
		{"missing teams for new match", func(r *dto.CreateBetRequest) { r.Team1 = "" }, ErrInvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			m := newTestManager(store, &fakePublisher{})

			req := validRequest()
			tc.mutate(&req)

			_, err := m.PlaceBet(context.Background(), req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
			if store.createCalls != 0 {
				t.Errorf("store touched %d times on invalid input", store.createCalls)
			}
		})
	}
}

func TestPlaceBetBothSidesInvalidWinsOverUnbalanced(t *testing.T) {
	// conta repetida tem precedência sobre contagem desigual
	store := &fakeStore{}
	m := newTestManager(store, &fakePublisher{})

	req := validRequest()
	req.Accounts2 = []int64{1}

	_, err := m.PlaceBet(context.Background(), req)
	if !errors.Is(err, ErrAccountOnBothSides) {
		t.Fatalf("error = %v, want ErrAccountOnBothSides", err)
	}
}

func TestPlaceBetEqualSidesNotEnforced(t *testing.T) {
	store := &fakeStore{}
	m := NewManager(store, &fakePublisher{}, nil, zap.NewNop(), false)

	req := validRequest()
	req.Accounts2 = []int64{2}

	if _, err := m.PlaceBet(context.Background(), req); err != nil {
		t.Fatalf("PlaceBet with enforcement off: %v", err)
	}
	if store.createCalls != 1 {
		t.Fatalf("createCalls = %d, want 1", store.createCalls)
	}
}

func TestPlaceBetPropagatesShortfalls(t *testing.T) {
	shortErr := &repo.InsufficientBalanceError{Shortfalls: []repo.BalanceShortfall{
		{AccountID: 1, Side: 1, RequiredCents: 105000, BalanceCents: 5000},
		{AccountID: 4, Side: 2, RequiredCents: 110600, BalanceCents: 0},
	}}
	store := &fakeStore{createErr: shortErr}
	pub := &fakePublisher{}
	m := newTestManager(store, pub)

	_, err := m.PlaceBet(context.Background(), validRequest())
	var got *repo.InsufficientBalanceError
	if !errors.As(err, &got) {
		t.Fatalf("error = %v, want InsufficientBalanceError", err)
	}
	if len(got.Shortfalls) != 2 {
		t.Errorf("shortfalls = %d, want 2", len(got.Shortfalls))
	}
	if len(pub.placed) != 0 {
		t.Errorf("no event should be published on rejection")
	}
}

func TestSettleWin(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	m := newTestManager(store, pub)

	resp, err := m.Settle(context.Background(), 42, dto.SettleRequest{ResultType: "win", WinningSide: 2})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if resp.Status != "completed" || resp.ResultType != "win" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.WinningSide == nil || *resp.WinningSide != 2 {
		t.Errorf("winning side = %v, want 2", resp.WinningSide)
	}
	if len(pub.settled) != 1 {
		t.Fatalf("settled events = %d, want 1", len(pub.settled))
	}
}

func TestSettleWinRequiresValidSide(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store, &fakePublisher{})

	for _, side := range []int{0, 3, -1} {
		_, err := m.Settle(context.Background(), 42, dto.SettleRequest{ResultType: "win", WinningSide: side})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("side %d: error = %v, want ErrInvalidInput", side, err)
		}
	}
	if store.settleWinCalls != 0 {
		t.Errorf("store touched on invalid side")
	}
}

func TestSettleCashout(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store, &fakePublisher{})

	resp, err := m.Settle(context.Background(), 42, dto.SettleRequest{
		ResultType: "cashout",
		Cashouts: []dto.CashoutEntry{
			{AccountID: 1, AmountCents: 50000},
			{AccountID: 2, AmountCents: 80000},
		},
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if resp.ProfitCents != 130000 {
		t.Errorf("profit = %d, want 130000", resp.ProfitCents)
	}
	if len(store.cashouts) != 2 {
		t.Errorf("cashout entries forwarded = %d, want 2", len(store.cashouts))
	}
}

func TestSettleCashoutRejectsNegative(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store, &fakePublisher{})

	_, err := m.Settle(context.Background(), 42, dto.SettleRequest{
		ResultType: "cashout",
		Cashouts:   []dto.CashoutEntry{{AccountID: 1, AmountCents: -100}},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if store.settleCashoutCalls != 0 {
		t.Errorf("store touched on negative cashout")
	}
}

func TestSettleCashoutRejectsDuplicateAccount(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(store, &fakePublisher{})

	_, err := m.Settle(context.Background(), 42, dto.SettleRequest{
		ResultType: "cashout",
		Cashouts: []dto.CashoutEntry{
			{AccountID: 1, AmountCents: 50000},
			{AccountID: 1, AmountCents: 30000},
		},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if store.settleCashoutCalls != 0 {
		t.Errorf("store touched on duplicate cashout account")
	}
}

func TestSettleUnknownResultType(t *testing.T) {
	m := newTestManager(&fakeStore{}, &fakePublisher{})

	_, err := m.Settle(context.Background(), 42, dto.SettleRequest{ResultType: "draw"})
	if !errors.Is(err, ErrUnknownResultType) {
		t.Fatalf("error = %v, want ErrUnknownResultType", err)
	}
}

func TestSettleAlreadySettled(t *testing.T) {
	store := &fakeStore{settleErr: repo.ErrBetAlreadySettled}
	pub := &fakePublisher{}
	m := newTestManager(store, pub)

	_, err := m.Settle(context.Background(), 42, dto.SettleRequest{ResultType: "loss"})
	if !errors.Is(err, repo.ErrBetAlreadySettled) {
		t.Fatalf("error = %v, want ErrBetAlreadySettled", err)
	}
	if len(pub.settled) != 0 {
		t.Errorf("no event should be published on failed settle")
	}
}
