package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/radieske/bet-tracker-poc/internal/tracker/cache"
	"github.com/radieske/bet-tracker-poc/internal/tracker/dto"
	"github.com/radieske/bet-tracker-poc/internal/tracker/repo"
	"github.com/radieske/bet-tracker-poc/internal/tracker/service"
)

var (
	betsPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_bets_placed_total",
		Help: "Apostas criadas com sucesso.",
	})
	betsSettledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_bets_settled_total",
		Help: "Apostas liquidadas, por tipo de resultado.",
	}, []string{"result_type"})
)

// Store é o que o servidor precisa pra leituras e operações administrativas.
type Store interface {
	ListAccounts(ctx context.Context) ([]repo.Account, error)
	SaveAccount(ctx context.Context, acc repo.Account) error
	ListActiveBets(ctx context.Context) ([]dto.BetSummary, error)
	GetBetDetail(ctx context.Context, betID int64) (dto.BetDetail, error)
	GetHistory(ctx context.Context) ([]dto.HistoricalBet, error)
	GetSettings(ctx context.Context) (repo.Settings, error)
	SaveSettings(ctx context.Context, s repo.Settings) error
	DeleteMatch(ctx context.Context, matchID int64) error
	Backup(ctx context.Context, dir string) (string, error)
	Reset(ctx context.Context) error
}

type Server struct {
	store     Store
	manager   *service.Manager
	summaries *cache.Summary
	logger    *zap.Logger
	backupDir string
}

func NewServer(store Store, manager *service.Manager, summaries *cache.Summary, logger *zap.Logger, backupDir string) *Server {
	return &Server{
		store:     store,
		manager:   manager,
		summaries: summaries,
		logger:    logger,
		backupDir: backupDir,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/accounts", s.handleAccounts)
	mux.HandleFunc("/bets", s.handleBets)
	mux.HandleFunc("/bets/", s.handleBetByID)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/settings", s.handleSettings)
	mux.HandleFunc("/matches/", s.handleMatchByID)
	mux.HandleFunc("/admin/backup", s.handleBackup)
	mux.HandleFunc("/admin/reset", s.handleReset)

	return mux
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		accounts, err := s.store.ListAccounts(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		views := make([]dto.AccountView, 0, len(accounts))
		for _, a := range accounts {
			views = append(views, dto.AccountView{
				AccountID:    a.AccountID,
				Name:         a.Name,
				BalanceCents: a.BalanceCents,
				Remarks:      a.Remarks,
				IsActive:     a.IsActive,
				CreatedAt:    a.CreatedAt,
				UpdatedAt:    a.UpdatedAt,
			})
		}
		writeJSON(w, http.StatusOK, views)

	case http.MethodPut:
		var req dto.SaveAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid json body"})
			return
		}
		if req.AccountID <= 0 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "account_id must be positive"})
			return
		}
		if req.BalanceCents < 0 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "balance_cents cannot be negative"})
			return
		}
		err := s.store.SaveAccount(r.Context(), repo.Account{
			AccountID:    req.AccountID,
			Name:         req.Name,
			BalanceCents: req.BalanceCents,
			Remarks:      req.Remarks,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleBets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req dto.CreateBetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid json body"})
			return
		}
		resp, err := s.manager.PlaceBet(r.Context(), req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		betsPlacedTotal.Inc()
		writeJSON(w, http.StatusCreated, resp)

	case http.MethodGet:
		if payload, ok := s.cachedActiveBets(r.Context()); ok {
			writeRawJSON(w, http.StatusOK, payload)
			return
		}
		bets, err := s.store.ListActiveBets(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		if bets == nil {
			bets = []dto.BetSummary{}
		}
		s.cacheActiveBets(r.Context(), bets)
		writeJSON(w, http.StatusOK, bets)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleBetByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/bets/")

	if strings.HasSuffix(rest, "/settle") {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		betID, err := strconv.ParseInt(strings.TrimSuffix(rest, "/settle"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid bet id"})
			return
		}
		var req dto.SettleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid json body"})
			return
		}
		resp, err := s.manager.Settle(r.Context(), betID, req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		betsSettledTotal.WithLabelValues(resp.ResultType).Inc()
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	betID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid bet id"})
		return
	}
	detail, err := s.store.GetBetDetail(r.Context(), betID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if payload, ok := s.cachedHistory(r.Context()); ok {
		writeRawJSON(w, http.StatusOK, payload)
		return
	}
	history, err := s.store.GetHistory(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if history == nil {
		history = []dto.HistoricalBet{}
	}
	s.cacheHistory(r.Context(), history)
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.store.GetSettings(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.SettingsView{
			MinTransferCents:         settings.MinTransferCents,
			DefaultBettingValueCents: settings.DefaultBettingValueCents,
			UpdatedAt:                settings.UpdatedAt,
		})

	case http.MethodPut:
		var req dto.SaveSettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid json body"})
			return
		}
		if req.MinTransferCents < 0 || req.DefaultBettingValueCents <= 0 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "settings values out of range"})
			return
		}
		err := s.store.SaveSettings(r.Context(), repo.Settings{
			MinTransferCents:         req.MinTransferCents,
			DefaultBettingValueCents: req.DefaultBettingValueCents,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleMatchByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	matchID, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/matches/"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid match id"})
		return
	}
	if err := s.store.DeleteMatch(r.Context(), matchID); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateSummaries(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path, err := s.store.Backup(r.Context(), s.backupDir)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("backup written", zap.String("path", path))
	writeJSON(w, http.StatusOK, dto.BackupResponse{Path: path})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.store.Reset(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateSummaries(r.Context())
	s.logger.Warn("all data reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) cachedActiveBets(ctx context.Context) ([]byte, bool) {
	if s.summaries == nil {
		return nil, false
	}
	payload, ok, err := s.summaries.GetActiveBets(ctx)
	if err != nil {
		s.logger.Warn("cache read failed", zap.Error(err))
		return nil, false
	}
	return payload, ok
}

// o Set pode repor um payload lido antes de um Invalidate concorrente;
// a entrada velha dura no máximo o TTL
func (s *Server) cacheActiveBets(ctx context.Context, bets []dto.BetSummary) {
	if s.summaries == nil {
		return
	}
	payload, err := json.Marshal(bets)
	if err != nil {
		return
	}
	if err := s.summaries.SetActiveBets(ctx, payload); err != nil {
		s.logger.Warn("cache write failed", zap.Error(err))
	}
}

func (s *Server) cachedHistory(ctx context.Context) ([]byte, bool) {
	if s.summaries == nil {
		return nil, false
	}
	payload, ok, err := s.summaries.GetHistory(ctx)
	if err != nil {
		s.logger.Warn("cache read failed", zap.Error(err))
		return nil, false
	}
	return payload, ok
}

func (s *Server) cacheHistory(ctx context.Context, history []dto.HistoricalBet) {
	if s.summaries == nil {
		return
	}
	payload, err := json.Marshal(history)
	if err != nil {
		return
	}
	if err := s.summaries.SetHistory(ctx, payload); err != nil {
		s.logger.Warn("cache write failed", zap.Error(err))
	}
}

func (s *Server) invalidateSummaries(ctx context.Context) {
	if s.summaries == nil {
		return
	}
	if err := s.summaries.Invalidate(ctx); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}

// writeError mapeia os erros de domínio pros status HTTP da API.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var insufficient *repo.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		shortfalls := make([]dto.BalanceShortfall, 0, len(insufficient.Shortfalls))
		for _, sf := range insufficient.Shortfalls {
			shortfalls = append(shortfalls, dto.BalanceShortfall{
				AccountID:     sf.AccountID,
				Side:          sf.Side,
				RequiredCents: sf.RequiredCents,
				BalanceCents:  sf.BalanceCents,
			})
		}
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "insufficient balance", Shortfalls: shortfalls})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrMissingAccounts),
		errors.Is(err, service.ErrAccountOnBothSides),
		errors.Is(err, service.ErrUnbalancedSides),
		errors.Is(err, service.ErrUnknownResultType):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})

	case errors.Is(err, repo.ErrAccountNotFound),
		errors.Is(err, repo.ErrMatchNotFound),
		errors.Is(err, repo.ErrBetNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})

	case errors.Is(err, repo.ErrBetAlreadySettled):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})

	default:
		s.logger.Error("internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeRawJSON(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
