package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyActiveBets = "tracker:active_bets"
	keyHistory    = "tracker:history"
)

// Summary é o cache read-through das listagens. Guarda o JSON já serializado
// das respostas; mutações só invalidam, nunca escrevem de volta.
type Summary struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *Summary {
	return &Summary{R: r, TTL: ttl}
}

func (s *Summary) GetActiveBets(ctx context.Context) ([]byte, bool, error) {
	return s.get(ctx, keyActiveBets)
}

func (s *Summary) SetActiveBets(ctx context.Context, payload []byte) error {
	return s.R.Set(ctx, keyActiveBets, payload, s.TTL).Err()
}

func (s *Summary) GetHistory(ctx context.Context) ([]byte, bool, error) {
	return s.get(ctx, keyHistory)
}

func (s *Summary) SetHistory(ctx context.Context, payload []byte) error {
	return s.R.Set(ctx, keyHistory, payload, s.TTL).Err()
}

func (s *Summary) get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.R.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Invalidate derruba as duas chaves depois de qualquer mutação.
func (s *Summary) Invalidate(ctx context.Context) error {
	return s.R.Del(ctx, keyActiveBets, keyHistory).Err()
}
