package services

import (
	"context"
	"fmt"
	"time"

	"erpbridge/internal/config"
	"erpbridge/internal/domain"
	"erpbridge/internal/repos"
)

type BridgeService struct {
	Pool *repos.Pool
	DB   config.DB
}

func NewBridgeService(pool *repos.Pool, db config.DB) *BridgeService {
	return &BridgeService{Pool: pool, DB: db}
}

// Health acquires a session and reports how long that took. The error is the
// pool's connection error, whose text is the driver's own message.
func (s *BridgeService) Health(ctx context.Context) (domain.Health, error) {
	start := time.Now()
	if _, err := s.Pool.Acquire(ctx); err != nil {
		return domain.Health{}, err
	}
	ms := time.Since(start).Milliseconds()
	return domain.Health{
		Status:    "OK",
		DB:        s.DB.Label(),
		Latency:   fmt.Sprintf("%dms", ms),
		LatencyMs: ms,
		Server:    s.DB.Server(),
	}, nil
}
