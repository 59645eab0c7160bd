package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultPersistInterval = 300 * time.Second

// PersisterService flushes dirty per-user models to durable storage on a
// fixed interval. Failures are logged and retried on the next tick; the
// in-memory state keeps serving either way.
type PersisterService struct {
	agents *AgentService
	logger *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewPersisterService(agents *AgentService, logger *zap.Logger) *PersisterService {
	return &PersisterService{
		agents:   agents,
		logger:   logger,
		interval: defaultPersistInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *PersisterService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Start runs the persister on a periodic schedule in a background goroutine.
func (s *PersisterService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("model persister started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if err := s.agents.PersistAll(ctx); err != nil {
					s.logger.Error("scheduled model persist failed", zap.Error(err))
				}
				cancel()
			case <-s.stopCh:
				s.logger.Info("model persister stopped")
				return
			}
		}
	}()
}

// Stop stops the schedule and flushes whatever is still dirty, so unpersisted
// updates are not dropped at shutdown.
func (s *PersisterService) Stop() {
	close(s.stopCh)
	s.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.agents.PersistAll(ctx); err != nil {
		s.logger.Error("final model persist failed", zap.Error(err))
	}
}
