package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"snapmail/backend/internal/monitoring"
	"snapmail/backend/internal/pool"
	"snapmail/backend/internal/storage"
)

// ReclaimService 周期性扫描并回收过期邮箱。
//
// 每轮先批量删掉过期邮箱名下的邮件，再通过协程池并发删除
// 邮箱本身，保证不会出现邮箱已删而邮件还在的窗口。
// 单个删除失败只记日志，下一轮扫描会重试。
type ReclaimService struct {
	repo      storage.Store
	interval  time.Duration
	batchSize int
	workers   *pool.WorkerPool
	metrics   *monitoring.Metrics
	log       *zap.Logger
}

// NewReclaimService 创建回收服务。
func NewReclaimService(repo storage.Store, interval time.Duration, batchSize int, workers *pool.WorkerPool, metrics *monitoring.Metrics, log *zap.Logger) *ReclaimService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReclaimService{
		repo:      repo,
		interval:  interval,
		batchSize: batchSize,
		workers:   workers,
		metrics:   metrics,
		log:       log,
	}
}

// Run 启动回收循环，直到上下文取消才返回。
func (s *ReclaimService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("reclaim loop started",
		zap.Duration("interval", s.interval),
		zap.Int("batch_size", s.batchSize),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reclaim loop stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce 执行一轮过期邮箱回收，返回回收的邮箱数量。
func (s *ReclaimService) SweepOnce(ctx context.Context) int {
	start := time.Now()

	addresses, err := s.repo.ListExpiredAddresses(start, s.batchSize)
	if err != nil {
		s.log.Error("failed to list expired mailboxes", zap.Error(err))
		return 0
	}
	if len(addresses) == 0 {
		return 0
	}

	// 邮件先删，确保任何时点都不存在无主且可读的邮件
	deleted, err := s.repo.DeleteMessagesByOwners(addresses)
	if err != nil {
		s.log.Error("failed to delete messages of expired mailboxes", zap.Error(err))
		return 0
	}

	var wg sync.WaitGroup
	reclaimed := 0
	var mu sync.Mutex

	for _, addr := range addresses {
		addr := addr
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := s.repo.DeleteMailbox(addr); err != nil {
				s.log.Warn("failed to reclaim mailbox",
					zap.String("address", addr),
					zap.Error(err),
				)
				return
			}
			mu.Lock()
			reclaimed++
			mu.Unlock()
		}
		if s.workers != nil {
			s.workers.Submit(task)
		} else {
			task()
		}
	}
	wg.Wait()

	if s.metrics != nil {
		s.metrics.RecordSweep(reclaimed, time.Since(start))
	}
	s.log.Info("sweep round finished",
		zap.Int("mailboxes_reclaimed", reclaimed),
		zap.Int("messages_deleted", deleted),
		zap.Duration("elapsed", time.Since(start)),
	)
	return reclaimed
}
