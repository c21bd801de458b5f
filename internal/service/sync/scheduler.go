package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/weiwangfds/snapshare/internal/errors"
	"github.com/weiwangfds/snapshare/internal/logger"
)

// Scheduler 对账调度器接口
// 按固定周期触发对账清扫和补索引
type Scheduler interface {
	// Start 启动调度器
	// 参数:
	//   ctx - 上下文，用于控制调度器生命周期
	// 返回:
	//   error - 已在运行时返回错误
	Start(ctx context.Context) error

	// Stop 停止调度器并等待当前轮次结束
	Stop() error
}

// scheduler 对账调度器实现
type scheduler struct {
	service  Service
	interval time.Duration
	batch    int

	stopChan  chan struct{}
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.Mutex
}

// NewScheduler 创建对账调度器实例
// 参数:
//   - service: 对账服务
//   - interval: 清扫周期
//   - reindexBatch: 每轮补索引的单批数量
func NewScheduler(service Service, interval time.Duration, reindexBatch int) Scheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &scheduler{
		service:  service,
		interval: interval,
		batch:    reindexBatch,
		stopChan: make(chan struct{}),
	}
}

// Start 启动调度器
func (s *scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("sync scheduler is already running")
	}
	s.isRunning = true

	logger.Infof("[对账调度] 调度器启动，周期 %s", s.interval)

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// loop 调度循环，周期触发一轮对账和补索引
func (s *scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[对账调度] 上下文取消，调度器退出")
			return
		case <-s.stopChan:
			logger.Info("[对账调度] 收到停止信号，调度器退出")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce 执行一轮对账清扫和补索引收敛
func (s *scheduler) runOnce(ctx context.Context) {
	if _, err := s.service.Reconcile(ctx); err != nil {
		if apperrors.IsCode(err, apperrors.ErrSyncInProgress) {
			logger.Warn("[对账调度] 上一轮清扫尚未结束，本轮跳过")
			return
		}
		logger.Errorf("[对账调度] 对账清扫失败: %v", err)
	}

	// 补索引反复调用直到收敛，受上下文取消约束
	for {
		processed, err := s.service.ReindexBatch(ctx, s.batch)
		if err != nil {
			logger.Errorf("[对账调度] 补索引失败: %v", err)
			return
		}
		if processed == 0 {
			return
		}
	}
}

// Stop 停止调度器
func (s *scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}
	close(s.stopChan)
	s.wg.Wait()
	s.isRunning = false

	logger.Info("[对账调度] 调度器已停止")
	return nil
}
