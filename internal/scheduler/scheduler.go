package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrStarted 调度器已启动，不能再添加任务
	ErrStarted = errors.New("scheduler already started")
	// ErrInvalidInterval 任务周期必须为正
	ErrInvalidInterval = errors.New("scheduler: interval must be positive")
)

// Task 周期任务，ctx 在 Stop 时取消
type Task func(ctx context.Context)

type job struct {
	name     string
	interval time.Duration
	task     Task
	next     time.Time
	running  atomic.Bool
}

// Scheduler 固定周期调度器
// 单个定时循环驱动所有任务；同一任务上一次尚未结束时到来的触发直接丢弃。
type Scheduler struct {
	logger *zap.Logger

	// OnSkip 触发被丢弃时回调（可为 nil）
	OnSkip func(name string)

	mu      sync.Mutex
	jobs    []*job
	started bool
	cancel  context.CancelFunc
	loopWG  sync.WaitGroup
	taskWG  sync.WaitGroup
	stop    sync.Once
}

// New 创建调度器
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{logger: logger}
}

// Add 注册任务，必须在 Start 之前调用
func (s *Scheduler) Add(name string, interval time.Duration, task Task) error {
	if interval <= 0 {
		return fmt.Errorf("%w: job %s", ErrInvalidInterval, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	for _, j := range s.jobs {
		if j.name == name {
			return fmt.Errorf("scheduler: duplicate job %q", name)
		}
	}
	s.jobs = append(s.jobs, &job{name: name, interval: interval, task: task})
	return nil
}

// Start 启动调度循环，首次触发在 startDelay 之后
func (s *Scheduler) Start(ctx context.Context, startDelay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	first := time.Now().Add(startDelay)
	for _, j := range s.jobs {
		j.next = first
	}
	jobs := append([]*job(nil), s.jobs...)

	s.loopWG.Add(1)
	go s.loop(ctx, jobs)
	s.logger.Info("scheduler started", zap.Int("jobs", len(jobs)), zap.Duration("start_delay", startDelay))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, jobs []*job) {
	defer s.loopWG.Done()
	if len(jobs) == 0 {
		<-ctx.Done()
		return
	}

	timer := time.NewTimer(time.Until(earliest(jobs)))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		now := time.Now()
		for _, j := range jobs {
			if j.next.After(now) {
				continue
			}
			s.fire(ctx, j)
			// 错过的周期直接跳过，不补发
			for !j.next.After(now) {
				j.next = j.next.Add(j.interval)
			}
		}
		timer.Reset(time.Until(earliest(jobs)))
	}
}

func earliest(jobs []*job) time.Time {
	first := jobs[0].next
	for _, j := range jobs[1:] {
		if j.next.Before(first) {
			first = j.next
		}
	}
	return first
}

func (s *Scheduler) fire(ctx context.Context, j *job) {
	if !j.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous run still in progress, tick dropped", zap.String("job", j.name))
		if s.OnSkip != nil {
			s.OnSkip(j.name)
		}
		return
	}

	s.taskWG.Add(1)
	go func() {
		defer s.taskWG.Done()
		defer j.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("job panic recovered", zap.String("job", j.name), zap.Any("panic", r))
			}
		}()
		j.task(ctx)
	}()
}

// Stop 停止调度并等待运行中的任务结束，可重复调用
func (s *Scheduler) Stop() {
	s.stop.Do(func() {
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		s.loopWG.Wait()
		s.taskWG.Wait()
		s.logger.Info("scheduler stopped")
	})
}
