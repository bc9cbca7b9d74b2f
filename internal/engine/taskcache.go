package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jixiao/jixiao/internal/metrics"
	"github.com/jixiao/jixiao/pkg/errors"
	"github.com/jixiao/jixiao/pkg/logger"
	"github.com/jixiao/jixiao/pkg/model"
)

// TaskStatus 异步任务状态
type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task 异步计分任务
type Task struct {
	ID          uuid.UUID     `json:"id"`
	Status      TaskStatus    `json:"status"`
	SubmittedAt time.Time     `json:"submitted_at"`
	FinishedAt  time.Time     `json:"finished_at,omitempty"`
	Outcome     *BatchOutcome `json:"outcome,omitempty"`
	Error       string        `json:"error,omitempty"`

	expiresAt time.Time
}

// TaskCache 任务结果缓存
// 完成的任务结果保留 TTL 时长供查询，后台协程周期清理过期条目
type TaskCache struct {
	mu     sync.RWMutex
	tasks  map[uuid.UUID]*Task
	ttl    time.Duration
	ticker *time.Ticker
	stop   chan struct{}
	once   sync.Once
}

// NewTaskCache 创建任务缓存并启动清理协程
func NewTaskCache(ttl, janitorPeriod time.Duration) *TaskCache {
	c := &TaskCache{
		tasks:  make(map[uuid.UUID]*Task),
		ttl:    ttl,
		ticker: time.NewTicker(janitorPeriod),
		stop:   make(chan struct{}),
	}
	go c.janitor()
	return c
}

// janitor 周期清理过期任务
func (c *TaskCache) janitor() {
	for {
		select {
		case <-c.ticker.C:
			c.evictExpired(time.Now())
		case <-c.stop:
			return
		}
	}
}

// evictExpired 清理在 now 之前过期的任务
func (c *TaskCache) evictExpired(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for id, task := range c.tasks {
		if !task.expiresAt.IsZero() && task.expiresAt.Before(now) {
			delete(c.tasks, id)
			evicted++
		}
	}
	if evicted > 0 {
		logger.Debug().Int("evicted", evicted).Msg("清理过期任务")
	}
	metrics.SetActiveTasks(len(c.tasks))
}

// put 登记新任务
func (c *TaskCache) put(task *Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks[task.ID] = task
	metrics.SetActiveTasks(len(c.tasks))
}

// Get 查询任务，返回副本
// finish 在锁内改写任务字段，共享指针会让调用方在锁外读到写入中的状态
func (c *TaskCache) Get(id uuid.UUID) (*Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	task, ok := c.tasks[id]
	if !ok {
		return nil, false
	}
	snapshot := *task
	return &snapshot, true
}

// finish 标记任务结束并设置过期时间
func (c *TaskCache) finish(id uuid.UUID, outcome *BatchOutcome, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	task, ok := c.tasks[id]
	if !ok {
		return
	}
	task.FinishedAt = time.Now()
	task.expiresAt = task.FinishedAt.Add(c.ttl)
	if err != nil {
		task.Status = TaskFailed
		task.Error = err.Error()
	} else {
		task.Status = TaskCompleted
		task.Outcome = outcome
	}
}

// Stop 停止清理协程
func (c *TaskCache) Stop() {
	c.once.Do(func() {
		c.ticker.Stop()
		close(c.stop)
	})
}

// SubmitBatchScoring 提交异步批量计分任务
// 立即返回任务ID，结果在完成后保留 TTL 时长
func (e *Engine) SubmitBatchScoring(employeeIDs []uuid.UUID, period model.Period, weightConfigID uuid.UUID) uuid.UUID {
	task := &Task{
		ID:          uuid.New(),
		Status:      TaskRunning,
		SubmittedAt: time.Now(),
	}
	e.tasks.put(task)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		outcome, err := e.BatchScoreEmployees(ctx, employeeIDs, period, weightConfigID)
		e.tasks.finish(task.ID, outcome, err)
		if err != nil {
			logger.Error().
				Str("task_id", task.ID.String()).
				Err(err).
				Msg("异步批量计分失败")
		}
	}()

	return task.ID
}

// TaskResult 查询异步任务结果
// 过期或不存在的任务返回 TASK_NOT_FOUND
func (e *Engine) TaskResult(id uuid.UUID) (*Task, error) {
	task, ok := e.tasks.Get(id)
	if !ok {
		return nil, errors.New(errors.CodeTaskNotFound, "任务 "+id.String()+" 不存在或已过期")
	}
	return task, nil
}
