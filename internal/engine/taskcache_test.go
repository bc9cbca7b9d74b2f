package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jixiao/jixiao/pkg/errors"
)

// waitFor 轮询等待条件成立，超时报错
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("等待条件超时")
}

func TestTaskCacheEviction(t *testing.T) {
	cache := NewTaskCache(20*time.Millisecond, 10*time.Millisecond)
	defer cache.Stop()

	finished := &Task{ID: uuid.New(), Status: TaskRunning, SubmittedAt: time.Now()}
	running := &Task{ID: uuid.New(), Status: TaskRunning, SubmittedAt: time.Now()}
	cache.put(finished)
	cache.put(running)
	cache.finish(finished.ID, &BatchOutcome{}, nil)

	// 完成的任务超过TTL后被清理
	waitFor(t, time.Second, func() bool {
		_, ok := cache.Get(finished.ID)
		return !ok
	})

	// 未完成的任务不设过期时间，始终保留
	if _, ok := cache.Get(running.ID); !ok {
		t.Error("运行中的任务不应被清理")
	}
}

func TestTaskCacheFinishFailed(t *testing.T) {
	cache := NewTaskCache(time.Minute, time.Minute)
	defer cache.Stop()

	task := &Task{ID: uuid.New(), Status: TaskRunning, SubmittedAt: time.Now()}
	cache.put(task)
	cache.finish(task.ID, nil, errors.New(errors.CodeDatabaseError, "写入失败"))

	got, ok := cache.Get(task.ID)
	if !ok {
		t.Fatal("任务应可查询")
	}
	if got.Status != TaskFailed {
		t.Errorf("任务状态 = %v, expected failed", got.Status)
	}
	if got.Error == "" {
		t.Error("失败任务应记录错误信息")
	}
}

func TestTaskCacheGetReturnsCopy(t *testing.T) {
	cache := NewTaskCache(time.Minute, time.Minute)
	defer cache.Stop()

	task := &Task{ID: uuid.New(), Status: TaskRunning, SubmittedAt: time.Now()}
	cache.put(task)

	got, ok := cache.Get(task.ID)
	if !ok {
		t.Fatal("任务应可查询")
	}
	got.Status = TaskFailed
	got.Error = "调用方改写"

	again, _ := cache.Get(task.ID)
	if again.Status != TaskRunning {
		t.Errorf("缓存内状态 = %v, expected running（改写副本不应影响缓存）", again.Status)
	}
	if again.Error != "" {
		t.Errorf("缓存内错误 = %q, expected 空", again.Error)
	}
}

func TestTaskCacheStopIdempotent(t *testing.T) {
	cache := NewTaskCache(time.Minute, time.Minute)
	cache.Stop()
	cache.Stop() // 重复调用不应panic
}

func TestSubmitBatchScoring(t *testing.T) {
	dir, scores, configs, sink, emps, cfg := scoringFixture()
	eng := testEngine(dir, scores, configs, sink)
	defer eng.Close()

	ids := []uuid.UUID{emps[0].ID, emps[1].ID, emps[2].ID}
	taskID := eng.SubmitBatchScoring(ids, testPeriod, cfg.ID)

	// 提交后立即可查询
	task, err := eng.TaskResult(taskID)
	if err != nil {
		t.Fatalf("TaskResult() error = %v", err)
	}
	if task.ID != taskID {
		t.Errorf("任务ID = %s, expected %s", task.ID, taskID)
	}

	waitFor(t, 2*time.Second, func() bool {
		task, err := eng.TaskResult(taskID)
		return err == nil && task.Status == TaskCompleted
	})

	task, err = eng.TaskResult(taskID)
	if err != nil {
		t.Fatalf("TaskResult() error = %v", err)
	}
	if task.Outcome == nil {
		t.Fatal("完成任务应携带计分结果")
	}
	if len(task.Outcome.Results) != 3 {
		t.Errorf("计分结果数 = %d, expected 3", len(task.Outcome.Results))
	}
	if task.FinishedAt.IsZero() {
		t.Error("完成任务应记录结束时间")
	}
}

func TestSubmitBatchScoringFailure(t *testing.T) {
	dir, scores, configs, sink, emps, _ := scoringFixture()
	eng := testEngine(dir, scores, configs, sink)
	defer eng.Close()

	// 权重配置不存在，任务异步失败
	taskID := eng.SubmitBatchScoring([]uuid.UUID{emps[0].ID}, testPeriod, uuid.New())

	waitFor(t, 2*time.Second, func() bool {
		task, err := eng.TaskResult(taskID)
		return err == nil && task.Status == TaskFailed
	})

	task, err := eng.TaskResult(taskID)
	if err != nil {
		t.Fatalf("TaskResult() error = %v", err)
	}
	if task.Error == "" {
		t.Error("失败任务应记录错误信息")
	}
}

func TestTaskResultNotFound(t *testing.T) {
	dir, scores, configs, sink, _, _ := scoringFixture()
	eng := testEngine(dir, scores, configs, sink)
	defer eng.Close()

	_, err := eng.TaskResult(uuid.New())
	if !errors.Is(err, errors.CodeTaskNotFound) {
		t.Errorf("错误码 = %v, expected TASK_NOT_FOUND", errors.GetCode(err))
	}
}
