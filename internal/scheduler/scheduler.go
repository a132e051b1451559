package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rankreport/rankreport-backend/pkg/logger"
)

// Job is one periodic unit of work
type Job func(ctx context.Context) error

// ScheduledTask is a registered periodic job
type ScheduledTask struct {
	Name      string
	Interval  time.Duration
	Timeout   time.Duration
	Handler   Job
	LastRun   time.Time
	NextRun   time.Time
	RunCount  int64
	LastError error
}

// Scheduler runs registered jobs in-process on a fixed tick
type Scheduler struct {
	tasks  []*ScheduledTask
	mu     sync.RWMutex
	tick   time.Duration
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler that checks for due tasks every tick
func New(tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = 15 * time.Second
	}
	return &Scheduler{tick: tick}
}

// Register adds a job. The first run is one interval after registration unless runNow is set.
func (s *Scheduler) Register(name string, interval, timeout time.Duration, runNow bool, handler Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := time.Now().Add(interval)
	if runNow {
		next = time.Now()
	}
	s.tasks = append(s.tasks, &ScheduledTask{
		Name:     name,
		Interval: interval,
		Timeout:  timeout,
		Handler:  handler,
		NextRun:  next,
	})

	log := logger.Component("scheduler")
	log.Info().Str("task", name).Dur("interval", interval).Msg("scheduled task registered")
}

// Start runs the scheduler loop until ctx is cancelled or Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()

		s.runDue(ctx, time.Now())
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.runDue(ctx, now)
			}
		}
	}()
	log := logger.Component("scheduler")
	log.Info().Msg("scheduler started")
}

// Stop cancels running jobs and waits for the loop to exit
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log := logger.Component("scheduler")
	log.Info().Msg("scheduler stopped")
}

// runDue executes every task whose NextRun has passed, one at a time
func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	s.mu.RLock()
	tasks := make([]*ScheduledTask, len(s.tasks))
	copy(tasks, s.tasks)
	s.mu.RUnlock()

	for _, task := range tasks {
		if ctx.Err() != nil {
			return
		}
		if now.Before(task.NextRun) {
			continue
		}

		err := s.run(ctx, task)

		s.mu.Lock()
		task.LastError = err
		task.LastRun = now
		task.NextRun = now.Add(task.Interval)
		task.RunCount++
		s.mu.Unlock()
	}
}

func (s *Scheduler) run(ctx context.Context, task *ScheduledTask) error {
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := task.Handler(ctx)
	log := logger.Component("scheduler")
	event := log.Info()
	if err != nil {
		event = log.Error().Err(err)
	}
	event.Str("task", task.Name).Dur("took", time.Since(start)).Msg("scheduled task finished")
	return err
}

// TaskInfo is a snapshot of a task for monitoring
type TaskInfo struct {
	Name      string    `json:"name"`
	Interval  string    `json:"interval"`
	LastRun   time.Time `json:"lastRun"`
	NextRun   time.Time `json:"nextRun"`
	RunCount  int64     `json:"runCount"`
	LastError *string   `json:"lastError,omitempty"`
}

// Tasks lists registered tasks
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		info := TaskInfo{
			Name:     t.Name,
			Interval: t.Interval.String(),
			LastRun:  t.LastRun,
			NextRun:  t.NextRun,
			RunCount: t.RunCount,
		}
		if t.LastError != nil {
			msg := t.LastError.Error()
			info.LastError = &msg
		}
		result = append(result, info)
	}
	return result
}
