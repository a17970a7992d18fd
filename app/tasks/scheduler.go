package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type SchedulerOptions struct {
	Interval    time.Duration
	WorkerCount int
	PollTimeout time.Duration
}

// Scheduler polls every feed on a fixed interval through a worker pool. A
// feed is never polled by two workers at once.
type Scheduler struct {
	pipeline    *Pipeline
	feedURLs    []string
	interval    time.Duration
	workerCount int
	pollTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewScheduler(pipeline *Pipeline, feedURLs []string, opts SchedulerOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	workerCount := opts.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}

	queueSize := 300
	if n := 2 * len(feedURLs); n > queueSize {
		queueSize = n
	}

	return &Scheduler{
		pipeline:    pipeline,
		feedURLs:    feedURLs,
		interval:    opts.Interval,
		workerCount: workerCount,
		pollTimeout: opts.PollTimeout,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
		inFlight:    make(map[string]bool),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.enqueueStartupTasks()

		if s.interval <= 0 {
			<-s.ctx.Done()
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.EnqueueAll()
			}
		}
	}()
}

// Stop cancels running polls and waits for the workers. A cancelled poll
// leaves its cursor where it was.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueAll queues a poll for every feed that is not already queued or
// running. Returns how many were queued and how many skipped.
func (s *Scheduler) EnqueueAll() (int, int) {
	queued, skipped := 0, 0
	for _, feedURL := range s.feedURLs {
		if s.enqueueProcess(feedURL) {
			queued++
		} else {
			skipped++
		}
	}
	slog.Debug("Feeds enqueued", "queued", queued, "skipped", skipped)
	return queued, skipped
}

func (s *Scheduler) enqueueProcess(feedURL string) bool {
	if !s.claim(feedURL) {
		slog.Debug("Feed poll already in flight, skipping", "feed", feedURL)
		return false
	}

	if err := s.EnqueueTask(s.pipeline.NewProcessFeedTask(feedURL)); err != nil {
		s.release(feedURL)
		slog.Warn("Failed to enqueue ProcessFeedTask", "feed", feedURL, "error", err)
		return false
	}
	return true
}

func (s *Scheduler) claim(feedURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[feedURL] {
		return false
	}
	s.inFlight[feedURL] = true
	return true
}

func (s *Scheduler) release(feedURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, feedURL)
}

func (s *Scheduler) enqueueStartupTasks() {
	if len(s.feedURLs) == 0 {
		slog.Debug("No feeds configured")
		return
	}

	slog.Debug("Registering feeds", "count", len(s.feedURLs))

	for _, feedURL := range s.feedURLs {
		if err := s.EnqueueTask(s.pipeline.NewSyncFeedTask(feedURL)); err != nil {
			slog.Warn("Failed to enqueue SyncFeedTask", "feed", feedURL, "error", err)
		}
	}

	s.EnqueueAll()
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	timeout := s.pollTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	taskCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	err := task.Execute(taskCtx)

	if task.GetType() == TaskTypeProcessFeed {
		s.release(task.GetFeedURL())
	}

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "feed", task.GetFeedURL(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "feed", task.GetFeedURL(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				select {
				case <-time.After(retryDelay):
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				}
				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else if task.GetMaxRetries() > 0 {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
