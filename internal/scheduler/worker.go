package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MimoJanra/DomainReport/internal/models"
)

// Runner performs one scheduled analysis. It reports whether the
// resulting report was degraded.
type Runner interface {
	RunMonitor(ctx context.Context, domain models.Domain, monitor models.Monitor) (degraded bool, err error)
}

type WorkerPool struct {
	workers  int
	jobQueue chan AnalysisJob
	wg       sync.WaitGroup
	runner   Runner
	logger   *zap.Logger

	mu       sync.Mutex
	stopChan chan struct{}
	running  bool
	stopped  bool

	monitorMetrics map[int]*MonitorMetrics
	metricsMu      sync.Mutex
}

// MonitorMetrics tracks recent behaviour of one monitor so that persistently
// failing or slow targets are surfaced in the logs.
type MonitorMetrics struct {
	failureCount    int
	lastFailureTime time.Time
	averageDuration time.Duration
	sampleCount     int
	lastRunTime     time.Time
}

type AnalysisJob struct {
	Monitor models.Monitor
	Domain  models.Domain
}

func NewWorkerPool(workers, queueSize int, runner Runner, logger *zap.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		workers:        workers,
		jobQueue:       make(chan AnalysisJob, queueSize),
		runner:         runner,
		logger:         logger,
		monitorMetrics: make(map[int]*MonitorMetrics),
	}
}

// Start launches the workers. A stopped pool may be started again.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.running {
		return
	}
	wp.running = true
	wp.stopped = false
	wp.stopChan = make(chan struct{})

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i, wp.stopChan)
	}
}

// Stop lets in-flight analyses finish and drops queued ones.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	wp.stopped = true
	if wp.running {
		wp.running = false
		close(wp.stopChan)
	}
	wp.mu.Unlock()

	wp.wg.Wait()
	for {
		select {
		case <-wp.jobQueue:
		default:
			return
		}
	}
}

// Submit enqueues job without blocking; it reports false when the job was
// dropped because the queue is full or the pool is stopped.
func (wp *WorkerPool) Submit(job AnalysisJob) bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		return false
	}

	select {
	case wp.jobQueue <- job:
		return true
	default:
		wp.logger.Warn("worker pool queue full, dropping job",
			zap.Int("monitor_id", job.Monitor.ID),
			zap.String("domain", job.Domain.Name),
		)
		return false
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int, stop <-chan struct{}) {
	defer wp.wg.Done()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case job := <-wp.jobQueue:
			wp.execute(ctx, id, job)
		}
	}
}

func (wp *WorkerPool) execute(ctx context.Context, workerID int, job AnalysisJob) {
	start := time.Now()
	degraded, err := wp.runner.RunMonitor(ctx, job.Domain, job.Monitor)
	duration := time.Since(start)

	if err != nil {
		wp.logger.Error("scheduled analysis failed",
			zap.Int("worker", workerID),
			zap.Int("monitor_id", job.Monitor.ID),
			zap.String("domain", job.Domain.Name),
			zap.Error(err),
		)
	}

	wp.updateMetrics(job.Monitor.ID, duration, degraded || err != nil)
}

func (wp *WorkerPool) updateMetrics(monitorID int, duration time.Duration, failed bool) {
	wp.metricsMu.Lock()
	defer wp.metricsMu.Unlock()

	metrics, exists := wp.monitorMetrics[monitorID]
	if !exists {
		metrics = &MonitorMetrics{}
		wp.monitorMetrics[monitorID] = metrics
	}

	now := time.Now()
	if failed {
		metrics.failureCount++
		metrics.lastFailureTime = now
	} else {
		metrics.failureCount = 0
	}

	if metrics.sampleCount < 10 {
		metrics.sampleCount++
		metrics.averageDuration = (metrics.averageDuration*time.Duration(metrics.sampleCount-1) + duration) / time.Duration(metrics.sampleCount)
	} else {
		alpha := 0.2
		metrics.averageDuration = time.Duration(float64(metrics.averageDuration)*(1-alpha) + float64(duration)*alpha)
	}
	metrics.lastRunTime = now

	if metrics.failureCount >= 3 {
		wp.logger.Warn("monitor keeps reporting a degraded domain",
			zap.Int("monitor_id", monitorID),
			zap.Int("consecutive_failures", metrics.failureCount),
			zap.Time("last_failure", metrics.lastFailureTime),
		)
	}
}

// FailureCount returns the number of consecutive degraded runs of a monitor.
func (wp *WorkerPool) FailureCount(monitorID int) int {
	wp.metricsMu.Lock()
	defer wp.metricsMu.Unlock()
	if m, ok := wp.monitorMetrics[monitorID]; ok {
		return m.failureCount
	}
	return 0
}
