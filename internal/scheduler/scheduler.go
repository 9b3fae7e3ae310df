package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MimoJanra/DomainReport/internal/models"
)

type MonitorSource interface {
	GetEnabled() ([]models.Monitor, error)
}

type DomainSource interface {
	GetByID(id int) (models.Domain, error)
}

type schedule struct {
	monitor models.Monitor
	stop    chan struct{}
}

// Scheduler re-runs the analysis of every enabled monitor at its interval.
// The monitor table is re-read every reload period so API changes are
// picked up without a restart. Start may be called again after Stop.
type Scheduler struct {
	monitors   MonitorSource
	domains    DomainSource
	workerPool *WorkerPool
	reload     time.Duration
	logger     *zap.Logger

	schedules map[int]*schedule
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

func NewScheduler(monitors MonitorSource, domains DomainSource, pool *WorkerPool, reload time.Duration, logger *zap.Logger) *Scheduler {
	if reload <= 0 {
		reload = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		monitors:   monitors,
		domains:    domains,
		workerPool: pool,
		reload:     reload,
		logger:     logger,
		schedules:  make(map[int]*schedule),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	s.workerPool.Start(ctx)
	s.updateSchedule()

	s.wg.Add(1)
	go s.watchForChanges(ctx, stop)

	s.logger.Info("scheduler started", zap.Duration("reload", s.reload))
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	for id, sch := range s.schedules {
		close(sch.stop)
		delete(s.schedules, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.workerPool.Stop()

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) watchForChanges(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.reload)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateSchedule()
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// updateSchedule starts loops for new monitors, restarts those whose URL
// or interval changed and stops those that were disabled or deleted.
func (s *Scheduler) updateSchedule() {
	monitors, err := s.monitors.GetEnabled()
	if err != nil {
		s.logger.Error("failed to load monitors", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	current := make(map[int]bool, len(monitors))
	for _, m := range monitors {
		current[m.ID] = true

		if existing, ok := s.schedules[m.ID]; ok {
			if existing.monitor == m {
				continue
			}
			close(existing.stop)
			delete(s.schedules, m.ID)
		}
		s.scheduleMonitor(m)
	}

	for id, sch := range s.schedules {
		if !current[id] {
			close(sch.stop)
			delete(s.schedules, id)
		}
	}
}

// scheduleMonitor must be called with s.mu held.
func (s *Scheduler) scheduleMonitor(m models.Monitor) {
	sch := &schedule{monitor: m, stop: make(chan struct{})}
	s.schedules[m.ID] = sch
	stopAll := s.stopChan

	interval := time.Duration(m.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.enqueue(m)
		for {
			select {
			case <-ticker.C:
				s.enqueue(m)
			case <-sch.stop:
				return
			case <-stopAll:
				return
			}
		}
	}()
}

func (s *Scheduler) enqueue(m models.Monitor) {
	domain, err := s.domains.GetByID(m.DomainID)
	if err != nil {
		s.logger.Warn("domain not found for monitor",
			zap.Int("monitor_id", m.ID),
			zap.Int("domain_id", m.DomainID),
			zap.Error(err),
		)
		return
	}
	s.workerPool.Submit(AnalysisJob{Monitor: m, Domain: domain})
}

// ScheduledCount returns how many monitors currently have a loop.
func (s *Scheduler) ScheduledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.schedules)
}
