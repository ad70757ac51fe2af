package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tracker-bot/tracker"
	"tracker-bot/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// CycleRunner runs one polling cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (tracker.CycleResult, error)
}

// CycleObserver is told about every finished cycle.
type CycleObserver interface {
	CycleFinished(res tracker.CycleResult, err error, took time.Duration)
}

// Scheduler runs the polling cycle on a fixed interval. Stop cancels the
// cycle in flight and waits for it to return.
type Scheduler struct {
	cron         *cron.Cron
	runner       CycleRunner
	interval     time.Duration
	runAtStartup bool
	observers    []CycleObserver

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running sync.Mutex
}

// NewScheduler creates a scheduler whose cycles run under ctx.
func NewScheduler(ctx context.Context, runner CycleRunner, interval time.Duration, runAtStartup bool, observers ...CycleObserver) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		cron:         cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		runner:       runner,
		interval:     interval,
		runAtStartup: runAtStartup,
		observers:    observers,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start schedules the cycle and, when configured, runs one immediately.
func (s *Scheduler) Start() error {
	log.Println("[scheduler] Initializing scheduler...")
	if s.interval < time.Second {
		return fmt.Errorf("poll interval %s is below one second", s.interval)
	}
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return fmt.Errorf("could not set up cron job: %w", err)
	}
	s.cron.Start()
	log.Printf("[scheduler] Cycle scheduled to run every %s.", s.interval)

	if s.runAtStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			log.Println("[scheduler] Performing initial cycle on startup...")
			s.RunOnce()
		}()
	} else {
		log.Println("[scheduler] Skipping initial cycle on startup as per configuration.")
	}
	return nil
}

// RunOnce runs a single cycle unless one is already running.
func (s *Scheduler) RunOnce() {
	if !s.running.TryLock() {
		log.Println("[scheduler] Previous cycle still running, skipping.")
		return
	}
	defer s.running.Unlock()
	if s.ctx.Err() != nil {
		return
	}

	id := uuid.NewString()
	ctx := tracker.WithCycleID(s.ctx, id)
	start := time.Now()
	res, err := s.runner.RunCycle(ctx)
	took := time.Since(start)

	if err != nil {
		log.Printf("[scheduler] [%s] cycle failed after %s: %v", id, took, err)
		if s.ctx.Err() == nil {
			utils.Write(utils.Entry{
				Level:     utils.LevelError,
				Module:    "scheduler",
				Operation: "cycle",
				CycleID:   id,
				Details:   fmt.Sprintf("cycle failed after %s: %v", took.Round(time.Millisecond), err),
			})
		}
	} else {
		log.Printf("[scheduler] [%s] cycle finished in %s: ingested=%d changed=%d drained=%d",
			id, took, res.Ingested, res.Changed, res.Drained)
	}
	for _, o := range s.observers {
		o.CycleFinished(res, err, took)
	}
}

// Stop halts the schedule, cancels the running cycle and waits for it.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	log.Println("[scheduler] Scheduler stopped.")
}
