package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"SendPlan/internal/metrics"
	"SendPlan/internal/models"
	"SendPlan/internal/store"
)

// PollerConfig is injected at construction so differently tuned pollers can
// run side by side in tests.
type PollerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// EnqueueFunc hands one due job to the dispatch workers. It must not block;
// returning false leaves the job pending for the next tick.
type EnqueueFunc func(job *models.ScheduledEmailJob) bool

// Poller is the clock-driven trigger of the dispatch engine. It only reads
// the store and forwards due jobs; every correctness decision lives in the
// Dispatcher. Several pollers may run against one store and observe
// overlapping due sets.
type Poller struct {
	store   store.JobStore
	enqueue EnqueueFunc
	cfg     PollerConfig
	now     func() time.Time
	log     *zap.Logger

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewPoller(st store.JobStore, enqueue EnqueueFunc, cfg PollerConfig, log *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Poller{
		store:   st,
		enqueue: enqueue,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		log:     log,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs the polling loop until Stop is called or ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.started = true
	go func() {
		defer close(p.done)

		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()

		p.log.Info("poller started", zap.Duration("interval", p.cfg.Interval))
		for {
			select {
			case <-ctx.Done():
				p.log.Info("poller stopped by context")
				return
			case <-p.stop:
				p.log.Info("poller stopped")
				return
			case <-ticker.C:
				if _, err := p.Tick(ctx); err != nil {
					p.log.Error("poll tick failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight tick to finish. Stopping
// twice, or without a prior Start, is a no-op.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	if !p.started {
		return
	}
	<-p.done
}

// Tick runs one poll cycle and returns how many jobs were forwarded.
func (p *Poller) Tick(ctx context.Context) (int, error) {
	now := p.now()
	due, err := p.store.SelectDue(ctx, now, p.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	ids := make([]string, len(due))
	for i, job := range due {
		ids[i] = job.ID.String()
	}
	p.log.Info("due jobs selected",
		zap.Time("now", now),
		zap.Int("batch_size", len(due)),
		zap.Strings("job_ids", ids))

	forwarded := 0
	for _, job := range due {
		metrics.JobsDueSelected.Inc()
		if !p.enqueue(job) {
			// Queue is full. The job is still pending and will be picked
			// up again next tick.
			p.log.Warn("dispatch queue full, job deferred",
				zap.String("job_id", job.ID.String()),
				zap.Int64("client_id", job.ClientID))
			continue
		}
		forwarded++
	}
	return forwarded, nil
}
