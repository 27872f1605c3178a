package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"SendPlan/internal/models"
	"SendPlan/internal/scheduler"
)

// StartPool launches the dispatch workers. The poller feeds jobs through
// the channel so a slow SMTP conversation never stalls the next tick; each
// worker re-validates the job through the Dispatcher before sending.
func StartPool(
	ctx context.Context,
	wg *sync.WaitGroup,
	workers int,
	jobs <-chan *models.ScheduledEmailJob,
	dispatcher *scheduler.Dispatcher,
	limiter *rate.Limiter,
	logger *zap.Logger,
) {

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			logger.Info("dispatch worker started", zap.Int("worker_id", id))

			for {
				select {

				case <-ctx.Done():
					logger.Info("dispatch worker shutting down", zap.Int("worker_id", id))
					return

				case job, ok := <-jobs:
					if !ok {
						logger.Info("job channel closed", zap.Int("worker_id", id))
						return
					}

					if err := limiter.Wait(ctx); err != nil {
						logger.Warn("rate limiter stopped by context",
							zap.Int("worker_id", id),
							zap.Error(err),
						)
						return
					}

					outcome, err := dispatcher.Dispatch(ctx, job.ID)
					if err != nil {
						logger.Error("dispatch error",
							zap.Int("worker_id", id),
							zap.String("job_id", job.ID.String()),
							zap.Int64("client_id", job.ClientID),
							zap.Error(err),
						)
						continue
					}

					logger.Info("dispatch finished",
						zap.Int("worker_id", id),
						zap.String("job_id", job.ID.String()),
						zap.String("outcome", string(outcome)),
					)
				}
			}
		}(i)
	}
}
