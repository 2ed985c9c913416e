package spapi

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/prepflow/backend/internal/domain/shipping"
)

// PollResult is the outcome of waiting on a remote long-running operation.
type PollResult struct {
	Operation shipping.AsyncOperation
	Problems  []string
	Terminal  bool
	Attempts  int
}

// Poller waits on remote long-running operations with bounded exponential
// backoff. An operation still in progress after the attempt budget is not
// an error; the caller decides whether to resurface later.
type Poller struct {
	api      InboundAPI
	logger   *zap.Logger
	attempts int
	base     time.Duration
	max      time.Duration
}

// NewPoller builds a poller from the configured backoff settings.
func NewPoller(api InboundAPI, cfg *Config, logger *zap.Logger) *Poller {
	return &Poller{
		api:      api,
		logger:   logger,
		attempts: cfg.MaxPollAttempts,
		base:     cfg.PollBaseDelay,
		max:      cfg.PollMaxDelay,
	}
}

// PollOperation polls until the operation reaches a terminal state or the
// attempt budget runs out. The delay doubles each attempt up to the cap.
func (p *Poller) PollOperation(ctx context.Context, sess *Session, operationID string) (PollResult, error) {
	delay := p.base
	result := PollResult{}
	for attempt := 1; attempt <= p.attempts; attempt++ {
		op, problems, err := p.api.GetOperationStatus(ctx, sess, operationID)
		if err != nil {
			return result, err
		}
		result.Operation = op
		result.Problems = problems
		result.Attempts = attempt
		if op.State.Terminal() {
			result.Terminal = true
			return result, nil
		}

		if attempt == p.attempts {
			break
		}
		p.logger.Debug("operation still in progress",
			zap.String("operation_id", operationID),
			zap.Int("attempt", attempt),
			zap.Duration("next_delay", delay),
		)
		if err := sleepCtx(ctx, delay); err != nil {
			return result, err
		}
		delay *= 2
		if delay > p.max {
			delay = p.max
		}
	}
	return result, nil
}

// sleepCtx sleeps for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
