package pacing

import (
	"context"
	"time"

	"github.com/gnomegl/wagroups/internal/config"
	"golang.org/x/time/rate"
)

type Step string

const (
	AfterAdd      Step = "after_add"
	BetweenGroups Step = "between_groups"
	BetweenPhones Step = "between_phones"
)

// Clock is the time source and suspension primitive used by the Pacer.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealClock returns a Clock backed by the system time.
func RealClock() Clock { return realClock{} }

// Pacer spaces remote operations: fixed pauses between named steps, plus an
// optional token bucket shared by every remote call.
type Pacer struct {
	delays  map[Step]time.Duration
	limiter *rate.Limiter
	clock   Clock
}

func New(delays config.Delays, limit config.RateLimit, clock Clock) *Pacer {
	if clock == nil {
		clock = RealClock()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if limit.OperationsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(limit.OperationsPerMinute/60), 1)
	}

	return &Pacer{
		delays: map[Step]time.Duration{
			AfterAdd:      delays.AfterAdd,
			BetweenGroups: delays.BetweenGroups,
			BetweenPhones: delays.BetweenPhones,
		},
		limiter: limiter,
		clock:   clock,
	}
}

func (p *Pacer) Delay(step Step) time.Duration {
	return p.delays[step]
}

// Pause suspends for the delay configured for step.
func (p *Pacer) Pause(ctx context.Context, step Step) error {
	return p.clock.Sleep(ctx, p.delays[step])
}

// Acquire takes one token from the bucket, suspending until it is available.
func (p *Pacer) Acquire(ctx context.Context) error {
	now := p.clock.Now()
	r := p.limiter.ReserveN(now, 1)
	if !r.OK() {
		return ctx.Err()
	}
	if err := p.clock.Sleep(ctx, r.DelayFrom(now)); err != nil {
		r.CancelAt(now)
		return err
	}
	return nil
}
