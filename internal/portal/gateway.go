package portal

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/actionclient"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/envelope"
)

type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// Gateway is what dashboard handlers call. It owns logging, metrics and
// retries; the envelope client underneath does none of these.
type Gateway struct {
	client     *actionclient.Client
	log        zerolog.Logger
	metrics    *Metrics
	retry      RetryPolicy
	idempotent map[string]bool
	sleep      func(ctx context.Context, d time.Duration) error
}

type Option func(*Gateway)

func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

func WithRetry(p RetryPolicy) Option {
	return func(g *Gateway) { g.retry = p }
}

// WithIdempotentActions marks actions that may be repeated after a
// TIMEOUT or NETWORK_ERROR. Everything else is attempted once.
func WithIdempotentActions(names ...string) Option {
	return func(g *Gateway) {
		for _, n := range names {
			g.idempotent[n] = true
		}
	}
}

func NewGateway(client *actionclient.Client, log zerolog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		client:     client,
		log:        log,
		retry:      DefaultRetryPolicy(),
		idempotent: map[string]bool{ActionPing: true, ActionEvaluateQuest: true},
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.retry.MaxAttempts < 1 {
		g.retry.MaxAttempts = 1
	}
	if g.retry.BaseDelay <= 0 {
		g.retry.BaseDelay = 200 * time.Millisecond
	}
	if g.retry.MaxDelay <= 0 {
		g.retry.MaxDelay = 5 * time.Second
	}
	return g
}

func (g *Gateway) Idempotent(action string) bool { return g.idempotent[action] }

// Do sends one logical action. Each attempt is a brand new envelope with
// its own request id and timestamp.
func Do[T any](ctx context.Context, g *Gateway, actor envelope.Actor, action string, data any) (*envelope.Response[T], error) {
	attempts := 1
	if g.idempotent[action] {
		attempts = g.retry.MaxAttempts
	}
	log := g.log.With().Str("action", action).Str("actor_role", actor.Role).Logger()
	for attempt := 1; ; attempt++ {
		start := time.Now()
		res, err := actionclient.Call[T](ctx, g.client, actor, action, data)
		elapsed := time.Since(start)
		g.metrics.observe(action, outcome(res, err), elapsed)

		if err == nil {
			ev := log.Debug()
			if !res.OK {
				ev = log.Info()
			}
			ev.Bool("ok", res.OK).Str("code", res.Code).Dur("elapsed", elapsed).Int("attempt", attempt).Msg("action completed")
			return res, nil
		}
		if attempt >= attempts || !actionclient.IsRetryable(err) {
			log.Error().Err(err).Str("code", string(actionclient.CodeOf(err))).Int("attempt", attempt).Msg("action failed")
			return nil, err
		}
		delay := g.backoff(attempt)
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("retrying idempotent action")
		if err := g.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func outcome[T any](res *envelope.Response[T], err error) string {
	if err != nil {
		if code := actionclient.CodeOf(err); code != "" {
			return string(code)
		}
		return "ERROR"
	}
	if !res.OK {
		return "REFUSED"
	}
	return "OK"
}

func (g *Gateway) backoff(attempt int) time.Duration {
	ceiling := g.retry.BaseDelay << (attempt - 1)
	if ceiling <= 0 || ceiling > g.retry.MaxDelay {
		ceiling = g.retry.MaxDelay
	}
	return time.Duration(rand.Int64N(int64(ceiling)) + 1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
