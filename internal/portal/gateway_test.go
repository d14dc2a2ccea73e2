package portal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/actionclient"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/envelope"
)

var admin = envelope.Actor{Email: "Teacher@Example.com", Role: "ADMIN"}

// scriptedDoer answers each request with the next step of its script and
// remembers every envelope it saw.
type scriptedDoer struct {
	mu    sync.Mutex
	steps []func(*http.Request) (*http.Response, error)
	seen  []envelope.ActionEnvelope
}

func (s *scriptedDoer) Do(req *http.Request) (*http.Response, error) {
	var env envelope.ActionEnvelope
	if err := json.NewDecoder(req.Body).Decode(&env); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, env)
	if len(s.steps) == 0 {
		return nil, errors.New("script exhausted")
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step(req)
}

func reply(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	}
}

func dropConnection(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection reset by peer")
}

func newTestGateway(t *testing.T, doer actionclient.Doer, opts ...Option) (*Gateway, *Metrics) {
	t.Helper()
	client := actionclient.New(actionclient.Config{
		BackendURL:    "https://executor.internal/actions",
		SigningSecret: "test-secret",
		Timeout:       time.Second,
	}, actionclient.WithDoer(doer))
	m := NewMetrics(prometheus.NewRegistry())
	opts = append([]Option{WithMetrics(m), WithRetry(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})}, opts...)
	g := NewGateway(client, zerolog.Nop(), opts...)
	g.sleep = func(context.Context, time.Duration) error { return nil }
	return g, m
}

func TestDo_RetriesIdempotentActionWithFreshEnvelopes(t *testing.T) {
	doer := &scriptedDoer{steps: []func(*http.Request) (*http.Response, error){
		dropConnection,
		dropConnection,
		reply(200, `{"ok":true,"data":{"score":7}}`),
	}}
	g, m := newTestGateway(t, doer)

	res, err := g.EvaluateQuest(context.Background(), admin, EvaluateQuestRequest{QuestID: "q1", StudentEmail: "s@example.com"})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, float64(7), res.Data["score"])

	require.Len(t, doer.seen, 3)
	ids := map[string]bool{}
	for _, env := range doer.seen {
		ids[env.RequestID] = true
		assert.Equal(t, ActionEvaluateQuest, env.Action)
		assert.Equal(t, "teacher@example.com", strings.ToLower(env.ActorEmail))
	}
	assert.Len(t, ids, 3, "every attempt must carry its own request id")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.calls.WithLabelValues(ActionEvaluateQuest, string(actionclient.CodeNetwork))))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.calls.WithLabelValues(ActionEvaluateQuest, "OK")))
}

func TestDo_NonIdempotentActionIsAttemptedOnce(t *testing.T) {
	doer := &scriptedDoer{steps: []func(*http.Request) (*http.Response, error){dropConnection}}
	g, _ := newTestGateway(t, doer)

	_, err := g.AwardXP(context.Background(), admin, AwardXPRequest{StudentEmail: "s@example.com", Amount: 50})
	require.Error(t, err)
	assert.ErrorIs(t, err, actionclient.ErrNetwork)
	assert.Len(t, doer.seen, 1)
}

func TestDo_HTTPErrorIsNotRetried(t *testing.T) {
	doer := &scriptedDoer{steps: []func(*http.Request) (*http.Response, error){reply(502, `bad gateway`)}}
	g, _ := newTestGateway(t, doer)

	_, err := g.Ping(context.Background(), admin)
	require.Error(t, err)
	assert.Equal(t, actionclient.CodeHTTP, actionclient.CodeOf(err))
	assert.Len(t, doer.seen, 1)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	doer := &scriptedDoer{steps: []func(*http.Request) (*http.Response, error){dropConnection, dropConnection, dropConnection, dropConnection}}
	g, _ := newTestGateway(t, doer)

	_, err := g.Ping(context.Background(), admin)
	require.Error(t, err)
	assert.True(t, actionclient.IsRetryable(err))
	assert.Len(t, doer.seen, 3)
}

func TestDo_BusinessRefusalIsReturnedNotRetried(t *testing.T) {
	doer := &scriptedDoer{steps: []func(*http.Request) (*http.Response, error){
		reply(200, `{"ok":false,"code":"RAFFLE_CLOSED","message":"raffle already drawn"}`),
	}}
	g, m := newTestGateway(t, doer)

	res, err := g.DrawRaffle(context.Background(), admin, DrawRaffleRequest{RaffleID: "r-9"})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "RAFFLE_CLOSED", res.Code)
	assert.Len(t, doer.seen, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.calls.WithLabelValues(ActionDrawRaffle, "REFUSED")))
}

func TestDo_ConfigMissingIsNotRetried(t *testing.T) {
	doer := &scriptedDoer{}
	client := actionclient.New(actionclient.Config{BackendURL: "https://executor.internal/actions"}, actionclient.WithDoer(doer))
	g := NewGateway(client, zerolog.Nop(), WithIdempotentActions(ActionPublishCurriculum))

	_, err := g.PublishCurriculum(context.Background(), admin, PublishCurriculumRequest{Notes: "weekly"})
	assert.ErrorIs(t, err, actionclient.ErrConfigMissing)
	assert.Empty(t, doer.seen)
}

func TestDo_CancelledBackoffStopsRetrying(t *testing.T) {
	doer := &scriptedDoer{steps: []func(*http.Request) (*http.Response, error){dropConnection, dropConnection}}
	g, _ := newTestGateway(t, doer)
	ctx, cancel := context.WithCancel(context.Background())
	g.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepCtx(ctx, d)
	}

	_, err := g.Ping(ctx, admin)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, doer.seen, 1)
}

func TestHelpers_ValidateRequiredFields(t *testing.T) {
	doer := &scriptedDoer{}
	g, _ := newTestGateway(t, doer)
	ctx := context.Background()

	_, err := g.AwardXP(ctx, admin, AwardXPRequest{Amount: 1})
	assert.Error(t, err)
	_, err = g.DrawRaffle(ctx, admin, DrawRaffleRequest{})
	assert.Error(t, err)
	_, err = g.EvaluateQuest(ctx, admin, EvaluateQuestRequest{StudentEmail: "s@example.com"})
	assert.Error(t, err)
	assert.Empty(t, doer.seen)
}

func TestNewGateway_DefaultsAndIdempotencySet(t *testing.T) {
	g := NewGateway(actionclient.New(actionclient.Config{}), zerolog.Nop(), WithRetry(RetryPolicy{}), WithIdempotentActions("SYNC_ROSTER"))
	assert.Equal(t, 1, g.retry.MaxAttempts)
	assert.True(t, g.Idempotent(ActionPing))
	assert.True(t, g.Idempotent("SYNC_ROSTER"))
	assert.False(t, g.Idempotent(ActionAwardXP))
	for attempt := 1; attempt <= 10; attempt++ {
		d := g.backoff(attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, g.retry.MaxDelay)
	}
}

func TestMetrics_UnknownActionsAreBucketed(t *testing.T) {
	doer := &scriptedDoer{steps: []func(*http.Request) (*http.Response, error){
		reply(200, `{"ok":true,"data":{}}`),
		reply(200, `{"ok":true,"data":{}}`),
		reply(200, `{"ok":true,"data":{}}`),
	}}
	client := actionclient.New(actionclient.Config{
		BackendURL:    "https://executor.internal/actions",
		SigningSecret: "test-secret",
	}, actionclient.WithDoer(doer))
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "SYNC_ROSTER")
	g := NewGateway(client, zerolog.Nop(), WithMetrics(m))

	for _, action := range []string{"typo_action", "SYNC_ROSTER", "ANOTHER_UNKNOWN"} {
		_, err := Do[Result](context.Background(), g, admin, action, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.calls.WithLabelValues(OtherAction, "OK")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.calls.WithLabelValues("SYNC_ROSTER", "OK")))
	n, err := testutil.GatherAndCount(reg, "portal_action_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
