package actionclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/envelope"
)

const (
	maxResponseBytes = 8 << 20
	maxDrainBytes    = 64 << 10
)

var errCallTimedOut = errors.New("action call timed out")

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	cfg    Config
	doer   Doer
	signer *envelope.Signer
	now    func() time.Time
	newID  func() string
}

type Option func(*Client)

func WithDoer(d Doer) Option {
	return func(c *Client) { c.doer = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithRequestIDs(newID func() string) Option {
	return func(c *Client) { c.newID = newID }
}

// New never fails; a missing URL or secret is reported by every call
// through Preflight so nothing unsigned leaves the process.
func New(cfg Config, opts ...Option) *Client {
	cfg.BackendURL = strings.TrimSpace(cfg.BackendURL)
	cfg.Timeout = NormalizeTimeout(cfg.Timeout)
	c := &Client{
		cfg:   cfg,
		doer:  &http.Client{},
		now:   time.Now,
		newID: envelope.NewRequestID,
	}
	if s, err := envelope.NewSigner(cfg.SigningSecret); err == nil {
		c.signer = s
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Timeout() time.Duration { return c.cfg.Timeout }

func (c *Client) BackendURL() string { return c.cfg.BackendURL }

func (c *Client) Preflight() error {
	if c.cfg.BackendURL == "" {
		return configMissing("backend URL is not configured", nil)
	}
	u, err := url.Parse(c.cfg.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return configMissing("backend URL is not an absolute http(s) URL", err)
	}
	if c.signer == nil {
		return configMissing("signing secret is not configured", envelope.ErrSecretMissing)
	}
	return nil
}

func (c *Client) Build(actor envelope.Actor, action string, data any) (envelope.ActionEnvelope, error) {
	if err := c.Preflight(); err != nil {
		return envelope.ActionEnvelope{}, err
	}
	a := &envelope.Assembler{Signer: c.signer, Now: c.now, NewID: c.newID}
	return a.Build(actor, action, data)
}

// Send posts one envelope and returns the raw 2xx body. The call is
// bounded by the configured timeout composed with ctx; the timer is
// released on every path.
func (c *Client) Send(ctx context.Context, env envelope.ActionEnvelope) ([]byte, error) {
	if err := c.Preflight(); err != nil {
		return nil, err
	}
	payload, err := envelope.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	ctx, cancel := context.WithTimeoutCause(ctx, c.cfg.Timeout, errCallTimedOut)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BackendURL, bytes.NewReader(payload))
	if err != nil {
		return nil, configMissing("backend URL is unusable", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		return nil, &Error{Code: CodeHTTP, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	if len(body) > maxResponseBytes {
		return nil, malformed("response body exceeds limit", nil)
	}
	return body, nil
}

func (c *Client) transportError(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), errCallTimedOut) {
		return &Error{Code: CodeTimeout, Timeout: c.cfg.Timeout, Err: err}
	}
	if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
		err = fmt.Errorf("%w: %v", cerr, err)
	}
	return &Error{Code: CodeNetwork, Err: err}
}

func Call[T any](ctx context.Context, c *Client, actor envelope.Actor, action string, data any) (*envelope.Response[T], error) {
	env, err := c.Build(actor, action, data)
	if err != nil {
		return nil, err
	}
	body, err := c.Send(ctx, env)
	if err != nil {
		return nil, err
	}
	return ParseResponse[T](body)
}
