package actions

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/envelope"
)

type Result struct {
	OK      bool
	Code    string
	Message string
	Data    any
}

// Func runs one verified action. A returned error means the executor
// itself failed; business refusals belong in Result with OK=false.
type Func func(ctx context.Context, actor envelope.Actor, data json.RawMessage) (Result, error)

type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{funcs: map[string]Func{}}
}

func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[strings.TrimSpace(name)] = fn
}

func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for k := range r.funcs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RegisterBuiltins installs the diagnostic actions every executor answers.
func RegisterBuiltins(r *Registry) {
	r.Register("PING", func(context.Context, envelope.Actor, json.RawMessage) (Result, error) {
		return Result{OK: true, Code: "PONG", Data: map[string]any{"pong": true}}, nil
	})
	r.Register("ECHO", func(_ context.Context, actor envelope.Actor, data json.RawMessage) (Result, error) {
		return Result{OK: true, Data: map[string]any{
			"actorEmail": actor.Email,
			"actorRole":  actor.Role,
			"data":       data,
		}}, nil
	})
}
