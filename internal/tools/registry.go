// internal/tools/registry.go
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/user/tradeagent/internal/exchange"
	"github.com/user/tradeagent/internal/trader"
	"github.com/user/tradeagent/internal/types"
)

// Error taxonomy for tool execution. Unknown tool and the two
// serialization violations are distinguishable with errors.Is; handler
// failures come back as-is from the handler.
var (
	ErrUnknownTool   = errors.New("Unknown tool")
	ErrInvalidArgs   = errors.New("tool args must be a JSON-serializable mapping")
	ErrInvalidResult = errors.New("tool result is not JSON-serializable")
)

// Spec is the capability descriptor registered alongside a handler.
type Spec struct {
	Name                 string `json:"name"`
	Description          string `json:"description"`
	RiskLevel            string `json:"risk_level"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
}

// Context carries the out-of-band dependencies a handler may need.
// The core passes it through untouched; handlers pick what they use
// and error when a required client is absent. Extra preserves the
// open mapping for anything not modeled as a typed field.
type Context struct {
	Exchange exchange.Exchange
	Trader   trader.Trader
	Memory   types.MemoryStore
	Extra    map[string]any
}

// Handler executes one tool call.
type Handler func(ctx context.Context, args map[string]any, tc *Context) (any, error)

type entry struct {
	spec    Spec
	handler Handler
}

// Registry maps tool names to their spec+handler pairs. Registration
// happens at startup; Execute is safe for concurrent use afterwards.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds or atomically replaces a tool. Spec and handler are
// stored as one entry so they can never disagree.
func (r *Registry) Register(spec Spec, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[spec.Name] = entry{spec: spec, handler: handler}
}

// Resolve returns the spec for a tool name.
func (r *Registry) Resolve(name string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return e.spec, nil
}

// List returns all registered specs, sorted by name.
func (r *Registry) List() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]Spec, 0, len(r.entries))
	for _, e := range r.entries {
		specs = append(specs, e.spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Names returns the sorted tool name whitelist.
func (r *Registry) Names() []string {
	specs := r.List()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

// Execute validates and runs one tool call. Both args and result must
// survive a JSON round trip: everything a tool consumes or produces
// has to be representable in the event log and artifact store without
// loss, so the boundary is checked in both directions. Handler panics
// are recovered and reported as ordinary errors so the dispatcher
// never depends on stack unwinding to detect failure.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, tc *Context) (result any, err error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if args == nil {
		args = map[string]any{}
	}
	if _, merr := json.Marshal(args); merr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, merr)
	}
	if tc == nil {
		tc = &Context{}
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("tool %s panicked: %v", name, rec)
		}
	}()

	result, err = e.handler(ctx, args, tc)
	if err != nil {
		return nil, err
	}

	if _, merr := json.Marshal(result); merr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResult, merr)
	}
	return result, nil
}
