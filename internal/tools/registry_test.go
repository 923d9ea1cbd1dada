// internal/tools/registry_test.go
package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/user/tradeagent/internal/types"
)

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()

	_, err := r.Execute(context.Background(), "no.such.tool", nil, &Context{})
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "Unknown tool: no.such.tool") {
		t.Errorf("error should name the tool, got %q", err.Error())
	}
}

func TestExecuteInvalidArgs(t *testing.T) {
	r := NewRegistry()
	r.Register(Spec{Name: "test.echo"}, func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
		return args, nil
	})

	// A channel can never be marshaled for the event log.
	_, err := r.Execute(context.Background(), "test.echo", map[string]any{"ch": make(chan int)}, &Context{})
	if !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("expected ErrInvalidArgs, got %v", err)
	}
}

func TestExecuteInvalidResult(t *testing.T) {
	r := NewRegistry()
	r.Register(Spec{Name: "test.bad"}, func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
		return func() {}, nil
	})

	_, err := r.Execute(context.Background(), "test.bad", nil, &Context{})
	if !errors.Is(err, ErrInvalidResult) {
		t.Fatalf("expected ErrInvalidResult, got %v", err)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(Spec{Name: "test.panics"}, func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
		panic("boom")
	})

	_, err := r.Execute(context.Background(), "test.panics", nil, &Context{})
	if err == nil {
		t.Fatal("expected an error from a panicking handler")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error should carry the panic value, got %q", err.Error())
	}
}

func TestExecuteNilArgs(t *testing.T) {
	r := NewRegistry()
	var seen map[string]any
	r.Register(Spec{Name: "test.args"}, func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
		seen = args
		return "ok", nil
	})

	if _, err := r.Execute(context.Background(), "test.args", nil, &Context{}); err != nil {
		t.Fatal(err)
	}
	if seen == nil {
		t.Error("nil args must reach the handler as an empty map")
	}
}

func TestRegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Register(Spec{Name: "test.tool", RiskLevel: types.RiskLow}, func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
		return "old", nil
	})
	r.Register(Spec{Name: "test.tool", RiskLevel: types.RiskHigh}, func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
		return "new", nil
	})

	spec, err := r.Resolve("test.tool")
	if err != nil {
		t.Fatal(err)
	}
	if spec.RiskLevel != types.RiskHigh {
		t.Errorf("spec not overwritten: %+v", spec)
	}
	result, err := r.Execute(context.Background(), "test.tool", nil, &Context{})
	if err != nil {
		t.Fatal(err)
	}
	if result != "new" {
		t.Errorf("handler not overwritten: %v", result)
	}
}

func TestDefaultRegistryList(t *testing.T) {
	r := BuildDefaultRegistry()

	names := r.Names()
	if len(names) != 8 {
		t.Fatalf("expected 8 default tools, got %d: %v", len(names), names)
	}
	for i := 1; i < len(names); i++ {
		if names[i] < names[i-1] {
			t.Errorf("names not sorted at %d: %v", i, names)
		}
	}
	if _, err := r.Resolve(ToolFetchOHLCV); err != nil {
		t.Errorf("default registry must include %s: %v", ToolFetchOHLCV, err)
	}
}

func TestExchangeToolsRequireClient(t *testing.T) {
	r := BuildDefaultRegistry()

	_, err := r.Execute(context.Background(), ToolFetchOHLCV, map[string]any{"symbol": "BTC/USDT", "timeframe": "1h"}, &Context{})
	if err == nil {
		t.Fatal("expected an error without an exchange client")
	}
}
