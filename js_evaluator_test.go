//go:build js_eval

package persist

import (
	"errors"
	"testing"
)

func TestJSEvaluatorReadsRuleContext(t *testing.T) {
	evaluator, err := NewEvaluator(EngineJS, nil, nil)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	got, err := evaluator.Evaluate(historyContext(), "history.length === 2 && metadata.key === 'news:history' && scope.name === 'store'")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != true {
		t.Fatalf("expected true, got %v", got)
	}
}

func TestJSEvaluatorCallsRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("atLeast", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errors.New("atLeast expects 2 args")
		}
		n, _ := args[0].(int64)
		floor, _ := args[1].(int64)
		return n >= floor, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	cache := NewMapCache()
	evaluator := NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry))
	got, err := evaluator.Evaluate(historyContext(), "call('atLeast', state.history.length, 2)")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != true {
		t.Fatalf("expected true, got %v", got)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected program to be cached, got %d", cache.Len())
	}
}
