package persist

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "items && missing", "store:cart", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "items && missing" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Scope != "store:cart" {
		t.Fatalf("expected scope metadata, got %q", evalErr.Scope)
	}
	if !errors.Is(evalErr.Err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "state.total > 0", "store:history", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "state.total > 0" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Scope != "store:history" {
		t.Fatalf("scope should be filled, got %q", existing.Scope)
	}
}

func TestWrapEvaluatorErrorPrefixesOnce(t *testing.T) {
	err := wrapEvaluatorError("cel", errors.New("unknown function"))
	if !strings.HasPrefix(err.Error(), "persist: cel evaluator:") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if again := wrapEvaluatorError("cel", err); again != err {
		t.Fatalf("expected already prefixed error to pass through")
	}
	if wrapEvaluatorError("expr", nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
}

func TestRuleErrorNamesTheWrite(t *testing.T) {
	err := forWrite(wrapEvaluationError("expr", "total > 0", "store", errors.New("boom")), "cart", "app:cart")

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Store != "cart" || evalErr.Key != "app:cart" {
		t.Fatalf("unexpected target store=%q key=%q", evalErr.Store, evalErr.Key)
	}
	if !strings.Contains(err.Error(), "store=cart key=app:cart") {
		t.Fatalf("expected target in message, got %q", err.Error())
	}
	if plain := errors.New("plain"); forWrite(plain, "cart", "k") != plain {
		t.Fatalf("expected non-rule errors to pass through")
	}
}
