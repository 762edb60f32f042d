package persist

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError describes a When rule that failed to compile or run. Store
// and Key are empty for compile failures outside a write.
type EvaluationError struct {
	Engine string
	Expr   string
	Scope  string
	Store  string
	Key    string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	target := ""
	if e.Store != "" {
		target = fmt.Sprintf(" store=%s key=%s", e.Store, e.Key)
	}
	return fmt.Sprintf("persist: %s rule %s scope=%s%s: %v", e.Engine, describeExpression(e.Expr), e.Scope, target, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "persist:") {
		return err
	}
	return fmt.Errorf("persist: %s evaluator: %w", engine, err)
}

// forWrite tags a rule error with the store and key of the write it gated.
func forWrite(err error, storeID, key string) error {
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) && evalErr.Store == "" {
		evalErr.Store = storeID
		evalErr.Key = key
	}
	return err
}

func wrapEvaluationError(engine, expr, scope string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Scope == "" {
			evalErr.Scope = scope
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Scope:  scope,
		Err:    err,
	}
}
