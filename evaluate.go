package persist

import (
	"fmt"
	"strings"
	"time"
)

// Rule engine names accepted by NewEvaluator.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// NewEvaluator builds the evaluator registered for engine with the plugin's
// cache and function registry. The js engine needs the js_eval build tag.
func NewEvaluator(engine string, cache ProgramCache, functions *FunctionRegistry) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(functions)), nil
	case EngineCEL:
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(functions)), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: js engine requires the js_eval build tag", ErrNoEvaluator)
		}
		return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(functions)), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, engine)
	}
}

// rule is a compiled When expression bound to one persistence config.
type rule struct {
	expr     string
	engine   string
	compiled CompiledRule
	scope    Scope
	storeID  string
	logger   EvaluatorLogger
}

func (p *Plugin) compileRule(storeID, expr string, scope Scope) (*rule, error) {
	evaluator, err := p.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	compiled, err := evaluator.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRule, wrapEvaluationError(evaluatorEngineName(evaluator), expr, scope.Name, err))
	}
	return &rule{
		expr:     expr,
		engine:   evaluatorEngineName(evaluator),
		compiled: compiled,
		scope:    scope,
		storeID:  storeID,
		logger:   p.cfg.evaluatorLogger(),
	}, nil
}

// allow evaluates the rule against the projected state. Non-boolean results
// are errors.
func (r *rule) allow(state any, key string) (bool, error) {
	if r == nil {
		return true, nil
	}
	ctx := RuleContext{
		Snapshot: state,
		Metadata: map[string]any{"store": r.storeID, "key": key},
	}.withDefaults().withDefaultScope(r.scope)

	start := time.Now()
	value, err := r.compiled.Evaluate(ctx)
	err = wrapEvaluationError(r.engine, r.expr, ctx.scopeLabel(), err)
	if err == nil {
		if _, ok := value.(bool); !ok {
			err = &EvaluationError{
				Engine: r.engine,
				Expr:   r.expr,
				Scope:  ctx.scopeLabel(),
				Err:    fmt.Errorf("rule returned %T, want bool", value),
			}
		}
	}
	r.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   r.engine,
		Expr:     r.expr,
		Scope:    ctx.scopeLabel(),
		Store:    r.storeID,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrRule, forWrite(err, r.storeID, key))
	}
	return value.(bool), nil
}

func (p *Plugin) resolveEvaluator() (Evaluator, error) {
	p.evalOnce.Do(func() {
		if p.cfg.evaluator != nil {
			p.evaluator = p.cfg.evaluator
			return
		}
		p.evaluator, p.evalErr = NewEvaluator(EngineExpr, p.cfg.programCache, p.cfg.functions)
	})
	if p.evalErr != nil {
		return nil, p.evalErr
	}
	if p.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return p.evaluator, nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*persist.exprEvaluator":
		return EngineExpr
	case "*persist.celEvaluator":
		return EngineCEL
	case "*persist.jsEvaluator":
		return EngineJS
	default:
		return "custom"
	}
}
