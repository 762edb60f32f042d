//go:build !js_eval

package persist

// NewJSEvaluator is unavailable without the js_eval build tag. It returns nil
// and rule resolution falls back to the default evaluator.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = applyJSEvaluatorOptions(opts)
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
