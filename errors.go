package persist

import (
	"errors"
	"fmt"
)

var (
	ErrStorageRead       = errors.New("persist: storage read failed")
	ErrStorageWrite      = errors.New("persist: storage write failed")
	ErrDecode            = errors.New("persist: deserialize failed")
	ErrEncode            = errors.New("persist: serialize failed")
	ErrHook              = errors.New("persist: hydrate hook failed")
	ErrRule              = errors.New("persist: rule failed")
	ErrMalformed         = errors.New("persist: malformed value")
	ErrUnknownStorage    = errors.New("persist: unknown storage")
	ErrUnknownSerializer = errors.New("persist: unknown serializer")
	ErrPanic             = errors.New("persist: recovered panic")
	ErrNoEvaluator       = errors.New("persist: evaluator not configured")
)

// Operations reported in Error.Op.
const (
	OpHydrate = "hydrate"
	OpPersist = "persist"
	OpResolve = "resolve"
)

// Error describes a contained persistence failure.
type Error struct {
	Op    string
	Store string
	Key   string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Key == "" {
		return fmt.Sprintf("persist: %s store=%s: %v", e.Op, e.Store, e.Err)
	}
	return fmt.Sprintf("persist: %s store=%s key=%q: %v", e.Op, e.Store, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// wrapStage tags err with the stage sentinel, keeping the cause reachable.
func wrapStage(stage, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, stage) {
		return err
	}
	return fmt.Errorf("%w: %w", stage, err)
}

func recovered(stage error, rec any) error {
	if err, ok := rec.(error); ok {
		return fmt.Errorf("%w: %w: %w", stage, ErrPanic, err)
	}
	return fmt.Errorf("%w: %w: %v", stage, ErrPanic, rec)
}
