package pipeline

import "fmt"

// Stage names a pipeline step for errors, logs and metrics.
type Stage string

const (
	StageRender   Stage = "render"
	StageBundle   Stage = "bundle"
	StageInline   Stage = "inline"
	StageScripts  Stage = "scripts"
	StageAssemble Stage = "assemble"
	StagePublish  Stage = "publish"
)

// StageError reports which stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result carries either a stage value or the error that stopped the run.
type Result[T any] struct {
	value T
	err   error
	isOk  bool
}

// Ok creates a successful Result.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, isOk: true}
}

// Err creates a failed Result.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// FromTuple converts the usual (value, error) pair.
func FromTuple[T any](value T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(value)
}

// IsOk reports success.
func (r Result[T]) IsOk() bool {
	return r.isOk
}

// UnwrapOr returns the value if Ok, otherwise fallback.
func (r Result[T]) UnwrapOr(fallback T) T {
	if r.isOk {
		return r.value
	}
	return fallback
}

// ToTuple converts back to (value, error).
func (r Result[T]) ToTuple() (T, error) {
	if r.isOk {
		return r.value, nil
	}
	var zero T
	return zero, r.err
}

// Map transforms a successful value.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.isOk {
		return Ok(fn(r.value))
	}
	return Err[U](r.err)
}

// FlatMap chains a stage that can itself fail.
func FlatMap[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	if r.isOk {
		return fn(r.value)
	}
	return Err[U](r.err)
}
