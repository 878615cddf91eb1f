package mdpublish

import (
	"errors"
	"fmt"

	"github.com/study-groups/mdpublish/internal/pipeline"
)

// Sentinel errors for library operations.
var (
	ErrNoContent     = errors.New("markdown content cannot be empty")
	ErrRender        = errors.New("markdown rendering failed")
	ErrNoTarget      = errors.New("no publish target configured")
	ErrPublishFailed = errors.New("publishing failed")

	// ErrInvalidKeyPattern reports a malformed {date} placeholder in a
	// target prefix or object path.
	ErrInvalidKeyPattern = errors.New("invalid object key pattern")

	// Value validation errors, shared with the pipeline.
	ErrInvalidStrategy = pipeline.ErrInvalidStrategy
	ErrInvalidMode     = pipeline.ErrInvalidMode
	ErrInvalidPlugin   = pipeline.ErrInvalidPlugin

	// Asset loading errors.
	ErrInvalidAssetPath = errors.New("invalid asset path")
)

// PublishError reports a failed boundary call to a publish target.
// Message carries the target's own error text verbatim.
// errors.Is(err, ErrPublishFailed) is true for every PublishError.
type PublishError struct {
	Target  string // target name
	Path    string // object key
	Message string
	Err     error
}

func (e *PublishError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%v: target %q, path %q: %s", ErrPublishFailed, e.Target, e.Path, e.Message)
	}
	return fmt.Sprintf("%v: path %q: %s", ErrPublishFailed, e.Path, e.Message)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Is makes every PublishError match ErrPublishFailed.
func (e *PublishError) Is(target error) bool {
	return target == ErrPublishFailed
}
