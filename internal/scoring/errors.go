package scoring

import (
	"errors"
	"fmt"

	"github.com/spigell/resume-match/internal/similarity"
)

var (
	// ErrConfiguration reports an invalid weight map at construction time.
	ErrConfiguration = errors.New("invalid scoring configuration")
	ErrInvalidInput  = similarity.ErrInvalidInput
	ErrNotFitted     = similarity.ErrNotFitted
)

// MethodError wraps a failure of a single similarity method. It never escapes
// the Engine: it is recorded in the method slot of the bundle instead.
type MethodError struct {
	Method string
	Err    error
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *MethodError) Unwrap() error { return e.Err }
