package executor

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/hanpama/typegraph/internal/value"
)

// Path is a response path: field response names (string) and list
// indices (int) from the root.
type Path []PathElement

type PathElement any

func (p Path) String() string {
	var b strings.Builder
	for i, elem := range p {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			b.WriteString("[" + strconv.Itoa(v) + "]")
		}
	}
	return b.String()
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

func samePath(a, b Path) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Location is a position in the query document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ExecutionError is a field-level error with its response path.
type ExecutionError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
	// NonNull records whether the originating field's declared type was
	// non-null, i.e. whether the error bubbled past its own position.
	NonNull bool  `json:"-"`
	Err     error `json:"-"`
}

func (e *ExecutionError) Error() string { return e.Message }

func (e *ExecutionError) Unwrap() error { return e.Err }

// ExtendedError is implemented by resolver errors that carry extensions.
type ExtendedError interface {
	error
	Extensions() map[string]any
}

func newExecutionError(err error, path Path, locs []Location, nonNull bool) *ExecutionError {
	ee := &ExecutionError{Message: err.Error(), Path: path, Locations: locs, NonNull: nonNull, Err: err}
	var ext ExtendedError
	if errors.As(err, &ext) {
		ee.Extensions = ext.Extensions()
	}
	return ee
}

// ExecutionResult is the response shape of one request.
type ExecutionResult struct {
	Data   value.Value       `json:"data"`
	Errors []*ExecutionError `json:"errors,omitempty"`
}

// errorBuffer collects the errors of one response position. Buffers of
// children are merged in selection order once they complete, so the final
// list follows traversal order regardless of completion order.
type errorBuffer struct {
	mu   sync.Mutex
	errs []*ExecutionError
}

func (b *errorBuffer) add(e *ExecutionError) {
	b.mu.Lock()
	b.errs = append(b.errs, e)
	b.mu.Unlock()
}

func (b *errorBuffer) merge(child *errorBuffer) {
	if child == nil || child == b {
		return
	}
	child.mu.Lock()
	errs := child.errs
	child.mu.Unlock()
	if len(errs) == 0 {
		return
	}
	b.mu.Lock()
	b.errs = append(b.errs, errs...)
	b.mu.Unlock()
}

func (b *errorBuffer) hasErrorAtPath(path Path) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.errs {
		if samePath(e.Path, path) {
			return true
		}
	}
	return false
}

func (b *errorBuffer) list() []*ExecutionError {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*ExecutionError(nil), b.errs...)
}
