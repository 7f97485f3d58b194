package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/bootplan/internal/apperr"
)

// Kind classifies what a loaded artifact exports.
type Kind int

const (
	// KindNone marks an artifact that exports nothing callable.
	KindNone Kind = iota
	// KindFunc is a function taking one input, run synchronously.
	KindFunc
	// KindAsyncFunc is a function taking an explicit continuation.
	KindAsyncFunc
	// KindExtension is a class-like export, usable as a mixin.
	KindExtension
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindFunc:
		return "func"
	case KindAsyncFunc:
		return "async"
	case KindExtension:
		return "extension"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Handle is the polymorphic result of loading an artifact.
type Handle struct {
	kind  Kind
	fn    func(target any) error
	async func(target any, done func(error))
	value any
}

// None returns a handle for an artifact that exports nothing callable.
func None() Handle { return Handle{kind: KindNone} }

// Func wraps a synchronous one-input function.
func Func(fn func(target any) error) Handle {
	return Handle{kind: KindFunc, fn: fn}
}

// Async wraps a function that reports completion through done.
func Async(fn func(target any, done func(error))) Handle {
	return Handle{kind: KindAsyncFunc, async: fn}
}

// Extension wraps a class-like export.
func Extension(v any) Handle {
	return Handle{kind: KindExtension, value: v}
}

// Kind reports what the handle wraps.
func (h Handle) Kind() Kind { return h.kind }

// Callable reports whether the handle can be invoked.
func (h Handle) Callable() bool {
	return h.kind == KindFunc || h.kind == KindAsyncFunc
}

// Value returns the wrapped extension, or nil for other kinds.
func (h Handle) Value() any { return h.value }

// Call invokes the handle with target. Async handles are awaited until they
// report completion or ctx is done. Calling a non-callable handle is a no-op.
func (h Handle) Call(ctx context.Context, target any) error {
	switch h.kind {
	case KindFunc:
		return h.fn(target)
	case KindAsyncFunc:
		done := make(chan error, 1)
		var once sync.Once
		h.async(target, func(err error) {
			once.Do(func() { done <- err })
		})
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		return nil
	}
}

// Loader turns an artifact path into a handle.
type Loader interface {
	Load(path string) (Handle, error)
}

// StaticLoader serves handles registered ahead of time, keyed by path.
type StaticLoader map[string]Handle

// Load returns the handle registered for path.
func (l StaticLoader) Load(path string) (Handle, error) {
	h, ok := l[path]
	if !ok {
		return None(), fmt.Errorf("load %s: %w", path, apperr.ErrNotFound)
	}
	return h, nil
}
