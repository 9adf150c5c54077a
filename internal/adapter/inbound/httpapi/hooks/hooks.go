// Package hooks decorates error-returning HTTP endpoints with callbacks that
// run before the endpoint, after it succeeds, or when it fails.
package hooks

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrPanic wraps a value recovered from a panicking endpoint.
var ErrPanic = errors.New("endpoint panicked")

// Endpoint is an HTTP handler that reports failure instead of writing it.
type Endpoint func(w http.ResponseWriter, r *http.Request) error

// Hook runs around an endpoint. A non-nil error is treated as the endpoint's
// result.
type Hook func(w http.ResponseWriter, r *http.Request) error

// ErrorHook receives the endpoint's error. Its return value replaces that
// error; returning nil marks the failure as handled.
type ErrorHook func(w http.ResponseWriter, r *http.Request, err error) error

// Decorator wraps an Endpoint.
type Decorator func(Endpoint) Endpoint

// Before runs hook, then the endpoint. The endpoint is skipped if hook fails.
func Before(hook Hook) Decorator {
	return func(next Endpoint) Endpoint {
		return func(w http.ResponseWriter, r *http.Request) error {
			if err := hook(w, r); err != nil {
				return err
			}
			return next(w, r)
		}
	}
}

// After runs the endpoint, then hook only if the endpoint succeeded.
func After(hook Hook) Decorator {
	return func(next Endpoint) Endpoint {
		return func(w http.ResponseWriter, r *http.Request) error {
			if err := next(w, r); err != nil {
				return err
			}
			return hook(w, r)
		}
	}
}

// OnError runs the endpoint and hands any error, including a recovered
// panic wrapped in ErrPanic, to hook. http.ErrAbortHandler is re-panicked.
func OnError(hook ErrorHook) Decorator {
	return func(next Endpoint) Endpoint {
		return func(w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				err = hook(w, r, fmt.Errorf("%w: %v", ErrPanic, p))
			}()
			if err := next(w, r); err != nil {
				return hook(w, r, err)
			}
			return nil
		}
	}
}

// Chain applies decorators to e. The first decorator is the outermost, so it
// sees the request first and the result last.
func Chain(e Endpoint, decorators ...Decorator) Endpoint {
	for i := len(decorators) - 1; i >= 0; i-- {
		e = decorators[i](e)
	}
	return e
}

// ServeHTTP lets an Endpoint be mounted directly. An error that escapes every
// hook becomes a plain 500.
func (e Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := e(w, r); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
