package lunch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrClientRejected marks 4xx answers. They are never retried.
	ErrClientRejected = errors.New("lunch service rejected the request")
	// ErrServiceUnavailable is returned once retries are exhausted.
	ErrServiceUnavailable = errors.New("lunch service unavailable")
)

// StatusError carries a non-2xx answer from the lunch service.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("lunch service %s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("lunch service %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Is lets errors.Is(err, ErrClientRejected) classify 4xx answers.
func (e *StatusError) Is(target error) bool {
	return target == ErrClientRejected && e.ClientError()
}

// ClientError reports whether the status is in the 4xx range.
func (e *StatusError) ClientError() bool {
	return e.Code >= http.StatusBadRequest && e.Code < http.StatusInternalServerError
}

// NotFound reports a 404 answer.
func (e *StatusError) NotFound() bool {
	return e.Code == http.StatusNotFound
}
