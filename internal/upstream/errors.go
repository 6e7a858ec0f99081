package upstream

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/openai/openai-go/v2"

	"council/internal/councilerr"
)

// ErrEmptyResponse marks a 2xx response with no usable content.
var ErrEmptyResponse = errors.New("upstream returned no choices")

// classifyOpenAIError maps an openai-go SDK error onto the transient vs.
// permanent distinction spec.md §4.1 requires: connect/read timeout, 429,
// and 5xx are retryable; any other 4xx is not.
func classifyOpenAIError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, err)
	}
	return classifyNetwork(err)
}

func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		return errJoin(councilerr.ErrUpstreamTransient, err)
	case status >= 400:
		return errJoin(councilerr.ErrUpstreamPermanent, err)
	default:
		return err
	}
}

func classifyNetwork(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errJoin(councilerr.ErrUpstreamTransient, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errJoin(councilerr.ErrUpstreamTransient, err)
	}
	return errJoin(councilerr.ErrUpstreamPermanent, err)
}

func errJoin(kind, err error) error {
	return &classifiedError{kind: kind, err: err}
}

type classifiedError struct {
	kind error
	err  error
}

func (e *classifiedError) Error() string { return e.err.Error() }
func (e *classifiedError) Unwrap() []error { return []error{e.kind, e.err} }

// IsRetryable reports whether err should trigger another retry attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, councilerr.ErrUpstreamTransient)
}
