package adsb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// FetchErrorKind classifies a failed fetch
type FetchErrorKind string

const (
	KindRateLimited FetchErrorKind = "rate_limited"
	KindTimeout     FetchErrorKind = "timeout"
	KindNetwork     FetchErrorKind = "network_error"
	KindHTTP        FetchErrorKind = "http_error"
	KindUnknown     FetchErrorKind = "unknown"
)

// Sentinels for errors.Is matching against a *FetchError
var (
	ErrRateLimited = errors.New("rate limited")
	ErrTimeout     = errors.New("request timed out")
	ErrNetwork     = errors.New("network error")
	ErrHTTPStatus  = errors.New("unexpected http status")
	ErrUnknown     = errors.New("unknown fetch error")
)

// FetchError is a classified fetch failure. It is immutable once created.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int           // set for rate_limited and http_error
	Timeout    time.Duration // the configured request timeout, for the timeout message
	Err        error
}

// Error implements error
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("opensky fetch failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("opensky fetch failed (%s)", e.Kind)
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrHTTPStatus:
		return e.Kind == KindHTTP
	case ErrUnknown:
		return e.Kind == KindUnknown
	}
	return false
}

// Message is the text shown in the status indicator
func (e *FetchError) Message() string {
	switch e.Kind {
	case KindRateLimited:
		return "Rate Limited. Retrying..."
	case KindTimeout:
		return fmt.Sprintf("Request Timed Out (%ds). Retrying...", int(e.Timeout.Seconds()))
	case KindNetwork:
		return "Network Error (Proxy). Retrying..."
	case KindHTTP:
		return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
	default:
		if e.Err != nil && e.Err.Error() != "" {
			return e.Err.Error()
		}
		return "Unknown fetch error"
	}
}

// MarshalJSON exposes kind, message and status code
func (e *FetchError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind       FetchErrorKind `json:"kind"`
		Message    string         `json:"message"`
		StatusCode int            `json:"status_code,omitempty"`
	}{e.Kind, e.Message(), e.StatusCode})
}

// newStatusError builds the error for a non-2xx response
func newStatusError(statusCode int) *FetchError {
	err := fmt.Errorf("HTTP error! status: %d", statusCode)
	if statusCode == 429 {
		return &FetchError{Kind: KindRateLimited, StatusCode: statusCode, Err: err}
	}
	return &FetchError{Kind: KindHTTP, StatusCode: statusCode, Err: err}
}

// ClassifyFetchError maps any fetch failure into the taxonomy. Deadline expiry is checked
// first, so a request that outlives its timeout is never reported as a network error.
func ClassifyFetchError(err error, timeout time.Duration) *FetchError {
	if err == nil {
		return nil
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.Kind == KindTimeout && fe.Timeout == 0 {
			cp := *fe
			cp.Timeout = timeout
			return &cp
		}
		return fe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, Timeout: timeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, Timeout: timeout, Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return &FetchError{Kind: KindNetwork, Err: err}
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return &FetchError{Kind: KindNetwork, Err: err}
	}

	// Untyped failures that still mention a 429 came from a relay rewriting the response
	if strings.Contains(err.Error(), "429") {
		return &FetchError{Kind: KindRateLimited, StatusCode: 429, Err: err}
	}

	return &FetchError{Kind: KindUnknown, Err: err}
}
