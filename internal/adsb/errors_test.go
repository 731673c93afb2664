package adsb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyFetchError(t *testing.T) {
	timeout := 30 * time.Second

	tests := []struct {
		name string
		err  error
		kind FetchErrorKind
	}{
		{"deadline", fmt.Errorf("do: %w", context.DeadlineExceeded), KindTimeout},
		{"deadline inside url error", &url.Error{Op: "Get", URL: "x", Err: context.DeadlineExceeded}, KindTimeout},
		{"connection refused", &url.Error{Op: "Get", URL: "x", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}, KindNetwork},
		{"dns", &net.DNSError{Err: "no such host", Name: "cors.eu.org"}, KindNetwork},
		{"untyped 429", errors.New("upstream said 429"), KindRateLimited},
		{"decode", errors.New("invalid character"), KindUnknown},
		{"already classified", newStatusError(502), KindHTTP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := ClassifyFetchError(tt.err, timeout)
			require.NotNil(t, fe)
			assert.Equal(t, tt.kind, fe.Kind)
		})
	}

	assert.Nil(t, ClassifyFetchError(nil, timeout))
}

func TestFetchErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *FetchError
		want string
	}{
		{"rate limited", &FetchError{Kind: KindRateLimited, StatusCode: 429}, "Rate Limited. Retrying..."},
		{"timeout", &FetchError{Kind: KindTimeout, Timeout: 30 * time.Second}, "Request Timed Out (30s). Retrying..."},
		{"network", &FetchError{Kind: KindNetwork}, "Network Error (Proxy). Retrying..."},
		{"http", &FetchError{Kind: KindHTTP, StatusCode: 503}, "HTTP error! status: 503"},
		{"unknown with message", &FetchError{Kind: KindUnknown, Err: errors.New("boom")}, "boom"},
		{"unknown empty", &FetchError{Kind: KindUnknown, Err: errors.New("")}, "Unknown fetch error"},
		{"unknown nil", &FetchError{Kind: KindUnknown}, "Unknown fetch error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Message())
		})
	}
}

func TestClassifyTimeoutCarriesConfiguredDuration(t *testing.T) {
	fe := ClassifyFetchError(context.DeadlineExceeded, 30*time.Second)
	assert.Equal(t, "Request Timed Out (30s). Retrying...", fe.Message())
}

func TestFetchErrorUnwrapAndJSON(t *testing.T) {
	inner := errors.New("dial failed")
	fe := &FetchError{Kind: KindNetwork, Err: inner}

	assert.True(t, errors.Is(fe, inner))
	assert.True(t, errors.Is(fe, ErrNetwork))
	assert.False(t, errors.Is(fe, ErrTimeout))

	b, err := json.Marshal(newStatusError(429))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"rate_limited","message":"Rate Limited. Retrying...","status_code":429}`, string(b))
}
