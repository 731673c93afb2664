package adsb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

// DefaultRequestTimeout bounds a single states/all request
const DefaultRequestTimeout = 30 * time.Second

// BoundingBox is the OpenSky query area in degrees
type BoundingBox struct {
	Lamin float64 `json:"lamin"`
	Lomin float64 `json:"lomin"`
	Lamax float64 `json:"lamax"`
	Lomax float64 `json:"lomax"`
}

// ClientConfig holds the OpenSky client settings
type ClientConfig struct {
	APIURL      string
	ProxyPrefix string // prepended verbatim to APIURL; empty means direct
	UserAgent   string
	BBox        BoundingBox
	Timeout     time.Duration
}

// Client fetches state vectors from the OpenSky REST API
type Client struct {
	httpClient *http.Client
	requestURL string
	userAgent  string
	timeout    time.Duration
	logger     *logger.Logger
}

// NewClient creates a new OpenSky client
func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	return &Client{
		// The deadline is carried by the request context so it classifies as a timeout
		httpClient: &http.Client{},
		requestURL: buildRequestURL(cfg),
		userAgent:  cfg.UserAgent,
		timeout:    cfg.Timeout,
		logger:     log.Named("opensky-cli"),
	}
}

func buildRequestURL(cfg ClientConfig) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return fmt.Sprintf("%s%s?lamin=%s&lomin=%s&lamax=%s&lomax=%s",
		cfg.ProxyPrefix, cfg.APIURL,
		f(cfg.BBox.Lamin), f(cfg.BBox.Lomin), f(cfg.BBox.Lamax), f(cfg.BBox.Lomax))
}

// RequestURL returns the full URL used for each fetch
func (c *Client) RequestURL() string {
	return c.requestURL
}

// Timeout returns the per-request timeout
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// FetchStates performs one bounded GET of states/all. Every failure is returned as a *FetchError.
func (c *Client) FetchStates(ctx context.Context) (*StatesResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL, nil)
	if err != nil {
		return nil, ClassifyFetchError(fmt.Errorf("failed to create opensky request: %w", err), c.timeout)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("Fetching OpenSky state vectors", logger.String("url", c.requestURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ClassifyFetchError(fmt.Errorf("failed to execute opensky request: %w", err), c.timeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.logger.Debug("Unexpected OpenSky status code", logger.Int("status_code", resp.StatusCode))
		return nil, newStatusError(resp.StatusCode)
	}

	var states StatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&states); err != nil {
		return nil, ClassifyFetchError(fmt.Errorf("failed to parse opensky JSON: %w", err), c.timeout)
	}

	c.logger.Debug("Successfully fetched OpenSky state vectors",
		logger.Int("state_count", len(states.States)),
		logger.Int64("time", states.Time),
	)

	return &states, nil
}
