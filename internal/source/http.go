package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
)

// HTTPConfig configures an HTTP factor provider.
type HTTPConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RequestsPerSecond caps outbound calls; zero disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// HTTP fetches factor tables from a remote provider exposing
// GET {base}/factors/{name} returning a Snapshot-shaped body whose data
// holds the requested factor.
type HTTP struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

func NewHTTP(cfg HTTPConfig) *HTTP {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	st := gobreaker.Settings{
		Name:     "factor-provider",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &HTTP{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    gobreaker.NewCircuitBreaker(st),
	}
}

func (c *HTTP) Name() string { return "http" }

// BreakerState reports the circuit breaker state ("closed", "open", ...).
func (c *HTTP) BreakerState() string { return c.breaker.State().String() }

type fetchResult struct {
	table    index.Table
	notFound bool
}

func (c *HTTP) Fetch(ctx context.Context, factor index.Factor) (index.Table, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	// A 404 is a valid answer and must not trip the breaker.
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, factor)
	})
	if err != nil {
		return nil, fmt.Errorf("factor provider: %w", err)
	}
	res := out.(fetchResult)
	if res.notFound {
		return nil, fmt.Errorf("%s: %w", factor, ErrUnknownFactor)
	}
	return res.table, nil
}

func (c *HTTP) fetch(ctx context.Context, factor index.Factor) (fetchResult, error) {
	path := "/factors/" + url.PathEscape(string(factor))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fetchResult{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fetchResult{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetchResult{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return fetchResult{notFound: true}, nil
	}
	if resp.StatusCode >= 400 {
		return fetchResult{}, fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, string(body))
	}
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return fetchResult{}, fmt.Errorf("decode %s: %w", path, err)
	}
	t, ok := snap.Data[factor]
	if !ok {
		return fetchResult{notFound: true}, nil
	}
	return fetchResult{table: t}, nil
}
