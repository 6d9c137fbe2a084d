package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/ssargent/mediashelf/pkg/catalog"
	"github.com/ssargent/mediashelf/pkg/logging"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 1 << 20

// Config configures the OMDb client.
type Config struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	RatePerSecond   float64
	Burst           int
	MaxRetries      int
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Client queries the OMDb search endpoint. Calls are rate limited and run
// through a circuit breaker; transport failures are retried.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[searchResult]
	metrics *Metrics
}

// searchResult separates a clean "no match" answer, which must not trip the
// breaker, from records.
type searchResult struct {
	media   []catalog.Media
	noMatch string
}

type searchResponse struct {
	Search   []catalog.Media `json:"Search"`
	Response string          `json:"Response"`
	Error    string          `json:"Error"`
}

// NewClient builds a client. A nil metrics value disables instrumentation.
func NewClient(cfg Config, metrics *Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    newHTTPClient(cfg.MaxRetries, cfg.Timeout),
		limiter: rate.NewLimiter(limit, burst),
		metrics: metrics,
	}

	c.breaker = gobreaker.NewCircuitBreaker[searchResult](gobreaker.Settings{
		Name:        "omdb",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// a caller giving up says nothing about the remote's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("remote lookup circuit breaker state change")
			metrics.BreakerState.Set(breakerStateValue(to))
		},
	})
	return c
}

// Search returns the records OMDb lists for title. A remote "no match"
// answer and every failure are reported as *RemoteError.
func (c *Client) Search(ctx context.Context, title string) ([]catalog.Media, error) {
	res, err := c.breaker.Execute(func() (searchResult, error) {
		return c.search(ctx, title)
	})
	if err != nil {
		var re *RemoteError
		switch {
		case errors.As(err, &re):
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			re = &RemoteError{Message: "remote catalog temporarily unavailable", Err: err}
		default:
			re = &RemoteError{Message: "remote lookup failed", Err: err}
		}
		c.metrics.Lookups.WithLabelValues("error").Inc()
		return nil, re
	}

	if res.noMatch != "" {
		c.metrics.Lookups.WithLabelValues("no_match").Inc()
		return nil, &RemoteError{Message: res.noMatch}
	}
	c.metrics.Lookups.WithLabelValues("hit").Inc()
	return res.media, nil
}

func (c *Client) search(ctx context.Context, title string) (searchResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return searchResult{}, &RemoteError{Message: "remote lookup cancelled", Err: err}
	}

	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("s", title)
	endpoint := c.baseURL + "/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return searchResult{}, &RemoteError{Message: "invalid remote request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return searchResult{}, &RemoteError{Message: "remote catalog unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return searchResult{}, &RemoteError{Message: "reading remote response", Status: resp.StatusCode, Err: err}
	}

	var payload searchResponse
	decodeErr := json.Unmarshal(body, &payload)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := payload.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return searchResult{}, &RemoteError{
			Message: msg,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	if decodeErr != nil {
		return searchResult{}, &RemoteError{Message: "malformed remote response", Status: resp.StatusCode, Err: decodeErr}
	}

	if !strings.EqualFold(payload.Response, "True") {
		msg := payload.Error
		if msg == "" {
			msg = "Movie not found!"
		}
		return searchResult{noMatch: msg}, nil
	}
	if len(payload.Search) == 0 {
		return searchResult{noMatch: "Movie not found!"}, nil
	}
	return searchResult{media: payload.Search}, nil
}
