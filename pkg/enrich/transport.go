package enrich

import (
	"errors"
	"net/http"
	"time"
)

const (
	defaultRetryMax  = 2
	defaultUserAgent = "mediashelf/1.0"
)

// retryTransport retries replayable requests that failed at the transport
// level. Responses, including error statuses, are returned as-is.
type retryTransport struct {
	Base      http.RoundTripper
	RetryMax  int
	UserAgent string
	Backoff   time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	// only GET/HEAD without a body can be replayed safely
	max := t.RetryMax
	if max < 0 || req.Body != nil || (req.Method != http.MethodGet && req.Method != http.MethodHead) {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		if attempt > 0 && t.Backoff > 0 {
			select {
			case <-time.After(t.Backoff * time.Duration(attempt)):
			case <-req.Context().Done():
				return nil, lastErr
			}
		}

		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" && t.UserAgent != "" {
			r.Header.Set("User-Agent", t.UserAgent)
		}

		resp, err := base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func newHTTPClient(retryMax int, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &retryTransport{
			Base: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
			},
			RetryMax:  retryMax,
			UserAgent: defaultUserAgent,
			Backoff:   100 * time.Millisecond,
		},
		Timeout: timeout,
	}
}
