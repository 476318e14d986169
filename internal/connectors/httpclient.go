package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	userAgent    = "world-monitor/1.0 (+https://localhost)"
	maxBodyBytes = 8 << 20
)

// NewHTTPClient builds the shared transport used by every connector.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// Fetcher performs GET requests with retries and maps failures onto the
// connector error taxonomy.
type Fetcher struct {
	client  *http.Client
	retries int
	backoff time.Duration
}

func NewFetcher(client *http.Client, retries int, backoff time.Duration) *Fetcher {
	if retries < 0 {
		retries = 0
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Fetcher{client: client, retries: retries, backoff: backoff}
}

// GetBytes fetches url, retrying transient failures with exponential backoff.
func (f *Fetcher) GetBytes(ctx context.Context, source, url, accept string) ([]byte, error) {
	var lastErr error
	delay := f.backoff
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &ConnectorError{Kind: KindTimeout, Source: source, Err: ctx.Err()}
			}
			delay *= 2
		}
		body, err := f.getOnce(ctx, source, url, accept)
		if err == nil {
			return body, nil
		}
		lastErr = err
		var connErr *ConnectorError
		// Rate limiting is not worth hammering; surface it immediately.
		if errors.As(err, &connErr) && connErr.Kind == KindRateLimited {
			return nil, err
		}
	}
	return nil, lastErr
}

func (f *Fetcher) getOnce(ctx context.Context, source, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ConnectorError{Kind: KindParse, Source: source, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		kind := KindHTTPStatus
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			kind = KindTimeout
		}
		return nil, &ConnectorError{Kind: kind, Source: source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &ConnectorError{Kind: KindRateLimited, Source: source, Err: fmt.Errorf("status %d from %s", resp.StatusCode, url)}
	}
	if resp.StatusCode/100 != 2 {
		return nil, &ConnectorError{Kind: KindHTTPStatus, Source: source, Err: fmt.Errorf("status %d from %s", resp.StatusCode, url)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &ConnectorError{Kind: KindHTTPStatus, Source: source, Err: err}
	}
	return body, nil
}

// GetJSON fetches and decodes a JSON document into out.
func (f *Fetcher) GetJSON(ctx context.Context, source, url string, out any) error {
	body, err := f.GetBytes(ctx, source, url, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ConnectorError{Kind: KindParse, Source: source, Err: err}
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
