package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"

	clierr "github.com/tradetok/copytrade/internal/errors"
)

type Client struct {
	httpClient *http.Client
	retries    int
	userAgent  string
}

func New(timeout time.Duration, retries int) *Client {
	if retries < 0 {
		retries = 0
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		retries:    retries,
		userAgent:  "copytrade/1.0",
	}
}

// DoRaw performs the request with bounded retries for transient failures
// (network errors, 429, 5xx) and returns the final status code and body.
// Callers own status interpretation; upstream bodies are returned verbatim
// so error messages can be surfaced to the user unmodified.
func (c *Client) DoRaw(ctx context.Context, req *http.Request) (int, []byte, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, nil, clierr.Wrap(clierr.CodeUnavailable, "request cancelled", ctx.Err())
			case <-time.After(backoff(attempt)):
			}
		}

		cloneReq := req.Clone(ctx)
		if req.Body != nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return 0, nil, clierr.Wrap(clierr.CodeInternal, "clone request body", err)
			}
			cloneReq.Body = body
		}

		resp, err := c.httpClient.Do(cloneReq)
		if err != nil {
			lastErr = mapNetError(err)
			if attempt < c.retries {
				continue
			}
			return 0, nil, lastErr
		}

		buf, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return resp.StatusCode, nil, clierr.Wrap(clierr.CodeUnavailable, "read upstream response", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			lastErr = clierr.New(clierr.CodeUnavailable, fmt.Sprintf("upstream unavailable (status %d)", resp.StatusCode))
			if attempt < c.retries {
				continue
			}
			return resp.StatusCode, buf, nil
		}

		return resp.StatusCode, buf, nil
	}

	if lastErr != nil {
		return 0, nil, lastErr
	}
	return 0, nil, clierr.New(clierr.CodeUnavailable, "request failed")
}

// DoJSON performs the request and decodes a 2xx JSON response into out.
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) error {
	status, buf, err := c.DoRaw(ctx, req)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return clierr.New(clierr.CodeAuth, "upstream authentication failed")
	case status == http.StatusTooManyRequests:
		return clierr.New(clierr.CodeRateLimited, "upstream rate limited request")
	case status >= http.StatusInternalServerError:
		return clierr.New(clierr.CodeUnavailable, fmt.Sprintf("upstream unavailable (status %d)", status))
	case status < 200 || status >= 300:
		return clierr.New(clierr.CodeUnavailable, fmt.Sprintf("upstream returned unexpected status %d", status))
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(buf)) == 0 {
		return clierr.New(clierr.CodeUnavailable, "upstream returned empty response")
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return clierr.Wrap(clierr.CodeUnavailable, "decode upstream JSON", err)
	}
	return nil
}

// NewJSONRequest builds a request carrying a JSON body with GetBody set so
// retries can replay it.
func NewJSONRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	return req, nil
}

func mapNetError(err error) error {
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return clierr.Wrap(clierr.CodeUnavailable, "upstream timeout", err)
	}
	return clierr.Wrap(clierr.CodeUnavailable, "upstream request failed", err)
}

func backoff(attempt int) time.Duration {
	base := 120 * time.Millisecond
	d := base * time.Duration(1<<uint(attempt-1))
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	jitter := time.Duration(rand.Intn(75)) * time.Millisecond
	return d + jitter
}
