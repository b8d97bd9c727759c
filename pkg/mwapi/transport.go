package mwapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
)

// Transport issues one HTTP request against the fixed API endpoint. It
// never retries: retry is the Session's responsibility. Implementations
// share a cookie context across calls so authenticated cookies persist.
type Transport interface {
	Send(ctx context.Context, method string, enc *EncodedRequest) ([]byte, error)

	// Cookies and SetCookies expose the jar's view of the API endpoint,
	// for persistence across processes.
	Cookies() []*http.Cookie
	SetCookies(cookies []*http.Cookie)

	// ResetCookies discards the jar entirely.
	ResetCookies() error
}

type httpTransport struct {
	apiURL     *url.URL
	hostHeader string
	userAgent  string
	client     *http.Client
}

func newHTTPTransport(cfg *Config) (*httpTransport, error) {
	base := cfg.Host
	if cfg.Origin != "" {
		base = cfg.Origin
	}
	apiURL, err := url.Parse(base + cfg.APIPath)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	t := &httpTransport{
		apiURL:    apiURL,
		userAgent: cfg.UserAgent,
		client:    cfg.newHTTPClient(jar),
	}
	if cfg.Origin != "" {
		hostURL, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("invalid host: %w", err)
		}
		t.hostHeader = hostURL.Host
	}
	return t, nil
}

func (t *httpTransport) Send(ctx context.Context, method string, enc *EncodedRequest) ([]byte, error) {
	requestURL := *t.apiURL
	var body io.Reader
	contentType := ""

	if method == http.MethodGet {
		if enc.Multipart {
			return nil, fmt.Errorf("binary parameters require POST")
		}
		requestURL.RawQuery = enc.Query
	} else {
		body = bytes.NewReader(enc.Body)
		contentType = enc.ContentType
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if t.hostHeader != "" {
		req.Host = t.hostHeader
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read", Retryable: true, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Op:        "send",
			Status:    resp.StatusCode,
			Retryable: isRetryableHTTPStatus(resp.StatusCode),
			Err:       fmt.Errorf("non-2xx response"),
		}
	}

	return raw, nil
}

func (t *httpTransport) Cookies() []*http.Cookie {
	return t.client.Jar.Cookies(t.apiURL)
}

func (t *httpTransport) SetCookies(cookies []*http.Cookie) {
	t.client.Jar.SetCookies(t.apiURL, cookies)
}

func (t *httpTransport) ResetCookies() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to reset cookie jar: %w", err)
	}
	t.client.Jar = jar
	return nil
}

func classifyTransportError(err error) *TransportError {
	te := &TransportError{Op: "send", Retryable: true, Err: err}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		te.Timeout = true
	}
	// Caller abandonment is not a transient fault.
	if errors.Is(err, context.Canceled) {
		te.Retryable = false
	}
	return te
}

// isRetryableHTTPStatus determines if an HTTP status code represents a
// retryable error. 5xx, 429 and 408 are transient; other 4xx are not.
func isRetryableHTTPStatus(status int) bool {
	switch {
	case status >= 500:
		return true
	case status == http.StatusTooManyRequests:
		return true
	case status == http.StatusRequestTimeout:
		return true
	default:
		return false
	}
}
