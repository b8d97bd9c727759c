package mwapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"golang.org/x/oauth2"
)

// DefaultUserAgent is the placeholder user agent. Validate rejects it:
// callers must identify their tool to the API's operators.
const DefaultUserAgent = "go-mwapi -- default user-agent"

// DefaultAPIPath is the conventional location of the action API endpoint.
const DefaultAPIPath = "/w/api.php"

// Config contains configuration for a Session.
//
// Example configuration (HCL, as consumed by the CLI):
//
//	host        = "https://en.wikipedia.org"
//	user_agent  = "my-tool/1.0 (ops@example.org)"
//	timeout     = "30s"
//	max_retries = 3
type Config struct {
	// Host is the scheme and host of the API server, with no trailing
	// slash. Example: "https://en.wikipedia.org".
	Host string

	// Origin is an alternate host to send requests to instead of Host,
	// with the Host header still set from Host. Useful behind load
	// balancers and for internal hostnames.
	Origin string

	// APIPath is the path to the endpoint on the server. Must begin
	// with "/". Default: DefaultAPIPath.
	APIPath string

	// UserAgent identifies the calling tool. Required; construction
	// fails on an empty or placeholder value.
	UserAgent string

	// FormatVersion, when non-zero, is sent as the formatversion
	// parameter on every request.
	FormatVersion int

	// Timeout bounds each HTTP round trip. Default: 30 seconds.
	Timeout time.Duration

	// MaxRetries bounds retry attempts after the first try. Default: 3.
	MaxRetries int

	// RetryDelay is the base backoff delay; each retry doubles it.
	// Default: 1 second.
	RetryDelay time.Duration

	// MaxRetryDelay caps the grown backoff delay. Default: 60 seconds.
	MaxRetryDelay time.Duration

	// WarningsPolicy controls handling of warnings-only responses.
	// Default: WarnLog, matching the protocol's informal convention.
	WarningsPolicy WarningsPolicy

	// RetryableCode reports whether an API error code is a transient
	// server decision worth retrying. Default: ratelimited and maxlag.
	RetryableCode func(code string) bool

	// OAuth2Token, when set, is sent as a bearer token on every request
	// (owner-only OAuth2 consumer flow). Cookie login is unnecessary in
	// that mode.
	OAuth2Token *oauth2.Token

	// CookieFile, when set, is where the session cookie jar is saved by
	// SaveCookies and restored from at construction.
	CookieFile string

	// CookieFS is the filesystem CookieFile lives on. Default: the OS
	// filesystem.
	CookieFS afero.Fs

	// Logger (optional).
	Logger hclog.Logger
}

// DefaultConfig returns a Config with defaults applied. Host and
// UserAgent must still be set by the caller.
func DefaultConfig() *Config {
	return &Config{
		APIPath:       DefaultAPIPath,
		Timeout:       30 * time.Second,
		MaxRetries:    3,
		RetryDelay:    1 * time.Second,
		MaxRetryDelay: 60 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Required, validation.By(validHostURL)),
		validation.Field(&c.UserAgent, validation.Required,
			validation.NotIn(DefaultUserAgent).Error("must be a descriptive, non-default value")),
		validation.Field(&c.APIPath, validation.Required, validation.By(leadingSlash)),
		validation.Field(&c.MaxRetries, validation.Min(0)),
		validation.Field(&c.RetryDelay, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if c.Origin != "" {
		if err := validHostURL(c.Origin); err != nil {
			return fmt.Errorf("invalid origin: %w", err)
		}
	}
	return nil
}

func validHostURL(value any) error {
	text, _ := value.(string)
	parsed, err := url.Parse(text)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("must use http or https scheme, got: %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func leadingSlash(value any) error {
	text, _ := value.(string)
	if !strings.HasPrefix(text, "/") {
		return fmt.Errorf("must begin with %q", "/")
	}
	return nil
}

// newHTTPClient creates the configured HTTP client sharing the given
// cookie jar across all requests of the Session.
func (c *Config) newHTTPClient(jar http.CookieJar) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	var roundTripper http.RoundTripper = transport
	if c.OAuth2Token != nil {
		roundTripper = oauth2Transport(transport, c.OAuth2Token)
	}

	return &http.Client{
		Timeout:   c.Timeout,
		Transport: roundTripper,
		Jar:       jar,
	}
}

func (c *Config) logger() hclog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return hclog.NewNullLogger()
}

func defaultRetryableCode(code string) bool {
	return code == "ratelimited" || code == "maxlag"
}
