package mwapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
)

// AuthState is the Session's view of its authentication.
type AuthState int

const (
	Anonymous AuthState = iota
	Authenticated
)

// Session encapsulates a set of interactions with one action API
// endpoint: it owns the cookie-carrying transport, the retry policy, and
// the login state. Not safe for concurrent use; see the package
// documentation.
type Session struct {
	cfg       *Config
	transport Transport
	logger    hclog.Logger

	authState AuthState
	username  string
}

// New constructs a Session from cfg, applying defaults for unset fields
// and validating the result. When cfg.CookieFile is set, a previously
// saved cookie jar is restored.
func New(cfg *Config) (*Session, error) {
	if cfg.APIPath == "" {
		cfg.APIPath = DefaultAPIPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 1 * time.Second
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = 60 * time.Second
	}
	if cfg.RetryableCode == nil {
		cfg.RetryableCode = defaultRetryableCode
	}
	if cfg.CookieFS == nil {
		cfg.CookieFS = afero.NewOsFs()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	transport, err := newHTTPTransport(cfg)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:       cfg,
		transport: transport,
		logger:    cfg.logger().Named("mwapi"),
	}

	if cfg.CookieFile != "" {
		if err := s.LoadCookies(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// AuthState returns the current authentication state.
func (s *Session) AuthState() AuthState { return s.authState }

// Username returns the authenticated username, or "" when anonymous.
func (s *Session) Username() string { return s.username }

// Get performs one GET request and returns the payload document.
func (s *Session) Get(ctx context.Context, params Params) (Doc, error) {
	return s.Request(ctx, http.MethodGet, params, nil)
}

// Post performs one POST request and returns the payload document.
func (s *Session) Post(ctx context.Context, params Params) (Doc, error) {
	return s.Request(ctx, http.MethodPost, params, nil)
}

// GetAll returns a continuation iterator over a GET query. No network
// call is made until the first advance.
func (s *Session) GetAll(params Params) *Iterator {
	return newIterator(s, http.MethodGet, params)
}

// PostAll returns a continuation iterator over a POST query.
func (s *Session) PostAll(params Params) *Iterator {
	return newIterator(s, http.MethodPost, params)
}

// Request performs one request with the given method. queryContinue, when
// non-nil, is a continuation token from a past response and is merged
// over params. The reserved continuation flag is consumed here: a true
// value is rejected because single-shot calls cannot return an iterator.
func (s *Session) Request(ctx context.Context, method string, params Params, queryContinue map[string]string) (Doc, error) {
	params, continuation := stripContinuation(params)
	if continuation {
		return nil, fmt.Errorf("continuation requested on a single-shot call; use GetAll or PostAll")
	}
	return s.request(ctx, method, params, queryContinue)
}

func stripContinuation(params Params) (Params, bool) {
	value, ok := params[ParamContinuation]
	if !ok {
		return params, false
	}
	stripped := make(Params, len(params)-1)
	for key, v := range params {
		if key == ParamContinuation {
			continue
		}
		stripped[key] = v
	}
	return stripped, value.kind == kindBool && value.flag
}

// request runs one encode, send, interpret cycle under the retry policy.
func (s *Session) request(ctx context.Context, method string, params Params, extra map[string]string) (Doc, error) {
	merged := make(map[string]string, len(extra)+2)
	for key, value := range extra {
		merged[key] = value
	}
	merged["format"] = "json"
	if s.cfg.FormatVersion != 0 {
		merged["formatversion"] = strconv.Itoa(s.cfg.FormatVersion)
	}

	enc, err := encodeRequest(params, merged)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	attempts := 0

	operation := func() (Doc, error) {
		attempts++
		raw, err := s.transport.Send(ctx, method, enc)
		if err != nil {
			var transportErr *TransportError
			if errors.As(err, &transportErr) && transportErr.Retryable {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}

		doc, err := interpret(raw, s.cfg.WarningsPolicy, s.logger)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && s.cfg.RetryableCode(apiErr.Code) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return doc, nil
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("retrying request",
			"request_id", requestID, "method", method, "backoff", wait, "error", err)
	}

	doc, err := backoff.RetryNotifyWithData(operation, s.retryPolicy(ctx), notify)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("request complete",
		"request_id", requestID, "method", method, "attempts", attempts)
	return doc, nil
}

func (s *Session) retryPolicy(ctx context.Context) backoff.BackOffContext {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryDelay
	policy.RandomizationFactor = 0
	policy.Multiplier = 2
	policy.MaxInterval = s.cfg.MaxRetryDelay
	policy.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.cfg.MaxRetries)), ctx)
}

type clientLoginResult struct {
	Status      string           `mapstructure:"status"`
	Message     string           `mapstructure:"message"`
	MessageCode string           `mapstructure:"messagecode"`
	Username    string           `mapstructure:"username"`
	Requests    []map[string]any `mapstructure:"requests"`
}

// Login authenticates with the given credentials: it fetches a login
// token, then submits the clientlogin handshake. The Session transitions
// to Authenticated only on an explicit PASS from the server; any other
// outcome leaves it anonymous.
//
// Passwords travel as plaintext form fields. Use an https host.
func (s *Session) Login(ctx context.Context, username, password string) error {
	tokenDoc, err := s.Post(ctx, Params{
		"action": String("query"),
		"meta":   String("tokens"),
		"type":   String("login"),
	})
	if err != nil {
		return fmt.Errorf("failed to fetch login token: %w", err)
	}
	loginToken, ok := stringAt(tokenDoc, "query", "tokens", "logintoken")
	if !ok {
		return &LoginError{Status: "error", Message: "login token missing from response"}
	}

	loginDoc, err := s.Post(ctx, Params{
		"action":         String("clientlogin"),
		"username":       String(username),
		"password":       String(password),
		"logintoken":     String(loginToken),
		"loginreturnurl": String("http://example.org/"),
	})
	if err != nil {
		return err
	}
	return s.finishLogin(loginDoc, loginToken)
}

// ContinueLogin completes a login that required an additional step, such
// as a captcha or a two-factor token. loginToken comes from the
// ClientInteractionError of the previous Login call; params carries the
// fields the server asked for.
func (s *Session) ContinueLogin(ctx context.Context, loginToken string, params Params) error {
	loginParams := Params{
		"action":        String("clientlogin"),
		"logintoken":    String(loginToken),
		"logincontinue": String("1"),
	}
	for key, value := range params {
		loginParams[key] = value
	}

	loginDoc, err := s.Post(ctx, loginParams)
	if err != nil {
		return err
	}
	return s.finishLogin(loginDoc, loginToken)
}

func (s *Session) finishLogin(doc Doc, loginToken string) error {
	var result clientLoginResult
	if err := mapstructure.Decode(doc["clientlogin"], &result); err != nil {
		return &LoginError{Status: "error", Message: fmt.Sprintf("unrecognized clientlogin response: %v", err)}
	}

	switch result.Status {
	case "PASS":
		s.authState = Authenticated
		s.username = result.Username
		s.logger.Info("logged in", "username", s.username)
		return nil
	case "UI":
		return &ClientInteractionError{
			LoginToken: loginToken,
			Message:    result.Message,
			Requests:   result.Requests,
		}
	default:
		return &LoginError{Status: result.Status, Message: result.Message}
	}
}

// Logout sends a best-effort logout request and clears local
// authentication state and the cookie jar unconditionally: the client's
// view of "logged out" never depends on a possibly-lost acknowledgment.
// The returned error aggregates anything that went wrong along the way.
func (s *Session) Logout(ctx context.Context) error {
	var result *multierror.Error

	if _, err := s.Post(ctx, Params{"action": String("logout")}); err != nil {
		s.logger.Warn("logout request failed; clearing local state anyway", "error", err)
		result = multierror.Append(result, err)
	}

	s.authState = Anonymous
	s.username = ""
	if err := s.transport.ResetCookies(); err != nil {
		result = multierror.Append(result, err)
	}
	if s.cfg.CookieFile != "" {
		if err := s.SaveCookies(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}
