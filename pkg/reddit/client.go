package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"mineralscraper/pkg/config"
	errs "mineralscraper/pkg/errors"
	"mineralscraper/pkg/logger"
	"mineralscraper/pkg/ratelimit"
	"mineralscraper/pkg/retry"
)

// Quota is the request budget Reddit reports in its X-Ratelimit headers
type Quota struct {
	Used      int
	Remaining int
	ResetAt   time.Time
}

// Client talks to the Reddit API
type Client struct {
	httpClient *http.Client
	baseURL    string
	mode       AuthMode
	userAgent  string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger

	// maxExpansions caps stub expansions per thread, 0 is unlimited
	maxExpansions int

	quotaMu sync.Mutex
	quota   Quota
	onQuota func(Quota)
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, including its auth transport
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a different API host
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithLimiter replaces the request limiter
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry replaces the retry configuration
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithMaxExpansions caps the stub expansions FetchComments may spend on one
// thread. Threads needing more fail with ErrIncompleteThread.
func WithMaxExpansions(n int) Option {
	return func(c *Client) { c.maxExpansions = n }
}

// WithQuotaObserver registers a callback invoked whenever Reddit reports its quota
func WithQuotaObserver(fn func(Quota)) Option {
	return func(c *Client) { c.onQuota = fn }
}

// NewClient creates a Reddit API client. The auth mode follows from the
// credentials in cfg.Reddit: password grant, application-only, or anonymous.
func NewClient(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	rc := cfg.Reddit
	if rc.UserAgent == "" {
		return nil, errors.New("reddit user agent is required")
	}

	transport := &userAgentTransport{base: http.DefaultTransport, userAgent: rc.UserAgent}
	plain := &http.Client{Timeout: rc.Timeout, Transport: transport}

	c := &Client{
		mode:      ModeFor(rc),
		userAgent: rc.UserAgent,
		limiter:   ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute),
		retry:     retry.FromConfig(cfg.Retry, log),
		logger:    log.WithField("component", "reddit"),

		maxExpansions: cfg.Scrape.MaxExpansions,
	}

	if c.mode == AuthModeAnonymous {
		c.httpClient = plain
		c.baseURL = strings.TrimRight(rc.PublicURL, "/")
	} else {
		c.httpClient = &http.Client{
			Timeout: rc.Timeout,
			Transport: &oauth2.Transport{
				Source: newTokenSource(ctx, rc, plain),
				Base:   transport,
			},
		}
		c.baseURL = strings.TrimRight(rc.OAuthURL, "/")
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger.DebugWithFields("reddit client created", map[string]interface{}{
		"mode":     string(c.mode),
		"base_url": c.baseURL,
	})
	return c, nil
}

// Mode returns the authentication mode in use
func (c *Client) Mode() AuthMode {
	return c.mode
}

// Quota returns the last quota Reddit reported
func (c *Client) Quota() Quota {
	c.quotaMu.Lock()
	defer c.quotaMu.Unlock()
	return c.quota
}

// Me returns the authenticated username. Only valid for password mode.
func (c *Client) Me(ctx context.Context) (string, error) {
	if c.mode != AuthModePassword {
		return "", fmt.Errorf("no user account in %s mode", c.mode)
	}
	var me meResponse
	if err := c.getJSON(ctx, MeEndpoint, nil, &me); err != nil {
		return "", err
	}
	return me.Name, nil
}

// buildURL joins the base URL, path and query. Anonymous access needs the
// .json suffix to get JSON instead of HTML.
func (c *Client) buildURL(path string, params url.Values) string {
	if c.mode == AuthModeAnonymous {
		path += ".json"
	}
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// getJSON fetches path and decodes the response into target, retrying
// transient failures
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, target interface{}) error {
	endpoint := c.buildURL(path, params)
	return retry.Do(func() error {
		return c.fetchOnce(ctx, endpoint, target)
	}, c.retry.WithContext(ctx))
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return c.transportError(req, err, duration)
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, req.Method, req.URL.Path, resp.StatusCode, duration)
	c.observeQuota(resp)

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response body")
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"path":         req.URL.Path,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// transportError classifies a failed round trip. Token endpoint failures
// surface as *oauth2.RetrieveError inside the url.Error.
func (c *Client) transportError(req *http.Request, err error, duration time.Duration) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		code := 0
		if retrieveErr.Response != nil {
			code = retrieveErr.Response.StatusCode
		}
		c.logger.ErrorWithFields("token request failed", map[string]interface{}{
			"status": code,
			"error":  err.Error(),
		})
		if code >= 500 {
			return &errs.Error{Type: errs.ErrorTypeServerError, Message: "token endpoint unavailable", Code: code, Err: err}
		}
		return &errs.Error{Type: errs.ErrorTypeAuth, Message: "reddit rejected the credentials", Code: code, Err: err}
	}

	c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
		"method":   req.Method,
		"path":     req.URL.Path,
		"error":    err.Error(),
		"duration": duration,
	})
	return errs.Wrap(errs.ErrorTypeNetwork, err, "network error")
}

// observeQuota records X-Ratelimit headers and pauses the limiter when the
// budget is spent
func (c *Client) observeQuota(resp *http.Response) {
	remainingHeader := resp.Header.Get("X-Ratelimit-Remaining")
	if remainingHeader == "" {
		return
	}
	remaining, err := strconv.ParseFloat(remainingHeader, 64)
	if err != nil {
		return
	}
	used, _ := strconv.Atoi(resp.Header.Get("X-Ratelimit-Used"))
	resetSeconds, _ := strconv.ParseFloat(resp.Header.Get("X-Ratelimit-Reset"), 64)

	q := Quota{
		Used:      used,
		Remaining: int(remaining),
		ResetAt:   time.Now().Add(time.Duration(resetSeconds * float64(time.Second))),
	}

	c.quotaMu.Lock()
	c.quota = q
	c.quotaMu.Unlock()

	if c.onQuota != nil {
		c.onQuota(q)
	}

	if remaining < 1 && resetSeconds > 0 {
		if p, ok := c.limiter.(interface{ PauseUntil(time.Time) }); ok {
			p.PauseUntil(q.ResetAt)
		}
		logger.LogRateLimit(c.logger, resp.Request.URL.Path, time.Until(q.ResetAt))
	}
}

// checkResponseStatus maps non-2xx responses to typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var message string
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		message = "authentication required"
	case http.StatusForbidden:
		message = "access forbidden (private, quarantined or banned subreddit)"
	case http.StatusNotFound:
		message = "resource not found"
	case http.StatusTooManyRequests:
		message = "rate limit exceeded"
	default:
		message = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
	}

	apiErr := errs.FromStatus(resp.StatusCode, message)
	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		logger.LogRateLimit(c.logger, resp.Request.URL.Path, apiErr.RetryAfter)
	}

	c.logger.WarnWithFields("reddit API error", map[string]interface{}{
		"status": resp.StatusCode,
		"path":   resp.Request.URL.Path,
		"type":   string(apiErr.Type),
	})
	return apiErr
}

// parseRetryAfter reads a Retry-After value given in seconds or as an HTTP date
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
