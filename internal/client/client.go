package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/leslieo2/go-api-probe/internal/config"
	"github.com/leslieo2/go-api-probe/internal/constants"
	"github.com/leslieo2/go-api-probe/internal/observability"
)

// ErrTimeout is returned when a request exceeds the per-request timeout.
var ErrTimeout = errors.New("request timeout")

// Client sends probe requests to the server under test.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	apiKey     string
	cache      *cache.Cache

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *observability.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(c *Client) { c.metrics = metrics }
}

func WithTracer(tracer *observability.Tracer) Option {
	return func(c *Client) { c.tracer = tracer }
}

// New creates a client for the configured target.
func New(cfg config.TargetConfig, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{},
		timeout:    cfg.Timeout,
		userAgent:  cfg.UserAgent,
		apiKey:     cfg.APIKey,
		logger:     observability.NewNopLogger(),
	}
	if c.timeout <= 0 {
		c.timeout = constants.DefaultRequestTimeout
	}
	if c.userAgent == "" {
		c.userAgent = constants.DefaultUserAgent
	}
	if cfg.CacheTTL > 0 {
		c.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.tracer == nil {
		c.tracer, _ = observability.NewTracer(config.TracingConfig{})
	}

	return c, nil
}

// BaseURL returns the target base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Get issues a GET request that may be served from the memoization cache.
// Only callers that re-inspect a response already fetched in the same run
// should use it; checks asserting server behavior use GetFresh.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: constants.MethodGET, Path: path})
}

// GetFresh issues a GET request that always goes to the network. The
// response still refreshes the memoization cache.
func (c *Client) GetFresh(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: constants.MethodGET, Path: path, NoCache: true})
}

// Options issues an OPTIONS request, as a browser preflight would.
func (c *Client) Options(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: constants.MethodOPTIONS, Path: path, NoCache: true})
}

// PostJSON posts a raw body with a JSON content type.
func (c *Client) PostJSON(ctx context.Context, path string, body []byte) (*Response, error) {
	header := http.Header{}
	header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	return c.Do(ctx, &Request{Method: constants.MethodPOST, Path: path, Header: header, Body: body, NoCache: true})
}

// Do executes req with the per-request timeout and reads the whole body.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}

	method := strings.ToUpper(req.Method)
	cacheable := c.cache != nil && method == constants.MethodGET && len(req.Body) == 0
	cacheKey := method + " " + req.Path
	if cacheable && !req.NoCache {
		if item, found := c.cache.Get(cacheKey); found {
			cached := *item.(*Response)
			cached.Cached = true
			return &cached, nil
		}
	}

	ctx, span := c.tracer.StartSpan(ctx, "http.request",
		attribute.String("http.method", method),
		attribute.String("http.path", req.Path),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.resolve(req.Path)

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set(constants.HeaderUserAgent, c.userAgent)
	if c.apiKey != "" {
		httpReq.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		duration := time.Since(start)
		c.metrics.RecordRequest(method, req.Path, 0, duration)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("HTTP request failed",
			zap.String("method", method),
			zap.String("url", target.String()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s %s: %w after %s", method, req.Path, ErrTimeout, c.timeout)
		}
		return nil, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if err != nil {
		c.metrics.RecordRequest(method, req.Path, 0, duration)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s %s: %w while reading body", method, req.Path, ErrTimeout)
		}
		return nil, fmt.Errorf("%s %s: read body: %w", method, req.Path, err)
	}

	c.metrics.RecordRequest(method, req.Path, resp.StatusCode, duration)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("HTTP request",
		zap.String("method", method),
		zap.String("path", req.Path),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
		zap.Int("response_size", len(body)),
	)

	response := newResponse(resp, body, duration)
	if cacheable && resp.StatusCode < http.StatusInternalServerError {
		c.cache.SetDefault(cacheKey, response)
	}

	return response, nil
}

// resolve joins path onto the base URL, keeping any base path prefix.
func (c *Client) resolve(path string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	return &u
}
