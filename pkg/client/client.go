// Package client implements the constrained, read-only HTTP client that
// every analyzer uses to reach a Cribl Stream/Edge/Lake/Search deployment.
// It owns product detection, auth, rate limiting, retry/backoff, and
// normalization, so analyzers never touch net/http directly.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/cribl-hc/cribl-hc/pkg/model"
	"github.com/cribl-hc/cribl-hc/pkg/ratelimit"
)

const (
	defaultCallTimeout = 30 * time.Second
	defaultMaxRetries  = 3
	userAgent          = "cribl-hc/1.0"
)

// Transport is the capability interface the Client drives requests through.
// Production code uses http.DefaultTransport-backed Do; tests substitute a
// fake, so no test needs a live deployment.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials configures how the client authenticates. Exactly one of
// BearerToken or OAuth should be set.
type Credentials struct {
	BearerToken string
	OAuth       *clientcredentials.Config
}

// Options configures a new Client.
type Options struct {
	BaseURL     string
	Credentials Credentials
	Transport   Transport
	Limiter     *ratelimit.Limiter
	CallTimeout time.Duration
	MaxRetries  int

	// Group scopes Stream worker-group endpoints (/api/v1/m/{group}/...).
	// Defaults to "default".
	Group string
	// Workspace scopes Search endpoints (/api/v1/m/{workspace}/search/...).
	// Defaults to "default".
	Workspace string
	// Lake names the default Lake scope (/api/v1/products/lake/lakes/{lake}/...)
	// used by the Lake-scoped operations when no lake id is given explicitly.
	Lake string
}

// Client is the read-only API surface every analyzer calls through.
type Client struct {
	baseURL     *url.URL
	transport   Transport
	limiter     *ratelimit.Limiter
	callTimeout time.Duration
	maxRetries  int
	tokenSource oauth2.TokenSource
	staticToken string

	group     string
	workspace string
	lake      string

	mu           sync.Mutex
	product      model.Product
	version      string
	productKnown bool
}

// New builds a Client. It does not perform any network I/O; product
// detection happens lazily on first use (or explicitly via Detect).
func New(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("client: invalid base url: %w", err)
	}
	transport := opts.Transport
	if transport == nil {
		transport = &http.Client{}
	}
	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	group := opts.Group
	if group == "" {
		group = "default"
	}
	workspace := opts.Workspace
	if workspace == "" {
		workspace = "default"
	}

	c := &Client{
		baseURL:     base,
		transport:   transport,
		limiter:     opts.Limiter,
		callTimeout: callTimeout,
		maxRetries:  maxRetries,
		staticToken: opts.Credentials.BearerToken,
		group:       group,
		workspace:   workspace,
		lake:        opts.Lake,
	}
	if opts.Credentials.OAuth != nil {
		c.tokenSource = opts.Credentials.OAuth.TokenSource(context.Background())
	}
	return c, nil
}

// TestConnection validates connectivity and auth, per §5 step 1: the
// orchestrator calls this before admission, treating AuthError/Unreachable
// as fatal.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.Detect(ctx)
	return err
}

// Detect resolves and caches the product type and version for the client's
// lifetime, per the product-detection algorithm: try /api/v1/version first,
// fall back to scope-specific probes.
func (c *Client) Detect(ctx context.Context) (model.Product, error) {
	c.mu.Lock()
	if c.productKnown {
		p := c.product
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	var v versionResponse
	err := c.callJSON(ctx, http.MethodGet, "/api/v1/version", nil, &v, true)
	if err == nil && v.Product != "" {
		return c.cacheProduct(model.Product(v.Product), v.Version), nil
	}
	var na *NotAvailable
	if err != nil && !errors.As(err, &na) {
		var cerr *Error
		if errors.As(err, &cerr) && cerr.IsFatal() {
			return model.Product(""), err
		}
	}

	if perr := c.probe(ctx, "/api/v1/edge/fleets"); perr == nil {
		return c.cacheProduct(model.ProductEdge, v.Version), nil
	}
	if perr := c.probe(ctx, "/api/v1/products/lake/lakes"); perr == nil {
		return c.cacheProduct(model.ProductLake, v.Version), nil
	}
	return c.cacheProduct(model.ProductStream, v.Version), nil
}

func (c *Client) probe(ctx context.Context, endpoint string) error {
	var discard any
	return c.callJSON(ctx, http.MethodGet, endpoint, nil, &discard, true)
}

func (c *Client) cacheProduct(p model.Product, version string) model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.product = p
	c.version = version
	c.productKnown = true
	return p
}

// IsEdge reports whether the detected product is Edge. Detect must have
// run at least once; callers typically invoke it via TestConnection.
func (c *Client) IsEdge() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.product == model.ProductEdge
}

// ProductType returns the cached detected product.
func (c *Client) ProductType() model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.product
}

// ProductVersion returns the cached detected version string.
func (c *Client) ProductVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// IsCloud reports whether the deployment's base URL points at Cribl's
// managed Cloud offering, which exposes a narrower endpoint surface
// (e.g. no host-level disk metrics) than self-hosted Stream.
func (c *Client) IsCloud() bool {
	return strings.HasSuffix(c.baseURL.Hostname(), ".cribl.cloud")
}

// Get issues a read-only GET against endpoint (a path relative to the base
// URL) and decodes the JSON body into out. A 404 on an
// optional endpoint yields a *NotAvailable, not an error a caller must
// abort on.
func (c *Client) Get(ctx context.Context, endpoint string, optional bool, out interface{}) error {
	return c.callJSON(ctx, http.MethodGet, endpoint, nil, out, optional)
}

func (c *Client) callJSON(ctx context.Context, method, endpoint string, body []byte, out interface{}, optional bool) error {
	tr := otel.Tracer("cribl-hc/client")
	ctx, span := tr.Start(ctx, endpoint, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("endpoint", endpoint),
	))
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			err = newErr(KindBudgetExhausted, endpoint, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	raw, err := c.doWithRetry(ctx, method, endpoint, body, optional)
	if err != nil {
		var na *NotAvailable
		if errors.As(err, &na) {
			return na
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		merr := newErr(KindMalformedResponse, endpoint, err)
		span.RecordError(merr)
		return merr
	}
	return nil
}

func (c *Client) doWithRetry(ctx context.Context, method, endpoint string, body []byte, optional bool) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			var delay time.Duration
			if c.limiter != nil {
				delay = c.limiter.Backoff(attempt - 1)
			} else {
				delay = time.Duration(attempt) * time.Second
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, newErr(KindUnreachable, endpoint, ctx.Err())
			}
		}

		raw, status, err := c.doOnce(ctx, method, endpoint, body)
		if err != nil {
			// Transport errors are always retried up to maxRetries here;
			// IsFatal is for callers outside the retry loop (e.g. the
			// initial test_connection) to decide whether a failed run
			// should stop, not to short-circuit retry mid-run.
			lastErr = classifyTransportError(endpoint, err)
			continue
		}

		switch {
		case status == http.StatusNotFound && optional:
			return nil, &NotAvailable{Endpoint: endpoint}
		case status == http.StatusNotFound:
			return nil, newErr(KindEndpointMissing, endpoint, fmt.Errorf("status %d", status))
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return nil, newErr(KindAuthError, endpoint, fmt.Errorf("status %d", status))
		case status >= 400 && status < 500 && status != http.StatusTooManyRequests:
			return nil, newErr(KindEndpointMissing, endpoint, fmt.Errorf("status %d", status))
		case status == http.StatusTooManyRequests || status >= 500:
			lastErr = newErr(KindRetryExhausted, endpoint, fmt.Errorf("status %d", status))
			continue
		default:
			return raw, nil
		}
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, body []byte) ([]byte, int, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	full := *c.baseURL
	full.Path = strings.TrimRight(full.Path, "/") + endpoint

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(callCtx, method, full.String(), bodyReader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authenticate(callCtx, req); err != nil {
		return nil, 0, err
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return raw, resp.StatusCode, nil
}

func (c *Client) authenticate(ctx context.Context, req *http.Request) error {
	if c.tokenSource != nil {
		tok, err := c.tokenSource.Token()
		if err != nil {
			return &Error{Kind: KindAuthError, Endpoint: req.URL.Path, Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
		return nil
	}
	if c.staticToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.staticToken)
	}
	return nil
}

func classifyTransportError(endpoint string, err error) *Error {
	var tlsErr *tls.CertificateVerificationError
	if errors.As(err, &tlsErr) {
		return newErr(KindTLSError, endpoint, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return newErr(KindUnreachable, endpoint, err)
	}
	return newErr(KindUnreachable, endpoint, err)
}
