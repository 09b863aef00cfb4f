package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/gmailcli/internal/instrumentation"
	"github.com/teemow/gmailcli/internal/logging"
)

// userID addresses the authenticated user in every API path.
const userID = "me"

// Defaults for the transport knobs.
const (
	DefaultRequestsPerSecond = 10
	DefaultBurst             = 5
	DefaultConcurrency       = 4
	DefaultMaxTries          = 4
)

// Client wraps the Gmail Users service. Every method takes a context and runs
// through the rate limiter, the retry policy and the instrumentation.
type Client struct {
	svc     *gmailapi.UsersService
	account string

	limiter     *rate.Limiter
	concurrency int
	maxTries    uint
	newBackOff  func() backoff.BackOff

	metrics *instrumentation.Metrics
	logger  *slog.Logger

	endpoint string
}

// Option configures a Client.
type Option func(*Client)

// WithAccount sets the account name the client acts for. It is only used
// for logs and spans.
func WithAccount(account string) Option {
	return func(c *Client) {
		c.account = account
	}
}

// WithRateLimit limits outgoing requests. A non-positive rps disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithConcurrency bounds the number of parallel requests of GetMessages.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithMaxTries sets how many attempts a retryable call gets in total.
func WithMaxTries(n uint) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTries = n
		}
	}
}

// WithBackOff sets the factory for the delay policy between attempts.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) {
		if newBackOff != nil {
			c.newBackOff = newBackOff
		}
	}
}

// WithMetrics records API operations on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

func newClient(opts []Option) *Client {
	c := &Client{
		account:     "default",
		limiter:     rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultBurst),
		concurrency: DefaultConcurrency,
		maxTries:    DefaultMaxTries,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClient creates a Gmail client that authenticates through httpClient,
// typically the OAuth client returned by the google package.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	c := newClient(opts)

	svcOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(c.endpoint))
	}
	svc, err := gmailapi.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	c.svc = svc.Users
	return c, nil
}

// NewClientFromService wraps an already configured Gmail service.
func NewClientFromService(svc *gmailapi.Service, opts ...Option) *Client {
	c := newClient(opts)
	c.svc = svc.Users
	return c
}

// Account returns the account name this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// IsRetryable reports whether err is a transient API failure: rate limiting
// or a server error.
func IsRetryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	case http.StatusForbidden:
		for _, item := range apiErr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return true
			}
		}
	}
	return false
}

// IsForbidden reports whether err is a 403 that is not rate limiting,
// usually a missing OAuth scope.
func IsForbidden(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden && !IsRetryable(err)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

// call runs fn as the API operation named operation. Transient failures are
// retried with backoff. The whole call, retries included, is one span and
// one metric sample.
func call[T any](ctx context.Context, c *Client, operation string, attrs []attribute.KeyValue, fn func(context.Context) (T, error)) (T, error) {
	attrs = append(attrs, attribute.String(instrumentation.SpanAttrAccount, c.account))
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, operation, attrs...)
	start := time.Now()

	attempts := 0
	op := func() (T, error) {
		attempts++
		if attempts > 1 {
			c.metrics.RecordGoogleAPIRetry(ctx, instrumentation.ServiceGmail, operation)
		}
		if err := c.limiter.Wait(ctx); err != nil {
			var zero T
			return zero, backoff.Permanent(err)
		}
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		c.logger.DebugContext(ctx, "retrying Gmail API call",
			logging.Operation(operation), logging.Attempt(attempts), logging.Err(err))
		return v, err
	}

	result, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrAttempts, attempts))
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, instrumentation.StatusOf(err), time.Since(start))
	instrumentation.EndSpan(span, err)
	return result, err
}

// callNoResult is call for API methods that only return an error.
func callNoResult(ctx context.Context, c *Client, operation string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	_, err := call(ctx, c, operation, attrs, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func resource(kind, id string) []attribute.KeyValue {
	return instrumentation.NewSpanAttributeBuilder().WithResource(kind, id).Build()
}
