package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/gmailcli/internal/config"
	"github.com/teemow/gmailcli/internal/gmail"
	"github.com/teemow/gmailcli/internal/instrumentation"
	"github.com/teemow/gmailcli/internal/logging"
)

// ErrShutdown is returned for client requests after Shutdown.
var ErrShutdown = errors.New("server is shutting down")

// ClientFactory creates a Gmail client for an account.
type ClientFactory func(ctx context.Context, account string) (*gmail.Client, error)

// Limits caps what a single tool call may request.
type Limits struct {
	ReadLimit   int64
	BatchLimit  int64
	Concurrency int
}

// DefaultLimits mirrors the configuration defaults.
func DefaultLimits() Limits {
	return Limits{
		ReadLimit:   config.DefaultReadLimit,
		BatchLimit:  config.DefaultBatchLimit,
		Concurrency: config.DefaultConcurrency,
	}
}

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx          context.Context
	cancel       context.CancelFunc
	factory      ClientFactory
	account      string
	gmailClients map[string]*gmail.Client // Maps account name to Gmail client
	metrics      *instrumentation.Metrics
	auditLogger  *instrumentation.AuditLogger
	logger       *slog.Logger
	limits       Limits
	attachDir    string
	mu           sync.RWMutex
	shutdown     bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithMetrics records tool invocations on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) {
		sc.metrics = m
	}
}

// WithAuditLogger logs every tool invocation to al.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) {
		sc.auditLogger = al
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// WithDefaultAccount sets the account tools act for when a call names none.
func WithDefaultAccount(account string) Option {
	return func(sc *ServerContext) {
		if account != "" {
			sc.account = account
		}
	}
}

// WithAttachmentDir confines the files tools may attach to dir. An empty
// dir leaves them unrestricted.
func WithAttachmentDir(dir string) Option {
	return func(sc *ServerContext) {
		sc.attachDir = dir
	}
}

// WithLimits overrides the per-call limits. Non-positive values keep the
// defaults.
func WithLimits(l Limits) Option {
	return func(sc *ServerContext) {
		if l.ReadLimit > 0 {
			sc.limits.ReadLimit = l.ReadLimit
		}
		if l.BatchLimit > 0 {
			sc.limits.BatchLimit = l.BatchLimit
		}
		if l.Concurrency > 0 {
			sc.limits.Concurrency = l.Concurrency
		}
	}
}

// NewServerContext creates a new server context. Clients are created lazily
// by factory on first use and cached per account.
func NewServerContext(ctx context.Context, factory ClientFactory, opts ...Option) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:          shutdownCtx,
		cancel:       cancel,
		factory:      factory,
		account:      config.DefaultAccount,
		gmailClients: make(map[string]*gmail.Client),
		logger:       slog.Default(),
		limits:       DefaultLimits(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// GmailClientForAccount returns the Gmail client for a specific account,
// creating and caching it on first use. Factory failures are not cached.
func (sc *ServerContext) GmailClientForAccount(ctx context.Context, account string) (*gmail.Client, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, ErrShutdown
	}
	if client, ok := sc.gmailClients[account]; ok {
		return client, nil
	}
	if sc.factory == nil {
		return nil, fmt.Errorf("no Gmail client configured for account %s", account)
	}

	client, err := sc.factory(ctx, account)
	if err != nil {
		sc.logger.Warn("failed to create Gmail client", logging.Account(account), logging.Err(err))
		return nil, err
	}

	sc.gmailClients[account] = client
	return client, nil
}

// SetGmailClientForAccount sets the Gmail client for a specific account
func (sc *ServerContext) SetGmailClientForAccount(account string, client *gmail.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.gmailClients[account] = client
}

// Accounts returns the number of accounts with a cached client.
func (sc *ServerContext) Accounts() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.gmailClients)
}

// DefaultAccount returns the account used when a tool call names none.
func (sc *ServerContext) DefaultAccount() string {
	return sc.account
}

// Metrics returns the tool metrics recorder, which may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, which may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// AttachmentDir returns the directory tool attachments must live in, or "".
func (sc *ServerContext) AttachmentDir() string {
	return sc.attachDir
}

// Limits returns the per-call limits.
func (sc *ServerContext) Limits() Limits {
	return sc.limits
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
