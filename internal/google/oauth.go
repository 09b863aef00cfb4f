package google

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/gmailcli/internal/instrumentation"
	"github.com/teemow/gmailcli/internal/logging"
)

// ErrNoToken is returned when no token is stored for an account.
var ErrNoToken = errors.New("no valid Google OAuth token found")

// LoadConfig reads the OAuth client credentials downloaded from the Google
// Cloud Console and returns a config for the given scopes.
func LoadConfig(credentialsFile string, scopes []string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("missing %s: download OAuth credentials from Google Cloud Console and save them there: %w", credentialsFile, err)
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", credentialsFile, err)
	}
	return conf, nil
}

// Authenticator obtains and refreshes tokens for accounts and builds
// authenticated HTTP clients.
type Authenticator struct {
	config  *oauth2.Config
	store   *TokenStore
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithMetrics records OAuth logins and refreshes on m.
func WithMetrics(m *instrumentation.Metrics) AuthenticatorOption {
	return func(a *Authenticator) {
		a.metrics = m
	}
}

// WithLogger sets the logger for OAuth diagnostics.
func WithLogger(logger *slog.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuthenticator creates an Authenticator for config that keeps tokens in store.
func NewAuthenticator(config *oauth2.Config, store *TokenStore, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		config: config,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TokenSource returns a token source for the stored token of account.
// Refreshed tokens are written back to the store. Returns ErrNoToken when
// the account has not logged in yet.
func (a *Authenticator) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	tok, err := a.store.Load(account)
	if err != nil {
		return nil, err
	}
	return &persistingTokenSource{
		ctx:     ctx,
		base:    a.config.TokenSource(ctx, tok),
		store:   a.store,
		account: account,
		last:    tok,
		metrics: a.metrics,
		logger:  a.logger,
	}, nil
}

// HTTPClient returns an HTTP client that authenticates requests as account.
func (a *Authenticator) HTTPClient(ctx context.Context, account string) (*http.Client, error) {
	ts, err := a.TokenSource(ctx, account)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

// Login runs the installed-app flow for account: it listens on a loopback
// port, hands the consent URL to prompt and waits for the browser to be
// redirected back. The resulting token is stored.
func (a *Authenticator) Login(ctx context.Context, account string, prompt func(authURL string) error) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen for OAuth callback: %w", err)
	}

	conf := *a.config
	conf.RedirectURL = "http://" + ln.Addr().String() + "/"

	state := rand.Text()
	verifier := oauth2.GenerateVerifier()
	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("OAuth callback server stopped", logging.Err(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := prompt(authURL); err != nil {
		return nil, err
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, res.err
	}

	tok, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)

	if err := a.store.Save(account, tok); err != nil {
		return nil, err
	}
	a.logger.Info("stored OAuth token", logging.Account(account))
	return tok, nil
}

type callbackResult struct {
	code string
	err  error
}

// callbackHandler handles the OAuth redirect. Only the first callback is
// reported on results.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case q.Get("code") == "":
			res.err = errors.New("authorization response has no code")
		default:
			res.code = q.Get("code")
		}

		select {
		case results <- res:
		default:
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "<p>Authentication failed: %s</p>", html.EscapeString(res.err.Error()))
			return
		}
		fmt.Fprint(w, "<p>Authentication complete. You can close this window.</p>")
	})
}
