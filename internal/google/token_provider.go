package google

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/gmailcli/internal/instrumentation"
	"github.com/teemow/gmailcli/internal/logging"
)

// persistingTokenSource writes every token the base source hands out for
// the first time back to the store, so refreshed access tokens survive the
// process.
type persistingTokenSource struct {
	ctx     context.Context
	base    oauth2.TokenSource
	store   *TokenStore
	account string
	metrics *instrumentation.Metrics
	logger  *slog.Logger

	mu   sync.Mutex
	last *oauth2.Token
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		p.metrics.RecordOAuthTokenRefresh(p.ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("failed to refresh token for account %s: %w", p.account, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != nil && p.last.AccessToken == tok.AccessToken {
		return tok, nil
	}

	p.metrics.RecordOAuthTokenRefresh(p.ctx, instrumentation.OAuthResultSuccess)
	if err := p.store.Save(p.account, tok); err != nil {
		p.logger.Warn("failed to persist refreshed token", logging.Account(p.account), logging.Err(err))
	} else {
		p.logger.Debug("persisted refreshed token", logging.Account(p.account))
	}
	p.last = tok
	return tok, nil
}
