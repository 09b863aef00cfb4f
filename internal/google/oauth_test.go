package google

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{"valid default", "default", false},
		{"valid work", "work", false},
		{"valid with hyphen", "work-email", false},
		{"valid with underscore", "personal_email", false},
		{"valid alphanumeric", "account123", false},
		{"empty", "", true},
		{"with spaces", "my account", true},
		{"with special chars", "account@work", true},
		{"with slash", "work/personal", true},
		{"with dot", "work.email", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAccountName(tt.account)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAccountName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenStore_Path(t *testing.T) {
	store := NewTokenStore(t.TempDir())

	tests := []struct {
		account string
		want    string
	}{
		{"default", "google-default.token"},
		{"work", "google-work.token"},
		{"personal", "google-personal.token"},
	}

	for _, tt := range tests {
		t.Run(tt.account, func(t *testing.T) {
			got, err := store.Path(tt.account)
			require.NoError(t, err)
			assert.Equal(t, tt.want, filepath.Base(got))
			assert.Equal(t, store.Dir(), filepath.Dir(got))
		})
	}

	_, err := store.Path("../escape")
	assert.Error(t, err)
}

func TestTokenStore_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tokens")
	store := NewTokenStore(dir)

	assert.False(t, store.Has("work"))
	_, err := store.Load("work")
	assert.ErrorIs(t, err, ErrNoToken)

	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save("work", tok))
	assert.True(t, store.Has("work"))

	path, err := store.Path("work")
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())

	loaded, err := store.Load("work")
	require.NoError(t, err)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.True(t, tok.Expiry.Equal(loaded.Expiry))

	require.NoError(t, store.Delete("work"))
	assert.False(t, store.Has("work"))
	require.NoError(t, store.Delete("work"))
}

func TestTokenStore_InvalidFile(t *testing.T) {
	store := NewTokenStore(t.TempDir())
	path, err := store.Path("default")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))
	_, err = store.Load("default")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))
	_, err = store.Load("default")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTokenStore_HasInvalidAccount(t *testing.T) {
	store := NewTokenStore(t.TempDir())
	assert.False(t, store.Has("invalid account"))
	assert.False(t, store.Has(""))
}

func TestScopes(t *testing.T) {
	assert.Equal(t, DefaultOAuthScopes, Scopes(false))
	assert.NotContains(t, Scopes(false), FullMailboxScope)

	full := Scopes(true)
	assert.Len(t, full, len(DefaultOAuthScopes)+1)
	assert.Equal(t, FullMailboxScope, full[len(full)-1])
	assert.Len(t, DefaultOAuthScopes, 5, "Scopes must not modify the defaults")
}

func writeCredentials(t *testing.T, tokenURL string) string {
	t.Helper()
	creds := map[string]any{
		"installed": map[string]any{
			"client_id":     "client-id.apps.googleusercontent.com",
			"client_secret": "secret",
			"auth_uri":      "https://accounts.google.com/o/oauth2/auth",
			"token_uri":     tokenURL,
			"redirect_uris": []string{"http://localhost"},
		},
	}
	data, err := json.Marshal(creds)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeCredentials(t, "https://oauth2.googleapis.com/token")

	conf, err := LoadConfig(path, Scopes(false))
	require.NoError(t, err)
	assert.Equal(t, "client-id.apps.googleusercontent.com", conf.ClientID)
	assert.Equal(t, DefaultOAuthScopes, conf.Scopes)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "Google Cloud Console")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"web":{}}`), 0600))
	_, err = LoadConfig(bad, nil)
	assert.Error(t, err)
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		wantCode int
		wantRes  bool
		wantErr  bool
		wantAuth string
	}{
		{
			name:     "success",
			query:    url.Values{"state": {"s1"}, "code": {"abc"}},
			wantCode: http.StatusOK,
			wantRes:  true,
			wantAuth: "abc",
		},
		{
			name:     "denied",
			query:    url.Values{"state": {"s1"}, "error": {"access_denied"}},
			wantCode: http.StatusBadRequest,
			wantRes:  true,
			wantErr:  true,
		},
		{
			name:     "state mismatch",
			query:    url.Values{"state": {"other"}, "code": {"abc"}},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing code",
			query:    url.Values{"state": {"s1"}},
			wantCode: http.StatusBadRequest,
			wantRes:  true,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make(chan callbackResult, 1)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query.Encode(), nil)

			callbackHandler("s1", results).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)

			select {
			case res := <-results:
				require.True(t, tt.wantRes, "unexpected result")
				assert.Equal(t, tt.wantErr, res.err != nil)
				assert.Equal(t, tt.wantAuth, res.code)
			default:
				assert.False(t, tt.wantRes, "expected a result")
			}
		})
	}
}

func newTokenServer(t *testing.T, verifierSeen *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if verifierSeen != nil {
			*verifierSeen = r.PostForm.Get("code_verifier")
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			_, _ = w.Write([]byte(`{"access_token":"fresh","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`))
		case "refresh_token":
			_, _ = w.Write([]byte(`{"access_token":"refreshed","token_type":"Bearer","expires_in":3600}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthenticator_Login(t *testing.T) {
	var verifier string
	tokenSrv := newTokenServer(t, &verifier)
	conf, err := LoadConfig(writeCredentials(t, tokenSrv.URL), Scopes(false))
	require.NoError(t, err)
	store := NewTokenStore(t.TempDir())
	auth := NewAuthenticator(conf, store)

	prompt := func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		if q.Get("code_challenge_method") != "S256" || q.Get("access_type") != "offline" {
			return errors.New("consent URL is missing PKCE or offline access")
		}
		callback := q.Get("redirect_uri") + "?" + url.Values{"state": {q.Get("state")}, "code": {"auth-code"}}.Encode()
		resp, err := http.Get(callback)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tok, err := auth.Login(ctx, "work", prompt)
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.NotEmpty(t, verifier)

	stored, err := store.Load("work")
	require.NoError(t, err)
	assert.Equal(t, "refresh", stored.RefreshToken)
}

func TestAuthenticator_LoginInvalidAccount(t *testing.T) {
	auth := NewAuthenticator(&oauth2.Config{}, NewTokenStore(t.TempDir()))
	_, err := auth.Login(context.Background(), "bad name", func(string) error {
		t.Fatal("prompt must not be called")
		return nil
	})
	assert.Error(t, err)
}

func TestAuthenticator_TokenSourcePersistsRefresh(t *testing.T) {
	tokenSrv := newTokenServer(t, nil)
	conf, err := LoadConfig(writeCredentials(t, tokenSrv.URL), Scopes(false))
	require.NoError(t, err)
	store := NewTokenStore(t.TempDir())
	auth := NewAuthenticator(conf, store)

	_, err = auth.TokenSource(context.Background(), "work")
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.Save("work", &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	ts, err := auth.TokenSource(context.Background(), "work")
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "refreshed", tok.AccessToken)

	stored, err := store.Load("work")
	require.NoError(t, err)
	assert.Equal(t, "refreshed", stored.AccessToken)
	assert.Equal(t, "refresh", stored.RefreshToken)
}

type countingStore struct {
	tokens []*oauth2.Token
	i      int
}

func (c *countingStore) Token() (*oauth2.Token, error) {
	tok := c.tokens[c.i]
	if c.i < len(c.tokens)-1 {
		c.i++
	}
	return tok, nil
}

func TestPersistingTokenSource_SavesOnlyNewTokens(t *testing.T) {
	store := NewTokenStore(t.TempDir())
	initial := &oauth2.Token{AccessToken: "a1", RefreshToken: "r"}
	base := &countingStore{tokens: []*oauth2.Token{initial, initial, {AccessToken: "a2", RefreshToken: "r"}}}

	ts := &persistingTokenSource{
		ctx:     context.Background(),
		base:    base,
		store:   store,
		account: "default",
		last:    initial,
		logger:  discardLogger(),
	}

	for range 2 {
		_, err := ts.Token()
		require.NoError(t, err)
		assert.False(t, store.Has("default"))
	}

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "a2", tok.AccessToken)
	assert.True(t, store.Has("default"))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
