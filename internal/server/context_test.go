package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmailcli/internal/gmail"
)

func newFactory(t *testing.T, calls *int, failFor string) ClientFactory {
	t.Helper()
	return func(ctx context.Context, account string) (*gmail.Client, error) {
		*calls++
		if account == failFor {
			return nil, errors.New("no token")
		}
		return gmail.NewClient(ctx, http.DefaultClient, gmail.WithAccount(account))
	}
}

func TestServerContext_GmailClientForAccount(t *testing.T) {
	calls := 0
	sc := NewServerContext(context.Background(), newFactory(t, &calls, "broken"))

	first, err := sc.GmailClientForAccount(context.Background(), "work")
	require.NoError(t, err)
	second, err := sc.GmailClientForAccount(context.Background(), "work")
	require.NoError(t, err)

	assert.Same(t, first, second, "clients are cached per account")
	assert.Equal(t, "work", first.Account())
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, sc.Accounts())

	_, err = sc.GmailClientForAccount(context.Background(), "broken")
	require.Error(t, err)
	_, err = sc.GmailClientForAccount(context.Background(), "broken")
	require.Error(t, err)
	assert.Equal(t, 3, calls, "failures are not cached")
}

func TestServerContext_SetGmailClientForAccount(t *testing.T) {
	sc := NewServerContext(context.Background(), nil)

	_, err := sc.GmailClientForAccount(context.Background(), "default")
	require.Error(t, err, "no factory and no client")

	client, err := gmail.NewClient(context.Background(), http.DefaultClient)
	require.NoError(t, err)
	sc.SetGmailClientForAccount("default", client)

	got, err := sc.GmailClientForAccount(context.Background(), "default")
	require.NoError(t, err)
	assert.Same(t, client, got)
}

func TestServerContext_Shutdown(t *testing.T) {
	calls := 0
	sc := NewServerContext(context.Background(), newFactory(t, &calls, ""))

	require.NoError(t, sc.Shutdown())
	require.NoError(t, sc.Shutdown(), "shutdown is idempotent")
	assert.True(t, sc.IsShutdown())
	assert.ErrorIs(t, sc.Context().Err(), context.Canceled)

	_, err := sc.GmailClientForAccount(context.Background(), "default")
	assert.ErrorIs(t, err, ErrShutdown)
	assert.Zero(t, calls)
}

func TestServerContext_Limits(t *testing.T) {
	sc := NewServerContext(context.Background(), nil)
	assert.Equal(t, DefaultLimits(), sc.Limits())

	sc = NewServerContext(context.Background(), nil, WithLimits(Limits{ReadLimit: 5, Concurrency: -1}))
	assert.Equal(t, int64(5), sc.Limits().ReadLimit)
	assert.Equal(t, DefaultLimits().BatchLimit, sc.Limits().BatchLimit)
	assert.Equal(t, DefaultLimits().Concurrency, sc.Limits().Concurrency)
}

func TestHealthChecker(t *testing.T) {
	sc := NewServerContext(context.Background(), nil)
	client, err := gmail.NewClient(context.Background(), http.DefaultClient)
	require.NoError(t, err)
	sc.SetGmailClientForAccount("default", client)
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	var detailed DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detailed))
	assert.Equal(t, healthStatusOK, detailed.Status)
	assert.Equal(t, 1, detailed.Accounts)

	h.SetReady(false)
	rec = httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.SetReady(true)
	require.NoError(t, sc.Shutdown())
	rec = httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "liveness ignores shutdown")
}

func TestHealthChecker_ReadinessChecks(t *testing.T) {
	h := NewHealthChecker(nil)
	tokenStored := false
	h.AddCheck("credentials", func(context.Context) error { return nil })
	h.AddCheck("token", func(context.Context) error {
		if !tokenStored {
			return errors.New(`no stored token for account "default"`)
		}
		return nil
	})

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusNotReady, resp.Status)
	assert.Equal(t, healthStatusOK, resp.Checks["credentials"])
	assert.Equal(t, `no stored token for account "default"`, resp.Checks["token"])

	rec = httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "liveness ignores readiness checks")

	tokenStored = true
	rec = httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerContext_DefaultAccount(t *testing.T) {
	assert.Equal(t, "default", NewServerContext(context.Background(), nil).DefaultAccount())
	assert.Equal(t, "work", NewServerContext(context.Background(), nil, WithDefaultAccount("work")).DefaultAccount())
}
