package resources

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmailcli/internal/gmail"
	"github.com/teemow/gmailcli/internal/gmail/gmailtest"
	"github.com/teemow/gmailcli/internal/server"
)

func newTestContext(t *testing.T) (*server.ServerContext, *gmailtest.Server) {
	t.Helper()

	srv := gmailtest.New(t)
	client, err := gmail.NewClient(context.Background(), srv.Client(),
		gmail.WithEndpoint(srv.Endpoint()),
		gmail.WithRateLimit(0, 0),
		gmail.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	require.NoError(t, err)

	sc := server.NewServerContext(context.Background(), nil, server.WithDefaultAccount("work"))
	t.Cleanup(func() { _ = sc.Shutdown() })
	sc.SetGmailClientForAccount("work", client)
	return sc, srv
}

func readRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: uri}}
}

func textOf(t *testing.T, contents []mcp.ResourceContents) *mcp.TextResourceContents {
	t.Helper()
	require.Len(t, contents, 1)
	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok, "expected text contents")
	assert.Equal(t, mimeTypeJSON, text.MIMEType)
	return text
}

func TestRegisterMailboxResources(t *testing.T) {
	sc, _ := newTestContext(t)
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithResourceCapabilities(false, false))
	assert.NoError(t, RegisterMailboxResources(s, sc))
}

func TestHandleProfile(t *testing.T) {
	sc, srv := newTestContext(t)
	srv.AddMessage(gmailtest.TextMessage("m1", "alice@example.com", "Hello", "hi", "INBOX"))

	contents, err := handleProfile(context.Background(), readRequest(ProfileURI), sc)
	require.NoError(t, err)

	text := textOf(t, contents)
	assert.Equal(t, ProfileURI, text.URI)

	var profile profileData
	require.NoError(t, json.Unmarshal([]byte(text.Text), &profile))
	assert.Equal(t, profileData{
		Account:       "work",
		Email:         gmailtest.ProfileAddress,
		HistoryID:     1,
		MessagesTotal: 1,
		ThreadsTotal:  1,
	}, profile)
}

func TestHandleLabels(t *testing.T) {
	sc, _ := newTestContext(t)

	contents, err := handleLabels(context.Background(), readRequest(LabelsURI), sc)
	require.NoError(t, err)

	var labels []labelData
	require.NoError(t, json.Unmarshal([]byte(textOf(t, contents).Text), &labels))
	assert.Len(t, labels, len(gmailtest.SystemLabels))
	assert.Contains(t, labels, labelData{ID: "INBOX", Name: "INBOX", Type: "system"})
}

func TestHandlers_PropagateErrors(t *testing.T) {
	sc, srv := newTestContext(t)
	srv.Fail("labels.list", http.StatusForbidden)

	_, err := handleLabels(context.Background(), readRequest(LabelsURI), sc)
	assert.Error(t, err)

	noClient := server.NewServerContext(context.Background(), nil)
	t.Cleanup(func() { _ = noClient.Shutdown() })
	_, err = handleProfile(context.Background(), readRequest(ProfileURI), noClient)
	assert.Error(t, err)
}
