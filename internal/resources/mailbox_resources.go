package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gmailcli/internal/server"
)

// Resource URIs.
const (
	ProfileURI = "gmail://profile"
	LabelsURI  = "gmail://labels"
)

const mimeTypeJSON = "application/json"

// RegisterMailboxResources registers the profile and label resources.
func RegisterMailboxResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	profileResource := mcp.NewResource(
		ProfileURI,
		"Mailbox Profile",
		mcp.WithResourceDescription("Address and message totals of the default Gmail account"),
		mcp.WithMIMEType(mimeTypeJSON),
	)
	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleProfile(ctx, request, sc)
	})

	labelsResource := mcp.NewResource(
		LabelsURI,
		"Gmail Labels",
		mcp.WithResourceDescription("System and user labels of the default Gmail account, with their IDs"),
		mcp.WithMIMEType(mimeTypeJSON),
	)
	s.AddResource(labelsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleLabels(ctx, request, sc)
	})

	return nil
}

type profileData struct {
	Account       string `json:"account"`
	Email         string `json:"email"`
	HistoryID     uint64 `json:"historyId"`
	MessagesTotal int64  `json:"messagesTotal"`
	ThreadsTotal  int64  `json:"threadsTotal"`
}

type labelData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func handleProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	account := sc.DefaultAccount()
	client, err := sc.GmailClientForAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	profile, err := client.GetProfile(ctx)
	if err != nil {
		return nil, err
	}

	return jsonContents(request.Params.URI, profileData{
		Account:       account,
		Email:         profile.EmailAddress,
		HistoryID:     profile.HistoryId,
		MessagesTotal: profile.MessagesTotal,
		ThreadsTotal:  profile.ThreadsTotal,
	})
}

func handleLabels(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	client, err := sc.GmailClientForAccount(ctx, sc.DefaultAccount())
	if err != nil {
		return nil, err
	}

	labels, err := client.ListLabels(ctx)
	if err != nil {
		return nil, err
	}

	data := make([]labelData, len(labels))
	for i, l := range labels {
		data[i] = labelData{ID: l.Id, Name: l.Name, Type: l.Type}
	}
	return jsonContents(request.Params.URI, data)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mimeTypeJSON,
			Text:     string(jsonData),
		},
	}, nil
}
