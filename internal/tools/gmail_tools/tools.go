package gmail_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gmailcli/internal/gmail"
	"github.com/teemow/gmailcli/internal/google"
	"github.com/teemow/gmailcli/internal/server"
	"github.com/teemow/gmailcli/internal/tools/common"
)

const accountDescription = "Account name (default: the server's account). Used to manage multiple Google accounts."

// RegisterGmailTools registers all Gmail-related tools with the MCP server.
// Tools that change the mailbox are only registered when readOnly is false.
func RegisterGmailTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := RegisterMessageTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register message tools: %w", err)
	}

	if err := RegisterAttachmentTools(s, sc); err != nil {
		return fmt.Errorf("failed to register attachment tools: %w", err)
	}

	if err := RegisterLabelTools(s, sc); err != nil {
		return fmt.Errorf("failed to register label tools: %w", err)
	}

	if err := RegisterFilterTools(s, sc); err != nil {
		return fmt.Errorf("failed to register filter tools: %w", err)
	}

	if readOnly {
		return nil
	}

	if err := RegisterEmailTools(s, sc); err != nil {
		return fmt.Errorf("failed to register email tools: %w", err)
	}

	return nil
}

// getClient returns the Gmail client for the account named in args.
func getClient(ctx context.Context, sc *server.ServerContext, args map[string]any) (*gmail.Client, *mcp.CallToolResult) {
	account := common.GetAccountFromArgs(sc, args)
	client, err := sc.GmailClientForAccount(ctx, account)
	if err == nil {
		return client, nil
	}
	if errors.Is(err, google.ErrNoToken) {
		return nil, mcp.NewToolResultError(fmt.Sprintf(`Google OAuth token not found for account "%s". To authorize access run:

    gmailcli auth login --account %s

Note: You only need to authorize once. The tokens will be automatically refreshed.`, account, account))
	}
	return nil, mcp.NewToolResultError(fmt.Sprintf("Failed to create Gmail client for account %s: %v", account, err))
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
