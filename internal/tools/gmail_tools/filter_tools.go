package gmail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gmailcli/internal/server"
	"github.com/teemow/gmailcli/internal/tools/common"
)

// RegisterLabelTools registers label-related tools with the MCP server
func RegisterLabelTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listLabelsTool := mcp.NewTool("gmail_list_labels",
		mcp.WithDescription("List all Gmail labels with their IDs. Use the IDs with filters and label changes."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("account",
			mcp.Description(accountDescription),
		),
	)
	s.AddTool(listLabelsTool, common.InstrumentedToolHandler("gmail_list_labels", "labels.list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListLabels(ctx, request, sc)
		}))

	return nil
}

// RegisterFilterTools registers filter-related tools with the MCP server
func RegisterFilterTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listFiltersTool := mcp.NewTool("gmail_list_filters",
		mcp.WithDescription("List all existing Gmail filters for the account"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("account",
			mcp.Description(accountDescription),
		),
	)
	s.AddTool(listFiltersTool, common.InstrumentedToolHandler("gmail_list_filters", "settings.filters.list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListFilters(ctx, request, sc)
		}))

	return nil
}

type labelOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func handleListLabels(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	client, errResult := getClient(ctx, sc, request.GetArguments())
	if errResult != nil {
		return errResult, nil
	}

	labels, err := client.ListLabels(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list labels: %v", err)), nil
	}

	out := make([]labelOutput, len(labels))
	for i, l := range labels {
		out[i] = labelOutput{ID: l.Id, Name: l.Name, Type: l.Type}
	}
	return jsonResult(out)
}

func handleListFilters(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	client, errResult := getClient(ctx, sc, request.GetArguments())
	if errResult != nil {
		return errResult, nil
	}

	filters, err := client.ListFilters(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list filters: %v", err)), nil
	}
	return jsonResult(filters)
}
