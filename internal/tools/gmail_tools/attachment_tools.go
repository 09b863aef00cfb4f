package gmail_tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gmailcli/internal/server"
	"github.com/teemow/gmailcli/internal/tools/common"
)

// RegisterAttachmentTools registers attachment-related tools with the MCP server
func RegisterAttachmentTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listAttachmentsTool := mcp.NewTool("gmail_list_attachments",
		mcp.WithDescription("List all attachments in a Gmail message"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("account",
			mcp.Description(accountDescription),
		),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the Gmail message"),
		),
	)
	s.AddTool(listAttachmentsTool, common.InstrumentedToolHandler("gmail_list_attachments", "messages.get", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListAttachments(ctx, request, sc)
		}))

	getAttachmentTool := mcp.NewTool("gmail_get_attachment",
		mcp.WithDescription("Get the content of an attachment"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("account",
			mcp.Description(accountDescription),
		),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the Gmail message"),
		),
		mcp.WithString("attachmentId",
			mcp.Required(),
			mcp.Description("The ID of the attachment"),
		),
		mcp.WithString("encoding",
			mcp.Description("Encoding format: 'base64' (default) or 'text'"),
		),
	)
	s.AddTool(getAttachmentTool, common.InstrumentedToolHandler("gmail_get_attachment", "messages.attachments.get", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAttachment(ctx, request, sc)
		}))

	return nil
}

type attachmentOutput struct {
	AttachmentID string `json:"attachmentId"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	SizeHuman    string `json:"sizeHuman"`
}

func handleListAttachments(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, err := common.RequiredStringArg(args, "messageId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getClient(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	attachments, err := client.ListAttachments(ctx, messageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list attachments: %v", err)), nil
	}

	outputs := make([]attachmentOutput, len(attachments))
	for i, att := range attachments {
		outputs[i] = attachmentOutput{
			AttachmentID: att.AttachmentID,
			Filename:     att.Filename,
			MimeType:     att.MimeType,
			Size:         att.Size,
			SizeHuman:    formatSize(att.Size),
		}
	}
	return jsonResult(outputs)
}

func handleGetAttachment(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, err := common.RequiredStringArg(args, "messageId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	attachmentID, err := common.RequiredStringArg(args, "attachmentId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	encoding := "base64"
	if v := common.StringArg(args, "encoding"); v != "" {
		encoding = v
	}
	if encoding != "base64" && encoding != "text" {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid encoding '%s', must be 'base64' or 'text'", encoding)), nil
	}

	client, errResult := getClient(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	data, err := client.GetAttachment(ctx, messageID, attachmentID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get attachment: %v", err)), nil
	}

	if encoding == "text" {
		if !utf8.Valid(data) {
			return mcp.NewToolResultError("attachment is not valid UTF-8 text, use encoding 'base64'"), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Attachment content (text, %d bytes):\n%s", len(data), data)), nil
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	return mcp.NewToolResultText(fmt.Sprintf("Attachment content (base64, %d bytes):\n%s", len(data), encoded)), nil
}

// formatSize formats a byte size into human-readable format
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
