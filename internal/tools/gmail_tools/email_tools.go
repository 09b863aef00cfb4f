package gmail_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gmailcli/internal/batch"
	"github.com/teemow/gmailcli/internal/gmail"
	"github.com/teemow/gmailcli/internal/message"
	"github.com/teemow/gmailcli/internal/server"
	"github.com/teemow/gmailcli/internal/tools/common"
)

const attachmentsDescription = "File path (string) or array of paths to attach. Files are read from the " +
	"server's filesystem with the server's permissions. When the server has an attachment directory, " +
	"paths must lie inside it and relative paths are taken from it; otherwise any readable file can be attached."

// RegisterEmailTools registers the draft and send tools with the MCP server
func RegisterEmailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	createDraftTool := mcp.NewTool("gmail_create_draft",
		mcp.WithDescription("Create a Gmail draft, optionally as a reply that joins the original thread"),
		mcp.WithString("account",
			mcp.Description(accountDescription),
		),
		mcp.WithString("to",
			mcp.Description("Recipient email address(es), comma-separated. Defaults to the original sender for replies."),
		),
		mcp.WithString("subject",
			mcp.Description("Email subject. Defaults to 'Re: <original subject>' for replies."),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Email body content"),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithBoolean("isHTML",
			mcp.Description("Whether the body is HTML (default: false for plain text)"),
		),
		mcp.WithString("replyTo",
			mcp.Description("ID of the message this draft replies to"),
		),
		mcp.WithString("attachments",
			mcp.Description(attachmentsDescription),
		),
	)
	s.AddTool(createDraftTool, common.InstrumentedToolHandler("gmail_create_draft", "drafts.create", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateDraft(ctx, request, sc)
		}))

	sendEmailTool := mcp.NewTool("gmail_send_email",
		mcp.WithDescription("Send an email through Gmail"),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("account",
			mcp.Description(accountDescription),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Email body content"),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithBoolean("isHTML",
			mcp.Description("Whether the body is HTML (default: false for plain text)"),
		),
		mcp.WithString("attachments",
			mcp.Description(attachmentsDescription),
		),
	)
	s.AddTool(sendEmailTool, common.InstrumentedToolHandler("gmail_send_email", "messages.send", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSendEmail(ctx, request, sc)
		}))

	return nil
}

// composeFromArgs reads the message fields and loads the attachments, which
// must lie under attachDir when it is set. It touches neither the network nor
// the mailbox.
func composeFromArgs(args map[string]any, attachDir string) (gmail.Compose, error) {
	c := gmail.Compose{
		To:      common.SplitAddresses(common.StringArg(args, "to")),
		Cc:      common.SplitAddresses(common.StringArg(args, "cc")),
		Bcc:     common.SplitAddresses(common.StringArg(args, "bcc")),
		Subject: strings.TrimSpace(common.StringArg(args, "subject")),
		Body:    common.StringArg(args, "body"),
		HTML:    common.BoolArg(args, "isHTML"),
	}
	if c.Body == "" {
		return c, fmt.Errorf("body is required")
	}

	if raw, ok := args["attachments"]; ok && raw != nil {
		paths, err := batch.ParseStringOrArray(raw, "attachments")
		if err != nil {
			return c, err
		}
		paths, err = common.AttachmentPaths(attachDir, paths)
		if err != nil {
			return c, err
		}
		c.Attachments, err = message.LoadAttachments(paths)
		if err != nil {
			return c, err
		}
	}
	return c, nil
}

func handleCreateDraft(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	compose, err := composeFromArgs(args, sc.AttachmentDir())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	replyTo := strings.TrimSpace(common.StringArg(args, "replyTo"))
	if replyTo == "" {
		if err := message.Validate(compose.Headers()); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	client, errResult := getClient(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	if replyTo != "" {
		compose.Reply, err = client.GetReplyInfo(ctx, replyTo)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get original message: %v", err)), nil
		}
	}

	raw, threadID, err := compose.Encode()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if ti := common.InvocationFromContext(ctx); ti != nil {
		ti.WithRecipients(compose.Recipients()...)
	}

	draft, err := client.CreateDraft(ctx, raw, threadID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create draft: %v", err)), nil
	}

	out := map[string]string{"id": draft.Id}
	if draft.Message != nil {
		out["messageId"] = draft.Message.Id
		out["threadId"] = draft.Message.ThreadId
	}
	return jsonResult(out)
}

func handleSendEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	compose, err := composeFromArgs(args, sc.AttachmentDir())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, _, err := compose.Encode()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getClient(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}
	if ti := common.InvocationFromContext(ctx); ti != nil {
		ti.WithRecipients(compose.Recipients()...)
	}

	msg, err := client.SendRawMessage(ctx, raw, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to send email: %v", err)), nil
	}
	return jsonResult(map[string]string{"id": msg.Id, "threadId": msg.ThreadId})
}
