package gmail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gmailcli/internal/batch"
	"github.com/teemow/gmailcli/internal/gmail"
	"github.com/teemow/gmailcli/internal/server"
	"github.com/teemow/gmailcli/internal/tools/common"
)

// RegisterMessageTools registers the message read tools and, unless
// readOnly, the archive and trash tools.
func RegisterMessageTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	readMessagesTool := mcp.NewTool("gmail_read_messages",
		mcp.WithDescription("List messages matching a Gmail search query with sender, subject, date and snippet"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("account",
			mcp.Description(accountDescription),
		),
		mcp.WithString("query",
			mcp.Description("Gmail search query (default: 'in:inbox', e.g. 'is:unread from:user@example.com')"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of messages to return (default: the server's read limit)"),
		),
		mcp.WithBoolean("full",
			mcp.Description("Include the plain-text body, labels and attachments of every message"),
		),
	)
	s.AddTool(readMessagesTool, common.InstrumentedToolHandler("gmail_read_messages", "messages.list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleReadMessages(ctx, request, sc)
		}))

	getMessageTool := mcp.NewTool("gmail_get_message",
		mcp.WithDescription("Get one message with its plain-text body, labels and attachment list"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("account",
			mcp.Description(accountDescription),
		),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the Gmail message"),
		),
	)
	s.AddTool(getMessageTool, common.InstrumentedToolHandler("gmail_get_message", "messages.get", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetMessage(ctx, request, sc)
		}))

	getThreadTool := mcp.NewTool("gmail_get_thread",
		mcp.WithDescription("Get all messages of a Gmail thread"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("account",
			mcp.Description(accountDescription),
		),
		mcp.WithString("threadId",
			mcp.Required(),
			mcp.Description("The ID of the thread"),
		),
		mcp.WithBoolean("full",
			mcp.Description("Include the plain-text body, labels and attachments of every message"),
		),
	)
	s.AddTool(getThreadTool, common.InstrumentedToolHandler("gmail_get_thread", "threads.get", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetThread(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	archiveTool := mcp.NewTool("gmail_archive_messages",
		mcp.WithDescription("Archive one or more messages by removing them from the inbox"),
		mcp.WithString("account",
			mcp.Description(accountDescription),
		),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs to archive"),
		),
	)
	s.AddTool(archiveTool, common.InstrumentedToolHandler("gmail_archive_messages", "messages.modify", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleBatch(ctx, request, sc, "Archived", (*gmail.Client).ArchiveMessage)
		}))

	trashTool := mcp.NewTool("gmail_trash_messages",
		mcp.WithDescription("Move one or more messages to the trash"),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("account",
			mcp.Description(accountDescription),
		),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs to trash"),
		),
	)
	s.AddTool(trashTool, common.InstrumentedToolHandler("gmail_trash_messages", "messages.trash", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleBatch(ctx, request, sc, "Trashed", (*gmail.Client).TrashMessage)
		}))

	return nil
}

func handleReadMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query := common.StringArg(args, "query")
	if query == "" {
		query = "in:" + gmail.LabelInbox
	}
	limits := sc.Limits()
	maxResults := common.LimitArg(args, "maxResults", limits.ReadLimit, limits.BatchLimit)
	full := common.BoolArg(args, "full")

	client, errResult := getClient(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	refs, err := client.ListMessages(ctx, query, maxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list messages: %v", err)), nil
	}
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.Id
	}

	if full {
		msgs, err := client.GetMessages(ctx, ids, gmail.FormatFull)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get messages: %v", err)), nil
		}
		details := make([]gmail.Detail, len(msgs))
		for i, m := range msgs {
			details[i] = gmail.NewDetail(m)
		}
		return jsonResult(details)
	}

	msgs, err := client.GetMessages(ctx, ids, gmail.FormatMetadata, gmail.SummaryHeaders...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get messages: %v", err)), nil
	}
	summaries := make([]gmail.Summary, len(msgs))
	for i, m := range msgs {
		summaries[i] = gmail.NewSummary(m)
	}
	return jsonResult(summaries)
}

func handleGetMessage(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, err := common.RequiredStringArg(args, "messageId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getClient(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	msg, err := client.GetMessage(ctx, messageID, gmail.FormatFull)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get message: %v", err)), nil
	}
	return jsonResult(gmail.NewDetail(msg))
}

type threadOutput struct {
	ID       string `json:"id"`
	Messages any    `json:"messages"`
}

func handleGetThread(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	threadID, err := common.RequiredStringArg(args, "threadId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	full := common.BoolArg(args, "full")

	client, errResult := getClient(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	format, headers := gmail.FormatMetadata, gmail.SummaryHeaders
	if full {
		format, headers = gmail.FormatFull, nil
	}
	thread, err := client.GetThread(ctx, threadID, format, headers...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get thread: %v", err)), nil
	}

	out := threadOutput{ID: thread.Id}
	if full {
		details := make([]gmail.Detail, len(thread.Messages))
		for i, m := range thread.Messages {
			details[i] = gmail.NewDetail(m)
		}
		out.Messages = details
	} else {
		summaries := make([]gmail.Summary, len(thread.Messages))
		for i, m := range thread.Messages {
			summaries[i] = gmail.NewSummary(m)
		}
		out.Messages = summaries
	}
	return jsonResult(out)
}

// handleBatch applies op to every message ID of the request and reports
// per-message results. Individual failures do not fail the call.
func handleBatch[T any](ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, verb string, op func(*gmail.Client, context.Context, string) (T, error)) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageIDs, err := batch.ParseStringOrArray(args["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limits := sc.Limits()
	if int64(len(messageIDs)) > limits.BatchLimit {
		return mcp.NewToolResultError(fmt.Sprintf("too many messageIds: %d, at most %d per call", len(messageIDs), limits.BatchLimit)), nil
	}

	client, errResult := getClient(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	results := batch.Process(ctx, messageIDs, limits.Concurrency, func(ctx context.Context, id string) (string, error) {
		if _, err := op(client, ctx, id); err != nil {
			return "", err
		}
		return verb + " message " + id, nil
	})

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}
