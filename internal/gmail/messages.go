package gmail

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	gmailapi "google.golang.org/api/gmail/v1"
)

// Message formats accepted by the get calls.
const (
	FormatFull     = "full"
	FormatMetadata = "metadata"
	FormatMinimal  = "minimal"
)

// System label IDs.
const (
	LabelInbox   = "INBOX"
	LabelUnread  = "UNREAD"
	LabelStarred = "STARRED"
	LabelSpam    = "SPAM"
	LabelTrash   = "TRASH"
	LabelSent    = "SENT"
	LabelDraft   = "DRAFT"
)

// SummaryHeaders are the headers fetched for list views.
var SummaryHeaders = []string{"From", "To", "Subject", "Date"}

// maxPageSize is the largest page the list endpoints return.
const maxPageSize = 500

// ListMessages returns up to limit message references (id and threadId)
// matching query, following page tokens as needed.
func (c *Client) ListMessages(ctx context.Context, query string, limit int64) ([]*gmailapi.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	var all []*gmailapi.Message
	pageToken := ""
	for {
		remaining := limit - int64(len(all))
		pageSize := min(remaining, maxPageSize)

		res, err := call(ctx, c, "messages.list", nil, func(ctx context.Context) (*gmailapi.ListMessagesResponse, error) {
			req := c.svc.Messages.List(userID).MaxResults(pageSize).Context(ctx)
			if query != "" {
				req = req.Q(query)
			}
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			return req.Do()
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		all = append(all, res.Messages...)
		if res.NextPageToken == "" || int64(len(all)) >= limit {
			break
		}
		pageToken = res.NextPageToken
	}

	if int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GetMessage retrieves a message in the given format. For the metadata
// format, headers restricts the returned headers.
func (c *Client) GetMessage(ctx context.Context, id, format string, headers ...string) (*gmailapi.Message, error) {
	if id == "" {
		return nil, fmt.Errorf("message id is required")
	}
	if format == "" {
		format = FormatFull
	}
	msg, err := call(ctx, c, "messages.get", resource("message", id), func(ctx context.Context) (*gmailapi.Message, error) {
		req := c.svc.Messages.Get(userID, id).Format(format).Context(ctx)
		if format == FormatMetadata && len(headers) > 0 {
			req = req.MetadataHeaders(headers...)
		}
		return req.Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return msg, nil
}

// GetMessages fetches the messages with the given IDs in parallel, bounded
// by the client's concurrency. The result keeps the order of ids. The first
// failure cancels the remaining fetches.
func (c *Client) GetMessages(ctx context.Context, ids []string, format string, headers ...string) ([]*gmailapi.Message, error) {
	out := make([]*gmailapi.Message, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			msg, err := c.GetMessage(ctx, id, format, headers...)
			if err != nil {
				return err
			}
			out[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SendRawMessage sends a base64url encoded RFC 822 message. A non-empty
// threadID places it into an existing thread.
func (c *Client) SendRawMessage(ctx context.Context, raw, threadID string) (*gmailapi.Message, error) {
	msg, err := call(ctx, c, "messages.send", resource("thread", threadID), func(ctx context.Context) (*gmailapi.Message, error) {
		return c.svc.Messages.Send(userID, &gmailapi.Message{Raw: raw, ThreadId: threadID}).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return msg, nil
}

// ModifyMessage adds and removes label IDs on a message.
func (c *Client) ModifyMessage(ctx context.Context, id string, add, remove []string) (*gmailapi.Message, error) {
	msg, err := call(ctx, c, "messages.modify", resource("message", id), func(ctx context.Context) (*gmailapi.Message, error) {
		return c.svc.Messages.Modify(userID, id, &gmailapi.ModifyMessageRequest{
			AddLabelIds:    add,
			RemoveLabelIds: remove,
		}).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to modify message %s: %w", id, err)
	}
	return msg, nil
}

// ArchiveMessage removes a message from the inbox.
func (c *Client) ArchiveMessage(ctx context.Context, id string) (*gmailapi.Message, error) {
	return c.ModifyMessage(ctx, id, nil, []string{LabelInbox})
}

// TrashMessage moves a message to the trash.
func (c *Client) TrashMessage(ctx context.Context, id string) (*gmailapi.Message, error) {
	msg, err := call(ctx, c, "messages.trash", resource("message", id), func(ctx context.Context) (*gmailapi.Message, error) {
		return c.svc.Messages.Trash(userID, id).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to trash message %s: %w", id, err)
	}
	return msg, nil
}

// UntrashMessage moves a message out of the trash.
func (c *Client) UntrashMessage(ctx context.Context, id string) (*gmailapi.Message, error) {
	msg, err := call(ctx, c, "messages.untrash", resource("message", id), func(ctx context.Context) (*gmailapi.Message, error) {
		return c.svc.Messages.Untrash(userID, id).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to untrash message %s: %w", id, err)
	}
	return msg, nil
}

// DeleteMessage permanently deletes a message. This needs the full mailbox
// scope; without it the API answers 403, see IsForbidden.
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	err := callNoResult(ctx, c, "messages.delete", resource("message", id), func(ctx context.Context) error {
		return c.svc.Messages.Delete(userID, id).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("failed to delete message %s: %w", id, err)
	}
	return nil
}
