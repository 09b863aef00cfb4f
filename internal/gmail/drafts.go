package gmail

import (
	"context"
	"fmt"

	gmailapi "google.golang.org/api/gmail/v1"
)

// CreateDraft stores a base64url encoded message as a draft. A non-empty
// threadID attaches the draft to an existing conversation.
func (c *Client) CreateDraft(ctx context.Context, raw, threadID string) (*gmailapi.Draft, error) {
	draft, err := call(ctx, c, "drafts.create", resource("thread", threadID), func(ctx context.Context) (*gmailapi.Draft, error) {
		return c.svc.Drafts.Create(userID, &gmailapi.Draft{
			Message: &gmailapi.Message{Raw: raw, ThreadId: threadID},
		}).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}
	return draft, nil
}

// ListDrafts returns up to limit draft references.
func (c *Client) ListDrafts(ctx context.Context, limit int64) ([]*gmailapi.Draft, error) {
	var all []*gmailapi.Draft
	pageToken := ""
	for {
		res, err := call(ctx, c, "drafts.list", nil, func(ctx context.Context) (*gmailapi.ListDraftsResponse, error) {
			req := c.svc.Drafts.List(userID).Context(ctx)
			if limit > 0 {
				req = req.MaxResults(min(limit-int64(len(all)), maxPageSize))
			}
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			return req.Do()
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list drafts: %w", err)
		}

		all = append(all, res.Drafts...)
		if res.NextPageToken == "" || (limit > 0 && int64(len(all)) >= limit) {
			break
		}
		pageToken = res.NextPageToken
	}

	if limit > 0 && int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GetDraft retrieves a draft with its message in the given format.
func (c *Client) GetDraft(ctx context.Context, id, format string) (*gmailapi.Draft, error) {
	if format == "" {
		format = FormatFull
	}
	draft, err := call(ctx, c, "drafts.get", resource("draft", id), func(ctx context.Context) (*gmailapi.Draft, error) {
		return c.svc.Drafts.Get(userID, id).Format(format).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get draft %s: %w", id, err)
	}
	return draft, nil
}

// SendDraft sends an existing draft and returns the sent message.
func (c *Client) SendDraft(ctx context.Context, id string) (*gmailapi.Message, error) {
	msg, err := call(ctx, c, "drafts.send", resource("draft", id), func(ctx context.Context) (*gmailapi.Message, error) {
		return c.svc.Drafts.Send(userID, &gmailapi.Draft{Id: id}).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send draft %s: %w", id, err)
	}
	return msg, nil
}

// DeleteDraft permanently deletes a draft.
func (c *Client) DeleteDraft(ctx context.Context, id string) error {
	err := callNoResult(ctx, c, "drafts.delete", resource("draft", id), func(ctx context.Context) error {
		return c.svc.Drafts.Delete(userID, id).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", id, err)
	}
	return nil
}
