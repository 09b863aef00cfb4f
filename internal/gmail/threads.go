package gmail

import (
	"context"
	"fmt"

	gmailapi "google.golang.org/api/gmail/v1"
)

// GetThread retrieves a thread with all its messages in the given format.
// For the metadata format, headers restricts the returned headers.
func (c *Client) GetThread(ctx context.Context, id, format string, headers ...string) (*gmailapi.Thread, error) {
	if format == "" {
		format = FormatFull
	}
	thread, err := call(ctx, c, "threads.get", resource("thread", id), func(ctx context.Context) (*gmailapi.Thread, error) {
		req := c.svc.Threads.Get(userID, id).Format(format).Context(ctx)
		if format == FormatMetadata && len(headers) > 0 {
			req = req.MetadataHeaders(headers...)
		}
		return req.Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", id, err)
	}
	return thread, nil
}

// ModifyThread adds and removes label IDs on every message of a thread.
func (c *Client) ModifyThread(ctx context.Context, id string, add, remove []string) (*gmailapi.Thread, error) {
	thread, err := call(ctx, c, "threads.modify", resource("thread", id), func(ctx context.Context) (*gmailapi.Thread, error) {
		return c.svc.Threads.Modify(userID, id, &gmailapi.ModifyThreadRequest{
			AddLabelIds:    add,
			RemoveLabelIds: remove,
		}).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to modify thread %s: %w", id, err)
	}
	return thread, nil
}

// ArchiveThread archives a thread by removing the INBOX label.
func (c *Client) ArchiveThread(ctx context.Context, id string) (*gmailapi.Thread, error) {
	return c.ModifyThread(ctx, id, nil, []string{LabelInbox})
}

// TrashThread moves every message of a thread to the trash.
func (c *Client) TrashThread(ctx context.Context, id string) (*gmailapi.Thread, error) {
	thread, err := call(ctx, c, "threads.trash", resource("thread", id), func(ctx context.Context) (*gmailapi.Thread, error) {
		return c.svc.Threads.Trash(userID, id).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to trash thread %s: %w", id, err)
	}
	return thread, nil
}
