package gmail

import (
	"context"
	"fmt"

	gmailapi "google.golang.org/api/gmail/v1"
)

// ListLabels lists all labels of the mailbox, system and user labels alike.
func (c *Client) ListLabels(ctx context.Context) ([]*gmailapi.Label, error) {
	resp, err := call(ctx, c, "labels.list", nil, func(ctx context.Context) (*gmailapi.ListLabelsResponse, error) {
		return c.svc.Labels.List(userID).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return resp.Labels, nil
}

// CreateLabel creates a user label that is visible in the label list and
// in the message list.
func (c *Client) CreateLabel(ctx context.Context, name string) (*gmailapi.Label, error) {
	if name == "" {
		return nil, fmt.Errorf("label name is required")
	}
	label, err := call(ctx, c, "labels.create", resource("label", name), func(ctx context.Context) (*gmailapi.Label, error) {
		return c.svc.Labels.Create(userID, &gmailapi.Label{
			Name:                  name,
			LabelListVisibility:   "labelShow",
			MessageListVisibility: "show",
		}).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create label %q: %w", name, err)
	}
	return label, nil
}

// DeleteLabel deletes a user label. Messages keep existing without it.
func (c *Client) DeleteLabel(ctx context.Context, id string) error {
	err := callNoResult(ctx, c, "labels.delete", resource("label", id), func(ctx context.Context) error {
		return c.svc.Labels.Delete(userID, id).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("failed to delete label %s: %w", id, err)
	}
	return nil
}
