package gmail

import (
	"context"
	"fmt"

	gmailapi "google.golang.org/api/gmail/v1"
)

// GetProfile returns the mailbox address with its message and thread totals.
func (c *Client) GetProfile(ctx context.Context) (*gmailapi.Profile, error) {
	profile, err := call(ctx, c, "users.getProfile", nil, func(ctx context.Context) (*gmailapi.Profile, error) {
		return c.svc.GetProfile(userID).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}
