package gmail

import (
	"context"
	"errors"
	"fmt"
	"slices"

	gmailapi "google.golang.org/api/gmail/v1"
)

var (
	// ErrNoCriteria is returned when a filter has no matching criteria.
	ErrNoCriteria = errors.New("at least one filter criteria is required")

	// ErrNoAction is returned when a filter has nothing to do on a match.
	ErrNoAction = errors.New("at least one filter action is required")
)

// FilterCriteria represents the criteria for a Gmail filter
type FilterCriteria struct {
	From           string `json:"from,omitempty"`
	To             string `json:"to,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Query          string `json:"query,omitempty"`
	HasAttachment  bool   `json:"hasAttachment,omitempty"`
	Size           int64  `json:"size,omitempty"`           // bytes, see SizeComparison
	SizeComparison string `json:"sizeComparison,omitempty"` // "larger" or "smaller"
}

// IsEmpty reports whether no criterion is set.
func (fc FilterCriteria) IsEmpty() bool {
	return fc.From == "" && fc.To == "" && fc.Subject == "" && fc.Query == "" &&
		!fc.HasAttachment && fc.Size == 0
}

// FilterAction represents the actions to take when a filter matches.
// Archive, MarkAsRead, Star, MarkAsSpam and Delete are shortcuts for system
// label changes.
type FilterAction struct {
	AddLabelIDs    []string `json:"addLabelIds,omitempty"`
	RemoveLabelIDs []string `json:"removeLabelIds,omitempty"`
	Forward        string   `json:"forward,omitempty"`
	Archive        bool     `json:"archive,omitempty"`
	MarkAsRead     bool     `json:"markRead,omitempty"`
	Star           bool     `json:"star,omitempty"`
	MarkAsSpam     bool     `json:"markSpam,omitempty"`
	Delete         bool     `json:"delete,omitempty"`
}

// IsEmpty reports whether the action does nothing.
func (fa FilterAction) IsEmpty() bool {
	return len(fa.AddLabelIDs) == 0 && len(fa.RemoveLabelIDs) == 0 && fa.Forward == "" &&
		!fa.Archive && !fa.MarkAsRead && !fa.Star && !fa.MarkAsSpam && !fa.Delete
}

// FilterInfo represents a Gmail filter with its criteria and actions
type FilterInfo struct {
	ID       string         `json:"id"`
	Criteria FilterCriteria `json:"criteria"`
	Action   FilterAction   `json:"action"`
}

// CreateFilter validates and creates a new Gmail filter.
func (c *Client) CreateFilter(ctx context.Context, criteria FilterCriteria, action FilterAction) (*FilterInfo, error) {
	if criteria.IsEmpty() {
		return nil, ErrNoCriteria
	}
	if action.IsEmpty() {
		return nil, ErrNoAction
	}

	filter := &gmailapi.Filter{
		Criteria: toGmailCriteria(criteria),
		Action:   toGmailAction(action),
	}

	created, err := call(ctx, c, "settings.filters.create", nil, func(ctx context.Context) (*gmailapi.Filter, error) {
		return c.svc.Settings.Filters.Create(userID, filter).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create filter: %w", err)
	}
	return convertGmailFilterToFilterInfo(created), nil
}

// ListFilters lists all Gmail filters for the user
func (c *Client) ListFilters(ctx context.Context) ([]*FilterInfo, error) {
	resp, err := call(ctx, c, "settings.filters.list", nil, func(ctx context.Context) (*gmailapi.ListFiltersResponse, error) {
		return c.svc.Settings.Filters.List(userID).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}

	filters := make([]*FilterInfo, 0, len(resp.Filter))
	for _, f := range resp.Filter {
		filters = append(filters, convertGmailFilterToFilterInfo(f))
	}
	return filters, nil
}

// GetFilter retrieves a specific filter by ID
func (c *Client) GetFilter(ctx context.Context, filterID string) (*FilterInfo, error) {
	filter, err := call(ctx, c, "settings.filters.get", resource("filter", filterID), func(ctx context.Context) (*gmailapi.Filter, error) {
		return c.svc.Settings.Filters.Get(userID, filterID).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get filter %s: %w", filterID, err)
	}
	return convertGmailFilterToFilterInfo(filter), nil
}

// DeleteFilter deletes a filter by ID
func (c *Client) DeleteFilter(ctx context.Context, filterID string) error {
	err := callNoResult(ctx, c, "settings.filters.delete", resource("filter", filterID), func(ctx context.Context) error {
		return c.svc.Settings.Filters.Delete(userID, filterID).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("failed to delete filter %s: %w", filterID, err)
	}
	return nil
}

func toGmailCriteria(criteria FilterCriteria) *gmailapi.FilterCriteria {
	gc := &gmailapi.FilterCriteria{
		From:          criteria.From,
		To:            criteria.To,
		Subject:       criteria.Subject,
		Query:         criteria.Query,
		HasAttachment: criteria.HasAttachment,
	}
	if criteria.Size > 0 {
		gc.Size = criteria.Size
		gc.SizeComparison = criteria.SizeComparison
	}
	return gc
}

func toGmailAction(action FilterAction) *gmailapi.FilterAction {
	ga := &gmailapi.FilterAction{
		AddLabelIds:    slices.Clone(action.AddLabelIDs),
		RemoveLabelIds: slices.Clone(action.RemoveLabelIDs),
		Forward:        action.Forward,
	}

	remove := func(id string) {
		if !slices.Contains(ga.RemoveLabelIds, id) {
			ga.RemoveLabelIds = append(ga.RemoveLabelIds, id)
		}
	}
	add := func(id string) {
		if !slices.Contains(ga.AddLabelIds, id) {
			ga.AddLabelIds = append(ga.AddLabelIds, id)
		}
	}

	if action.Archive {
		remove(LabelInbox)
	}
	if action.MarkAsRead {
		remove(LabelUnread)
	}
	if action.Star {
		add(LabelStarred)
	}
	if action.MarkAsSpam {
		add(LabelSpam)
	}
	if action.Delete {
		add(LabelTrash)
	}
	return ga
}

// convertGmailFilterToFilterInfo converts a Gmail API filter to FilterInfo
func convertGmailFilterToFilterInfo(f *gmailapi.Filter) *FilterInfo {
	info := &FilterInfo{
		ID: f.Id,
	}

	if f.Criteria != nil {
		info.Criteria = FilterCriteria{
			From:           f.Criteria.From,
			To:             f.Criteria.To,
			Subject:        f.Criteria.Subject,
			Query:          f.Criteria.Query,
			HasAttachment:  f.Criteria.HasAttachment,
			Size:           f.Criteria.Size,
			SizeComparison: f.Criteria.SizeComparison,
		}
	}

	if f.Action != nil {
		info.Action = FilterAction{
			AddLabelIDs:    f.Action.AddLabelIds,
			RemoveLabelIDs: f.Action.RemoveLabelIds,
			Forward:        f.Action.Forward,
		}

		for _, labelID := range f.Action.RemoveLabelIds {
			switch labelID {
			case LabelInbox:
				info.Action.Archive = true
			case LabelUnread:
				info.Action.MarkAsRead = true
			}
		}

		for _, labelID := range f.Action.AddLabelIds {
			switch labelID {
			case LabelStarred:
				info.Action.Star = true
			case LabelSpam:
				info.Action.MarkAsSpam = true
			case LabelTrash:
				info.Action.Delete = true
			}
		}
	}

	return info
}
