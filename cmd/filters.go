package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailcli/internal/gmail"
)

type filtersOutput struct {
	Filters []*gmail.FilterInfo `json:"filters"`
	Count   int                 `json:"count"`
}

type createdFilterOutput struct {
	Status   string               `json:"status"`
	ID       string               `json:"id"`
	Criteria gmail.FilterCriteria `json:"criteria"`
	Action   gmail.FilterAction   `json:"action"`
}

func newListFiltersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-filters",
		Short: "List all filters",
		RunE: a.runMail("list-filters", func(ctx context.Context, client *gmail.Client) (any, error) {
			filters, err := client.ListFilters(ctx)
			if err != nil {
				return nil, err
			}
			return filtersOutput{Filters: filters, Count: len(filters)}, nil
		}),
	}
}

func newGetFilterCmd(a *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "get-filter",
		Short: "Get a filter",
		RunE: a.runMail("get-filter", func(ctx context.Context, client *gmail.Client) (any, error) {
			return client.GetFilter(ctx, id)
		}),
	}

	cmd.Flags().StringVar(&id, "id", "", "Filter ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newCreateFilterCmd(a *app) *cobra.Command {
	var (
		criteria gmail.FilterCriteria
		action   gmail.FilterAction
	)

	cmd := &cobra.Command{
		Use:   "create-filter",
		Short: "Create a filter",
		Long: `Create a filter. At least one criterion (--from, --to, --subject, --query,
--has-attachment) and one action are required.

Examples:
  gmailcli create-filter --from newsletter@example.com --archive --add-label Label_12
  gmailcli create-filter --subject "[alerts]" --mark-read`,
		RunE: a.runMail("create-filter", func(ctx context.Context, client *gmail.Client) (any, error) {
			filter, err := client.CreateFilter(ctx, criteria, action)
			if err != nil {
				return nil, err
			}
			return createdFilterOutput{
				Status:   "created",
				ID:       filter.ID,
				Criteria: filter.Criteria,
				Action:   filter.Action,
			}, nil
		}),
	}

	flags := cmd.Flags()
	flags.StringVar(&criteria.From, "from", "", "Match sender")
	flags.StringVar(&criteria.To, "to", "", "Match recipient")
	flags.StringVar(&criteria.Subject, "subject", "", "Match subject")
	flags.StringVar(&criteria.Query, "query", "", "Match a Gmail search query")
	flags.BoolVar(&criteria.HasAttachment, "has-attachment", false, "Match messages with attachments")
	flags.StringArrayVar(&action.AddLabelIDs, "add-label", nil, "Label ID to add (repeatable)")
	flags.StringArrayVar(&action.RemoveLabelIDs, "remove-label", nil, "Label ID to remove (repeatable)")
	flags.BoolVar(&action.Archive, "archive", false, "Skip the inbox")
	flags.BoolVar(&action.MarkAsRead, "mark-read", false, "Mark as read")
	flags.BoolVar(&action.Star, "star", false, "Star the message")
	flags.StringVar(&action.Forward, "forward", "", "Forward to this address")
	return cmd
}

func newDeleteFilterCmd(a *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "delete-filter",
		Short: "Delete a filter",
		RunE: a.runMail("delete-filter", func(ctx context.Context, client *gmail.Client) (any, error) {
			if err := client.DeleteFilter(ctx, id); err != nil {
				return nil, err
			}
			return statusOutput{Status: "deleted", ID: id}, nil
		}),
	}

	cmd.Flags().StringVar(&id, "id", "", "Filter ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
