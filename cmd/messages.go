package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/gmailcli/internal/gmail"
)

type messagesOutput struct {
	Messages any `json:"messages"`
	Count    int `json:"count"`
}

type statusOutput struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

func newReadCmd(a *app) *cobra.Command {
	var (
		limit int64
		query string
		full  bool
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read messages from the mailbox",
		Long: `List messages matching a Gmail search query, newest first. Without --full
only the summary headers and snippet are fetched.`,
		Example: `  gmailcli read -n 5
  gmailcli read -q "is:unread from:alice@example.com" --full`,
		RunE: a.runMail("read", func(ctx context.Context, client *gmail.Client) (any, error) {
			if limit <= 0 {
				limit = a.cfg.Gmail.ReadLimit
			}
			refs, err := client.ListMessages(ctx, query, limit)
			if err != nil {
				return nil, err
			}
			ids := make([]string, len(refs))
			for i, r := range refs {
				ids[i] = r.Id
			}

			if full {
				msgs, err := client.GetMessages(ctx, ids, gmail.FormatFull)
				if err != nil {
					return nil, err
				}
				return messagesOutput{Messages: details(msgs), Count: len(msgs)}, nil
			}
			msgs, err := client.GetMessages(ctx, ids, gmail.FormatMetadata, gmail.SummaryHeaders...)
			if err != nil {
				return nil, err
			}
			return messagesOutput{Messages: summaries(msgs), Count: len(msgs)}, nil
		}),
	}

	cmd.Flags().Int64VarP(&limit, "limit", "n", 0, "Number of messages to retrieve (default: gmail.read_limit from the config)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Gmail search query (e.g. 'is:unread', 'from:x@y.com')")
	cmd.Flags().BoolVar(&full, "full", false, "Include the message body, labels and attachments")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get the full details of a message",
		RunE: a.runMail("get", func(ctx context.Context, client *gmail.Client) (any, error) {
			msg, err := client.GetMessage(ctx, id, gmail.FormatFull)
			if err != nil {
				return nil, err
			}
			return gmail.NewDetail(msg), nil
		}),
	}

	cmd.Flags().StringVar(&id, "id", "", "Message ID to retrieve")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// messageAction is a single-message command that changes labels or moves
// the message in or out of the trash.
type messageAction struct {
	use    string
	short  string
	status string
	do     func(ctx context.Context, client *gmail.Client, id string) error
}

func modify(add, remove []string) func(context.Context, *gmail.Client, string) error {
	return func(ctx context.Context, client *gmail.Client, id string) error {
		_, err := client.ModifyMessage(ctx, id, add, remove)
		return err
	}
}

var messageActions = []messageAction{
	{
		use: "archive", short: "Archive a message (remove it from the inbox)", status: "archived",
		do: modify(nil, []string{gmail.LabelInbox}),
	},
	{
		use: "trash", short: "Move a message to the trash", status: "trashed",
		do: func(ctx context.Context, client *gmail.Client, id string) error {
			_, err := client.TrashMessage(ctx, id)
			return err
		},
	},
	{
		use: "untrash", short: "Restore a message from the trash", status: "untrashed",
		do: func(ctx context.Context, client *gmail.Client, id string) error {
			_, err := client.UntrashMessage(ctx, id)
			return err
		},
	},
	{
		use: "mark-read", short: "Mark a message as read", status: "marked_read",
		do: modify(nil, []string{gmail.LabelUnread}),
	},
	{
		use: "mark-unread", short: "Mark a message as unread", status: "marked_unread",
		do: modify([]string{gmail.LabelUnread}, nil),
	},
	{
		use: "star", short: "Star a message", status: "starred",
		do: modify([]string{gmail.LabelStarred}, nil),
	},
	{
		use: "unstar", short: "Remove the star from a message", status: "unstarred",
		do: modify(nil, []string{gmail.LabelStarred}),
	},
}

func newMessageActionCmds(a *app) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(messageActions))
	for _, action := range messageActions {
		var id string
		cmd := &cobra.Command{
			Use:   action.use,
			Short: action.short,
			RunE: a.runMail(action.use, func(ctx context.Context, client *gmail.Client) (any, error) {
				if err := action.do(ctx, client, id); err != nil {
					return nil, err
				}
				return statusOutput{Status: action.status, ID: id}, nil
			}),
		}
		cmd.Flags().StringVar(&id, "id", "", "Message ID")
		_ = cmd.MarkFlagRequired("id")
		cmds = append(cmds, cmd)
	}
	return cmds
}

func newDeleteCmd(a *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Permanently delete a message",
		Long: `Permanently delete a message. This cannot be undone and needs the full
mailbox scope: set full_scope in the config (or pass --full-scope) and run
'gmailcli auth login' again. Use 'trash' for a recoverable delete.`,
		RunE: a.runMail("delete", func(ctx context.Context, client *gmail.Client) (any, error) {
			if err := client.DeleteMessage(ctx, id); err != nil {
				if gmail.IsForbidden(err) {
					return nil, &hintError{
						Message: "Permanent delete requires full mailbox scope",
						Hint:    "Enable full_scope (or GMAILCLI_FULL_SCOPE=true) and run 'gmailcli auth login' again, or use 'trash' instead",
						err:     err,
					}
				}
				return nil, err
			}
			return statusOutput{Status: "deleted", ID: id}, nil
		}),
	}

	cmd.Flags().StringVar(&id, "id", "", "Message ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

type modifiedOutput struct {
	Status   string   `json:"status"`
	ID       string   `json:"id"`
	LabelIDs []string `json:"labelIds"`
}

func newModifyLabelsCmd(a *app) *cobra.Command {
	var (
		id     string
		add    []string
		remove []string
	)

	cmd := &cobra.Command{
		Use:     "modify-labels",
		Short:   "Add or remove labels on a message",
		Example: `  gmailcli modify-labels --id 18c1f --add Label_3 --remove INBOX`,
		RunE: a.runMail("modify-labels", func(ctx context.Context, client *gmail.Client) (any, error) {
			if len(add) == 0 && len(remove) == 0 {
				return nil, errors.New("at least one of --add or --remove is required")
			}
			msg, err := client.ModifyMessage(ctx, id, add, remove)
			if err != nil {
				return nil, err
			}
			labels := msg.LabelIds
			if labels == nil {
				labels = []string{}
			}
			return modifiedOutput{Status: "modified", ID: id, LabelIDs: labels}, nil
		}),
	}

	cmd.Flags().StringVar(&id, "id", "", "Message ID")
	cmd.Flags().StringSliceVar(&add, "add", nil, "Label IDs to add (repeatable)")
	cmd.Flags().StringSliceVar(&remove, "remove", nil, "Label IDs to remove (repeatable)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func summaries(msgs []*gmailapi.Message) []gmail.Summary {
	out := make([]gmail.Summary, len(msgs))
	for i, m := range msgs {
		out[i] = gmail.NewSummary(m)
	}
	return out
}

func details(msgs []*gmailapi.Message) []gmail.Detail {
	out := make([]gmail.Detail, len(msgs))
	for i, m := range msgs {
		out[i] = gmail.NewDetail(m)
	}
	return out
}
