package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailcli/internal/batch"
	"github.com/teemow/gmailcli/internal/gmail"
)

type batchOutput struct {
	Status string         `json:"status"`
	Count  int            `json:"count"`
	Failed int            `json:"failed"`
	Errors []batch.Result `json:"errors,omitempty"`
}

var errBatchFailed = errors.New("some messages could not be processed")

func newBatchCmds(a *app) []*cobra.Command {
	specs := []struct {
		use    string
		short  string
		status string
		do     func(ctx context.Context, client *gmail.Client, id string) error
	}{
		{
			use: "batch-archive", short: "Archive every message matching a query", status: "archived",
			do: modify(nil, []string{gmail.LabelInbox}),
		},
		{
			use: "batch-trash", short: "Trash every message matching a query", status: "trashed",
			do: func(ctx context.Context, client *gmail.Client, id string) error {
				_, err := client.TrashMessage(ctx, id)
				return err
			},
		},
		{
			use: "batch-mark-read", short: "Mark every message matching a query as read", status: "marked_read",
			do: modify(nil, []string{gmail.LabelUnread}),
		},
	}

	cmds := make([]*cobra.Command, 0, len(specs))
	for _, spec := range specs {
		var (
			query string
			limit int64
		)
		cmd := &cobra.Command{
			Use:   spec.use,
			Short: spec.short,
			Long: spec.short + `. Messages are processed in parallel; a message that
fails does not stop the others. The command exits non-zero when any failed.`,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.instrument(cmd, spec.use, func(ctx context.Context) error {
					if limit <= 0 {
						limit = a.cfg.Gmail.BatchLimit
					}
					client, err := newMailClient(ctx, a, a.cfg.Account)
					if err != nil {
						return err
					}
					refs, err := client.ListMessages(ctx, query, limit)
					if err != nil {
						return err
					}
					ids := make([]string, len(refs))
					for i, r := range refs {
						ids[i] = r.Id
					}

					results := batch.Process(ctx, ids, a.cfg.Gmail.Concurrency, func(ctx context.Context, id string) (string, error) {
						return id, spec.do(ctx, client, id)
					})
					summary := batch.Summarize(results)

					out := batchOutput{Status: spec.status, Count: summary.Successful, Failed: summary.Failed}
					for _, r := range summary.Results {
						if r.Status == batch.StatusError {
							out.Errors = append(out.Errors, r)
						}
					}
					if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
						return err
					}
					if summary.Failed > 0 {
						return errBatchFailed
					}
					return nil
				})
			},
		}
		cmd.Flags().StringVarP(&query, "query", "q", "", "Gmail search query")
		cmd.Flags().Int64VarP(&limit, "limit", "n", 0, "Maximum number of messages to process (default: gmail.batch_limit from the config)")
		_ = cmd.MarkFlagRequired("query")
		cmds = append(cmds, cmd)
	}
	return cmds
}
