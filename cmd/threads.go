package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailcli/internal/gmail"
)

type threadOutput struct {
	ThreadID string `json:"thread_id"`
	Messages any    `json:"messages"`
	Count    int    `json:"count"`
}

type threadStatusOutput struct {
	Status   string `json:"status"`
	ThreadID string `json:"thread_id"`
}

func newGetThreadCmd(a *app) *cobra.Command {
	var (
		id   string
		full bool
	)

	cmd := &cobra.Command{
		Use:   "get-thread",
		Short: "Get all messages of a thread",
		RunE: a.runMail("get-thread", func(ctx context.Context, client *gmail.Client) (any, error) {
			format, headers := gmail.FormatMetadata, gmail.SummaryHeaders
			if full {
				format, headers = gmail.FormatFull, nil
			}
			thread, err := client.GetThread(ctx, id, format, headers...)
			if err != nil {
				return nil, err
			}

			out := threadOutput{ThreadID: id, Count: len(thread.Messages)}
			if full {
				out.Messages = details(thread.Messages)
			} else {
				out.Messages = summaries(thread.Messages)
			}
			return out, nil
		}),
	}

	cmd.Flags().StringVar(&id, "id", "", "Thread ID")
	cmd.Flags().BoolVar(&full, "full", false, "Include the message bodies")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newArchiveThreadCmd(a *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "archive-thread",
		Short: "Archive every message of a thread",
		RunE: a.runMail("archive-thread", func(ctx context.Context, client *gmail.Client) (any, error) {
			if _, err := client.ArchiveThread(ctx, id); err != nil {
				return nil, err
			}
			return threadStatusOutput{Status: "archived", ThreadID: id}, nil
		}),
	}

	cmd.Flags().StringVar(&id, "id", "", "Thread ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newTrashThreadCmd(a *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "trash-thread",
		Short: "Move every message of a thread to the trash",
		RunE: a.runMail("trash-thread", func(ctx context.Context, client *gmail.Client) (any, error) {
			if _, err := client.TrashThread(ctx, id); err != nil {
				return nil, err
			}
			return threadStatusOutput{Status: "trashed", ThreadID: id}, nil
		}),
	}

	cmd.Flags().StringVar(&id, "id", "", "Thread ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
