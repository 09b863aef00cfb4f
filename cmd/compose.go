package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/gmailcli/internal/gmail"
	"github.com/teemow/gmailcli/internal/logging"
	"github.com/teemow/gmailcli/internal/message"
)

// composeFlags are the message fields shared by draft and send.
type composeFlags struct {
	to          string
	cc          string
	bcc         string
	subject     string
	body        string
	html        bool
	attachments []string
}

func (f *composeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.to, "to", "", "Recipient address(es), comma-separated")
	cmd.Flags().StringVar(&f.cc, "cc", "", "CC recipients, comma-separated")
	cmd.Flags().StringVar(&f.bcc, "bcc", "", "BCC recipients, comma-separated")
	cmd.Flags().StringVar(&f.subject, "subject", "", "Message subject")
	cmd.Flags().StringVar(&f.body, "body", "", "Message body")
	cmd.Flags().BoolVar(&f.html, "html", false, "Treat the body as HTML")
	cmd.Flags().StringArrayVar(&f.attachments, "attach", nil, "File to attach (repeatable)")
}

// compose reads the attachment files and returns the message. Missing files
// fail here, before any request is made.
func (f *composeFlags) compose() (gmail.Compose, error) {
	attachments, err := message.LoadAttachments(f.attachments)
	if err != nil {
		return gmail.Compose{}, err
	}
	return gmail.Compose{
		To:          splitList(f.to),
		Cc:          splitList(f.cc),
		Bcc:         splitList(f.bcc),
		Subject:     strings.TrimSpace(f.subject),
		Body:        f.body,
		HTML:        f.html,
		Attachments: attachments,
	}, nil
}

type draftOutput struct {
	Status    string `json:"status"`
	DraftID   string `json:"draft_id"`
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
}

func newDraftCmd(a *app) *cobra.Command {
	var (
		flags   composeFlags
		replyTo string
	)

	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Create a draft",
		Long: `Create a draft. With --reply-to the draft joins the thread of the given
message: --to defaults to its sender and --subject to "Re: <its subject>".`,
		Example: `  gmailcli draft --to bob@example.com --subject "Lunch" --body "Friday?"
  gmailcli draft --reply-to 18c1f --body "Friday works" --attach agenda.pdf`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.instrument(cmd, "draft", func(ctx context.Context) error {
				compose, err := flags.compose()
				if err != nil {
					return err
				}
				if replyTo == "" {
					if err := message.Validate(compose.Headers()); err != nil {
						return missingFieldError(err, "unless using --reply-to")
					}
				}

				client, err := newMailClient(ctx, a, a.cfg.Account)
				if err != nil {
					return err
				}
				if replyTo != "" {
					compose.Reply, err = client.GetReplyInfo(ctx, replyTo)
					if err != nil {
						return err
					}
				}

				raw, threadID, err := compose.Encode()
				if err != nil {
					return missingFieldError(err, "unless using --reply-to")
				}
				draft, err := client.CreateDraft(ctx, raw, threadID)
				if err != nil {
					return err
				}
				a.logRecipients("draft created", draft.Id, compose.Recipients())

				out := draftOutput{Status: "created", DraftID: draft.Id}
				if draft.Message != nil {
					out.MessageID = draft.Message.Id
					out.ThreadID = draft.Message.ThreadId
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&replyTo, "reply-to", "", "ID of the message to reply to")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

// logRecipients logs one line per recipient of id, keyed by a hash of the
// address and its domain.
func (a *app) logRecipients(msg, id string, recipients []string) {
	for _, r := range recipients {
		a.logger.Info(msg, logging.MessageID(id), logging.UserHash(r), logging.Domain(r))
	}
}

type sentOutput struct {
	Status    string   `json:"status"`
	MessageID string   `json:"message_id"`
	ThreadID  string   `json:"thread_id"`
	LabelIDs  []string `json:"label_ids"`
}

func newSentOutput(msg *gmailapi.Message) sentOutput {
	labels := msg.LabelIds
	if labels == nil {
		labels = []string{}
	}
	return sentOutput{Status: "sent", MessageID: msg.Id, ThreadID: msg.ThreadId, LabelIDs: labels}
}

func newSendCmd(a *app) *cobra.Command {
	var (
		flags   composeFlags
		draftID string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a draft or a new message",
		Long: `Send an existing draft with --draft-id, or a new message given --to,
--subject and --body.`,
		Example: `  gmailcli send --draft-id r-123
  gmailcli send --to bob@example.com --subject "Report" --body "Attached." --attach report.pdf`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.instrument(cmd, "send", func(ctx context.Context) error {
				if draftID != "" {
					client, err := newMailClient(ctx, a, a.cfg.Account)
					if err != nil {
						return err
					}
					msg, err := client.SendDraft(ctx, draftID)
					if err != nil {
						return err
					}
					a.logger.Info("draft sent", slog.String("draft_id", draftID), logging.MessageID(msg.Id))
					return writeJSON(cmd.OutOrStdout(), newSentOutput(msg))
				}

				if strings.TrimSpace(flags.to) == "" || strings.TrimSpace(flags.subject) == "" || flags.body == "" {
					return errors.New("provide --draft-id OR (--to, --subject, --body)")
				}
				compose, err := flags.compose()
				if err != nil {
					return err
				}
				raw, _, err := compose.Encode()
				if err != nil {
					return err
				}

				client, err := newMailClient(ctx, a, a.cfg.Account)
				if err != nil {
					return err
				}
				msg, err := client.SendRawMessage(ctx, raw, "")
				if err != nil {
					return err
				}
				a.logRecipients("message sent", msg.Id, compose.Recipients())
				return writeJSON(cmd.OutOrStdout(), newSentOutput(msg))
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&draftID, "draft-id", "", "ID of the draft to send")
	return cmd
}

type draftSummary struct {
	DraftID   string `json:"draft_id"`
	MessageID string `json:"message_id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Snippet   string `json:"snippet"`
}

type draftsOutput struct {
	Drafts []draftSummary `json:"drafts"`
	Count  int            `json:"count"`
}

func newListDraftsCmd(a *app) *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:   "list-drafts",
		Short: "List drafts",
		RunE: a.runMail("list-drafts", func(ctx context.Context, client *gmail.Client) (any, error) {
			refs, err := client.ListDrafts(ctx, limit)
			if err != nil {
				return nil, err
			}

			out := draftsOutput{Drafts: make([]draftSummary, 0, len(refs))}
			for _, ref := range refs {
				draft, err := client.GetDraft(ctx, ref.Id, gmail.FormatMetadata)
				if err != nil {
					return nil, err
				}
				s := draftSummary{DraftID: draft.Id}
				if msg := draft.Message; msg != nil {
					s.MessageID = msg.Id
					s.To = gmail.HeaderValue(msg, message.HeaderTo)
					s.Subject = gmail.HeaderValue(msg, message.HeaderSubject)
					s.Snippet = msg.Snippet
				}
				out.Drafts = append(out.Drafts, s)
			}
			out.Count = len(out.Drafts)
			return out, nil
		}),
	}

	cmd.Flags().Int64VarP(&limit, "limit", "n", 100, "Maximum number of drafts to list")
	return cmd
}

type deletedDraftOutput struct {
	Status  string `json:"status"`
	DraftID string `json:"draft_id"`
}

func newDeleteDraftCmd(a *app) *cobra.Command {
	var draftID string

	cmd := &cobra.Command{
		Use:   "delete-draft",
		Short: "Delete a draft",
		RunE: a.runMail("delete-draft", func(ctx context.Context, client *gmail.Client) (any, error) {
			if err := client.DeleteDraft(ctx, draftID); err != nil {
				return nil, err
			}
			return deletedDraftOutput{Status: "deleted", DraftID: draftID}, nil
		}),
	}

	cmd.Flags().StringVar(&draftID, "draft-id", "", "ID of the draft to delete")
	_ = cmd.MarkFlagRequired("draft-id")
	return cmd
}

// missingFieldError adds the flag to fix to a missing header error.
func missingFieldError(err error, qualifier string) error {
	switch {
	case errors.Is(err, message.ErrMissingRecipient):
		return fmt.Errorf("--to is required (%s): %w", qualifier, err)
	case errors.Is(err, message.ErrMissingSubject):
		return fmt.Errorf("--subject is required (%s): %w", qualifier, err)
	}
	return err
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
