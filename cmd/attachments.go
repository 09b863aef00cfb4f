package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailcli/internal/gmail"
	"github.com/teemow/gmailcli/internal/payload"
)

type attachmentsOutput struct {
	MessageID   string               `json:"message_id"`
	Attachments []payload.Descriptor `json:"attachments"`
	Count       int                  `json:"count"`
}

func newListAttachmentsCmd(a *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "list-attachments",
		Short: "List the attachments of a message",
		RunE: a.runMail("list-attachments", func(ctx context.Context, client *gmail.Client) (any, error) {
			attachments, err := client.ListAttachments(ctx, id)
			if err != nil {
				return nil, err
			}
			return attachmentsOutput{MessageID: id, Attachments: attachments, Count: len(attachments)}, nil
		}),
	}

	cmd.Flags().StringVar(&id, "id", "", "Message ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

type downloadOutput struct {
	Status string `json:"status"`
	Path   string `json:"path"`
	Size   int    `json:"size"`
}

func newDownloadAttachmentCmd(a *app) *cobra.Command {
	var (
		messageID    string
		attachmentID string
		output       string
	)

	cmd := &cobra.Command{
		Use:   "download-attachment",
		Short: "Download an attachment",
		Long: `Download an attachment. Without --output the file is written to the current
directory under the attachment's original filename.`,
		RunE: a.runMail("download-attachment", func(ctx context.Context, client *gmail.Client) (any, error) {
			data, err := client.GetAttachment(ctx, messageID, attachmentID)
			if err != nil {
				return nil, err
			}

			path := output
			if path == "" {
				msg, err := client.GetMessage(ctx, messageID, gmail.FormatFull)
				if err != nil {
					return nil, err
				}
				path = gmail.SanitizeFilename(gmail.AttachmentFilename(msg, attachmentID))
				if path == "" {
					path = "attachment"
				}
			}

			if err := os.WriteFile(path, data, 0600); err != nil {
				return nil, fmt.Errorf("failed to write attachment: %w", err)
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			return downloadOutput{Status: "downloaded", Path: abs, Size: len(data)}, nil
		}),
	}

	cmd.Flags().StringVar(&messageID, "message-id", "", "ID of the message holding the attachment")
	cmd.Flags().StringVar(&attachmentID, "attachment-id", "", "Attachment ID, see list-attachments")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	_ = cmd.MarkFlagRequired("message-id")
	_ = cmd.MarkFlagRequired("attachment-id")
	return cmd
}
