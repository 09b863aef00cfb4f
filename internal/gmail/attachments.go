package gmail

import (
	"context"
	"fmt"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/gmailcli/internal/payload"
)

const (
	// MaxAttachmentSize defines the maximum attachment size in bytes (25MB)
	MaxAttachmentSize = 25 * 1024 * 1024
)

// ListAttachments fetches a message and returns the descriptors of all its
// attachment parts.
func (c *Client) ListAttachments(ctx context.Context, messageID string) ([]payload.Descriptor, error) {
	msg, err := c.GetMessage(ctx, messageID, FormatFull)
	if err != nil {
		return nil, err
	}
	return Attachments(msg), nil
}

// GetAttachment downloads and decodes the content of an attachment.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return nil, fmt.Errorf("attachmentID is required")
	}

	attachment, err := call(ctx, c, "messages.attachments.get", resource("message", messageID), func(ctx context.Context) (*gmailapi.MessagePartBody, error) {
		return c.svc.Messages.Attachments.Get(userID, messageID, attachmentID).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	if attachment.Size > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", attachment.Size, MaxAttachmentSize)
	}

	data, err := payload.DecodeBytes(attachment.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment data: %w", err)
	}
	if len(data) > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", len(data), MaxAttachmentSize)
	}
	return data, nil
}

// AttachmentFilename returns the filename of the attachment part with the
// given ID, or "" when the message has no such part.
func AttachmentFilename(msg *gmailapi.Message, attachmentID string) string {
	for _, d := range Attachments(msg) {
		if d.AttachmentID == attachmentID {
			return d.Filename
		}
	}
	return ""
}

// SanitizeFilename sanitizes a filename to prevent path traversal attacks
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	return filename
}
