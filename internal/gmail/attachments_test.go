package gmail

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/gmailcli/internal/payload"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{
			name:     "normal filename",
			filename: "document.pdf",
			want:     "document.pdf",
		},
		{
			name:     "filename with forward slash",
			filename: "path/to/document.pdf",
			want:     "path_to_document.pdf",
		},
		{
			name:     "filename with backslash",
			filename: "path\\to\\document.pdf",
			want:     "path_to_document.pdf",
		},
		{
			name:     "filename with parent directory",
			filename: "../../../etc/passwd",
			want:     "______etc_passwd",
		},
		{
			name:     "filename with mixed separators",
			filename: "../path\\to/document.pdf",
			want:     "__path_to_document.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.filename); got != tt.want {
				t.Errorf("SanitizeFilename() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMaxAttachmentSize(t *testing.T) {
	const expectedSize = 25 * 1024 * 1024 // 25MB

	if MaxAttachmentSize != expectedSize {
		t.Errorf("MaxAttachmentSize = %d, want %d", MaxAttachmentSize, expectedSize)
	}
}

func messageWithAttachments() *gmail.Message {
	return &gmail.Message{
		Id: "m1",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{
							MimeType: "text/plain",
							Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("Text"))},
						},
					},
				},
				{
					Filename: "report.pdf",
					MimeType: "application/pdf",
					Body:     &gmail.MessagePartBody{AttachmentId: "att-1", Size: 1024},
				},
				{
					Filename: "notes.txt",
					MimeType: "text/plain",
					Body:     &gmail.MessagePartBody{AttachmentId: "att-2", Size: 5},
				},
			},
		},
	}
}

func TestListAttachments(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddMessage(messageWithAttachments())

	got, err := c.ListAttachments(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, []payload.Descriptor{
		{Filename: "report.pdf", MimeType: "application/pdf", Size: 1024, AttachmentID: "att-1"},
		{Filename: "notes.txt", MimeType: "text/plain", Size: 5, AttachmentID: "att-2"},
	}, got)
}

func TestAttachmentFilename(t *testing.T) {
	msg := messageWithAttachments()

	assert.Equal(t, "notes.txt", AttachmentFilename(msg, "att-2"))
	assert.Empty(t, AttachmentFilename(msg, "att-9"))
	assert.Empty(t, AttachmentFilename(nil, "att-1"))
}

func TestGetAttachment(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddMessage(messageWithAttachments())
	content := []byte("binary \x00\xff content with >>> and ??? to exercise the url alphabet")
	srv.AddAttachment("att-1", content)
	srv.AddRawAttachment("att-2", base64.StdEncoding.EncodeToString([]byte("notes")))
	ctx := context.Background()

	data, err := c.GetAttachment(ctx, "m1", "att-1")
	require.NoError(t, err)
	assert.Equal(t, content, data)

	data, err = c.GetAttachment(ctx, "m1", "att-2")
	require.NoError(t, err)
	assert.Equal(t, "notes", string(data))
}

func TestGetAttachment_Validation(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	_, err := c.GetAttachment(ctx, "", "att123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "messageID is required")

	_, err = c.GetAttachment(ctx, "msg123", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attachmentID is required")

	assert.Zero(t, srv.Calls("messages.attachments.get"))
}

func TestGetAttachment_Errors(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddMessage(messageWithAttachments())
	srv.AddRawAttachment("att-bad", "!!not base64!!")
	ctx := context.Background()

	_, err := c.GetAttachment(ctx, "m1", "att-missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	_, err = c.GetAttachment(ctx, "m1", "att-bad")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to decode attachment data"))
}
