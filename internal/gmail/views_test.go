package gmail

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/gmailcli/internal/gmail/gmailtest"
)

func TestHeaderValue(t *testing.T) {
	msg := gmailtest.TextMessage("m1", "Alice <alice@example.com>", "Hello", "body")

	assert.Equal(t, "Alice <alice@example.com>", HeaderValue(msg, "From"))
	assert.Equal(t, "Hello", HeaderValue(msg, "SUBJECT"))
	assert.Equal(t, "<m1@mail.example.com>", HeaderValue(msg, "message-id"))
	assert.Empty(t, HeaderValue(msg, "Cc"))
	assert.Empty(t, HeaderValue(&gmail.Message{}, "From"))
	assert.Empty(t, HeaderValue(nil, "From"))
}

func TestNewSummary(t *testing.T) {
	msg := gmailtest.TextMessage("m1", "alice@example.com", "Hello", "snippet text")
	msg.ThreadId = "t1"

	assert.Equal(t, Summary{
		ID:       "m1",
		ThreadID: "t1",
		From:     "alice@example.com",
		To:       "me@example.com",
		Subject:  "Hello",
		Date:     "Mon, 19 Oct 2026 10:00:00 +0000",
		Snippet:  "snippet text",
	}, NewSummary(msg))
}

func TestNewDetail(t *testing.T) {
	msg := messageWithAttachments()
	msg.LabelIds = []string{"INBOX"}

	d := NewDetail(msg)
	assert.Equal(t, "m1", d.ID)
	assert.Equal(t, "Text", d.Body)
	assert.Equal(t, []string{"INBOX"}, d.LabelIDs)
	require.Len(t, d.Attachments, 2)
	assert.Equal(t, "report.pdf", d.Attachments[0].Filename)
}

func TestNewDetail_EmptyCollectionsMarshalAsArrays(t *testing.T) {
	msg := &gmail.Message{
		Id: "m2",
		Payload: &gmail.MessagePart{
			MimeType: "text/html",
			Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("<p>hi</p>"))},
		},
	}

	d := NewDetail(msg)
	out, err := json.Marshal(d)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, []any{}, decoded["labelIds"])
	assert.Equal(t, []any{}, decoded["attachments"])
	assert.Equal(t, "<p>hi</p>", decoded["body"])
	assert.Equal(t, "m2", decoded["id"])
}
