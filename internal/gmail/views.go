package gmail

import (
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/gmailcli/internal/payload"
)

// Summary is the list view of a message.
type Summary struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Date     string `json:"date"`
	Snippet  string `json:"snippet"`
}

// Detail is the full view of a message: the summary plus its plain-text
// body, labels and attachment descriptors.
type Detail struct {
	Summary
	Body        string               `json:"body"`
	LabelIDs    []string             `json:"labelIds"`
	Attachments []payload.Descriptor `json:"attachments"`
}

// HeaderValue returns the value of the first header of the message payload
// named name, compared case-insensitively, or "".
func HeaderValue(msg *gmailapi.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// NewSummary shapes a message fetched in metadata or full format.
func NewSummary(msg *gmailapi.Message) Summary {
	return Summary{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		From:     HeaderValue(msg, "From"),
		To:       HeaderValue(msg, "To"),
		Subject:  HeaderValue(msg, "Subject"),
		Date:     HeaderValue(msg, "Date"),
		Snippet:  msg.Snippet,
	}
}

// NewDetail shapes a message fetched in full format.
func NewDetail(msg *gmailapi.Message) Detail {
	root := payload.FromMessagePart(msg.Payload)
	labels := msg.LabelIds
	if labels == nil {
		labels = []string{}
	}
	return Detail{
		Summary:     NewSummary(msg),
		Body:        payload.ExtractText(root),
		LabelIDs:    labels,
		Attachments: Attachments(msg),
	}
}

// Attachments returns the attachment descriptors of a message, never nil.
func Attachments(msg *gmailapi.Message) []payload.Descriptor {
	if msg == nil {
		return []payload.Descriptor{}
	}
	found := payload.ExtractAttachments(payload.FromMessagePart(msg.Payload))
	if found == nil {
		return []payload.Descriptor{}
	}
	return found
}
