package gmail

import (
	"context"
	"strings"

	"github.com/teemow/gmailcli/internal/message"
)

// ReplyInfo is what a reply needs from the message it answers.
type ReplyInfo struct {
	ThreadID  string
	From      string
	Subject   string
	MessageID string
}

// GetReplyInfo fetches the headers of messageID that a reply is built from.
func (c *Client) GetReplyInfo(ctx context.Context, messageID string) (*ReplyInfo, error) {
	msg, err := c.GetMessage(ctx, messageID, FormatMetadata,
		message.HeaderFrom, message.HeaderSubject, message.HeaderMessageID)
	if err != nil {
		return nil, err
	}
	return &ReplyInfo{
		ThreadID:  msg.ThreadId,
		From:      HeaderValue(msg, message.HeaderFrom),
		Subject:   HeaderValue(msg, message.HeaderSubject),
		MessageID: HeaderValue(msg, message.HeaderMessageID),
	}, nil
}

// Compose holds the user-facing fields of an outbound message.
type Compose struct {
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Body        string
	HTML        bool
	Attachments []message.Attachment

	// Reply, when set, makes the message a reply: an empty To defaults to
	// the original sender, an empty Subject to "Re: <original subject>",
	// and the threading headers point at the original Message-ID.
	Reply *ReplyInfo
}

// Headers returns the header set of the message, reply defaults applied.
func (c Compose) Headers() *message.Headers {
	to := strings.Join(c.To, ", ")
	subject := c.Subject
	if c.Reply != nil {
		if strings.TrimSpace(to) == "" {
			to = c.Reply.From
		}
		if strings.TrimSpace(subject) == "" {
			subject = message.ReplySubject(c.Reply.Subject)
		}
	}

	h := message.NewHeaders()
	h.Set(message.HeaderTo, to)
	if len(c.Cc) > 0 {
		h.Set(message.HeaderCc, strings.Join(c.Cc, ", "))
	}
	if len(c.Bcc) > 0 {
		h.Set(message.HeaderBcc, strings.Join(c.Bcc, ", "))
	}
	h.Set(message.HeaderSubject, subject)
	if c.Reply != nil {
		h.SetThreading(c.Reply.MessageID)
	}
	return h
}

// Encode validates, builds and encodes the message. It returns the raw
// base64url form and the thread the message belongs to, if any.
func (c Compose) Encode() (raw, threadID string, err error) {
	kind := message.Plain
	if c.HTML {
		kind = message.HTML
	}
	raw, err = message.Encode(message.Build(c.Headers(), c.Body, kind, c.Attachments))
	if err != nil {
		return "", "", err
	}
	if c.Reply != nil {
		threadID = c.Reply.ThreadID
	}
	return raw, threadID, nil
}

// Recipients returns every address the message goes to.
func (c Compose) Recipients() []string {
	out := make([]string, 0, len(c.To)+len(c.Cc)+len(c.Bcc)+1)
	if len(c.To) == 0 && c.Reply != nil && c.Reply.From != "" {
		out = append(out, c.Reply.From)
	}
	out = append(out, c.To...)
	out = append(out, c.Cc...)
	return append(out, c.Bcc...)
}
