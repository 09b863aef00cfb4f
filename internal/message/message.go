// Package message builds outbound mail messages and encodes them into the
// base64url "raw" form accepted by the Gmail API for send and draft requests.
//
// A message is assembled with Build from caller supplied headers, a body and
// optional attachments. Build does no I/O and no semantic validation; Encode
// checks the required headers, serializes the message as RFC 822 (single-part
// for plain text without attachments, multipart/mixed otherwise) and encodes
// the result with the URL-safe base64 alphabet.
//
//	h := message.NewHeaders()
//	h.Set("To", "bob@example.com")
//	h.Set("Subject", "Quarterly report")
//	atts, err := message.LoadAttachments([]string{"report.pdf"})
//	if err != nil {
//	    return err
//	}
//	raw, err := message.Encode(message.Build(h, "See attached.", message.Plain, atts))
package message

import (
	"errors"
	"strings"
)

// Header names used by the builder and its callers.
const (
	HeaderFrom       = "From"
	HeaderTo         = "To"
	HeaderCc         = "Cc"
	HeaderBcc        = "Bcc"
	HeaderSubject    = "Subject"
	HeaderInReplyTo  = "In-Reply-To"
	HeaderReferences = "References"
	HeaderMessageID  = "Message-ID"
)

var (
	// ErrMissingRecipient is returned when a message has no To header.
	ErrMissingRecipient = errors.New("missing recipient")

	// ErrMissingSubject is returned when a message has no Subject header.
	ErrMissingSubject = errors.New("missing subject")
)

// BodyKind selects the media type of the primary body part.
type BodyKind int

const (
	Plain BodyKind = iota
	HTML
)

// MediaType returns the MIME media type for the body kind.
func (k BodyKind) MediaType() string {
	if k == HTML {
		return "text/html"
	}
	return "text/plain"
}

func (k BodyKind) String() string {
	if k == HTML {
		return "html"
	}
	return "plain"
}

// Headers is an ordered, case-insensitive set of single-valued headers.
// Setting a header that already exists replaces its value and spelling but
// keeps its original position.
type Headers struct {
	names  []string
	values map[string]string
	index  map[string]int
}

// NewHeaders returns an empty header set.
func NewHeaders() *Headers {
	return &Headers{
		values: make(map[string]string),
		index:  make(map[string]int),
	}
}

// Set stores value under name, replacing any previous value for the same
// case-insensitive name.
func (h *Headers) Set(name, value string) {
	if h.values == nil {
		h.values = make(map[string]string)
		h.index = make(map[string]int)
	}
	key := strings.ToLower(name)
	if i, ok := h.index[key]; ok {
		h.names[i] = name
	} else {
		h.index[key] = len(h.names)
		h.names = append(h.names, name)
	}
	h.values[key] = value
}

// Get returns the value for name, or "" if it is not set.
func (h *Headers) Get(name string) string {
	if h == nil {
		return ""
	}
	return h.values[strings.ToLower(name)]
}

// Has reports whether name is set.
func (h *Headers) Has(name string) bool {
	if h == nil {
		return false
	}
	_, ok := h.values[strings.ToLower(name)]
	return ok
}

// Names returns the header names in insertion order.
func (h *Headers) Names() []string {
	if h == nil {
		return nil
	}
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// Len returns the number of headers.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.names)
}

// SetThreading marks the message as a reply to the message with the given
// Message-ID. An empty id leaves both threading headers unset.
func (h *Headers) SetThreading(priorMessageID string) {
	priorMessageID = strings.TrimSpace(priorMessageID)
	if priorMessageID == "" {
		return
	}
	h.Set(HeaderInReplyTo, priorMessageID)
	h.Set(HeaderReferences, priorMessageID)
}

// ReplySubject prefixes subject with "Re: " unless it already carries the
// prefix in any letter case.
func ReplySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// Attachment is a file part of an outbound message.
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// Message is an outbound message ready to be encoded.
type Message struct {
	Headers     *Headers
	Body        string
	Kind        BodyKind
	Attachments []Attachment
}

// Build assembles a message from its parts. It performs no validation.
func Build(headers *Headers, body string, kind BodyKind, attachments []Attachment) *Message {
	if headers == nil {
		headers = NewHeaders()
	}
	return &Message{
		Headers:     headers,
		Body:        body,
		Kind:        kind,
		Attachments: attachments,
	}
}

// IsMultipart reports whether the message serializes as multipart/mixed.
func (m *Message) IsMultipart() bool {
	return len(m.Attachments) > 0 || m.Kind == HTML
}

// Validate checks that the headers required for sending are present.
func Validate(h *Headers) error {
	if strings.TrimSpace(h.Get(HeaderTo)) == "" {
		return ErrMissingRecipient
	}
	if strings.TrimSpace(h.Get(HeaderSubject)) == "" {
		return ErrMissingSubject
	}
	return nil
}
