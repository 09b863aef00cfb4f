package message

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"strings"

	gomail "github.com/emersion/go-message/mail"
)

const charsetUTF8 = "utf-8"

// Encode validates the required headers, serializes the message and returns
// it as a base64url string suitable for the Gmail "raw" field.
func Encode(m *Message) (string, error) {
	if err := Validate(m.Headers); err != nil {
		return "", err
	}
	raw, err := m.Bytes()
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// Bytes serializes the message as RFC 822. Plain text without attachments is
// written as a single text/plain entity; everything else as multipart/mixed
// with the body as the first part followed by one part per attachment.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	h := m.header()

	if !m.IsMultipart() {
		h.SetContentType(m.Kind.MediaType(), map[string]string{"charset": charsetUTF8})
		w, err := gomail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, fmt.Errorf("failed to create message writer: %w", err)
		}
		if _, err := io.WriteString(w, m.Body); err != nil {
			return nil, fmt.Errorf("failed to write body: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to finish body: %w", err)
		}
		return buf.Bytes(), nil
	}

	mw, err := gomail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart writer: %w", err)
	}

	var th gomail.InlineHeader
	th.SetContentType(m.Kind.MediaType(), map[string]string{"charset": charsetUTF8})
	tw, err := mw.CreateSingleInline(th)
	if err != nil {
		return nil, fmt.Errorf("failed to create body part: %w", err)
	}
	if _, err := io.WriteString(tw, m.Body); err != nil {
		return nil, fmt.Errorf("failed to write body: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish body part: %w", err)
	}

	for _, a := range m.Attachments {
		if err := writeAttachment(mw, a); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart message: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *Message) header() gomail.Header {
	var h gomail.Header
	h.Set("MIME-Version", "1.0")
	for _, name := range m.Headers.Names() {
		value := m.Headers.Get(name)
		if strings.EqualFold(name, HeaderSubject) {
			value = encodeRFC2047(value)
		}
		h.Set(name, value)
	}
	return h
}

func writeAttachment(mw *gomail.Writer, a Attachment) error {
	mimeType := a.MimeType
	if mimeType == "" {
		mimeType = TypeByFilename(a.Filename)
	}

	var ah gomail.AttachmentHeader
	ah.SetContentType(mimeType, nil)
	ah.SetFilename(a.Filename)
	ah.Set("Content-Transfer-Encoding", "base64")

	w, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("failed to create attachment part %s: %w", a.Filename, err)
	}
	if _, err := w.Write(a.Data); err != nil {
		return fmt.Errorf("failed to write attachment %s: %w", a.Filename, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish attachment %s: %w", a.Filename, err)
	}
	return nil
}

// encodeRFC2047 encodes a header value containing non-ASCII characters
// (e.g. German umlauts in a subject) as an RFC 2047 encoded word.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}
