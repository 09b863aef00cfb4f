package message

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gomail "github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseHeaders() *Headers {
	h := NewHeaders()
	h.Set("To", "bob@example.com")
	h.Set("Subject", "Status update")
	return h
}

// decodeRaw reverses the transport encoding and parses the header block.
func decodeRaw(t *testing.T, raw string) ([]byte, *mail.Message) {
	t.Helper()
	assert.NotContains(t, raw, "+")
	assert.NotContains(t, raw, "/")

	data, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(data))
	require.NoError(t, err)
	return data, msg
}

func mediaType(t *testing.T, msg *mail.Message) (string, map[string]string) {
	t.Helper()
	mt, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	return mt, params
}

func TestHeaders_CaseInsensitiveLastWriteWins(t *testing.T) {
	h := NewHeaders()
	h.Set("subject", "first")
	h.Set("To", "a@example.com")
	h.Set("SUBJECT", "second")

	assert.Equal(t, "second", h.Get("Subject"))
	assert.True(t, h.Has("subject"))
	assert.False(t, h.Has("Cc"))
	assert.Equal(t, []string{"SUBJECT", "To"}, h.Names())
	assert.Equal(t, 2, h.Len())
}

func TestHeaders_ZeroValue(t *testing.T) {
	var h Headers
	assert.Equal(t, "", h.Get("To"))
	h.Set("To", "a@example.com")
	assert.Equal(t, "a@example.com", h.Get("to"))
}

func TestSetThreading(t *testing.T) {
	tests := []struct {
		name      string
		messageID string
		wantSet   bool
	}{
		{name: "with message id", messageID: "<abc123@mail.example.com>", wantSet: true},
		{name: "empty message id", messageID: "", wantSet: false},
		{name: "blank message id", messageID: "   ", wantSet: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := baseHeaders()
			h.SetThreading(tt.messageID)

			assert.Equal(t, tt.wantSet, h.Has(HeaderInReplyTo))
			assert.Equal(t, tt.wantSet, h.Has(HeaderReferences))
			if tt.wantSet {
				assert.Equal(t, tt.messageID, h.Get(HeaderInReplyTo))
				assert.Equal(t, tt.messageID, h.Get(HeaderReferences))
			}
		})
	}
}

func TestReplySubject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Original Subject", "Re: Original Subject"},
		{"Re: Original Subject", "Re: Original Subject"},
		{"RE: Original Subject", "RE: Original Subject"},
		{"", "Re: "},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplySubject(tt.in))
		})
	}
}

func TestValidate(t *testing.T) {
	h := NewHeaders()
	assert.ErrorIs(t, Validate(h), ErrMissingRecipient)

	h.Set("To", "bob@example.com")
	assert.ErrorIs(t, Validate(h), ErrMissingSubject)

	h.Set("Subject", "hi")
	assert.NoError(t, Validate(h))
}

func TestEncode_MissingRequiredField(t *testing.T) {
	h := NewHeaders()
	h.Set("Subject", "no recipient")
	_, err := Encode(Build(h, "body", Plain, nil))
	assert.ErrorIs(t, err, ErrMissingRecipient)

	h = NewHeaders()
	h.Set("To", "bob@example.com")
	_, err = Encode(Build(h, "body", Plain, nil))
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestEncode_WireShape(t *testing.T) {
	pdf := Attachment{Filename: "report.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.4 fake")}

	tests := []struct {
		name          string
		kind          BodyKind
		attachments   []Attachment
		wantMultipart bool
	}{
		{name: "plain without attachments", kind: Plain, wantMultipart: false},
		{name: "html without attachments", kind: HTML, wantMultipart: true},
		{name: "plain with attachments", kind: Plain, attachments: []Attachment{pdf}, wantMultipart: true},
		{name: "html with attachments", kind: HTML, attachments: []Attachment{pdf}, wantMultipart: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Build(baseHeaders(), "hello there", tt.kind, tt.attachments)
			assert.Equal(t, tt.wantMultipart, m.IsMultipart())

			raw, err := Encode(m)
			require.NoError(t, err)

			_, msg := decodeRaw(t, raw)
			mt, params := mediaType(t, msg)
			if tt.wantMultipart {
				assert.Equal(t, "multipart/mixed", mt)
				assert.NotEmpty(t, params["boundary"])
			} else {
				assert.Equal(t, "text/plain", mt)
				assert.Empty(t, params["boundary"])
			}
		})
	}
}

func TestEncode_HeaderRoundTrip(t *testing.T) {
	h := NewHeaders()
	h.Set("To", "bob@example.com, carol@example.com")
	h.Set("Cc", "dave@example.com")
	h.Set("Bcc", "eve@example.com")
	h.Set("Subject", "Re: Lunch on Friday?")
	h.SetThreading("<CAF=abc+123@mail.gmail.com>")

	for _, kind := range []BodyKind{Plain, HTML} {
		t.Run(kind.String(), func(t *testing.T) {
			raw, err := Encode(Build(h, "see you there", kind, nil))
			require.NoError(t, err)

			_, msg := decodeRaw(t, raw)
			for _, name := range h.Names() {
				assert.Equal(t, h.Get(name), msg.Header.Get(name), "header %s", name)
			}
		})
	}
}

func TestEncode_NonASCIISubject(t *testing.T) {
	h := NewHeaders()
	h.Set("To", "bob@example.com")
	h.Set("Subject", "Grüße aus München")

	raw, err := Encode(Build(h, "body", Plain, nil))
	require.NoError(t, err)

	_, msg := decodeRaw(t, raw)
	encoded := msg.Header.Get("Subject")
	assert.True(t, strings.HasPrefix(encoded, "=?UTF-8?b?") || strings.HasPrefix(encoded, "=?UTF-8?B?"), encoded)

	decoded, err := new(mime.WordDecoder).DecodeHeader(encoded)
	require.NoError(t, err)
	assert.Equal(t, "Grüße aus München", decoded)
}

func TestEncode_MultipartContent(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0xff, 0x10}
	atts := []Attachment{
		{Filename: "notes.txt", MimeType: "text/plain", Data: []byte("line one\nline two\n")},
		{Filename: "pixel.png", MimeType: "image/png", Data: png},
		{Filename: "blob", Data: []byte{1, 2, 3}},
	}

	raw, err := Encode(Build(baseHeaders(), "<p>Hello <b>world</b></p>", HTML, atts))
	require.NoError(t, err)

	data, msg := decodeRaw(t, raw)
	_, params := mediaType(t, msg)
	boundary := params["boundary"]
	require.NotEmpty(t, boundary)

	mr, err := gomail.CreateReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer mr.Close()

	type part struct {
		inline      bool
		contentType string
		filename    string
		disposition string
		body        []byte
	}
	var parts []part
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		body, err := io.ReadAll(p.Body)
		require.NoError(t, err)

		switch h := p.Header.(type) {
		case *gomail.InlineHeader:
			ct, _, _ := h.ContentType()
			parts = append(parts, part{inline: true, contentType: ct, body: body})
		case *gomail.AttachmentHeader:
			ct, _, _ := h.ContentType()
			name, err := h.Filename()
			require.NoError(t, err)
			disp, _, _ := h.ContentDisposition()
			parts = append(parts, part{contentType: ct, filename: name, disposition: disp, body: body})
		}
	}

	require.Len(t, parts, 4)

	assert.True(t, parts[0].inline)
	assert.Equal(t, "text/html", parts[0].contentType)
	assert.Equal(t, "<p>Hello <b>world</b></p>", string(parts[0].body))

	for i, a := range atts {
		got := parts[i+1]
		assert.Equal(t, a.Filename, got.filename)
		assert.Equal(t, "attachment", got.disposition)
		assert.Equal(t, a.Data, got.body)
		assert.False(t, bytes.Contains(got.body, []byte(boundary)))
	}
	assert.Equal(t, "image/png", parts[2].contentType)
	assert.Equal(t, DefaultMimeType, parts[3].contentType)
	assert.False(t, bytes.Contains(parts[0].body, []byte(boundary)))
}

func TestEncode_Deterministic(t *testing.T) {
	m := Build(baseHeaders(), "same body", Plain, nil)

	first, err := Encode(m)
	require.NoError(t, err)
	second, err := Encode(m)
	require.NoError(t, err)

	_, a := decodeRaw(t, first)
	_, b := decodeRaw(t, second)
	for _, name := range []string{"To", "Subject", "Content-Type"} {
		assert.Equal(t, a.Header.Get(name), b.Header.Get(name))
	}
	bodyA, _ := io.ReadAll(a.Body)
	bodyB, _ := io.ReadAll(b.Body)
	assert.Equal(t, bodyA, bodyB)
}

func TestTypeByFilename(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.pdf", "application/pdf"},
		{"photo.PNG", "image/png"},
		{"index.html", "text/html"},
		{"archive.unknownext", DefaultMimeType},
		{"Makefile", DefaultMimeType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeByFilename(tt.name))
		})
	}
}

func TestLoadAttachments(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "invoice.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF"), 0o600))
	txtPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("hello"), 0o600))

	atts, err := LoadAttachments([]string{pdfPath, txtPath})
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.Equal(t, "invoice.pdf", atts[0].Filename)
	assert.Equal(t, "application/pdf", atts[0].MimeType)
	assert.Equal(t, []byte("%PDF"), atts[0].Data)
	assert.Equal(t, "notes.txt", atts[1].Filename)
	assert.Equal(t, "text/plain", atts[1].MimeType)

	none, err := LoadAttachments(nil)
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestLoadAttachments_NotFound(t *testing.T) {
	dir := t.TempDir()
	okPath := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(okPath, []byte("x"), 0o600))
	missing := filepath.Join(dir, "missing.pdf")

	atts, err := LoadAttachments([]string{okPath, missing})
	require.Error(t, err)
	assert.Nil(t, atts)
	assert.True(t, errors.Is(err, ErrAttachmentNotFound))
	assert.Contains(t, err.Error(), missing)
}

func TestLoadAttachment_Directory(t *testing.T) {
	_, err := LoadAttachment(t.TempDir())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAttachmentNotFound))
}
