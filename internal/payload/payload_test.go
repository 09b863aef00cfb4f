package payload

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func str(s string) *string { return &s }

func size(n int64) *int64 { return &n }

func leaf(mimeType, text string) *Node {
	return &Node{MimeType: str(mimeType), Body: &Body{Data: str(b64(text))}}
}

func container(mimeType string, parts ...*Node) *Node {
	if parts == nil {
		parts = []*Node{}
	}
	return &Node{MimeType: str(mimeType), Parts: parts}
}

func parse(t *testing.T, raw string) *Node {
	t.Helper()
	var n Node
	require.NoError(t, json.Unmarshal([]byte(raw), &n))
	return &n
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want string
	}{
		{
			name: "top-level inline body",
			node: &Node{MimeType: str("text/plain"), Body: &Body{Data: str(b64("hello"))}},
			want: "hello",
		},
		{
			name: "top-level inline data of any type",
			node: &Node{MimeType: str("text/html"), Body: &Body{Data: str(b64("<p>hi</p>"))}},
			want: "<p>hi</p>",
		},
		{
			name: "nested container after html sibling",
			node: container("multipart/mixed",
				leaf("text/html", "<p>reply body</p>"),
				container("multipart/alternative", leaf("text/plain", "reply body")),
			),
			want: "reply body",
		},
		{
			name: "first plain part wins",
			node: container("multipart/alternative",
				leaf("text/plain", "first"),
				leaf("text/plain", "second"),
			),
			want: "first",
		},
		{
			name: "html only",
			node: container("multipart/alternative", leaf("text/html", "<p>only html</p>")),
			want: "",
		},
		{
			name: "plain part without data is skipped",
			node: container("multipart/alternative",
				&Node{MimeType: str("text/plain"), Body: &Body{Size: size(0)}},
				container("multipart/related", leaf("text/plain", "deeper")),
			),
			want: "deeper",
		},
		{
			name: "empty nested container does not stop the scan",
			node: container("multipart/mixed",
				container("multipart/alternative", leaf("text/html", "x")),
				leaf("text/plain", "later"),
			),
			want: "later",
		},
		{
			name: "deep nesting",
			node: container("multipart/mixed",
				container("multipart/related",
					container("multipart/alternative", leaf("text/plain", "deep text")),
				),
			),
			want: "deep text",
		},
		{name: "nil node", node: nil, want: ""},
		{name: "empty node", node: &Node{}, want: ""},
		{
			name: "empty inline data is absent",
			node: &Node{Body: &Body{Data: str("")}, Parts: []*Node{leaf("text/plain", "from part")}},
			want: "from part",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractText(tt.node))
		})
	}
}

func TestExtractText_Idempotent(t *testing.T) {
	n := container("multipart/mixed",
		leaf("text/html", "<b>x</b>"),
		container("multipart/alternative", leaf("text/plain", "stable")),
	)
	first := ExtractText(n)
	second := ExtractText(n)
	assert.Equal(t, first, second)
	assert.Equal(t, "stable", first)
}

func TestExtractText_FromJSON(t *testing.T) {
	n := parse(t, `{
		"mimeType": "multipart/mixed",
		"filename": "",
		"body": {"size": 0},
		"parts": [
			{"mimeType": "text/html", "body": {"data": "`+b64("<p>reply body</p>")+`", "size": 18}},
			{"mimeType": "multipart/alternative", "parts": [
				{"mimeType": "text/plain", "body": {"data": "`+b64("reply body")+`", "size": 10}}
			]}
		]
	}`)
	assert.Equal(t, "reply body", ExtractText(n))
}

func TestExtractAttachments(t *testing.T) {
	n := parse(t, `{
		"mimeType": "multipart/mixed",
		"parts": [
			{"mimeType": "text/plain", "filename": "", "body": {"data": "`+b64("body")+`"}},
			{"mimeType": "application/pdf", "filename": "top.pdf", "body": {"attachmentId": "att-1", "size": 1024}},
			{"mimeType": "multipart/related", "parts": [
				{"mimeType": "image/png", "filename": "middle.png"},
				{"mimeType": "multipart/alternative", "parts": [
					{"mimeType": "text/csv", "filename": "deep.csv", "body": {"size": 12}}
				]}
			]}
		]
	}`)

	got := ExtractAttachments(n)
	require.Len(t, got, 3)
	assert.Equal(t, []Descriptor{
		{Filename: "top.pdf", MimeType: "application/pdf", Size: 1024, AttachmentID: "att-1"},
		{Filename: "middle.png", MimeType: "image/png", Size: 0, AttachmentID: ""},
		{Filename: "deep.csv", MimeType: "text/csv", Size: 12, AttachmentID: ""},
	}, got)
}

func TestExtractAttachments_EdgeCases(t *testing.T) {
	t.Run("root filename is ignored", func(t *testing.T) {
		n := &Node{Filename: str("root.bin"), Body: &Body{Data: str(b64("x"))}}
		assert.Empty(t, ExtractAttachments(n))
	})

	t.Run("parts with filename still visit children", func(t *testing.T) {
		n := container("multipart/mixed",
			&Node{
				MimeType: str("message/rfc822"),
				Filename: str("forwarded.eml"),
				Parts:    []*Node{{MimeType: str("image/jpeg"), Filename: str("inner.jpg")}},
			},
		)
		got := ExtractAttachments(n)
		require.Len(t, got, 2)
		assert.Equal(t, "forwarded.eml", got[0].Filename)
		assert.Equal(t, "inner.jpg", got[1].Filename)
	})

	t.Run("missing mime type", func(t *testing.T) {
		n := container("multipart/mixed", &Node{Filename: str("noname")})
		got := ExtractAttachments(n)
		require.Len(t, got, 1)
		assert.Equal(t, "", got[0].MimeType)
	})

	t.Run("nil and leaf", func(t *testing.T) {
		assert.Nil(t, ExtractAttachments(nil))
		assert.Nil(t, ExtractAttachments(leaf("text/plain", "x")))
	})
}

func TestFromMessagePart(t *testing.T) {
	part := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Body:     &gmailapi.MessagePartBody{},
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("converted"), Size: 9}},
			{
				MimeType: "application/zip",
				Filename: "bundle.zip",
				Body:     &gmailapi.MessagePartBody{AttachmentId: "zip-1", Size: 2048},
			},
			nil,
		},
	}

	n := FromMessagePart(part)
	require.NotNil(t, n)
	assert.True(t, n.HasParts())
	assert.Len(t, n.Parts, 2)
	assert.Nil(t, n.Filename)
	assert.Nil(t, n.Body.Data)
	assert.Nil(t, n.Body.Size)

	assert.Equal(t, "converted", ExtractText(n))
	assert.Equal(t, []Descriptor{
		{Filename: "bundle.zip", MimeType: "application/zip", Size: 2048, AttachmentID: "zip-1"},
	}, ExtractAttachments(n))

	assert.False(t, FromMessagePart(&gmailapi.MessagePart{MimeType: "text/plain"}).HasParts())
	assert.Nil(t, FromMessagePart(nil))
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, got string)
	}{
		{
			name:  "url alphabet",
			input: base64.URLEncoding.EncodeToString([]byte("a?b>c~")),
			check: func(t *testing.T, got string) { assert.Equal(t, "a?b>c~", got) },
		},
		{
			name:  "unpadded",
			input: base64.RawURLEncoding.EncodeToString([]byte("hello!")),
			check: func(t *testing.T, got string) { assert.Equal(t, "hello!", got) },
		},
		{
			name:  "standard alphabet",
			input: base64.StdEncoding.EncodeToString([]byte("a?b>c~")),
			check: func(t *testing.T, got string) { assert.Equal(t, "a?b>c~", got) },
		},
		{
			name:  "multibyte text",
			input: b64("Grüße 👋"),
			check: func(t *testing.T, got string) { assert.Equal(t, "Grüße 👋", got) },
		},
		{
			name:  "invalid utf8",
			input: base64.URLEncoding.EncodeToString([]byte{'o', 'k', 0xff, 0xfe, '!'}),
			check: func(t *testing.T, got string) { assert.Equal(t, "ok�!", got) },
		},
		{
			name:  "corrupt base64",
			input: "aGVsbG8gd29ybGQ*",
			check: func(t *testing.T, got string) {
				assert.True(t, strings.HasPrefix(got, "hello"), got)
				assert.True(t, strings.HasSuffix(got, "�"), got)
			},
		},
		{
			name:  "empty",
			input: "",
			check: func(t *testing.T, got string) { assert.Equal(t, "", got) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, DecodeText(tt.input))
		})
	}
}

func TestDecodeBytes(t *testing.T) {
	raw := []byte{0x00, 0xfb, 0xff, 0x10}
	got, err := DecodeBytes(base64.URLEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = DecodeBytes("not*base64")
	assert.Error(t, err)
}

func TestExtractText_CorruptPartDoesNotFail(t *testing.T) {
	n := container("multipart/mixed",
		&Node{MimeType: str("text/plain"), Body: &Body{Data: str("@@@@")}},
	)
	assert.Equal(t, "�", ExtractText(n))
}
