// Package payload walks the nested body structure of an inbound Gmail
// message. It extracts the first plain-text body and the descriptors of all
// attachment parts.
//
// A Node mirrors the "payload" object of the Gmail API. Optional fields are
// pointers, so a field that is absent can be told apart from one that is
// present but empty. Parts is nil for a leaf and non-nil for a container,
// even when the container has no children.
package payload

import (
	gmailapi "google.golang.org/api/gmail/v1"
)

// Node is one part of an inbound message body tree.
type Node struct {
	MimeType *string `json:"mimeType,omitempty"`
	Filename *string `json:"filename,omitempty"`
	Body     *Body   `json:"body,omitempty"`
	Parts    []*Node `json:"parts,omitempty"`
}

// Body holds the inline data or the attachment reference of a part.
type Body struct {
	AttachmentID *string `json:"attachmentId,omitempty"`
	Data         *string `json:"data,omitempty"`
	Size         *int64  `json:"size,omitempty"`
}

// HasParts reports whether the node is a container.
func (n *Node) HasParts() bool {
	return n != nil && n.Parts != nil
}

// Type returns the declared MIME type or "".
func (n *Node) Type() string {
	if n == nil || n.MimeType == nil {
		return ""
	}
	return *n.MimeType
}

// Name returns the filename or "".
func (n *Node) Name() string {
	if n == nil || n.Filename == nil {
		return ""
	}
	return *n.Filename
}

// InlineData returns the base64url body data and whether the node carries any.
func (n *Node) InlineData() (string, bool) {
	if n == nil || n.Body == nil || n.Body.Data == nil || *n.Body.Data == "" {
		return "", false
	}
	return *n.Body.Data, true
}

// FromMessagePart converts the API client's representation into a Node.
// Empty strings and zero sizes in the generated type are treated as absent.
func FromMessagePart(p *gmailapi.MessagePart) *Node {
	if p == nil {
		return nil
	}
	n := &Node{
		MimeType: optional(p.MimeType),
		Filename: optional(p.Filename),
	}
	if p.Body != nil {
		n.Body = &Body{
			AttachmentID: optional(p.Body.AttachmentId),
			Data:         optional(p.Body.Data),
		}
		if p.Body.Size != 0 {
			size := p.Body.Size
			n.Body.Size = &size
		}
	}
	if p.Parts != nil {
		n.Parts = make([]*Node, 0, len(p.Parts))
		for _, child := range p.Parts {
			if child == nil {
				continue
			}
			n.Parts = append(n.Parts, FromMessagePart(child))
		}
	}
	return n
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
