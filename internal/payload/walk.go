package payload

// MimeTypePlain is the only body type ExtractText reports.
const MimeTypePlain = "text/plain"

// Descriptor identifies one attachment part of a message.
type Descriptor struct {
	Filename     string `json:"filename"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	AttachmentID string `json:"attachmentId"`
}

// ExtractText returns the first plain-text body of the tree.
//
// Inline data on n itself wins regardless of its type. Otherwise the children
// are scanned in order: a text/plain child with inline data is returned, and
// any other child that is a container is searched recursively. HTML is never
// used as a fallback, so an HTML-only message yields "".
func ExtractText(n *Node) string {
	if n == nil {
		return ""
	}
	if data, ok := n.InlineData(); ok {
		return DecodeText(data)
	}
	for _, child := range n.Parts {
		if child == nil {
			continue
		}
		if child.Type() == MimeTypePlain {
			if data, ok := child.InlineData(); ok {
				return DecodeText(data)
			}
			continue
		}
		if child.HasParts() {
			if text := ExtractText(child); text != "" {
				return text
			}
		}
	}
	return ""
}

// ExtractAttachments returns a descriptor for every part below n that has a
// filename, depth-first in encounter order. The root node itself is not a
// candidate. Missing sizes and attachment IDs default to 0 and "".
func ExtractAttachments(n *Node) []Descriptor {
	if n == nil {
		return nil
	}
	var out []Descriptor
	collectAttachments(n.Parts, &out)
	return out
}

func collectAttachments(parts []*Node, out *[]Descriptor) {
	for _, p := range parts {
		if p == nil {
			continue
		}
		if name := p.Name(); name != "" {
			d := Descriptor{
				Filename: name,
				MimeType: p.Type(),
			}
			if p.Body != nil {
				if p.Body.Size != nil {
					d.Size = *p.Body.Size
				}
				if p.Body.AttachmentID != nil {
					d.AttachmentID = *p.Body.AttachmentID
				}
			}
			*out = append(*out, d)
		}
		if p.HasParts() {
			collectAttachments(p.Parts, out)
		}
	}
}
