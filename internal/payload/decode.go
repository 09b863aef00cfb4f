package payload

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// Gmail documents base64url with padding, but unpadded and standard-alphabet
// data shows up in the wild.
var encodings = []*base64.Encoding{
	base64.URLEncoding,
	base64.RawURLEncoding,
	base64.StdEncoding,
	base64.RawStdEncoding,
}

// DecodeBytes decodes base64url data strictly, accepting the same alphabet
// variants as DecodeText.
func DecodeBytes(data string) ([]byte, error) {
	var firstErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(data)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// DecodeText decodes base64url data into text and never fails. Invalid UTF-8
// sequences become U+FFFD. Corrupt base64 keeps the prefix that decoded and
// marks the rest with a single U+FFFD.
func DecodeText(data string) string {
	if b, err := DecodeBytes(data); err == nil {
		return toValidUTF8(b)
	}
	// The decoder stops at the first corrupt quantum and returns what it
	// decoded so far.
	b, _ := base64.URLEncoding.DecodeString(data)
	return toValidUTF8(b) + string(utf8.RuneError)
}

func toValidUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
