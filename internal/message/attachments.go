package message

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMimeType is used for attachments whose type cannot be derived from
// the file extension.
const DefaultMimeType = "application/octet-stream"

// ErrAttachmentNotFound is returned when an attachment path does not exist.
var ErrAttachmentNotFound = errors.New("attachment not found")

// TypeByFilename derives a MIME type from the filename extension, without
// parameters, falling back to DefaultMimeType.
func TypeByFilename(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return DefaultMimeType
	}
	t := mime.TypeByExtension(strings.ToLower(ext))
	if t == "" {
		return DefaultMimeType
	}
	mediaType, _, err := mime.ParseMediaType(t)
	if err != nil || !strings.Contains(mediaType, "/") {
		return DefaultMimeType
	}
	return mediaType
}

// LoadAttachment reads the file at path into an Attachment named after the
// file's base name.
func LoadAttachment(path string) (Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Attachment{}, fmt.Errorf("%w: %s", ErrAttachmentNotFound, path)
		}
		return Attachment{}, fmt.Errorf("failed to stat attachment %s: %w", path, err)
	}
	if info.IsDir() {
		return Attachment{}, fmt.Errorf("attachment %s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to read attachment %s: %w", path, err)
	}

	name := filepath.Base(path)
	return Attachment{
		Filename: name,
		MimeType: TypeByFilename(name),
		Data:     data,
	}, nil
}

// LoadAttachments reads every path in order and stops at the first failure,
// so a missing file is reported before anything is sent.
func LoadAttachments(paths []string) ([]Attachment, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	out := make([]Attachment, 0, len(paths))
	for _, p := range paths {
		a, err := LoadAttachment(p)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
