package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Attachment processing errors.
var (
	// ErrUnsupportedAttachment marks file types no collaborator can read.
	ErrUnsupportedAttachment = errors.New("bot: unsupported attachment")

	// ErrEmptyAttachment marks files that yielded no text.
	ErrEmptyAttachment = errors.New("bot: attachment yielded no text")
)

// DocumentParser extracts readable text from an uploaded document so it
// can be quoted into the prompt.
type DocumentParser interface {
	Parse(ctx context.Context, filename string, data []byte) (string, error)
}

// ImageTextExtractor pulls text out of an uploaded image.
type ImageTextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// PlainTextParser handles plain-text document uploads (.txt, .md, .csv
// and anything that decodes as UTF-8). Other formats are reported as
// unsupported so the user gets a clear notice instead of garbage.
type PlainTextParser struct {
	// MaxChars caps the extracted text. Zero means no cap.
	MaxChars int
}

func (p PlainTextParser) Parse(_ context.Context, filename string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAttachment, filename)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyAttachment, filename)
	}
	if p.MaxChars > 0 {
		if r := []rune(text); len(r) > p.MaxChars {
			text = string(r[:p.MaxChars])
		}
	}
	return text, nil
}

// NoopImageExtractor rejects every image. It stands in until an OCR
// backend is wired up.
type NoopImageExtractor struct{}

func (NoopImageExtractor) Extract(_ context.Context, filename string, _ []byte) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrUnsupportedAttachment, filename)
}

var (
	_ DocumentParser     = PlainTextParser{}
	_ ImageTextExtractor = NoopImageExtractor{}
)
