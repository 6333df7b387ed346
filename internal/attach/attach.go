// Package attach turns local files into message attachments.
package attach

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/multiai/cli/internal/ai"
	"github.com/multiai/cli/internal/logging"
)

// MaxPDFPages is how many pages of a PDF are extracted.
const MaxPDFPages = 50

// Load reads path and builds an attachment for it.
func Load(path string) (*ai.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	return FromBytes(filepath.Base(path), data), nil
}

// FromBytes builds an attachment for a file called name. Images become data URLs, PDFs
// become extracted text and anything else is sent as text.
func FromBytes(name string, data []byte) *ai.Attachment {
	mediaType := DetectType(name, data)

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return &ai.Attachment{
			Type:     ai.AttachmentImage,
			Content:  ai.DataURL(mediaType, base64.StdEncoding.EncodeToString(data)),
			Name:     name,
			MimeType: mediaType,
		}
	case mediaType == "application/pdf" || strings.HasSuffix(strings.ToLower(name), ".pdf"):
		text, err := ExtractPDFText(data)
		if err != nil {
			logging.Warn("PDF extraction failed, sending raw PDF", "file", name, "error", err)
			return &ai.Attachment{
				Type:     ai.AttachmentImage,
				Content:  ai.DataURL("application/pdf", base64.StdEncoding.EncodeToString(data)),
				Name:     name,
				MimeType: "application/pdf",
			}
		}
		return &ai.Attachment{Type: ai.AttachmentText, Content: text, Name: name, MimeType: "text/plain"}
	default:
		return &ai.Attachment{Type: ai.AttachmentText, Content: string(data), Name: name, MimeType: mediaType}
	}
}

// DetectType guesses the media type from the file extension, then the content.
func DetectType(name string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
		return t
	}
	t := http.DetectContentType(data)
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}

// ExtractPDFText returns the plain text of the first MaxPDFPages pages.
func ExtractPDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	total := r.NumPage()
	n := min(total, MaxPDFPages)

	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(s))
	}
	return FormatPages(pages, total), nil
}

// FormatPages lays out extracted page texts, noting when only part of the document is shown.
func FormatPages(pages []string, total int) string {
	parts := make([]string, 0, len(pages)+1)
	for i, p := range pages {
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i+1, p))
	}
	if total > MaxPDFPages {
		parts = append(parts, fmt.Sprintf("\n... (Showing first %d of %d pages)", MaxPDFPages, total))
	}
	return strings.Join(parts, "\n\n")
}
