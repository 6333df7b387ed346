package ai

import (
	"fmt"
	"regexp"
)

var dataURLPattern = regexp.MustCompile(`(?s)^data:(.+?);base64,(.+)$`)

// parseDataURL splits a base64 data URL into its media type and payload.
func parseDataURL(s string) (mediaType, data string, ok bool) {
	m := dataURLPattern.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// DataURL builds a base64 data URL.
func DataURL(mediaType, b64 string) string {
	return "data:" + mediaType + ";base64," + b64
}

func hasImage(a *Attachment) bool {
	return a != nil && a.Type == AttachmentImage && a.Content != ""
}

func hasText(a *Attachment) bool {
	return a != nil && a.Type == AttachmentText && a.Content != ""
}

// withTextAttachment inlines a text attachment after the message.
func withTextAttachment(msg string, a *Attachment) string {
	if !hasText(a) {
		return msg
	}
	return fmt.Sprintf("%s\n\n[Attached File: %s]\n%s", msg, a.Name, a.Content)
}

func imagePrompt(msg string) string {
	if msg == "" {
		return defaultImagePrompt
	}
	return msg
}
