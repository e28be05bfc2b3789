// Package render is the presentation boundary: it turns untrusted summary
// text into minimal safe markup and maps session outcomes to user-facing
// status text. The sanitization rules are a compatibility contract with the
// page that displays the result and must not be loosened or reordered.
package render

import (
	"regexp"
	"strings"

	"github.com/briangreenhill/topicsum/internal/session"
)

var urlPattern = regexp.MustCompile(`(https?://[^\s]+)`)

// Sanitize escapes all markup in raw, re-enables the small fixed set of
// formatting tags (<b>, <i>), and wraps bare URLs in anchors that do not
// leak the opener. Order matters: escape first, then allowlist, then
// auto-link.
func Sanitize(raw string) string {
	s := raw
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "'", "&#x27;")

	s = strings.ReplaceAll(s, "&lt;b&gt;", "<b>")
	s = strings.ReplaceAll(s, "&lt;/b&gt;", "</b>")
	s = strings.ReplaceAll(s, "&lt;i&gt;", "<i>")
	s = strings.ReplaceAll(s, "&lt;/i&gt;", "</i>")

	return urlPattern.ReplaceAllString(s,
		`<a href="$1" target="_blank" rel="noopener noreferrer">$1</a>`)
}

// StatusText renders a terminal outcome as plain user-facing text. Completed
// outcomes carry their own payload and cancelled ones are silent; both map
// to the empty string.
func StatusText(o session.Outcome) string {
	switch o.Kind {
	case session.OutcomeTimedOut:
		return "Generating the summary is taking longer than expected. Come back a little later."
	case session.OutcomeFailed:
		switch o.Reason {
		case session.ReasonInvalidDate:
			return "Summaries are only available for yesterday and earlier days."
		case session.ReasonMissingTopic:
			return "Unable to determine the topic identifier."
		case session.ReasonServer:
			return "An error occurred, try again later."
		default:
			return "Error communicating with the server."
		}
	}
	return ""
}
