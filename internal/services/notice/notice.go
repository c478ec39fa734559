// Package notice prepares messages that are shown to shoppers.
package notice

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const contactSuffix = ".  Please contact the store administrator"

// DeletedPaymentMethod is shown after a stored card is removed
const DeletedPaymentMethod = "Successfully deleted your information!"

var strict = bluemonday.StrictPolicy()

// ForError derives a shopper-facing notice from an internal error message.
// Processor bodies are appended to messages as raw JSON, so only the text
// before the first '{' is kept. Markup is stripped.
func ForError(message string) string {
	text := message
	if i := strings.IndexByte(text, '{'); i >= 0 {
		text = text[:i]
	}
	return Clean(text) + contactSuffix
}

// Clean strips markup from text and trims surrounding whitespace
func Clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(text)))
}
