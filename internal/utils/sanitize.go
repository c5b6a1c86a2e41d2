package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// CleanText strips any markup from caller-supplied freeform text (product
// descriptions, cart and order notes) before it is persisted.
func CleanText(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}
