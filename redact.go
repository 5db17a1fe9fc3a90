package wikigate

import "fmt"

// TokenPreview renders a token key safe for logs: a short prefix and the
// length. Token secrets must never be logged, previewed or otherwise.
func TokenPreview(key string) string {
	const prefixLen = 6
	if key == "" {
		return "NOT_SET"
	}
	if len(key) <= prefixLen {
		return fmt.Sprintf("%s... (len %d)", key[:1], len(key))
	}
	return fmt.Sprintf("%s... (len %d)", key[:prefixLen], len(key))
}
