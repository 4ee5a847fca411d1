// content/slug.go
package content

import "strings"

// DeriveSlug turns a post title into its filename- and URL-safe identifier:
// lowercase, runs of non-alphanumeric characters collapsed to a single '-',
// leading and trailing '-' trimmed. Deriving a slug from itself is a no-op.
func DeriveSlug(title string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	return b.String()
}
