package forgehook

import "strings"

// NormalizeEvent maps a provider-specific event name spelling to its
// canonical form: lowercase, with every whitespace run replaced by a
// single underscore. "Push Hook" becomes "push_hook". The transform is
// idempotent and leaves already canonical names unchanged.
func NormalizeEvent(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), "_")
}
