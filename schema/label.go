package schema

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TabLabel derives a short display name from a tab URL: the label left of the
// public suffix, split on '-' and '_', title-cased and joined.
func TabLabel(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Tab"
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return "Tab"
	}
	labels := strings.Split(parsed.Hostname(), ".")
	name := labels[0]
	if len(labels) >= 2 {
		name = labels[len(labels)-2]
	}
	var b strings.Builder
	for _, word := range strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' }) {
		first, size := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(first))
		b.WriteString(strings.ToLower(word[size:]))
	}
	if b.Len() == 0 {
		return "Tab"
	}
	return b.String()
}
