// Package slug derives URL and file-name friendly names.
package slug

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// Make lower-cases and transliterates s to ASCII, collapsing every run of
// non-alphanumerics into a single dash. "Next Airing" -> "next-airing".
func Make(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(unidecode.Unidecode(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// FileName lower-cases name and replaces spaces with dashes, keeping other characters.
func FileName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
