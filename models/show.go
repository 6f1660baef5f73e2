package models

import "strings"

// Show is a catalog (Plex) show with its external identifiers.
type Show struct {
	RatingKey string
	Title     string
	Guids     []string // e.g. "tmdb://1399", "tvdb://121361", "imdb://tt0944947"
}

// ProviderID returns the id of the first guid in the given namespace
// ("tmdb", "tvdb", "imdb"), or "" when the show has none.
func (s Show) ProviderID(namespace string) string {
	prefix := namespace + "://"
	for _, g := range s.Guids {
		if i := strings.Index(g, prefix); i >= 0 {
			if id := g[i+len(prefix):]; id != "" {
				return id
			}
		}
	}
	return ""
}
