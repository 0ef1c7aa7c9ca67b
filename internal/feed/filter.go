package feed

import "strings"

// Filter keeps the posts whose content or author username contains query
// (case-insensitive) and, when tag is set, whose hashtags include it.
// A leading # on tag is optional.
func Filter(posts []Post, query, tag string) []Post {
	query = strings.ToLower(strings.TrimSpace(query))
	tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))

	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Content), query) &&
			!strings.Contains(strings.ToLower(p.Author.Username), query) {
			continue
		}
		if tag != "" && !hasTag(p.Content, tag) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func hasTag(content, tag string) bool {
	for _, t := range ExtractTags(content) {
		if t == tag {
			return true
		}
	}
	return false
}
