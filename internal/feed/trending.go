package feed

import (
	"regexp"
	"sort"
	"strings"
)

// TrendingLimit is how many tags TrendingTags reports.
const TrendingLimit = 5

var tagPattern = regexp.MustCompile(`#(\w+)`)

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// ExtractTags returns the lower-cased hashtags of text in order of appearance,
// repeats included.
func ExtractTags(text string) []string {
	matches := tagPattern.FindAllStringSubmatch(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.ToLower(m[1]))
	}
	return tags
}

// TrendingTags counts every hashtag occurrence across contents and returns
// the top limit by count. Ties keep the order in which tags were first seen.
func TrendingTags(contents []string, limit int) []TagCount {
	var ranked []TagCount
	index := make(map[string]int)
	for _, text := range contents {
		for _, tag := range ExtractTags(text) {
			if i, ok := index[tag]; ok {
				ranked[i].Count++
				continue
			}
			index[tag] = len(ranked)
			ranked = append(ranked, TagCount{Tag: tag, Count: 1})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
