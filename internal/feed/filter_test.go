package feed

import (
	"testing"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/stretchr/testify/assert"
)

func post(id, author, content string) Post {
	return Post{FeedPost: models.FeedPost{ID: id, Content: content, Author: models.UserCompact{Username: author}}}
}

func ids(posts []Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	posts := []Post{
		post("1", "ana", "hello #design world"),
		post("2", "bo", "no tag here"),
		post("3", "cy", "#Design rocks"),
		post("4", "designer", "lunch"),
	}

	tests := []struct {
		name  string
		query string
		tag   string
		want  []string
	}{
		{"empty keeps everything", "", "", []string{"1", "2", "3", "4"}},
		{"query matches content and username", "design", "", []string{"1", "3", "4"}},
		{"query is case insensitive", "HELLO", "", []string{"1"}},
		{"tag", "", "design", []string{"1", "3"}},
		{"tag with hash", "", "#DESIGN", []string{"1", "3"}},
		{"tag is a whole token", "", "des", []string{}},
		{"query and tag", "rocks", "design", []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(posts, tt.query, tt.tag)))
		})
	}
}
