package services

import (
	"strings"
	"time"

	"spacetraveling/cmd/blog/clients/prismic"
	"spacetraveling/cmd/blog/clients/prismic/prismictest"
	"spacetraveling/cmd/blog/richtext"
)

func march(day int) *time.Time {
	return prismictest.At(time.Date(2021, 3, day, 19, 25, 28, 0, time.UTC))
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("palavra ", n))
}

type contentFixture struct {
	Heading string            `json:"heading"`
	Body    richtext.RichText `json:"body"`
}

type postFixture struct {
	Title    string           `json:"title"`
	Subtitle string           `json:"subtitle"`
	Author   string           `json:"author"`
	Banner   map[string]any   `json:"banner"`
	Content  []contentFixture `json:"content"`
}

func postDoc(id, uid string, first, last *time.Time, bodyWords ...int) prismic.Document {
	data := postFixture{
		Title:    "Title " + uid,
		Subtitle: "Subtitle " + uid,
		Author:   "Joseph Oliveira",
		Banner:   map[string]any{"url": "https://images.prismic.io/" + uid + ".png"},
	}
	for i, n := range bodyWords {
		data.Content = append(data.Content, contentFixture{
			Heading: "Section " + string(rune('A'+i)),
			Body:    richtext.RichText{richtext.Paragraph(words(n))},
		})
	}
	return prismictest.Doc(id, "posts", uid, first, last, data)
}

// blogStore 는 3월 1일, 5일, 10일에 발행된 세 글과 다른 타입 문서 하나를 가진다.
func blogStore() *prismictest.Store {
	return prismictest.NewStore(
		postDoc("id-old", "oldest-post", march(1), march(1), 120),
		postDoc("id-mid", "middle-post", march(5), march(8), 150, 100),
		postDoc("id-new", "newest-post", march(10), march(10)),
		prismictest.Doc("id-page", "pages", "about", march(6), march(6), map[string]string{"title": "About"}),
	)
}
