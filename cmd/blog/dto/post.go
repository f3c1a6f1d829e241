package dto

import (
	"time"

	"spacetraveling/cmd/blog/richtext"
)

// PostDocument 는 CMS 의 posts 문서를 API 응답용으로 옮긴 것이다.
// 발행되지 않은 초안은 날짜가 null 이다.
type PostDocument struct {
	ID                   string     `json:"id"`
	UID                  string     `json:"uid"`
	FirstPublicationDate *time.Time `json:"first_publication_date"`
	LastPublicationDate  *time.Time `json:"last_publication_date"`
	Data                 PostData   `json:"data"`
}

type PostData struct {
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle,omitempty"`
	Banner   Banner         `json:"banner"`
	Author   string         `json:"author"`
	Content  []ContentBlock `json:"content"`
}

type Banner struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ContentBlock 은 소제목과 rich text 본문으로 이루어진 글의 한 섹션이다.
type ContentBlock struct {
	Heading string            `json:"heading"`
	Body    richtext.RichText `json:"body" swaggertype:"array,object"`
}

// PostView 는 포스트 상세 페이지를 그리는 데 필요한 데이터 전체다.
// 한 번 만들어진 뒤에는 수정하지 않는다.
type PostView struct {
	Post               PostDocument  `json:"post"`
	NextPost           *PostDocument `json:"next_post"`
	PrevPost           *PostDocument `json:"prev_post"`
	WasEdited          bool          `json:"was_edited"`
	ReadingTimeMinutes int           `json:"reading_time_minutes"`
	PreviewActive      bool          `json:"preview_active"`
}

// PostSummary 는 목록/피드에 쓰는 요약 정보다.
type PostSummary struct {
	UID                  string     `json:"uid"`
	FirstPublicationDate *time.Time `json:"first_publication_date"`
	Title                string     `json:"title"`
	Subtitle             string     `json:"subtitle"`
	Author               string     `json:"author"`
}

type PostPath struct {
	UID string `json:"uid"`
}

// StaticPathsDTO 는 사전 생성 대상 경로 목록이다. 목록에 없는 uid 는 fallback 정책에 따라
// 첫 요청 시 생성된다.
type StaticPathsDTO struct {
	Paths    []PostPath `json:"paths"`
	Fallback string     `json:"fallback" example:"blocking"`
}
