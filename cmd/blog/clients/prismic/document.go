package prismic

import (
	"encoding/json"
	"fmt"
	"time"
)

// Prismic 은 타임존 오프셋에 콜론이 없는 형식(2021-03-15T19:25:28+0000)을 쓴다.
const timestampLayout = "2006-01-02T15:04:05-0700"

// Document 는 검색 API 가 돌려주는 문서 하나다. Data 는 custom type 마다
// 모양이 다르므로 호출자가 직접 디코딩한다.
type Document struct {
	ID                   string
	UID                  string
	Type                 string
	Href                 string
	Lang                 string
	Tags                 []string
	FirstPublicationDate *time.Time
	LastPublicationDate  *time.Time
	Data                 json.RawMessage
}

type wireDocument struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid"`
	Type                 string          `json:"type"`
	Href                 string          `json:"href,omitempty"`
	Lang                 string          `json:"lang,omitempty"`
	Tags                 []string        `json:"tags,omitempty"`
	FirstPublicationDate *string         `json:"first_publication_date"`
	LastPublicationDate  *string         `json:"last_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

func (d *Document) UnmarshalJSON(b []byte) error {
	var w wireDocument
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	first, err := parseTimestamp(w.FirstPublicationDate)
	if err != nil {
		return fmt.Errorf("document %s first_publication_date: %w", w.ID, err)
	}
	last, err := parseTimestamp(w.LastPublicationDate)
	if err != nil {
		return fmt.Errorf("document %s last_publication_date: %w", w.ID, err)
	}
	*d = Document{
		ID:                   w.ID,
		UID:                  w.UID,
		Type:                 w.Type,
		Href:                 w.Href,
		Lang:                 w.Lang,
		Tags:                 w.Tags,
		FirstPublicationDate: first,
		LastPublicationDate:  last,
		Data:                 w.Data,
	}
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireDocument{
		ID:                   d.ID,
		UID:                  d.UID,
		Type:                 d.Type,
		Href:                 d.Href,
		Lang:                 d.Lang,
		Tags:                 d.Tags,
		FirstPublicationDate: formatTimestamp(d.FirstPublicationDate),
		LastPublicationDate:  formatTimestamp(d.LastPublicationDate),
		Data:                 d.Data,
	})
}

// DecodeData 는 Data 를 out 으로 언마샬한다. Data 가 비어 있으면 아무것도 하지 않는다.
func (d Document) DecodeData(out any) error {
	if len(d.Data) == 0 || string(d.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(d.Data, out); err != nil {
		return fmt.Errorf("decode data of %s: %w", d.ID, err)
	}
	return nil
}

func parseTimestamp(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(timestampLayout, *s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, *s)
		if err != nil {
			return nil, err
		}
	}
	t = t.UTC()
	return &t, nil
}

func formatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timestampLayout)
	return &s
}

// SearchResponse 는 /api/v2/documents/search 응답 본문이다.
type SearchResponse struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Ref 는 저장소의 콘텐츠 리비전 하나를 가리킨다. 마스터 ref 가 발행본이다.
type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

type apiResponse struct {
	Refs []Ref `json:"refs"`
}
