// Package richtext 는 Prismic structured text 를 다룬다.
// 블록 원본 JSON 은 그대로 보존해 HTML 직렬화를 담당하는 쪽에 넘긴다.
package richtext

import (
	"encoding/json"
	"strings"
)

// 자주 쓰는 블록 타입.
const (
	TypeParagraph = "paragraph"
	TypeHeading2  = "heading2"
	TypeListItem  = "list-item"
	TypeImage     = "image"
	TypeEmbed     = "embed"
)

// Block 은 rich text 블록 하나다. Type/Text 만 해석하고 나머지(spans, url 등)는
// raw 로 들고 다닌다.
type Block struct {
	Type string
	Text string
	raw  json.RawMessage
}

type blockHead struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Spans []any  `json:"spans"`
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var head blockHead
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	b.Type = head.Type
	b.Text = head.Text
	b.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (b Block) MarshalJSON() ([]byte, error) {
	if len(b.raw) > 0 {
		return b.raw, nil
	}
	return json.Marshal(blockHead{Type: b.Type, Text: b.Text, Spans: []any{}})
}

// Paragraph 는 서식 없는 문단 블록을 만든다.
func Paragraph(text string) Block {
	return Block{Type: TypeParagraph, Text: text}
}

type RichText []Block

// AsText 는 텍스트를 가진 블록들의 본문을 공백 하나로 이어 붙인다.
// 이미지/임베드처럼 텍스트가 없는 블록은 건너뛴다.
func (r RichText) AsText() string {
	parts := make([]string, 0, len(r))
	for _, b := range r {
		if b.Text == "" {
			continue
		}
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, " ")
}

// WordCount 는 공백(유니코드 공백 포함) 연속 구간으로 나눈 토큰 수다.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

func (r RichText) WordCount() int {
	return WordCount(r.AsText())
}
