package services

import (
	"encoding/json"
	"fmt"

	"spacetraveling/cmd/blog/clients/prismic"
	"spacetraveling/cmd/blog/dto"
	"spacetraveling/cmd/blog/richtext"
)

// textField 는 key text(문자열)와 rich text(블록 배열) 둘 다 받아 평문으로 만든다.
// 저장소마다 title 을 어느 쪽으로 모델링했는지가 다르다.
type textField string

func (t *textField) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = textField(s)
		return nil
	}
	var rt richtext.RichText
	if err := json.Unmarshal(b, &rt); err != nil {
		return fmt.Errorf("text field: %w", err)
	}
	*t = textField(rt.AsText())
	return nil
}

type postData struct {
	Title    textField `json:"title"`
	Subtitle textField `json:"subtitle"`
	Author   textField `json:"author"`
	Banner   struct {
		URL string `json:"url"`
		Alt string `json:"alt"`
	} `json:"banner"`
	Content []struct {
		Heading textField         `json:"heading"`
		Body    richtext.RichText `json:"body"`
	} `json:"content"`
}

func mapPostDocument(doc prismic.Document) (dto.PostDocument, error) {
	var data postData
	if err := doc.DecodeData(&data); err != nil {
		return dto.PostDocument{}, err
	}

	content := make([]dto.ContentBlock, 0, len(data.Content))
	for _, c := range data.Content {
		body := c.Body
		if body == nil {
			body = richtext.RichText{}
		}
		content = append(content, dto.ContentBlock{
			Heading: string(c.Heading),
			Body:    body,
		})
	}

	return dto.PostDocument{
		ID:                   doc.ID,
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate,
		LastPublicationDate:  doc.LastPublicationDate,
		Data: dto.PostData{
			Title:    string(data.Title),
			Subtitle: string(data.Subtitle),
			Author:   string(data.Author),
			Banner:   dto.Banner{URL: data.Banner.URL, Alt: data.Banner.Alt},
			Content:  content,
		},
	}, nil
}

func mapPostSummary(doc prismic.Document) (dto.PostSummary, error) {
	var data postData
	if err := doc.DecodeData(&data); err != nil {
		return dto.PostSummary{}, err
	}
	return dto.PostSummary{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate,
		Title:                string(data.Title),
		Subtitle:             string(data.Subtitle),
		Author:               string(data.Author),
	}, nil
}
