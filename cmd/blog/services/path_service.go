package services

import (
	"context"
	"fmt"

	"spacetraveling/cmd/blog/clients/prismic"
)

// PathService 는 사전 생성할 포스트 uid 표본을 고른다.
// 표본에 없는 uid 는 첫 요청 때 만들어지므로 전체 목록을 알 필요가 없다.
type PathService struct {
	store   DocumentStore
	docType string
}

func NewPathService(store DocumentStore, docType string) *PathService {
	if docType == "" {
		docType = "posts"
	}
	return &PathService{store: store, docType: docType}
}

// StaticPaths 는 가장 최근에 발행된 limit 개 포스트의 uid 를 반환한다.
func (s *PathService) StaticPaths(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	resp, err := s.store.Query(ctx, []prismic.Predicate{prismic.At(prismic.FieldType, s.docType)}, prismic.QueryOptions{
		PageSize:  limit,
		Orderings: []prismic.Ordering{prismic.Desc(prismic.FieldFirstPublicationDate)},
		Fetch:     []string{s.docType + ".title"},
	})
	if err != nil {
		return nil, fmt.Errorf("static paths: %w", err)
	}

	uids := make([]string, 0, len(resp.Results))
	for _, doc := range resp.Results {
		if doc.UID == "" {
			continue
		}
		uids = append(uids, doc.UID)
	}
	return uids, nil
}
