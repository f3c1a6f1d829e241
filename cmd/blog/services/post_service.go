package services

import (
	"context"
	"fmt"
	"time"

	"spacetraveling/cmd/blog/clients/prismic"
	"spacetraveling/cmd/blog/dto"
	"spacetraveling/internal/logger"
)

const maxPageSize = 100

// PostService 는 홈 화면 목록, 피드, 사이트맵이 쓰는 목록성 조회를 담당한다.
type PostService struct {
	store           DocumentStore
	docType         string
	defaultPageSize int
}

func NewPostService(store DocumentStore, docType string, defaultPageSize int) *PostService {
	if docType == "" {
		docType = "posts"
	}
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	return &PostService{store: store, docType: docType, defaultPageSize: defaultPageSize}
}

type ListPostsInput struct {
	Page     int
	PageSize int
	// Ref 가 있으면 프리뷰 ref 로 목록을 읽는다.
	Ref string
}

// List 는 최초 발행일 내림차순으로 포스트 요약을 페이지 단위로 반환한다.
func (s *PostService) List(ctx context.Context, in ListPostsInput) (dto.Pagination[dto.PostSummary], error) {
	if in.Page <= 0 {
		in.Page = 1
	}
	if in.PageSize <= 0 {
		in.PageSize = s.defaultPageSize
	}
	if in.PageSize > maxPageSize {
		in.PageSize = maxPageSize
	}

	resp, err := s.store.Query(ctx, []prismic.Predicate{prismic.At(prismic.FieldType, s.docType)}, prismic.QueryOptions{
		Ref:       in.Ref,
		Page:      in.Page,
		PageSize:  in.PageSize,
		Orderings: []prismic.Ordering{prismic.Desc(prismic.FieldFirstPublicationDate)},
		Fetch:     s.summaryFields(),
	})
	if err != nil {
		return dto.Pagination[dto.PostSummary]{}, fmt.Errorf("list posts: %w", err)
	}

	out := make([]dto.PostSummary, 0, len(resp.Results))
	for _, doc := range resp.Results {
		p, err := mapPostSummary(doc)
		if err != nil {
			logger.Log.Warnf("skip unreadable post %s: %v", doc.ID, err)
			continue
		}
		out = append(out, p)
	}

	page := dto.Pagination[dto.PostSummary]{
		Data:     out,
		Page:     in.Page,
		PageSize: in.PageSize,
		Total:    int64(resp.TotalResultsSize),
	}
	if resp.NextPage != nil {
		next := in.Page + 1
		page.NextPage = &next
	}
	return page, nil
}

func (s *PostService) summaryFields() []string {
	return []string{s.docType + ".title", s.docType + ".subtitle", s.docType + ".author"}
}

// SitemapEntry 는 사이트맵 한 줄에 필요한 값이다.
type SitemapEntry struct {
	UID          string
	LastModified time.Time
}

// maxWalkPages 는 전체 순회가 끝없이 이어지지 않도록 막는 상한이다.
const maxWalkPages = 50

// AllPublished 는 발행된 모든 포스트의 uid 와 마지막 수정 시각을 모은다.
func (s *PostService) AllPublished(ctx context.Context) ([]SitemapEntry, error) {
	var out []SitemapEntry
	for page := 1; page <= maxWalkPages; page++ {
		resp, err := s.store.Query(ctx, []prismic.Predicate{prismic.At(prismic.FieldType, s.docType)}, prismic.QueryOptions{
			Page:      page,
			PageSize:  maxPageSize,
			Orderings: []prismic.Ordering{prismic.Desc(prismic.FieldFirstPublicationDate)},
			Fetch:     []string{s.docType + ".title"},
		})
		if err != nil {
			return nil, fmt.Errorf("walk posts page %d: %w", page, err)
		}
		for _, doc := range resp.Results {
			entry := SitemapEntry{UID: doc.UID}
			switch {
			case doc.LastPublicationDate != nil:
				entry.LastModified = *doc.LastPublicationDate
			case doc.FirstPublicationDate != nil:
				entry.LastModified = *doc.FirstPublicationDate
			}
			out = append(out, entry)
		}
		if resp.NextPage == nil {
			break
		}
	}
	return out, nil
}
