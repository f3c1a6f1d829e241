package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gosimple/slug"

	"spacetraveling/cmd/blog/clients/prismic"
	"spacetraveling/cmd/blog/dto"
	"spacetraveling/cmd/blog/trace"
	"spacetraveling/internal/logger"
)

// WordsPerMinute 는 예상 읽기 시간 계산에 쓰는 평균 읽기 속도다.
const WordsPerMinute = 200

// ErrPostNotFound 는 uid 에 해당하는 포스트가 (해당 ref 에) 없을 때 반환된다.
var ErrPostNotFound = errors.New("post not found")

// DocumentStore 는 PostAssembler 가 CMS 에 요구하는 최소 쿼리 계약이다.
type DocumentStore interface {
	GetByUID(ctx context.Context, docType, uid string, opts prismic.QueryOptions) (*prismic.Document, error)
	Query(ctx context.Context, preds []prismic.Predicate, opts prismic.QueryOptions) (*prismic.SearchResponse, error)
}

// PostAssembler 는 포스트 하나와 시간순 이웃 글을 조회해 PostView 를 만든다.
//
// - 본문 조회가 먼저 끝나야 이웃 글 쿼리의 기준 날짜를 알 수 있다.
// - 이웃 글 두 개는 동시에 조회하고, 실패해도 페이지 생성은 계속한다.
type PostAssembler struct {
	store   DocumentStore
	docType string
}

func NewPostAssembler(store DocumentStore, docType string) *PostAssembler {
	if docType == "" {
		docType = "posts"
	}
	return &PostAssembler{store: store, docType: docType}
}

// Assemble 은 uid 에 해당하는 PostView 를 만든다. previewRef 가 비어 있지 않으면
// 해당 ref(프리뷰 토큰)로 초안을 읽고 PreviewActive 를 켠다.
func (a *PostAssembler) Assemble(ctx context.Context, uid, previewRef string) (*dto.PostView, error) {
	if !slug.IsSlug(uid) {
		return nil, ErrPostNotFound
	}

	doc, err := a.store.GetByUID(ctx, a.docType, uid, prismic.QueryOptions{Ref: previewRef})
	if err != nil {
		if errors.Is(err, prismic.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("get post %q: %w", uid, err)
	}
	post, err := mapPostDocument(*doc)
	if err != nil {
		return nil, fmt.Errorf("map post %q: %w", uid, err)
	}

	var (
		wg         sync.WaitGroup
		next, prev *dto.PostDocument
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		next = a.neighbor(ctx, post, previewRef, false)
	}()
	go func() {
		defer wg.Done()
		prev = a.neighbor(ctx, post, previewRef, true)
	}()
	wg.Wait()

	return &dto.PostView{
		Post:               post,
		NextPost:           next,
		PrevPost:           prev,
		WasEdited:          WasEdited(post.FirstPublicationDate, post.LastPublicationDate),
		ReadingTimeMinutes: ReadingTimeMinutes(post.Data.Content),
		PreviewActive:      previewRef != "",
	}, nil
}

// neighbor 는 post 바로 다음(older=false) 또는 바로 이전(older=true) 글을 찾는다.
// 조회 실패는 로그만 남기고 nil 을 돌려준다.
func (a *PostAssembler) neighbor(ctx context.Context, post dto.PostDocument, previewRef string, older bool) *dto.PostDocument {
	preds, opts := a.neighborQuery(post, previewRef, older)
	direction := "next"
	if older {
		direction = "prev"
	}

	resp, err := a.store.Query(ctx, preds, opts)
	if err != nil {
		logger.WarnWithFields("neighbor post unavailable", logger.Fields{
			"uid":        post.UID,
			"direction":  direction,
			"error":      err.Error(),
			"request_id": trace.RequestIDFromContext(ctx),
		})
		return nil
	}
	if len(resp.Results) == 0 || resp.Results[0].ID == post.ID {
		return nil
	}

	n, err := mapPostDocument(resp.Results[0])
	if err != nil {
		logger.WarnWithFields("neighbor post unreadable", logger.Fields{
			"uid":       post.UID,
			"direction": direction,
			"error":     err.Error(),
		})
		return nil
	}
	return &n
}

// neighborQuery 는 발행본 조회이면서 기준 날짜가 있으면 date.after/date.before 로,
// 그 밖의 경우(프리뷰, 날짜 없는 초안)에는 after 커서로 이웃을 찾는다.
// 동일한 first_publication_date 를 가진 문서는 엄격 비교에서 제외된다.
func (a *PostAssembler) neighborQuery(post dto.PostDocument, previewRef string, older bool) ([]prismic.Predicate, prismic.QueryOptions) {
	preds := []prismic.Predicate{prismic.At(prismic.FieldType, a.docType)}
	opts := prismic.QueryOptions{Ref: previewRef, PageSize: 1}
	if older {
		opts.Orderings = []prismic.Ordering{prismic.Desc(prismic.FieldFirstPublicationDate)}
	} else {
		opts.Orderings = []prismic.Ordering{prismic.Asc(prismic.FieldFirstPublicationDate)}
	}

	if previewRef == "" && post.FirstPublicationDate != nil {
		if older {
			preds = append(preds, prismic.DateBefore(prismic.FieldFirstPublicationDate, *post.FirstPublicationDate))
		} else {
			preds = append(preds, prismic.DateAfter(prismic.FieldFirstPublicationDate, *post.FirstPublicationDate))
		}
		return preds, opts
	}

	opts.After = post.ID
	return preds, opts
}

// WasEdited 는 두 날짜가 모두 있고 마지막 발행이 최초 발행보다 엄격히 늦을 때만 true 다.
func WasEdited(first, last *time.Time) bool {
	return first != nil && last != nil && last.After(*first)
}

// ReadingTimeMinutes 는 모든 섹션 본문의 단어 수 합을 WordsPerMinute 로 나눠 올림한다.
// 본문이 비어 있으면 0 이다.
func ReadingTimeMinutes(content []dto.ContentBlock) int {
	words := 0
	for _, c := range content {
		words += c.Body.WordCount()
	}
	return (words + WordsPerMinute - 1) / WordsPerMinute
}
