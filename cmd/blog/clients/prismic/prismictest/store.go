// Package prismictest 는 Prismic 검색 API 의 동작을 메모리에서 흉내 내는 저장소를 제공한다.
// 발행본(master ref)과 프리뷰 ref 별 초안 오버레이를 구분한다.
package prismictest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"spacetraveling/cmd/blog/clients/prismic"
)

const MasterRef = "master"

// QueryHook 이 에러를 반환하면 해당 쿼리는 그 에러로 실패한다.
type QueryHook func(preds []prismic.Predicate, opts prismic.QueryOptions) error

type Store struct {
	mu        sync.RWMutex
	published []prismic.Document
	previews  map[string][]prismic.Document
	hook      QueryHook
	queries   int64
}

func NewStore(docs ...prismic.Document) *Store {
	s := &Store{previews: map[string][]prismic.Document{}}
	s.Publish(docs...)
	return s
}

// Publish 는 문서를 발행본에 추가하거나(id 가 같으면) 교체한다.
func (s *Store) Publish(docs ...prismic.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = upsert(s.published, docs)
}

// Unpublish 는 발행본에서 id 가 일치하는 문서를 제거한다.
func (s *Store) Unpublish(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.published[:0]
	for _, d := range s.published {
		if d.ID != id {
			out = append(out, d)
		}
	}
	s.published = out
}

// AddPreview 는 ref 로 조회할 때만 보이는 초안 문서를 추가한다.
func (s *Store) AddPreview(ref string, docs ...prismic.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews[ref] = upsert(s.previews[ref], docs)
}

func (s *Store) SetQueryHook(h QueryHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// Queries 는 지금까지 처리한 Query 호출 수다(GetByUID/GetByID 포함).
func (s *Store) Queries() int64 {
	return atomic.LoadInt64(&s.queries)
}

func upsert(list []prismic.Document, docs []prismic.Document) []prismic.Document {
	for _, d := range docs {
		replaced := false
		for i := range list {
			if list[i].ID == d.ID {
				list[i] = d
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, d)
		}
	}
	return list
}

func (s *Store) MasterRef(ctx context.Context) (string, error) {
	return MasterRef, nil
}

func (s *Store) Health(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) GetByUID(ctx context.Context, docType, uid string, opts prismic.QueryOptions) (*prismic.Document, error) {
	return s.single(ctx, []prismic.Predicate{prismic.At(prismic.UIDField(docType), uid)}, opts)
}

func (s *Store) GetByID(ctx context.Context, id string, opts prismic.QueryOptions) (*prismic.Document, error) {
	return s.single(ctx, []prismic.Predicate{prismic.At(prismic.FieldID, id)}, opts)
}

func (s *Store) single(ctx context.Context, preds []prismic.Predicate, opts prismic.QueryOptions) (*prismic.Document, error) {
	opts.PageSize = 1
	opts.Page = 0
	resp, err := s.Query(ctx, preds, opts)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, prismic.ErrNotFound
	}
	doc := resp.Results[0]
	return &doc, nil
}

func (s *Store) Query(ctx context.Context, preds []prismic.Predicate, opts prismic.QueryOptions) (*prismic.SearchResponse, error) {
	atomic.AddInt64(&s.queries, 1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	hook := s.hook
	docs, err := s.visible(opts.Ref)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if hook != nil {
		if err := hook(preds, opts); err != nil {
			return nil, err
		}
	}

	matched := make([]prismic.Document, 0, len(docs))
	for _, d := range docs {
		if matchesAll(d, preds) {
			matched = append(matched, d)
		}
	}
	sortDocuments(matched, opts.Orderings)

	if opts.After != "" {
		idx := -1
		for i, d := range matched {
			if d.ID == opts.After {
				idx = i
				break
			}
		}
		if idx < 0 {
			matched = nil
		} else {
			matched = matched[idx+1:]
		}
	}

	return paginate(matched, opts), nil
}

func (s *Store) visible(ref string) ([]prismic.Document, error) {
	base := append([]prismic.Document(nil), s.published...)
	if ref == "" || ref == MasterRef {
		return base, nil
	}
	drafts, ok := s.previews[ref]
	if !ok {
		return nil, fmt.Errorf("prismictest: unknown ref %q: %w", ref, prismic.ErrRefNotFound)
	}
	return upsert(base, drafts), nil
}

func matchesAll(d prismic.Document, preds []prismic.Predicate) bool {
	for _, p := range preds {
		if !matches(d, p) {
			return false
		}
	}
	return true
}

func matches(d prismic.Document, p prismic.Predicate) bool {
	switch p.Op {
	case prismic.OpAt:
		switch {
		case p.Path == prismic.FieldID:
			return d.ID == p.Value
		case p.Path == prismic.FieldType:
			return d.Type == p.Value
		case strings.HasPrefix(p.Path, "my.") && strings.HasSuffix(p.Path, ".uid"):
			docType := strings.TrimSuffix(strings.TrimPrefix(p.Path, "my."), ".uid")
			return d.Type == docType && d.UID == p.Value
		}
		return false
	case prismic.OpDateAfter, prismic.OpDateBefore:
		t := dateField(d, p.Path)
		if t == nil {
			return false
		}
		// wire 형식이 밀리초 정밀도이므로 비교도 같은 단위로 한다.
		a, b := t.UnixMilli(), p.Time.UnixMilli()
		if p.Op == prismic.OpDateAfter {
			return a > b
		}
		return a < b
	}
	return false
}

func dateField(d prismic.Document, path string) *time.Time {
	switch path {
	case prismic.FieldFirstPublicationDate:
		return d.FirstPublicationDate
	case prismic.FieldLastPublicationDate:
		return d.LastPublicationDate
	}
	return nil
}

// sortDocuments 는 삽입 순서를 유지하는 안정 정렬이다. 날짜가 없는 초안은 가장 최신 문서로 취급한다.
func sortDocuments(docs []prismic.Document, orderings []prismic.Ordering) {
	if len(orderings) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range orderings {
			c := compareField(docs[i], docs[j], o.Field)
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareField(a, b prismic.Document, field string) int {
	switch field {
	case prismic.FieldID:
		return strings.Compare(a.ID, b.ID)
	case prismic.FieldFirstPublicationDate, prismic.FieldLastPublicationDate:
		ta, tb := dateField(a, field), dateField(b, field)
		switch {
		case ta == nil && tb == nil:
			return 0
		case ta == nil:
			return 1
		case tb == nil:
			return -1
		}
		return ta.Compare(*tb)
	}
	return 0
}

func paginate(docs []prismic.Document, opts prismic.QueryOptions) *prismic.SearchResponse {
	size := opts.PageSize
	if size <= 0 {
		size = 20
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	total := len(docs)
	totalPages := (total + size - 1) / size

	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	resp := &prismic.SearchResponse{
		Page:             page,
		ResultsPerPage:   size,
		ResultsSize:      end - start,
		TotalResultsSize: total,
		TotalPages:       totalPages,
		Results:          append([]prismic.Document(nil), docs[start:end]...),
	}
	if page < totalPages {
		next := fmt.Sprintf("memory://search?page=%d", page+1)
		resp.NextPage = &next
	}
	return resp
}

// Doc 은 테스트용 문서를 만든다. data 는 JSON 으로 직렬화되어 Data 에 들어간다.
func Doc(id, docType, uid string, first, last *time.Time, data any) prismic.Document {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	return prismic.Document{
		ID:                   id,
		UID:                  uid,
		Type:                 docType,
		FirstPublicationDate: first,
		LastPublicationDate:  last,
		Data:                 raw,
	}
}

// At 은 포인터 타임스탬프 헬퍼다.
func At(t time.Time) *time.Time {
	return &t
}
