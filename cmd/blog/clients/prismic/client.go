package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"spacetraveling/cmd/blog/httpclient"
	"spacetraveling/config"
)

// Client는 Prismic REST API v2 를 호출하는 얇은 클라이언트다.
//
// - 쿼리 언어는 서비스가 실제로 쓰는 at/date.after/date.before 만 지원한다.
// - ref 를 지정하지 않은 호출은 캐시된 master ref 로 발행본을 읽는다.
//
// endpoint 예: https://spacetraveling.cdn.prismic.io
type Client struct {
	base        *httpclient.BaseClient
	accessToken string
	refTTL      time.Duration

	mu           sync.Mutex
	masterRef    string
	refFetchedAt time.Time
	now          func() time.Time
}

// ErrRefNotFound 는 검색 API 가 ref 를 거부했을 때(404 api_notfound_error, 410 만료) 돌려준다.
// 문서가 없다는 뜻이 아니다.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrRefNotFound  = errors.New("prismic: ref not found or expired")
	ErrNoMasterRef  = errors.New("prismic: repository has no master ref")
	errEmptyRequest = errors.New("prismic: empty identifier")
)

type Options struct {
	Endpoint    string
	AccessToken string
	Timeout     time.Duration
	RefCacheTTL time.Duration
	// HTTPClient 가 nil 이면 로깅 라운드트리퍼가 달린 기본 클라이언트를 쓴다.
	HTTPClient *http.Client
}

// QueryOptions 는 검색 API 의 선택 파라미터다. 0 값 필드는 전송하지 않는다.
type QueryOptions struct {
	// Ref 가 비어 있으면 master ref 를 사용한다. 프리뷰 토큰도 ref 로 그대로 넘긴다.
	Ref       string
	PageSize  int
	Page      int
	After     string
	Orderings []Ordering
	Fetch     []string
	Lang      string
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.Config{Timeout: opts.Timeout})
	}
	ttl := opts.RefCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Client{
		base:        httpclient.NewBaseClientWithClient(httpClient, normalizeEndpoint(opts.Endpoint)),
		accessToken: opts.AccessToken,
		refTTL:      ttl,
		now:         time.Now,
	}
}

func NewFromConfig(cfg config.PrismicConfig) *Client {
	return New(Options{
		Endpoint:    cfg.Endpoint,
		AccessToken: cfg.AccessToken,
		Timeout:     cfg.Timeout,
		RefCacheTTL: cfg.RefCacheTTL,
	})
}

// normalizeEndpoint 는 ".../api/v2" 까지 포함해 설정된 경우도 허용한다.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	endpoint = strings.TrimSuffix(endpoint, "/api/v2")
	return endpoint
}

// MasterRef 는 발행본 ref 를 반환한다. refTTL 동안은 캐시된 값을 재사용한다.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.masterRef != "" && c.now().Sub(c.refFetchedAt) < c.refTTL {
		ref := c.masterRef
		c.mu.Unlock()
		return ref, nil
	}
	c.mu.Unlock()

	ref, err := c.fetchMasterRef(ctx)
	if err != nil {
		return "", err
	}
	c.SetMasterRef(ref)
	return ref, nil
}

// SetMasterRef 는 웹훅이 알려 준 최신 master ref 를 즉시 반영한다.
func (c *Client) SetMasterRef(ref string) {
	if ref == "" {
		return
	}
	c.mu.Lock()
	c.masterRef = ref
	c.refFetchedAt = c.now()
	c.mu.Unlock()
}

func (c *Client) fetchMasterRef(ctx context.Context) (string, error) {
	var out apiResponse
	if err := c.getJSON(ctx, "/api/v2", c.authQuery(), &out, "MasterRef", ErrNotFound); err != nil {
		return "", err
	}
	for _, r := range out.Refs {
		if r.IsMasterRef {
			return r.Ref, nil
		}
	}
	return "", ErrNoMasterRef
}

// Health 는 캐시를 거치지 않고 API 엔트리포인트에 접근 가능한지 확인한다.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.fetchMasterRef(ctx)
	return err
}

// GetByUID 는 docType 문서 중 uid 가 일치하는 문서 하나를 조회한다.
func (c *Client) GetByUID(ctx context.Context, docType, uid string, opts QueryOptions) (*Document, error) {
	if uid == "" {
		return nil, errEmptyRequest
	}
	return c.getSingle(ctx, []Predicate{At(UIDField(docType), uid)}, opts)
}

// GetByID 는 문서 id 로 조회한다. 프리뷰 진입 시 documentId 를 uid 로 바꾸는 데 쓴다.
func (c *Client) GetByID(ctx context.Context, id string, opts QueryOptions) (*Document, error) {
	if id == "" {
		return nil, errEmptyRequest
	}
	return c.getSingle(ctx, []Predicate{At(FieldID, id)}, opts)
}

func (c *Client) getSingle(ctx context.Context, preds []Predicate, opts QueryOptions) (*Document, error) {
	opts.PageSize = 1
	opts.Page = 0
	resp, err := c.Query(ctx, preds, opts)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}
	doc := resp.Results[0]
	return &doc, nil
}

// Query 는 GET /api/v2/documents/search 를 호출한다.
func (c *Client) Query(ctx context.Context, preds []Predicate, opts QueryOptions) (*SearchResponse, error) {
	ref := opts.Ref
	if ref == "" {
		var err error
		ref, err = c.MasterRef(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve master ref: %w", err)
		}
	}

	q := c.authQuery()
	q.Set("ref", ref)
	if len(preds) > 0 {
		q.Set("q", encodePredicates(preds))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.After != "" {
		q.Set("after", opts.After)
	}
	if len(opts.Orderings) > 0 {
		q.Set("orderings", encodeOrderings(opts.Orderings))
	}
	if len(opts.Fetch) > 0 {
		q.Set("fetch", strings.Join(opts.Fetch, ","))
	}
	if opts.Lang != "" {
		q.Set("lang", opts.Lang)
	}

	// 검색 결과 없음은 200 + 빈 results 다. 404 는 ref 나 저장소가 거부된 경우다.
	var out SearchResponse
	if err := c.getJSON(ctx, "/api/v2/documents/search", q, &out, "Query", ErrRefNotFound); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) authQuery() url.Values {
	q := url.Values{}
	if c.accessToken != "" {
		q.Set("access_token", c.accessToken)
	}
	return q
}

func (c *Client) getJSON(ctx context.Context, relPath string, q url.Values, out any, op string, notFound error) error {
	req, err := c.base.NewRequest(ctx, http.MethodGet, relPath, q)
	if err != nil {
		return err
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("prismic %s: %w", op, notFound)
	case http.StatusGone:
		return fmt.Errorf("prismic %s: %w", op, ErrRefNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("prismic %s: status=%d body=%s", op, resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("prismic %s: decode: %w", op, err)
	}
	return nil
}
