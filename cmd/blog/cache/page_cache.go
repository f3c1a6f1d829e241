// Package cache 는 포스트 페이지 데이터를 stale-while-revalidate 방식으로 보관한다.
//
//   - 신선한 항목은 그대로 반환한다.
//   - revalidate 주기가 지난 항목은 일단 그대로 반환하고 백그라운드에서 한 번만 재생성한다.
//   - 없는 항목은 요청 안에서 동기로 생성한다(첫 방문 fallback). 같은 uid 의 동시 요청은
//     생성을 한 번만 수행한다.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"spacetraveling/cmd/blog/dto"
	"spacetraveling/cmd/blog/services"
	"spacetraveling/cmd/blog/trace"
	"spacetraveling/internal/logger"
	"spacetraveling/models"
)

// Assembler 는 uid 로 발행본 PostView 를 만드는 쪽이다.
type Assembler interface {
	Assemble(ctx context.Context, uid, previewRef string) (*dto.PostView, error)
}

// SnapshotStore 는 재시작 후에도 생성된 페이지를 유지하기 위한 영속 저장소다.
type SnapshotStore interface {
	FindByUID(ctx context.Context, uid string) (*models.PageSnapshot, error)
	Upsert(ctx context.Context, s *models.PageSnapshot) error
	DeleteByUID(ctx context.Context, uid string) error
}

// Status 는 응답이 어느 경로로 만들어졌는지를 나타낸다(X-Cache 헤더 값).
type Status string

const (
	StatusHit   Status = "HIT"
	StatusStale Status = "STALE"
	StatusMiss  Status = "MISS"
)

type Options struct {
	Revalidate        time.Duration
	RegenerateTimeout time.Duration
	// Snapshots 가 nil 이면 메모리에만 보관한다.
	Snapshots SnapshotStore
	Now       func() time.Time
}

// generation 은 uid 별 무효화 횟수다. 생성 시작 때의 값과 끝났을 때의 값이 다르면
// 그 사이에 새 콘텐츠가 알려진 것이므로 결과를 신선한 항목으로 설치하지 않는다.
type generation struct {
	all uint64
	uid uint64
}

// entry 는 한 번 저장되면 바뀌지 않는다. 갱신은 새 entry 로 교체한다.
type entry struct {
	view        *dto.PostView
	generatedAt time.Time
	stale       bool
}

type PageCache struct {
	assembler    Assembler
	snapshots    SnapshotStore
	revalidate   time.Duration
	regenTimeout time.Duration
	now          func() time.Time

	mu       sync.RWMutex
	entries  map[string]*entry
	inflight map[string]bool
	gens     map[string]uint64
	allGen   uint64

	flight singleflight.Group
	bg     sync.WaitGroup
}

func New(assembler Assembler, opts Options) *PageCache {
	if opts.Revalidate <= 0 {
		opts.Revalidate = 300 * time.Second
	}
	if opts.RegenerateTimeout <= 0 {
		opts.RegenerateTimeout = 15 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PageCache{
		assembler:    assembler,
		snapshots:    opts.Snapshots,
		revalidate:   opts.Revalidate,
		regenTimeout: opts.RegenerateTimeout,
		now:          opts.Now,
		entries:      map[string]*entry{},
		inflight:     map[string]bool{},
		gens:         map[string]uint64{},
	}
}

// Get 은 uid 의 발행본 PostView 를 반환한다. 존재하지 않는 글은
// services.ErrPostNotFound 이며 캐시하지 않는다.
func (c *PageCache) Get(ctx context.Context, uid string) (*dto.PostView, Status, error) {
	if e := c.lookup(uid); e != nil {
		if c.fresh(e) {
			return e.view, StatusHit, nil
		}
		c.regenerateAsync(ctx, uid)
		return e.view, StatusStale, nil
	}

	// 공유 생성은 첫 요청자의 취소와 무관하게 끝까지 진행한다.
	ch := c.flight.DoChan(uid, func() (any, error) {
		gctx, cancel := context.WithTimeout(trace.Detach(ctx), c.regenTimeout)
		defer cancel()

		if e := c.lookup(uid); e != nil {
			return e, nil
		}
		if e := c.loadSnapshot(gctx, uid); e != nil {
			return e, nil
		}
		view, err := c.generate(gctx, uid)
		if err != nil {
			return nil, err
		}
		return &entry{view: view}, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, StatusMiss, ctx.Err()
	}
	if res.Err != nil {
		return nil, StatusMiss, res.Err
	}

	e := res.Val.(*entry)
	if !e.generatedAt.IsZero() && !c.fresh(e) {
		c.regenerateAsync(ctx, uid)
	}
	return e.view, StatusMiss, nil
}

// Revalidate 는 uid 를 지금 다시 생성한다. 실패하면 기존 항목을 그대로 둔다.
// 글이 사라졌다면 항목과 스냅샷을 지우고 services.ErrPostNotFound 를 반환한다.
func (c *PageCache) Revalidate(ctx context.Context, uid string) error {
	c.mu.Lock()
	c.gens[uid]++
	c.mu.Unlock()

	_, err := c.generate(ctx, uid)
	return err
}

// MarkStale 은 주어진 uid 들을 다음 요청 때 재생성되도록 표시한다.
func (c *PageCache) MarkStale(uids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, uid := range uids {
		c.gens[uid]++
		if e, ok := c.entries[uid]; ok {
			c.entries[uid] = &entry{view: e.view, generatedAt: e.generatedAt, stale: true}
		}
	}
}

func (c *PageCache) MarkAllStale() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allGen++
	for uid, e := range c.entries {
		c.entries[uid] = &entry{view: e.view, generatedAt: e.generatedAt, stale: true}
	}
}

// UIDsReferencing 는 본문 또는 이웃 글로 ids 중 하나를 포함하는 항목의 uid 목록이다.
// 두 번째 반환값은 어떤 항목에서도 찾지 못한 id 가 있었는지 여부다.
func (c *PageCache) UIDsReferencing(ids ...string) ([]string, bool) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var uids []string
	for uid, e := range c.entries {
		hit := false
		for _, doc := range []*dto.PostDocument{&e.view.Post, e.view.NextPost, e.view.PrevPost} {
			if doc == nil {
				continue
			}
			if _, ok := want[doc.ID]; ok {
				want[doc.ID] = true
				hit = true
			}
		}
		if hit {
			uids = append(uids, uid)
		}
	}

	unknown := false
	for _, seen := range want {
		if !seen {
			unknown = true
			break
		}
	}
	return uids, unknown
}

func (c *PageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Wait 은 진행 중인 백그라운드 재생성이 모두 끝날 때까지 기다린다.
func (c *PageCache) Wait() {
	c.bg.Wait()
}

func (c *PageCache) lookup(uid string) *entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[uid]
}

func (c *PageCache) fresh(e *entry) bool {
	return !e.stale && c.now().Sub(e.generatedAt) < c.revalidate
}

// generationLocked 는 c.mu 를 잡은 상태에서 호출한다.
func (c *PageCache) generationLocked(uid string) generation {
	return generation{all: c.allGen, uid: c.gens[uid]}
}

// generate 는 발행본을 새로 만들어 저장한다. 다른 오류는 기존 항목을 건드리지 않는다.
// 생성 도중 uid 가 무효화됐으면 결과는 호출자에게만 돌려주고, 항목이 없을 때만
// stale 로 채워 둔다. 스냅샷에는 쓰지 않는다.
func (c *PageCache) generate(ctx context.Context, uid string) (*dto.PostView, error) {
	c.mu.RLock()
	started := c.generationLocked(uid)
	c.mu.RUnlock()

	view, err := c.assembler.Assemble(ctx, uid, "")
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			c.evict(ctx, uid, started)
		}
		return nil, err
	}

	generatedAt := c.now()
	c.mu.Lock()
	current := c.generationLocked(uid) == started
	switch _, exists := c.entries[uid]; {
	case current:
		c.entries[uid] = &entry{view: view, generatedAt: generatedAt}
	case !exists:
		c.entries[uid] = &entry{view: view, generatedAt: generatedAt, stale: true}
	}
	c.mu.Unlock()

	if !current {
		logger.DebugWithFields("page generation outdated, not installed", logger.Fields{"uid": uid})
		return view, nil
	}
	c.saveSnapshot(ctx, uid, view, generatedAt)
	return view, nil
}

// evict 는 started 이후 uid 가 무효화되지 않았을 때만 항목과 스냅샷을 지운다.
func (c *PageCache) evict(ctx context.Context, uid string, started generation) {
	c.mu.Lock()
	if c.generationLocked(uid) != started {
		c.mu.Unlock()
		return
	}
	_, existed := c.entries[uid]
	if existed {
		c.gens[uid]++
		delete(c.entries, uid)
	}
	c.mu.Unlock()

	if existed {
		logger.InfoWithFields("page evicted", logger.Fields{"uid": uid})
	}
	if c.snapshots == nil {
		return
	}
	if err := c.snapshots.DeleteByUID(ctx, uid); err != nil {
		logger.ErrorWithFields("page snapshot delete failed", logger.Fields{"uid": uid, "error": err.Error()})
	}
}

func (c *PageCache) regenerateAsync(parent context.Context, uid string) {
	c.mu.Lock()
	if c.inflight[uid] {
		c.mu.Unlock()
		return
	}
	c.inflight[uid] = true
	c.mu.Unlock()

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.inflight, uid)
			c.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(trace.Detach(parent), c.regenTimeout)
		defer cancel()

		start := c.now()
		_, err := c.generate(ctx, uid)
		fields := logger.Fields{
			"uid":        uid,
			"duration":   c.now().Sub(start).String(),
			"request_id": trace.RequestIDFromContext(ctx),
		}
		switch {
		case err == nil:
			logger.DebugWithFields("page regenerated", fields)
		case errors.Is(err, services.ErrPostNotFound):
			logger.InfoWithFields("page removed during regeneration", fields)
		default:
			fields["error"] = err.Error()
			logger.WarnWithFields("page regeneration failed, serving stale", fields)
		}
	}()
}

func (c *PageCache) loadSnapshot(ctx context.Context, uid string) *entry {
	if c.snapshots == nil {
		return nil
	}
	s, err := c.snapshots.FindByUID(ctx, uid)
	if err != nil {
		if !errors.Is(err, models.ErrSnapshotNotFound) {
			logger.ErrorWithFields("page snapshot load failed", logger.Fields{"uid": uid, "error": err.Error()})
		}
		return nil
	}

	var view dto.PostView
	if err := json.Unmarshal(s.Payload, &view); err != nil {
		logger.ErrorWithFields("page snapshot corrupt", logger.Fields{"uid": uid, "error": err.Error()})
		return nil
	}

	e := &entry{view: &view, generatedAt: s.GeneratedAt}
	c.mu.Lock()
	c.entries[uid] = e
	c.mu.Unlock()
	return e
}

func (c *PageCache) saveSnapshot(ctx context.Context, uid string, view *dto.PostView, generatedAt time.Time) {
	if c.snapshots == nil {
		return
	}
	payload, err := json.Marshal(view)
	if err != nil {
		logger.ErrorWithFields("page snapshot encode failed", logger.Fields{"uid": uid, "error": err.Error()})
		return
	}
	if err := c.snapshots.Upsert(ctx, &models.PageSnapshot{
		UID:         uid,
		PostID:      view.Post.ID,
		Payload:     payload,
		GeneratedAt: generatedAt,
	}); err != nil {
		logger.ErrorWithFields("page snapshot save failed", logger.Fields{"uid": uid, "error": err.Error()})
	}
}
