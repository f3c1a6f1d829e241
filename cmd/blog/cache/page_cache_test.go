package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacetraveling/cmd/blog/clients/prismic"
	"spacetraveling/cmd/blog/dto"
	"spacetraveling/cmd/blog/services"
	"spacetraveling/models"
)

type fakeAssembler struct {
	mu      sync.Mutex
	version map[string]int
	errs    map[string]error
	calls   int64
	gate    chan struct{}
	// pause 는 다음 한 번의 호출이 콘텐츠를 읽은 뒤 멈추게 한다.
	pause *pausePoint
}

type pausePoint struct {
	reached chan struct{}
	release chan struct{}
}

func (f *fakeAssembler) pauseNext() *pausePoint {
	p := &pausePoint{reached: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.pause = p
	f.mu.Unlock()
	return p
}

func newFakeAssembler(uids ...string) *fakeAssembler {
	f := &fakeAssembler{version: map[string]int{}, errs: map[string]error{}}
	for _, uid := range uids {
		f.version[uid] = 1
	}
	return f
}

func (f *fakeAssembler) Assemble(ctx context.Context, uid, previewRef string) (*dto.PostView, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	err := f.errs[uid]
	v, ok := f.version[uid]
	p := f.pause
	f.pause = nil
	f.mu.Unlock()

	if p != nil {
		close(p.reached)
		<-p.release
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, services.ErrPostNotFound
	}
	return &dto.PostView{
		Post: dto.PostDocument{
			ID:   "id-" + uid,
			UID:  uid,
			Data: dto.PostData{Title: fmt.Sprintf("%s v%d", uid, v)},
		},
		NextPost: &dto.PostDocument{ID: "id-next-of-" + uid},
	}, nil
}

func (f *fakeAssembler) bump(uid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version[uid]++
}

func (f *fakeAssembler) fail(uid string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[uid] = err
}

func (f *fakeAssembler) remove(uid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.version, uid)
}

func (f *fakeAssembler) Calls() int64 {
	return atomic.LoadInt64(&f.calls)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memSnapshots struct {
	mu   sync.Mutex
	data map[string]models.PageSnapshot
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{data: map[string]models.PageSnapshot{}}
}

func (m *memSnapshots) FindByUID(ctx context.Context, uid string) (*models.PageSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[uid]
	if !ok {
		return nil, models.ErrSnapshotNotFound
	}
	return &s, nil
}

func (m *memSnapshots) Upsert(ctx context.Context, s *models.PageSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.UID] = *s
	return nil
}

func (m *memSnapshots) DeleteByUID(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, uid)
	return nil
}

func newTestCache(a Assembler, snapshots SnapshotStore) (*PageCache, *clock) {
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := New(a, Options{
		Revalidate: 300 * time.Second,
		Snapshots:  snapshots,
		Now:        clk.Now,
	})
	return c, clk
}

func title(v *dto.PostView) string {
	return v.Post.Data.Title
}

func TestGetMissThenHit(t *testing.T) {
	a := newFakeAssembler("hello-world")
	c, _ := newTestCache(a, nil)

	view, status, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, StatusMiss, status)
	assert.Equal(t, "hello-world v1", title(view))

	view, status, err = c.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, StatusHit, status)
	assert.Equal(t, "hello-world v1", title(view))
	assert.Equal(t, int64(1), a.Calls())
}

func TestGetNotFoundIsNotCached(t *testing.T) {
	a := newFakeAssembler()
	c, _ := newTestCache(a, nil)

	for i := 0; i < 2; i++ {
		_, _, err := c.Get(context.Background(), "ghost")
		assert.True(t, errors.Is(err, services.ErrPostNotFound))
	}
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(2), a.Calls())
}

func TestGetStaleServesOldAndRegeneratesInBackground(t *testing.T) {
	a := newFakeAssembler("hello-world")
	c, clk := newTestCache(a, nil)

	_, _, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)

	a.bump("hello-world")
	clk.Advance(301 * time.Second)

	view, status, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	assert.Equal(t, "hello-world v1", title(view))

	c.Wait()

	view, status, err = c.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, StatusHit, status)
	assert.Equal(t, "hello-world v2", title(view))
}

func TestGetWithinIntervalDoesNotRegenerate(t *testing.T) {
	a := newFakeAssembler("hello-world")
	c, clk := newTestCache(a, nil)

	_, _, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	clk.Advance(299 * time.Second)

	_, status, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	c.Wait()

	assert.Equal(t, StatusHit, status)
	assert.Equal(t, int64(1), a.Calls())
}

func TestRegenerationFailureKeepsStaleView(t *testing.T) {
	a := newFakeAssembler("hello-world")
	c, clk := newTestCache(a, nil)

	_, _, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)

	a.fail("hello-world", errors.New("cms timeout"))
	clk.Advance(10 * time.Minute)

	_, status, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	c.Wait()

	view, status, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	assert.Equal(t, "hello-world v1", title(view))
	c.Wait()
}

func TestRegenerationOfRemovedPostEvicts(t *testing.T) {
	a := newFakeAssembler("hello-world")
	snaps := newMemSnapshots()
	c, clk := newTestCache(a, snaps)

	_, _, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	require.Len(t, snaps.data, 1)

	a.remove("hello-world")
	clk.Advance(10 * time.Minute)

	_, status, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	c.Wait()

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, snaps.data)
	_, _, err = c.Get(context.Background(), "hello-world")
	assert.True(t, errors.Is(err, services.ErrPostNotFound))
}

func TestConcurrentMissesShareOneGeneration(t *testing.T) {
	a := newFakeAssembler("hello-world")
	a.gate = make(chan struct{})
	c, _ := newTestCache(a, nil)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			view, _, err := c.Get(context.Background(), "hello-world")
			if err == nil {
				results[i] = title(view)
			}
		}(i)
	}

	require.Eventually(t, func() bool { return a.Calls() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(a.gate)
	wg.Wait()

	assert.Equal(t, int64(1), a.Calls())
	for _, got := range results {
		assert.Equal(t, "hello-world v1", got)
	}
}

func TestStaleTriggersSingleBackgroundRegeneration(t *testing.T) {
	a := newFakeAssembler("hello-world")
	c, clk := newTestCache(a, nil)

	_, _, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)

	a.gate = make(chan struct{})
	clk.Advance(10 * time.Minute)
	for i := 0; i < 5; i++ {
		_, status, err := c.Get(context.Background(), "hello-world")
		require.NoError(t, err)
		assert.Equal(t, StatusStale, status)
	}
	close(a.gate)
	c.Wait()

	assert.Equal(t, int64(2), a.Calls())
}

func TestSnapshotsSurviveRestart(t *testing.T) {
	snaps := newMemSnapshots()
	a := newFakeAssembler("hello-world")
	first, _ := newTestCache(a, snaps)

	_, _, err := first.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	require.Contains(t, snaps.data, "hello-world")
	assert.Equal(t, "id-hello-world", snaps.data["hello-world"].PostID)

	a.bump("hello-world")
	second, _ := newTestCache(a, snaps)

	view, status, err := second.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	second.Wait()

	assert.Equal(t, StatusMiss, status)
	assert.Equal(t, "hello-world v1", title(view))
	assert.Equal(t, int64(1), a.Calls())
}

func TestStaleSnapshotIsServedAndRefreshed(t *testing.T) {
	snaps := newMemSnapshots()
	a := newFakeAssembler("hello-world")
	first, clk := newTestCache(a, snaps)
	_, _, err := first.Get(context.Background(), "hello-world")
	require.NoError(t, err)

	a.bump("hello-world")
	second := New(a, Options{
		Revalidate: 300 * time.Second,
		Snapshots:  snaps,
		Now:        func() time.Time { return clk.Now().Add(time.Hour) },
	})

	view, _, err := second.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, "hello-world v1", title(view))
	second.Wait()

	view, status, err := second.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, StatusHit, status)
	assert.Equal(t, "hello-world v2", title(view))
}

func TestRevalidateAndMarkStale(t *testing.T) {
	a := newFakeAssembler("one", "two")
	c, _ := newTestCache(a, nil)

	for _, uid := range []string{"one", "two"} {
		_, _, err := c.Get(context.Background(), uid)
		require.NoError(t, err)
	}

	a.bump("one")
	require.NoError(t, c.Revalidate(context.Background(), "one"))
	view, status, err := c.Get(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, StatusHit, status)
	assert.Equal(t, "one v2", title(view))

	c.MarkStale("two")
	_, status, err = c.Get(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	c.Wait()

	c.MarkAllStale()
	_, status, err = c.Get(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	c.Wait()
}

func TestUIDsReferencing(t *testing.T) {
	a := newFakeAssembler("one", "two")
	c, _ := newTestCache(a, nil)
	for _, uid := range []string{"one", "two"} {
		_, _, err := c.Get(context.Background(), uid)
		require.NoError(t, err)
	}

	uids, unknown := c.UIDsReferencing("id-one")
	assert.Equal(t, []string{"one"}, uids)
	assert.False(t, unknown)

	uids, unknown = c.UIDsReferencing("id-next-of-two", "id-brand-new")
	assert.Equal(t, []string{"two"}, uids)
	assert.True(t, unknown)
}

func TestOutdatedRegenerationDoesNotOverwriteNewerContent(t *testing.T) {
	testCases := []struct {
		name       string
		invalidate func(c *PageCache) error
		// 무효화 직후 조회 상태. 오래된 재생성이 끝난 다음에 확인한다.
		wantStatus Status
	}{
		{
			name:       "revalidate",
			invalidate: func(c *PageCache) error { return c.Revalidate(context.Background(), "hello-world") },
			wantStatus: StatusHit,
		},
		{
			name:       "mark stale",
			invalidate: func(c *PageCache) error { c.MarkStale("hello-world"); return nil },
			wantStatus: StatusStale,
		},
		{
			name:       "mark all stale",
			invalidate: func(c *PageCache) error { c.MarkAllStale(); return nil },
			wantStatus: StatusStale,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			a := newFakeAssembler("hello-world")
			snaps := newMemSnapshots()
			c, clk := newTestCache(a, snaps)

			_, _, err := c.Get(context.Background(), "hello-world")
			require.NoError(t, err)
			clk.Advance(10 * time.Minute)

			// 백그라운드 재생성이 v1 을 읽은 채로 멈춘다.
			pause := a.pauseNext()
			_, status, err := c.Get(context.Background(), "hello-world")
			require.NoError(t, err)
			require.Equal(t, StatusStale, status)
			<-pause.reached

			a.bump("hello-world")
			require.NoError(t, testCase.invalidate(c))
			close(pause.release)
			c.Wait()

			view, status, err := c.Get(context.Background(), "hello-world")
			require.NoError(t, err)
			assert.Equal(t, testCase.wantStatus, status)
			c.Wait()

			view, status, err = c.Get(context.Background(), "hello-world")
			require.NoError(t, err)
			assert.Equal(t, StatusHit, status)
			assert.Equal(t, "hello-world v2", title(view))
			assert.Contains(t, string(snaps.data["hello-world"].Payload), "hello-world v2")
		})
	}
}

func TestOutdatedMissIsInstalledAsStale(t *testing.T) {
	a := newFakeAssembler("hello-world")
	c, _ := newTestCache(a, nil)

	pause := a.pauseNext()
	done := make(chan string)
	go func() {
		view, _, err := c.Get(context.Background(), "hello-world")
		if err != nil {
			done <- err.Error()
			return
		}
		done <- title(view)
	}()
	<-pause.reached

	a.bump("hello-world")
	c.MarkStale("hello-world")
	close(pause.release)
	assert.Equal(t, "hello-world v1", <-done)

	_, status, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	c.Wait()

	view, status, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, StatusHit, status)
	assert.Equal(t, "hello-world v2", title(view))
}

func TestCanceledCallerDoesNotFailSharedGeneration(t *testing.T) {
	a := newFakeAssembler("hello-world")
	a.gate = make(chan struct{})
	c, _ := newTestCache(a, nil)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.Get(ctx, "hello-world")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return a.Calls() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		title string
		err   error
	}
	second := make(chan result, 1)
	go func() {
		view, _, err := c.Get(context.Background(), "hello-world")
		if err != nil {
			second <- result{err: err}
			return
		}
		second <- result{title: title(view)}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(a.gate)

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "hello-world v1", got.title)
	assert.Equal(t, int64(1), a.Calls())
}

func TestTransientFetchErrorKeepsEntryAndSnapshot(t *testing.T) {
	a := newFakeAssembler("hello-world")
	snaps := newMemSnapshots()
	c, _ := newTestCache(a, snaps)

	_, _, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)

	// CMS 가 ref 를 거부한 경우처럼 "글 없음" 이 아닌 실패다.
	a.fail("hello-world", fmt.Errorf("get post %q: %w", "hello-world", prismic.ErrRefNotFound))
	err = c.Revalidate(context.Background(), "hello-world")
	require.Error(t, err)
	assert.False(t, errors.Is(err, services.ErrPostNotFound))

	assert.Equal(t, 1, c.Len())
	assert.Contains(t, snaps.data, "hello-world")
	view, _, err := c.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, "hello-world v1", title(view))
	c.Wait()
}
