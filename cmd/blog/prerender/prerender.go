// Package prerender 는 최신 포스트 몇 개를 요청이 오기 전에 미리 만들어 캐시에 넣는다.
package prerender

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"spacetraveling/internal/logger"
)

type PathSource interface {
	StaticPaths(ctx context.Context, limit int) ([]string, error)
}

type Pages interface {
	Revalidate(ctx context.Context, uid string) error
}

type Stats struct {
	Total     int
	Generated int
	Failed    int
	Duration  time.Duration
}

type Prerenderer struct {
	paths       PathSource
	pages       Pages
	limit       int
	concurrency int
}

func New(paths PathSource, pages Pages, limit, concurrency int) *Prerenderer {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Prerenderer{paths: paths, pages: pages, limit: limit, concurrency: concurrency}
}

// Run 은 경로 목록을 읽지 못했을 때만 에러를 반환한다.
// 개별 페이지 실패는 Stats.Failed 로 집계하고 해당 uid 는 첫 요청 때 다시 만들어진다.
func (p *Prerenderer) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	uids, err := p.paths.StaticPaths(ctx, p.limit)
	if err != nil {
		return Stats{}, fmt.Errorf("prerender paths: %w", err)
	}

	var generated, failed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, uid := range uids {
		uid := uid
		g.Go(func() error {
			if err := p.pages.Revalidate(gctx, uid); err != nil {
				atomic.AddInt64(&failed, 1)
				logger.WarnWithFields("prerender failed", logger.Fields{"uid": uid, "error": err.Error()})
				return nil
			}
			atomic.AddInt64(&generated, 1)
			return nil
		})
	}
	_ = g.Wait()

	stats := Stats{
		Total:     len(uids),
		Generated: int(generated),
		Failed:    int(failed),
		Duration:  time.Since(start),
	}
	logger.InfoWithFields("prerender completed", logger.Fields{
		"total":     stats.Total,
		"generated": stats.Generated,
		"failed":    stats.Failed,
		"duration":  stats.Duration.String(),
	})
	return stats, nil
}
