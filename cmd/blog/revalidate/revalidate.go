// Package revalidate 는 CMS 웹훅에서 나온 ContentPublished 이벤트를 받아
// 캐시된 포스트 페이지를 다시 만든다.
package revalidate

import (
	"context"
	"errors"
	"fmt"

	"spacetraveling/cmd/blog/services"
	"spacetraveling/eventbus"
	"spacetraveling/events"
	"spacetraveling/internal/logger"
)

// Pages 는 재검증 대상 페이지 캐시다.
type Pages interface {
	Revalidate(ctx context.Context, uid string) error
	MarkAllStale()
	UIDsReferencing(ids ...string) ([]string, bool)
}

// RefSetter 는 웹훅이 알려 준 새 master ref 를 바로 쓰게 한다.
type RefSetter interface {
	SetMasterRef(ref string)
}

type Publisher struct {
	bus      eventbus.EventBus
	maxRetry int
}

func NewPublisher(bus eventbus.EventBus, maxRetry int) *Publisher {
	return &Publisher{bus: bus, maxRetry: maxRetry}
}

func (p *Publisher) Publish(ctx context.Context, evt events.ContentPublishedEvent) error {
	e, err := eventbus.NewJSONEvent(evt.ID, evt, p.maxRetry)
	if err != nil {
		return err
	}
	if err := p.bus.Publish(ctx, eventbus.TopicContentEvents.Base(), e); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

type Handler struct {
	pages Pages
	refs  RefSetter
}

// NewHandler 의 refs 는 nil 이어도 된다.
func NewHandler(pages Pages, refs RefSetter) *Handler {
	return &Handler{pages: pages, refs: refs}
}

// Run 은 ctx 가 끝날 때까지 콘텐츠 이벤트를 소비한다.
func (h *Handler) Run(ctx context.Context, bus eventbus.EventBus, groupID string) error {
	return eventbus.SubscribeJSON(ctx, bus, groupID, eventbus.TopicContentEvents, h.Handle)
}

// Handle 은 바뀐 문서를 본문이나 이웃으로 가진 페이지를 즉시 다시 만든다.
// 바뀐 문서 목록이 없거나 캐시에서 모르는 문서(새 글일 수 있음)가 섞여 있으면
// 이웃 관계가 달라졌을 수 있으므로 전체를 stale 로 표시한다.
func (h *Handler) Handle(ctx context.Context, evt events.ContentPublishedEvent, meta eventbus.Event) error {
	if evt.Type == events.ContentTestTrigger {
		logger.InfoWithFields("webhook test trigger received", logger.Fields{"event_id": evt.ID})
		return nil
	}
	if h.refs != nil {
		h.refs.SetMasterRef(evt.MasterRef)
	}

	uids, unknown := h.pages.UIDsReferencing(evt.DocumentIDs...)
	if len(evt.DocumentIDs) == 0 || unknown {
		h.pages.MarkAllStale()
	}

	var errs []error
	for _, uid := range uids {
		err := h.pages.Revalidate(ctx, uid)
		if err != nil && !errors.Is(err, services.ErrPostNotFound) {
			errs = append(errs, fmt.Errorf("revalidate %s: %w", uid, err))
		}
	}

	logger.InfoWithFields("content revalidated", logger.Fields{
		"event_id":     evt.ID,
		"retry":        meta.Retry,
		"documents":    len(evt.DocumentIDs),
		"pages":        len(uids),
		"marked_stale": len(evt.DocumentIDs) == 0 || unknown,
		"failed":       len(errs),
	})
	return errors.Join(errs...)
}
