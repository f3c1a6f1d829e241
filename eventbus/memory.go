package eventbus

import (
	"context"
	"errors"
	"sync"

	"spacetraveling/internal/logger"
)

const (
	memoryQueueSize = 1024
	// 토픽별로 최근 이벤트만 기록한다. 오래 떠 있는 프로세스에서 기록이 무한히 늘지 않게 한다.
	memoryHistorySize = 256
)

var ErrQueueFull = errors.New("event queue full")

// MemoryEventBus 는 단일 프로세스용 EventBus 다. Kafka 브로커가 설정되지 않은 로컬
// 실행과 테스트에서 쓴다. 토픽마다 버퍼 큐 하나를 두며, 같은 토픽의 구독자들은
// 하나의 컨슈머 그룹처럼 메시지를 나눠 가진다.
type MemoryEventBus struct {
	mu      sync.Mutex
	queues  map[string]chan Event
	history map[string][]Event
	closed  bool
}

func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{
		queues:  map[string]chan Event{},
		history: map[string][]Event{},
	}
}

func (b *MemoryEventBus) queue(topic string) chan Event {
	q, ok := b.queues[topic]
	if !ok {
		q = make(chan Event, memoryQueueSize)
		b.queues[topic] = q
	}
	return q
}

func (b *MemoryEventBus) Publish(ctx context.Context, topic string, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	h := append(b.history[topic], event)
	if len(h) > memoryHistorySize {
		h = h[len(h)-memoryHistorySize:]
	}
	b.history[topic] = h
	select {
	case b.queue(topic) <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe 는 ctx 가 취소되거나 버스가 닫힐 때까지 topic 을 처리한다.
// 재시도를 모두 소진한 이벤트는 DLQ 토픽으로 보낸다.
func (b *MemoryEventBus) Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	q := b.queue(topic.Base())
	b.mu.Unlock()

	logger.Log.Infof("메모리 컨슈머 (%s) 시작됨. 구독 토픽: %s", groupID, topic.Base())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-q:
			if !ok {
				return ErrBusClosed
			}
			out, err := deliver(ctx, handler, evt)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.Errorf("이벤트 %s 처리 실패, DLQ %s 로 전송: %v", out.ID, topic.DLQ(), err)
			if err := b.Publish(ctx, topic.DLQ(), out); err != nil {
				logger.Log.Errorf("DLQ %s 발행 실패: %v", topic.DLQ(), err)
			}
		}
	}
}

// Published 는 topic 으로 발행된 최근 이벤트 기록을 오래된 순으로 반환한다.
func (b *MemoryEventBus) Published(topic string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.history[topic]...)
}

func (b *MemoryEventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, q := range b.queues {
		close(q)
	}
}
