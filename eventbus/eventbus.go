package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// RetryDelays 는 핸들러 실패 시 같은 컨슈머 안에서 재시도하기 전 대기 시간이다.
// 모두 소진하면 DLQ 로 보낸다. 페이지 재검증은 멱등이라 짧게 잡는다.
var RetryDelays = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	15 * time.Second,
}

// Topic 은 기본 토픽과 DLQ 토픽 이름을 관리한다.
type Topic struct {
	base string
}

func NewTopic(base string) Topic {
	return Topic{base: base}
}

func (t Topic) Base() string {
	return t.base
}

// DLQ 는 DLQ 토픽 이름을 반환한다 (예: my_topic.dlq).
func (t Topic) DLQ() string {
	return t.base + ".dlq"
}

// Event 는 버스를 오가는 메시지 봉투다.
type Event struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	Retry     int             `json:"retry"`
	MaxRetry  int             `json:"max_retry"`
	LastError string          `json:"last_error,omitempty"`
}

type EventHandler func(ctx context.Context, event Event) error

// EventBus 는 이벤트 발행/구독 추상화다. Kafka 가 설정되지 않은 환경에서는
// MemoryEventBus 가 같은 계약을 제공한다.
type EventBus interface {
	Publish(ctx context.Context, topic string, event Event) error
	// Subscribe 는 ctx 가 끝날 때까지 블록한다.
	Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error
	Close()
}

var (
	ErrMaxRetryExceeded = errors.New("최대 재시도 횟수 초과")
	ErrBusClosed        = errors.New("event bus closed")
)

func normalizeMaxRetry(n int) int {
	if n <= 0 || n > len(RetryDelays) {
		return len(RetryDelays)
	}
	return n
}

// deliver 는 handler 를 실행하고, 실패하면 RetryDelays 에 따라 evt.MaxRetry 번까지 재시도한다.
// 반환된 Event 에는 마지막 시도 횟수와 오류가 기록된다.
func deliver(ctx context.Context, handler EventHandler, evt Event) (Event, error) {
	evt.MaxRetry = normalizeMaxRetry(evt.MaxRetry)
	for {
		err := handler(ctx, evt)
		if err == nil {
			return evt, nil
		}
		evt.LastError = err.Error()
		if evt.Retry >= evt.MaxRetry {
			return evt, errors.Join(ErrMaxRetryExceeded, err)
		}
		delay := RetryDelays[evt.Retry]
		evt.Retry++
		select {
		case <-ctx.Done():
			return evt, ctx.Err()
		case <-time.After(delay):
		}
	}
}
