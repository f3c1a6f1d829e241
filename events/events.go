package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	// ContentPublished 는 CMS 에서 문서가 발행/수정/삭제되어 master ref 가 바뀌었음을 뜻한다.
	ContentPublished EventType = "content.published"
	// ContentTestTrigger 는 CMS 설정 화면의 웹훅 테스트 호출이다. 처리할 것이 없다.
	ContentTestTrigger EventType = "content.test_trigger"
)

const schemaVersion = "1"

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

func newBase(t EventType, source string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Version:   schemaVersion,
	}
}

// ContentPublishedEvent 는 웹훅 한 건에서 만들어진다. DocumentIDs 가 비어 있으면
// 어떤 문서가 바뀌었는지 모르는 것으로 본다.
type ContentPublishedEvent struct {
	BaseEvent
	MasterRef   string   `json:"master_ref"`
	DocumentIDs []string `json:"document_ids"`
}

func NewContentPublishedEvent(source, masterRef string, documentIDs []string) ContentPublishedEvent {
	return ContentPublishedEvent{
		BaseEvent:   newBase(ContentPublished, source),
		MasterRef:   masterRef,
		DocumentIDs: documentIDs,
	}
}

func NewContentTestTriggerEvent(source string) ContentPublishedEvent {
	return ContentPublishedEvent{BaseEvent: newBase(ContentTestTrigger, source)}
}
