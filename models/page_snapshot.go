package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrSnapshotNotFound 는 uid 에 대한 스냅샷이 없을 때 반환된다.
var ErrSnapshotNotFound = errors.New("page snapshot not found")

// PageSnapshot 은 생성이 끝난 포스트 페이지 데이터를 보관한다.
// Collection: page_snapshots
//
// Payload 는 JSON 으로 직렬화된 페이지 데이터다. rich text 블록 원본을 손실 없이
// 보존하기 위해 bson 문서로 풀지 않는다.
type PageSnapshot struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UID         string             `bson:"uid" json:"uid"`
	PostID      string             `bson:"post_id" json:"post_id"`
	Payload     []byte             `bson:"payload" json:"-"`
	GeneratedAt time.Time          `bson:"generated_at" json:"generated_at"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
