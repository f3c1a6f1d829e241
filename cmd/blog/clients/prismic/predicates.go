package prismic

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// 자주 쓰는 문서 메타 필드 경로.
const (
	FieldID                   = "document.id"
	FieldType                 = "document.type"
	FieldFirstPublicationDate = "document.first_publication_date"
	FieldLastPublicationDate  = "document.last_publication_date"
)

const (
	OpAt         = "at"
	OpDateAfter  = "date.after"
	OpDateBefore = "date.before"
)

// UIDField 는 custom type 의 uid 필드 경로(my.<type>.uid)다.
func UIDField(docType string) string {
	return "my." + docType + ".uid"
}

// Predicate 는 Prismic 쿼리 언어 중 이 서비스가 쓰는 부분집합만 표현한다.
type Predicate struct {
	Op    string
	Path  string
	Value string
	Time  time.Time
}

func At(path, value string) Predicate {
	return Predicate{Op: OpAt, Path: path, Value: value}
}

// DateAfter 는 path 의 날짜가 t 보다 엄격히 뒤인 문서만 남긴다.
func DateAfter(path string, t time.Time) Predicate {
	return Predicate{Op: OpDateAfter, Path: path, Time: t}
}

// DateBefore 는 path 의 날짜가 t 보다 엄격히 앞인 문서만 남긴다.
func DateBefore(path string, t time.Time) Predicate {
	return Predicate{Op: OpDateBefore, Path: path, Time: t}
}

// String 은 [at(document.type, "posts")] 형태의 wire 표현을 반환한다.
// 날짜 값은 epoch milliseconds 로 보낸다.
func (p Predicate) String() string {
	switch p.Op {
	case OpDateAfter, OpDateBefore:
		return fmt.Sprintf("[%s(%s, %d)]", p.Op, p.Path, p.Time.UnixMilli())
	default:
		return fmt.Sprintf("[%s(%s, %s)]", p.Op, p.Path, strconv.Quote(p.Value))
	}
}

func encodePredicates(preds []Predicate) string {
	var b strings.Builder
	b.WriteByte('[')
	for _, p := range preds {
		b.WriteString(p.String())
	}
	b.WriteByte(']')
	return b.String()
}

type Ordering struct {
	Field string
	Desc  bool
}

func Asc(field string) Ordering  { return Ordering{Field: field} }
func Desc(field string) Ordering { return Ordering{Field: field, Desc: true} }

func encodeOrderings(orderings []Ordering) string {
	parts := make([]string, 0, len(orderings))
	for _, o := range orderings {
		if o.Desc {
			parts = append(parts, o.Field+" desc")
			continue
		}
		parts = append(parts, o.Field)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
