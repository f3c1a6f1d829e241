package prismictest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacetraveling/cmd/blog/clients/prismic"
)

func day(d int) *time.Time {
	return At(time.Date(2021, 3, d, 12, 0, 0, 0, time.UTC))
}

func fixture() *Store {
	return NewStore(
		Doc("a", "posts", "first", day(1), day(1), map[string]string{"title": "First"}),
		Doc("b", "posts", "second", day(2), day(2), map[string]string{"title": "Second"}),
		Doc("c", "posts", "third", day(3), day(3), map[string]string{"title": "Third"}),
		Doc("p", "pages", "about", day(2), day(2), map[string]string{"title": "About"}),
	)
}

func TestQueryDatePredicatesAndOrdering(t *testing.T) {
	s := fixture()

	resp, err := s.Query(context.Background(), []prismic.Predicate{
		prismic.At(prismic.FieldType, "posts"),
		prismic.DateBefore(prismic.FieldFirstPublicationDate, *day(3)),
	}, prismic.QueryOptions{
		PageSize:  1,
		Orderings: []prismic.Ordering{prismic.Desc(prismic.FieldFirstPublicationDate)},
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "second", resp.Results[0].UID)
	assert.Equal(t, 2, resp.TotalResultsSize)
	assert.NotNil(t, resp.NextPage)
}

func TestQueryAfterCursor(t *testing.T) {
	s := fixture()

	resp, err := s.Query(context.Background(), []prismic.Predicate{prismic.At(prismic.FieldType, "posts")}, prismic.QueryOptions{
		After:     "b",
		Orderings: []prismic.Ordering{prismic.Asc(prismic.FieldFirstPublicationDate)},
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "third", resp.Results[0].UID)
}

func TestPreviewOverlay(t *testing.T) {
	s := fixture()
	s.AddPreview("draft", Doc("d", "posts", "draft-post", nil, nil, map[string]string{"title": "Draft"}))

	_, err := s.GetByUID(context.Background(), "posts", "draft-post", prismic.QueryOptions{})
	assert.True(t, errors.Is(err, prismic.ErrNotFound))

	doc, err := s.GetByUID(context.Background(), "posts", "draft-post", prismic.QueryOptions{Ref: "draft"})
	require.NoError(t, err)
	assert.Equal(t, "d", doc.ID)

	_, err = s.GetByUID(context.Background(), "posts", "first", prismic.QueryOptions{Ref: "expired"})
	assert.Error(t, err)
}

func TestQueryHookAndCounter(t *testing.T) {
	s := fixture()
	boom := errors.New("boom")
	s.SetQueryHook(func(preds []prismic.Predicate, opts prismic.QueryOptions) error {
		return boom
	})

	_, err := s.Query(context.Background(), nil, prismic.QueryOptions{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), s.Queries())
}
