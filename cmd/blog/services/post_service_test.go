package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacetraveling/cmd/blog/clients/prismic"
)

func TestPostServiceList(t *testing.T) {
	svc := NewPostService(blogStore(), "posts", 2)

	first, err := svc.List(context.Background(), ListPostsInput{})
	require.NoError(t, err)

	require.Len(t, first.Data, 2)
	assert.Equal(t, "newest-post", first.Data[0].UID)
	assert.Equal(t, "middle-post", first.Data[1].UID)
	assert.Equal(t, "Subtitle middle-post", first.Data[1].Subtitle)
	assert.Equal(t, "Joseph Oliveira", first.Data[1].Author)
	assert.Equal(t, int64(3), first.Total)
	assert.Equal(t, 1, first.Page)
	require.NotNil(t, first.NextPage)
	assert.Equal(t, 2, *first.NextPage)

	second, err := svc.List(context.Background(), ListPostsInput{Page: *first.NextPage})
	require.NoError(t, err)
	require.Len(t, second.Data, 1)
	assert.Equal(t, "oldest-post", second.Data[0].UID)
	assert.Nil(t, second.NextPage)
}

func TestPostServiceListClampsPageSize(t *testing.T) {
	svc := NewPostService(blogStore(), "posts", 2)

	page, err := svc.List(context.Background(), ListPostsInput{PageSize: 10_000})
	require.NoError(t, err)

	assert.Equal(t, maxPageSize, page.PageSize)
	assert.Len(t, page.Data, 3)
}

func TestPostServiceListError(t *testing.T) {
	store := blogStore()
	store.SetQueryHook(func(preds []prismic.Predicate, opts prismic.QueryOptions) error {
		return errors.New("unavailable")
	})
	svc := NewPostService(store, "posts", 2)

	_, err := svc.List(context.Background(), ListPostsInput{})
	assert.Error(t, err)
}

func TestPostServiceAllPublished(t *testing.T) {
	svc := NewPostService(blogStore(), "posts", 2)

	entries, err := svc.AllPublished(context.Background())
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, "newest-post", entries[0].UID)
	assert.Equal(t, "middle-post", entries[1].UID)
	assert.True(t, entries[1].LastModified.Equal(*march(8)))
}

func TestPathServiceStaticPaths(t *testing.T) {
	svc := NewPathService(blogStore(), "posts")

	testCases := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "zero limit", limit: 0, want: nil},
		{name: "bounded sample", limit: 2, want: []string{"newest-post", "middle-post"}},
		{name: "limit above total", limit: 10, want: []string{"newest-post", "middle-post", "oldest-post"}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got, err := svc.StaticPaths(context.Background(), testCase.limit)
			require.NoError(t, err)
			assert.Equal(t, testCase.want, got)
		})
	}
}
