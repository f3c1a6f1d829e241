package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacetraveling/cmd/blog/cache"
	"spacetraveling/cmd/blog/clients/prismic/prismictest"
	"spacetraveling/cmd/blog/revalidate"
	"spacetraveling/cmd/blog/services"
	"spacetraveling/config"
	"spacetraveling/eventbus"
)

func newTestEngine(t *testing.T) (*gin.Engine, *eventbus.MemoryEventBus) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := prismictest.NewStore(
		prismictest.Doc("id-1", "posts", "hello-world", prismictest.At(time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)), nil,
			map[string]any{"title": "Hello", "content": []any{}}),
	)
	cfg := config.AppConfig{
		Site:    config.SiteConfig{Name: "spacetraveling", URL: "https://blog.example.com"},
		Prismic: config.PrismicConfig{DocumentType: "posts", WebhookSecret: "secret"},
		Pages:   config.PagesConfig{RevalidateSeconds: 60, StaticPathsLimit: 2, FeedSize: 10},
		Preview: config.PreviewConfig{SessionName: "preview", MaxAgeSeconds: 60, SessionSecret: "session"},
	}

	assembler := services.NewPostAssembler(store, "posts")
	bus := eventbus.NewMemoryEventBus()
	t.Cleanup(bus.Close)

	r := New(Deps{
		Config:    cfg,
		CMS:       store,
		Assembler: assembler,
		Pages:     cache.New(assembler, cache.Options{Revalidate: cfg.Pages.RevalidateInterval()}),
		Posts:     services.NewPostService(store, "posts", 20),
		Paths:     services.NewPathService(store, "posts"),
		Publisher: revalidate.NewPublisher(bus, 1),
	})
	return r, bus
}

func TestRoutes(t *testing.T) {
	r, _ := newTestEngine(t)

	testCases := []struct {
		method     string
		target     string
		wantStatus int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/posts", http.StatusOK},
		{http.MethodGet, "/api/v1/posts/hello-world", http.StatusOK},
		{http.MethodGet, "/api/v1/posts/missing", http.StatusNotFound},
		{http.MethodGet, "/api/v1/paths", http.StatusOK},
		{http.MethodGet, "/feed.xml", http.StatusOK},
		{http.MethodGet, "/sitemap.xml", http.StatusOK},
		{http.MethodGet, "/api/preview", http.StatusUnauthorized},
		{http.MethodGet, "/api/exit-preview", http.StatusTemporaryRedirect},
		{http.MethodGet, "/swagger/doc.json", http.StatusOK},
	}

	for _, testCase := range testCases {
		t.Run(testCase.method+" "+testCase.target, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(testCase.method, testCase.target, nil))

			assert.Equal(t, testCase.wantStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
		})
	}
}

func TestWebhookPublishesToBus(t *testing.T) {
	r, bus := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/api/revalidate",
		strings.NewReader(`{"type":"api-update","secret":"secret","masterRef":"ref-2","documents":["id-1"]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, bus.Published(eventbus.TopicContentEvents.Base()), 1)
}
