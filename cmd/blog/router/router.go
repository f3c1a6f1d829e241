package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"spacetraveling/cmd/blog/handlers"
	"spacetraveling/cmd/blog/middleware"
	"spacetraveling/cmd/blog/preview"
	"spacetraveling/cmd/blog/services"
	"spacetraveling/config"
	_ "spacetraveling/docs"
)

// CMS 는 헬스 체크와 프리뷰 문서 확인에 쓰는 CMS 클라이언트다.
type CMS interface {
	handlers.HealthChecker
	preview.Resolver
}

type Deps struct {
	Config    config.AppConfig
	CMS       CMS
	Assembler handlers.Assembler
	Pages     handlers.PageSource
	Posts     *services.PostService
	Paths     *services.PathService
	Publisher handlers.ContentEventPublisher
}

func New(d Deps) *gin.Engine {
	cfg := d.Config
	revalidate := cfg.Pages.RevalidateInterval()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestTrace(), middleware.CORS(cfg.Server.CORSAllowedOrigins))
	r.Use(preview.Sessions(cfg.Preview, preview.NewStore(cfg.Preview)), preview.Middleware())

	r.GET("/health", handlers.HealthHandler(d.CMS))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/feed.xml", handlers.FeedHandler(d.Posts, cfg.Site, cfg.Pages.FeedSize))
	r.GET("/sitemap.xml", handlers.SitemapHandler(d.Posts, cfg.Site))

	// CMS 연동 라우트
	previewHandler := preview.NewHandler(d.CMS, cfg.Prismic.DocumentType)
	cms := r.Group("/api")
	{
		cms.GET("/preview", previewHandler.Enter)
		cms.GET("/exit-preview", previewHandler.Exit)
		cms.POST("/revalidate", handlers.RevalidateWebhookHandler(d.Publisher, cfg.Prismic.WebhookSecret))
	}

	// v1 routes
	api := r.Group("/api/v1")
	{
		api.GET("/posts", handlers.ListPostsHandler(d.Posts, revalidate))
		api.GET("/posts/:uid", handlers.GetPostHandler(d.Pages, d.Assembler, revalidate))
		api.GET("/paths", handlers.StaticPathsHandler(d.Paths, cfg.Pages.StaticPathsLimit))
	}

	return r
}
