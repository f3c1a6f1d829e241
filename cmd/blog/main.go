package main

//go:generate swag init -d ../.. -g cmd/blog/main.go -o ../../docs

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"spacetraveling/cmd/blog/cache"
	"spacetraveling/cmd/blog/clients/prismic"
	"spacetraveling/cmd/blog/prerender"
	"spacetraveling/cmd/blog/revalidate"
	"spacetraveling/cmd/blog/router"
	"spacetraveling/cmd/blog/services"
	"spacetraveling/cmd/blog/tasks"
	"spacetraveling/config"
	"spacetraveling/db"
	"spacetraveling/eventbus"
	"spacetraveling/internal/logger"
	"spacetraveling/repositories"
)

// @title           spacetraveling API
// @version         1.0
// @description     Post pages, listings and preview mode for the spacetraveling blog
// @BasePath        /api/v1
func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cms := prismic.NewFromConfig(cfg.Prismic)
	assembler := services.NewPostAssembler(cms, cfg.Prismic.DocumentType)

	cacheOpts := cache.Options{
		Revalidate:        cfg.Pages.RevalidateInterval(),
		RegenerateTimeout: cfg.Pages.RegenerateTimeout,
	}
	// MongoDB 는 선택 사항이다. 없으면 재시작할 때 페이지를 다시 만든다.
	if cfg.Mongo.Enabled() {
		if err := db.Init(ctx, cfg.Mongo); err != nil {
			logger.Log.Errorf("failed to initialize MongoDB: %v", err)
			os.Exit(1)
		}
		defer db.Close(context.Background())
		cacheOpts.Snapshots = repositories.NewPageSnapshotRepository(db.Database())
	}
	pages := cache.New(assembler, cacheOpts)

	bus, err := newEventBus(cfg.Kafka)
	if err != nil {
		logger.Log.Errorf("failed to create event bus: %v", err)
		os.Exit(1)
	}
	defer bus.Close()

	var wg sync.WaitGroup

	// 웹훅 이벤트 구독
	revalidator := revalidate.NewHandler(pages, cms)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := revalidator.Run(ctx, bus, cfg.Kafka.ConsumerGroupID()); err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.Errorf("eventbus subscribe error: %v", err)
		}
	}()

	paths := services.NewPathService(cms, cfg.Prismic.DocumentType)
	prerenderer := prerender.New(paths, pages, cfg.Pages.StaticPathsLimit, cfg.Pages.PrerenderConcurrency)
	runPrerender := func(ctx context.Context) error {
		_, err := prerenderer.Run(ctx)
		return err
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runPrerender(ctx); err != nil {
			logger.Log.Warnf("startup prerender failed: %v", err)
		}
	}()

	scheduler := tasks.NewScheduler()
	if err := scheduler.Add(ctx, "prerender", cfg.Pages.PrerenderSchedule, runPrerender); err != nil {
		logger.Log.Errorf("failed to schedule prerender: %v", err)
	}
	scheduler.Start()

	r := router.New(router.Deps{
		Config:    cfg,
		CMS:       cms,
		Assembler: assembler,
		Pages:     pages,
		Posts:     services.NewPostService(cms, cfg.Prismic.DocumentType, cfg.Prismic.PageSize),
		Paths:     paths,
		Publisher: revalidate.NewPublisher(bus, cfg.Kafka.MaxRetry),
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("starting blog service on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorf("http server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("received shutdown signal, shutting down blog service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("http server shutdown: %v", err)
	}
	scheduler.Stop()
	wg.Wait()
	pages.Wait()

	logger.Log.Info("blog service stopped")
}

// newEventBus 는 브로커가 설정되어 있으면 Kafka 를, 아니면 인메모리 버스를 쓴다.
func newEventBus(cfg config.KafkaConfig) (eventbus.EventBus, error) {
	if !cfg.Enabled() {
		logger.Log.Info("kafka not configured, using in-memory event bus")
		return eventbus.NewMemoryEventBus(), nil
	}
	if err := eventbus.EnsureTopics(cfg.BootstrapServers, eventbus.TopicContentEvents, 1); err != nil {
		logger.Log.Errorf("failed to ensure eventbus topics: %v", err)
	}
	return eventbus.NewKafkaEventBus(cfg.BootstrapServers)
}
