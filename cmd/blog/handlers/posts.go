package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"spacetraveling/cmd/blog/cache"
	"spacetraveling/cmd/blog/dto"
	"spacetraveling/cmd/blog/preview"
	"spacetraveling/cmd/blog/services"
)

// PageSource 는 발행본 PostView 를 캐시에서 꺼내 주는 쪽이다.
type PageSource interface {
	Get(ctx context.Context, uid string) (*dto.PostView, cache.Status, error)
}

// Assembler 는 프리뷰 요청처럼 캐시를 거치지 않는 조립 경로다.
type Assembler interface {
	Assemble(ctx context.Context, uid, previewRef string) (*dto.PostView, error)
}

const cacheControlPrivate = "private, no-store"

func publicCacheControl(revalidate time.Duration) string {
	return fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate", int(revalidate.Seconds()))
}

// ListPostsHandler godoc
// @Summary      List posts
// @Description  List published posts, newest first
// @Tags         posts
// @Param        page       query  int  false  "Page number (1-based)"
// @Param        page_size  query  int  false  "Page size (<=100)"
// @Produce      json
// @Success      200  {object}  dto.PaginationPostSummaryDTO
// @Failure      500  {object}  dto.ErrorResponseDTO
// @Router       /posts [get]
func ListPostsHandler(svc *services.PostService, revalidate time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.ListPostsInput
		in.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
		in.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "0"))
		in.Ref = preview.RefFromContext(c)

		page, err := svc.List(c.Request.Context(), in)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: err.Error()})
			return
		}
		if in.Ref != "" {
			c.Header("Cache-Control", cacheControlPrivate)
		} else {
			c.Header("Cache-Control", publicCacheControl(revalidate))
		}
		c.JSON(http.StatusOK, page)
	}
}

// GetPostHandler godoc
// @Summary      Get post page data
// @Description  Post with neighbours, reading time and edit flag. Served from the page cache unless preview mode is active.
// @Tags         posts
// @Param        uid  path  string  true  "Post UID"
// @Produce      json
// @Success      200  {object}  dto.PostView
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Failure      500  {object}  dto.ErrorResponseDTO
// @Header       200  {string}  X-Cache  "HIT, STALE or MISS"
// @Router       /posts/{uid} [get]
func GetPostHandler(pages PageSource, assembler Assembler, revalidate time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.Param("uid")
		ctx := c.Request.Context()

		var (
			view *dto.PostView
			err  error
		)
		if ref := preview.RefFromContext(c); ref != "" {
			c.Header("Cache-Control", cacheControlPrivate)
			view, err = assembler.Assemble(ctx, uid, ref)
		} else {
			var status cache.Status
			view, status, err = pages.Get(ctx, uid)
			c.Header("X-Cache", string(status))
			if err == nil {
				c.Header("Cache-Control", publicCacheControl(revalidate))
			}
		}

		if err != nil {
			if errors.Is(err, services.ErrPostNotFound) {
				c.JSON(http.StatusNotFound, dto.ErrorResponseDTO{Error: "not_found"})
				return
			}
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// StaticPathsHandler godoc
// @Summary      Prerendered post paths
// @Description  UIDs of the newest posts that are generated ahead of time; other posts are generated on first request
// @Tags         posts
// @Produce      json
// @Success      200  {object}  dto.StaticPathsDTO
// @Failure      500  {object}  dto.ErrorResponseDTO
// @Router       /paths [get]
func StaticPathsHandler(svc *services.PathService, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		uids, err := svc.StaticPaths(c.Request.Context(), limit)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: err.Error()})
			return
		}
		paths := make([]dto.PostPath, 0, len(uids))
		for _, uid := range uids {
			paths = append(paths, dto.PostPath{UID: uid})
		}
		c.JSON(http.StatusOK, dto.StaticPathsDTO{Paths: paths, Fallback: "blocking"})
	}
}
