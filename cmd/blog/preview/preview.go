// Package preview 는 CMS 편집 화면의 "미리보기" 진입/종료와
// 세션 쿠키에 담긴 프리뷰 ref 를 핸들러에 전달하는 일을 맡는다.
package preview

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"spacetraveling/cmd/blog/clients/prismic"
	"spacetraveling/cmd/blog/dto"
	"spacetraveling/config"
	"spacetraveling/internal/logger"
)

const (
	sessionKeyRef = "preview_ref"
	contextKeyRef = "preview_ref"
)

// NewStore 는 서명된 쿠키 세션 저장소를 만든다. 비밀키가 없으면 임시 키를 쓰므로
// 재시작하면 열려 있던 프리뷰 세션이 모두 풀린다.
func NewStore(cfg config.PreviewConfig) sessions.Store {
	secret := cfg.SessionSecret
	if secret == "" {
		logger.WarnWithFields("SESSION_SECRET not set, using ephemeral preview session key", nil)
		secret = uuid.NewString() + uuid.NewString()
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAgeSeconds,
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

// Sessions 는 gin 엔진에 붙이는 세션 미들웨어다.
func Sessions(cfg config.PreviewConfig, store sessions.Store) gin.HandlerFunc {
	return sessions.Sessions(cfg.SessionName, store)
}

// Middleware 는 세션에 프리뷰 ref 가 있으면 gin 컨텍스트에 올린다.
// Sessions 미들웨어 뒤에 등록해야 한다.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if ref, ok := session.Get(sessionKeyRef).(string); ok && ref != "" {
			c.Set(contextKeyRef, ref)
		}
		c.Next()
	}
}

// RefFromContext 는 프리뷰 모드가 아니면 빈 문자열이다.
func RefFromContext(c *gin.Context) string {
	return c.GetString(contextKeyRef)
}

type Resolver interface {
	GetByID(ctx context.Context, id string, opts prismic.QueryOptions) (*prismic.Document, error)
}

type Handler struct {
	resolver Resolver
	docType  string
}

func NewHandler(resolver Resolver, docType string) *Handler {
	return &Handler{resolver: resolver, docType: docType}
}

// Enter godoc
// @Summary      Enter preview mode
// @Description  Stores the preview ref in a session cookie and redirects to the previewed post
// @Tags         preview
// @Param        token       query  string  true   "Preview ref issued by the CMS"
// @Param        documentId  query  string  false  "Document being previewed"
// @Success      307
// @Failure      401  {object}  dto.ErrorResponseDTO
// @Router       /preview [get]
func (h *Handler) Enter(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponseDTO{Error: "invalid_preview_token"})
		return
	}

	location := "/"
	if documentID := c.Query("documentId"); documentID != "" {
		doc, err := h.resolver.GetByID(c.Request.Context(), documentID, prismic.QueryOptions{Ref: token})
		switch {
		case errors.Is(err, prismic.ErrRefNotFound):
			c.JSON(http.StatusUnauthorized, dto.ErrorResponseDTO{Error: "invalid_preview_token"})
			return
		case errors.Is(err, prismic.ErrNotFound):
			// 아직 문서가 없는 초안이면 홈으로 보낸다.
		case err != nil:
			logger.WarnWithFields("preview token rejected", logger.Fields{"document_id": documentID, "error": err.Error()})
			c.JSON(http.StatusUnauthorized, dto.ErrorResponseDTO{Error: "invalid_preview_token"})
			return
		case doc.Type == h.docType && doc.UID != "":
			location = "/api/v1/posts/" + url.PathEscape(doc.UID)
		}
	}

	session := sessions.Default(c)
	session.Set(sessionKeyRef, token)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: err.Error()})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, location)
}

// Exit godoc
// @Summary      Exit preview mode
// @Tags         preview
// @Success      307
// @Router       /exit-preview [get]
func (h *Handler) Exit(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: err.Error()})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, "/")
}
