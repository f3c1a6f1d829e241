package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"spacetraveling/cmd/blog/dto"
	"spacetraveling/events"
	"spacetraveling/internal/logger"
)

const (
	webhookSource      = "prismic-webhook"
	webhookAPIUpdate   = "api-update"
	webhookTestTrigger = "test-trigger"
)

// WebhookRequest 는 CMS 가 발행 시점에 보내는 웹훅 본문 중 사용하는 필드다.
type WebhookRequest struct {
	Type      string   `json:"type" example:"api-update"`
	Secret    string   `json:"secret"`
	MasterRef string   `json:"masterRef"`
	Documents []string `json:"documents"`
}

type ContentEventPublisher interface {
	Publish(ctx context.Context, evt events.ContentPublishedEvent) error
}

// RevalidateWebhookHandler godoc
// @Summary      CMS publish webhook
// @Description  Verifies the shared secret and queues revalidation of affected pages
// @Tags         revalidate
// @Accept       json
// @Param        body  body  WebhookRequest  true  "Webhook payload"
// @Produce      json
// @Success      202  {object}  dto.MessageResponseDTO
// @Failure      400  {object}  dto.ErrorResponseDTO
// @Failure      401  {object}  dto.ErrorResponseDTO
// @Router       /revalidate [post]
func RevalidateWebhookHandler(pub ContentEventPublisher, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WebhookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_body"})
			return
		}
		// 비밀키가 설정되지 않았으면 웹훅은 꺼진 것으로 본다.
		if secret == "" || subtle.ConstantTimeCompare([]byte(req.Secret), []byte(secret)) != 1 {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponseDTO{Error: "invalid_secret"})
			return
		}

		var evt events.ContentPublishedEvent
		switch req.Type {
		case webhookTestTrigger:
			evt = events.NewContentTestTriggerEvent(webhookSource)
		case webhookAPIUpdate, "":
			evt = events.NewContentPublishedEvent(webhookSource, req.MasterRef, req.Documents)
		default:
			logger.InfoWithFields("webhook ignored", logger.Fields{"type": req.Type})
			c.JSON(http.StatusOK, dto.MessageResponseDTO{Message: "ignored"})
			return
		}

		if err := pub.Publish(c.Request.Context(), evt); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, dto.MessageResponseDTO{Message: "accepted"})
	}
}
