package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"spacetraveling/cmd/blog/trace"
	"spacetraveling/internal/logger"
)

const (
	headerRequestID = "X-Request-Id"
	headerSpanID    = "X-Span-Id"
)

// RequestTrace 는 모든 inbound 요청에 Request ID 와 Span ID 를 보장하고
// 컨텍스트/응답 헤더에 실은 뒤 완료 로그를 남긴다.
// CMS 호출은 trace 패키지의 span 시퀀스(1,2,3,...)를 이어 받는다.
func RequestTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		requestID := req.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = trace.GenerateID()
		}

		ctx := trace.WithRequestAndSpan(req.Context(), requestID, 0)
		c.Request = req.WithContext(ctx)

		currentSpan := trace.CurrentSpanID(ctx)
		c.Writer.Header().Set(headerRequestID, requestID)
		c.Writer.Header().Set(headerSpanID, currentSpan)

		c.Next()

		fields := logger.Fields{
			"method":     req.Method,
			"path":       req.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"request_id": requestID,
			"span_id":    trace.CurrentSpanID(c.Request.Context()),
		}
		if cache := c.Writer.Header().Get("X-Cache"); cache != "" {
			fields["cache"] = cache
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		logger.InfoWithFields("completed request", fields)
	}
}
