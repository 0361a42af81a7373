package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/zr8c/index_go_server/internal/pkg/response"
	"github.com/zr8c/index_go_server/internal/service"
)

// RateLimit 滑动窗口限流中间件。拒绝时在 data 里带上重试等待秒数，
// 客户端可以据此提示用户而不是盲目重试。
func RateLimit(quotaService *service.QuotaService, category string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		adm, err := quotaService.Admit(userID, category, 1)
		if err != nil {
			response.ServerError(c, "限流检查失败")
			c.Abort()
			return
		}

		if !adm.Allowed {
			response.QuotaError(c, "操作过于频繁，请稍后再试", gin.H{
				"category":    category,
				"retry_after": int(adm.RetryAfter.Seconds()) + 1,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
