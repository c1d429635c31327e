package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocktribe/stocktribe/config"
	"github.com/stocktribe/stocktribe/utils"
)

// CronHeader carries the shared secret on externally triggered job endpoints.
const CronHeader = "x-cron-secret"

// CronSecretRequired gates job endpoints behind the shared cron secret.
func CronSecretRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		secret := config.Get().CronSecret
		got := ctx.GetHeader(CronHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
