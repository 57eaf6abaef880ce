package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/snow-cube/paper-manager/internal/utils"
)

// RecoveryMiddleware logs panics through logrus and answers with the
// standard 500 envelope.
func RecoveryMiddleware(log logrus.FieldLogger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.WithFields(logrus.Fields{
			"panic":      recovered,
			"path":       c.Request.URL.Path,
			"request_id": GetRequestID(c),
		}).Error("请求处理发生 panic")
		utils.InternalError(c)
		c.Abort()
	})
}
