package middleware

import (
	"leadflow/internal/transport/httpdto"
	"leadflow/pkg/logger"

	"github.com/gin-gonic/gin"
)

func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Errorf("request error on %s %s: %s", c.Request.Method, c.Request.URL.Path, err.Error())
		}
		c.JSON(c.Writer.Status(), httpdto.NewErrorFrom(err))
	}
}
