package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"estateos-brokerledger/pkg/errutil"
)

// Error renders domain errors attached to the gin context as JSON, mapping
// the CoreStatus to its HTTP equivalent.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var be errutil.BaseError
		if errors.As(last.Err, &be) {
			c.JSON(be.Code.HTTPStatus(), be.JSON())
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    errutil.StatusInternal,
				"message": last.Error(),
			},
		})
	}
}
