package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinAttachDevice adapts the net/http DeviceMiddleware to Gin.
func GinAttachDevice(d *DeviceMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		reached := false

		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			c.Request = r
			c.Next()
		})

		d.AttachDevice(next).ServeHTTP(c.Writer, c.Request)

		// The middleware answered on its own; stop the Gin chain
		if !reached {
			c.Abort()
		}
	}
}
