package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"mindtrack-backend/utilities"
)

// RequestDumpMiddleware logs every request at debug level. Credentials are
// redacted from the dumped headers.
func RequestDumpMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		utilities.Debug(
			"[Request]\n"+
				"\tMethod: %s\n"+
				"\tURL: %s\n"+
				"\tHeaders: %v\n"+
				"\tBody: %s",
			c.Request.Method,
			c.Request.URL.String(),
			redacted(c.Request.Header),
			string(bodyBytes),
		)

		c.Next()
	}
}

func redacted(h http.Header) http.Header {
	out := h.Clone()
	for _, k := range []string{"Authorization", "Cookie"} {
		if out.Get(k) != "" {
			out.Set(k, "[redacted]")
		}
	}
	return out
}
