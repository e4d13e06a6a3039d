package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LimitBody caps the number of request body bytes handlers can read.
//
// Reads beyond the limit fail, so binding an oversized body is a bad request.
func LimitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()
	}
}
