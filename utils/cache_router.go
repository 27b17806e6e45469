package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	CacheNoCache = 0
	CacheCustom  = -1
)

// CacheRouter sets the cache-control header of every response; handlers
// can still override it
type CacheRouter struct {
	CacheTime int // seconds, CacheNoCache or CacheCustom to leave the header alone
}

func (cr *CacheRouter) Handler() gin.HandlerFunc {
	value := "no-cache"
	if cr.CacheTime > 0 {
		value = "private, max-age=" + strconv.Itoa(cr.CacheTime)
	}
	return func(c *gin.Context) {
		if cr.CacheTime != CacheCustom {
			c.Header("cache-control", value)
		}
		c.Next()
	}
}
