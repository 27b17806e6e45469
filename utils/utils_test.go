package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"house.ifc", "house.ifc"},
		{"My House (v2).ifc", "My_House__v2_.ifc"},
		{".hidden", "_hidden"},
		{"../../etc/passwd", "passwd"},
		{`C:\models\bridge.ifc`, "bridge.ifc"},
		{"Büro.ifc", "B_ro.ifc"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFilename(tt.in))
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Office Tower", DisplayName("Office Tower.ifc"))
	assert.Equal(t, "bridge", DisplayName(`C:\models\bridge.IFC`))
	assert.Equal(t, ".ifc", DisplayName(".ifc"))
	assert.Equal(t, "noext", DisplayName("noext"))
}

func TestStringToInts(t *testing.T) {
	u, ok := StringToUInt64("42")
	assert.True(t, ok)
	assert.Equal(t, uint64(42), u)
	_, ok = StringToUInt64("-1")
	assert.False(t, ok)

	i, ok := StringToInt64("-7")
	assert.True(t, ok)
	assert.Equal(t, int64(-7), i)
	_, ok = StringToInt64("x")
	assert.False(t, ok)
}

func TestCacheRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		cacheTime int
		want      string
	}{
		{CacheNoCache, "no-cache"},
		{60, "private, max-age=60"},
		{CacheCustom, ""},
	}
	for _, tt := range tests {
		router := gin.New()
		router.Use((&CacheRouter{CacheTime: tt.cacheTime}).Handler())
		router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, tt.want, rec.Header().Get("cache-control"))
	}
}

func TestErrorLogMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorLogMiddleware)
	router.GET("/fail", func(c *gin.Context) { c.JSON(http.StatusNotFound, gin.H{"error": "nope"}) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"nope"}`, rec.Body.String())
}
