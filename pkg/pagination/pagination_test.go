package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func ctxWithQuery(q string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+q, nil)
	return c
}

func TestParse(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: 20, Offset: 0}, Parse(ctxWithQuery("")))
	assert.Equal(t, Params{Page: 3, Limit: 10, Offset: 20}, Parse(ctxWithQuery("page=3&limit=10")))
	assert.Equal(t, Params{Page: 1, Limit: 100, Offset: 0}, Parse(ctxWithQuery("page=-2&limit=1000")))
	assert.Equal(t, Params{Page: 2, Limit: 12, Offset: 12}, ParseWithDefault(ctxWithQuery("page=2&limit=abc"), 12))
}
