package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNew_Clamps(t *testing.T) {
	assert.Equal(t, Query{Page: 1, Size: 10}, New(0, 0))
	assert.Equal(t, Query{Page: 3, Size: MaxSize}, New(3, 500))
	assert.Equal(t, 20, New(3, 10).Offset())
}

func TestFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=2&size=abc", nil)

	assert.Equal(t, Query{Page: 2, Size: DefaultSize}, FromContext(c))
}

func TestMeta(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		q         Query
		totalPage int
		hasNext   bool
	}{
		{name: "empty", total: 0, q: Query{Page: 1, Size: 10}, totalPage: 0, hasNext: false},
		{name: "exact", total: 20, q: Query{Page: 1, Size: 10}, totalPage: 2, hasNext: true},
		{name: "partial last page", total: 21, q: Query{Page: 3, Size: 10}, totalPage: 3, hasNext: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := Meta(tt.total, tt.q)
			assert.Equal(t, tt.totalPage, meta.TotalPage)
			assert.Equal(t, tt.hasNext, meta.HasNextPage)
			assert.Equal(t, tt.total, meta.Total)
		})
	}
}
