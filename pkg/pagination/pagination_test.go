package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		page     string
		pageSize string
		want     PageParams
	}{
		{name: "defaults", page: "", pageSize: "", want: PageParams{Page: 1, PageSize: DefaultPageSize}},
		{name: "explicit", page: "3", pageSize: "10", want: PageParams{Page: 3, PageSize: 10}},
		{name: "negative page", page: "-2", pageSize: "10", want: PageParams{Page: 1, PageSize: 10}},
		{name: "garbage", page: "x", pageSize: "y", want: PageParams{Page: 1, PageSize: DefaultPageSize}},
		{name: "capped", page: "1", pageSize: "1000", want: PageParams{Page: 1, PageSize: MaxPageSize}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, &tt.want, Normalize(tt.page, tt.pageSize))
		})
	}
}

func TestParsePageParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/tenants?page=2&page_size=5", nil)

	assert.Equal(t, &PageParams{Page: 2, PageSize: 5}, ParsePageParams(c))
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, info := Slice(items, &PageParams{Page: 2, PageSize: 2})
	assert.Equal(t, []int{3, 4}, page)
	assert.Equal(t, &PageInfo{Page: 2, PageSize: 2, Total: 5, TotalPages: 3, HasNext: true, HasPrev: true}, info)

	last, info := Slice(items, &PageParams{Page: 3, PageSize: 2})
	assert.Equal(t, []int{5}, last)
	assert.False(t, info.HasNext)

	beyond, _ := Slice(items, &PageParams{Page: 9, PageSize: 2})
	assert.Empty(t, beyond)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items)
}
