package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func paramContext(key, value string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Params = gin.Params{{Key: key, Value: value}}
	return c
}

func TestUint64QueryParam(t *testing.T) {
	cases := []struct {
		value string
		want  uint64
	}{
		{"42", 42},
		{" 42 ", 42},
		{"18446744073709551615", 18446744073709551615},
		{"18446744073709551616", 0},
		{"99999999999999999999999999", 0},
		{"-1", 0},
		{"abc", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := uint64QueryParam(paramContext("id", tc.value), "id"); got != tc.want {
			t.Fatalf("uint64QueryParam(%q) = %d, want %d", tc.value, got, tc.want)
		}
	}
}

func TestPaginationMeta(t *testing.T) {
	meta := paginationMeta(50, 100, 7)
	if meta["limit"] != 50 || meta["offset"] != 100 || meta["count"] != 7 {
		t.Fatalf("meta = %v", meta)
	}
	// Only the window is reported; no total is invented from it.
	for _, key := range []string{"total", "has_next"} {
		if _, ok := meta[key]; ok {
			t.Fatalf("meta claims %q without a count query", key)
		}
	}

	meta = paginationMeta(-1, -5, 0)
	if meta["limit"] != 0 || meta["offset"] != 0 {
		t.Fatalf("negative window not clamped: %v", meta)
	}
}
