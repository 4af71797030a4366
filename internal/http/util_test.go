package httpx

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"?limit=5", 5},
		{"?limit=0", 1},
		{"?limit=-3", 1},
		{"?limit=500", 100},
		{"?limit=abc", 20},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/admin/staff"+tt.query, nil)
			assert.Equal(t, tt.want, ParseLimit(r, 20, 100))
		})
	}
}
