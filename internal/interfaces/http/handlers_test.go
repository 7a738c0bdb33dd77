package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHandlers_StepNumberParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handlers{}

	tests := []struct {
		param string
		want  int
		ok    bool
	}{
		{"4", 4, true},
		{"12", 12, true},
		{"12abc", 0, false},
		{"abc", 0, false},
		{"4.5", 0, false},
		{"0", 0, false},
		{"-3", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "stepNumber", Value: tt.param}}

			n, ok := h.stepNumber(c)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, n)
			if !tt.ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}
