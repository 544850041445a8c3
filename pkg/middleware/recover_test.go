package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRecoverTurnsPanicInto500(t *testing.T) {
	h := Recover(zap.NewNop().Sugar())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/customers", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Nothing about the panic reaches the client.
	assert.Equal(t, "internal error\n", rec.Body.String())
}
