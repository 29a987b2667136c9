package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSpinRecorder(t *testing.T) {
	var r SpinRecorder
	before := testutil.ToFloat64(SpinsTotal.WithLabelValues("metrics_game", "none"))
	r.ObserveSpin("metrics_game", 100, 250, "", 5*time.Millisecond)
	r.ObserveFailure("metrics_game", 2002)

	assert.Equal(t, before+1, testutil.ToFloat64(SpinsTotal.WithLabelValues("metrics_game", "none")))
	assert.Equal(t, float64(250), testutil.ToFloat64(PaidTotal.WithLabelValues("metrics_game")))
	assert.Equal(t, float64(1), testutil.ToFloat64(SpinFailures.WithLabelValues("metrics_game", "2002")))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/ping/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping/1", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/ping/:id", "204")))
}
