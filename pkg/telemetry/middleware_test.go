package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGinMiddlewareTracesRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	r := gin.New()
	r.Use(GinMiddleware("tileserver-test"))
	r.GET("/api/v1/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/tiles/:kind/:z/:x/:y", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/api/v1/healthz", "/metrics", "/api/v1/tiles/water/18/232837/103208"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if got := spans[0].Name(); got != "GET /api/v1/tiles/:kind/:z/:x/:y" {
		t.Fatalf("span name = %q", got)
	}
	if spans[0].Status().Code != codes.Error {
		t.Fatalf("span status = %v, want error for a 404", spans[0].Status().Code)
	}
}
