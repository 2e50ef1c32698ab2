package http_server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nahlund/backend/tileserver/pkg/config"
	"github.com/nahlund/backend/tileserver/pkg/logger"
)

func TestNewServerInjectsLogger(t *testing.T) {
	l := logger.NewZapLogger("error")
	ctx := logger.WithLogger(context.Background(), l)

	var got logger.Logger
	srv := NewServer(ctx, config.Server{
		Port:         "8080",
		ReadTimeout:  time.Second,
		WriteTimeout: 2 * time.Second,
		IdleTimeout:  3 * time.Second,
	}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = logger.FromContext(r.Context())
	}))

	if srv.Addr != ":8080" || srv.ReadTimeout != time.Second || srv.WriteTimeout != 2*time.Second || srv.IdleTimeout != 3*time.Second {
		t.Fatalf("server not configured from config: %+v", srv)
	}

	srv.Handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got != logger.Logger(l) {
		t.Fatal("handler did not receive the application logger")
	}
}
