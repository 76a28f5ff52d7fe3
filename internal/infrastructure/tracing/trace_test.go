package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/logging"
)

func newObserved() (*Tracer, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New(&logging.Logger{Logger: zap.New(core)}), logs
}

func TestStartSpanContinuesTrace(t *testing.T) {
	tracer, _ := newObserved()
	defer tracer.Close()

	parent, ctx := tracer.StartSpan(context.Background(), "parent")
	child, childCtx := tracer.StartSpan(ctx, "child")

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.Empty(t, parent.ParentID)
	assert.Equal(t, child.SpanID, GetSpanID(childCtx))
	assert.Equal(t, []zap.Field{zap.String("trace_id", string(parent.TraceID))}, Fields(childCtx))
	assert.Nil(t, Fields(context.Background()))
}

func TestSubmitLogsSpans(t *testing.T) {
	tracer, logs := newObserved()

	ok, _ := tracer.StartSpan(context.Background(), "loader.load")
	ok.SetTag("package", "classifier")
	tracer.Submit(ok)

	failed, _ := tracer.StartSpan(context.Background(), "loader.load")
	failed.SetError(errors.New("integrity"))
	tracer.Submit(failed)

	tracer.Close()
	tracer.Close()

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "classifier", entries[0].ContextMap()["package"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestNilTracer(t *testing.T) {
	var tracer *Tracer
	span, ctx := tracer.StartSpan(context.Background(), "noop")
	assert.NotEmpty(t, GetTraceID(ctx))
	tracer.Submit(span)
	tracer.Close()
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer, logs := newObserved()

	var seen TraceID
	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/mounts/:id", func(c *gin.Context) {
		seen = GetTraceID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/mounts/classifier", nil)
	req.Header.Set(HeaderTraceID, "abc123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, TraceID("abc123"), seen)
	assert.Equal(t, "abc123", w.Header().Get(HeaderTraceID))
	assert.NotEmpty(t, w.Header().Get(HeaderSpanID))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mounts/other", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderTraceID))
	assert.NotEqual(t, "abc123", w.Header().Get(HeaderTraceID))

	tracer.Close()
	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "GET /mounts/:id", entries[0].ContextMap()["operation"])
	assert.Equal(t, "204", entries[0].ContextMap()["http.status"])
}
