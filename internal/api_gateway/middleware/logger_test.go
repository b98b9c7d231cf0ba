package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newLoggedRouter(buf *bytes.Buffer) *gin.Engine {
	testLogger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	router := gin.New()
	router.Use(CorrelationID())
	router.Use(Logger(testLogger))
	return router
}

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("LogsRequestDetails", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := newLoggedRouter(&logBuffer)
		router.GET("/api/v1/plans/:id", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})

		planID := uuid.New().String()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/plans/"+planID+"?expand=entries", nil)
		req.Header.Set("User-Agent", "test-agent")
		testCorrelationID := uuid.New().String()
		req.Header.Set(CorrelationIDHeader, testCorrelationID)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"level":"INFO"`)
		assert.Contains(t, logOutput, `"msg":"HTTP request"`)
		assert.Contains(t, logOutput, `"method":"GET"`)
		assert.Contains(t, logOutput, `"route":"/api/v1/plans/:id"`)
		assert.Contains(t, logOutput, `"path":"/api/v1/plans/`+planID+`?expand=entries"`)
		assert.Contains(t, logOutput, `"status":200`)
		assert.Contains(t, logOutput, `"latency":`)
		assert.Contains(t, logOutput, `"client_ip":`)
		assert.Contains(t, logOutput, `"user_agent":"test-agent"`)
		assert.Contains(t, logOutput, `"correlation_id":"`+testCorrelationID+`"`)
	})

	t.Run("ClientErrorsLogAtWarn", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := newLoggedRouter(&logBuffer)
		router.POST("/api/v1/plans", func(c *gin.Context) {
			c.String(http.StatusBadRequest, "bad")
		})

		req, _ := http.NewRequest(http.MethodPost, "/api/v1/plans", strings.NewReader("{}"))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, logBuffer.String(), `"level":"WARN"`)
		assert.Contains(t, logBuffer.String(), `"correlation_id":`)
	})

	t.Run("ServerErrorsLogAtError", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := newLoggedRouter(&logBuffer)
		router.POST("/api/v1/entries/import", func(c *gin.Context) {
			_ = c.Error(assert.AnError)
			c.Status(http.StatusInternalServerError)
		})

		req, _ := http.NewRequest(http.MethodPost, "/api/v1/entries/import", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Contains(t, logBuffer.String(), `"level":"ERROR"`)
		assert.Contains(t, logBuffer.String(), `"errors":`)
	})
}
