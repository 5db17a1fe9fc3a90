package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/wikigate/log"
)

type recordedLine struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type recordingLogger struct {
	lines []recordedLine
}

func (r *recordingLogger) record(level, msg string, fields ...map[string]interface{}) {
	line := recordedLine{level: level, msg: msg, fields: map[string]interface{}{}}
	for _, f := range fields {
		for k, v := range f {
			line.fields[k] = v
		}
	}
	r.lines = append(r.lines, line)
}

func (r *recordingLogger) Debug(_ context.Context, msg string, fields ...map[string]interface{}) {
	r.record("debug", msg, fields...)
}

func (r *recordingLogger) Info(_ context.Context, msg string, fields ...map[string]interface{}) {
	r.record("info", msg, fields...)
}

func (r *recordingLogger) Warn(_ context.Context, msg string, fields ...map[string]interface{}) {
	r.record("warn", msg, fields...)
}

func (r *recordingLogger) Error(_ context.Context, msg string, _ error, fields ...map[string]interface{}) {
	r.record("error", msg, fields...)
}

func (r *recordingLogger) With(map[string]interface{}) log.Logger { return r }

func TestRequestLoggerLogsOneLine(t *testing.T) {
	logger := &recordingLogger{}
	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Len(t, logger.lines, 1)
	line := logger.lines[0]
	assert.Equal(t, "info", line.level)
	assert.Equal(t, http.MethodGet, line.fields["method"])
	assert.Equal(t, "/ping", line.fields["path"])
	assert.Equal(t, http.StatusOK, line.fields["status"])
	assert.NotEmpty(t, line.fields["duration"])
}

func TestRequestLoggerLogsHandlerError(t *testing.T) {
	logger := &recordingLogger{}
	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, logger.lines, 1)
	assert.Equal(t, "error", logger.lines[0].level)
	assert.Equal(t, http.StatusInternalServerError, logger.lines[0].fields["status"])
}
