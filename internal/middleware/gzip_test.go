package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGzipMiddlewareCompressesLargeJSON(t *testing.T) {
	payload := `{"data":"` + strings.Repeat("x", 2000) + `"}`
	handler := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(payload)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	// Тест: большой JSON сжимается и распаковывается обратно
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"), "Response should be gzip encoded")
	gz, err := gzip.NewReader(w.Body)
	assert.NoError(t, err, "Body should be valid gzip")
	decoded, err := io.ReadAll(gz)
	assert.NoError(t, err, "Decompression should succeed")
	assert.Equal(t, payload, string(decoded), "Payload should round-trip")
}

func TestGzipMiddlewareSkipsSmallResponses(t *testing.T) {
	handler := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"ok":true}`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	// Тест: маленький ответ не сжимается
	assert.Empty(t, w.Header().Get("Content-Encoding"), "Small response should not be compressed")
	assert.Equal(t, `{"ok":true}`, w.Body.String(), "Body should be plain")
}

func TestGzipMiddlewareDecompressesRequest(t *testing.T) {
	var received []byte
	handler := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Failed to read body: %v", err)
		}
		received = body
		w.WriteHeader(http.StatusOK)
	}))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(`{"original_url":"https://example.com"}`))
	assert.NoError(t, err, "Gzip write should succeed")
	assert.NoError(t, gz.Close(), "Gzip close should succeed")

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	// Тест: сжатое тело запроса распаковывается для обработчика
	assert.Equal(t, http.StatusOK, w.Code, "Request should pass")
	assert.Equal(t, `{"original_url":"https://example.com"}`, string(received), "Body should be decompressed")
}

func TestGzipMiddlewareRejectsBrokenGzip(t *testing.T) {
	handler := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	// Тест: мусор вместо gzip отклоняется
	assert.Equal(t, http.StatusBadRequest, w.Code, "Broken gzip should return 400")
}
