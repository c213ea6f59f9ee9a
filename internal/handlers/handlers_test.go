package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/clip-api/internal/metrics"
	"github.com/Brownie44l1/clip-api/internal/ranker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubClassifier struct {
	categories []string
	err        error
	got        []byte
	calls      int
}

func (s *stubClassifier) Rank(_ context.Context, imageBytes []byte) ([]string, error) {
	s.calls++
	s.got = imageBytes
	return s.categories, s.err
}

func (s *stubClassifier) EncoderName() string { return "stub" }
func (s *stubClassifier) LabelCount() int     { return 42 }

func newRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.POST("/classify", h.Classify)
	return r
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("other", "value"))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func postClassify(t *testing.T, r http.Handler, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, field, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/classify", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRootAndHealth(t *testing.T) {
	r := newRouter(NewHandler(&stubClassifier{}, nil, 0))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alive", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","model":"stub","labels":42}`, rec.Body.String())
}

func TestClassifySuccess(t *testing.T) {
	stub := &stubClassifier{categories: []string{"Cars", "Racing", "Supercars", "Vehicles", "Car Shows"}}
	m := metrics.New()
	r := newRouter(NewHandler(stub, m, 0))

	rec := postClassify(t, r, "image", "photo.JPG", []byte("image-bytes"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ClassifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, stub.categories, resp.Categories)
	assert.Equal(t, []byte("image-bytes"), stub.got)

	n, err := testutil.GatherAndCount(m.Registry(), "clip_api_classify_requests_total", "clip_api_rank_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestClassifyValidation(t *testing.T) {
	for _, tc := range []struct {
		name     string
		field    string
		filename string
		wantCode int
		wantBody string
	}{
		{"missing field", "", "", http.StatusBadRequest, `{"error":"No image provided"}`},
		{"wrong field name", "file", "a.png", http.StatusBadRequest, `{"error":"No image provided"}`},
		{"empty filename", "image", "", http.StatusBadRequest, `{"error":"No image provided"}`},
		{"gif", "image", "photo.gif", http.StatusBadRequest, `{"error":"Invalid file type"}`},
		{"no extension", "image", "photo", http.StatusBadRequest, `{"error":"Invalid file type"}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubClassifier{}
			r := newRouter(NewHandler(stub, nil, 0))

			rec := postClassify(t, r, tc.field, tc.filename, []byte("x"))
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.JSONEq(t, tc.wantBody, rec.Body.String())
			assert.Zero(t, stub.calls)
		})
	}

	t.Run("not multipart", func(t *testing.T) {
		r := newRouter(NewHandler(&stubClassifier{}, nil, 0))
		req := httptest.NewRequest(http.MethodPost, "/classify", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"No image provided"}`, rec.Body.String())
	})
}

func TestClassifyTooLarge(t *testing.T) {
	stub := &stubClassifier{}
	r := newRouter(NewHandler(stub, nil, 1024))

	rec := postClassify(t, r, "image", "big.png", bytes.Repeat([]byte{1}, 2048))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"Image too large"}`, rec.Body.String())
	assert.Zero(t, stub.calls)
}

func TestClassifyErrorMapping(t *testing.T) {
	for _, tc := range []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"decode", fmt.Errorf("%w: bad header", ranker.ErrDecode), http.StatusBadRequest, `{"error":"Invalid image"}`},
		{"timeout", fmt.Errorf("%w: slow", ranker.ErrTimeout), http.StatusGatewayTimeout, `{"error":"Classification timed out"}`},
		{"model", fmt.Errorf("%w: onnx: session run failed at node 17", ranker.ErrModelUnavailable), http.StatusInternalServerError, `{"error":"Internal server error"}`},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, `{"error":"Internal server error"}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(NewHandler(&stubClassifier{err: tc.err}, nil, 0))

			rec := postClassify(t, r, "image", "a.png", []byte("x"))
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.JSONEq(t, tc.wantBody, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "onnx")
		})
	}
}

func TestAllowedFile(t *testing.T) {
	for name, want := range map[string]bool{
		"a.png":       true,
		"a.PNG":       true,
		"a.jpg":       true,
		"a.JpEg":      true,
		"photojpg":    true,
		"a.gif":       false,
		"a.png.exe":   false,
		"":            false,
		"archive.tar": false,
	} {
		assert.Equal(t, want, allowedFile(name), name)
	}
}
