package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/config"
	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/domain"
	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/infrastructure/cloudinary"
	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/infrastructure/repo"
	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubHosting struct {
	mu      sync.Mutex
	uploads int
	deletes []string
}

func (h *stubHosting) UploadOriginal(_ context.Context, _, folder string) (cloudinary.UploadResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uploads++
	return cloudinary.UploadResult{
		URL:      "https://res.cloudinary.com/demo/image/upload/" + folder + "/original.pdf",
		PublicID: folder + "/original",
	}, nil
}

func (h *stubHosting) PageImageURL(publicID string, pageNumber int, opts cloudinary.PageImageOptions) string {
	return fmt.Sprintf("https://res.cloudinary.com/demo/image/upload/pg_%d/%s.jpg", pageNumber, publicID)
}

func (h *stubHosting) DeleteOriginal(_ context.Context, publicID string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deletes = append(h.deletes, publicID)
	return true, nil
}

type stubCounter struct {
	n   int
	err error
}

func (c stubCounter) PageCount(string) (int, error) { return c.n, c.err }

type testApp struct {
	server  *Server
	store   *repo.MemoryMagazineRepo
	hosting *stubHosting
}

func newTestApp(t *testing.T, counter usecase.PageCounter) *testApp {
	t.Helper()
	cfg := config.Default()
	cfg.UploadsDir = t.TempDir()
	cfg.MaxUploadMB = 1
	store := repo.NewMemoryMagazineRepo()
	hosting := &stubHosting{}
	svc := &usecase.MagazineService{
		Repo:          store,
		Hosting:       hosting,
		PDF:           counter,
		PublicBaseURL: "http://localhost:5173",
		Log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	srv := New(cfg, svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &testApp{server: srv, store: store, hosting: hosting}
}

func (a *testApp) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func pdfBody(t *testing.T, filename, fileContentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="pdf"; filename="%s"`, filename))
	hdr.Set("Content-Type", fileContentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func seedReady(t *testing.T, a *testApp, id, token, name string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, a.store.Put(&domain.Magazine{
		ID:         id,
		ShareToken: token,
		Name:       name,
		Pages: []domain.Page{
			{PageNumber: 1, ImageURL: "https://img.example/" + id + "/1.jpg"},
		},
		TotalPages: 1,
		Config:     domain.DefaultFlipConfig(),
		Status:     domain.StatusReady,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}))
}

func TestHealth(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 1})

	w := a.do(t, http.MethodGet, "/api/health", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, "ok", out["status"])
	assert.Contains(t, out, "uptime")
}

func TestUploadCreatesMagazine(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 3})

	body, ct := pdfBody(t, "summer issue.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	w := a.do(t, http.MethodPost, "/api/magazines/upload", body, ct)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, true, out["success"])
	data := out["data"].(map[string]any)
	assert.Equal(t, "summer issue", data["name"])
	assert.Equal(t, "ready", data["status"])
	assert.Equal(t, float64(3), data["totalPages"])
	assert.Len(t, data["pages"], 3)
	assert.Len(t, data["shareId"], 10)
	assert.Equal(t, "http://localhost:5173/view/"+data["shareId"].(string), data["shareUrl"])
	assert.Equal(t, 1, a.hosting.uploads)
}

func TestUploadMissingFile(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 1})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "not a file"))
	require.NoError(t, mw.Close())
	w := a.do(t, http.MethodPost, "/api/magazines/upload", &buf, mw.FormDataContentType())

	require.Equal(t, http.StatusBadRequest, w.Code)
	out := decode(t, w)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "No PDF file uploaded", out["error"])
}

func TestUploadRejectsNonPDF(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 1})

	body, ct := pdfBody(t, "notes.txt", "text/plain", []byte("hello"))
	w := a.do(t, http.MethodPost, "/api/magazines/upload", body, ct)

	require.Equal(t, http.StatusBadRequest, w.Code)
	out := decode(t, w)
	assert.Equal(t, "Only PDF files are allowed", out["error"])

	// no orphan record
	_, total := a.store.List(domain.StatusReady, 1, 10)
	assert.Zero(t, total)
	assert.Zero(t, a.hosting.uploads)
}

func TestUploadRejectsOversize(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 1}) // MaxUploadMB is 1 in tests

	big := bytes.Repeat([]byte("x"), 2<<20)
	body, ct := pdfBody(t, "huge.pdf", "application/pdf", big)
	w := a.do(t, http.MethodPost, "/api/magazines/upload", body, ct)

	require.Equal(t, http.StatusBadRequest, w.Code)
	out := decode(t, w)
	assert.Equal(t, "File too large. Maximum size is 1MB.", out["error"])
	assert.Zero(t, a.hosting.uploads)
}

func TestUploadPipelineFailureReportsMessage(t *testing.T) {
	a := newTestApp(t, stubCounter{err: fmt.Errorf("xref table broken")})

	body, ct := pdfBody(t, "broken.pdf", "application/pdf", []byte("garbage"))
	w := a.do(t, http.MethodPost, "/api/magazines/upload", body, ct)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	out := decode(t, w)
	assert.Equal(t, false, out["success"])
	assert.Contains(t, out["error"], "Failed to read PDF")
}

func TestGetByIDNotFound(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 1})

	w := a.do(t, http.MethodGet, "/api/magazines/nope", nil, "")

	require.Equal(t, http.StatusNotFound, w.Code)
	out := decode(t, w)
	assert.Equal(t, "Magazine not found", out["error"])
}

func TestShareRouteGatesProcessing(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 1})
	require.NoError(t, a.store.Put(&domain.Magazine{
		ID:         "m1",
		ShareToken: "tok-123456",
		Name:       "draft",
		Config:     domain.DefaultFlipConfig(),
		Status:     domain.StatusProcessing,
	}))

	w := a.do(t, http.MethodGet, "/api/magazines/share/tok-123456", nil, "")

	require.Equal(t, http.StatusNotFound, w.Code)
	out := decode(t, w)
	assert.Equal(t, "Magazine is still processing", out["error"])
	assert.Equal(t, "processing", out["status"])
}

func TestShareRouteServesReady(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 1})
	seedReady(t, a, "m1", "tok-123456", "spring", time.Now().UTC())

	w := a.do(t, http.MethodGet, "/api/magazines/share/tok-123456", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "spring", data["name"])
	assert.Equal(t, "tok-123456", data["shareId"])
}

func TestUpdateMergesConfig(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 1})
	seedReady(t, a, "m1", "tok-123456", "old name", time.Now().UTC())

	payload := `{"name":"new name","config":{"width":800}}`
	w := a.do(t, http.MethodPut, "/api/magazines/m1", strings.NewReader(payload), "application/json")

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "new name", data["name"])
	cfg := data["config"].(map[string]any)
	assert.Equal(t, float64(800), cfg["width"])
	assert.Equal(t, float64(500), cfg["height"])
}

func TestUpdateRejectsBadConfig(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 1})
	seedReady(t, a, "m1", "tok-123456", "name", time.Now().UTC())

	payload := `{"config":{"flipAnimation":"wobble"}}`
	w := a.do(t, http.MethodPut, "/api/magazines/m1", strings.NewReader(payload), "application/json")

	require.Equal(t, http.StatusBadRequest, w.Code)
	out := decode(t, w)
	assert.Equal(t, false, out["success"])
}

func TestDeleteThenGone(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 1})
	seedReady(t, a, "m1", "tok-123456", "name", time.Now().UTC())

	w := a.do(t, http.MethodDelete, "/api/magazines/m1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Magazine deleted successfully", decode(t, w)["message"])

	w = a.do(t, http.MethodGet, "/api/magazines/m1", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPagination(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 1})
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		seedReady(t, a, fmt.Sprintf("m%d", i), fmt.Sprintf("tok-%06d", i), fmt.Sprintf("issue %d", i), base.Add(time.Duration(i)*time.Minute))
	}
	require.NoError(t, a.store.Put(&domain.Magazine{
		ID: "p1", ShareToken: "tok-proc01", Name: "pending",
		Config: domain.DefaultFlipConfig(), Status: domain.StatusProcessing,
	}))

	w := a.do(t, http.MethodGet, "/api/magazines?page=1&limit=2", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	items := out["data"].([]any)
	require.Len(t, items, 2)
	// newest first, processing record excluded
	assert.Equal(t, "issue 2", items[0].(map[string]any)["name"])
	pg := out["pagination"].(map[string]any)
	assert.Equal(t, float64(3), pg["total"])
	assert.Equal(t, float64(2), pg["pages"])
	assert.Equal(t, true, pg["hasMore"])
}

func TestStatusEndpoint(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 1})
	require.NoError(t, a.store.Put(&domain.Magazine{
		ID: "m1", ShareToken: "tok-123456", Name: "name",
		Config: domain.DefaultFlipConfig(), Status: domain.StatusFailed,
		ErrorMessage: "Failed to read PDF: bad xref",
	}))

	w := a.do(t, http.MethodGet, "/api/magazines/m1/status", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "failed", data["status"])
	assert.Equal(t, "Failed to read PDF: bad xref", data["errorMessage"])
}

func TestNoRouteEnvelope(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 1})

	w := a.do(t, http.MethodGet, "/api/nothing", nil, "")

	require.Equal(t, http.StatusNotFound, w.Code)
	out := decode(t, w)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Route not found: GET /api/nothing", out["error"])
}

func TestCORSPreflight(t *testing.T) {
	a := newTestApp(t, stubCounter{n: 1})

	w := a.do(t, http.MethodOptions, "/api/magazines", nil, "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
