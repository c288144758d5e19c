package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/config"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/core"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/history"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/pipeline"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/workbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type memoryRecorder struct {
	mu   sync.Mutex
	runs []history.Run
}

func (m *memoryRecorder) Record(_ context.Context, run history.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append([]history.Run{run}, m.runs...)
	return nil
}

func (m *memoryRecorder) Recent(_ context.Context, limit int) ([]history.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.runs) {
		limit = len(m.runs)
	}
	return append([]history.Run{}, m.runs[:limit]...), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, RequestTimeout: time.Minute, ShutdownTimeout: time.Second},
		Upload:   config.UploadConfig{MaxFileSize: 10 << 20, MaxConcurrent: 2, MaxWaitTime: 50 * time.Millisecond, Timeout: time.Minute},
		Extract:  config.ExtractConfig{SheetName: workbook.DefaultSheet, OutputName: workbook.DefaultOutputName},
		Security: config.SecurityConfig{EnableCSP: true},
		Logging:  config.LoggingConfig{Level: "info", Format: "text"},
	}
}

type testServer struct {
	*Server
	recorder *memoryRecorder
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	rec := &memoryRecorder{}
	svc := pipeline.NewService(
		pipeline.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		rec,
		pipeline.Options{DefaultSheet: cfg.Extract.SheetName, Timeout: cfg.Upload.Timeout},
	)
	return &testServer{Server: NewServer(cfg, svc), recorder: rec}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

// bulkCSV is a 36-column export with Entity in column B.
func bulkCSV(rows ...map[string]string) []byte {
	header := make([]string, 36)
	for i := range header {
		header[i] = "Col " + core.ColumnLetter(i)
	}
	header[1] = "Entity"

	lines := []string{strings.Join(header, ",")}
	for _, cells := range rows {
		row := make([]string, 36)
		for letter, v := range cells {
			idx, _ := core.ColumnIndex(letter)
			row[idx] = v
		}
		lines = append(lines, strings.Join(row, ","))
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func sampleCSV() []byte {
	return bulkCSV(
		map[string]string{"B": "Keyword", "D": "C1", "E": "AG1", "H": "K1", "AC": "shoes"},
		map[string]string{"B": "Product Ad", "D": "C1", "E": "AG1", "G": "A1"},
		map[string]string{"B": "Product Targeting", "I": "PT1", "AJ": `asin="B0C1D2E3F4"`},
		map[string]string{"B": "Product Targeting", "I": "PT2", "AJ": "close-match"},
	)
}

// uploadRequest builds a multipart POST. An empty fileName omits the file part.
func uploadRequest(t *testing.T, path, fileName string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, body io.Reader) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

func TestProcessXLSX_ReturnsWorkbook(t *testing.T) {
	for _, path := range []string{"/api/process-xlsx", "/process-xlsx"} {
		t.Run(path, func(t *testing.T) {
			ts := newTestServer(t, nil)
			rec := ts.do(uploadRequest(t, path, "bulk.csv", sampleCSV(), nil))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, workbook.ContentType, rec.Header().Get("Content-Type"))
			assert.Equal(t, `attachment; filename=SP_IDs.xlsx`, rec.Header().Get("Content-Disposition"))
			assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))
			assert.Equal(t,
				"KeywordTargetingMap=1,AdvertisedProductMap=1,PATMap=1,CategoryMap=0,AutoMap=1",
				rec.Header().Get("X-Row-Counts"))

			f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
			require.NoError(t, err)
			defer f.Close()
			assert.Equal(t, []string{
				"1-SP-KeywordTargetingMap",
				"2-SP-AdvertisedProductMap",
				"3-SP-PATMap",
				"4-SP-CategoryMap",
				"5-SP-AutoMap",
			}, f.GetSheetList())

			require.Len(t, ts.recorder.runs, 1)
			assert.Equal(t, rec.Header().Get("X-Run-ID"), ts.recorder.runs[0].ID.String())
		})
	}
}

func TestProcessSummary(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(uploadRequest(t, "/api/process-summary", "bulk.csv", sampleCSV(), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.TotalRows)
	assert.Equal(t, 2, resp.ProductTargetingRows)
	assert.Equal(t, 1, resp.Counts[core.KeyPAT])
	assert.Equal(t, "Product Targeting rows: 2 | PAT: 1 | Category: 0 | Auto: 1", resp.Summary)
	require.Len(t, resp.Sheets, 5)
	assert.Equal(t, "3-SP-PATMap", resp.Sheets[2].Sheet)
	assert.Equal(t, "Col I", resp.Sheets[2].Headers[2])
	assert.NotNil(t, resp.Warnings)
}

func TestProcess_Errors(t *testing.T) {
	xlsx := func() []byte {
		f := excelize.NewFile()
		defer f.Close()
		buf, err := f.WriteToBuffer()
		require.NoError(t, err)
		return buf.Bytes()
	}()

	tests := []struct {
		name       string
		fileName   string
		content    []byte
		fields     map[string]string
		wantStatus int
		wantCode   string
	}{
		{"no file", "", nil, nil, http.StatusBadRequest, "FILE004"},
		{"empty file", "bulk.csv", []byte{}, nil, http.StatusBadRequest, "FILE005"},
		{"missing sheet", "bulk.xlsx", xlsx, nil, http.StatusBadRequest, "SRC002"},
		{"not a workbook", "bulk.xlsx", []byte("plain text"), nil, http.StatusBadRequest, "SRC001"},
		{"no entity column", "bulk.csv", []byte("Product\nSP\n"), nil, http.StatusBadRequest, "ENT001"},
		{"narrow export", "bulk.csv", []byte("Product,Entity\nSP,Keyword\n"), nil, http.StatusBadRequest, "COL002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			rec := ts.do(uploadRequest(t, "/api/process-xlsx", tt.fileName, tt.content, tt.fields))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantCode, decodeError(t, rec.Body).Code)
		})
	}
}

func TestProcess_FileTooLarge(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Upload.MaxFileSize = 256 })

	rec := ts.do(uploadRequest(t, "/api/process-xlsx", "bulk.csv", sampleCSV(), nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decodeError(t, rec.Body).Code)
}

func TestProcess_Busy(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Upload.MaxConcurrent = 1 })
	require.True(t, ts.service.Limiter().TryAcquire())
	defer ts.service.Limiter().Release()

	rec := ts.do(uploadRequest(t, "/api/process-xlsx", "bulk.csv", sampleCSV(), nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Equal(t, "UPL002", decodeError(t, rec.Body).Code)
}

func TestAPIKeyRequired(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret"}
	})

	rec := ts.do(uploadRequest(t, "/api/process-xlsx", "bulk.csv", sampleCSV(), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := uploadRequest(t, "/api/process-xlsx", "bulk.csv", sampleCSV(), nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, ts.do(req).Code)

	// the HTML UI stays open unless disabled
	assert.Equal(t, http.StatusOK, ts.do(httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRuns(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(uploadRequest(t, "/api/process-xlsx", "first.csv", sampleCSV(), nil))
	ts.do(uploadRequest(t, "/api/process-xlsx", "second.csv", []byte("Product\nSP\n"), nil))

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/runs?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Runs []history.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 2)
	assert.Equal(t, "second.csv", resp.Runs[0].FileName)
	assert.Equal(t, history.StatusFailed, resp.Runs[0].Status)
	assert.Equal(t, history.StatusSuccess, resp.Runs[1].Status)
	assert.Equal(t, 4, resp.Runs[1].TotalRows)
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"active":0,"available":2,"max_concurrent":2}`, rec.Body.String())
}

func TestIndexPage(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `enctype="multipart/form-data"`)
	assert.Contains(t, rec.Body.String(), `value="Sponsored Products Campaigns"`)
}

func TestUIProcess(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(uploadRequest(t, "/ui/process", "bulk.csv", sampleCSV(), map[string]string{"sheet": ""}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Extraction complete")
	assert.Contains(t, body, `<td>3-SP-PATMap</td><td class="num">1</td>`)
	assert.Contains(t, body, "Total rows read: 4")
	assert.Contains(t, body, "data:"+workbook.ContentType+";base64,")
}

func TestUIProcess_ErrorRendersForm(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(uploadRequest(t, "/ui/process", "", nil, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "No file was selected")
	assert.Contains(t, rec.Body.String(), `action="/ui/process"`)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(uploadRequest(t, "/api/process-summary", "bulk.csv", sampleCSV(), nil))

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "spids_runs_total")
	assert.Contains(t, rec.Body.String(), `spids_requests_total{method="POST",route="/api/process-summary"`)
}

func TestRateLimitOnUploads(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, UploadLimit: 1}
	})

	first := ts.do(uploadRequest(t, "/api/process-summary", "bulk.csv", sampleCSV(), nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := ts.do(uploadRequest(t, "/api/process-summary", "bulk.csv", sampleCSV(), nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// non-upload routes use the general limit
	assert.Equal(t, http.StatusOK, ts.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(core.ErrEntityColumnNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(core.ErrOutputWrite))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(pipeline.ErrTooManyExtractions))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
}

func TestShutdown_WaitsForRunningExtractions(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Server.Host = "127.0.0.1"
		c.Server.Port = 0
	})
	require.True(t, ts.service.Limiter().TryAcquire())

	served := make(chan error, 1)
	go func() { served <- ts.Start() }()

	shutdown := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdown <- ts.Shutdown(ctx)
	}()

	select {
	case err := <-served:
		t.Fatalf("Start returned while an extraction was running: %v", err)
	case err := <-shutdown:
		t.Fatalf("Shutdown returned while an extraction was running: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	ts.service.Limiter().Release()

	select {
	case err := <-shutdown:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return after the extraction finished")
	}
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestShutdown_DrainTimeout(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Server.Host = "127.0.0.1"
		c.Server.Port = 0
	})
	require.True(t, ts.service.Limiter().TryAcquire())
	defer ts.service.Limiter().Release()

	served := make(chan error, 1)
	go func() { served <- ts.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, ts.Shutdown(ctx), context.DeadlineExceeded)

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after a timed-out Shutdown")
	}
}

func TestUIDisabled(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret"}
		c.Security.DisableUI = true
	})

	assert.Equal(t, http.StatusNotFound, ts.do(httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(uploadRequest(t, "/ui/process", "bulk.csv", sampleCSV(), nil)).Code)
	assert.Empty(t, ts.recorder.runs)

	req := uploadRequest(t, "/api/process-xlsx", "bulk.csv", sampleCSV(), nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, ts.do(req).Code)
}

func TestErrorResponse_Detail(t *testing.T) {
	t.Run("known errors keep their detail", func(t *testing.T) {
		ts := newTestServer(t, nil)
		rec := ts.do(uploadRequest(t, "/api/process-xlsx", "bulk.csv", []byte("Product,Entity\nSP,Keyword\n"), nil))

		resp := decodeError(t, rec.Body)
		assert.Equal(t, "COL002", resp.Code)
		assert.Contains(t, resp.Error, "(2 columns, A..B)")
	})

	t.Run("unknown errors are not exposed", func(t *testing.T) {
		cfg := testConfig()
		svc := pipeline.NewService(nil, failingRecorder{}, pipeline.Options{})
		rec := httptest.NewRecorder()
		NewServer(cfg, svc).Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec.Body)
		assert.Equal(t, "ERR000", resp.Code)
		assert.Equal(t, "An unexpected error occurred", resp.Error)
		assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	})
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, history.Run) error { return nil }

func (failingRecorder) Recent(context.Context, int) ([]history.Run, error) {
	return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
}
