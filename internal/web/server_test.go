package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/OrderImport/internal/config"
	"github.com/JonMunkholm/OrderImport/internal/core"
	"github.com/JonMunkholm/OrderImport/internal/ingest"
	"github.com/JonMunkholm/OrderImport/internal/orders"
)

const feed = `<items>
<item><order_id>W1</order_id><advcampaign_id>3</advcampaign_id><cart>1.50</cart><currency>USD</currency></item>
<item><order_id>W2</order_id><advcampaign_id>3</advcampaign_id><cart>2.50</cart><currency>USD</currency></item>
</items>`

func newTestServer(t *testing.T, security config.SecurityConfig) (*Server, string) {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Import: config.ImportConfig{
			BaseDir:         dir,
			ColumnSeparator: `\t`,
			LineSeparator:   `\n`,
			ElementName:     "item",
			RevenueMarker:   ingest.DefaultRevenueMarker,
			MaxConcurrent:   1,
			MaxWaitTime:     time.Second,
			Timeout:         time.Minute,
			HistorySize:     10,
		},
		Security: security,
	}

	svc, err := core.NewService(orders.NewMemoryStore(), cfg.Import, nil)
	require.NoError(t, err)
	return NewServer(svc, cfg), dir
}

func do(t *testing.T, s *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestRunImportAndInspect(t *testing.T) {
	s, dir := newTestServer(t, config.SecurityConfig{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feed.xml"), []byte(feed), 0o644))

	rec := do(t, s, http.MethodPost, "/api/imports", `{"format":"element","file":"feed.xml","chunkSize":64}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res ingest.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, ingest.FormatElement, res.Format)

	rec = do(t, s, http.MethodGet, "/api/imports/"+res.ImportID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/imports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list listImportsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Imports, 1)
	assert.Equal(t, 1, list.Limiter.MaxConcurrent)

	rec = do(t, s, http.MethodGet, "/api/orders/W2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var order orders.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, "2.5", order.Price.String())
	assert.Equal(t, "USD", order.Currency)

	rec = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"orders":2`)
}

func TestRunImportErrors(t *testing.T) {
	s, dir := newTestServer(t, config.SecurityConfig{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feed.xml"), []byte(feed), 0o644))

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `{"format":`, http.StatusBadRequest, "IMP001"},
		{"unknown field", `{"format":"element","file":"feed.xml","extra":1}`, http.StatusBadRequest, "IMP001"},
		{"wrong extension", `{"format":"delimited","file":"feed.xml"}`, http.StatusBadRequest, "IMP001"},
		{"missing file", `{"format":"element","file":"nope.xml"}`, http.StatusBadRequest, "IMP001"},
		{"traversal", `{"format":"element","file":"../feed.xml"}`, http.StatusBadRequest, "IMP002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/imports", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestNotFound(t *testing.T) {
	s, _ := newTestServer(t, config.SecurityConfig{})

	rec := do(t, s, http.MethodGet, "/api/imports/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "IMP007")

	rec = do(t, s, http.MethodGet, "/api/orders/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ORD001")
}

func TestRunImportRequiresAPIKey(t *testing.T) {
	s, _ := newTestServer(t, config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}})

	rec := do(t, s, http.MethodPost, "/api/imports", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/imports", `{"format":"element","file":"x.xml"}`, "X-API-Key", "secret")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "authorized request reaches the handler")

	rec = do(t, s, http.MethodGet, "/api/imports", "")
	assert.Equal(t, http.StatusOK, rec.Code, "reads are not guarded")
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, config.SecurityConfig{})

	do(t, s, http.MethodGet, "/healthz", "")
	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "orderimport_http_requests_total")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(core.ErrImportInProgress))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(core.ErrTooManyImports))
	assert.Equal(t, http.StatusInternalServerError, statusFor(ingest.ErrIO))
}
