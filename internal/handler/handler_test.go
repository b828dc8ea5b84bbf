package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/events"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/media"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/repository"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMedia struct {
	mu        sync.Mutex
	uploads   []domain.ImageFile
	deletes   []string
	uploadErr error
}

func (m *fakeMedia) Upload(_ context.Context, f domain.ImageFile) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return "", &domain.UpstreamError{Op: "upload", Err: m.uploadErr}
	}
	// The staged file must still exist while the upload runs.
	if _, err := os.Stat(f.Path); err != nil {
		return "", &domain.UpstreamError{Op: "upload", Err: err}
	}
	m.uploads = append(m.uploads, f)
	return "https://cdn.test/products/" + f.Filename, nil
}

func (m *fakeMedia) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, url)
	return nil
}

// brokenProducts fails every read, standing in for an unreachable database.
type brokenProducts struct {
	repository.ProductRepository
}

var errDown = errors.New("connection refused")

func (brokenProducts) List(context.Context, domain.ProductFilter) ([]domain.Product, int64, error) {
	return nil, 0, &domain.StorageError{Op: "list", Err: errDown}
}

func (brokenProducts) Summary(context.Context, int) (*domain.StockSummary, error) {
	return nil, &domain.StorageError{Op: "summary", Err: errDown}
}

type testServer struct {
	router   *gin.Engine
	products repository.ProductRepository
	media    *fakeMedia
	stageDir string
}

type serverOption func(*serverConfig)

type serverConfig struct {
	products     repository.ProductRepository
	devMode      bool
	authRequired bool
}

func withProducts(repo repository.ProductRepository) serverOption {
	return func(c *serverConfig) { c.products = repo }
}

func withDevMode() serverOption {
	return func(c *serverConfig) { c.devMode = true }
}

func withAuthRequired() serverOption {
	return func(c *serverConfig) { c.authRequired = true }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	cfg := serverConfig{products: repository.NewMemoryProductRepository()}
	for _, opt := range opts {
		opt(&cfg)
	}

	dir := t.TempDir()
	stager, err := media.NewStager(dir, 1024)
	require.NoError(t, err)

	logger := zap.NewNop()
	store := &fakeMedia{}
	users := repository.NewMemoryUserRepository()

	productService := service.NewProductService(cfg.products, users, store, events.NoopPublisher{}, logger)
	analyticsService := service.NewAnalyticsService(cfg.products, logger)
	authService := service.NewAuthService(users, logger)

	router := NewRouter(RouterConfig{
		Products:     NewProductHandler(productService, stager, logger, cfg.devMode),
		Analytics:    NewAnalyticsHandler(analyticsService, logger, cfg.devMode),
		Auth:         NewAuthHandler(authService, logger, cfg.devMode),
		Logger:       logger,
		AuthSecret:   "test-secret",
		AuthRequired: cfg.authRequired,
		CORSOrigins:  []string{"*"},
	})

	return &testServer{
		router:   router,
		products: cfg.products,
		media:    store,
		stageDir: filepath.Join(dir, "staging"),
	}
}

func (s *testServer) do(t *testing.T, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) create(t *testing.T, body string) domain.Product {
	t.Helper()
	w := s.do(t, http.MethodPost, "/products", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p domain.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type filePart struct {
	field, filename, contentType string
	data                         []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+file.field+`"; filename="`+file.filename+`"`)
		h.Set("Content-Type", file.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestCreateProduct_StringNumbers(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/products", `{"name":"Pen","price":"1.50","quantity":"100"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "Pen", body["name"])
	assert.Equal(t, 1.5, body["price"])
	assert.Equal(t, float64(100), body["quantity"])
	assert.Nil(t, body["image"])
	assert.NotEmpty(t, body["id"])
	assert.NotEmpty(t, body["userId"])
}

func TestCreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing price", `{"name":"Pen"}`, "Name and price are required"},
		{"blank name", `{"name":"  ","price":1}`, "Name and price are required"},
		{"negative price", `{"name":"Pen","price":-1}`, "Price must be a non-negative number"},
		{"fractional quantity", `{"name":"Pen","price":1,"quantity":1.5}`, "Quantity must be a non-negative integer"},
		{"malformed", `{"name":`, msgInvalidBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			w := s.do(t, http.MethodPost, "/products", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, decode(t, w)["error"])
		})
	}
}

func TestCreateProduct_Multipart(t *testing.T) {
	s := newTestServer(t)

	body, contentType := multipartBody(t,
		map[string]string{"name": "Mug", "price": "4.25", "quantity": "3"},
		&filePart{field: "image", filename: "mug.png", contentType: "image/png", data: []byte("png-bytes")})

	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decode(t, w)
	assert.Equal(t, "https://cdn.test/products/mug.png", got["image"])
	assert.Equal(t, 4.25, got["price"])
	require.Len(t, s.media.uploads, 1)

	staged, err := os.ReadDir(s.stageDir)
	require.NoError(t, err)
	assert.Empty(t, staged, "staged file should be removed after the request")
}

func TestCreateProduct_MultipartRejectsNonImage(t *testing.T) {
	s := newTestServer(t)

	body, contentType := multipartBody(t,
		map[string]string{"name": "Mug", "price": "4"},
		&filePart{field: "image", filename: "notes.txt", contentType: "text/plain", data: []byte("hello")})

	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Only image files are allowed", decode(t, w)["error"])
	assert.Empty(t, s.media.uploads)
}

func TestCreateProduct_UploadFailure(t *testing.T) {
	s := newTestServer(t)
	s.media.uploadErr = errors.New("cloud down")

	body, contentType := multipartBody(t,
		map[string]string{"name": "Mug", "price": "4"},
		&filePart{field: "image", filename: "mug.png", contentType: "image/png", data: []byte("png")})

	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	got := decode(t, w)
	assert.Equal(t, msgUploadFailed, got["error"])
	assert.NotContains(t, got, "details")

	page := s.do(t, http.MethodGet, "/products", "")
	assert.Equal(t, float64(0), decode(t, page)["pagination"].(map[string]any)["total"])
}

func TestGetProduct(t *testing.T) {
	s := newTestServer(t)
	p := s.create(t, `{"name":"Pen","price":1}`)

	w := s.do(t, http.MethodGet, "/products/"+p.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Pen", decode(t, w)["name"])

	for _, id := range []string{"6f1c8a53-0d0e-4c35-9c1f-1b6a43b0f0aa", "not-a-uuid"} {
		w = s.do(t, http.MethodGet, "/products/"+id, "")
		assert.Equal(t, http.StatusNotFound, w.Code, id)
		assert.Equal(t, msgProductNotFound, decode(t, w)["error"])
	}
}

func TestUpdateProduct(t *testing.T) {
	s := newTestServer(t)
	p := s.create(t, `{"name":"Pen","description":"blue","price":1,"quantity":4}`)

	w := s.do(t, http.MethodPut, "/products/"+p.ID, `{"quantity":"9","description":null}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode(t, w)
	assert.Equal(t, "Pen", got["name"])
	assert.Equal(t, float64(9), got["quantity"])
	assert.Nil(t, got["description"])

	req := httptest.NewRequest(http.MethodPut, "/products/"+p.ID, nil)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	unchanged := decode(t, w)
	assert.Equal(t, "Pen", unchanged["name"])
	assert.Equal(t, float64(9), unchanged["quantity"])

	w = s.do(t, http.MethodPut, "/products/"+p.ID, `{"price":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/products/6f1c8a53-0d0e-4c35-9c1f-1b6a43b0f0aa", `{"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteProduct(t *testing.T) {
	s := newTestServer(t)
	p := s.create(t, `{"name":"Pen","price":1,"image":"https://cdn.test/products/pen.png"}`)

	w := s.do(t, http.MethodDelete, "/products/"+p.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Product deleted successfully"}`, w.Body.String())
	assert.Equal(t, []string{"https://cdn.test/products/pen.png"}, s.media.deletes)

	w = s.do(t, http.MethodDelete, "/products/"+p.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListProducts(t *testing.T) {
	s := newTestServer(t)
	s.create(t, `{"name":"Alpha","price":10,"quantity":1}`)
	s.create(t, `{"name":"Beta","price":20,"quantity":5}`)
	s.create(t, `{"name":"Gamma","price":30,"quantity":50}`)

	t.Run("filters and sorts", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/products?minPrice=15&sortBy=price&sortOrder=asc", "")
		require.Equal(t, http.StatusOK, w.Code)

		var page domain.ProductPage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		require.Len(t, page.Products, 2)
		assert.Equal(t, "Beta", page.Products[0].Name)
		assert.Equal(t, "Gamma", page.Products[1].Name)
		assert.Equal(t, domain.Pagination{Page: 1, Limit: 10, Total: 2, TotalPages: 1}, page.Pagination)
	})

	t.Run("ignores unparseable numbers", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/products?minPrice=cheap&page=x&limit=y", "")
		require.Equal(t, http.StatusOK, w.Code)

		var page domain.ProductPage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		assert.Len(t, page.Products, 3)
		assert.Equal(t, 1, page.Pagination.Page)
		assert.Equal(t, 10, page.Pagination.Limit)
	})

	t.Run("page too large to address", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/products?page=92233720368547760&limit=100", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var page domain.ProductPage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		assert.Empty(t, page.Products)
		assert.Equal(t, int64(3), page.Pagination.Total)
	})

	t.Run("page past the end", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/products?page=5&limit=2", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t,
			`{"products":[],"pagination":{"page":5,"limit":2,"total":3,"totalPages":2}}`,
			w.Body.String())
	})
}

func TestAnalytics(t *testing.T) {
	s := newTestServer(t)
	s.create(t, `{"name":"A","price":10,"quantity":2}`)
	s.create(t, `{"name":"B","price":5,"quantity":0}`)

	w := s.do(t, http.MethodGet, "/analytics/stock-summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"totalProducts": 2,
		"totalQuantity": 2,
		"totalInventoryValue": 20,
		"lowStockCount": 1,
		"outOfStockCount": 1
	}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/analytics/stock-by-product", "")
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "A", first["name"])
	assert.Equal(t, float64(20), first["inventoryValue"])
}

func TestStorageFailure(t *testing.T) {
	t.Run("production hides details", func(t *testing.T) {
		s := newTestServer(t, withProducts(brokenProducts{}))
		w := s.do(t, http.MethodGet, "/products", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Failed to fetch products"}`, w.Body.String())
	})

	t.Run("development includes details", func(t *testing.T) {
		s := newTestServer(t, withProducts(brokenProducts{}), withDevMode())
		w := s.do(t, http.MethodGet, "/analytics/stock-summary", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		got := decode(t, w)
		assert.Equal(t, "Failed to fetch stock summary", got["error"])
		assert.Contains(t, got["details"], "connection refused")
	})
}

func TestAuthUpsert(t *testing.T) {
	s := newTestServer(t)

	body := `{"email":"ada@example.com","username":"ada","googleId":"g-1","name":"Ada"}`
	w := s.do(t, http.MethodPost, "/auth/upsert", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode(t, w)
	assert.Equal(t, "ada@example.com", first["email"])
	assert.Equal(t, "Ada", first["name"])

	w = s.do(t, http.MethodPost, "/auth/upsert", `{"email":"ada@example.com","username":"ada2","googleId":"g-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode(t, w)
	assert.Equal(t, first["id"], second["id"])
	assert.Equal(t, "ada2", second["username"])
	assert.Equal(t, "Ada", second["name"])

	w = s.do(t, http.MethodPost, "/auth/upsert", `{"email":"ada@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email, username, and googleId are required", decode(t, w)["error"])
}

func TestAuthUpsert_RequiresUser(t *testing.T) {
	s := newTestServer(t, withAuthRequired())
	w := s.do(t, http.MethodPost, "/auth/upsert", `{"email":"ada@example.com","username":"ada","googleId":"g-1"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListQueryFilter(t *testing.T) {
	q := listQuery{MinPrice: "1.5", MaxQuantity: "7", SortOrder: "ASC", Limit: "500"}
	f := q.filter()
	require.NotNil(t, f.MinPrice)
	assert.Equal(t, 1.5, *f.MinPrice)
	require.NotNil(t, f.MaxQuantity)
	assert.Equal(t, 7, *f.MaxQuantity)
	assert.Nil(t, f.MaxPrice)
	assert.Equal(t, domain.SortAsc, f.SortOrder)
	assert.Equal(t, 500, f.Limit)
	assert.Equal(t, domain.DefaultPage, f.Page)
	assert.Nil(t, parseFloat("NaN"))
}
