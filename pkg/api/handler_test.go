package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"shelf-harvest/pkg/models"
	"shelf-harvest/pkg/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	scraped := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	rice := models.Product{
		Name:               "Golden Phoenix Jasmine Rice 5kg",
		Price:              decimal.NewFromInt(128),
		Currency:           "HKD",
		URL:                "https://www.pns.hk/en/rice/p/BP_22596",
		OriginalPrice:      decimal.NewNullDecimal(decimal.NewFromInt(160)),
		DiscountPercentage: decimal.NewNullDecimal(decimal.NewFromInt(20)),
		Category:           "Food & Beverages > Rice",
		Brand:              "DAKEN LTD",
		InStock:            true,
		ScrapedAt:          scraped,
	}
	biscuits := models.Product{
		Name:      "All Butter Shortbread",
		Price:     decimal.RequireFromString("39.90"),
		Currency:  "HKD",
		URL:       "https://www.marksandspencer.hk/en/products/shortbread/123",
		Category:  "Food > Biscuits",
		Brand:     "Marks & Spencer",
		InStock:   false,
		ScrapedAt: scraped,
	}
	_, err = s.Upsert(ctx, []models.Product{rice, biscuits})
	require.NoError(t, err)
	return s
}

func newMux(t *testing.T, r Reader) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(r, zaptest.NewLogger(t)).Register(mux)
	return mux
}

func TestProductRoutes(t *testing.T) {
	mux := newMux(t, seededStore(t))

	tests := []struct {
		name      string
		path      string
		wantNames []string
	}{
		{"list", "/products", []string{"Golden Phoenix Jasmine Rice 5kg", "All Butter Shortbread"}},
		{"search is case insensitive", "/products/search?name=jasmine", []string{"Golden Phoenix Jasmine Rice 5kg"}},
		{"category contains", "/products/category?category=Biscuits", []string{"All Butter Shortbread"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, http.StatusOK, rr.Code)
			require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var got []store.Record
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			var names []string
			for _, r := range got {
				require.NotZero(t, r.ID)
				names = append(names, r.Name)
			}
			require.Equal(t, tt.wantNames, names)
		})
	}
}

func TestProductRoutesRecordShape(t *testing.T) {
	mux := newMux(t, seededStore(t))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/search?name=rice", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	for _, key := range []string{"id", "name", "price", "currency", "url", "original_price", "discount_percentage", "in_stock", "scraped_at", "created_at", "updated_at"} {
		require.Contains(t, got[0], key)
	}
	require.Equal(t, true, got[0]["in_stock"])
	require.Nil(t, got[0]["pack_size_quantity"])
}

func TestProductRoutesProblems(t *testing.T) {
	mux := newMux(t, seededStore(t))

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedDetail string
	}{
		{"search without name", "/products/search", http.StatusBadRequest, "Missing required query parameter: name"},
		{"category without value", "/products/category?category=", http.StatusBadRequest, "Missing required query parameter: category"},
		{"search miss", "/products/search?name=durian", http.StatusNotFound, "Product not found"},
		{"category miss", "/products/category?category=Frozen", http.StatusNotFound, "No products found in this category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if status := rr.Code; status != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", status, tt.expectedStatus)
			}
			if contentType := rr.Header().Get("Content-Type"); contentType != "application/problem+json" {
				t.Errorf("handler returned wrong content type: got %v", contentType)
			}

			var pd ProblemDetails
			if err := json.Unmarshal(rr.Body.Bytes(), &pd); err != nil {
				t.Fatalf("handler returned invalid JSON: %v. Body: %s", err, rr.Body.String())
			}
			if pd.Status != tt.expectedStatus {
				t.Errorf("JSON status mismatch: got %v want %v", pd.Status, tt.expectedStatus)
			}
			if pd.Type != "about:blank" {
				t.Errorf("JSON type mismatch: got %v", pd.Type)
			}
			if !strings.Contains(pd.Detail, tt.expectedDetail) {
				t.Errorf("JSON detail mismatch: got %q, want substring %q", pd.Detail, tt.expectedDetail)
			}
			if pd.Instance != req.URL.Path {
				t.Errorf("JSON instance mismatch: got %v want %v", pd.Instance, req.URL.Path)
			}
		})
	}
}

func TestListEmptyIsNotAnError(t *testing.T) {
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()

	rr := httptest.NewRecorder()
	newMux(t, s).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[]`, rr.Body.String())
}

func TestStatsRoute(t *testing.T) {
	rr := httptest.NewRecorder()
	newMux(t, seededStore(t)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var st store.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	require.Equal(t, 2, st.Total)
	require.Equal(t, 1, st.Discounted)
	require.Equal(t, "83.95", st.AveragePrice.StringFixed(2))
	require.Len(t, st.TopBrands, 2)
}

type brokenReader struct{}

var errDisk = errors.New("disk I/O error")

func (brokenReader) List(context.Context) ([]store.Record, error) { return nil, errDisk }
func (brokenReader) SearchByName(context.Context, string) ([]store.Record, error) {
	return nil, errDisk
}
func (brokenReader) FilterByCategory(context.Context, string) ([]store.Record, error) {
	return nil, errDisk
}
func (brokenReader) Stats(context.Context) (store.Stats, error) { return store.Stats{}, errDisk }

func TestStoreFailureIsInternalError(t *testing.T) {
	mux := newMux(t, brokenReader{})

	for _, path := range []string{"/products", "/products/search?name=x", "/products/category?category=x", "/stats"} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusInternalServerError, rr.Code, path)

		var pd ProblemDetails
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pd))
		require.NotContains(t, pd.Detail, "disk")
	}
}
