package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"shelf-harvest/pkg/store"
)

// Reader is the read side of the product store.
type Reader interface {
	List(ctx context.Context) ([]store.Record, error)
	SearchByName(ctx context.Context, name string) ([]store.Record, error)
	FilterByCategory(ctx context.Context, category string) ([]store.Record, error)
	Stats(ctx context.Context) (store.Stats, error)
}

type Handler struct {
	products Reader
	log      *zap.Logger
}

func NewHandler(products Reader, log *zap.Logger) *Handler {
	return &Handler{products: products, log: log}
}

// Register mounts the product routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", h.list)
	mux.HandleFunc("GET /products/search", h.search)
	mux.HandleFunc("GET /products/category", h.category)
	mux.HandleFunc("GET /stats", h.stats)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	records, err := h.products.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, records)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	name, ok := requireQuery(w, r, "name")
	if !ok {
		return
	}

	records, err := h.products.SearchByName(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		WriteNotFound(w, "Product not found", r.URL.Path)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, records)
}

func (h *Handler) category(w http.ResponseWriter, r *http.Request) {
	category, ok := requireQuery(w, r, "category")
	if !ok {
		return
	}

	records, err := h.products.FilterByCategory(r.Context(), category)
	if errors.Is(err, store.ErrNotFound) {
		WriteNotFound(w, "No products found in this category", r.URL.Path)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, records)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.products.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, st)
}

func requireQuery(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		WriteBadRequest(w, fmt.Sprintf("Missing required query parameter: %s", key), r.URL.Path)
		return "", false
	}
	return v, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("read products", zap.String("path", r.URL.Path), zap.Error(err))
	WriteInternalServerError(w, errors.New("failed to read products"), r.URL.Path)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("encode response", zap.String("path", r.URL.Path), zap.Error(err))
	}
}
