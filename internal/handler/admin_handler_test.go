package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/storefront/internal/admin"
	"github.com/hitoshi/storefront/internal/model"
)

func newAdminTestRouter(svc AdminServiceInterface) http.Handler {
	h := NewAdminHandler(svc)
	r := chi.NewRouter()
	r.Post("/api/admin/products", h.CreateProduct)
	r.Put("/api/admin/products/{id}", h.UpdateProduct)
	r.Delete("/api/admin/products/{id}", h.DeleteProduct)
	return r
}

func TestAdminHandler_CreateProduct(t *testing.T) {
	svc := &mockAdminService{
		createProductFn: func(ctx context.Context, form admin.ProductForm) (*model.Product, error) {
			if form.Name != "Desk Lamp" || form.Price != "39.90" {
				t.Errorf("form = %+v", form)
			}
			return &model.Product{ID: "p-10", Name: form.Name, Price: decimal.RequireFromString(form.Price), Rating: 4.5, InStock: true}, nil
		},
	}
	router := newAdminTestRouter(svc)

	req := newJSONRequest(t, http.MethodPost, "/api/admin/products", map[string]any{
		"name": "Desk Lamp", "price": "39.90", "category": "Home", "image": "https://cdn.example.com/lamp.png",
	})
	w := serve(router, withIdentity(req, "cart", &model.Identity{UserID: "admin"}))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var body productResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "p-10" || body.Price != "39.90" {
		t.Errorf("body = %+v", body)
	}
}

func TestAdminHandler_UpdateProduct_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "入力不正", err: model.NewInvalidProductError("価格が不正です"), want: http.StatusBadRequest},
		{name: "存在しない", err: model.NewProductNotFoundError("p-404"), want: http.StatusNotFound},
		{name: "バックエンド障害", err: model.NewCatalogUnavailableError(), want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAdminTestRouter(&mockAdminService{
				updateProductFn: func(ctx context.Context, id string, form admin.ProductForm) (*model.Product, error) {
					return nil, tt.err
				},
			})
			w := serve(router, newJSONRequest(t, http.MethodPut, "/api/admin/products/p-404", map[string]any{"name": "x"}))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAdminHandler_DeleteProduct(t *testing.T) {
	var deleted string
	router := newAdminTestRouter(&mockAdminService{
		deleteProductFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	})

	w := serve(router, httptest.NewRequest(http.MethodDelete, "/api/admin/products/p-7", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deleted != "p-7" {
		t.Errorf("deleted = %q, want p-7", deleted)
	}
}
