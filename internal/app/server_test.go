package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/storefront/internal/config"
)

// newFakeBackend は商品一覧だけを返すバックエンドのテストサーバーを返す。
func newFakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/products" {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `[
				{"id": 1, "name": "Wireless Mouse", "price": 19.99, "category": "Electronics"},
				{"id": 2, "name": "Coffee Mug", "price": 8, "category": "Kitchen", "in_stock": false}
			]`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		BackendURL:        backendURL,
		BackendTimeout:    2 * time.Second,
		BackendMaxRetries: 0,
		OrderTimeout:      2 * time.Second,
		SessionMaxAge:     3600,
		CartStoreSize:     16,
		CartCookieMaxAge:  3600,
		CatalogCacheTTL:   time.Minute,
		RateLimitGeneral:  120,
		RateLimitCheckout: 5,
		BaseURL:           "http://localhost:8080",
		CORSAllowedOrigin: "http://localhost:3000",
	}
}

// TestBuildServer_WiresDependencies は構築したハンドラーがバックエンド・DB・メトリクスと
// 接続されていることを検証する。
func TestBuildServer_WiresDependencies(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mock.ExpectPing()

	reg := prometheus.NewRegistry()
	backendSrv := newFakeBackend(t)
	srv, err := buildServer(testConfig(backendSrv.URL), db, reg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("buildServer: %v", err)
	}
	defer srv.close()

	ts := httptest.NewServer(srv.handler)
	defer ts.Close()

	// /health はDBのPingを行う
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// 商品一覧はバックエンドから取得する
	resp, err = http.Get(ts.URL + "/api/products?category=Electronics")
	if err != nil {
		t.Fatalf("GET /api/products: %v", err)
	}
	var body struct {
		Products []struct {
			ID      string `json:"id"`
			Price   string `json:"price"`
			InStock bool   `json:"in_stock"`
		} `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	resp.Body.Close()
	if len(body.Products) != 1 || body.Products[0].ID != "1" || body.Products[0].Price != "19.99" {
		t.Errorf("products = %+v", body.Products)
	}

	// Google OAuth未設定のためルートは存在しない
	resp, err = http.Get(ts.URL + "/auth/google/login")
	if err != nil {
		t.Fatalf("GET /auth/google/login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("/auth/google/login status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	// /metrics にはバックエンド呼び出しとHTTPリクエストが記録される
	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, name := range []string{
		`storefront_backend_requests_total{operation="list_products",status_code="200"} 1`,
		"storefront_http_requests_total",
		`storefront_catalog_cache_total{result="miss"} 1`,
	} {
		if !strings.Contains(string(raw), name) {
			t.Errorf("/metrics should contain %s", name)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestRateLimiterConfig_ConvertsPerMinute(t *testing.T) {
	cfg := &config.Config{RateLimitGeneral: 60, RateLimitCheckout: 3}
	rlc := rateLimiterConfig(cfg)

	if rlc.GeneralRate != 1 || rlc.GeneralBurst != 60 {
		t.Errorf("general = (%v, %d), want (1, 60)", rlc.GeneralRate, rlc.GeneralBurst)
	}
	if rlc.CheckoutRate != 0.05 || rlc.CheckoutBurst != 3 {
		t.Errorf("checkout = (%v, %d), want (0.05, 3)", rlc.CheckoutRate, rlc.CheckoutBurst)
	}

	defaults := rateLimiterConfig(&config.Config{})
	if defaults.GeneralBurst != 120 || defaults.CheckoutBurst != 5 {
		t.Errorf("defaults = %+v", defaults)
	}
}

func TestWorkerRouter(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mock.ExpectPing()

	ts := httptest.NewServer(workerRouter(db, prometheus.NewRegistry()))
	defer ts.Close()

	for _, path := range []string{"/health", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want %d", path, resp.StatusCode, http.StatusOK)
		}
	}
}
