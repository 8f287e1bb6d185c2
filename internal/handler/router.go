package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	IdentityResolver  middleware.IdentityResolver
	AdminChecker      middleware.AdminChecker
	RateLimiter       *middleware.RateLimiter
	HTTPRecorder      middleware.HTTPRecorder // nilの場合はHTTPメトリクスを記録しない
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	CartCookieConfig  middleware.CartCookieConfig

	// システム
	HealthChecker  HealthChecker
	MetricsHandler http.Handler // nilの場合は/metricsを公開しない

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// カタログ・カート・注文・管理
	CatalogService CatalogServiceInterface
	CartManager    CartService
	OrderService   OrderHistoryInterface
	AdminService   AdminServiceInterface
}

// CartService はカート操作とログイン状態の切り替えの両方を提供する。cart.Managerが満たす。
type CartService interface {
	CartManagerInterface
	CartRebinder
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS
//	  → Session → CartCookie → RateLimit(General) → CSRF
//
// /health と /metrics はセッション以降のミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, notFoundError())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, methodNotAllowedError())
	})

	// --- システム ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.CartManager, deps.AdminChecker, deps.AuthConfig)
	catalogHandler := NewCatalogHandler(deps.CatalogService)
	cartHandler := NewCartHandler(deps.CartManager, deps.CatalogService)
	orderHandler := NewOrderHandler(deps.OrderService)
	adminHandler := NewAdminHandler(deps.AdminService)

	// --- ブラウザ向けAPI ---
	// ミドルウェアスタック: Session → CartCookie → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.IdentityResolver))
		r.Use(middleware.NewCartCookieMiddleware(deps.CartCookieConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		// 認証
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)

			if deps.AuthService.OAuthEnabled() {
				r.Get("/google/login", authHandler.GoogleLogin)
				r.Get("/google/callback", authHandler.GoogleCallback)
			}
		})

		// 商品カタログ（ゲスト可）
		r.Get("/api/products", catalogHandler.ListProducts)
		r.Get("/api/products/{id}", catalogHandler.GetProduct)
		r.Get("/api/categories", catalogHandler.ListCategories)

		// カート（ゲスト可、チェックアウトのみログイン必須）
		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.Clear)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{id}", cartHandler.RemoveItem)

			// チェックアウト専用レート制限を追加
			r.With(middleware.RequireAuth, deps.RateLimiter.CheckoutMiddleware()).
				Post("/checkout", cartHandler.Checkout)
		})

		// 注文履歴
		r.With(middleware.RequireAuth).Get("/api/orders", orderHandler.ListOrders)

		// 商品管理（管理者のみ）
		r.Route("/api/admin/products", func(r chi.Router) {
			r.Use(middleware.NewRequireAdminMiddleware(deps.AdminChecker))
			r.Post("/", adminHandler.CreateProduct)
			r.Put("/{id}", adminHandler.UpdateProduct)
			r.Delete("/{id}", adminHandler.DeleteProduct)
		})
	})

	return r
}
