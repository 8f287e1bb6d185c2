package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// CartCookieName はカートIDを保持するCookieの名前。
const CartCookieName = "cart_id"

// CartCookieConfig はカートCookieの設定。
type CartCookieConfig struct {
	CookieSecure bool
	CookieDomain string
	MaxAge       int // Cookieの有効期間（秒）
}

// NewCartCookieMiddleware はブラウザセッションごとのカートIDを払い出すミドルウェアを返す。
// 既存のcart_id CookieがUUIDとして妥当ならそれを使い、なければ新規に発行して設定する。
// カートIDはCartIDFromContextで取得できる。
func NewCartCookieMiddleware(config CartCookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var cartID string
			if cookie, err := r.Cookie(CartCookieName); err == nil {
				if id, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
					cartID = id.String()
				}
			}

			if cartID == "" {
				cartID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     CartCookieName,
					Value:    cartID,
					Path:     "/",
					Domain:   config.CookieDomain,
					MaxAge:   config.MaxAge,
					HttpOnly: true,
					Secure:   config.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(ContextWithCartID(r.Context(), cartID)))
		})
	}
}

// CartIDFromContext はリクエストコンテキストからカートIDを取得する。
// NewCartCookieMiddlewareを通過していない場合は空文字列を返す。
func CartIDFromContext(ctx context.Context) string {
	cartID, _ := ctx.Value(cartIDContextKey).(string)
	return cartID
}

// ContextWithCartID はコンテキストにカートIDを注入する。
func ContextWithCartID(ctx context.Context, cartID string) context.Context {
	return context.WithValue(ctx, cartIDContextKey, cartID)
}
