// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, cart, catalog, order, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNotAuthenticated   = "NOT_AUTHENTICATED"
	ErrCodeEmptyCart          = "EMPTY_CART"
	ErrCodeCheckoutFailed     = "CHECKOUT_FAILED"
	ErrCodeCheckoutInProgress = "CHECKOUT_IN_PROGRESS"
	ErrCodeCatalogUnavailable = "CATALOG_UNAVAILABLE"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeOutOfStock         = "OUT_OF_STOCK"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeSignUpFailed       = "SIGNUP_FAILED"
	ErrCodeAuthUnavailable    = "AUTH_UNAVAILABLE"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidProduct     = "INVALID_PRODUCT"
	ErrCodeOrdersUnavailable  = "ORDERS_UNAVAILABLE"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeCSRFInvalid        = "CSRF_INVALID"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// HasCode はerrがAPIErrorであり、指定コードを持つかを判定する。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// NewNotAuthenticatedError は未ログイン状態での操作エラーを生成する。
func NewNotAuthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAuthenticated,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインしてから注文してください。",
	}
}

// NewEmptyCartError はカートが空の状態でチェックアウトした場合のエラーを生成する。
func NewEmptyCartError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyCart,
		Message:  "カートが空です。",
		Category: "cart",
		Action:   "商品をカートに追加してから注文してください。",
	}
}

// NewCheckoutFailedError は注文送信の失敗エラーを生成する。
// reasonにはバックエンドが返したメッセージまたは通信エラーの概要を渡す。
func NewCheckoutFailedError(reason string) *APIError {
	msg := "注文の送信に失敗しました。"
	if reason != "" {
		msg = fmt.Sprintf("注文の送信に失敗しました: %s", reason)
	}
	return &APIError{
		Code:     ErrCodeCheckoutFailed,
		Message:  msg,
		Category: "order",
		Action:   "カートの内容は保持されています。しばらく待ってから再度お試しください。",
	}
}

// NewCheckoutInProgressError は注文送信中に再度チェックアウトした場合のエラーを生成する。
func NewCheckoutInProgressError() *APIError {
	return &APIError{
		Code:     ErrCodeCheckoutInProgress,
		Message:  "注文を送信中です。",
		Category: "order",
		Action:   "送信結果が表示されるまでお待ちください。",
	}
}

// NewCatalogUnavailableError は商品カタログの取得失敗エラーを生成する。
func NewCatalogUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeCatalogUnavailable,
		Message:  "商品情報を取得できませんでした。",
		Category: "catalog",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %s", productID),
		Category: "catalog",
		Action:   "商品一覧から商品を選び直してください。",
	}
}

// NewOutOfStockError は在庫切れ商品をカートに追加しようとした場合のエラーを生成する。
func NewOutOfStockError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeOutOfStock,
		Message:  fmt.Sprintf("%s は在庫切れです。", name),
		Category: "catalog",
		Action:   "入荷をお待ちいただくか、別の商品をお選びください。",
	}
}

// NewInvalidRequestError はリクエスト内容の検証エラーを生成する。
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewSignUpFailedError は会員登録の失敗エラーを生成する。
func NewSignUpFailedError(reason string) *APIError {
	msg := "会員登録に失敗しました。"
	if reason != "" {
		msg = fmt.Sprintf("会員登録に失敗しました: %s", reason)
	}
	return &APIError{
		Code:     ErrCodeSignUpFailed,
		Message:  msg,
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewAuthUnavailableError は認証サービスとの通信失敗エラーを生成する。
func NewAuthUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthUnavailable,
		Message:  "認証サービスに接続できませんでした。",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewForbiddenError は管理者権限がない場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewInvalidProductError は商品登録・更新時の入力検証エラーを生成する。
func NewInvalidProductError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProduct,
		Message:  fmt.Sprintf("商品情報が不正です: %s", reason),
		Category: "validation",
		Action:   "商品名、価格、カテゴリ、画像URLを確認してください。",
	}
}

// NewOrdersUnavailableError は注文履歴の取得失敗エラーを生成する。
func NewOrdersUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeOrdersUnavailable,
		Message:  "注文履歴を取得できませんでした。",
		Category: "order",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewCSRFInvalidError はCSRFトークン検証の失敗エラーを生成する。
func NewCSRFInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
