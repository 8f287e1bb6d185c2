package backend

import (
	"net/http"
	"time"
)

// outcome はHTTPステータスコードに基づくレスポンスの分類。
type outcome int

const (
	// outcomeOK は2xx。
	outcomeOK outcome = iota
	// outcomeNotFound は404/410。
	outcomeNotFound
	// outcomeRetry は再試行の対象（429/5xx）。
	outcomeRetry
	// outcomeFail はそれ以外の失敗。
	outcomeFail
)

const (
	// defaultMaxRetries は読み取り系リクエストの最大再試行回数。
	defaultMaxRetries = 2
	// defaultRetryDelay は初回の再試行までの待ち時間。
	defaultRetryDelay = 200 * time.Millisecond
	// maxRetryDelay は再試行待ち時間の上限。
	maxRetryDelay = 2 * time.Second
)

// classifyStatus はHTTPステータスコードを分類する。
func classifyStatus(statusCode int) outcome {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return outcomeOK
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return outcomeNotFound
	case statusCode == http.StatusTooManyRequests:
		return outcomeRetry
	case statusCode >= 500:
		return outcomeRetry
	default:
		return outcomeFail
	}
}

// retryDelay は再試行回数に応じた指数バックオフの待ち時間を返す。
// base、2倍ずつ増加、最大2秒。
func retryDelay(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}
