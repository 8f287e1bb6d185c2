// Package model はドメインモデルを定義する。
package model

import "time"

// Identity は認証済みユーザーの識別情報を表す。
// ユーザー自体はバックエンドが所有し、本サービスはセッションに複製を保持するのみ。
type Identity struct {
	UserID   string
	Name     string
	Email    string
	Provider string
}

// 認証プロバイダ。
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	Identity  Identity
	ExpiresAt time.Time
	CreatedAt time.Time
}
