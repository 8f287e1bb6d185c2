package admin

import (
	"strings"

	"github.com/hitoshi/storefront/internal/model"
)

// Authorizer は管理者メールアドレスの許可リストで管理者を判定する。
type Authorizer struct {
	emails map[string]bool
}

// NewAuthorizer はAuthorizerを生成する。メールアドレスは大文字小文字を区別しない。
func NewAuthorizer(emails []string) *Authorizer {
	m := make(map[string]bool, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			m[e] = true
		}
	}
	return &Authorizer{emails: m}
}

// IsAdmin は識別情報が管理者のものかを判定する。
func (a *Authorizer) IsAdmin(identity *model.Identity) bool {
	if identity == nil || identity.Email == "" {
		return false
	}
	return a.emails[strings.ToLower(identity.Email)]
}
