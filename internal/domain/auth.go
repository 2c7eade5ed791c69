package domain

import "github.com/golang-jwt/jwt/v5"

// ScopeWidgetsWrite разрешает редактирование настроек и публикацию изменений источников
const ScopeWidgetsWrite = "widgets:write"

type CustomClaims struct {
	UserID string          `json:"user_id"`
	Scopes map[string]bool `json:"scopes"` // "widgets:write": true
	jwt.RegisteredClaims
}
