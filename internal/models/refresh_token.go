package models

import (
	"time"

	"github.com/google/uuid"
)

// Причины отзыва refresh-токена (refresh_tokens.revoked_reason).
const (
	// RevokeReasonRotated — токен заменён преемником при ротации.
	RevokeReasonRotated = "rotated"
	// RevokeReasonLogout — явный выход пользователя.
	RevokeReasonLogout = "logout"
	// RevokeReasonReplay — каскадный отзыв после обнаружения replay.
	RevokeReasonReplay = "replay"
)

// RefreshToken — серверная запись о refresh-токене.
//
// Сырое значение токена известно только клиенту; в БД хранится лишь
// его SHA-256-хэш (base64url). Запись мутирует ровно один раз — при
// отзыве (явном или в рамках ротации); отозванный или просроченный
// токен навсегда недействителен.
type RefreshToken struct {
	// TokenHash — SHA-256 от сырого значения, base64url без паддинга.
	TokenHash string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
	// RevokedReason — причина отзыва (см. RevokeReason*), nil пока активен.
	RevokedReason *string
	// LastUsedAt — момент последней успешной ротации этим токеном.
	LastUsedAt *time.Time
	// SourceAddr — адрес клиента при выпуске токена (может отсутствовать).
	SourceAddr *string
}

// Active сообщает, пригоден ли токен для ротации на момент now.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
