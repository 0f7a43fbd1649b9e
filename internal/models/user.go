package models

import (
	"time"

	"github.com/google/uuid"
)

// User — учётная запись из общего стора бронирований/тикетов.
// Для auth-core пользователи доступны только на чтение: создание и
// администрирование учёток выполняют CRUD-бэкенды.
type User struct {
	ID uuid.UUID
	// Login — нормализованный логин (lower-case e-mail).
	Login string
	// PasswordHash — bcrypt-хэш пароля. Сырой пароль и хэш никогда
	// не пишутся в логи.
	PasswordHash string
	// Active — false для отключённых учёток; вход для них запрещён.
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
