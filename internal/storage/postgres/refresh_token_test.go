package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pribylovaa/booking-platform/auth-core/internal/models"
	"github.com/pribylovaa/booking-platform/auth-core/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Файл интеграционных тестов для пакета postgres (репозиторий refresh_token.go):
// - happy-path сохранения и чтения;
// - уникальность token_hash;
// - условный отзыв и транзакционная ротация, включая конкурентный сценарий;
// - каскадный отзыв всех токенов пользователя и фоновая уборка.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// seedToken — сохраняет refresh-токен с заданным хэшем для пользователя.
func seedToken(t *testing.T, st *Storage, userID uuid.UUID, hash string, mut func(*models.RefreshToken)) *models.RefreshToken {
	t.Helper()

	now := time.Now().UTC()
	tok := &models.RefreshToken{
		TokenHash: hash,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(720 * time.Hour),
	}
	if mut != nil {
		mut(tok)
	}

	require.NoError(t, st.SaveRefreshToken(context.Background(), tok))
	return tok
}

func successorFor(userID uuid.UUID, hash string) *models.RefreshToken {
	now := time.Now().UTC()
	return &models.RefreshToken{
		TokenHash: hash,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(720 * time.Hour),
	}
}

// TestIntegration_SaveRefreshToken_And_GetByHash_OK — happy-path:
// сохранение и чтение записи токена, включая source_addr.
func TestIntegration_SaveRefreshToken_And_GetByHash_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedUser(t, st, "user@example.com", true)

	addr := "203.0.113.7"
	tok := seedToken(t, st, u.ID, "hash-1", func(rt *models.RefreshToken) {
		rt.SourceAddr = &addr
	})

	got, err := st.RefreshTokenByHash(context.Background(), "hash-1")
	require.NoError(t, err)
	require.Equal(t, tok.TokenHash, got.TokenHash)
	require.Equal(t, u.ID, got.UserID)
	require.False(t, got.Revoked)
	require.Nil(t, got.RevokedReason)
	require.Nil(t, got.LastUsedAt)
	require.NotNil(t, got.SourceAddr)
	require.Equal(t, addr, *got.SourceAddr)
	require.WithinDuration(t, tok.ExpiresAt, got.ExpiresAt, time.Second)
}

// TestIntegration_SaveRefreshToken_DuplicateHash — конфликт уникальности
// по token_hash, ожидаем storage.ErrAlreadyExists.
func TestIntegration_SaveRefreshToken_DuplicateHash(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedUser(t, st, "user@example.com", true)
	seedToken(t, st, u.ID, "hash-dup", nil)

	now := time.Now().UTC()
	err := st.SaveRefreshToken(context.Background(), &models.RefreshToken{
		TokenHash: "hash-dup",
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	})
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

// TestIntegration_RefreshTokenByHash_NotFound — чтение отсутствующего хэша.
func TestIntegration_RefreshTokenByHash_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	_, err := st.RefreshTokenByHash(context.Background(), "absent")
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_RevokeRefreshTokenIfActive_States — три исхода условного
// отзыва: активный токен, уже отозванный, неизвестный.
func TestIntegration_RevokeRefreshTokenIfActive_States(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedUser(t, st, "user@example.com", true)
	seedToken(t, st, u.ID, "hash-revoke", nil)

	usedAt := time.Now().UTC()

	ok, err := st.RevokeRefreshTokenIfActive(context.Background(), "hash-revoke", models.RevokeReasonLogout, usedAt)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := st.RefreshTokenByHash(context.Background(), "hash-revoke")
	require.NoError(t, err)
	require.True(t, got.Revoked)
	require.NotNil(t, got.RevokedReason)
	require.Equal(t, models.RevokeReasonLogout, *got.RevokedReason)
	require.NotNil(t, got.LastUsedAt)
	require.WithinDuration(t, usedAt, *got.LastUsedAt, time.Second)

	// Повторный отзыв — (false, nil): запись есть, но уже отозвана.
	ok, err = st.RevokeRefreshTokenIfActive(context.Background(), "hash-revoke", models.RevokeReasonLogout, usedAt)
	require.NoError(t, err)
	require.False(t, ok)

	// Неизвестный хэш.
	_, err = st.RevokeRefreshTokenIfActive(context.Background(), "absent", models.RevokeReasonLogout, usedAt)
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_RotateRefreshToken_OK — успешная ротация: старый токен
// отозван с причиной rotated, преемник активен, всё в одной транзакции.
func TestIntegration_RotateRefreshToken_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedUser(t, st, "user@example.com", true)
	seedToken(t, st, u.ID, "hash-old", nil)

	usedAt := time.Now().UTC()
	ok, err := st.RotateRefreshToken(context.Background(), "hash-old", models.RevokeReasonRotated, usedAt,
		successorFor(u.ID, "hash-new"))
	require.NoError(t, err)
	require.True(t, ok)

	oldTok, err := st.RefreshTokenByHash(context.Background(), "hash-old")
	require.NoError(t, err)
	require.True(t, oldTok.Revoked)
	require.NotNil(t, oldTok.RevokedReason)
	require.Equal(t, models.RevokeReasonRotated, *oldTok.RevokedReason)

	newTok, err := st.RefreshTokenByHash(context.Background(), "hash-new")
	require.NoError(t, err)
	require.False(t, newTok.Revoked)
	require.Equal(t, u.ID, newTok.UserID)
}

// TestIntegration_RotateRefreshToken_AlreadyRevoked — ротация уже
// отозванного токена проигрывает CAS: (false, nil), преемник не создаётся.
func TestIntegration_RotateRefreshToken_AlreadyRevoked(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedUser(t, st, "user@example.com", true)
	seedToken(t, st, u.ID, "hash-old", nil)

	usedAt := time.Now().UTC()
	ok, err := st.RotateRefreshToken(context.Background(), "hash-old", models.RevokeReasonRotated, usedAt,
		successorFor(u.ID, "hash-first"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.RotateRefreshToken(context.Background(), "hash-old", models.RevokeReasonRotated, usedAt,
		successorFor(u.ID, "hash-second"))
	require.NoError(t, err)
	require.False(t, ok)

	_, err = st.RefreshTokenByHash(context.Background(), "hash-second")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_RotateRefreshToken_NotFound — ротация неизвестного хэша.
func TestIntegration_RotateRefreshToken_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedUser(t, st, "user@example.com", true)

	_, err := st.RotateRefreshToken(context.Background(), "absent", models.RevokeReasonRotated, time.Now().UTC(),
		successorFor(u.ID, "hash-new"))
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_RotateRefreshToken_SuccessorCollision_RollsBack —
// коллизия хэша преемника откатывает транзакцию целиком: исходный токен
// остаётся активным, ни одно из двух состояний не фиксируется частично.
func TestIntegration_RotateRefreshToken_SuccessorCollision_RollsBack(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedUser(t, st, "user@example.com", true)
	seedToken(t, st, u.ID, "hash-old", nil)
	seedToken(t, st, u.ID, "hash-taken", nil)

	_, err := st.RotateRefreshToken(context.Background(), "hash-old", models.RevokeReasonRotated, time.Now().UTC(),
		successorFor(u.ID, "hash-taken"))
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	// Откат: исходный токен не отозван.
	oldTok, err := st.RefreshTokenByHash(context.Background(), "hash-old")
	require.NoError(t, err)
	require.False(t, oldTok.Revoked)
}

// TestIntegration_RotateRefreshToken_Concurrent_ExactlyOneWins — из
// конкурентных ротаций одного токена ровно одна создаёт преемника.
func TestIntegration_RotateRefreshToken_Concurrent_ExactlyOneWins(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedUser(t, st, "user@example.com", true)
	seedToken(t, st, u.ID, "hash-contested", nil)

	const workers = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			ok, err := st.RotateRefreshToken(context.Background(), "hash-contested",
				models.RevokeReasonRotated, time.Now().UTC(),
				successorFor(u.ID, "hash-successor-"+string(rune('a'+n))))
			if err != nil {
				return
			}

			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, wins)
}

// TestIntegration_RevokeAllForUser — каскад отзывает только активные токены
// владельца и не трогает чужие.
func TestIntegration_RevokeAllForUser(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	owner := seedUser(t, st, "owner@example.com", true)
	other := seedUser(t, st, "other@example.com", true)

	seedToken(t, st, owner.ID, "owner-active-1", nil)
	seedToken(t, st, owner.ID, "owner-active-2", nil)
	seedToken(t, st, owner.ID, "owner-revoked", func(rt *models.RefreshToken) {
		rt.Revoked = true
	})
	seedToken(t, st, other.ID, "other-active", nil)

	n, err := st.RevokeAllForUser(context.Background(), owner.ID, models.RevokeReasonReplay)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	got, err := st.RefreshTokenByHash(context.Background(), "owner-active-1")
	require.NoError(t, err)
	require.True(t, got.Revoked)
	require.Equal(t, models.RevokeReasonReplay, *got.RevokedReason)

	got, err = st.RefreshTokenByHash(context.Background(), "other-active")
	require.NoError(t, err)
	require.False(t, got.Revoked)

	// Повторный каскад — ноль затронутых строк.
	n, err = st.RevokeAllForUser(context.Background(), owner.ID, models.RevokeReasonReplay)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}

// TestIntegration_DeleteStaleTokens — уборка удаляет отозванные и
// просроченные записи старше горизонта хранения, не трогая активные и
// недавние.
func TestIntegration_DeleteStaleTokens(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedUser(t, st, "user@example.com", true)
	now := time.Now().UTC()
	cutoff := now.Add(-168 * time.Hour)

	// Отозван и стар — удаляется.
	seedToken(t, st, u.ID, "stale-revoked", func(rt *models.RefreshToken) {
		rt.Revoked = true
		rt.CreatedAt = cutoff.Add(-time.Hour)
	})
	// Просрочен и стар — удаляется.
	seedToken(t, st, u.ID, "stale-expired", func(rt *models.RefreshToken) {
		rt.CreatedAt = cutoff.Add(-time.Hour)
		rt.ExpiresAt = now.Add(-time.Hour)
	})
	// Отозван, но недавно создан — остаётся до следующего горизонта.
	seedToken(t, st, u.ID, "recent-revoked", func(rt *models.RefreshToken) {
		rt.Revoked = true
	})
	// Активный — не задевается.
	seedToken(t, st, u.ID, "live", nil)

	n, err := st.DeleteStaleTokens(context.Background(), now, cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	_, err = st.RefreshTokenByHash(context.Background(), "stale-revoked")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = st.RefreshTokenByHash(context.Background(), "stale-expired")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.RefreshTokenByHash(context.Background(), "recent-revoked")
	require.NoError(t, err)
	_, err = st.RefreshTokenByHash(context.Background(), "live")
	require.NoError(t, err)
}
