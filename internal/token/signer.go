// token выпускает и проверяет подписанные access-токены (JWT, HS256).
// Access-токены самодостаточны и не хранятся на сервере: валидность
// пересчитывается на каждом запросе по подписи и сроку действия.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/booking-platform/auth-core/internal/clock"
	"github.com/pribylovaa/booking-platform/auth-core/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken — токен некорректен по формату/подписи/клеймам.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired — срок действия токена истёк.
	ErrTokenExpired = errors.New("token expired")
)

// minSecretLen — нижняя граница длины секрета HS256. Короткий секрет —
// фатальная ошибка конфигурации: сервис не должен стартовать.
const minSecretLen = 32

// Claims — полезная нагрузка access-токена.
type Claims struct {
	UserID string `json:"uid"`
	Login  string `json:"login"`
	jwt.RegisteredClaims
}

// Signer выпускает и проверяет access-токены. Экземпляр не имеет
// изменяемого состояния и безопасен для конкурентного использования.
type Signer struct {
	secret []byte
	cfg    config.AuthConfig
	clk    clock.Clock
}

// New создаёт Signer, валидируя подписной материал на старте.
func New(cfg config.AuthConfig, clk clock.Clock) (*Signer, error) {
	const op = "token.New"

	if len(cfg.JWTSecret) < minSecretLen {
		return nil, fmt.Errorf("%s: jwt secret shorter than %d bytes", op, minSecretLen)
	}

	if clk == nil {
		clk = clock.System{}
	}

	return &Signer{
		secret: []byte(cfg.JWTSecret),
		cfg:    cfg,
		clk:    clk,
	}, nil
}

// Issue выпускает access-токен для пользователя. Каждый выпуск получает
// уникальный jti (задел под чёрные списки). Возвращает подписанный токен
// и момент его истечения — транспорту он нужен для метаданных ответа.
func (s *Signer) Issue(userID uuid.UUID, login string) (string, time.Time, error) {
	const op = "token.Issue"

	now := s.clk.Now()
	expiresAt := now.Add(s.cfg.AccessTokenTTL)

	claims := Claims{
		UserID: userID.String(),
		Login:  login,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings(s.cfg.Audience),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, expiresAt, nil
}

// Verify проверяет access-токен: подпись, метод, issuer/audience, срок.
// Контракт симметричен Issue.
func (s *Signer) Verify(tokenStr string) (*Claims, error) {
	const op = "token.Verify"

	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience...),
		jwt.WithTimeFunc(s.clk.Now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}
