package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/pribylovaa/booking-platform/auth-core/internal/clock"
	"github.com/pribylovaa/booking-platform/auth-core/internal/config"
	"github.com/pribylovaa/booking-platform/auth-core/internal/ledger"
	"github.com/pribylovaa/booking-platform/auth-core/internal/lockout"
	"github.com/pribylovaa/booking-platform/auth-core/internal/metrics"
	"github.com/pribylovaa/booking-platform/auth-core/internal/models"
	"github.com/pribylovaa/booking-platform/auth-core/internal/pkg/log"
	"github.com/pribylovaa/booking-platform/auth-core/internal/pkg/redact"
	"github.com/pribylovaa/booking-platform/auth-core/internal/storage"
	"github.com/pribylovaa/booking-platform/auth-core/internal/token"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// dummyPassword — фиксированная строка, bcrypt-хэш которой вычисляется
// при конструировании сервиса. Проверка пароля выполняется против этого
// хэша, когда учётка не найдена: латентность ответа не должна отличать
// «нет такой учётки» от «неверный пароль».
const dummyPassword = "auth-core.dummy.password.v1"

// Service — оркестратор аутентификации поверх набора способностей
// {учётки, ledger refresh-токенов, guard блокировок, подписант, часы}.
type Service struct {
	users  storage.UserStorage
	tokens RefreshLedger
	guard  Guard
	signer *token.Signer
	cfg    config.AuthConfig
	clk    clock.Clock
	randr  io.Reader

	dummyHash []byte
	// compareHash — проверка пароля против bcrypt-хэша. Вынесена в поле,
	// чтобы тесты могли убедиться, что сверка выполняется и для
	// несуществующих учёток (тайминговая маскировка).
	compareHash func(hashedPassword, password []byte) error
}

// New создаёт Service. Ошибка конструирования (хэш-заглушка) фатальна:
// без неё тайминговая маскировка не работает.
func New(users storage.UserStorage, tokens RefreshLedger, guard Guard, signer *token.Signer, cfg config.AuthConfig, clk clock.Clock, randr io.Reader) (*Service, error) {
	const op = "service.New"

	if clk == nil {
		clk = clock.System{}
	}
	if randr == nil {
		randr = rand.Reader
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Service{
		users:       users,
		tokens:      tokens,
		guard:       guard,
		signer:      signer,
		cfg:         cfg,
		clk:         clk,
		randr:       randr,
		dummyHash:   dummy,
		compareHash: bcrypt.CompareHashAndPassword,
	}, nil
}

// Login выполняет вход по логину и паролю.
//
// Порядок проверок фиксирован: блокировка адреса → блокировка учётки →
// проверка пароля. Для заблокированных ключей пароль не проверяется.
// Любой исход (включая успех) завершается случайной задержкой в границах
// [DelayMin, DelayMax], выравнивающей суммарное время ответа.
func (s *Service) Login(ctx context.Context, login, password, sourceAddr string) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.Login"

	defer s.applyDelay(ctx)

	lg := log.From(ctx)

	normLogin, err := normalizeLogin(login)
	if err != nil || password == "" {
		// Мусорный идентификатор не продвигает счётчик учётки (ключа
		// нет), но адресный счётчик фиксирует отказ: распределённый
		// перебор не должен обходить блокировку, отправляя не-email.
		s.registerAddressFailure(ctx, sourceAddr)
		metrics.Logins.WithLabelValues("invalid_credentials").Inc()
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if locked, _, err := s.guard.CheckLocked(ctx, lockout.KindAddress, sourceAddr); err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	} else if locked {
		metrics.Logins.WithLabelValues("too_many_attempts").Inc()
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrTooManyAttempts)
	}

	if locked, _, err := s.guard.CheckLocked(ctx, lockout.KindAccount, normLogin); err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	} else if locked {
		metrics.Logins.WithLabelValues("account_locked").Inc()
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrAccountLocked)
	}

	user, err := s.users.UserByLogin(ctx, normLogin)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Учётки нет — сверяем пароль с хэшем-заглушкой, чтобы
			// путь «неизвестный логин» стоил столько же, сколько
			// «неверный пароль».
			_ = s.compareHash(s.dummyHash, []byte(password))
			s.registerFailure(ctx, normLogin, sourceAddr)
			lg.Warn("login_unknown_account",
				slog.String("op", op),
				slog.String("login", redact.Login(normLogin)),
			)
			metrics.Logins.WithLabelValues("invalid_credentials").Inc()
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.compareHash([]byte(user.PasswordHash), []byte(password)) != nil {
		s.registerFailure(ctx, normLogin, sourceAddr)
		lg.Warn("login_wrong_password",
			slog.String("op", op),
			slog.String("login", redact.Login(normLogin)),
		)
		metrics.Logins.WithLabelValues("invalid_credentials").Inc()
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !user.Active {
		s.registerFailure(ctx, normLogin, sourceAddr)
		lg.Warn("login_disabled_account",
			slog.String("op", op),
			slog.String("login", redact.Login(normLogin)),
		)
		metrics.Logins.WithLabelValues("account_disabled").Inc()
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrAccountDisabled)
	}

	if err := s.guard.RegisterSuccess(ctx, normLogin); err != nil {
		lg.Error("lockout_reset_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	pair, err := s.issueTokenPair(ctx, user, sourceAddr)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.Logins.WithLabelValues("success").Inc()

	return pair, user.ID, nil
}

// Refresh ротирует refresh-токен и возвращает новую пару.
//
// Предъявление уже отозванного или просроченного токена — сильнейший
// доступный сигнал кражи: прежде чем вернуть ErrReplayDetected, сервис
// каскадно отзывает все активные токены владельца.
func (s *Service) Refresh(ctx context.Context, rawToken, sourceAddr string) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.Refresh"

	lg := log.From(ctx)

	newRaw, userID, err := s.tokens.Rotate(ctx, rawToken, sourceAddr)
	if err != nil {
		if errors.Is(err, ledger.ErrRevoked) || errors.Is(err, ledger.ErrExpired) {
			metrics.ReplaysDetected.Inc()
			lg.Warn("refresh_replay_detected",
				slog.String("op", op),
				slog.String("user_id", userID.String()),
				slog.String("source", redact.Addr(sourceAddr)),
			)

			if userID != uuid.Nil {
				if _, raErr := s.tokens.RevokeAllForUser(ctx, userID, models.RevokeReasonReplay); raErr != nil {
					lg.Error("replay_cascade_failed",
						slog.String("op", op),
						slog.String("err", raErr.Error()),
					)
				}
			}

			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrReplayDetected)
		}

		if errors.Is(err, ledger.ErrNotFound) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.Active {
		// Учётку отключили после выпуска токена: гасим всю семью.
		if _, raErr := s.tokens.RevokeAllForUser(ctx, userID, models.RevokeReasonLogout); raErr != nil {
			lg.Error("disabled_revoke_all_failed",
				slog.String("op", op),
				slog.String("err", raErr.Error()),
			)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrAccountDisabled)
	}

	accessToken, expiresAt, err := s.signer.Issue(user.ID, user.Login)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    newRaw,
		AccessExpiresAt: expiresAt,
	}, user.ID, nil
}

// Revoke отзывает refresh-токен (logout). Повторный отзыв безвреден,
// но логируется как подозрительный и возвращает ErrTokenRevoked.
func (s *Service) Revoke(ctx context.Context, rawToken string) error {
	const op = "service.auth.Revoke"

	err := s.tokens.Revoke(ctx, rawToken, models.RevokeReasonLogout)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		if errors.Is(err, ledger.ErrRevoked) {
			log.From(ctx).Warn("revoke_already_revoked", slog.String("op", op))
			return fmt.Errorf("%s: %w", op, ErrTokenRevoked)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RevokeAll отзывает все активные refresh-токены пользователя
// («выйти на всех устройствах»).
func (s *Service) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	const op = "service.auth.RevokeAll"

	if _, err := s.tokens.RevokeAllForUser(ctx, userID, models.RevokeReasonLogout); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ValidateToken проверяет access-токен и возвращает данные пользователя.
func (s *Service) ValidateToken(ctx context.Context, accessToken string) (uuid.UUID, string, error) {
	const op = "service.auth.ValidateToken"

	claims, err := s.signer.Verify(accessToken)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return uuid.Nil, "", fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return uuid.Nil, "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return uid, claims.Login, nil
}

// registerFailure инкрементирует оба счётчика неудач. Ошибки бэкенда
// счётчиков логируются, но не подменяют security-исход: отказ в
// аутентификации уже состоялся.
func (s *Service) registerFailure(ctx context.Context, login, sourceAddr string) {
	lg := log.From(ctx)

	if locked, err := s.guard.RegisterFailure(ctx, lockout.KindAccount, login); err != nil {
		lg.Error("lockout_register_failed",
			slog.String("kind", string(lockout.KindAccount)),
			slog.String("err", err.Error()),
		)
	} else if locked {
		metrics.Lockouts.WithLabelValues(string(lockout.KindAccount)).Inc()
	}

	s.registerAddressFailure(ctx, sourceAddr)
}

// registerAddressFailure инкрементирует только адресный счётчик.
// Используется и там, где ключа учётки нет (мусорный идентификатор).
func (s *Service) registerAddressFailure(ctx context.Context, sourceAddr string) {
	if locked, err := s.guard.RegisterFailure(ctx, lockout.KindAddress, sourceAddr); err != nil {
		log.From(ctx).Error("lockout_register_failed",
			slog.String("kind", string(lockout.KindAddress)),
			slog.String("err", err.Error()),
		)
	} else if locked {
		metrics.Lockouts.WithLabelValues(string(lockout.KindAddress)).Inc()
	}
}

// issueTokenPair выпускает новую пару access+refresh токенов.
func (s *Service) issueTokenPair(ctx context.Context, user *models.User, sourceAddr string) (*models.TokenPair, error) {
	const op = "service.auth.issueTokenPair"

	accessToken, expiresAt, err := s.signer.Issue(user.ID, user.Login)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := s.tokens.Issue(ctx, user.ID, sourceAddr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: expiresAt,
	}, nil
}

// applyDelay выдерживает случайную паузу в [DelayMin, DelayMax],
// уважая отмену контекста. Вызывается на каждом пути Login.
func (s *Service) applyDelay(ctx context.Context) {
	min, max := s.cfg.DelayMin, s.cfg.DelayMax
	if max <= 0 || max < min {
		return
	}

	d := min
	if span := max - min; span > 0 {
		var b [8]byte
		if _, err := io.ReadFull(s.randr, b[:]); err == nil {
			d += time.Duration(binary.BigEndian.Uint64(b[:]) % uint64(span))
		}
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// normalizeLogin проверяет базовый формат логина (e-mail) и приводит его
// к нижнему регистру.
func normalizeLogin(raw string) (string, error) {
	login := strings.TrimSpace(raw)
	if login == "" {
		return "", ErrInvalidCredentials
	}

	if _, err := mail.ParseAddress(login); err != nil {
		return "", ErrInvalidCredentials
	}

	return strings.ToLower(login), nil
}
