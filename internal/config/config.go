// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл .yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Auth     AuthConfig    `yaml:"auth"`
	Lockout  LockoutConfig `yaml:"lockout"`
	DB       DBConfig      `yaml:"db"`
	Redis    RedisConfig   `yaml:"redis"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50082"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"720h"`
	Issuer          string        `yaml:"issuer"   env:"ISSUER" env-default:"auth-core"`
	Audience        []string      `yaml:"audience" env:"AUDIENCE" env-default:"booking-api,ticket-api"`

	// DelayMin/DelayMax — границы случайной задержки ответа Login,
	// выравнивающей тайминг успешных и неуспешных попыток.
	DelayMin time.Duration `yaml:"delay_min" env:"LOGIN_DELAY_MIN" env-default:"30ms"`
	DelayMax time.Duration `yaml:"delay_max" env:"LOGIN_DELAY_MAX" env-default:"150ms"`

	// SweepRetention — сколько хранить отозванные/просроченные токены
	// до фоновой уборки; SweepPeriod — период запуска уборки.
	SweepRetention time.Duration `yaml:"sweep_retention" env:"SWEEP_RETENTION" env-default:"168h"`
	SweepPeriod    time.Duration `yaml:"sweep_period" env:"SWEEP_PERIOD" env-default:"30m"`
}

// LockoutPolicy — тройка (порог, окно, длительность блокировки) для одного
// вида счётчика.
type LockoutPolicy struct {
	Threshold    int           `yaml:"threshold" env-default:"5"`
	Window       time.Duration `yaml:"window" env-default:"15m"`
	LockDuration time.Duration `yaml:"lock_duration" env-default:"30m"`
}

// LockoutConfig — политики блокировки по учётке и по адресу источника.
// Порог адресного счётчика по умолчанию выше (общие NAT/прокси), а
// блокировка короче.
type LockoutConfig struct {
	Account LockoutPolicy `yaml:"account"`
	Address LockoutPolicy `yaml:"address"`
	// CounterTTL — горизонт жизни ключей счётчиков в Redis; должен быть
	// заметно больше максимального окна блокировки.
	CounterTTL time.Duration `yaml:"counter_ttl" env:"LOCKOUT_COUNTER_TTL" env-default:"2h"`
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
	// MaxConns/MinConns — границы пула соединений pgx.
	MaxConns int32 `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"8"`
	MinConns int32 `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"2"`
	// ConnLifetime — максимальное время жизни соединения в пуле.
	ConnLifetime time.Duration `yaml:"conn_lifetime" env:"DB_CONN_LIFETIME" env-default:"30m"`
}

// RedisConfig — настройки подключения к Redis (счётчики блокировок).
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL" env-required:"true"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// ВАЖНО: после чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return validated(&cfg)
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return validated(&cfg)
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return validated(&cfg)
}

// validated выполняет перекрёстные проверки, невыразимые тегами cleanenv.
// Нарушение — фатальная ошибка конфигурации: TTL ключа блокировки в Redis
// обязан покрывать весь срок блокировки, иначе истечение ключа молча
// сократит блокировку раньше сохранённого момента снятия.
func validated(cfg *Config) (*Config, error) {
	if d := cfg.Lockout.Account.LockDuration; d > cfg.Lockout.CounterTTL {
		return nil, fmt.Errorf("lockout: counter_ttl %s is shorter than account lock_duration %s", cfg.Lockout.CounterTTL, d)
	}

	if d := cfg.Lockout.Address.LockDuration; d > cfg.Lockout.CounterTTL {
		return nil, fmt.Errorf("lockout: counter_ttl %s is shorter than address lock_duration %s", cfg.Lockout.CounterTTL, d)
	}

	return cfg, nil
}
