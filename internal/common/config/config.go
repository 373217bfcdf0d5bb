package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Ledger backends.
const (
	LedgerBackendRedis  = "redis"
	LedgerBackendMemory = "memory"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Telegram struct {
		// Пустой токен допустим только в режиме отладки: тогда используется резервная личность
		BotToken    string        `env:"BOT_TOKEN"`
		BotUsername string        `env:"BOT_USERNAME" envDefault:"GiveawayProBot"`
		InitDataTTL time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
		AdminIDs    []string      `env:"ADMIN_IDS" envSeparator:","`
	}

	Tasks struct {
		Kinds             []string      `env:"TASK_KINDS" envSeparator:"," envDefault:"tg,tw,yt"`
		VerificationDelay time.Duration `env:"TASK_VERIFICATION_DELAY" envDefault:"15s"`
	}

	Ledger struct {
		Backend       string        `env:"LEDGER_BACKEND" envDefault:"redis"`
		RetryAttempts int           `env:"LEDGER_RETRY_ATTEMPTS" envDefault:"3"`
		RetryDelay    time.Duration `env:"LEDGER_RETRY_DELAY" envDefault:"300ms"`
		Timeout       time.Duration `env:"LEDGER_TIMEOUT" envDefault:"5s"`
	}

	Outbox struct {
		Path        string        `env:"OUTBOX_PATH" envDefault:"./data/outbox"`
		Interval    time.Duration `env:"OUTBOX_INTERVAL" envDefault:"30s"`
		MaxAttempts int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"20"`
	}

	Events struct {
		StreamKey    string   `env:"EVENTS_STREAM_KEY" envDefault:"miniapp:events"`
		StreamMaxLen int64    `env:"EVENTS_STREAM_MAXLEN" envDefault:"10000"`
		KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
		KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"miniapp.events"`
	}

	Sessions struct {
		IdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
		SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	}
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	// .env может отсутствовать: в production переменные задаются напрямую
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	if len(c.Tasks.Kinds) == 0 {
		return errors.New("TASK_KINDS must list at least one task kind")
	}
	seen := make(map[string]struct{}, len(c.Tasks.Kinds))
	for _, k := range c.Tasks.Kinds {
		if k == "" {
			return errors.New("TASK_KINDS contains an empty kind")
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("TASK_KINDS contains duplicate kind %q", k)
		}
		seen[k] = struct{}{}
	}
	if c.Tasks.VerificationDelay <= 0 {
		return errors.New("TASK_VERIFICATION_DELAY must be positive")
	}
	if c.Ledger.RetryAttempts < 1 {
		return errors.New("LEDGER_RETRY_ATTEMPTS must be at least 1")
	}
	if c.Outbox.Interval <= 0 || c.Sessions.SweepInterval <= 0 {
		return errors.New("OUTBOX_INTERVAL and SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.Outbox.MaxAttempts < 1 {
		return errors.New("OUTBOX_MAX_ATTEMPTS must be at least 1")
	}
	switch c.Ledger.Backend {
	case LedgerBackendRedis, LedgerBackendMemory:
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.Ledger.Backend)
	}
	return nil
}

// RedisAddr возвращает адрес в формате host:port.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// IsAdmin сообщает, входит ли пользователь в ADMIN_IDS.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
