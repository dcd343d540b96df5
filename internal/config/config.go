package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MinSessionSecretLength: минимальная длина секрета подписи сессий
const MinSessionSecretLength = 32

// Config хранит все настройки приложения
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Session      SessionConfig      `mapstructure:"session"`
	Verification VerificationConfig `mapstructure:"verification"`
	Email        EmailConfig        `mapstructure:"email"`
	WebSocket    WebSocketConfig    `mapstructure:"websocket"`
	CORS         CORSConfig         `mapstructure:"cors"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	// LogLevel: уровень логирования GORM ("silent", "error", "warn", "info")
	LogLevel string `mapstructure:"log_level"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// SessionConfig содержит настройки сессий
type SessionConfig struct {
	Secret       string `mapstructure:"secret"`
	TTLHours     int    `mapstructure:"ttl_hours"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
}

// TTL возвращает время жизни сессии
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// VerificationConfig содержит настройки кодов подтверждения
type VerificationConfig struct {
	CodeTTL        time.Duration `mapstructure:"code_ttl"`
	ResendCooldown time.Duration `mapstructure:"resend_cooldown"`
}

// EmailConfig содержит настройки отправки писем
type EmailConfig struct {
	// Provider: "noop" (только лог) или "resend"
	Provider     string `mapstructure:"provider"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
}

// WebSocketConfig содержит настройки ленты изменений
type WebSocketConfig struct {
	ClusterEnabled bool   `mapstructure:"cluster_enabled"`
	Channel        string `mapstructure:"channel"`
}

// CORSConfig содержит разрешенные источники (также используются для проверки Origin в WebSocket)
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL формирует URL подключения для golang-migrate
func (d *DatabaseConfig) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 15)
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.log_level", "warn")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.addr", "localhost:6379")
	vip.SetDefault("session.ttl_hours", 24)
	vip.SetDefault("session.cookie_secure", false)
	vip.SetDefault("verification.code_ttl", "10m")
	vip.SetDefault("verification.resend_cooldown", "60s")
	vip.SetDefault("email.provider", "noop")
	vip.SetDefault("email.from", "Vehicle Registry <no-reply@example.com>")
	vip.SetDefault("websocket.cluster_enabled", false)
	vip.SetDefault("websocket.channel", "vehicle-api:vehicle-events")
	vip.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
}

func bindEnv(vip *viper.Viper) {
	// Привязка для Server
	vip.BindEnv("server.port", "SERVER_PORT")

	// Привязка для секции Database
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.log_level", "DATABASE_LOG_LEVEL")

	// Привязка для секции Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Сессии
	vip.BindEnv("session.secret", "SESSION_SECRET")
	vip.BindEnv("session.ttl_hours", "SESSION_TTL_HOURS")
	vip.BindEnv("session.cookie_secure", "SESSION_COOKIE_SECURE")

	// Коды подтверждения
	vip.BindEnv("verification.code_ttl", "VERIFICATION_CODE_TTL")
	vip.BindEnv("verification.resend_cooldown", "VERIFICATION_RESEND_COOLDOWN")

	// Почта
	vip.BindEnv("email.provider", "EMAIL_PROVIDER")
	vip.BindEnv("email.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")

	// WebSocket и CORS
	vip.BindEnv("websocket.cluster_enabled", "WEBSOCKET_CLUSTER_ENABLED")
	vip.BindEnv("websocket.channel", "WEBSOCKET_CHANNEL")
	vip.BindEnv("cors.allowed_origins", "CORS_ALLOWED_ORIGINS")
}

// Load загружает конфигурацию и проверяет обязательные параметры
func Load(configPath string) (*Config, error) {
	cfg, err := Read(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read загружает конфигурацию из файла и переменных окружения без проверки.
// Используется утилитами, которым нужна только часть настроек.
func Read(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	setDefaults(vip)
	bindEnv(vip)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Отсутствие файла не фатально: значения могут прийти из окружения
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	normalizeLists(&cfg)

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s (mode %s)", cfg.Redis.Addr, cfg.Redis.Mode)
		log.Printf("Session TTL Hours: %d", cfg.Session.TTLHours)
		log.Printf("Session Secret Set: %t", cfg.Session.Secret != "")
		log.Printf("Email Provider: %s", cfg.Email.Provider)
		log.Printf("Verification Code TTL: %s", cfg.Verification.CodeTTL)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Websocket Cluster Enabled: %t", cfg.WebSocket.ClusterEnabled)
		log.Printf("-----------------------------------------")
	}

	return &cfg, nil
}

// normalizeLists разбирает списки, переданные через окружение одной строкой через запятую
func normalizeLists(cfg *Config) {
	cfg.Redis.Addrs = splitList(cfg.Redis.Addrs)
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if len(c.Session.Secret) < MinSessionSecretLength {
		return fmt.Errorf("session secret must be at least %d bytes (check SESSION_SECRET env var)", MinSessionSecretLength)
	}
	if c.Session.TTLHours <= 0 {
		return fmt.Errorf("session ttl_hours must be positive")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.Verification.CodeTTL <= 0 {
		return fmt.Errorf("verification code_ttl must be positive")
	}
	if c.Verification.ResendCooldown < 0 {
		return fmt.Errorf("verification resend_cooldown must not be negative")
	}
	switch c.Email.Provider {
	case "noop":
	case "resend":
		if c.Email.ResendAPIKey == "" {
			return fmt.Errorf("email provider 'resend' requires an API key (check RESEND_API_KEY env var)")
		}
		if c.Email.From == "" {
			return fmt.Errorf("email provider 'resend' requires a sender address (check EMAIL_FROM env var)")
		}
	default:
		return fmt.Errorf("unsupported email provider: %s", c.Email.Provider)
	}
	return nil
}
