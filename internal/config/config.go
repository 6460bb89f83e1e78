package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database drivers understood by db.Open.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string
	Env        string
	Debug      bool
	LogLevel   string

	SessionSecret       string
	SessionTTL          time.Duration
	CookieSecure        bool
	CSRFEnabled         bool
	TrustProxy          bool
	RegistrationEnabled bool

	DB      DBConfig
	ResetDB bool
	Redis   RedisConfig

	RateLimitEnabled bool
	RateLimitStorage string

	SwaggerHost string
}

// DBConfig selects and addresses the relational backend.
type DBConfig struct {
	Driver        string
	MySQLUser     string
	MySQLPassword string
	MySQLHost     string
	MySQLPort     string
	MySQLDatabase string
	MySQLDSN      string
	DatabaseURL   string
	SQLitePath    string
}

// RedisConfig addresses the counter and session deny-list store.
type RedisConfig struct {
	Addr     string
	DB       int
	Password string
}

// Load builds Config from the environment (and an optional .env file) with sensible defaults.
func Load() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		ServerPort:          v.GetString("SERVER_PORT"),
		Env:                 v.GetString("APP_ENV"),
		Debug:               v.GetBool("DEBUG"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		SessionSecret:       v.GetString("SESSION_SECRET"),
		SessionTTL:          time.Duration(v.GetInt("SESSION_TTL_HOURS")) * time.Hour,
		CookieSecure:        v.GetBool("COOKIE_SECURE"),
		CSRFEnabled:         v.GetBool("CSRF_ENABLED"),
		TrustProxy:          v.GetBool("TRUST_PROXY"),
		RegistrationEnabled: v.GetBool("REGISTRATION_ENABLED"),
		DB: DBConfig{
			Driver:        strings.ToLower(v.GetString("DB_DRIVER")),
			MySQLUser:     v.GetString("MYSQL_USER"),
			MySQLPassword: v.GetString("MYSQL_PASSWORD"),
			MySQLHost:     v.GetString("MYSQL_HOST"),
			MySQLPort:     v.GetString("MYSQL_PORT"),
			MySQLDatabase: v.GetString("MYSQL_DATABASE"),
			MySQLDSN:      v.GetString("MYSQL_DSN"),
			DatabaseURL:   v.GetString("DATABASE_URL"),
			SQLitePath:    v.GetString("SQLITE_PATH"),
		},
		ResetDB: v.GetBool("RESET_DB"),
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			DB:       getInt(v, "REDIS_DB", 0),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		RateLimitEnabled: v.GetBool("RATELIMIT_ENABLED"),
		RateLimitStorage: strings.ToLower(v.GetString("RATELIMIT_STORAGE")),
		SwaggerHost:      v.GetString("SWAGGER_HOST"),
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = cfg.DB.detectDriver()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SESSION_SECRET", "change-me")
	v.SetDefault("SESSION_TTL_HOURS", 24*14)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("CSRF_ENABLED", true)
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("REGISTRATION_ENABLED", false)
	v.SetDefault("RESET_DB", false)
	v.SetDefault("MYSQL_PORT", "4000")
	v.SetDefault("SQLITE_PATH", "file::memory:?cache=shared")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("RATELIMIT_ENABLED", true)
	v.SetDefault("RATELIMIT_STORAGE", "memory")
}

// HasMySQL reports whether every MySQL connection variable is present.
func (c DBConfig) HasMySQL() bool {
	return c.MySQLDSN != "" ||
		(c.MySQLUser != "" && c.MySQLPassword != "" && c.MySQLHost != "" && c.MySQLDatabase != "")
}

// MySQLConnString returns MYSQL_DSN or one assembled from the MYSQL_* variables.
func (c DBConfig) MySQLConnString() string {
	if c.MySQLDSN != "" {
		return c.MySQLDSN
	}
	return c.MySQLUser + ":" + c.MySQLPassword + "@tcp(" + c.MySQLHost + ":" + c.MySQLPort + ")/" +
		c.MySQLDatabase + "?charset=utf8mb4&parseTime=True&loc=UTC"
}

func (c DBConfig) detectDriver() string {
	switch {
	case c.HasMySQL():
		return DriverMySQL
	case c.DatabaseURL != "":
		return DriverPostgres
	default:
		return DriverSQLite
	}
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getInt(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	if parsed, err := strconv.Atoi(v.GetString(key)); err == nil {
		return parsed
	}
	return def
}
