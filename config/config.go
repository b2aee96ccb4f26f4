package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server struct {
		Port    int
		OpsPort int // порт служебного слушателя: health, readiness, метрики
		Env     string
	}
	DB struct {
		Driver         string // postgres или sqlite
		Host           string
		Port           int
		User           string
		Password       string
		DBName         string
		SSLMode        string
		SQLitePath     string
		MigrationsPath string
	}
	Redis struct {
		Addr      string // пустой адрес отключает кэш справочников
		Password  string
		DB        int
		LookupTTL time.Duration
	}
	JWT struct {
		SecretKey string
	}
	SMTP struct {
		Host       string
		Port       int
		Username   string
		Password   string
		From       string
		Recipients []string
	}
	Warnings struct {
		HorizonDays  int
		ScanInterval time.Duration
		Timezone     string
	}
	Log struct {
		Level string
	}
	RateLimit struct {
		Requests int
		Window   time.Duration
	}
	Drafts struct {
		TTL time.Duration // время жизни неизмененного черновика
	}
}

var defaults = map[string]interface{}{
	"server.port":            8080,
	"server.ops_port":        9090,
	"server.env":             "development",
	"db.driver":              "postgres",
	"db.host":                "localhost",
	"db.port":                5432,
	"db.user":                "postgres",
	"db.password":            "postgres",
	"db.name":                "contracts_db",
	"db.sslmode":             "disable",
	"db.sqlite_path":         "contracts.db",
	"db.migrations_path":     "migrations",
	"redis.addr":             "",
	"redis.password":         "",
	"redis.db":               0,
	"redis.lookup_ttl":       "10m",
	"jwt.secret_key":         "your-secret-key-here",
	"smtp.host":              "smtp.gmail.com",
	"smtp.port":              587,
	"smtp.username":          "",
	"smtp.password":          "",
	"smtp.from":              "contracts@example.com",
	"smtp.recipients":        "",
	"warnings.horizon_days":  30,
	"warnings.scan_interval": "24h",
	"warnings.timezone":      "Asia/Ho_Chi_Minh",
	"log.level":              "info",
	"rate_limit.requests":    100,
	"rate_limit.window":      "1m",
	"drafts.ttl":             "2h",
}

// NewConfig создает новый экземпляр конфигурации.
// Порядок источников: значения по умолчанию, файл CONFIG_FILE, .env, переменные окружения.
func NewConfig() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации %s: %w", file, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	var err error

	// Настройки сервера
	if cfg.Server.Port, err = intValue(v, "server.port"); err != nil {
		return nil, err
	}
	if cfg.Server.OpsPort, err = intValue(v, "server.ops_port"); err != nil {
		return nil, err
	}
	cfg.Server.Env = v.GetString("server.env")

	// Настройки базы данных
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(v.GetString("db.driver")))
	if cfg.DB.Driver != "postgres" && cfg.DB.Driver != "sqlite" {
		return nil, fmt.Errorf("неподдерживаемый драйвер базы данных: %q", cfg.DB.Driver)
	}
	cfg.DB.Host = v.GetString("db.host")
	if cfg.DB.Port, err = intValue(v, "db.port"); err != nil {
		return nil, err
	}
	cfg.DB.User = v.GetString("db.user")
	cfg.DB.Password = v.GetString("db.password")
	cfg.DB.DBName = v.GetString("db.name")
	cfg.DB.SSLMode = v.GetString("db.sslmode")
	cfg.DB.SQLitePath = v.GetString("db.sqlite_path")
	cfg.DB.MigrationsPath = v.GetString("db.migrations_path")

	// Настройки Redis
	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	if cfg.Redis.DB, err = intValue(v, "redis.db"); err != nil {
		return nil, err
	}
	if cfg.Redis.LookupTTL, err = durationValue(v, "redis.lookup_ttl"); err != nil {
		return nil, err
	}

	// Настройки JWT
	cfg.JWT.SecretKey = v.GetString("jwt.secret_key")

	// Настройки SMTP
	cfg.SMTP.Host = v.GetString("smtp.host")
	if cfg.SMTP.Port, err = intValue(v, "smtp.port"); err != nil {
		return nil, err
	}
	cfg.SMTP.Username = v.GetString("smtp.username")
	cfg.SMTP.Password = v.GetString("smtp.password")
	cfg.SMTP.From = v.GetString("smtp.from")
	cfg.SMTP.Recipients = splitList(v.GetString("smtp.recipients"))

	// Настройки предупреждений
	if cfg.Warnings.HorizonDays, err = intValue(v, "warnings.horizon_days"); err != nil {
		return nil, err
	}
	if cfg.Warnings.HorizonDays < 0 {
		return nil, fmt.Errorf("горизонт предупреждений не может быть отрицательным: %d", cfg.Warnings.HorizonDays)
	}
	if cfg.Warnings.ScanInterval, err = positiveDuration(v, "warnings.scan_interval"); err != nil {
		return nil, err
	}
	cfg.Warnings.Timezone = v.GetString("warnings.timezone")
	if _, err := time.LoadLocation(cfg.Warnings.Timezone); err != nil {
		return nil, fmt.Errorf("неверный часовой пояс %q: %w", cfg.Warnings.Timezone, err)
	}

	cfg.Log.Level = v.GetString("log.level")

	if cfg.RateLimit.Requests, err = intValue(v, "rate_limit.requests"); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Requests <= 0 {
		return nil, fmt.Errorf("лимит запросов должен быть положительным: %d", cfg.RateLimit.Requests)
	}
	if cfg.RateLimit.Window, err = positiveDuration(v, "rate_limit.window"); err != nil {
		return nil, err
	}

	if cfg.Drafts.TTL, err = positiveDuration(v, "drafts.ttl"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN возвращает строку подключения к PostgreSQL
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.DBName,
		c.DB.SSLMode,
	)
}

// MigrateURL возвращает URL базы данных в формате golang-migrate
func (c *Config) MigrateURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.DBName,
		c.DB.SSLMode,
	)
}

// Location возвращает часовой пояс, в котором считается "сегодня" для предупреждений
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Warnings.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// intValue читает целое число и возвращает ошибку, если значение задано неверно
func intValue(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("неверный формат %s: %v", key, err)
	}
	return n, nil
}

func durationValue(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("неверный формат %s: %v", key, err)
	}
	return d, nil
}

func positiveDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := durationValue(v, key)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s должен быть положительным: %s", key, d)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
