package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	DSN            string                `yaml:"dsn"`
	RedisURL       string                `yaml:"redis_url"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Env            string                `yaml:"env"` // "development" | "production"
	Paths          RuntimePathsConfig    `yaml:"paths"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	JWTSecret      string                `yaml:"jwt_secret"`
	Timezone       string                `yaml:"timezone"`
	Webhook        WebhookRuntimeConfig  `yaml:"webhook"`
}

type DatabaseRuntimeConfig struct {
	Driver    string            `yaml:"driver"` // "mysql" | "sqlite"
	DSN       string            `yaml:"dsn"`
	Path      string            `yaml:"path"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type RedisRuntimeConfig struct {
	Enable   bool              `yaml:"enable"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

// WebhookRuntimeConfig tunes outbound delivery.
type WebhookRuntimeConfig struct {
	Timeout              time.Duration `yaml:"timeout"`
	MaxResponseBodyBytes int64         `yaml:"max_response_body_bytes"`
	MaxAttempts          int           `yaml:"max_attempts"`
	RetryBaseDelay       time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay        time.Duration `yaml:"retry_max_delay"`
	UserAgent            string        `yaml:"user_agent"`
	CacheTTL             time.Duration `yaml:"cache_ttl"`
	// ManualRateLimit caps test and redispatch calls per admin per minute.
	// 0 disables the limit.
	ManualRateLimit      int           `yaml:"manual_rate_limit"`
	// LogRetention is how long delivery logs are kept. 0 keeps them forever.
	LogRetention         time.Duration `yaml:"log_retention"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

type rawAppConfig struct {
	Port           int               `yaml:"port"`
	DSN            string            `yaml:"dsn"`
	RedisURL       string            `yaml:"redis_url"`
	Database       rawDatabaseConfig `yaml:"database"`
	Redis          rawRedisConfig    `yaml:"redis"`
	Env            string            `yaml:"env"`
	Paths          rawPathsConfig    `yaml:"paths"`
	LogDir         string            `yaml:"log_dir"`
	AllowedOrigins []string          `yaml:"allowed_origins"`
	JWTSecret      string            `yaml:"jwt_secret"`
	Timezone       string            `yaml:"timezone"`
	Webhook        rawWebhookConfig  `yaml:"webhook"`
}

type rawDatabaseConfig struct {
	Driver    string            `yaml:"driver"`
	DSN       string            `yaml:"dsn"`
	Path      string            `yaml:"path"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	Enable   *bool             `yaml:"enable"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       *int              `yaml:"db"`
	TLS      *bool             `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type rawWebhookConfig struct {
	Timeout              string `yaml:"timeout"`
	MaxResponseBodyBytes *int64 `yaml:"max_response_body_bytes"`
	MaxAttempts          *int   `yaml:"max_attempts"`
	RetryBaseDelay       string `yaml:"retry_base_delay"`
	RetryMaxDelay        string `yaml:"retry_max_delay"`
	UserAgent            string `yaml:"user_agent"`
	CacheTTL             string `yaml:"cache_ttl"`
	ManualRateLimit      *int   `yaml:"manual_rate_limit"`
	LogRetention         string `yaml:"log_retention"`
}

type rawPathsConfig struct {
	Logs string `yaml:"logs"`
}

// Load reads the YAML file at configPath and applies defaults.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML content into an AppConfig. Unknown keys are rejected.
func Parse(content []byte) (*AppConfig, error) {
	cfg := defaultAppConfig()
	raw := rawAppConfig{}
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil {
			return nil, err
		}
	}

	if err := applyRawAppConfig(&cfg, raw); err != nil {
		return nil, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d, expected 1-65535", cfg.Port)
	}
	if cfg.Database.Driver == "mysql" && (cfg.Database.Port < 1 || cfg.Database.Port > 65535) {
		return nil, fmt.Errorf("invalid database.port %d, expected 1-65535", cfg.Database.Port)
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return nil, fmt.Errorf("invalid redis.port %d, expected 1-65535", cfg.Redis.Port)
	}
	if cfg.Redis.DB < 0 {
		return nil, fmt.Errorf("invalid redis.db %d, expected >= 0", cfg.Redis.DB)
	}
	if cfg.Webhook.MaxAttempts < 1 {
		return nil, fmt.Errorf("invalid webhook.max_attempts %d, expected >= 1", cfg.Webhook.MaxAttempts)
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Driver:    defaultDBDriver,
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Webhook: WebhookRuntimeConfig{
			Timeout:              defaultWebhookTimeout,
			MaxResponseBodyBytes: defaultWebhookMaxBody,
			MaxAttempts:          defaultWebhookMaxAttempts,
			RetryBaseDelay:       defaultWebhookRetryBaseDelay,
			RetryMaxDelay:        defaultWebhookRetryMaxDelay,
			UserAgent:            defaultWebhookUserAgent,
			CacheTTL:             defaultWebhookCacheTTL,
			ManualRateLimit:      defaultWebhookManualRateLimit,
			LogRetention:         defaultWebhookLogRetention,
		},
	}
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.DSN = cfg.Database.DSNValue()
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) error {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw.Database)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw.Redis)
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	if len(raw.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = raw.AllowedOrigins
	}
	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}
	webhook, err := applyRawWebhookConfig(cfg.Webhook, raw.Webhook)
	if err != nil {
		return err
	}
	cfg.Webhook = webhook

	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)

	cfg.DSN = cfg.Database.DSNValue()
	if v := strings.TrimSpace(raw.DSN); v != "" {
		cfg.DSN = v
	}
	cfg.RedisURL = ""
	if v := normalizeRedisRawURL(raw.RedisURL); v != "" {
		cfg.Redis.Enable = true
		cfg.RedisURL = v
	} else if cfg.Redis.Enable {
		cfg.RedisURL = cfg.Redis.URLValue()
	}
	return nil
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawDatabaseConfig) DatabaseRuntimeConfig {
	out := current
	if v := strings.TrimSpace(raw.Driver); v != "" {
		out.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.DSN); v != "" {
		out.DSN = v
	}
	if v := strings.TrimSpace(raw.Path); v != "" {
		out.Path = v
	}
	if v := strings.TrimSpace(raw.Host); v != "" {
		out.Host = v
	}
	if raw.Port != 0 {
		out.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.User); v != "" {
		out.User = v
	}
	if raw.Password != "" {
		out.Password = raw.Password
	}
	if v := strings.TrimSpace(raw.Name); v != "" {
		out.Name = v
	}
	if v := strings.TrimSpace(raw.Charset); v != "" {
		out.Charset = v
	}
	if raw.ParseTime != nil {
		out.ParseTime = *raw.ParseTime
	}
	if v := strings.TrimSpace(raw.Loc); v != "" {
		out.Loc = v
	}
	if len(raw.Params) > 0 {
		out.Params = copyStringMap(raw.Params)
	}
	return out
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawRedisConfig) RedisRuntimeConfig {
	out := current
	if raw.Enable != nil {
		out.Enable = *raw.Enable
	}
	if v := strings.TrimSpace(raw.URL); v != "" {
		out.URL = v
		if raw.Enable == nil {
			out.Enable = true
		}
	}
	if v := strings.TrimSpace(raw.Host); v != "" {
		out.Host = v
	}
	if raw.Port != 0 {
		out.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Username); v != "" {
		out.Username = v
	}
	if raw.Password != "" {
		out.Password = raw.Password
	}
	if raw.DB != nil {
		out.DB = *raw.DB
	}
	if raw.TLS != nil {
		out.TLS = *raw.TLS
	}
	if v := strings.TrimSpace(raw.Scheme); v != "" {
		out.Scheme = v
	}
	if len(raw.Params) > 0 {
		out.Params = copyStringMap(raw.Params)
	}
	return out
}

func applyRawWebhookConfig(current WebhookRuntimeConfig, raw rawWebhookConfig) (WebhookRuntimeConfig, error) {
	out := current
	var err error
	if out.Timeout, err = parseDurationOr(raw.Timeout, out.Timeout, "webhook.timeout"); err != nil {
		return out, err
	}
	if out.RetryBaseDelay, err = parseDurationOr(raw.RetryBaseDelay, out.RetryBaseDelay, "webhook.retry_base_delay"); err != nil {
		return out, err
	}
	if out.RetryMaxDelay, err = parseDurationOr(raw.RetryMaxDelay, out.RetryMaxDelay, "webhook.retry_max_delay"); err != nil {
		return out, err
	}
	if out.CacheTTL, err = parseDurationOr(raw.CacheTTL, out.CacheTTL, "webhook.cache_ttl"); err != nil {
		return out, err
	}
	switch v := strings.TrimSpace(raw.LogRetention); v {
	case "0", "off":
		out.LogRetention = 0
	default:
		if out.LogRetention, err = parseDurationOr(v, out.LogRetention, "webhook.log_retention"); err != nil {
			return out, err
		}
	}
	if raw.MaxResponseBodyBytes != nil && *raw.MaxResponseBodyBytes > 0 {
		out.MaxResponseBodyBytes = *raw.MaxResponseBodyBytes
	}
	if raw.MaxAttempts != nil {
		out.MaxAttempts = *raw.MaxAttempts
	}
	if raw.ManualRateLimit != nil {
		if *raw.ManualRateLimit < 0 {
			return out, fmt.Errorf("invalid webhook.manual_rate_limit %d, expected >= 0", *raw.ManualRateLimit)
		}
		out.ManualRateLimit = *raw.ManualRateLimit
	}
	if v := strings.TrimSpace(raw.UserAgent); v != "" {
		out.UserAgent = v
	}
	return out, nil
}

func parseDurationOr(raw string, fallback time.Duration, key string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return fallback, fmt.Errorf("invalid %s %q, expected a positive duration", key, raw)
	}
	return d, nil
}

func (c *AppConfig) IsDev() bool {
	return c.Env == "development"
}

// LogDir resolves paths.logs against the executable directory.
func (c *AppConfig) LogDir() string {
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

// ExecutableDir returns the directory where the current executable resides.
func ExecutableDir() string {
	exe, err := os.Executable()
	if err == nil && strings.TrimSpace(exe) != "" {
		if resolved, resolveErr := filepath.EvalSymlinks(exe); resolveErr == nil && strings.TrimSpace(resolved) != "" {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	if wd, wdErr := os.Getwd(); wdErr == nil && strings.TrimSpace(wd) != "" {
		return wd
	}
	return "."
}

// ResolveRuntimePath resolves runtime directories against the executable directory.
func ResolveRuntimePath(raw string, fallbackSubdir string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		target = strings.TrimSpace(fallbackSubdir)
		if target == "" {
			return ExecutableDir()
		}
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(ExecutableDir(), target))
}
