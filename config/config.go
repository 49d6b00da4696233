package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/bracket-sync/utils"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	ServerPort int
	LogLevel   slog.Level

	GitHubAPIURL  string
	GitHubOwner   string
	GitHubRepo    string
	PathTemplate  string
	Grades        []string
	RemoteRate    float64
	RemoteTimeout time.Duration

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	CacheTTL         time.Duration

	RoleTokenSecret    string
	AbsoluteAdmin      string
	StructuralCodeHash string
	LoginRateLimit     float64

	HistoryDepth    int
	ScoreMin        int
	ScoreMax        int
	DefaultLocation string

	CORSAllowedOrigins []string
	DatabaseURL        string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string
	SMTPFrom     string
	NotifyEmails []string
}

// ArchiveEnabled reports whether R2 credentials were supplied.
func (c *Config) ArchiveEnabled() bool {
	return c.R2AccountID != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	cfg := &Config{
		GitHubAPIURL:       envString("GITHUB_API_URL", "https://api.github.com"),
		GitHubOwner:        os.Getenv("GITHUB_OWNER"),
		GitHubRepo:         os.Getenv("GITHUB_REPO"),
		PathTemplate:       envString("DOCUMENT_PATH_TEMPLATE", "data/competition-grade%s.json"),
		Grades:             envList("GRADES"),
		RoleTokenSecret:    os.Getenv("ROLE_TOKEN_SECRET"),
		AbsoluteAdmin:      strings.TrimSpace(os.Getenv("ABSOLUTE_ADMIN")),
		StructuralCodeHash: os.Getenv("STRUCTURAL_CODE_HASH"),
		DefaultLocation:    envString("DEFAULT_LOCATION", "Maths Lab"),
		CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		R2AccountID:        os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:      os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:  os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:       os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:    os.Getenv("R2_PUBLIC_BASE_URL"),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPUser:           os.Getenv("SMTP_USER"),
		SMTPPass:           os.Getenv("SMTP_PASS"),
		SMTPFrom:           os.Getenv("SMTP_FROM"),
		NotifyEmails:       envList("NOTIFY_EMAILS"),
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	required := []struct{ name, value string }{
		{"GITHUB_OWNER", cfg.GitHubOwner},
		{"GITHUB_REPO", cfg.GitHubRepo},
		{"ROLE_TOKEN_SECRET", cfg.RoleTokenSecret},
		{"ABSOLUTE_ADMIN", cfg.AbsoluteAdmin},
		{"STRUCTURAL_CODE_HASH", cfg.StructuralCodeHash},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("%s environment variable is not set", r.name)
		}
	}
	// Храним только bcrypt-хэш кода, сам код в окружение не попадает
	if !utils.IsBcryptDigest(cfg.StructuralCodeHash) {
		return nil, fmt.Errorf("STRUCTURAL_CODE_HASH must be a bcrypt digest (see cmd/hashsecret)")
	}
	if !strings.Contains(cfg.PathTemplate, "%s") {
		return nil, fmt.Errorf("DOCUMENT_PATH_TEMPLATE must contain %%s, got %q", cfg.PathTemplate)
	}

	var err error
	if cfg.ServerPort, err = envInt("SERVER_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", cfg.ServerPort)
	}
	if cfg.LogLevel, err = envLevel("LOG_LEVEL"); err != nil {
		return nil, err
	}
	if cfg.RemoteRate, err = envFloat("REMOTE_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.LoginRateLimit, err = envFloat("LOGIN_RATE_LIMIT", 1); err != nil {
		return nil, err
	}
	if cfg.RemoteTimeout, err = envDuration("REMOTE_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryMaxAttempts, err = envInt("RETRY_MAX_ATTEMPTS", 4); err != nil {
		return nil, err
	}
	if cfg.RetryMaxAttempts < 1 {
		return nil, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.RetryBaseDelay, err = envDuration("RETRY_BASE_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryMaxDelay, err = envDuration("RETRY_MAX_DELAY", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = envDuration("CACHE_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HistoryDepth, err = envInt("HISTORY_DEPTH", 50); err != nil {
		return nil, err
	}
	if cfg.ScoreMin, err = envInt("SCORE_MIN", 0); err != nil {
		return nil, err
	}
	if cfg.ScoreMax, err = envInt("SCORE_MAX", 100); err != nil {
		return nil, err
	}
	if cfg.ScoreMin > cfg.ScoreMax {
		return nil, fmt.Errorf("SCORE_MIN (%d) is greater than SCORE_MAX (%d)", cfg.ScoreMin, cfg.ScoreMax)
	}
	if cfg.SMTPPort, err = envInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}

	// R2 настраивается целиком или не настраивается вовсе.
	r2 := []string{cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2BucketName}
	set := 0
	for _, v := range r2 {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(r2) {
		return nil, fmt.Errorf("R2 archive is partially configured: R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME must be set together")
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, v)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, v)
	}
	return v, nil
}

func envLevel(key string) (slog.Level, error) {
	var level slog.Level
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return level, nil
}
