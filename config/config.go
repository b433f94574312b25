package config

import (
	"errors"
	"io/fs"
	"log"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database: driver is one of mysql, postgres, sqlite
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBPath      string
	// Redis for token revocation and OAuth state
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Uploaded post images
	MediaRoot         string
	MediaURL          string
	MaxUploadMB       int
	AssetGraceMinutes int
	// Third-party login
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectBase  string
	// Admins
	AdminUsernames []string
	MetricsEnabled bool
}

var cfg AppConfig
var loaded bool

// ErrMissingJWTSecret is returned when no signing secret is configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set in environment variables")

// envBindings maps config keys onto the environment variables that override them.
var envBindings = map[string]string{
	"app.port":                  "APP_PORT",
	"app.jwt_secret":            "JWT_SECRET",
	"app.token_ttl_hours":       "TOKEN_TTL_HOURS",
	"app.rate_limit_per_minute": "RATE_LIMIT_PER_MINUTE",
	"app.allowed_origins":       "CORS_ALLOWED_ORIGINS",
	"app.metrics_enabled":       "METRICS_ENABLED",
	"gin.mode":                  "GIN_MODE",
	"gin.path":                  "GIN_PATH",
	"database.driver":           "DB_DRIVER",
	"database.uri":              "DATABASE_URI",
	"database.host":             "DB_HOST",
	"database.port":             "DB_PORT",
	"database.user":             "DB_USER",
	"database.password":         "DB_PASSWORD",
	"database.name":             "DB_NAME",
	"database.path":             "DB_PATH",
	"redis.host":                "REDIS_HOST",
	"redis.port":                "REDIS_PORT",
	"redis.db":                  "REDIS_DB",
	"redis.password":            "REDIS_PASSWORD",
	"log.level":                 "LOG_LEVEL",
	"log.path":                  "LOG_PATH",
	"log.max_size_mb":           "LOG_MAX_SIZE_MB",
	"log.max_backups":           "LOG_MAX_BACKUPS",
	"log.max_age_days":          "LOG_MAX_AGE_DAYS",
	"log.compress":              "LOG_COMPRESS",
	"media.root":                "MEDIA_ROOT",
	"media.url":                 "MEDIA_URL",
	"media.max_upload_mb":       "MAX_UPLOAD_MB",
	"media.grace_minutes":       "ASSET_GRACE_MINUTES",
	"oauth.github_client_id":    "GITHUB_CLIENT_ID",
	"oauth.github_secret":       "GITHUB_CLIENT_SECRET",
	"oauth.google_client_id":    "GOOGLE_CLIENT_ID",
	"oauth.google_secret":       "GOOGLE_CLIENT_SECRET",
	"oauth.redirect_base":       "OAUTH_REDIRECT_BASE_URL",
	"admin.usernames":           "ADMIN_USERNAMES",
}

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// .env is optional and only fills variables that are not already set.
	_ = godotenv.Load()

	c, err := LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatal(err)
	}
	Set(c)
	return cfg
}

// LoadFrom reads the JSON file at path (missing file is fine), applies defaults and
// environment overrides. Precedence: environment -> config file -> defaults.
func LoadFrom(path string) (AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	applyDefaults(v)
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return AppConfig{}, err
	}

	c := AppConfig{
		AppPort:            v.GetString("app.port"),
		JWTSecret:          v.GetString("app.jwt_secret"),
		TokenTTLHours:      v.GetInt("app.token_ttl_hours"),
		RateLimitPerMinute: v.GetInt("app.rate_limit_per_minute"),
		AllowedOrigins:     getList(v, "app.allowed_origins"),
		MetricsEnabled:     v.GetBool("app.metrics_enabled"),
		GinMode:            v.GetString("gin.mode"),
		GinPath:            v.GetString("gin.path"),
		DBDriver:           strings.ToLower(v.GetString("database.driver")),
		DatabaseURI:        v.GetString("database.uri"),
		DBHost:             v.GetString("database.host"),
		DBPort:             v.GetString("database.port"),
		DBUser:             v.GetString("database.user"),
		DBPassword:         v.GetString("database.password"),
		DBName:             v.GetString("database.name"),
		DBPath:             v.GetString("database.path"),
		RedisHost:          v.GetString("redis.host"),
		RedisPort:          v.GetInt("redis.port"),
		RedisDB:            v.GetInt("redis.db"),
		RedisPassword:      v.GetString("redis.password"),
		LogLevel:           v.GetString("log.level"),
		LogPath:            v.GetString("log.path"),
		LogMaxSizeMB:       v.GetInt("log.max_size_mb"),
		LogMaxBackups:      v.GetInt("log.max_backups"),
		LogMaxAgeDays:      v.GetInt("log.max_age_days"),
		LogCompress:        v.GetBool("log.compress"),
		MediaRoot:          v.GetString("media.root"),
		MediaURL:           v.GetString("media.url"),
		MaxUploadMB:        v.GetInt("media.max_upload_mb"),
		AssetGraceMinutes:  v.GetInt("media.grace_minutes"),
		GitHubClientID:     v.GetString("oauth.github_client_id"),
		GitHubClientSecret: v.GetString("oauth.github_secret"),
		GoogleClientID:     v.GetString("oauth.google_client_id"),
		GoogleClientSecret: v.GetString("oauth.google_secret"),
		OAuthRedirectBase:  v.GetString("oauth.redirect_base"),
		AdminUsernames:     getList(v, "admin.usernames"),
	}

	if c.JWTSecret == "" {
		return AppConfig{}, ErrMissingJWTSecret
	}
	return c, nil
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set installs c as the active configuration.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

// IsAdmin reports whether username is configured as an administrator (case-insensitive).
func (c AppConfig) IsAdmin(username string) bool {
	uname := strings.TrimSpace(username)
	if uname == "" {
		return false
	}
	for _, u := range c.AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}

// applyDefaults sets sane defaults for every non-secret key.
func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.token_ttl_hours", 72)
	v.SetDefault("app.rate_limit_per_minute", 60)
	v.SetDefault("app.allowed_origins", []string{"*"})
	v.SetDefault("app.metrics_enabled", true)
	v.SetDefault("gin.mode", "release")
	v.SetDefault("gin.path", "logs/go_gin.log")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.user", "root")
	v.SetDefault("database.name", "postboard")
	v.SetDefault("database.path", "postboard.db")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("media.root", "media")
	v.SetDefault("media.url", "/media")
	v.SetDefault("media.max_upload_mb", 10)
	v.SetDefault("media.grace_minutes", 60)
	v.SetDefault("oauth.redirect_base", "http://localhost:8080")
}

// getList accepts either a JSON array or a comma separated string (environment form).
func getList(v *viper.Viper, key string) []string {
	if raw, ok := v.Get(key).(string); ok {
		return splitAndTrim(raw)
	}
	return v.GetStringSlice(key)
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
