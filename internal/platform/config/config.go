package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	envPrefix = "PORTFOLIO_"

	defaultEnvFile           = ".env"
	defaultPort              = "8080"
	defaultReadHeaderTimeout = 10 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 15 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultRequestTimeout    = 30 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	defaultSiteName          = "HR Portfolio"
	defaultSiteBaseURL       = "http://localhost:8080"
	defaultLocale            = "en"
	defaultOfflinePort       = "8081"
	defaultOfflineOrigin     = "http://localhost:8080"
	defaultOfflineCacheName  = "hr-portfolio-v3"
	defaultOfflineBackend    = BackendMemory
	defaultRedisAddr         = "localhost:6379"
	defaultRedisNamespace    = "offline"
	defaultGCSPrefix         = "offline"
	defaultContactTimeout    = 10 * time.Second
)

// Storage backends accepted by Offline.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendGCS    = "gcs"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig
	Site    SiteConfig
	I18n    I18nConfig
	Offline OfflineConfig
	Contact ContactConfig
	Theme   ThemeConfig
}

// ServerConfig holds HTTP server settings for the page renderer.
type ServerConfig struct {
	Port              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
}

// SiteConfig describes the public site.
type SiteConfig struct {
	Name    string
	BaseURL string
	// PublicDir serves static files from disk instead of the embedded copy when set.
	PublicDir string
}

// I18nConfig configures locale resolution.
type I18nConfig struct {
	DefaultLocale string
	// LocalesDir loads dictionaries from disk instead of the embedded copy when set.
	LocalesDir string
}

// OfflineConfig configures the offline cache proxy.
type OfflineConfig struct {
	Port           string
	Origin         string
	CacheName      string
	Manifest       []string
	Backend        string
	RedisAddr      string
	RedisDB        int
	RedisNamespace string
	GCSBucket      string
	GCSPrefix      string
}

// ContactConfig configures the contact form relay and the obfuscated address.
type ContactConfig struct {
	Endpoint    string
	Timeout     time.Duration
	EmailUser   string
	EmailDomain string
}

// ThemeConfig configures the accent colour.
type ThemeConfig struct {
	// AccentImage is a PNG or JPEG the brand colour is derived from at startup.
	AccentImage string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values. They take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, the .env file, the process environment
// and explicit values, in increasing precedence.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	raw := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}
	lookup := func(name string) (string, bool) {
		return raw(envPrefix + name)
	}

	// Cloud Run style hosts only set PORT.
	port := stringWithDefault(lookup, "SERVER_PORT", stringWithDefault(raw, "PORT", defaultPort))

	cfg := Config{
		Server: ServerConfig{
			Port:              port,
			ReadHeaderTimeout: durationWithDefault(lookup, "SERVER_READ_HEADER_TIMEOUT", defaultReadHeaderTimeout),
			ReadTimeout:       durationWithDefault(lookup, "SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:      durationWithDefault(lookup, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:       durationWithDefault(lookup, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout:    durationWithDefault(lookup, "SERVER_REQUEST_TIMEOUT", defaultRequestTimeout),
			ShutdownTimeout:   durationWithDefault(lookup, "SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Site: SiteConfig{
			Name:      stringWithDefault(lookup, "SITE_NAME", defaultSiteName),
			BaseURL:   strings.TrimRight(stringWithDefault(lookup, "SITE_BASE_URL", defaultSiteBaseURL), "/"),
			PublicDir: stringWithDefault(lookup, "SITE_PUBLIC_DIR", ""),
		},
		I18n: I18nConfig{
			DefaultLocale: strings.ToLower(stringWithDefault(lookup, "I18N_DEFAULT_LOCALE", defaultLocale)),
			LocalesDir:    stringWithDefault(lookup, "I18N_LOCALES_DIR", ""),
		},
		Offline: OfflineConfig{
			Port:           stringWithDefault(lookup, "OFFLINE_PORT", defaultOfflinePort),
			Origin:         strings.TrimRight(stringWithDefault(lookup, "OFFLINE_ORIGIN", defaultOfflineOrigin), "/"),
			CacheName:      stringWithDefault(lookup, "OFFLINE_CACHE_NAME", defaultOfflineCacheName),
			Manifest:       csvWithDefault(lookup, "OFFLINE_MANIFEST"),
			Backend:        strings.ToLower(stringWithDefault(lookup, "OFFLINE_BACKEND", defaultOfflineBackend)),
			RedisAddr:      stringWithDefault(lookup, "OFFLINE_REDIS_ADDR", defaultRedisAddr),
			RedisDB:        intWithDefault(lookup, "OFFLINE_REDIS_DB", 0),
			RedisNamespace: stringWithDefault(lookup, "OFFLINE_REDIS_NAMESPACE", defaultRedisNamespace),
			GCSBucket:      stringWithDefault(lookup, "OFFLINE_GCS_BUCKET", ""),
			GCSPrefix:      stringWithDefault(lookup, "OFFLINE_GCS_PREFIX", defaultGCSPrefix),
		},
		Contact: ContactConfig{
			Endpoint:    stringWithDefault(lookup, "CONTACT_ENDPOINT", ""),
			Timeout:     durationWithDefault(lookup, "CONTACT_TIMEOUT", defaultContactTimeout),
			EmailUser:   stringWithDefault(lookup, "CONTACT_EMAIL_USER", ""),
			EmailDomain: stringWithDefault(lookup, "CONTACT_EMAIL_DOMAIN", ""),
		},
		Theme: ThemeConfig{
			AccentImage: stringWithDefault(lookup, "THEME_ACCENT_IMAGE", ""),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Addr is the listen address of the page renderer.
func (c ServerConfig) Addr() string {
	return ":" + c.Port
}

// Addr is the listen address of the offline proxy.
func (c OfflineConfig) Addr() string {
	return ":" + c.Port
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		missing = append(missing, "Server.Port")
	}
	if !isAbsoluteURL(cfg.Site.BaseURL) {
		missing = append(missing, "Site.BaseURL")
	}
	switch cfg.I18n.DefaultLocale {
	case "en", "ps", "fa":
	default:
		missing = append(missing, "I18n.DefaultLocale")
	}
	if !isAbsoluteURL(cfg.Offline.Origin) {
		missing = append(missing, "Offline.Origin")
	}
	if strings.TrimSpace(cfg.Offline.CacheName) == "" || strings.Contains(cfg.Offline.CacheName, "/") {
		missing = append(missing, "Offline.CacheName")
	}
	switch cfg.Offline.Backend {
	case BackendMemory:
	case BackendRedis:
		if cfg.Offline.RedisAddr == "" {
			missing = append(missing, "Offline.RedisAddr")
		}
	case BackendGCS:
		if cfg.Offline.GCSBucket == "" {
			missing = append(missing, "Offline.GCSBucket")
		}
	default:
		missing = append(missing, "Offline.Backend")
	}
	if cfg.Contact.Endpoint != "" && !isAbsoluteURL(cfg.Contact.Endpoint) {
		missing = append(missing, "Contact.Endpoint")
	}
	if (cfg.Contact.EmailUser == "") != (cfg.Contact.EmailDomain == "") {
		missing = append(missing, "Contact.EmailUser/EmailDomain")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: dedupe(missing)}
	}
	return nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
