package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAppName         = "PayCard"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultOutputDir       = "generated"
	defaultDispatchMode    = DispatchDeferred
	defaultDeliveryMode    = DeliveryWhatsApp
	defaultWhatsAppBaseURL = "https://api.green-api.com"
	defaultCountryCode     = "92"
	defaultDeliveryTimeout = 60 * time.Second
	defaultCaptureTimeout  = 60 * time.Second
	defaultDeferredQueue   = 64
	defaultQueueConsumers  = 1
	defaultSweepInterval   = 15 * time.Minute
	defaultSweepTTL        = 30 * time.Minute
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Dispatch modes select how the card pipeline is scheduled relative to the request.
const (
	DispatchSync     = "sync"
	DispatchDeferred = "deferred"
	DispatchQueue    = "queue"
)

// Delivery modes select the notifier implementation.
const (
	DeliveryWhatsApp = "whatsapp"
	DeliveryLog      = "log"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	ShutdownPeriod time.Duration

	// AllowedIPs is the caller allow-list. Empty disables the gate.
	AllowedIPs  []string
	ProxyHeader string
	// TrustedProxies lists peers (addresses or CIDR ranges) whose ProxyHeader is believed.
	TrustedProxies []string

	OutputDir      string
	TemplateDir    string
	ChromeBin      string
	CaptureTimeout time.Duration

	DispatchMode    string
	DeferredWorkers int
	DeferredQueue   int

	DeliveryMode    string
	WhatsAppBaseURL string
	CountryCode     string
	DeliveryTimeout time.Duration

	RedisURL           string
	IdempotencyTTL     time.Duration
	RateLimitPerMinute int

	NATSURL        string
	QueueConsumers int

	SweepInterval time.Duration
	SweepTTL      time.Duration
}

// fileConfig mirrors the optional YAML file pointed to by CONFIG_PATH.
type fileConfig struct {
	App struct {
		Name     string `yaml:"name"`
		Env      string `yaml:"env"`
		Port     string `yaml:"port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`
	Access struct {
		AllowedIPs     []string `yaml:"allowed_ips"`
		ProxyHeader    string   `yaml:"proxy_header"`
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"access"`
	Render struct {
		OutputDir      string `yaml:"output_dir"`
		TemplateDir    string `yaml:"template_dir"`
		ChromeBin      string `yaml:"chrome_bin"`
		CaptureTimeout string `yaml:"capture_timeout"`
	} `yaml:"render"`
	Dispatch struct {
		Mode           string `yaml:"mode"`
		Workers        int    `yaml:"workers"`
		Queue          int    `yaml:"queue"`
		QueueConsumers int    `yaml:"queue_consumers"`
	} `yaml:"dispatch"`
	Delivery struct {
		Mode        string `yaml:"mode"`
		BaseURL     string `yaml:"base_url"`
		CountryCode string `yaml:"country_code"`
		Timeout     string `yaml:"timeout"`
	} `yaml:"delivery"`
	Redis struct {
		URL                string `yaml:"url"`
		IdempotencyTTL     string `yaml:"idempotency_ttl"`
		RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	} `yaml:"redis"`
	Nats struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Sweeper struct {
		Interval string `yaml:"interval"`
		TTL      string `yaml:"ttl"`
	} `yaml:"sweeper"`
}

// Load reads configuration values from the environment and populates a Config instance.
// When CONFIG_PATH points to a YAML file its values act as defaults for the environment.
func Load() (Config, error) {
	cfg := Config{
		AppName:         defaultAppName,
		AppEnv:          defaultAppEnv,
		Port:            defaultPort,
		LogLevel:        defaultLogLevel,
		ShutdownPeriod:  defaultShutdownDelay,
		OutputDir:       defaultOutputDir,
		CaptureTimeout:  defaultCaptureTimeout,
		DispatchMode:    defaultDispatchMode,
		DeferredQueue:   defaultDeferredQueue,
		DeliveryMode:    defaultDeliveryMode,
		WhatsAppBaseURL: defaultWhatsAppBaseURL,
		CountryCode:     defaultCountryCode,
		DeliveryTimeout: defaultDeliveryTimeout,
		IdempotencyTTL:  defaultIdempotencyTTL,
		QueueConsumers:  defaultQueueConsumers,
		SweepInterval:   defaultSweepInterval,
		SweepTTL:        defaultSweepTTL,
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	setString(&c.AppName, fc.App.Name)
	setString(&c.AppEnv, fc.App.Env)
	setString(&c.Port, fc.App.Port)
	setString(&c.LogLevel, fc.App.LogLevel)
	if len(fc.Access.AllowedIPs) > 0 {
		c.AllowedIPs = cleanList(fc.Access.AllowedIPs)
	}
	setString(&c.ProxyHeader, fc.Access.ProxyHeader)
	if len(fc.Access.TrustedProxies) > 0 {
		c.TrustedProxies = cleanList(fc.Access.TrustedProxies)
	}
	setString(&c.OutputDir, fc.Render.OutputDir)
	setString(&c.TemplateDir, fc.Render.TemplateDir)
	setString(&c.ChromeBin, fc.Render.ChromeBin)
	setString(&c.DispatchMode, fc.Dispatch.Mode)
	setInt(&c.DeferredWorkers, fc.Dispatch.Workers)
	setInt(&c.DeferredQueue, fc.Dispatch.Queue)
	setInt(&c.QueueConsumers, fc.Dispatch.QueueConsumers)
	setString(&c.DeliveryMode, fc.Delivery.Mode)
	setString(&c.WhatsAppBaseURL, fc.Delivery.BaseURL)
	setString(&c.CountryCode, fc.Delivery.CountryCode)
	setString(&c.RedisURL, fc.Redis.URL)
	setInt(&c.RateLimitPerMinute, fc.Redis.RateLimitPerMinute)
	setString(&c.NATSURL, fc.Nats.URL)

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"render.capture_timeout", fc.Render.CaptureTimeout, &c.CaptureTimeout},
		{"delivery.timeout", fc.Delivery.Timeout, &c.DeliveryTimeout},
		{"redis.idempotency_ttl", fc.Redis.IdempotencyTTL, &c.IdempotencyTTL},
		{"sweeper.interval", fc.Sweeper.Interval, &c.SweepInterval},
		{"sweeper.ttl", fc.Sweeper.TTL, &c.SweepTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s in %s: %w", d.key, path, err)
		}
		*d.dst = v
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.AppName = getEnv("APP_NAME", c.AppName)
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))
	if v, ok := os.LookupEnv("ALLOWED_IPS"); ok {
		c.AllowedIPs = ParseList(v)
	}
	c.ProxyHeader = getEnv("PROXY_HEADER", c.ProxyHeader)
	if v, ok := os.LookupEnv("TRUSTED_PROXIES"); ok {
		c.TrustedProxies = ParseList(v)
	}
	c.OutputDir = getEnv("OUTPUT_DIR", c.OutputDir)
	c.TemplateDir = getEnv("TEMPLATE_DIR", c.TemplateDir)
	c.ChromeBin = getEnv("CHROME_BIN", c.ChromeBin)
	c.DispatchMode = strings.ToLower(getEnv("DISPATCH_MODE", c.DispatchMode))
	c.DeliveryMode = strings.ToLower(getEnv("DELIVERY_MODE", c.DeliveryMode))
	c.WhatsAppBaseURL = strings.TrimRight(getEnv("WHATSAPP_BASE_URL", c.WhatsAppBaseURL), "/")
	c.CountryCode = getEnv("COUNTRY_CODE", c.CountryCode)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		c.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		c.ShutdownPeriod = d
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"DEFERRED_WORKERS", &c.DeferredWorkers},
		{"DEFERRED_QUEUE", &c.DeferredQueue},
		{"RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute},
		{"QUEUE_CONSUMERS", &c.QueueConsumers},
	}
	for _, i := range ints {
		v := os.Getenv(i.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", i.key, err)
		}
		*i.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"CAPTURE_TIMEOUT", &c.CaptureTimeout},
		{"DELIVERY_TIMEOUT", &c.DeliveryTimeout},
		{"IDEMPOTENCY_TTL", &c.IdempotencyTTL},
		{"SWEEP_INTERVAL", &c.SweepInterval},
		{"SWEEP_TTL", &c.SweepTTL},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func (c Config) validate() error {
	switch c.DispatchMode {
	case DispatchSync, DispatchDeferred:
	case DispatchQueue:
		if c.NATSURL == "" {
			return fmt.Errorf("NATS_URL must be set when DISPATCH_MODE=%s", DispatchQueue)
		}
	default:
		return fmt.Errorf("invalid DISPATCH_MODE %q", c.DispatchMode)
	}

	switch c.DeliveryMode {
	case DeliveryWhatsApp, DeliveryLog:
	default:
		return fmt.Errorf("invalid DELIVERY_MODE %q", c.DeliveryMode)
	}

	if c.ProxyHeader != "" && len(c.TrustedProxies) == 0 {
		return fmt.Errorf("TRUSTED_PROXIES must be set when PROXY_HEADER is set")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR must not be empty")
	}
	if c.DeferredWorkers < 0 || c.DeferredQueue < 0 || c.QueueConsumers < 0 {
		return fmt.Errorf("worker and queue sizes must not be negative")
	}
	return nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// ParseList splits a comma-separated value, trimming blanks and dropping empty entries.
func ParseList(raw string) []string {
	return cleanList(strings.Split(raw, ","))
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
