package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App  AppConfig
	Log  LogConfig
	HTTP      HTTPConfig
	PDF       PDFConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string `validate:"required"`
	Env  string `validate:"oneof=development testing staging production"`
	Port string `validate:"required,numeric"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn warning error fatal"`
	Format string `validate:"oneof=json console"`
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	IdleTimeout     time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	// MaxBodyBytes caps request bodies
	MaxBodyBytes int64 `validate:"gt=0"`
	// RenderRateLimit is the number of renders a client may start per RenderRateWindow
	RenderRateLimit  int           `validate:"gt=0"`
	RenderRateWindow time.Duration `validate:"gt=0"`
}

// PDFConfig holds document composition and artifact layout settings
type PDFConfig struct {
	// Geometry in millimeters
	Margin       float64 `validate:"gte=0"`
	PageWidth    float64 `validate:"gt=0"`
	PageHeight   float64 `validate:"gt=0"`
	FooterHeight float64 `validate:"gte=0"`

	// ProjectDir is exposed to templates and resolves the relative paths below
	ProjectDir string `validate:"required"`
	// FontsDir holds the TrueType fonts registered on every document
	FontsDir string
	// TemplatesDir overrides the bundled partials
	TemplatesDir string
	// TranslationsDir holds <domain>.<locale>.yaml catalogs
	TranslationsDir string
	Locale          string `validate:"required,bcp47_language_tag"`

	// OutputDir is the root of per-kind artifact directories
	OutputDir string `validate:"required"`
	// PreviewDir is the root of per-kind preview directories; empty disables previews
	PreviewDir string
	PreviewDPI float64 `validate:"gte=0,lte=600"`
	// Retention removes saved artifacts older than this; zero keeps them forever
	Retention     time.Duration
	SweepInterval time.Duration

	DebugBorders bool
}

// RedisConfig holds the connection of the shared artifact index.
// An empty Host keeps the index in process memory.
type RedisConfig struct {
	Host      string
	Port      int `validate:"gte=0,lte=65535"`
	Password  string
	DB        int `validate:"gte=0"`
	KeyPrefix string
}

// StorageConfig holds the S3-compatible bucket that saved artifacts are mirrored to
type StorageConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string `validate:"required_if=Enabled true"`
	AccessKey         string `validate:"required_if=Enabled true"`
	SecretKey         string `validate:"required_if=Enabled true"`
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// TelemetryConfig holds OpenTelemetry settings. Enabled switches on tracing
// and metrics export; LogsEnabled additionally ships zap output over OTLP.
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64 `validate:"gte=0,lte=1"`
	Insecure          bool
	MetricsInterval   time.Duration `validate:"gte=0"`
	LogsEnabled       bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PDF_ prefix (e.g., PDF_PDF_OUTPUT_DIR)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return loadFrom(v)
}

func loadFrom(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("PDF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxBodyBytes:     v.GetInt64("http.max_body_bytes"),
			RenderRateLimit:  v.GetInt("http.render_rate_limit"),
			RenderRateWindow: v.GetDuration("http.render_rate_window"),
		},
		PDF: PDFConfig{
			Margin:          v.GetFloat64("pdf.margin"),
			PageWidth:       v.GetFloat64("pdf.page_width"),
			PageHeight:      v.GetFloat64("pdf.page_height"),
			FooterHeight:    v.GetFloat64("pdf.footer_height"),
			ProjectDir:      v.GetString("pdf.project_dir"),
			FontsDir:        v.GetString("pdf.fonts_dir"),
			TemplatesDir:    v.GetString("pdf.templates_dir"),
			TranslationsDir: v.GetString("pdf.translations_dir"),
			Locale:          v.GetString("pdf.locale"),
			OutputDir:       v.GetString("pdf.output_dir"),
			PreviewDir:      v.GetString("pdf.preview_dir"),
			PreviewDPI:      v.GetFloat64("pdf.preview_dpi"),
			Retention:       v.GetDuration("pdf.retention"),
			SweepInterval:   v.GetDuration("pdf.sweep_interval"),
			DebugBorders:    v.GetBool("pdf.debug_borders"),
		},
		Redis: RedisConfig{
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
	}

	// Margin 0 is a legitimate setting, so only fall back when the key is unset
	if !v.IsSet("pdf.margin") {
		cfg.PDF.Margin = 15
	}
	if !v.IsSet("pdf.footer_height") {
		cfg.PDF.FooterHeight = 35
	}
	if !v.IsSet("telemetry.sampling_ratio") {
		cfg.Telemetry.SamplingRatio = 1.0
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "pdf-service"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second // renders can be slow
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 1 << 20
	}
	if cfg.HTTP.RenderRateLimit == 0 {
		cfg.HTTP.RenderRateLimit = 60
	}
	if cfg.HTTP.RenderRateWindow == 0 {
		cfg.HTTP.RenderRateWindow = time.Minute
	}
	if cfg.PDF.PageWidth == 0 {
		cfg.PDF.PageWidth = 210
	}
	if cfg.PDF.PageHeight == 0 {
		cfg.PDF.PageHeight = 297
	}
	if cfg.PDF.ProjectDir == "" {
		cfg.PDF.ProjectDir = "."
	}
	if cfg.PDF.Locale == "" {
		cfg.PDF.Locale = "en"
	}
	if cfg.PDF.OutputDir == "" {
		cfg.PDF.OutputDir = "var/pdf"
	}
	if cfg.PDF.PreviewDPI == 0 {
		cfg.PDF.PreviewDPI = 72
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "pdf:artifact:"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.PDF.SweepInterval == 0 {
		cfg.PDF.SweepInterval = time.Hour
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.PDF.Margin*2 >= c.PDF.PageWidth {
		return fmt.Errorf("pdf.margin (%v) leaves no inner width on a %vmm page", c.PDF.Margin, c.PDF.PageWidth)
	}
	if c.PDF.FooterHeight >= c.PDF.PageHeight {
		return fmt.Errorf("pdf.footer_height (%v) cannot exceed pdf.page_height (%v)", c.PDF.FooterHeight, c.PDF.PageHeight)
	}
	if c.App.Env == "production" && c.PDF.DebugBorders {
		return fmt.Errorf("pdf.debug_borders must be disabled in production")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}
