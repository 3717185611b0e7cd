package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	apppdf "github.com/erp/pdfkit/internal/application/printing"
	domain "github.com/erp/pdfkit/internal/domain/printing"
	"github.com/erp/pdfkit/internal/infrastructure/cache"
	"github.com/erp/pdfkit/internal/infrastructure/config"
	"github.com/erp/pdfkit/internal/infrastructure/i18n"
	"github.com/erp/pdfkit/internal/infrastructure/logger"
	infra "github.com/erp/pdfkit/internal/infrastructure/printing"
	"github.com/erp/pdfkit/internal/infrastructure/scheduler"
	"github.com/erp/pdfkit/internal/infrastructure/storage"
	"github.com/erp/pdfkit/internal/infrastructure/telemetry"
	"github.com/erp/pdfkit/internal/interfaces/http/handler"
	"github.com/erp/pdfkit/internal/interfaces/http/middleware"
	"github.com/erp/pdfkit/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			PDF Service API
//	@version		1.0
//	@description	Renders business documents to PDF and manages the saved files

//	@BasePath	/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := context.Background()

	// Telemetry
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, zapcore.InfoLevel)

	log.Info("Starting PDF service",
		zap.String("app", cfg.App.Name),
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	meter := meterProvider.Meter(cfg.App.Name)
	renderMetrics, err := telemetry.NewRenderMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create render metrics", zap.Error(err))
	}

	// Document composition
	composer, err := newComposer(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize document composer", zap.Error(err))
	}

	store, err := infra.NewArtifactStore(&infra.ArtifactStoreConfig{
		BaseDir:    resolvePath(cfg.PDF.ProjectDir, cfg.PDF.OutputDir),
		PreviewDir: resolvePath(cfg.PDF.ProjectDir, cfg.PDF.PreviewDir),
		PreviewDPI: cfg.PDF.PreviewDPI,
		Rasterizer: infra.NewFitzRasterizer(),
		Logger:     logger.Component(log, "artifact-store"),
	})
	if err != nil {
		log.Fatal("Failed to initialize artifact store", zap.Error(err))
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)
	outputDir := resolvePath(cfg.PDF.ProjectDir, cfg.PDF.OutputDir)
	systemHandler.AddCheck("output_dir", func(context.Context) error {
		ok, err := afero.DirExists(afero.NewOsFs(), outputDir)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("output directory %s does not exist", outputDir)
		}
		return nil
	})

	// The index is shared through Redis when several instances serve one output directory
	var index apppdf.ArtifactIndex = apppdf.NewMemoryIndex()
	if cfg.Redis.Host != "" {
		redisIndex, err := cache.NewRedisIndex(ctx, cache.RedisConfig{
			Host:      cfg.Redis.Host,
			Port:      cfg.Redis.Port,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			log.Fatal("Failed to connect artifact index", zap.Error(err))
		}
		defer func() {
			if err := redisIndex.Close(); err != nil {
				log.Error("Error closing Redis", zap.Error(err))
			}
		}()
		index = redisIndex
		systemHandler.AddCheck("redis", redisIndex.Ping)
		log.Info("Artifact index backed by Redis", zap.String("host", cfg.Redis.Host))
	}

	serviceOpts := []apppdf.ServiceOption{
		apppdf.WithMetrics(renderMetrics),
		apppdf.WithLinkTTL(cfg.Storage.PresignExpiration),
	}
	if cfg.Storage.Enabled {
		mirror, err := storage.NewS3Mirror(&cfg.Storage,
			storage.WithLogger(logger.Component(log, "s3-mirror")),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
		)
		if err != nil {
			log.Fatal("Failed to initialize artifact mirror", zap.Error(err))
		}
		if err := mirror.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare mirror bucket", zap.Error(err))
		}
		serviceOpts = append(serviceOpts, apppdf.WithMirror(mirror))
		log.Info("Artifact mirror enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	registry := apppdf.NewBuilderRegistry(
		apppdf.NewInvoiceBuilder(apppdf.NewMemoryInvoiceSource(apppdf.DemoInvoices()...)),
	)
	pdfService := apppdf.NewPDFService(registry, composer, store, index,
		logger.Component(log, "pdf-service"), serviceOpts...)

	// Retention
	var sweeper *scheduler.RetentionSweeper
	if cfg.PDF.Retention > 0 {
		sweeper, err = scheduler.NewRetentionSweeper(scheduler.RetentionConfig{
			MaxAge:   cfg.PDF.Retention,
			Interval: cfg.PDF.SweepInterval,
		}, pdfService, logger.Component(log, "retention"))
		if err != nil {
			log.Fatal("Failed to create retention sweeper", zap.Error(err))
		}
		if err := sweeper.Start(ctx); err != nil {
			log.Fatal("Failed to start retention sweeper", zap.Error(err))
		}
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(
		logger.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.App.Name,
			Enabled:     tracerProvider.IsEnabled(),
		}),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(meter, log),
		middleware.CORS(),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodyBytes),
	)

	renderLimiter := middleware.NewRateLimiter(cfg.HTTP.RenderRateLimit, cfg.HTTP.RenderRateWindow)
	defer renderLimiter.Stop()

	pdfRoutes := handler.PDFRoutes(handler.NewPDFHandler(pdfService), middleware.RateLimit(renderLimiter))
	r := router.NewRouter(engine)
	r.Register(pdfRoutes).
		Register(handler.SystemRoutes(systemHandler))
	r.Setup()

	for _, route := range pdfRoutes.Routes() {
		log.Debug("Route registered",
			zap.String("method", route.Method),
			zap.String("path", r.BasePath()+route.Path))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if sweeper != nil {
		if err := sweeper.Stop(shutdownCtx); err != nil {
			log.Warn("Retention sweeper did not stop cleanly", zap.Error(err))
		}
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush traces", zap.Error(err))
	}

	log.Info("Server exited gracefully")

	// Last, so the shutdown messages above are exported too
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
	}
}

// newComposer builds the composer from the fonts, templates and catalogs of
// the project directory. Bundled templates and catalogs fill in anything the
// project does not override.
func newComposer(cfg *config.Config, log *zap.Logger) (*apppdf.Composer, error) {
	geometry, err := domain.NewGeometry(cfg.PDF.Margin, cfg.PDF.PageWidth, cfg.PDF.PageHeight, cfg.PDF.FooterHeight)
	if err != nil {
		return nil, err
	}

	fonts := infra.NewFontSet()
	if cfg.PDF.FontsDir != "" {
		if err := fonts.UseFontsDir(resolvePath(cfg.PDF.ProjectDir, cfg.PDF.FontsDir)); err != nil {
			return nil, err
		}
	}

	engine := infra.NewTemplateEngine(
		infra.WithTemplateDir(resolvePath(cfg.PDF.ProjectDir, cfg.PDF.TemplatesDir)),
		infra.WithTemplateFS(apppdf.Templates()),
		infra.WithTemplateLogger(logger.Component(log, "templates")),
	)

	var translator *i18n.Translator
	if cfg.PDF.TranslationsDir != "" {
		translator, err = i18n.NewFromDir(resolvePath(cfg.PDF.ProjectDir, cfg.PDF.TranslationsDir), cfg.PDF.Locale,
			i18n.WithLogger(log))
	} else {
		translator, err = i18n.New(apppdf.Translations(), cfg.PDF.Locale, i18n.WithLogger(log))
	}
	if err != nil {
		return nil, err
	}

	return apppdf.NewComposer(&apppdf.ComposerConfig{
		Geometry:     geometry,
		ProjectDir:   cfg.PDF.ProjectDir,
		DebugBorders: cfg.PDF.DebugBorders,
		Creator:      cfg.App.Name,
		Fonts:        fonts,
		Engine:       engine,
		Translator:   translator,
		Logger:       logger.Component(log, "composer"),
	}), nil
}

// resolvePath anchors relative paths at the project directory. Empty stays
// empty so optional directories remain disabled.
func resolvePath(projectDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectDir, path)
}
