package app

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"skillforge_backend/internal/config"
	"skillforge_backend/internal/controller"
	"skillforge_backend/internal/repository"
	"skillforge_backend/internal/service"
	"skillforge_backend/pkg/configwatcher"
	"skillforge_backend/pkg/database"
	"skillforge_backend/pkg/logger"
	"skillforge_backend/pkg/monitoring"
	"skillforge_backend/pkg/security"
	"skillforge_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const questionBankTTL = 5 * time.Minute

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	question  *repository.QuestionRepository
	session   *repository.AssessmentRepository
	telemetry *repository.TelemetryRepository
	verdict   *repository.VerdictRepository
	badge     *repository.BadgeRepository
}

type services struct {
	locks      *service.SessionLocks
	bank       *service.CachedQuestionBank
	storage    *service.StorageService
	integrity  *service.IntegrityService
	assessment *service.AssessmentService
	badge      *service.BadgeService
}

type controllers struct {
	assessment *controller.AssessmentController
	telemetry  *controller.TelemetryController
	badge      *controller.BadgeController
	skill      *controller.SkillController
	integrity  *controller.IntegrityController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// applyConfig hands a reloaded configuration to every registered callback.
func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		question:  repository.NewQuestionRepository(db),
		session:   repository.NewAssessmentRepository(db),
		telemetry: repository.NewTelemetryRepository(db),
		verdict:   repository.NewVerdictRepository(db),
		badge:     repository.NewBadgeRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*services, error) {
	s := &services{}

	// 同一会话的答题、遥测、颁发共用一把锁
	s.locks = service.NewSessionLocks(cfg.Server.LockTimeout)
	s.bank = service.NewCachedQuestionBank(repos.question, questionBankTTL)
	s.storage = service.NewStorageService(cfg)

	cache := service.NewVerdictCache(rdb, cfg.Redis.VerdictTTL)
	s.integrity = service.NewIntegrityService(
		db,
		repos.session,
		repos.telemetry,
		repos.verdict,
		cache,
		service.NewAlertPublisher(rdb),
		s.locks,
		service.IntegrityConfigFrom(cfg),
	)
	s.assessment = service.NewAssessmentService(db, repos.session, s.bank, s.integrity, s.locks, cfg)

	badge, err := service.NewBadgeService(
		repos.badge,
		repos.session,
		repos.telemetry,
		repos.verdict,
		s.storage,
		s.locks,
		cfg,
	)
	if err != nil {
		return nil, err
	}
	badge.Cache = cache
	s.badge = badge

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		assessment: controller.NewAssessmentController(s.assessment),
		telemetry:  controller.NewTelemetryController(s.integrity),
		badge:      controller.NewBadgeController(s.badge),
		skill:      controller.NewSkillController(s.bank),
		integrity:  controller.NewIntegrityController(s.integrity),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, rateWindow(cfg)))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func rateWindow(cfg *config.Config) time.Duration {
	if cfg.RateLimit.WindowMinutes <= 0 {
		return time.Minute
	}
	return time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
}

// Build wires the application against an already opened database. Redis may be nil.
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	svcs, err := app.initServices(repos, cfg, db, rdb)
	if err != nil {
		return nil, err
	}
	app.services = svcs
	ctrls := app.initControllers(svcs, db, rdb)

	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, ctrls, cfg)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		svcs.integrity.Reload(service.IntegrityConfigFrom(newCfg))
		svcs.bank.Invalidate()
	})

	return app, nil
}

func NewApp(cfg *config.Config, configDir string) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		var err error
		tp, err = tracing.InitTracer("skillforge", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, errors.Wrap(err, "initialize tracing")
		}
	}

	db, err := database.InitDB(&cfg.Database, cfg.ShouldMigrate())
	if err != nil {
		return nil, errors.Wrap(err, "initialize database")
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, errors.Wrap(err, "initialize redis")
	}

	app, err := Build(cfg, db, rdb)
	if err != nil {
		return nil, err
	}
	app.ConfigDir = configDir
	app.tracer = tp
	return app, nil
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.ConfigDir != "" {
		go func() {
			if err := configwatcher.WatchConfig(ctx, a.ConfigDir, a.applyConfig); err != nil {
				logger.Log.Error("config watcher stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down server...")

	// 等待进行中的请求完成（最多5秒）
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
	return nil
}
