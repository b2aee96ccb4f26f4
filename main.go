package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"portcontracts/config"
	"portcontracts/controllers"
	"portcontracts/database"
	"portcontracts/middleware"
	"portcontracts/services"
	"portcontracts/utils"
)

// application связывает сервисы и HTTP слой
type application struct {
	cfg       *config.Config
	lookups   services.LookupProvider
	contracts *services.ContractService
	invoices  *services.InvoiceService
	warnings  *services.WarningService
	drafts    *services.DraftStore
	limiter   *utils.RateLimiter
	metrics   *utils.Metrics
	ready     func(ctx context.Context) error
}

func newApplication(cfg *config.Config, repo services.ContractRepository, lookups services.LookupProvider, triage services.TriageStore, metrics *utils.Metrics) *application {
	return &application{
		cfg:       cfg,
		lookups:   lookups,
		contracts: services.NewContractService(repo, lookups, metrics),
		invoices:  services.NewInvoiceService(repo),
		warnings:  services.NewWarningService(repo, lookups, triage, cfg.Warnings.HorizonDays, cfg.Location(), metrics),
		drafts:    services.NewDraftStore(cfg.Drafts.TTL),
		limiter:   utils.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window),
		metrics:   metrics,
		ready:     func(context.Context) error { return nil },
	}
}

// router основной API; все маршруты под /api требуют JWT
func (a *application) router() *gin.Engine {
	if a.cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(a.metrics))
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.Logger())

	api := r.Group("/api")
	api.Use(middleware.RateLimit(a.limiter))
	api.Use(middleware.Auth([]byte(a.cfg.JWT.SecretKey)))

	controllers.NewLookupController(a.lookups).RegisterRoutes(api)
	controllers.NewContractController(a.contracts, a.invoices).RegisterRoutes(api)
	controllers.NewDraftController(a.contracts, a.drafts).RegisterRoutes(api)
	controllers.NewWarningController(a.warnings).RegisterRoutes(api)

	return r
}

// opsRouter служебный слушатель: проверки живости и готовности, метрики
func (a *application) opsRouter() http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	router.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.ready(ctx); err != nil {
			utils.LogWarn("сервис не готов: %v", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}).Methods(http.MethodGet)

	router.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)

	return router
}

// newLookupProvider оборачивает справочники кэшем Redis, если он настроен и доступен
func newLookupProvider(ctx context.Context, cfg *config.Config, db *database.Database) (services.LookupProvider, func()) {
	provider := services.NewGormLookupProvider(db.DB)
	if cfg.Redis.Addr == "" {
		return provider, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		utils.LogWarn("Redis недоступен, справочники читаются из базы: %v", err)
		_ = client.Close()
		return provider, func() {}
	}

	cached := services.NewCachedLookupProvider(provider, client, cfg.Redis.LookupTTL)
	// справочники могли измениться миграциями и заполнением при старте
	if err := cached.Invalidate(ctx); err != nil {
		utils.LogWarn("не удалось сбросить кэш справочников: %v", err)
	}
	utils.LogInfo("кэш справочников в Redis включен (%s)", cfg.Redis.Addr)
	return cached, func() { _ = client.Close() }
}

func main() {
	// Инициализируем конфигурацию
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	if err := utils.InitLogger(cfg.Log.Level, cfg.Server.Env); err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer utils.SyncLogger()

	if err := run(cfg); err != nil {
		utils.LogError("сервис остановлен с ошибкой: %v", err)
		utils.SyncLogger()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Инициализируем подключение к базе данных
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	lookups, closeLookups := newLookupProvider(ctx, cfg, db)
	defer closeLookups()

	metrics := utils.GetMetrics()
	app := newApplication(cfg,
		services.NewGormContractRepository(db.DB),
		lookups,
		services.NewGormTriageStore(db.DB),
		metrics,
	)
	app.ready = db.Ping

	// Запускаем планировщик предупреждений
	scheduler := services.NewWarningSchedulerService(app.warnings, services.NewEmailService(cfg), cfg.Warnings.ScanInterval)
	scheduler.Start(ctx)
	utils.LogInfo("Планировщик предупреждений запущен, интервал %v, горизонт %d дн.", cfg.Warnings.ScanInterval, cfg.Warnings.HorizonDays)

	app.drafts.StartCleanup(ctx, time.Minute)
	go func() {
		ticker := time.NewTicker(cfg.RateLimit.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				app.limiter.Cleanup()
			}
		}
	}()

	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	opsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.OpsPort),
		Handler:           app.opsRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{apiServer, opsServer} {
		srv := srv
		g.Go(func() error {
			utils.LogInfo("Сервер запущен на %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("ошибка запуска сервера %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		utils.LogInfo("остановка серверов")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return errors.Join(apiServer.Shutdown(shutdownCtx), opsServer.Shutdown(shutdownCtx))
	})

	return g.Wait()
}
