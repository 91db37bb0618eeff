package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"mindtrack-backend/cmd/app/internal/controller"
	"mindtrack-backend/internal/cache"
	"mindtrack-backend/internal/catalog"
	"mindtrack-backend/internal/config"
	"mindtrack-backend/internal/db"
	"mindtrack-backend/internal/llm"
	"mindtrack-backend/internal/metrics"
	"mindtrack-backend/internal/repository"
	"mindtrack-backend/internal/scoring"
	"mindtrack-backend/internal/service"
	"mindtrack-backend/pkg/middleware"
	"mindtrack-backend/utilities"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			printStartUpBanner()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.APIConfig) error {
	if err := cfg.Authentication.CheckSecrets(); err != nil {
		return err
	}
	if cfg.Authentication.AccessSecret == config.DevAccessSecret || cfg.Authentication.RefreshSecret == config.DevRefreshSecret {
		utilities.Warn("signing tokens with the built-in development secrets, never expose this server publicly")
	}

	// Initialize DB using the loaded config.
	if err := db.InitDBFromConfig(cfg); err != nil {
		return fmt.Errorf("failed to initialise database: %w", err)
	}
	defer db.Close()
	conn := db.GetDB()

	dashboardCache, redisClient := cache.New(cfg.Cache)
	if redisClient != nil {
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			utilities.Warn("redis at %s unreachable, dashboard reads will miss: %v", cfg.Cache.Addr, err)
		}
	}

	llmClient, err := llm.NewClient(cfg.LLM, &http.Client{Timeout: 2 * cfg.LLM.Timeout()})
	if err != nil {
		return err
	}
	m := metrics.NewDefault()

	var enricher service.InsightEnricher
	if llmClient != nil {
		if enricher, err = service.NewInsightEnricher(llmClient, cfg.LLM.Timeout(), cfg.LLM.CacheSize, m); err != nil {
			return err
		}
		utilities.Info("text generation enabled: provider=%s model=%s", cfg.LLM.Provider, cfg.LLM.Model)
	} else {
		utilities.Info("no text generation provider configured, using computed insights only")
	}

	cat := catalog.Default()
	engine := scoring.NewEngine(cat)
	repos := repository.New(conn)
	qe := db.NewQueryExecutor(conn)
	bus := utilities.GlobalEventBus
	publicMetrics, adminSrv := metricsEndpoints(cfg.Metrics, m.Handler())

	services := controller.Services{
		Auth:        service.NewAuthService(repos.Users),
		Assessments: service.NewAssessmentService(engine, repos, qe, enricher, m, bus, cfg.Goals),
		Insights:    service.NewInsightService(repos, llmClient, cfg.LLM.Timeout(), m),
		Chat:        service.NewChatService(repos, llmClient, cfg.LLM.ChatHistory, cfg.LLM.Timeout(), m),
		Goals:       service.NewGoalService(repos.Goals, bus),
		Progress:    service.NewProgressService(repos, bus),
		Dashboard:   service.NewDashboardService(repos, dashboardCache, bus),
		Reports:     service.NewReportService(repos, cat),
		Catalog:     cat,
		Limiter:     utilities.NewUserRateLimiter(cfg.RateLimit),
		Metrics:     publicMetrics,
		DB:          qe,
	}

	// Initialize Gin router.
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.Context.CORSOrigins)))
	if cfg.RequestDump {
		r.Use(middleware.RequestDumpMiddleware())
	}
	controller.RegisterRoutes(r, services)

	// Start server on the host and port specified in the XML config.
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Context.Host, cfg.Context.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 2)
	go func() {
		utilities.Info("listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()
	if adminSrv != nil {
		go func() {
			utilities.Info("serving metrics on %s", adminSrv.Addr)
			errCh <- adminSrv.ListenAndServe()
		}()
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	utilities.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	if adminSrv != nil {
		if adminErr := adminSrv.Shutdown(shutdownCtx); err == nil {
			err = adminErr
		}
	}
	bus.Wait()
	return err
}

// metricsEndpoints mounts metrics on the API router only when configured
// public. Otherwise it returns a separate server for the admin address, or
// nothing when that address is "off".
func metricsEndpoints(cfg config.MetricsConfig, h http.Handler) (http.Handler, *http.Server) {
	if cfg.Public {
		utilities.Warn("metrics are exposed on the public API listener")
		return h, nil
	}
	if cfg.Addr == "" || strings.EqualFold(cfg.Addr, "off") {
		return nil, nil
	}
	admin := gin.New()
	admin.Use(gin.Recovery())
	admin.GET("/metrics", gin.WrapH(h))
	return nil, &http.Server{
		Addr:              cfg.Addr,
		Handler:           admin,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// corsConfig allows every origin for "*" and otherwise the listed ones with
// credentials.
func corsConfig(origins string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	var list []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			list = append(list, o)
		}
	}
	if len(list) == 0 || (len(list) == 1 && list[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = list
	cfg.AllowCredentials = true
	return cfg
}
