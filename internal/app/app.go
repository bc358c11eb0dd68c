package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/doease/doease/internal/backend"
	"github.com/doease/doease/internal/config"
	"github.com/doease/doease/internal/dto"
	"github.com/doease/doease/internal/handler"
	"github.com/doease/doease/internal/session"
	"github.com/doease/doease/internal/tasks"
	"github.com/doease/doease/pkg/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra     Infrastructure
	config    *config.Config
	bootstrap *session.Bootstrap
	tasks     *tasks.Manager
	router    *gin.Engine
	server    *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) *App {
	cfgErr := cfg.Backend.Validate()

	var boot *session.Bootstrap
	var api backend.API
	if cfgErr != nil {
		boot = session.NewUnconfigured(cfgErr, infra.Logger())
	} else {
		api = infra.Backend()
		boot = session.New(api, cfg.Bootstrap, infra.Logger())
	}

	manager := tasks.NewManager(api, infra.Logger())
	healthChecker := NewHealthChecker(infra)

	authHandler := handler.NewAuthHandler(api, boot)
	taskHandler := handler.NewTaskHandler(manager)
	profileHandler := handler.NewProfileHandler(api, boot)

	router := gin.Default()
	router.Use(otelgin.Middleware("doease"))
	router.Use(handler.RequestIDMiddleware())
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfgErr, boot, authHandler, taskHandler, profileHandler, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:     infra,
		config:    cfg,
		bootstrap: boot,
		tasks:     manager,
		router:    router,
		server:    srv,
	}
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Bootstrap() *session.Bootstrap {
	return a.bootstrap
}

// configurationErrorMiddleware short-circuits operational routes while the
// app is in the configuration-error terminal state.
func configurationErrorMiddleware(cfgErr *config.ConfigurationError) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "Configuration error",
			Message: cfgErr.Error(),
		})
		c.Abort()
	}
}

func setupRoutes(
	router *gin.Engine,
	cfgErr *config.ConfigurationError,
	boot *session.Bootstrap,
	authHandler *handler.AuthHandler,
	taskHandler *handler.TaskHandler,
	profileHandler *handler.ProfileHandler,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	api := router.Group("/api/v1")
	{
		// The published state stays reachable in every mode; it is how the
		// view layer learns about the configuration-error state.
		api.GET("/state", authHandler.State)

		if cfgErr != nil {
			api.Use(configurationErrorMiddleware(cfgErr))
		}

		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.SignUp)
			auth.POST("/signin", authHandler.SignIn)
			auth.POST("/signout", authHandler.SignOut)
			auth.GET("/me", handler.RequireUser(boot), authHandler.Me)
			auth.POST("/refresh", handler.RequireUser(boot), authHandler.Refresh)
		}

		taskRoutes := api.Group("/tasks", handler.RequireUser(boot))
		{
			taskRoutes.GET("", taskHandler.List)
			taskRoutes.POST("", taskHandler.Add)
			taskRoutes.PATCH("/:id/toggle", taskHandler.Toggle)
			taskRoutes.DELETE("/:id", taskHandler.Delete)
		}

		api.GET("/analytics", handler.RequireUser(boot), taskHandler.Analytics)
		api.PUT("/profile", handler.RequireUser(boot), profileHandler.Update)
	}
}

func (a *App) Run(ctx context.Context) error {
	a.bootstrap.Start()

	// Drop the held task list whenever the session resolves signed-out.
	updates, unsubscribe := a.bootstrap.Subscribe()
	defer unsubscribe()
	go func() {
		for snap := range updates {
			if !snap.Loading && snap.CurrentUser == nil {
				a.tasks.Reset()
			}
		}
	}()

	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("addr", a.config.Server.Address()),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	a.bootstrap.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
