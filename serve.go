package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"omnilead-server/jobs"
	"omnilead-server/middleware"
	"omnilead-server/routes"
	"omnilead-server/services"
	ws "omnilead-server/websocket"
)

// maxRequestBytes fits a review with the maximum number of images.
const maxRequestBytes = services.MaxReviewImages*services.MaxReviewImageSize + 1<<20

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, live feed and fallback sync job",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := a.logger
	gin.SetMode(a.cfg.Server.GinMode)

	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	up, err := a.uploader(ctx)
	if err != nil {
		return err
	}

	sessions := a.sessions()
	channels := a.channels()
	activity := services.NewActivityLog(a.stores.AdminActions, a.stores.SentMessages, logger)
	notifier := activity.Notifier(services.NewDispatcher(a.cfg.Telegram.BaseURL, a.cfg.Telegram.Timeout, logger))
	if !channels.Admin.Present() {
		logger.Warn("TELEGRAM_BOT_TOKEN or TELEGRAM_ADMIN_CHAT_ID missing, admin alerts will be skipped")
	}

	directory := services.NewDirectory(a.stores.Contractors, sessions, notifier, channels, hub, logger)
	catalog := services.NewCatalog(a.stores.Services, logger)
	if n, err := catalog.Seed(ctx); err != nil {
		logger.Warn("service catalog seed failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("service catalog seeded", zap.Int("count", n))
	}

	h := &routes.Handler{
		Directory: directory,
		Leads:     services.NewLeadRouter(a.stores.Leads, a.stores.Blocks, directory, notifier, channels, hub, logger),
		Reviews:   services.NewReviewDesk(a.stores.Reviews, directory, up, notifier, channels, hub, logger),
		Messages:  services.NewMessageLog(a.stores.Messages, directory, notifier, channels, hub, logger),
		Catalog:   catalog,
		Analytics: services.NewAnalytics(a.stores.Contractors, a.stores.Leads, a.stores.Reviews, a.stores.Messages),
		Activity:  activity,
		Sessions:  sessions,
		Syncer:    a.stores,
		Hub:       hub,
		Logger:    logger,

		AdminEmail:    a.cfg.Admin.Email,
		AdminPassword: a.cfg.Admin.Password,
	}
	if a.cfg.Upload.Backend == "" || a.cfg.Upload.Backend == "local" {
		h.UploadDir = a.cfg.Upload.LocalDir
		h.UploadPublicBase = a.cfg.Upload.PublicBase
	}
	if !a.cfg.AdminEnabled() {
		logger.Warn("ADMIN_EMAIL or ADMIN_PASSWORD missing, admin routes are unreachable")
	}

	limiter := middleware.NewRateLimiter()
	limiter.StartCleanup(ctx, 10*time.Minute)

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.SecurityHeadersMiddleware(),
		middleware.CORSMiddleware(a.cfg.Server.AllowedOrigins),
		middleware.InputValidationMiddleware(maxRequestBytes),
		middleware.RateLimitMiddleware(limiter, a.cfg.Server.RateLimit, logger),
		middleware.AuditLogMiddleware(logger),
	)
	routes.SetupRoutes(router, h)

	syncJob := jobs.NewSyncJob(a.stores, a.cfg.Sync.Interval, logger)
	syncJob.Start(ctx)
	defer syncJob.Stop()

	srv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
