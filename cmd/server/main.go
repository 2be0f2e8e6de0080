package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"launchpad/internal/config"
	"launchpad/internal/db"
	"launchpad/internal/forum"
	"launchpad/internal/logger"
	"launchpad/internal/middleware"
	"launchpad/internal/router"
	"launchpad/internal/store"
	"launchpad/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Log.Debug("No .env file found, using env vars from system")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	board := forum.NewBoard(st, forum.WithLogger(logger.Component("forum")))
	defer board.Close()

	// Warm the list; a failure only means the first page view retries.
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 5*time.Second)
	if err := board.Refresh(warmCtx, store.OrderCreatedAt); err != nil {
		logger.Log.WithError(err).Warn("initial refresh failed, starting with fixtures only")
	}
	cancelWarm()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger.Component("http")))

	// Setup Sessions
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   365 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("launchpad_session", sessionStore))

	// Load Templates using Multitemplate to avoid collision and allow handler names
	renderer, err := utils.LoadTemplates(cfg.TemplatesDir)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	r.HTMLRender = renderer

	// Static Assets
	r.Static("/static", cfg.StaticDir)

	// Middleware
	r.Use(middleware.LoadIdentity())

	if err := router.RegisterRoutes(r, cfg, board, st); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Log.WithField("addr", srv.Addr).Info("Launchpad server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		logger.Log.WithField("signal", sig.String()).Info("received signal, shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("error shutting down http server")
	}
	// Pending counter writes go out before the process exits.
	if err := board.Flush(ctx); err != nil {
		logger.Log.WithError(err).Warn("flushing counter writes failed")
	}
	return nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.InMemory() {
		logger.Log.Warn("DATABASE_URL=memory, posts live in this process only")
		return store.NewMemoryStore(), nil
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return store.NewGormStore(conn), nil
}
