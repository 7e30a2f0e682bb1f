package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/sahoauth/accounts"
	"github.com/princinho/sahoauth/config"
	"github.com/princinho/sahoauth/controllers"
	"github.com/princinho/sahoauth/database"
	"github.com/princinho/sahoauth/logger"
	"github.com/princinho/sahoauth/metrics"
	"github.com/princinho/sahoauth/routes"
	"github.com/princinho/sahoauth/session"
	"github.com/princinho/sahoauth/storage"
	"github.com/princinho/sahoauth/token"
	"github.com/princinho/sahoauth/utils"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, err := openStore(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("open user store", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = users.Close(closeCtx)
	}()

	uploader, err := storage.New(ctx, cfg)
	if err != nil {
		lg.Fatal("init storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		lg.Fatal("token codec", zap.Error(err))
	}

	sessions := session.NewService(codec, users, lg)
	deps := &controllers.Deps{
		Accounts:   accounts.NewService(users, utils.NewPasswordHasher(), uploader, sessions, lg),
		Sessions:   sessions,
		Files:      storage.NewFileValidator(cfg.AllowedFileExtensions, cfg.AllowedFileMimeTypes, cfg.MaxUploadSizeMB),
		Cookies:    utils.CookieWriter{Secure: cfg.CookieSecure, Domain: cfg.CookieDomain},
		AccessTTL:  codec.TTL(token.Access),
		RefreshTTL: codec.TTL(token.Refresh),
		Log:        lg,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(deps, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config, lg *zap.Logger) (database.UserStore, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		return database.NewPostgresUserStore(ctx, cfg.PostgresDSN)
	case config.DriverMemory:
		lg.Warn("using in-memory user store; data is lost on restart")
		return database.NewMemoryUserStore(), nil
	default:
		client, err := database.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		store := database.NewMongoUserStore(client, cfg.DatabaseName)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		return store, nil
	}
}
