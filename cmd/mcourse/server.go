package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/mcourse/internal/config"
	"github.com/xxxsen/mcourse/internal/fingerprint"
	"github.com/xxxsen/mcourse/internal/handler"
	"github.com/xxxsen/mcourse/internal/job"
	"github.com/xxxsen/mcourse/internal/limiter"
	"github.com/xxxsen/mcourse/internal/middleware"
	"github.com/xxxsen/mcourse/internal/model"
	"github.com/xxxsen/mcourse/internal/otp"
	"github.com/xxxsen/mcourse/internal/repo"
	"github.com/xxxsen/mcourse/internal/schedule"
	"github.com/xxxsen/mcourse/internal/service"
)

const (
	memoryLimiterSize  = 10000
	challengeGraceTime = time.Minute
)

func runServer(parent context.Context, cfg *config.Config, sqlDB *sql.DB) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logutil.GetLogger(ctx)
	logger.Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("otp_delivery", cfg.OTPDelivery.Type),
		zap.String("fingerprint", cfg.Auth.Fingerprint),
		zap.Bool("redis", cfg.Redis.Enabled()),
	)

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	if err := checkDependencies(ctx, sqlDB, redisClient); err != nil {
		return err
	}

	accountRepo := repo.NewAccountRepo(sqlDB)
	sessionRepo := repo.NewSessionRepo(sqlDB)

	sender, err := service.NewOTPSender(cfg.OTPDelivery)
	if err != nil {
		return fmt.Errorf("init otp sender: %w", err)
	}
	loginLimiter, otpLimiter := newLimiters(cfg, redisClient)

	if cfg.Auth.DebugOTPEcho && !service.OTPEchoCompiled() {
		logger.Warn("auth.debug_otp_echo is set but the binary was built without otpdebug, codes will not be echoed")
	}
	authService := service.NewAuthService(service.AuthDeps{
		Accounts:     accountRepo,
		Sessions:     sessionRepo,
		Generator:    otp.NewRandomGenerator(cfg.Auth.OTPDigits),
		Sender:       sender,
		LoginLimiter: loginLimiter,
		OTPLimiter:   otpLimiter,
	}, []byte(cfg.JWTSecret), service.AuthOptions{
		OTPTTL:                    cfg.Auth.OTPTTL(),
		SessionTTL:                cfg.Auth.SessionTTL(),
		ReauthWindow:              cfg.Auth.ReauthWindow(),
		TokenTTL:                  cfg.Auth.TokenTTL(),
		HideAccountExistence:      cfg.Auth.HideAccountExistence,
		AutoRegisterPhone:         cfg.Auth.AutoRegisterPhone,
		EnforceRequestFingerprint: cfg.Auth.EnforceRequestFingerprint,
		DebugOTPEcho:              cfg.Auth.DebugOTPEcho,
	})
	accountService := service.NewAccountService(accountRepo, sessionRepo, nil)
	policy := fingerprint.New(cfg.Auth.Fingerprint, cfg.Auth.TrustProxy)

	deps := handler.RouterDeps{
		AdminAuth:       handler.NewAuthHandler(model.AccountKindAdmin, authService, policy),
		UserAuth:        handler.NewAuthHandler(model.AccountKindUser, authService, policy),
		AdminAccounts:   handler.NewAccountHandler(model.AccountKindAdmin, accountService),
		UserAccounts:    handler.NewAccountHandler(model.AccountKindUser, accountService),
		Health:          handler.NewHealthHandler(sqlDB),
		Verifier:        authService,
		Fingerprint:     policy,
		RateLimitWindow: cfg.RateLimit.Window(),
		RateLimitBurst:  cfg.RateLimit.Burst,
		Metrics:         promhttp.Handler(),
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			middleware.Metrics(),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewChallengeCleanupJob(sessionRepo, challengeGraceTime), cfg.CleanupCron); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logger.Info("http server listening", zap.String("addr", addr))
	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Run()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}
	logger.Info("server stopping...")
	return nil
}

func newLimiters(cfg *config.Config, client redis.UniversalClient) (limiter.AttemptLimiter, limiter.AttemptLimiter) {
	window := cfg.Auth.AttemptWindow()
	loginCfg := limiter.Config{MaxAttempts: cfg.Auth.MaxLoginAttempts, Window: window, Prefix: "mcourse:attempts:"}
	otpCfg := limiter.Config{MaxAttempts: cfg.Auth.MaxOTPAttempts, Window: window, Prefix: "mcourse:attempts:"}
	if client != nil {
		return limiter.NewRedisLimiter(client, loginCfg), limiter.NewRedisLimiter(client, otpCfg)
	}
	return limiter.NewMemoryLimiter(loginCfg, memoryLimiterSize), limiter.NewMemoryLimiter(otpCfg, memoryLimiterSize)
}

// checkDependencies pings the database and, when configured, redis before serving.
func checkDependencies(ctx context.Context, sqlDB *sql.DB, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sqlDB.PingContext(gctx); err != nil {
			return fmt.Errorf("ping db: %w", err)
		}
		return nil
	})
	if client != nil {
		g.Go(func() error {
			if err := client.Ping(gctx).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}
