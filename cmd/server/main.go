package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"recruitment-portal/internal/app"
	"recruitment-portal/internal/audit"
	"recruitment-portal/internal/auth"
	"recruitment-portal/internal/booking"
	"recruitment-portal/internal/calendar"
	"recruitment-portal/internal/config"
	"recruitment-portal/internal/metrics"
	"recruitment-portal/internal/notify"
	"recruitment-portal/internal/ratelimit"
	"recruitment-portal/internal/server"
	"recruitment-portal/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "configs/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.Logging)
	slog.SetDefault(log)
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bookingStore, closeStore, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeStore()

	interviewers, err := cfg.Directory()
	if err != nil {
		return err
	}

	var sender notify.Sender
	if cfg.Mail.Host != "" {
		smtpSender, err := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			Timeout:  cfg.Mail.Timeout,
		})
		if err != nil {
			return err
		}
		sender = smtpSender
	} else {
		sender = notify.NewLogSender(log)
	}
	listeners := []booking.Listener{notify.NewMailer(sender, log)}

	if cfg.Calendar.Enabled {
		pub, err := calendar.New(ctx, cfg.Calendar.CredentialsFile, cfg.Calendar.CalendarID, cfg.Location(), log)
		if err != nil {
			return err
		}
		listeners = append(listeners, pub)
	}

	dispatcher := notify.NewDispatcher(log, 30*time.Second)
	defer dispatcher.Wait()

	svc := booking.NewService(bookingStore, booking.NewStaticDirectory(interviewers), dispatcher, log, listeners...)

	limiter, err := newLimiter(ctx, cfg, log)
	if err != nil {
		return err
	}

	go audit.NewRunner(svc, cfg.Audit.Interval, log).Start(ctx)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	a := &app.App{
		Bookings: svc,
		Sessions: auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, cfg.Auth.Admins, cfg.Auth.StaticTokens),
		Google: auth.NewGoogle(auth.GoogleConfig{
			ClientID:      cfg.Auth.Google.ClientID,
			ClientSecret:  cfg.Auth.Google.ClientSecret,
			RedirectURL:   cfg.Auth.Google.RedirectURL,
			AllowedDomain: cfg.Auth.Google.AllowedDomain,
		}),
		Limiter:      limiter,
		Log:          log,
		SecureCookie: cfg.Auth.SecureCookie,
		Location:     cfg.Location(),
	}
	a.Register(router)

	return server.Run(ctx, server.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, router, log)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (booking.Store, func(), error) {
	if cfg.URL == "" {
		log.Warn("no database configured, using in-memory store")
		return store.NewMemory(), func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping db: %w", err)
	}
	if cfg.Migrate {
		if err := store.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return store.NewPostgres(pool), pool.Close, nil
}

func newLimiter(ctx context.Context, cfg *config.Config, log *slog.Logger) (ratelimit.Limiter, error) {
	if cfg.Redis.Address == "" {
		local := ratelimit.NewLocal(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		go local.Cleanup(ctx, time.Minute, 10*time.Minute)
		return local, nil
	}

	rdb, err := ratelimit.NewRedisClient(ctx, ratelimit.RedisConfig{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return nil, err
	}
	context.AfterFunc(ctx, func() { _ = rdb.Close() })
	log.Info("using redis rate limiter", slog.String("addr", cfg.Redis.Address))
	return ratelimit.NewRedis(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window), nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
