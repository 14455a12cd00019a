package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/wander/internal/bookmarks"
	"github.com/MrSnakeDoc/wander/internal/config"
	"github.com/MrSnakeDoc/wander/internal/controller"
	"github.com/MrSnakeDoc/wander/internal/events"
	"github.com/MrSnakeDoc/wander/internal/gateway"
	"github.com/MrSnakeDoc/wander/internal/httpserver"
	"github.com/MrSnakeDoc/wander/internal/httpserver/deps"
	"github.com/MrSnakeDoc/wander/internal/logger"
	"github.com/MrSnakeDoc/wander/internal/redis"
	"github.com/MrSnakeDoc/wander/internal/retry"
	"github.com/MrSnakeDoc/wander/internal/scheduler"
	"github.com/MrSnakeDoc/wander/internal/session"
	redisstore "github.com/MrSnakeDoc/wander/internal/store/redis"
	"github.com/MrSnakeDoc/wander/internal/transliterate"
	"github.com/MrSnakeDoc/wander/internal/utils"
	"github.com/MrSnakeDoc/wander/internal/version"
)

type App struct {
	cfg          *config.Config
	logger       logger.Logger
	server       *httpserver.Server
	redisClient  *goredis.Client
	hub          *events.Hub
	controller   *controller.Controller
	sessionCheck *scheduler.Periodic
	ctx          context.Context
	stop         context.CancelFunc
}

func New() (*App, error) {
	cfg := config.Load()
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog, logger.String("version", version.Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := &App{cfg: cfg, logger: loggerClient, ctx: ctx, stop: stop}
	if err := a.wire(); err != nil {
		stop()
		if a.redisClient != nil {
			utils.MustClose(a.redisClient, loggerClient, "redis")
		}
		return nil, err
	}
	return a, nil
}

func (a *App) wire() error {
	cfg, log := a.cfg, a.logger

	// Redis is only dialled when a component is configured to use it,
	// and then it must be reachable at startup.
	var store *redisstore.Store
	if cfg.UsesRedis() {
		client, err := redis.New(a.ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectRetries: cfg.RedisConnectRetries,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.redisClient = client
		store = redisstore.NewStore(client)
	}

	var sessionStore session.Store
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		sessionStore = session.NewRedisStore(store, cfg.SessionKey)
	default:
		sessionStore = session.NewFileStore(cfg.SessionFile)
	}
	sessions := session.NewManager(sessionStore, log.Named("session"))

	a.hub = events.NewHub(cfg.CORSOrigins, log.Named("events"))

	var limiter *rate.Limiter
	if cfg.OutboundRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.OutboundRPS), max(1, cfg.OutboundBurst))
	}

	base := retry.Policy{InitialDelay: cfg.RetryInitialDelay, MaxDelay: cfg.RetryMaxDelay}
	withRetries := func(n int) retry.Policy {
		p := base
		p.MaxRetries = n
		return p
	}

	gw, err := gateway.New(gateway.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		Tokens:  gateway.TokenFunc(sessions.Token),
		Limiter: limiter,
		Policies: gateway.Policies{
			Fetch:    withRetries(cfg.FetchMaxRetries),
			Read:     withRetries(cfg.ReadMaxRetries),
			Auth:     withRetries(cfg.AuthMaxRetries),
			Bookmark: withRetries(cfg.BookmarkMaxRetries),
		},
		OnProgress: func(op string, p retry.Progress) {
			a.hub.Publish(events.KindProgress, events.Progress{
				Op:            op,
				Attempt:       p.Attempt,
				TotalAttempts: p.TotalAttempts,
				Delay:         p.Delay,
			})
		},
		Logger: log.Named("gateway"),
	})
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}

	var cache transliterate.Cache = transliterate.NewMemoryCache()
	if cfg.ConvertCache == config.CacheRedis {
		cache = redisstore.NewTranslitCache(store, cfg.ConvertCacheTTL)
	}
	converter := transliterate.NewClient(transliterate.ClientOptions{
		URL:       cfg.ConvertURL,
		Converter: cfg.ConvertConverter,
		Timeout:   cfg.ConvertTimeout,
		Limiter:   limiter,
		Policy:    withRetries(cfg.ReadMaxRetries),
		Logger:    log.Named("transliterate"),
	})
	normalizer := transliterate.NewNormalizer(converter, cache, log)

	marks := bookmarks.New(gw, gw, bookmarks.Options{
		PageSize: cfg.MaterializePageSize,
		MaxPages: cfg.MaterializeMaxPages,
		Logger:   log.Named("bookmarks"),
	})

	a.controller = controller.New(controller.Options{
		Gateway:         gw,
		Bookmarks:       marks,
		Sessions:        sessions,
		Normalizer:      normalizer,
		Publisher:       a.hub,
		Logger:          log.Named("controller"),
		PageSize:        cfg.PageSize,
		PreviewSize:     cfg.PreviewSize,
		PreviewInterval: cfg.PreviewInterval,
		SearchDebounce:  cfg.SearchDebounce,
	})

	a.sessionCheck = scheduler.NewPeriodic("session-check", cfg.SessionCheckInterval, nil, log,
		a.controller.VerifySession)

	d := deps.Deps{
		Logger:         log,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		AuthRateBurst:  cfg.AuthRateBurst,
		AuthRatePerMin: cfg.AuthRatePerMin,
		Controller:     a.controller,
		Background:     a.ctx,
		Events:         a.hub,
		StaticDir:      cfg.StaticDir,
	}
	if store != nil {
		d.Redis = store
	}

	a.server = httpserver.New(cfg, log, d)
	a.server.RegisterOnShutdown(a.hub.Close)
	return nil
}

func (a *App) Run() error {
	defer a.stop()
	a.logger.Info("starting "+version.String(), logger.String("addr", a.cfg.ListenPort))

	if err := a.controller.Initialize(a.ctx); err != nil {
		return fmt.Errorf("initialize controller: %w", err)
	}
	a.sessionCheck.Start(a.ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-a.ctx.Done():
		a.logger.Info("shutting down gracefully")
	case runErr = <-errCh:
	}

	a.sessionCheck.Stop()
	a.controller.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		utils.MustClose(a.redisClient, a.logger, "redis")
	}
	_ = a.logger.Sync()

	if runErr == nil {
		a.logger.Info("wander stopped cleanly")
	}
	return runErr
}
