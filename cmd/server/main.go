package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/user/watchwise/internal/apperr"
	"github.com/user/watchwise/internal/config"
	"github.com/user/watchwise/internal/handler"
	"github.com/user/watchwise/internal/logger"
	"github.com/user/watchwise/internal/middleware"
	"github.com/user/watchwise/internal/repository"
	"github.com/user/watchwise/internal/router"
	"github.com/user/watchwise/internal/service"
	"github.com/user/watchwise/internal/session"
	"golang.org/x/time/rate"
)

func main() {
	// 加载环境变量
	envErr := godotenv.Load()

	// 加载配置，缺少 TMDB 令牌时直接退出
	cfg, err := config.Load()
	if err != nil {
		logger.Get().WithError(err).Fatal("invalid configuration")
	}

	logger.Init(cfg.LogLevel)
	log := logger.For("main")
	if envErr != nil {
		log.Info("no .env file found, using system environment")
	}

	if err := apperr.InitSentry(cfg.SentryDSN, cfg.Env); err != nil {
		log.WithError(err).Warn("sentry init failed")
	}
	defer apperr.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 令牌吊销列表：配置了 Redis 时多实例共享
	var revocations repository.RevocationStore
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = repository.InitRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Fatal("redis connection failed")
		}
		revocations = repository.NewRedisRevocationStore(redisClient)
	} else {
		revocations = repository.NewMemoryRevocationStore()
	}

	// 初始化存储
	repos, err := openRepositories(ctx, cfg, revocations)
	if err != nil {
		log.WithError(err).Fatal("store connection failed")
	}
	if redisClient != nil {
		repos.AddCloser(func(context.Context) error { return redisClient.Close() })
	}

	// 初始化服务
	authSvc := service.NewAuthService(repos.Credentials, repos.Revocations, cfg.AppSecret, cfg.JWTExpiry)
	registry := session.NewRegistry(session.Dependencies{
		Auth:       authSvc,
		Accounts:   service.NewAccountService(repos.Profiles),
		Catalog:    service.NewTMDBService(cfg),
		Watchlists: service.NewWatchlistService(repos.Watchlists, repos.Profiles),
		Profiles:   repos.Profiles,
	}, cfg.SessionMaxAge)

	// 启动定时补偿任务
	service.NewReconcileService(repos.Credentials, repos.Profiles, cfg.ReconcileInterval).Start(ctx)

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 设置 Session 中间件
	store := cookie.NewStore([]byte(cfg.AppSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("watchwise", store))

	// 中间件
	r.Use(middleware.Logger())
	r.Use(middleware.Security())
	r.Use(middleware.CORS(cfg.CORSOrigins))

	h := handler.NewHandler(cfg, authSvc)
	authLimit := rate.Inf
	if cfg.AuthRateLimit > 0 {
		authLimit = rate.Limit(cfg.AuthRateLimit)
	}
	authLimiter := rate.NewLimiter(authLimit, int(cfg.AuthRateLimit)*2+1)
	router.RegisterRoutes(r, h, registry, authLimiter)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	// 5 秒超时上下文用于关闭过程
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	registry.Close()
	if err := repos.Close(shutdownCtx); err != nil {
		log.WithError(err).Warn("failed to close store")
	}

	log.Info("server exited")
}

// openRepositories 按 STORE_DRIVER 选择 PostgreSQL、MongoDB 或内存存储
func openRepositories(ctx context.Context, cfg *config.Config, revocations repository.RevocationStore) (*repository.Repositories, error) {
	switch cfg.StoreDriver {
	case "memory":
		return repository.NewMemoryRepositories(revocations), nil
	case "mongo", "mongodb":
		db, err := repository.InitMongo(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return repository.NewMongoRepositories(db, revocations), nil
	case "postgres", "":
		db, err := repository.InitDB(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repository.NewRepositories(db, revocations), nil
	default:
		return nil, errors.New("unknown STORE_DRIVER: " + cfg.StoreDriver)
	}
}
