package api

import (
	"net/http"

	"github.com/bitpal/wallet-service/internal/api/handler"
	"github.com/bitpal/wallet-service/internal/api/middleware"
	"github.com/bitpal/wallet-service/internal/api/spec"
	"github.com/bitpal/wallet-service/internal/config"
	"github.com/bitpal/wallet-service/internal/idempotency"
	"github.com/bitpal/wallet-service/internal/provider/paystack"
	"github.com/bitpal/wallet-service/internal/repository"
	"github.com/bitpal/wallet-service/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	store     *repository.Store
	idemStore *idempotency.Store
	redis     redis.Cmdable
	provider  paystack.Client
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, store *repository.Store, idemStore *idempotency.Store, redisClient redis.Cmdable, provider paystack.Client) *Router {
	return &Router{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		store:     store,
		idemStore: idemStore,
		redis:     redisClient,
		provider:  provider,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	// Services
	userSvc := service.NewUserService(api.store)
	walletSvc := service.NewWalletService(api.store)
	transferSvc := service.NewTransferService(api.store)
	depositSvc := service.NewDepositService(api.store, api.provider)
	webhookSvc := service.NewWebhookService(api.store, api.cfg.PaystackSecretKey, api.cfg.WebhookSkipSignature)
	keySvc := service.NewAPIKeyService(api.store)

	// Handlers
	authHandler := handler.NewAuthHandler(userSvc)
	userHandler := handler.NewUserHandler(userSvc)
	walletHandler := handler.NewWalletHandler(walletSvc, transferSvc, api.store)
	depositHandler := handler.NewDepositHandler(depositSvc)
	webhookHandler := handler.NewWebhookHandler(webhookSvc)
	keyHandler := handler.NewKeyHandler(keySvc)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	publicLimit := middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS)
	authLimit := middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS)

	// Operational endpoints
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/docs", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(publicLimit)
		r.Post("/v1/auth/login", authHandler.Login)
		r.Post("/v1/users", userHandler.Ensure)
		r.Post("/v1/paystack/webhook", webhookHandler.HandlePaystack)
	})

	// Wallet routes: session token or API key
	r.Group(func(r chi.Router) {
		r.Use(middleware.WalletAuthMiddleware(keySvc))
		r.Use(authLimit)

		r.Get("/v1/wallet/balance", walletHandler.Balance)
		r.Get("/v1/wallet/transactions", walletHandler.Transactions)
		r.Get("/v1/wallet/transactions/{reference}", walletHandler.TransactionByReference)
		r.Post("/v1/wallet/deposit", depositHandler.Initiate)
		r.Get("/v1/wallet/deposit/{reference}/status", depositHandler.Status)
		r.Get("/v1/wallet/deposit/{reference}/verify", depositHandler.Verify)
		r.With(middleware.IdempotencyMiddleware(api.idemStore, api.logger)).Post("/v1/wallet/transfer", walletHandler.Transfer)
	})

	// Session-only routes: API keys cannot manage the account or other keys
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(authLimit)

		r.Post("/v1/keys", keyHandler.Create)
		r.Get("/v1/keys", keyHandler.List)
		r.Delete("/v1/keys/{id}", keyHandler.Revoke)
		r.Delete("/v1/users/me", userHandler.Delete)
	})

	return r
}
